package cloud

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dchukwu/cloudjanitor/internal/sweep"
)

const allUsersGroupURI = "http://acs.amazonaws.com/groups/global/AllUsers"

type S3 struct {
	client *s3.Client
}

type Bucket struct {
	Name      string
	CreatedAt time.Time
}

type EncryptionRule struct {
	Algorithm        string
	KMSKeyID         string
	BucketKeyEnabled bool
}

type PublicAccess struct {
	ReadPublic  bool
	WritePublic bool
	// BlockConfig mirrors the bucket's PublicAccessBlock settings when one
	// exists.
	BlockConfig map[string]bool
}

// BucketExists verifies the bucket is reachable. A missing bucket comes back
// as a KindNotFound error.
func (c *S3) BucketExists(ctx context.Context, bucket string) error {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	return classify("head bucket", err)
}

func (c *S3) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	return classify("delete object", err)
}

// ObjectSource walks a bucket listing page by page for the sweeper.
type ObjectSource struct {
	paginator *s3.ListObjectsV2Paginator
	buf       []sweep.Record
}

func (c *S3) Objects(bucket string) sweep.Source {
	return &ObjectSource{
		paginator: s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
			Bucket: aws.String(bucket),
		}),
	}
}

func (s *ObjectSource) Next(ctx context.Context) (sweep.Record, bool, error) {
	for len(s.buf) == 0 {
		if !s.paginator.HasMorePages() {
			return sweep.Record{}, false, nil
		}
		page, err := s.paginator.NextPage(ctx)
		if err != nil {
			return sweep.Record{}, false, classify("list objects", err)
		}
		for _, obj := range page.Contents {
			s.buf = append(s.buf, sweep.Record{
				ID:        aws.ToString(obj.Key),
				CreatedAt: aws.ToTime(obj.LastModified),
				Size:      aws.ToInt64(obj.Size),
			})
		}
	}

	rec := s.buf[0]
	s.buf = s.buf[1:]
	return rec, true, nil
}

func (c *S3) ListBuckets(ctx context.Context) ([]Bucket, error) {
	resp, err := c.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, classify("list buckets", err)
	}
	buckets := make([]Bucket, 0, len(resp.Buckets))
	for _, b := range resp.Buckets {
		buckets = append(buckets, Bucket{
			Name:      aws.ToString(b.Name),
			CreatedAt: aws.ToTime(b.CreationDate),
		})
	}
	return buckets, nil
}

// BucketLocation resolves the bucket region, mapping the legacy empty and
// "EU" constraints the way the S3 API defines them.
func (c *S3) BucketLocation(ctx context.Context, bucket string) (string, error) {
	resp, err := c.client.GetBucketLocation(ctx, &s3.GetBucketLocationInput{Bucket: aws.String(bucket)})
	if err != nil {
		return "", classify("get bucket location", err)
	}
	region := string(resp.LocationConstraint)
	switch region {
	case "":
		region = "us-east-1"
	case "EU":
		region = "eu-west-1"
	}
	return region, nil
}

// BucketEncryption returns the bucket's server-side encryption rules. An
// unencrypted bucket surfaces as a KindNoEncryption error.
func (c *S3) BucketEncryption(ctx context.Context, bucket string) ([]EncryptionRule, error) {
	resp, err := c.client.GetBucketEncryption(ctx, &s3.GetBucketEncryptionInput{Bucket: aws.String(bucket)})
	if err != nil {
		return nil, classify("get bucket encryption", err)
	}

	var rules []EncryptionRule
	if resp.ServerSideEncryptionConfiguration != nil {
		for _, rule := range resp.ServerSideEncryptionConfiguration.Rules {
			r := EncryptionRule{BucketKeyEnabled: aws.ToBool(rule.BucketKeyEnabled)}
			if def := rule.ApplyServerSideEncryptionByDefault; def != nil {
				r.Algorithm = string(def.SSEAlgorithm)
				r.KMSKeyID = aws.ToString(def.KMSMasterKeyID)
			}
			rules = append(rules, r)
		}
	}
	return rules, nil
}

// BucketPublicAccess checks the PublicAccessBlock configuration and the bucket
// ACL for grants to the AllUsers group.
func (c *S3) BucketPublicAccess(ctx context.Context, bucket string) (PublicAccess, error) {
	var pa PublicAccess

	block, err := c.client.GetPublicAccessBlock(ctx, &s3.GetPublicAccessBlockInput{Bucket: aws.String(bucket)})
	if err != nil {
		if cerr := classify("get public access block", err); !IsKind(cerr, KindNoPublicAccessBlock) {
			return pa, cerr
		}
	} else if cfg := block.PublicAccessBlockConfiguration; cfg != nil {
		pa.BlockConfig = map[string]bool{
			"BlockPublicAcls":       aws.ToBool(cfg.BlockPublicAcls),
			"IgnorePublicAcls":      aws.ToBool(cfg.IgnorePublicAcls),
			"BlockPublicPolicy":     aws.ToBool(cfg.BlockPublicPolicy),
			"RestrictPublicBuckets": aws.ToBool(cfg.RestrictPublicBuckets),
		}
	}

	acl, err := c.client.GetBucketAcl(ctx, &s3.GetBucketAclInput{Bucket: aws.String(bucket)})
	if err != nil {
		return pa, classify("get bucket acl", err)
	}

	for _, grant := range acl.Grants {
		if grant.Grantee == nil || string(grant.Grantee.Type) != "Group" {
			continue
		}
		if aws.ToString(grant.Grantee.URI) != allUsersGroupURI {
			continue
		}
		switch string(grant.Permission) {
		case "READ":
			pa.ReadPublic = true
		case "WRITE":
			pa.WritePublic = true
		case "FULL_CONTROL":
			pa.ReadPublic = true
			pa.WritePublic = true
		}
	}
	return pa, nil
}
