package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type Options struct {
	Region string
	// Optional static credentials; the default provider chain is used when
	// either field is empty (the normal case inside Lambda).
	AccessKey string
	SecretKey string
}

// Session holds the shared SDK config; service clients are built from it on
// demand so handlers only construct what they use.
type Session struct {
	cfg aws.Config
}

func NewSession(ctx context.Context, opt Options) (*Session, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opt.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opt.Region))
	}
	if opt.AccessKey != "" && opt.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(opt.AccessKey, opt.SecretKey, "")
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(creds))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Session{cfg: cfg}, nil
}

func (s *Session) EC2() *EC2 {
	return &EC2{client: ec2.NewFromConfig(s.cfg)}
}

func (s *Session) S3() *S3 {
	return &S3{client: s3.NewFromConfig(s.cfg)}
}

func (s *Session) SNS() *SNS {
	return &SNS{client: sns.NewFromConfig(s.cfg)}
}
