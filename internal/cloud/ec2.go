package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/dchukwu/cloudjanitor/internal/sweep"
)

type EC2 struct {
	client *ec2.Client
}

// Instance is an EC2 instance carrying the scheduling tag.
type Instance struct {
	ID     string
	State  string
	Action string // value of the Action tag, if present
}

// StateChange reports the state an instance moved into after a start or stop
// request.
type StateChange struct {
	ID           string
	CurrentState string
}

type Volume struct {
	ID               string
	Size             int32
	Type             string
	AvailabilityZone string
	InstanceID       string // "unattached" when the volume has no attachment
	Device           string
}

type Snapshot struct {
	ID        string
	State     string
	StartTime time.Time
}

// ListActionTagged returns instances carrying an Action tag of Auto-Stop or
// Auto-Start in a state the scheduler cares about.
func (e *EC2) ListActionTagged(ctx context.Context) ([]Instance, error) {
	input := &ec2.DescribeInstancesInput{
		Filters: []types.Filter{
			{Name: aws.String("tag:Action"), Values: []string{"Auto-Stop", "Auto-Start"}},
			{Name: aws.String("instance-state-name"), Values: []string{"running", "stopped", "stopping", "pending"}},
		},
	}

	var out []Instance
	paginator := ec2.NewDescribeInstancesPaginator(e.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("describe instances", err)
		}
		for _, reservation := range page.Reservations {
			for _, inst := range reservation.Instances {
				in := Instance{
					ID:    aws.ToString(inst.InstanceId),
					State: string(inst.State.Name),
				}
				for _, tag := range inst.Tags {
					if aws.ToString(tag.Key) == "Action" {
						in.Action = aws.ToString(tag.Value)
						break
					}
				}
				out = append(out, in)
			}
		}
	}
	return out, nil
}

func (e *EC2) StopInstances(ctx context.Context, ids []string) ([]StateChange, error) {
	resp, err := e.client.StopInstances(ctx, &ec2.StopInstancesInput{InstanceIds: ids})
	if err != nil {
		return nil, classify("stop instances", err)
	}
	changes := make([]StateChange, 0, len(resp.StoppingInstances))
	for _, c := range resp.StoppingInstances {
		changes = append(changes, StateChange{
			ID:           aws.ToString(c.InstanceId),
			CurrentState: string(c.CurrentState.Name),
		})
	}
	return changes, nil
}

func (e *EC2) StartInstances(ctx context.Context, ids []string) ([]StateChange, error) {
	resp, err := e.client.StartInstances(ctx, &ec2.StartInstancesInput{InstanceIds: ids})
	if err != nil {
		return nil, classify("start instances", err)
	}
	changes := make([]StateChange, 0, len(resp.StartingInstances))
	for _, c := range resp.StartingInstances {
		changes = append(changes, StateChange{
			ID:           aws.ToString(c.InstanceId),
			CurrentState: string(c.CurrentState.Name),
		})
	}
	return changes, nil
}

func (e *EC2) DescribeVolume(ctx context.Context, id string) (Volume, error) {
	resp, err := e.client.DescribeVolumes(ctx, &ec2.DescribeVolumesInput{VolumeIds: []string{id}})
	if err != nil {
		return Volume{}, classify("describe volume", err)
	}
	if len(resp.Volumes) == 0 {
		return Volume{}, &Error{Kind: KindNotFound, Op: "describe volume", err: fmt.Errorf("volume %s not found", id)}
	}

	v := resp.Volumes[0]
	vol := Volume{
		ID:               aws.ToString(v.VolumeId),
		Size:             aws.ToInt32(v.Size),
		Type:             string(v.VolumeType),
		AvailabilityZone: aws.ToString(v.AvailabilityZone),
		InstanceID:       "unattached",
		Device:           "N/A",
	}
	if len(v.Attachments) > 0 {
		vol.InstanceID = aws.ToString(v.Attachments[0].InstanceId)
		vol.Device = aws.ToString(v.Attachments[0].Device)
	}
	return vol, nil
}

func (e *EC2) CreateSnapshot(ctx context.Context, volumeID, description string) (Snapshot, error) {
	resp, err := e.client.CreateSnapshot(ctx, &ec2.CreateSnapshotInput{
		VolumeId:    aws.String(volumeID),
		Description: aws.String(description),
	})
	if err != nil {
		return Snapshot{}, classify("create snapshot", err)
	}
	return Snapshot{
		ID:        aws.ToString(resp.SnapshotId),
		State:     string(resp.State),
		StartTime: aws.ToTime(resp.StartTime),
	}, nil
}

func (e *EC2) TagSnapshot(ctx context.Context, snapshotID string, tags map[string]string) error {
	ec2Tags := make([]types.Tag, 0, len(tags))
	for k, v := range tags {
		ec2Tags = append(ec2Tags, types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	_, err := e.client.CreateTags(ctx, &ec2.CreateTagsInput{
		Resources: []string{snapshotID},
		Tags:      ec2Tags,
	})
	return classify("tag snapshot", err)
}

func (e *EC2) DeleteSnapshot(ctx context.Context, id string) error {
	_, err := e.client.DeleteSnapshot(ctx, &ec2.DeleteSnapshotInput{SnapshotId: aws.String(id)})
	return classify("delete snapshot", err)
}

// SnapshotMeta is the listing detail the snapshot report needs beyond what the
// sweeper tracks.
type SnapshotMeta struct {
	VolumeID    string
	Description string
	StartTime   time.Time
	VolumeSize  int32
}

// SnapshotLister is a snapshot listing that also retains per-snapshot
// metadata for reporting.
type SnapshotLister interface {
	sweep.Source
	Meta(id string) (SnapshotMeta, bool)
}

// SnapshotSource walks the account's own snapshots page by page, feeding the
// sweeper while remembering per-snapshot metadata for reporting.
type SnapshotSource struct {
	paginator *ec2.DescribeSnapshotsPaginator
	buf       []sweep.Record
	meta      map[string]SnapshotMeta
}

func (e *EC2) OwnedSnapshots() SnapshotLister {
	return &SnapshotSource{
		paginator: ec2.NewDescribeSnapshotsPaginator(e.client, &ec2.DescribeSnapshotsInput{
			OwnerIds: []string{"self"},
		}),
		meta: make(map[string]SnapshotMeta),
	}
}

func (s *SnapshotSource) Next(ctx context.Context) (sweep.Record, bool, error) {
	for len(s.buf) == 0 {
		if !s.paginator.HasMorePages() {
			return sweep.Record{}, false, nil
		}
		page, err := s.paginator.NextPage(ctx)
		if err != nil {
			return sweep.Record{}, false, classify("describe snapshots", err)
		}
		for _, snap := range page.Snapshots {
			id := aws.ToString(snap.SnapshotId)
			desc := aws.ToString(snap.Description)
			s.meta[id] = SnapshotMeta{
				VolumeID:    aws.ToString(snap.VolumeId),
				Description: desc,
				StartTime:   aws.ToTime(snap.StartTime),
				VolumeSize:  aws.ToInt32(snap.VolumeSize),
			}
			s.buf = append(s.buf, sweep.Record{
				ID:        id,
				CreatedAt: aws.ToTime(snap.StartTime),
				Size:      int64(aws.ToInt32(snap.VolumeSize)),
				Label:     desc,
			})
		}
	}

	rec := s.buf[0]
	s.buf = s.buf[1:]
	return rec, true, nil
}

func (s *SnapshotSource) Meta(id string) (SnapshotMeta, bool) {
	m, ok := s.meta[id]
	return m, ok
}
