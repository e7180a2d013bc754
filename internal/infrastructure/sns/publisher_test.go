package sns

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/go-anon-inbox/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, in)
	return &sns.PublishOutput{}, f.err
}

func TestPublish_SendsEventWithoutContent(t *testing.T) {
	fake := &fakeSNS{}
	p := NewPublisher(fake, "arn:aws:sns:us-east-1:000000000000:inbox-events")
	ev := domain.InboxEvent{
		Type:       domain.EventMessageReceived,
		Handle:     "alice",
		MessageID:  "01J0MSG",
		OccurredAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	require.NoError(t, p.Publish(context.Background(), ev))
	require.Len(t, fake.inputs, 1)
	in := fake.inputs[0]
	assert.Equal(t, "arn:aws:sns:us-east-1:000000000000:inbox-events", aws.ToString(in.TopicArn))
	assert.Equal(t, domain.EventMessageReceived, aws.ToString(in.MessageAttributes["event_type"].StringValue))

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.Message)), &body))
	assert.Equal(t, "alice", body["handle"])
	assert.Equal(t, "01J0MSG", body["message_id"])
	assert.NotContains(t, body, "content")
}

func TestPublish_WrapsError(t *testing.T) {
	p := NewPublisher(&fakeSNS{err: errors.New("throttled")}, "arn")
	err := p.Publish(context.Background(), domain.InboxEvent{Type: domain.EventMessageReceived})
	assert.ErrorContains(t, err, "sns publish: throttled")
}
