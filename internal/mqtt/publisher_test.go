package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmakinen/recwatch/internal/detection"
	"github.com/tmakinen/recwatch/internal/session"
)

// fakeClient records published messages.
type fakeClient struct {
	mu       sync.Mutex
	messages map[string][]string
}

func newFakeClient() *fakeClient {
	return &fakeClient{messages: make(map[string][]string)}
}

func (f *fakeClient) Connect(ctx context.Context) error { return nil }
func (f *fakeClient) IsConnected() bool                 { return true }
func (f *fakeClient) Disconnect()                       {}

func (f *fakeClient) Publish(_ context.Context, topic, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[topic] = append(f.messages[topic], payload)
	return nil
}

func (f *fakeClient) published(topic string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages[topic]...)
}

func TestPublisherDetectionPayload(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	pub := NewPublisher(client, "recwatch/events/", "studio-1")

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pub.OnDetection(&detection.Event{
		ID:            "abc-123",
		Source:        detection.SourceAudio,
		Kind:          detection.KindPeak,
		MeasuredValue: 0.73,
		Timestamp:     ts,
	})

	msgs := client.published("recwatch/events/detection")
	require.Len(t, msgs, 1)

	var dto DetectionDTO
	require.NoError(t, json.Unmarshal([]byte(msgs[0]), &dto))
	assert.Equal(t, "abc-123", dto.ID)
	assert.Equal(t, "audio", dto.Source)
	assert.Equal(t, "PEAK", dto.Kind)
	assert.InDelta(t, 0.73, dto.MeasuredValue, 0.0001)
	assert.Equal(t, "2025-06-01T12:00:00Z", dto.Timestamp)
	assert.Equal(t, "studio-1", dto.Node)
}

func TestPublisherRecordingPayload(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	pub := NewPublisher(client, "recwatch/events", "studio-1")

	pub.OnSessionChange(session.StateRecording, "audio:PEAK")
	pub.OnSessionChange(session.StateIdle, "auto-stop")

	msgs := client.published("recwatch/events/recording")
	require.Len(t, msgs, 2)

	var first, second RecordingDTO
	require.NoError(t, json.Unmarshal([]byte(msgs[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(msgs[1]), &second))
	assert.Equal(t, string(session.StateRecording), first.State)
	assert.Equal(t, "audio:PEAK", first.Trigger)
	assert.Equal(t, string(session.StateIdle), second.State)
	assert.Equal(t, "auto-stop", second.Trigger)
}
