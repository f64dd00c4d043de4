package mqtt

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tmakinen/recwatch/internal/detection"
	"github.com/tmakinen/recwatch/internal/session"
)

// Publisher serializes detection and recording events and publishes them
// under the configured topic prefix. It is wired into the dispatcher and
// the session as a callback, so publishes happen on those goroutines;
// failures are logged and never propagate back into the pipeline.
type Publisher struct {
	client Client
	prefix string
	node   string
}

// NewPublisher wraps a connected client. Topic layout is
// <prefix>/detection and <prefix>/recording.
func NewPublisher(client Client, topicPrefix, node string) *Publisher {
	return &Publisher{
		client: client,
		prefix: strings.TrimSuffix(topicPrefix, "/"),
		node:   node,
	}
}

// OnDetection implements detection.Callback.
func (p *Publisher) OnDetection(event *detection.Event) {
	p.publish(p.prefix+"/detection", NewDetectionDTO(event, p.node))
}

// OnSessionChange implements session.Listener.
func (p *Publisher) OnSessionChange(state session.State, trigger string) {
	p.publish(p.prefix+"/recording", NewRecordingDTO(state, trigger, p.node))
}

func (p *Publisher) publish(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		mqttLogger.Error("failed to marshal payload", "topic", topic, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultConfig().PublishTimeout)
	defer cancel()

	if err := p.client.Publish(ctx, topic, string(data)); err != nil {
		mqttLogger.Error("failed to publish", "topic", topic, "error", err)
	}
}
