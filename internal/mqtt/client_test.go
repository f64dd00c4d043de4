package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tmakinen/recwatch/internal/conf"
)

func newTestSettings() *conf.Settings {
	settings := &conf.Settings{}
	settings.Main.Name = "test-node"
	settings.Realtime.MQTT.Broker = "tcp://localhost:1883"
	settings.Realtime.MQTT.Topic = "recwatch/events"
	return settings
}

func TestNewClientConfig(t *testing.T) {
	t.Parallel()

	c := NewClient(newTestSettings(), nil).(*client)
	assert.Equal(t, "tcp://localhost:1883", c.config.Broker)
	assert.Equal(t, "test-node", c.config.ClientID)
	assert.Equal(t, "recwatch/events", c.config.Topic)
}

func TestClientDisconnectIdempotent(t *testing.T) {
	t.Parallel()

	c := NewClient(newTestSettings(), nil)

	// Repeated teardown paths, deferred and signal-driven, may each call
	// Disconnect on a client that never connected.
	assert.NotPanics(t, func() {
		c.Disconnect()
		c.Disconnect()
	})
}
