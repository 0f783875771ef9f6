package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafka_config "examseat/pkg/kafka/config"
)

func TestMessageBuilder(t *testing.T) {
	msg, ok := NewMessage().
		WithKey("42").
		WithValue(map[string]any{"group_id": 42}).
		WithEventType("reservation.created").
		WithSource("reservations").
		Build()

	require.True(t, ok)
	assert.Equal(t, "42", msg.Key)
	assert.JSONEq(t, `{"group_id":42}`, string(msg.Value))
	assert.Equal(t, "reservation.created", msg.Headers[HeaderEventType])
	assert.Equal(t, "reservations", msg.Headers[HeaderSource])
	assert.NotEmpty(t, msg.Headers[HeaderEventID], "event id should be generated when not provided")
	assert.NotEmpty(t, msg.Headers[HeaderTimestamp])
}

func TestMessageBuilder_ExplicitEventID(t *testing.T) {
	msg, ok := NewMessage().
		WithKey("42").
		WithValue("payload").
		WithEventID("evt-123").
		Build()

	require.True(t, ok)
	assert.Equal(t, "evt-123", msg.Headers[HeaderEventID])
}

func TestMessageBuilder_EncodeFailure(t *testing.T) {
	_, ok := NewMessage().
		WithKey("42").
		WithValue(func() {}).
		Build()

	assert.False(t, ok, "unencodable payloads must not build")
}

func TestNewProducer(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *kafka_config.Config
		topic   string
		wantErr bool
	}{
		{name: "valid", cfg: kafka_config.Default([]string{"localhost:9092"}), topic: "events", wantErr: false},
		{name: "nil config", cfg: nil, topic: "events", wantErr: true},
		{name: "no brokers", cfg: kafka_config.Default(nil), topic: "events", wantErr: true},
		{name: "empty topic", cfg: kafka_config.Default([]string{"localhost:9092"}), topic: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProducer(tt.cfg, tt.topic)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, p.Close())
		})
	}
}
