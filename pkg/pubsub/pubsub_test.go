package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelToTopicAndKey(t *testing.T) {
	topic, key, err := channelToTopicAndKey(RoomToGatewayChannel("42"))
	require.NoError(t, err)
	assert.Equal(t, "chat-to-gateway", topic)
	assert.Equal(t, "42", key)

	topic, key, err = channelToTopicAndKey(RoomToGatewayChannel("watch:7"))
	require.NoError(t, err)
	assert.Equal(t, "chat-to-gateway", topic)
	assert.Equal(t, "watch:7", key)

	_, _, err = channelToTopicAndKey("chat:42")
	assert.Error(t, err)
	_, _, err = channelToTopicAndKey("chat:lobby:42:to_gateway")
	assert.Error(t, err)
}

func TestPatternToTopic(t *testing.T) {
	topic, err := patternToTopic(PatternRoomToGateway)
	require.NoError(t, err)
	assert.Equal(t, "chat-to-gateway", topic)
}

func TestSanitizeGroupID(t *testing.T) {
	assert.Equal(t, "chat-gateway-a1b2", sanitizeGroupID("chat-gateway:a1b2"))
	assert.Equal(t, "chat-gateway-gw.1_a", sanitizeGroupID("chat-gateway-gw.1_a"))
}

func TestNewEventRoundTrip(t *testing.T) {
	ev, err := NewEvent(EventChatMessage, "42", ChatMessagePayload{Origin: "gw-1", ConnectionID: "c1", Message: []byte(`{"id":"01A"}`)})
	require.NoError(t, err)
	assert.Equal(t, "42", ev.RoomID)
	assert.Equal(t, "UTC", ev.Timestamp.Location().String())

	var p ChatMessagePayload
	require.NoError(t, ev.UnmarshalPayload(&p))
	assert.Equal(t, "gw-1", p.Origin)
	assert.JSONEq(t, `{"id":"01A"}`, string(p.Message))
}

func TestNewPubSub_RejectsNone(t *testing.T) {
	_, err := NewPubSub(Config{Driver: DriverNone})
	assert.Error(t, err)
}

func TestDecodeKafkaEvent(t *testing.T) {
	ev, err := NewEvent(EventChatMessage, "42", ChatMessagePayload{Origin: "gw-1"})
	require.NoError(t, err)
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	got, err := decodeKafkaEvent(&kafka.Message{Key: []byte("42"), Value: data})
	require.NoError(t, err)
	assert.Equal(t, EventChatMessage, got.Type)
	assert.Equal(t, "42", got.RoomID)

	got, err = decodeKafkaEvent(&kafka.Message{Key: []byte("7"), Value: []byte(`{"type":"chat_message"}`)})
	require.NoError(t, err)
	assert.Equal(t, "7", got.RoomID)

	_, err = decodeKafkaEvent(&kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)
}

func TestForwardRedis(t *testing.T) {
	in := make(chan *redis.Message, 3)
	events := make(chan *Event)
	go forwardRedis(context.Background(), in, events)

	ev, err := NewEvent(EventChatMessage, "g1", ChatMessagePayload{Origin: "gw-1"})
	require.NoError(t, err)
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	in <- &redis.Message{Channel: RoomToGatewayChannel("g1"), Payload: "garbage"}
	in <- &redis.Message{Channel: RoomToGatewayChannel("g1"), Payload: string(data)}
	in <- &redis.Message{Channel: RoomToGatewayChannel("g2"), Payload: string(data)}
	close(in)

	// The unbuffered out channel holds back the second event until read.
	for i := 0; i < 2; i++ {
		select {
		case got, ok := <-events:
			require.True(t, ok)
			assert.Equal(t, "g1", got.RoomID)
		case <-time.After(time.Second):
			t.Fatal("event not forwarded")
		}
	}
	_, ok := <-events
	assert.False(t, ok)
}

func TestForwardRedis_StopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan *Event)
	done := make(chan struct{})
	go func() {
		forwardRedis(ctx, make(chan *redis.Message), events)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forwarder did not stop")
	}
	_, ok := <-events
	assert.False(t, ok)
}
