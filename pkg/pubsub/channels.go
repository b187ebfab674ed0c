package pubsub

import (
	"encoding/json"
	"fmt"
)

// Channel naming conventions for the chat gateways.
const (
	// Committed chat messages fanned out between gateway instances.
	ChannelRoomToGateway = "chat:room:%s:to_gateway"

	// Pattern matching every room's gateway channel.
	PatternRoomToGateway = "chat:room:*:to_gateway"
)

// Event types carried on the gateway channels.
const (
	EventChatMessage = "chat_message"
)

// RoomToGatewayChannel returns the channel name for a room's committed messages.
func RoomToGatewayChannel(roomID string) string {
	return fmt.Sprintf(ChannelRoomToGateway, roomID)
}

// ChatMessagePayload is published after a message is durably appended.
// Origin identifies the gateway instance that accepted the message so it
// can skip its own echo.
type ChatMessagePayload struct {
	Origin       string          `json:"origin"`
	ConnectionID string          `json:"connection_id"`
	Message      json.RawMessage `json:"message"`
}
