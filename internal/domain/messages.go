package domain

// WebSocket message types from client.
const (
	MsgTypeJoinRoom    = "join_room"
	MsgTypeSendMessage = "send_message"
	MsgTypeLeaveRoom   = "leave_room"
	MsgTypePing        = "ping"
)

// WebSocket message types to client.
const (
	MsgTypeMessageHistory = "message_history"
	MsgTypeReceiveMessage = "receive_message"
	MsgTypeError          = "error"
	MsgTypePong           = "pong"
)

// Error codes
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeRoomNotFound     = "ROOM_NOT_FOUND"
	ErrCodeStoreUnavailable = "STORE_UNAVAILABLE"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// BaseMessage is the base structure for all WebSocket messages.
type BaseMessage struct {
	Type string `json:"type"`
}

// Client -> Server messages

type JoinRoomMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

type SendMessageWS struct {
	Type string `json:"type"`
	SendPayload
}

type LeaveRoomMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

// Server -> Client messages

type MessageHistoryMessage struct {
	Type     string        `json:"type"`
	RoomID   string        `json:"room_id"`
	Messages []ChatMessage `json:"messages"`
}

type ReceiveMessage struct {
	Type    string       `json:"type"`
	Message *ChatMessage `json:"message"`
}

type PongMessage struct {
	Type string `json:"type"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}

// NewMessageHistory never emits a null messages field.
func NewMessageHistory(roomID string, msgs []ChatMessage) *MessageHistoryMessage {
	if msgs == nil {
		msgs = []ChatMessage{}
	}
	return &MessageHistoryMessage{
		Type:     MsgTypeMessageHistory,
		RoomID:   roomID,
		Messages: msgs,
	}
}

func NewReceiveMessage(msg *ChatMessage) *ReceiveMessage {
	return &ReceiveMessage{
		Type:    MsgTypeReceiveMessage,
		Message: msg,
	}
}
