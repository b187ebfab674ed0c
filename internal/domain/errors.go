package domain

import "errors"

var (
	// ErrRoomNotFound means no chat log is reachable from the room id.
	ErrRoomNotFound = errors.New("chat log not found for room")
	// ErrStoreUnavailable wraps any failure of the underlying store.
	ErrStoreUnavailable = errors.New("chat store unavailable")
	// ErrMalformedPayload is returned for send payloads that fail validation.
	ErrMalformedPayload = errors.New("malformed chat payload")
)

// ErrorCode maps a chat error to the code sent to websocket clients.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrMalformedPayload):
		return ErrCodeBadRequest
	case errors.Is(err, ErrRoomNotFound):
		return ErrCodeRoomNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return ErrCodeStoreUnavailable
	default:
		return ErrCodeInternalError
	}
}
