package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Chat
	FieldRoomID       = "room_id"
	FieldConnectionID = "connection_id"
	FieldMessageID    = "message_id"
	FieldSender       = "sender"
	FieldEvent        = "event"

	// Service
	FieldService  = "service"
	FieldInstance = "instance_id"

	// gRPC
	FieldGRPCMethod = "grpc_method"
	FieldGRPCCode   = "grpc_code"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
