// Package log centralizes structured-logging field and component names so
// log lines stay greppable across the server and the sync worker.
package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldYear        = "year"
	FieldMonth       = "month"
	FieldOrderID     = "order_id"
	FieldShopID      = "shop_id"
	FieldVarietyID   = "variety_id"
	FieldAmount      = "amount"
	FieldQuantity    = "quantity"
	FieldSheetsRef   = "sheets_ref"
	FieldSyncVersion = "sync_version"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentOrder   = "order"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentCache   = "cache"
	ComponentBackend = "backend"
)
