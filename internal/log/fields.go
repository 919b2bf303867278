package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldUsername  = "username"
	FieldAccountID = "account_id"
	FieldTopicID   = "topic_id"
	FieldTxID      = "transaction_id"
	FieldAmount    = "amount"
	FieldEndpoint  = "endpoint"
	FieldErrorCode = "error_code"
	FieldDuration  = "duration_ms"
	FieldCount     = "count"
)

// Components defines standard component names
const (
	ComponentApp          = "app"
	ComponentAPI          = "api"
	ComponentSession      = "session"
	ComponentAccounts     = "accounts"
	ComponentTopics       = "topics"
	ComponentTransactions = "transactions"
	ComponentDashboard    = "dashboard"
	ComponentStorage      = "storage"
	ComponentExport       = "export"
)

// Operations defines standard operation names
const (
	OpLogin    = "login"
	OpRegister = "register"
	OpLogout   = "logout"
	OpRestore  = "restore"
	OpRefresh  = "refresh"
	OpCreate   = "create"
	OpUpdate   = "update"
	OpCancel   = "cancel"
	OpReport   = "report"
	OpExport   = "export"
)
