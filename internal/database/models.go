package database

// Document keys for the local collections
const (
	KeyLogEntries = "laptop_log_entries"
	KeyEmployees  = "employees_database"
	KeyAuthTokens = "auth_tokens"
)
