package handlers

const (
	ErrNotFound            = "Not found."
	ErrMalformedJSON       = "JSON parse error."
	ErrUnauthorized        = "Authentication credentials were not provided."
	ErrInvalidPage         = "Invalid page."
	ErrTooManyRequests     = "Request was throttled. Please try again later."
	ErrInternalServerError = "Internal server error"

	chatImageDir    = "chat_images"
	expenseImageDir = "expenses"
)
