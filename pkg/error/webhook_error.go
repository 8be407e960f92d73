package error

// WebhookError is returned when an admin notification webhook cannot be delivered
func WebhookError(message string) WebhookErrorType {
	return WebhookErrorType(message)
}

type WebhookErrorType string

func (e WebhookErrorType) Error() string {
	return string(e)
}

func (e WebhookErrorType) ErrCode() string {
	return "WEBHOOK_ERROR"
}

func (e WebhookErrorType) StatusCode() int {
	return 502
}
