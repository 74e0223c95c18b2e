package mailer

// DeliveryJob is the JSON payload put on the RabbitMQ queue when an account
// flow needs an email. The worker issues a fresh token for every job; a
// redelivered job therefore produces a new token, never a resend of an old one.
type DeliveryJob struct {
	UserID    string `json:"user_id"`
	Purpose   string `json:"purpose"` // entity.TokenPurpose value
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}
