package dynamo

// DynamoDB attribute names used in key, condition and update expressions.
const (
	fieldHandle              = "handle"
	fieldEmail               = "email"
	fieldVerificationCode    = "verification_code"
	fieldVerificationExpiry  = "verification_code_expiry"
	fieldIsVerified          = "is_verified"
	fieldIsAcceptingMessages = "is_accepting_messages"
	fieldMessages            = "messages"
	fieldMessageID           = "message_id"
	fieldUpdatedAt           = "updated_at"
)
