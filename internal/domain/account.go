package domain

import (
	"time"
)

// Account owns a public handle, its credentials, its verification state and
// the embedded inbox. The whole account is one document in the store so that
// every mutation below is a single-item update.
type Account struct {
	AccountID              string    `json:"id" dynamodbav:"account_id"`
	Handle                 string    `json:"handle" dynamodbav:"handle"`
	Email                  string    `json:"email" dynamodbav:"email"`
	PasswordHash           string    `json:"-" dynamodbav:"password_hash"`
	VerificationCode       *string   `json:"-" dynamodbav:"verification_code"`
	VerificationCodeExpiry time.Time `json:"-" dynamodbav:"verification_code_expiry,unixtime"`
	IsVerified             bool      `json:"is_verified" dynamodbav:"is_verified"`
	IsAcceptingMessages    bool      `json:"is_accepting_messages" dynamodbav:"is_accepting_messages"`
	Messages               []Message `json:"-" dynamodbav:"messages,omitempty"`
	CreatedAt              time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt              time.Time `json:"updated" dynamodbav:"updated_at"`
}

// Message is an anonymous note stored in exactly one account's inbox.
type Message struct {
	MessageID string    `json:"id" dynamodbav:"message_id"`
	Content   string    `json:"content" dynamodbav:"content"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}

// PendingCode is a freshly issued OTP and the instant it stops being valid.
type PendingCode struct {
	Code      string
	ExpiresAt time.Time
}

// NewestFirst returns a copy of the inbox ordered for display.
// Messages are stored in append order, so reversing is enough.
func (a *Account) NewestFirst() []Message {
	out := make([]Message, len(a.Messages))
	for i, m := range a.Messages {
		out[len(a.Messages)-1-i] = m
	}
	return out
}

// IndexOfMessage returns the storage position of messageID or -1.
func (a *Account) IndexOfMessage(messageID string) int {
	for i, m := range a.Messages {
		if m.MessageID == messageID {
			return i
		}
	}
	return -1
}

type CreateAccountRequest struct {
	Handle   string `json:"handle" validate:"required,handle"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type VerifyCodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// AcceptMessageRequest is checked by the inbox after the acceptance flag, so
// a closed inbox wins over bad content.
type AcceptMessageRequest struct {
	Content string `json:"content"`
}

type SetAcceptingRequest struct {
	Flag *bool `json:"flag"`
}
