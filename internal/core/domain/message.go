package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxMessageBodyLength = 4000

// Message validation errors.
var (
	ErrMessageBodyRequired = errors.New("message body is required")
	ErrMessageBodyTooLong  = errors.New("message body exceeds maximum length")
)

// Attachment is a reference to an uploaded file. Upload handling itself is
// owned by the surrounding application; only the reference travels here.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// DisputeMessage is the canonical, store-confirmed form of a message.
// The store assigns ID and CreatedAt; a relay never constructs one from a
// client's optimistic copy.
type DisputeMessage struct {
	ID                uuid.UUID    `json:"id"`
	DisputeID         int64        `json:"disputeId"`
	SenderID          uuid.UUID    `json:"senderId"`
	SenderRole        Role         `json:"senderRole"`
	SenderDisplayName string       `json:"senderDisplayName"`
	Body              string       `json:"body"`
	Attachments       []Attachment `json:"attachments,omitempty"`
	CreatedAt         time.Time    `json:"createdAt"`
}

// ValidateMessageBody checks a client-submitted body before it is offered to
// the store.
func ValidateMessageBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return ErrMessageBodyRequired
	}
	if len(body) > maxMessageBodyLength {
		return ErrMessageBodyTooLong
	}
	return nil
}
