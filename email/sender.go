// Package email dispatches outgoing mail with attachments.
package email

import "context"

type Attachment struct {
	FileName    string
	ContentType string
	Content     []byte
}

type Message struct {
	To          string
	Subject     string
	TextBody    string
	HTMLBody    string
	Attachments []Attachment
}

// Sender delivers a single message. Implementations must not retry on their own.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
