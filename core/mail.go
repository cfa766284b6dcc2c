package core

import "net/mail"

type EmailMessage struct {
	To      []mail.Address
	Subject string
	Body    string // text/plain content
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return m.Body != "" }

// EmailService is any service that can send emails.
type EmailService interface {
	// SendMessages sends messages concurrently.
	SendMessages(messages ...*EmailMessage)
}
