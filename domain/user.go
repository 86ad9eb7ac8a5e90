package domain

import "time"

// User is a registered account. The password hash is an argon2id encoded
// hash and never leaves the service.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Confirmed    bool      `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// MailMessage is the payload enqueued to the mail queue for delivery by a
// downstream sender.
type MailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
