package api

import (
	"context"
	"net/http"
	"time"

	"taskboard-api/domain"
)

// Storage abstracts persistence for handlers.
type Storage interface {
	ListTasks(ctx context.Context, ownerID string) ([]domain.Task, error)
	GetTask(ctx context.Context, ownerID, taskID string) (domain.Task, error)
	InsertTask(ctx context.Context, ownerID string, task domain.Task) error
	UpdateTask(ctx context.Context, ownerID, taskID string, upd domain.TaskUpdate) error
	DeleteTask(ctx context.Context, ownerID, taskID string) error
	GetUser(ctx context.Context, email string) (domain.User, error)
	InsertUser(ctx context.Context, user domain.User) error
	ConfirmUser(ctx context.Context, email string) error
	EnqueueMail(ctx context.Context, msg domain.MailMessage) error
}

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID string
	Email  string
}

// Authenticator resolves the requesting user from a session cookie or a
// bearer token.
type Authenticator interface {
	IdentityFromRequest(r *http.Request) (Identity, error)
}

// Sessions issues and validates the credentials the auth handlers hand out.
type Sessions interface {
	IssueSession(userID, email string) (token string, expires time.Time, err error)
	IssueConfirmToken(email string) (string, error)
	VerifyConfirmToken(token string) (email string, err error)
}

// Config carries feature toggles for route registration.
type Config struct {
	// RequireConfirmation gates login on a confirmed email address and makes
	// registration enqueue a confirmation mail.
	RequireConfirmation bool
	// ConfirmBaseURL is the public confirmation endpoint embedded in
	// confirmation mails.
	ConfirmBaseURL string
}
