package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
	"taskboard-api/storage"
)

const minPasswordLength = 6

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func postRegister(store Storage, sessions Sessions, cfg Config, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var req credentialsRequest
		if err := decodeBody(c, &req); err != nil {
			return jsonError(c, http.StatusBadRequest, "invalid body")
		}
		email := strings.ToLower(strings.TrimSpace(req.Email))
		if email == "" || req.Password == "" {
			return jsonError(c, http.StatusBadRequest, "email and password are required")
		}
		if len(req.Password) < minPasswordLength {
			return jsonError(c, http.StatusBadRequest, "password must be at least 6 characters")
		}

		hash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
		if err != nil {
			return internalError(c, logger, "hash password", err)
		}

		user := domain.User{
			ID:           uuid.NewString(),
			Email:        email,
			PasswordHash: hash,
			Confirmed:    !cfg.RequireConfirmation,
			CreatedAt:    time.Now().UTC(),
		}
		if err := store.InsertUser(ctx, user); err != nil {
			if errors.Is(err, storage.ErrExists) {
				return jsonError(c, http.StatusBadRequest, "email is already registered")
			}
			return internalError(c, logger, "create user", err)
		}

		payload := userPayload{ID: user.ID, Email: user.Email}

		if cfg.RequireConfirmation {
			sendConfirmationMail(sessions, cfg, logger, user.Email)
			return c.JSON(http.StatusOK, userResponse{
				Message: "registration successful, please check your email to confirm your account",
				User:    payload,
			})
		}

		token, expires, err := sessions.IssueSession(user.ID, user.Email)
		if err != nil {
			return internalError(c, logger, "issue session", err)
		}
		setSessionCookie(c, token, expires)
		return c.JSON(http.StatusOK, userResponse{Message: "registration successful", User: payload})
	}
}

// sendConfirmationMail hands the mail off to the async sender. Delivery is
// best-effort: the account is already created, so a full mail queue or a
// failed enqueue only produces a log line and the user can request the mail
// again by re-registering after expiry.
func sendConfirmationMail(sessions Sessions, cfg Config, logger *log.Logger, email string) {
	token, err := sessions.IssueConfirmToken(email)
	if err != nil {
		logger.WithFields(log.Fields{"email": email, "error": err.Error()}).Error("issue confirmation token")
		return
	}
	link := fmt.Sprintf("%s?token=%s", cfg.ConfirmBaseURL, url.QueryEscape(token))
	sendMail(domain.MailMessage{
		To:      email,
		Subject: "Confirm your account",
		Body:    "Follow this link to confirm your account: " + link,
	})
}

func postLogin(store Storage, sessions Sessions, cfg Config, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var req credentialsRequest
		if err := decodeBody(c, &req); err != nil {
			return jsonError(c, http.StatusBadRequest, "invalid body")
		}
		email := strings.ToLower(strings.TrimSpace(req.Email))
		if email == "" || req.Password == "" {
			return jsonError(c, http.StatusBadRequest, "email and password are required")
		}

		user, err := store.GetUser(ctx, email)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return jsonError(c, http.StatusUnauthorized, "invalid email or password")
			}
			return internalError(c, logger, "load user", err)
		}

		match, err := argon2id.ComparePasswordAndHash(req.Password, user.PasswordHash)
		if err != nil {
			return internalError(c, logger, "compare password", err)
		}
		if !match {
			return jsonError(c, http.StatusUnauthorized, "invalid email or password")
		}

		if cfg.RequireConfirmation && !user.Confirmed {
			return jsonError(c, http.StatusForbidden, "email not confirmed")
		}

		token, expires, err := sessions.IssueSession(user.ID, user.Email)
		if err != nil {
			return internalError(c, logger, "issue session", err)
		}
		setSessionCookie(c, token, expires)
		return c.JSON(http.StatusOK, userResponse{
			Message: "login successful",
			User:    userPayload{ID: user.ID, Email: user.Email},
		})
	}
}

func postLogout() echo.HandlerFunc {
	return func(c echo.Context) error {
		clearSessionCookie(c)
		return c.JSON(http.StatusOK, messageResponse{Message: "logout successful"})
	}
}

func getMe(auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		identity, err := auth.IdentityFromRequest(c.Request())
		if err != nil {
			return jsonError(c, http.StatusUnauthorized, "not authenticated")
		}
		return c.JSON(http.StatusOK, userResponse{
			User: userPayload{ID: identity.UserID, Email: identity.Email},
		})
	}
}

func getConfirm(store Storage, sessions Sessions, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := c.QueryParam("token")
		if token == "" {
			return jsonError(c, http.StatusBadRequest, "missing confirmation token")
		}
		email, err := sessions.VerifyConfirmToken(token)
		if err != nil {
			return jsonError(c, http.StatusBadRequest, "invalid or expired confirmation token")
		}
		if err := store.ConfirmUser(c.Request().Context(), email); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return jsonError(c, http.StatusNotFound, "user not found")
			}
			return internalError(c, logger, "confirm user", err)
		}
		return c.JSON(http.StatusOK, messageResponse{Message: "email confirmed"})
	}
}

func setSessionCookie(c echo.Context, token string, expires time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
