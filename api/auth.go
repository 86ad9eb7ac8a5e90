package api

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

const (
	sessionCookieName = "session"

	defaultJWKSCacheTTL = 15 * time.Minute
	confirmTokenTTL     = 48 * time.Hour
	confirmPurpose      = "confirm-email"
)

var (
	errNotAuthenticated = errors.New("not authenticated")
	errBadAuthorization = errors.New("bad auth header")
)

// Auth issues HS256 session and confirmation tokens and validates incoming
// credentials. When a JWKS is configured it additionally accepts RS256
// bearer tokens from an external identity provider on the Authorization
// header.
type Auth struct {
	secret     []byte
	sessionTTL time.Duration

	jwks     *keyfunc.JWKS
	audience string
	issuer   string

	sessionParser *jwt.Parser
	bearerParser  *jwt.Parser
	keyCache      sync.Map
	keyCacheTTL   time.Duration
}

type cachedKey struct {
	key       any
	expiresAt time.Time
}

// NewAuth creates an Auth. secret signs local session and confirmation
// tokens; jwks may be nil when no external identity provider is configured.
func NewAuth(secret []byte, sessionTTL time.Duration, jwks *keyfunc.JWKS, audience, issuer string) *Auth {
	if len(secret) == 0 {
		panic("api.NewAuth: session secret is required")
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &Auth{
		secret:        secret,
		sessionTTL:    sessionTTL,
		jwks:          jwks,
		audience:      audience,
		issuer:        issuer,
		sessionParser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
		bearerParser:  jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
		keyCacheTTL:   defaultJWKSCacheTTL,
	}
}

// IssueSession returns a signed session token for the user.
func (a *Auth) IssueSession(userID, email string) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(a.sessionTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"iat":   now.Unix(),
		"exp":   expires.Unix(),
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// IssueConfirmToken returns a signed email-confirmation token.
func (a *Auth) IssueConfirmToken(email string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     email,
		"purpose": confirmPurpose,
		"iat":     now.Unix(),
		"exp":     now.Add(confirmTokenTTL).Unix(),
	})
	return token.SignedString(a.secret)
}

// VerifyConfirmToken validates a confirmation token and returns the email it
// was issued for.
func (a *Auth) VerifyConfirmToken(token string) (string, error) {
	claims, err := a.parseLocal(token)
	if err != nil {
		return "", err
	}
	if purpose, _ := claims["purpose"].(string); purpose != confirmPurpose {
		return "", errors.New("wrong token purpose")
	}
	email, ok := claims["sub"].(string)
	if !ok || email == "" {
		return "", errors.New("missing sub")
	}
	return email, nil
}

// IdentityFromRequest resolves the caller from the session cookie, falling
// back to the Authorization header.
func (a *Auth) IdentityFromRequest(r *http.Request) (Identity, error) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return a.identityFromSession(cookie.Value)
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return Identity{}, errNotAuthenticated
	}
	token, err := bearerToken(header)
	if err != nil {
		return Identity{}, err
	}
	if a.jwks != nil {
		return a.identityFromBearer(token)
	}
	return a.identityFromSession(token)
}

func (a *Auth) identityFromSession(token string) (Identity, error) {
	claims, err := a.parseLocal(token)
	if err != nil {
		return Identity{}, err
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return Identity{}, errors.New("missing sub")
	}
	email, _ := claims["email"].(string)
	return Identity{UserID: sub, Email: email}, nil
}

func (a *Auth) parseLocal(token string) (jwt.MapClaims, error) {
	parsed, err := a.sessionParser.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	if !claims.VerifyExpiresAt(time.Now().Unix(), true) {
		return nil, errors.New("token expired")
	}
	return claims, nil
}

// identityFromBearer validates an external identity provider token. Claim
// checks allow one minute of clock skew, the way upstream tokens are issued.
func (a *Auth) identityFromBearer(token string) (Identity, error) {
	parsed, err := a.bearerParser.Parse(token, func(t *jwt.Token) (any, error) {
		return a.keyForToken(t)
	})
	if err != nil {
		return Identity{}, err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, errors.New("invalid claims")
	}

	now := time.Now().Add(time.Minute).Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return Identity{}, errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return Identity{}, errors.New("token not valid yet")
	}
	if !claims.VerifyIssuedAt(now, false) {
		return Identity{}, errors.New("token used before issued")
	}
	if a.audience != "" && !claims.VerifyAudience(a.audience, false) {
		return Identity{}, errors.New("invalid audience")
	}
	if a.issuer != "" && !claims.VerifyIssuer(a.issuer, false) {
		return Identity{}, errors.New("invalid issuer")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return Identity{}, errors.New("missing sub")
	}
	email, _ := claims["email"].(string)
	return Identity{UserID: sub, Email: email}, nil
}

func (a *Auth) keyForToken(token *jwt.Token) (any, error) {
	if a.jwks == nil {
		return nil, errors.New("jwks not configured")
	}

	kid, _ := token.Header["kid"].(string)
	if kid != "" && a.keyCacheTTL > 0 {
		if cached, ok := a.keyCache.Load(kid); ok {
			entry := cached.(cachedKey)
			if time.Now().Before(entry.expiresAt) {
				return entry.key, nil
			}
			a.keyCache.Delete(kid)
		}
	}

	key, err := a.jwks.Keyfunc(token)
	if err != nil {
		return nil, err
	}

	if kid != "" && a.keyCacheTTL > 0 {
		a.keyCache.Store(kid, cachedKey{key: key, expiresAt: time.Now().Add(a.keyCacheTTL)})
	}
	return key, nil
}

func bearerToken(header string) (string, error) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errBadAuthorization
	}
	token := strings.TrimSpace(parts[1])
	if strings.Count(token, ".") != 2 {
		return "", errBadAuthorization
	}
	return token, nil
}
