package services

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nextlinkuae/site-backend/errs"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminSubject      = "admin"
	sessionIssuer     = "site-backend"
	DefaultSessionTTL = 12 * time.Hour
)

// AdminSession is the verified identity behind an admin request. It is
// created once per request by the auth middleware and passed down in the
// request context.
type AdminSession struct {
	Subject   string    `json:"subject"`
	TokenID   string    `json:"token_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type adminClaims struct {
	jwt.RegisteredClaims
}

// AdminAuth checks the admin password and issues HS256 session tokens.
type AdminAuth struct {
	passwordHash  []byte
	plainPassword []byte
	secret        []byte
	ttl           time.Duration
	now           func() time.Time
}

// NewAdminAuth prefers a bcrypt hash over a plain password. With neither
// configured every login fails. An empty secret gets a random one, so
// sessions do not survive a restart.
func NewAdminAuth(passwordHash, plainPassword, secret string, ttl time.Duration) (*AdminAuth, error) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		log.Warn().Msg("SESSION_SECRET not set, admin sessions will not survive a restart")
	}

	if passwordHash != "" {
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, fmt.Errorf("ADMIN_PASSWORD_HASH is not a bcrypt hash: %w", err)
		}
	}

	return &AdminAuth{
		passwordHash:  []byte(passwordHash),
		plainPassword: []byte(plainPassword),
		secret:        key,
		ttl:           ttl,
		now:           time.Now,
	}, nil
}

// Login exchanges the admin password for a signed session token.
func (a *AdminAuth) Login(password string) (string, AdminSession, error) {
	if !a.passwordMatches(password) {
		return "", AdminSession{}, errs.NewUnauthorizedError("invalid credentials")
	}

	now := a.now().Truncate(time.Second)
	session := AdminSession{
		Subject:   adminSubject,
		TokenID:   uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: now.Add(a.ttl),
	}
	claims := adminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   session.Subject,
			ID:        session.TokenID,
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", AdminSession{}, errs.NewInternalErrorWithCause("failed to sign session", err)
	}
	return token, session, nil
}

// Verify parses a session token and returns the session it carries.
func (a *AdminAuth) Verify(token string) (AdminSession, error) {
	if token == "" {
		return AdminSession{}, errs.NewMissingTokenError()
	}

	var claims adminClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithSubject(adminSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			log.Debug().Msg("expired admin session presented")
		}
		return AdminSession{}, errs.NewInvalidTokenError()
	}

	return AdminSession{
		Subject:   claims.Subject,
		TokenID:   claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (a *AdminAuth) passwordMatches(password string) bool {
	if password == "" {
		return false
	}
	if len(a.passwordHash) > 0 {
		return bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) == nil
	}
	if len(a.plainPassword) > 0 {
		return subtle.ConstantTimeCompare(a.plainPassword, []byte(password)) == 1
	}
	return false
}
