package service

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionMaxAge bounds how long an issued session token is accepted.
const DefaultSessionMaxAge = 7 * 24 * time.Hour

var (
	ErrInvalidSession = errors.New("invalid session token")
	ErrSessionExpired = errors.New("session token expired")
)

// SessionClaims is what a session token carries.
type SessionClaims struct {
	UserID     int64
	IssuedAtMs int64
}

// SessionCodec issues and parses session tokens that let a client skip
// re-validating init data on every request.
type SessionCodec interface {
	Issue(userID int64) (string, error)
	Parse(token string) (SessionClaims, error)
	Signed() bool
}

// PlainSessionCodec encodes "userId:issuedAtMs" as base64 with no signature.
// Anyone who knows a user id can forge one, so callers must not use it for
// authorization decisions.
type PlainSessionCodec struct {
	maxAge time.Duration
	now    func() time.Time
}

func NewPlainSessionCodec(maxAge time.Duration) *PlainSessionCodec {
	if maxAge <= 0 {
		maxAge = DefaultSessionMaxAge
	}
	return &PlainSessionCodec{maxAge: maxAge, now: time.Now}
}

func (c *PlainSessionCodec) Signed() bool { return false }

func (c *PlainSessionCodec) Issue(userID int64) (string, error) {
	data := strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(c.now().UnixMilli(), 10)
	return base64.StdEncoding.EncodeToString([]byte(data)), nil
}

func (c *PlainSessionCodec) Parse(token string) (SessionClaims, error) {
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return SessionClaims{}, ErrInvalidSession
	}
	userIDStr, issuedStr, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return SessionClaims{}, ErrInvalidSession
	}
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		return SessionClaims{}, ErrInvalidSession
	}
	issuedAtMs, err := strconv.ParseInt(issuedStr, 10, 64)
	if err != nil {
		return SessionClaims{}, ErrInvalidSession
	}
	if c.now().UnixMilli()-issuedAtMs > c.maxAge.Milliseconds() {
		return SessionClaims{}, ErrSessionExpired
	}
	return SessionClaims{UserID: userID, IssuedAtMs: issuedAtMs}, nil
}

// SignedSessionCodec issues HS256 JWTs carrying the same claims.
type SignedSessionCodec struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

func NewSignedSessionCodec(secret string, maxAge time.Duration) (*SignedSessionCodec, error) {
	if secret == "" {
		return nil, errors.New("session secret is empty")
	}
	if maxAge <= 0 {
		maxAge = DefaultSessionMaxAge
	}
	return &SignedSessionCodec{secret: []byte(secret), maxAge: maxAge, now: time.Now}, nil
}

func (c *SignedSessionCodec) Signed() bool { return true }

func (c *SignedSessionCodec) Issue(userID int64) (string, error) {
	now := c.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"iat_ms":  now.UnixMilli(),
		"iat":     now.Unix(),
		"exp":     now.Add(c.maxAge).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

func (c *SignedSessionCodec) Parse(tokenString string) (SessionClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now), jwt.WithExpirationRequired(), jwt.WithJSONNumber())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return SessionClaims{}, ErrSessionExpired
		}
		return SessionClaims{}, ErrInvalidSession
	}
	if !token.Valid {
		return SessionClaims{}, ErrInvalidSession
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return SessionClaims{}, ErrInvalidSession
	}

	userID, err := int64Claim(claims, "user_id")
	if err != nil {
		return SessionClaims{}, ErrInvalidSession
	}
	issuedAtMs, err := int64Claim(claims, "iat_ms")
	if err != nil {
		return SessionClaims{}, ErrInvalidSession
	}
	if c.now().UnixMilli()-issuedAtMs > c.maxAge.Milliseconds() {
		return SessionClaims{}, ErrSessionExpired
	}

	return SessionClaims{UserID: userID, IssuedAtMs: issuedAtMs}, nil
}

func int64Claim(claims jwt.MapClaims, name string) (int64, error) {
	n, ok := claims[name].(json.Number)
	if !ok {
		return 0, fmt.Errorf("claim %s is missing", name)
	}
	return n.Int64()
}

// NewSessionCodec picks the signed codec when a secret is configured and the
// plain reference codec otherwise.
func NewSessionCodec(secret string, maxAge time.Duration) SessionCodec {
	if secret != "" {
		if c, err := NewSignedSessionCodec(secret, maxAge); err == nil {
			return c
		}
	}
	return NewPlainSessionCodec(maxAge)
}
