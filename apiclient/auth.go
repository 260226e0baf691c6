package apiclient

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/text/language"
)

var (
	// ErrAccessTokenMissing is returned by BearerHeaders when the source has
	// no token.
	ErrAccessTokenMissing = errors.New("apiclient: access token is missing")
	// ErrAccessTokenExpired is returned by BearerHeaders for a JWT whose exp
	// claim has passed.
	ErrAccessTokenExpired = errors.New("apiclient: access token has expired")
)

// TokenSource supplies the current access token.
type TokenSource interface {
	Token() (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() (string, error)

func (f TokenFunc) Token() (string, error) { return f() }

// StaticToken is a fixed token.
type StaticToken string

func (t StaticToken) Token() (string, error) { return string(t), nil }

type headerOptions struct {
	prefix   string
	language language.Tag
	extra    map[string]string
	now      func() time.Time
}

// HeaderOption customizes BearerHeaders.
type HeaderOption func(*headerOptions)

// WithTokenPrefix replaces the "Bearer" scheme.
func WithTokenPrefix(prefix string) HeaderOption {
	return func(o *headerOptions) { o.prefix = prefix }
}

// WithLanguage sets the Accept-Language tag. Defaults to English.
func WithLanguage(tag language.Tag) HeaderOption {
	return func(o *headerOptions) { o.language = tag }
}

// WithHeader adds a fixed header next to the credentials.
func WithHeader(key, value string) HeaderOption {
	return func(o *headerOptions) {
		if o.extra == nil {
			o.extra = make(map[string]string)
		}
		o.extra[key] = value
	}
}

func withClock(now func() time.Time) HeaderOption {
	return func(o *headerOptions) { o.now = now }
}

// BearerHeaders returns a HeaderFunc that asks src for a token on every
// attempt and sends it as Authorization: <prefix> <token>.
//
// Tokens that parse as a JWT are checked for expiry without verifying the
// signature; the server remains the authority on validity.
func BearerHeaders(src TokenSource, opts ...HeaderOption) HeaderFunc {
	o := headerOptions{prefix: "Bearer", language: language.English, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return func() (map[string]string, error) {
		token, err := src.Token()
		if err != nil {
			return nil, err
		}
		token = strings.TrimSpace(token)
		if token == "" {
			return nil, ErrAccessTokenMissing
		}
		if expired(token, o.now()) {
			return nil, ErrAccessTokenExpired
		}

		h := make(map[string]string, len(o.extra)+2)
		for k, v := range o.extra {
			h[k] = v
		}
		h["Authorization"] = o.prefix + " " + token
		h["Accept-Language"] = o.language.String()
		return h, nil
	}
}

// expired reports whether token is a JWT with an exp claim before now.
// Opaque tokens are never considered expired.
func expired(token string, now time.Time) bool {
	if strings.Count(token, ".") != 2 {
		return false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(now)
}

// ParseLanguage parses a BCP 47 tag such as "en-US" for WithLanguage.
func ParseLanguage(s string) (language.Tag, error) {
	return language.Parse(s)
}
