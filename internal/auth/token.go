package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

var (
	ErrInvalidTokenConfig = errors.New("invalid token config")
	ErrInvalidToken       = errors.New("invalid token")
	ErrMissingToken       = errors.New("authorization header missing")
)

const issuer = "crescer"

// Claims identify the session owner.
type Claims struct {
	UserID   string
	Username string
}

// Tokens signs and verifies HS256 session tokens. A zero TTL issues tokens
// without expiry, so a saved session stays valid until the secret changes.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Tokens)

func WithSecret(secret string) Option {
	return func(t *Tokens) {
		t.secret = []byte(secret)
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(t *Tokens) {
		t.ttl = ttl
	}
}

func WithClock(now func() time.Time) Option {
	return func(t *Tokens) {
		t.now = now
	}
}

func (t *Tokens) IsValid() error {
	switch {
	case len(t.secret) == 0:
		return errors.Wrap(ErrInvalidTokenConfig, "secret cannot be empty")
	case t.ttl < 0:
		return errors.Wrap(ErrInvalidTokenConfig, "ttl cannot be negative")
	default:
		return nil
	}
}

func New(opts ...Option) (*Tokens, error) {
	t := &Tokens{now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	if err := t.IsValid(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tokens) Issue(c Claims) (string, error) {
	now := t.now()
	claims := jwt.MapClaims{
		"sub":      c.UserID,
		"username": c.Username,
		"iss":      issuer,
		"iat":      now.Unix(),
	}
	if t.ttl > 0 {
		claims["exp"] = now.Add(t.ttl).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return signed, nil
}

func (t *Tokens) Parse(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return Claims{}, errors.Wrap(ErrInvalidToken, err.Error())
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	sub, _ := mc["sub"].(string)
	if sub == "" {
		return Claims{}, errors.Wrap(ErrInvalidToken, "subject missing")
	}
	username, _ := mc["username"].(string)
	return Claims{UserID: sub, Username: username}, nil
}

// FromRequest extracts a bearer token from the Authorization header, or from
// the access_token query parameter for EventSource clients that cannot set headers.
func FromRequest(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if q := r.URL.Query().Get("access_token"); q != "" {
			return q, nil
		}
		return "", ErrMissingToken
	}

	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errors.Wrap(ErrInvalidToken, "invalid authorization header format")
	}
	return parts[1], nil
}
