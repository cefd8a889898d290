package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/speakup/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the account email as subject. Access tokens are stateless:
// nothing about an issued token is recorded server-side.
type Claims struct {
	jwt.RegisteredClaims
}

func (c *Claims) Email() string {
	return c.Subject
}

func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

type Manager struct {
	secret    []byte
	method    jwt.SigningMethod
	accessTTL time.Duration
	now       func() time.Time
}

func NewManager(cfg config.JWT, now func() time.Time) (*Manager, error) {
	method := jwt.GetSigningMethod(cfg.Algorithm)

	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}

	if cfg.Secret == "" {
		return nil, errors.New("signing secret is empty")
	}

	if now == nil {
		now = time.Now
	}

	return &Manager{
		secret:    []byte(cfg.Secret),
		method:    method,
		accessTTL: cfg.AccessTTL,
		now:       now,
	}, nil
}

func (m *Manager) AccessTTL() time.Duration {
	return m.accessTTL
}

// IssueAccessToken signs a token for subject with the full access lifetime.
func (m *Manager) IssueAccessToken(subject string) (string, time.Time, error) {
	return m.Encode(subject, m.accessTTL)
}

func (m *Manager) Encode(subject string, ttl time.Duration) (string, time.Time, error) {
	now := m.now().UTC()
	expiresAt := now.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(m.method, claims)

	raw, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	// NumericDate drops sub-second precision
	return raw, expiresAt.Truncate(time.Second), nil
}

// Decode checks signature, structure and algorithm but not expiry, so callers
// can look at the remaining lifetime themselves.
func (m *Manager) Decode(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, jwt.WithoutClaimsValidation())
}

// Verify is Decode plus expiry.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
}

func (m *Manager) parse(tokenStr string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{m.method.Alg()}))

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)

	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
