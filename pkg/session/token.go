package session

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken  = errors.New("missing token")
	ErrMissingSecret = errors.New("missing session secret")
	ErrInvalidToken  = errors.New("invalid token")
)

type Claims struct {
	jwt.RegisteredClaims

	UserID string `json:"uid"`
}

type Verified struct {
	UserID    string
	ExpiresAt time.Time
}

// Issue signs an HS256 session token for userID valid for ttl from now.
func Issue(userID, secret string, now time.Time, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrMissingSecret
	}
	if userID == "" {
		return "", errors.New("missing user id")
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "sign session token")
	}
	return s, nil
}

// Verify checks signature, algorithm and expiry against now and returns the user id.
func Verify(tokenString, secret string, now time.Time) (*Verified, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	if secret == "" {
		return nil, ErrMissingSecret
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	claims := &Claims{}
	tok, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "parse session token"), ErrInvalidToken)
	}
	if !tok.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return &Verified{
		UserID:    claims.UserID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
