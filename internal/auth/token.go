package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// SessionTTL is the validity of a login session token.
	SessionTTL = time.Hour
	// ResetTTL is the validity of a password-reset token.
	ResetTTL = 10 * time.Minute
)

// Token purposes. A token minted for one purpose is rejected where another is expected.
const (
	PurposeSession = "session"
	PurposeReset   = "reset"
)

var (
	// ErrInvalidSignature covers tampered, malformed, or foreign-key tokens.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrExpired is returned for an authentic token past its expiry.
	ErrExpired = errors.New("token expired")
	// ErrWrongPurpose is returned when a valid token was minted for another flow.
	ErrWrongPurpose = errors.New("token purpose mismatch")
)

// Claims are the assertions carried by a token. Subject holds the user id.
type Claims struct {
	Username string `json:"username,omitempty"`
	Purpose  string `json:"purpose"`
	jwt.RegisteredClaims
}

// UserID returns the subject of the token.
func (c Claims) UserID() string {
	return c.Subject
}

// TokenIssuer signs and verifies HS256 tokens with a process-wide secret.
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer. The secret must not be empty.
func NewTokenIssuer(secret string) (*TokenIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token secret is required")
	}
	return &TokenIssuer{secret: []byte(secret), now: time.Now}, nil
}

// WithClock returns a copy of the issuer that reads time from now.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	return &TokenIssuer{secret: i.secret, now: now}
}

// Issue signs claims with an absolute expiry of now+ttl.
func (i *TokenIssuer) Issue(claims Claims, ttl time.Duration) (string, error) {
	now := i.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// IssueSession mints a login token for the user.
func (i *TokenIssuer) IssueSession(userID, username string) (string, error) {
	return i.Issue(Claims{
		Username:         username,
		Purpose:          PurposeSession,
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
	}, SessionTTL)
}

// IssueReset mints a password-reset token for the user.
func (i *TokenIssuer) IssueReset(userID string) (string, error) {
	return i.Issue(Claims{
		Purpose:          PurposeReset,
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
	}, ResetTTL)
}

// Verify checks the signature first and the expiry second.
// It returns ErrExpired or ErrInvalidSignature on failure.
func (i *TokenIssuer) Verify(tokenString string) (Claims, error) {
	claims := Claims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return i.secret, nil
	},
		jwt.WithTimeFunc(i.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrInvalidSignature
	}
	if !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return Claims{}, ErrInvalidSignature
	}
	return claims, nil
}

// VerifyPurpose verifies the token and requires it to have been minted for purpose.
func (i *TokenIssuer) VerifyPurpose(tokenString, purpose string) (Claims, error) {
	claims, err := i.Verify(tokenString)
	if err != nil {
		return Claims{}, err
	}
	if claims.Purpose != purpose {
		return Claims{}, ErrWrongPurpose
	}
	return claims, nil
}
