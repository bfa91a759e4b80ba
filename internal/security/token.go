package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService signs and validates the JWTs issued by the development backend.
type TokenService struct {
	secret    []byte
	expiresIn time.Duration
}

func NewTokenService(secret string, expiresIn time.Duration) *TokenService {
	return &TokenService{
		secret:    []byte(secret),
		expiresIn: expiresIn,
	}
}

// CreateForUser creates a JWT whose subject is the user's email.
func (t *TokenService) CreateForUser(email string) (string, error) {
	return t.CreateWithTTL(email, t.expiresIn)
}

// CreateWithTTL creates a JWT for the given email with an explicit TTL.
func (t *TokenService) CreateWithTTL(email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": email,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse validates a token and returns its subject.
func (t *TokenService) Parse(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", jwt.ErrSignatureInvalid
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", jwt.ErrTokenInvalidSubject
	}
	return sub, nil
}

// TokenInfo is what the client can read from a bearer token without the
// server's secret.
type TokenInfo struct {
	Subject   string
	ExpiresAt *time.Time
}

// InspectToken decodes a JWT without verifying its signature. The client
// never trusts these claims for authorization; they only fill in the session
// identity and expiry. Opaque (non-JWT) tokens yield an empty TokenInfo.
func InspectToken(tokenStr string) (TokenInfo, error) {
	var info TokenInfo
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return info, nil
		}
		return info, err
	}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		info.ExpiresAt = &t
	}
	return info, nil
}
