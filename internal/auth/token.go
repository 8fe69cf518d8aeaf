// Package auth resolves the acting user of a request and manages accounts.
//
// Access tokens are HS256 signed JWTs whose subject is the numeric id of the user. The id
// taken from a valid token is the only source of the owner id for contact operations.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is written into and required from every access token.
const Issuer = "address-book"

// DefaultTokenTTL is the lifetime of an access token unless configured otherwise.
const DefaultTokenTTL = 30 * time.Minute

// TokenService creates and validates access tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService. The secret must have at least 16 characters.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// ConfirmationTTL is the lifetime of an email confirmation token.
const ConfirmationTTL = 7 * 24 * time.Hour

// confirmationAudience tells confirmation tokens apart from access tokens, which carry no
// audience.
const confirmationAudience = "email-confirmation"

// Generate signs a new access token for the user.
func (s *TokenService) Generate(userID int64) (string, error) {
	now := s.now()
	return s.sign(jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		Issuer:    Issuer,
	})
}

// Validate verifies signature, issuer and expiry of the token and returns the user id from
// its subject.
func (s *TokenService) Validate(tokenStr string) (int64, error) {
	claims, err := s.parse(tokenStr)
	if err != nil {
		return 0, err
	}
	if len(claims.Audience) > 0 {
		return 0, fmt.Errorf("auth: unexpected audience %v", claims.Audience)
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("auth: invalid subject %q", claims.Subject)
	}
	return userID, nil
}

// GenerateConfirmation signs a token that confirms the email address.
func (s *TokenService) GenerateConfirmation(email string) (string, error) {
	now := s.now()
	return s.sign(jwt.RegisteredClaims{
		Subject:   email,
		Audience:  jwt.ClaimStrings{confirmationAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ConfirmationTTL)),
		Issuer:    Issuer,
	})
}

// ValidateConfirmation verifies a confirmation token and returns the email address it was
// issued for. Access tokens are rejected.
func (s *TokenService) ValidateConfirmation(tokenStr string) (string, error) {
	claims, err := s.parse(tokenStr, jwt.WithAudience(confirmationAudience))
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("auth: confirmation token without email")
	}
	return claims.Subject, nil
}

func (s *TokenService) sign(claims jwt.RegisteredClaims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

func (s *TokenService) parse(tokenStr string, opts ...jwt.ParserOption) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	opts = append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}, opts...)
	_, err := jwt.ParseWithClaims(
		tokenStr,
		claims,
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		opts...,
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.New("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}
	return claims, nil
}
