package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"releaseguard/internal/platform/config"
)

const (
	PurposeAccess    = "access"
	PurposeBootstrap = "bootstrap"
)

var ErrWrongPurpose = errors.New("token purpose mismatch")

type Claims struct {
	UserID         string `json:"uid"`
	OrganizationID string `json:"oid,omitempty"`
	Role           string `json:"role,omitempty"`
	Purpose        string `json:"pur"`
	Cycle          string `json:"cyc,omitempty"`
	jwt.RegisteredClaims
}

// SessionID is carried in the jti claim.
func (c *Claims) SessionID() string {
	return c.ID
}

type TokenService struct {
	config config.JWTConfig
}

func NewTokenService(cfg config.JWTConfig) *TokenService {
	if cfg.Issuer == "" {
		cfg.Issuer = "releaseguard"
	}
	return &TokenService{config: cfg}
}

// GenerateAccessToken signs a session token. expiresAt should match the
// session row so both end together.
func (s *TokenService) GenerateAccessToken(userID, orgID, role, sessionID string, expiresAt time.Time) (string, error) {
	claims := Claims{
		UserID:         userID,
		OrganizationID: orgID,
		Role:           role,
		Purpose:        PurposeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.config.Issuer,
		},
	}
	return s.sign(claims)
}

// GenerateBootstrapTicket signs a short-lived ticket that authorizes exactly
// one credential-set step for userID. cycle names the must-change state the
// ticket was issued for; a ticket from an earlier cycle must be refused.
func (s *TokenService) GenerateBootstrapTicket(userID, cycle string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:  userID,
		Purpose: PurposeBootstrap,
		Cycle:   cycle,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.BootstrapTicketTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.config.Issuer,
		},
	}
	return s.sign(claims)
}

func (s *TokenService) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}

func (s *TokenService) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithIssuer(s.config.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// ValidateToken accepts only session tokens.
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != PurposeAccess || claims.ID == "" {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}

// ValidateBootstrapTicket returns the user and cycle the ticket was issued for.
func (s *TokenService) ValidateBootstrapTicket(ticket string) (userID, cycle string, err error) {
	claims, err := s.parse(ticket)
	if err != nil {
		return "", "", err
	}
	if claims.Purpose != PurposeBootstrap || claims.UserID == "" {
		return "", "", ErrWrongPurpose
	}
	return claims.UserID, claims.Cycle, nil
}
