// Package crypto verifies host bearer tokens.
package crypto

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/grabpic/grabpic-api/internal/config"
	"github.com/grabpic/grabpic-api/internal/domain/models"
	"github.com/grabpic/grabpic-api/internal/domain/service"
)

var _ service.TokenVerifier = (*JWTVerifier)(nil)

// JWTVerifier validates host tokens signed with a shared HS256 secret or an RS256/ES256 key.
type JWTVerifier struct {
	key     interface{}
	methods []string
	opts    []jwt.ParserOption
}

// NewJWTVerifier builds a verifier from cfg. PublicKeyPEM takes precedence over Secret.
func NewJWTVerifier(cfg *config.JWTConfig) (*JWTVerifier, error) {
	v := &JWTVerifier{}

	switch {
	case cfg.PublicKeyPEM != "":
		key, methods, err := parsePublicKey([]byte(cfg.PublicKeyPEM))
		if err != nil {
			return nil, err
		}
		v.key, v.methods = key, methods
	case cfg.Secret != "":
		v.key = []byte(cfg.Secret)
		v.methods = []string{jwt.SigningMethodHS256.Alg()}
	default:
		return nil, fmt.Errorf("jwt secret or public key is required")
	}

	v.opts = []jwt.ParserOption{
		jwt.WithValidMethods(v.methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if cfg.Issuer != "" {
		v.opts = append(v.opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		v.opts = append(v.opts, jwt.WithAudience(cfg.Audience))
	}
	return v, nil
}

func parsePublicKey(pem []byte) (interface{}, []string, error) {
	if key, err := jwt.ParseRSAPublicKeyFromPEM(pem); err == nil {
		return key, []string{jwt.SigningMethodRS256.Alg()}, nil
	}
	if key, err := jwt.ParseECPublicKeyFromPEM(pem); err == nil {
		return key, []string{jwt.SigningMethodES256.Alg()}, nil
	}
	return nil, nil, fmt.Errorf("unsupported jwt public key: expected RSA or ECDSA PEM")
}

// Verify parses tokenString and returns its claims.
func (v *JWTVerifier) Verify(tokenString string) (*models.HostClaims, error) {
	claims := &models.HostClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyFunc, v.opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

func (v *JWTVerifier) keyFunc(token *jwt.Token) (interface{}, error) {
	switch v.key.(type) {
	case *rsa.PublicKey, *ecdsa.PublicKey, []byte:
		return v.key, nil
	}
	return nil, fmt.Errorf("no verification key for %s", token.Method.Alg())
}
