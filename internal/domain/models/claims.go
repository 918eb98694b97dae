package models

import "github.com/golang-jwt/jwt/v5"

// HostClaims represents the verified claims of an album host's bearer token.
// The subject carries the host id; the email is informational only.
// HostClaims 代表相册主人令牌中已验证的声明，subject 即主人 ID。
type HostClaims struct {
	jwt.RegisteredClaims
	// Email is the host's address, if the issuer includes it.
	// Email 是主人的邮箱地址（如果签发方提供）。
	Email string `json:"email,omitempty"`
}

// HostID returns the token subject.
func (c *HostClaims) HostID() string {
	return c.Subject
}
