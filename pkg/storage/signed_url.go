package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Token purposes bind a signature to a single kind of request.
const (
	PurposeUpload   = "upload"
	PurposeDownload = "download"
)

// TokenClaims are the values carried inside a signed storage token.
type TokenClaims struct {
	Purpose     string    `json:"p"`
	Key         string    `json:"k"`
	ContentType string    `json:"ct,omitempty"`
	MaxSize     int64     `json:"sz,omitempty"`
	ExpiresAt   time.Time `json:"-"`
	Exp         int64     `json:"exp"`
}

// SignedURLSigner creates and validates signed upload/download tokens.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Sign returns a token for the claims; ExpiresAt defaults to now + TTL.
func (s *SignedURLSigner) Sign(claims TokenClaims) (string, time.Time, error) {
	if claims.Purpose == "" || claims.Key == "" {
		return "", time.Time{}, fmt.Errorf("purpose and key required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	if claims.ExpiresAt.IsZero() {
		claims.ExpiresAt = s.now().Add(s.ttl)
	}
	claims.Exp = claims.ExpiresAt.Unix()
	raw, err := json.Marshal(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("encode token claims: %w", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(raw)
	return payload + "." + s.sign(payload), time.Unix(claims.Exp, 0), nil
}

// Verify checks the signature, purpose and expiry of a token.
func (s *SignedURLSigner) Verify(token, purpose string) (*TokenClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid token format")
	}
	if !hmac.Equal([]byte(s.sign(parts[0])), []byte(parts[1])) {
		return nil, fmt.Errorf("invalid token signature")
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("decode token payload: %w", err)
	}
	var claims TokenClaims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return nil, fmt.Errorf("decode token claims: %w", err)
	}
	if claims.Purpose != purpose {
		return nil, fmt.Errorf("token purpose mismatch")
	}
	claims.ExpiresAt = time.Unix(claims.Exp, 0)
	if s.now().After(claims.ExpiresAt) {
		return nil, fmt.Errorf("token expired")
	}
	return &claims, nil
}

func (s *SignedURLSigner) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
