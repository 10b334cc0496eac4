package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrTokenInvalid covers malformed or tampered download tokens.
	ErrTokenInvalid = errors.New("invalid download token")
	// ErrTokenExpired is returned once the grant's deadline has passed.
	ErrTokenExpired = errors.New("download token expired")
)

// Grant is the payload carried by a signed download token.
type Grant struct {
	JobID     string
	Path      string
	ExpiresAt time.Time
}

// SignedURLSigner issues and checks HMAC signed download tokens for booklets.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token granting access to path on behalf of jobID.
func (s *SignedURLSigner) Sign(jobID, path string) (string, time.Time, error) {
	if jobID == "" || path == "" {
		return "", time.Time{}, fmt.Errorf("job id and path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(path))
	token := strings.Join([]string{jobID, ts, encodedPath, s.mac(jobID, ts, encodedPath)}, ".")
	return token, expiresAt, nil
}

// Verify checks the token signature and, unless allowExpired, its deadline.
func (s *SignedURLSigner) Verify(token string, allowExpired bool) (Grant, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return Grant{}, ErrTokenInvalid
	}
	jobID, ts, encodedPath, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.mac(jobID, ts, encodedPath)), []byte(signature)) {
		return Grant{}, ErrTokenInvalid
	}
	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return Grant{}, ErrTokenInvalid
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return Grant{}, ErrTokenInvalid
	}

	grant := Grant{JobID: jobID, Path: string(rawPath), ExpiresAt: time.Unix(expUnix, 0)}
	if !allowExpired && s.now().After(grant.ExpiresAt) {
		return grant, ErrTokenExpired
	}
	return grant, nil
}

func (s *SignedURLSigner) mac(jobID, ts, encodedPath string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(jobID + "|" + ts + "|" + encodedPath))
	return hex.EncodeToString(mac.Sum(nil))
}
