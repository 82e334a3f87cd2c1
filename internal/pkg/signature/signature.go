// Package signature signs and verifies HMAC-SHA256 payloads: the n8n
// callback body and the short-lived file URLs handed to the workflow.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	HeaderName = "X-Signature"
	prefix     = "sha256="
)

var (
	ErrEmptySecret = errors.New("signature secret is empty")
	ErrMissing     = errors.New("signed url token missing")
	ErrMismatch    = errors.New("signed url token mismatch")
	ErrExpired     = errors.New("signed url expired")
)

// Verifier checks X-Signature headers against the raw request body.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) (*Verifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Sign returns the lowercase hex HMAC of body.
func (v *Verifier) Sign(body []byte) string {
	return sum(v.secret, body)
}

// Verify accepts the bare hex digest or the "sha256=" prefixed form.
// Missing or malformed headers never verify.
func (v *Verifier) Verify(body []byte, header string) bool {
	header = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(header)), prefix)
	if header == "" {
		return false
	}
	got, err := hex.DecodeString(header)
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(v.Sign(body))
	return hmac.Equal(got, want)
}

// URLSigner issues tokens binding a tenant slug, file and expiry together.
type URLSigner struct {
	secret []byte
	now    func() time.Time
}

func NewURLSigner(secret string) (*URLSigner, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrEmptySecret
	}
	return &URLSigner{secret: []byte(secret), now: time.Now}, nil
}

// Sign returns the token and the unix expiry it covers.
func (s *URLSigner) Sign(slug string, fileID uuid.UUID, kind string, ttl time.Duration) (token string, exp int64) {
	exp = s.now().Add(ttl).Unix()
	return sum(s.secret, urlMessage(slug, fileID, kind, exp)), exp
}

func (s *URLSigner) Verify(slug string, fileID uuid.UUID, kind, token, expRaw string) error {
	if token == "" || expRaw == "" {
		return ErrMissing
	}
	exp, err := strconv.ParseInt(expRaw, 10, 64)
	if err != nil {
		return ErrMismatch
	}
	got, err := hex.DecodeString(token)
	if err != nil {
		return ErrMismatch
	}
	want, _ := hex.DecodeString(sum(s.secret, urlMessage(slug, fileID, kind, exp)))
	if !hmac.Equal(got, want) {
		return ErrMismatch
	}
	if s.now().Unix() > exp {
		return ErrExpired
	}
	return nil
}

func urlMessage(slug string, fileID uuid.UUID, kind string, exp int64) []byte {
	return []byte(slug + "|" + fileID.String() + "|" + kind + "|" + strconv.FormatInt(exp, 10))
}

func sum(secret, msg []byte) string {
	m := hmac.New(sha256.New, secret)
	m.Write(msg)
	return hex.EncodeToString(m.Sum(nil))
}
