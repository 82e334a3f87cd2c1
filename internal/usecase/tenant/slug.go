package tenant

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	maxSlugLen      = 50
	maxSlugAttempts = 10
	suffixAlphabet  = "abcdefghijklmnopqrstuvwxyz0123456789"
)

var umlauts = strings.NewReplacer("ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss")

// GenerateSlug lower-cases name, transliterates German umlauts and joins the
// remaining [a-z0-9] runs with "-". The result is at most 50 chars.
func GenerateSlug(name string) string {
	s := umlauts.Replace(strings.ToLower(name))

	var b strings.Builder
	pendingDash := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}

	out := b.String()
	if len(out) > maxSlugLen {
		out = strings.TrimRight(out[:maxSlugLen], "-")
	}
	return out
}

// SlugChecker reports whether a slug is already used by a tenant.
type SlugChecker interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// UniqueSlug returns GenerateSlug(name), or that slug with a random 4 char
// suffix when taken. It gives up after 10 suffixed attempts.
func UniqueSlug(ctx context.Context, slugs SlugChecker, name string) (string, error) {
	base := GenerateSlug(name)
	if base == "" {
		return "", fmt.Errorf("%w: company name has no usable characters", ErrInvalidInput)
	}

	candidate := base
	for attempt := 0; ; attempt++ {
		taken, err := slugs.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		if attempt >= maxSlugAttempts {
			return "", ErrSlugExhausted
		}
		candidate = withSuffix(base, randomSuffix(4))
	}
}

func withSuffix(base, suffix string) string {
	if len(base)+1+len(suffix) > maxSlugLen {
		base = strings.TrimRight(base[:maxSlugLen-1-len(suffix)], "-")
	}
	return base + "-" + suffix
}

func randomSuffix(n int) string {
	b := make([]byte, n)
	limit := big.NewInt(int64(len(suffixAlphabet)))
	for i := range b {
		v, err := rand.Int(rand.Reader, limit)
		if err != nil {
			b[i] = suffixAlphabet[i%len(suffixAlphabet)]
			continue
		}
		b[i] = suffixAlphabet[v.Int64()]
	}
	return string(b)
}
