package lifecycle

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"matchmap/internal/domain/request"
	"matchmap/internal/pkg/signature"
)

const CallbackPath = "/api/n8n/callback"

// Links builds the absolute URLs handed to the workflow engine.
type Links struct {
	baseURL string
	signer  *signature.URLSigner
	ttl     time.Duration
}

func NewLinks(baseURL string, signer *signature.URLSigner, ttl time.Duration) *Links {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Links{baseURL: baseURL, signer: signer, ttl: ttl}
}

func (l *Links) CallbackURL() string {
	return l.baseURL + CallbackPath
}

// FileURL points at the tenant file endpoint. With a signer configured the
// URL carries exp and token so the engine can fetch without a session.
func (l *Links) FileURL(slug string, f request.File) string {
	q := url.Values{}
	q.Set("type", string(f.Kind))
	if l.signer != nil {
		token, exp := l.signer.Sign(slug, f.ID, string(f.Kind), l.ttl)
		q.Set("exp", strconv.FormatInt(exp, 10))
		q.Set("token", token)
	}
	return l.baseURL + "/api/t/" + url.PathEscape(slug) + "/files/" + f.ID.String() + "?" + q.Encode()
}
