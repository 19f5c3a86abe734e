// Package auth resolves API bearer tokens to user identities.
package auth

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/k2cf/dealdesk/internal/common"
)

// ErrUnauthenticated reports a missing or unknown token.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity maps bearer tokens to stable user identifiers.
type Identity interface {
	UserFromToken(ctx context.Context, token string) (string, error)
}

// StaticTokens is a fixed token table loaded from the environment. The
// DEALDESK_API_TOKENS value is a comma separated list of token=user pairs.
type StaticTokens struct {
	users map[string]string
}

func NewStaticTokens() *StaticTokens {
	return NewStaticTokensFromSpec(os.Getenv("DEALDESK_API_TOKENS"))
}

func NewStaticTokensFromSpec(spec string) *StaticTokens {
	users := make(map[string]string)
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, user, ok := strings.Cut(pair, "=")
		token = strings.TrimSpace(token)
		user = strings.TrimSpace(user)
		if !ok || token == "" || user == "" {
			common.Logger().Warn("auth: skipping malformed token pair")
			continue
		}
		users[token] = user
	}
	if len(users) == 0 {
		common.Logger().Warn("auth: no API tokens configured, all requests will be rejected")
	}
	return &StaticTokens{users: users}
}

func (s *StaticTokens) UserFromToken(_ context.Context, token string) (string, error) {
	user, ok := s.users[token]
	if !ok || token == "" {
		return "", ErrUnauthenticated
	}
	return user, nil
}

// BearerToken extracts the bearer token from an Authorization header.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
