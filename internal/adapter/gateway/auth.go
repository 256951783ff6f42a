package gateway

import (
	"crypto/subtle"

	"semanticheck/internal/domain"
	"semanticheck/internal/infra/config"
)

// ClientInfo identifies an authenticated WebSocket client.
type ClientInfo struct {
	Name string
}

// Authenticator validates incoming gateway connections.
type Authenticator interface {
	Authenticate(token string) (*ClientInfo, error)
}

// StaticTokenAuth authenticates clients against a fixed token list.
type StaticTokenAuth struct {
	entries []authEntry
}

type authEntry struct {
	token []byte
	info  *ClientInfo
}

// NewStaticTokenAuth builds an authenticator from configured tokens.
func NewStaticTokenAuth(tokens []config.TokenConfig) *StaticTokenAuth {
	a := &StaticTokenAuth{entries: make([]authEntry, 0, len(tokens))}
	for _, t := range tokens {
		if t.Token == "" {
			continue
		}
		a.entries = append(a.entries, authEntry{
			token: []byte(t.Token),
			info:  &ClientInfo{Name: t.Name},
		})
	}
	return a
}

// Authenticate returns client info if the token matches one entry.
// Every entry is compared so the time taken does not depend on which matched.
func (s *StaticTokenAuth) Authenticate(token string) (*ClientInfo, error) {
	tokenBytes := []byte(token)
	var found *ClientInfo
	for _, e := range s.entries {
		if subtle.ConstantTimeCompare(tokenBytes, e.token) == 1 && found == nil {
			found = e.info
		}
	}
	if found == nil {
		return nil, domain.ErrGatewayAuthFailed
	}
	return found, nil
}

// OpenAuth accepts every connection. It is used when no tokens are configured.
type OpenAuth struct{}

// Authenticate implements Authenticator.
func (OpenAuth) Authenticate(string) (*ClientInfo, error) {
	return &ClientInfo{Name: "anonymous"}, nil
}

// NewAuthenticator picks an Authenticator for cfg.
func NewAuthenticator(cfg config.AuthConfig) Authenticator {
	if cfg.Type == "static" || len(cfg.Tokens) > 0 {
		return NewStaticTokenAuth(cfg.Tokens)
	}
	return OpenAuth{}
}
