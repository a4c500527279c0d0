package admin

import (
	"strings"

	"dcptck/internal/message"
	dErrors "dcptck/pkg/domain-errors"
)

// TokenRequest asks for a holder ID token usable by a verifier.
type TokenRequest struct {
	Audience string   `json:"audience"`
	Scopes   []string `json:"scopes"`
}

// TokenResponse carries the minted ID token.
type TokenResponse struct {
	Token string `json:"token"`
}

func (r *TokenRequest) Normalize() {
	r.Audience = strings.TrimSpace(r.Audience)
	for i, s := range r.Scopes {
		r.Scopes[i] = strings.TrimSpace(s)
	}
}

func (r *TokenRequest) Validate() error {
	if r.Audience == "" {
		return dErrors.New(dErrors.CodeBadRequest, "audience is required")
	}
	if len(r.Scopes) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "at least one scope is required")
	}
	for _, s := range r.Scopes {
		if t, ok := strings.CutPrefix(s, message.ScopeTypeAlias); !ok || t == "" {
			return dErrors.Newf(dErrors.CodeBadRequest, "invalid scope: %s", s)
		}
	}
	return nil
}
