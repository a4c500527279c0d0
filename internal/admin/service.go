package admin

import (
	"context"
	"time"

	"dcptck/internal/message"
	"dcptck/internal/vc"
	"dcptck/pkg/platform/middleware/requesttime"
)

// Holder is the credential service being exercised.
type Holder interface {
	Credentials() []vc.Container
	Offers() []message.CredentialOfferMessage
	IssueAccessToken(ctx context.Context, audience string, scopes []string) (string, error)
}

// Issuer reports delivery progress.
type Issuer interface {
	PendingRequests() int
}

// StatusList is the issuer's revocation list.
type StatusList interface {
	Len() int
	IsRevoked(index int) bool
}

// BreakerGroup lists DID hosts whose circuit is open.
type BreakerGroup interface {
	Open() []string
}

// Service provides admin-level operations for monitoring and driving a test
// run.
type Service struct {
	holder   Holder
	issuer   Issuer
	status   StatusList
	breakers BreakerGroup
}

// NewService creates a new admin service. issuer, status and breakers may be
// nil when the role is not running.
func NewService(holder Holder, issuer Issuer, status StatusList, breakers BreakerGroup) *Service {
	return &Service{
		holder:   holder,
		issuer:   issuer,
		status:   status,
		breakers: breakers,
	}
}

// Stats contains overall engine statistics
type Stats struct {
	CredentialsHeld     int            `json:"credentials_held"`
	CredentialsByType   map[string]int `json:"credentials_by_type"`
	PendingOffers       int            `json:"pending_offers"`
	PendingRequests     int            `json:"pending_requests"`
	RevokedCredentials  int            `json:"revoked_credentials"`
	OpenCircuitBreakers []string       `json:"open_circuit_breakers"`
	Timestamp           time.Time      `json:"timestamp"`
}

// CredentialInfo describes one credential held by the holder.
type CredentialInfo struct {
	ID           string   `json:"id"`
	Types        []string `json:"types"`
	Issuer       string   `json:"issuer"`
	Format       string   `json:"format"`
	IssuanceDate string   `json:"issuance_date"`
}

// GetStats returns overall engine statistics
func (s *Service) GetStats(ctx context.Context) *Stats {
	creds := s.holder.Credentials()
	byType := make(map[string]int)
	for _, c := range creds {
		for _, t := range c.Credential.Type {
			if t != vc.TypeVerifiableCredential {
				byType[t]++
			}
		}
	}

	stats := &Stats{
		CredentialsHeld:     len(creds),
		CredentialsByType:   byType,
		PendingOffers:       len(s.holder.Offers()),
		OpenCircuitBreakers: []string{},
		Timestamp:           requesttime.Now(ctx),
	}
	if s.issuer != nil {
		stats.PendingRequests = s.issuer.PendingRequests()
	}
	if s.status != nil {
		for i := range s.status.Len() {
			if s.status.IsRevoked(i) {
				stats.RevokedCredentials++
			}
		}
	}
	if s.breakers != nil {
		if open := s.breakers.Open(); len(open) > 0 {
			stats.OpenCircuitBreakers = open
		}
	}
	return stats
}

// ListCredentials returns the credentials currently held.
func (s *Service) ListCredentials() []CredentialInfo {
	creds := s.holder.Credentials()
	out := make([]CredentialInfo, 0, len(creds))
	for _, c := range creds {
		out = append(out, CredentialInfo{
			ID:           c.Credential.ID,
			Types:        c.Credential.Type,
			Issuer:       c.Credential.Issuer,
			Format:       string(c.Format),
			IssuanceDate: c.Credential.IssuanceDate,
		})
	}
	return out
}

// MintToken returns a holder self-issued ID token for audience carrying an
// access token for scopes.
func (s *Service) MintToken(ctx context.Context, audience string, scopes []string) (string, error) {
	return s.holder.IssueAccessToken(ctx, audience, scopes)
}
