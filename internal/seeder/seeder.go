// Package seeder stores the test profile credentials in the holder at
// startup so presentation flows have something to present.
package seeder

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"dcptck/internal/message"
)

// WriteAuthorizer lets the holder accept a delivery from an issuer.
type WriteAuthorizer interface {
	AuthorizeWrite(bearerDID, correlationID string, scopes []string)
}

// CredentialIssuer issues and delivers the seed credentials.
type CredentialIssuer interface {
	DID() string
	IssueCredentials(ctx context.Context, holderDID, holderPid string) error
}

// Seeder populates the holder's credential store.
type Seeder struct {
	writes    WriteAuthorizer
	issuer    CredentialIssuer
	holderDID string
	holderPid string
	retries   uint64
	logger    *slog.Logger
}

// New creates a seeder. holderPid correlates the seed delivery; retries
// covers the window where the server is still coming up.
func New(writes WriteAuthorizer, issuer CredentialIssuer, holderDID, holderPid string, retries uint64, logger *slog.Logger) *Seeder {
	return &Seeder{
		writes:    writes,
		issuer:    issuer,
		holderDID: holderDID,
		holderPid: holderPid,
		retries:   retries,
		logger:    logger,
	}
}

// SeedAll delivers membership and sensitive data credentials to the holder.
func (s *Seeder) SeedAll(ctx context.Context) error {
	s.logger.InfoContext(ctx, "seeding holder credentials...",
		"holder", s.holderDID,
		"issuer", s.issuer.DID(),
	)

	scopes := []string{
		message.ScopeTypeAlias + message.MembershipCredentialType,
		message.ScopeTypeAlias + message.SensitiveDataCredentialType,
	}
	op := func() error {
		// a rejected delivery consumes the authorization
		s.writes.AuthorizeWrite(s.issuer.DID(), s.holderPid, scopes)
		return s.issuer.IssueCredentials(ctx, s.holderDID, s.holderPid)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, s.retries), ctx),
		func(err error, wait time.Duration) {
			s.logger.WarnContext(ctx, "seeding failed, retrying",
				"error", err,
				"wait", wait,
			)
		})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "holder credentials seeded successfully",
		"holder_pid", s.holderPid,
	)
	return nil
}
