package seeder_test

//go:generate mockgen -source=seeder.go -destination=mocks/mocks.go -package=mocks WriteAuthorizer,CredentialIssuer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"dcptck/internal/message"
	"dcptck/internal/seeder"
	"dcptck/internal/seeder/mocks"
)

const (
	holderDID = "did:web:localhost:holder"
	issuerDID = "did:web:localhost:issuer"
	holderPid = "seed-pid"
)

func newSeeder(t *testing.T, retries uint64) (*seeder.Seeder, *mocks.MockWriteAuthorizer, *mocks.MockCredentialIssuer) {
	ctrl := gomock.NewController(t)
	writes := mocks.NewMockWriteAuthorizer(ctrl)
	issuer := mocks.NewMockCredentialIssuer(ctrl)
	issuer.EXPECT().DID().Return(issuerDID).AnyTimes()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return seeder.New(writes, issuer, holderDID, holderPid, retries, logger), writes, issuer
}

func TestSeedAll(t *testing.T) {
	s, writes, issuer := newSeeder(t, 2)
	scopes := []string{
		message.ScopeTypeAlias + message.MembershipCredentialType,
		message.ScopeTypeAlias + message.SensitiveDataCredentialType,
	}
	gomock.InOrder(
		writes.EXPECT().AuthorizeWrite(issuerDID, holderPid, scopes),
		issuer.EXPECT().IssueCredentials(gomock.Any(), holderDID, holderPid).Return(nil),
	)
	require.NoError(t, s.SeedAll(context.Background()))
}

func TestSeedAll_RetriesUntilDelivered(t *testing.T) {
	s, writes, issuer := newSeeder(t, 2)
	writes.EXPECT().AuthorizeWrite(issuerDID, holderPid, gomock.Any()).Times(2)
	gomock.InOrder(
		issuer.EXPECT().IssueCredentials(gomock.Any(), holderDID, holderPid).Return(errors.New("connection refused")),
		issuer.EXPECT().IssueCredentials(gomock.Any(), holderDID, holderPid).Return(nil),
	)
	require.NoError(t, s.SeedAll(context.Background()))
}

func TestSeedAll_GivesUp(t *testing.T) {
	s, writes, issuer := newSeeder(t, 1)
	writes.EXPECT().AuthorizeWrite(issuerDID, holderPid, gomock.Any()).Times(2)
	issuer.EXPECT().IssueCredentials(gomock.Any(), holderDID, holderPid).Return(errors.New("boom")).Times(2)

	err := s.SeedAll(context.Background())
	assert.EqualError(t, err, "boom")
}
