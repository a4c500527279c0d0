package verifier_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dcptck/internal/token"
	"dcptck/internal/vc"
	"dcptck/internal/verifier"
	dErrors "dcptck/pkg/domain-errors"
)

func newVerifier(w *world, statuses *fakeStatusList) *verifier.PresentationVerifier {
	return verifier.NewPresentationVerifier(
		w.verifierDID,
		token.NewCredentialValidator(w.resolver),
		token.NewCredentialValidator(w.resolver),
		statuses,
	)
}

func assertUnauthorized(t *testing.T, err error, msg string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized), "code: %s", dErrors.CodeOf(err))
	assert.Equal(t, msg, dErrors.Message(err))
}

func TestPresentationVerifier_Accepts(t *testing.T) {
	w := newWorld(t, "http://unused")
	v := newVerifier(w, &fakeStatusList{})

	vp := w.vpJWT(t, w.verifierDID, w.vcJWT(t, w.credential(nil)))
	assert.NoError(t, v.VerifyResponse(context.Background(), []string{vp}))
}

func TestPresentationVerifier_Rejects(t *testing.T) {
	w := newWorld(t, "http://unused")
	statuses := &fakeStatusList{revoked: map[int]bool{3: true}}
	statusEntry := vc.NewMetadataReference("https://example.com/status#3", "StatusList2021Entry",
		map[string]any{"statusListIndex": "3", "statusPurpose": "revocation"})
	schema := vc.NewMetadataReference("https://example.com/schema/membership-credential-schema.json", "JsonSchema", nil)

	tests := []struct {
		name string
		vp   func() string
		want string
	}{
		{
			name: "wrong audience",
			vp: func() string {
				return w.vpJWT(t, "did:web:other", w.vcJWT(t, w.credential(nil)))
			},
			want: "missing audience: " + w.verifierDID,
		},
		{
			name: "iss differs from sub",
			vp: func() string {
				return w.holderToken(t, jwt.MapClaims{"aud": w.verifierDID, "sub": "did:web:other"})
			},
			want: "iss != sub",
		},
		{
			name: "missing vp claim",
			vp: func() string {
				return w.holderToken(t, jwt.MapClaims{"aud": w.verifierDID})
			},
			want: "missing 'vp' claim",
		},
		{
			name: "no credentials",
			vp: func() string {
				return w.vpJWT(t, w.verifierDID)
			},
			want: "No credentials received",
		},
		{
			name: "subject is someone else",
			vp: func() string {
				c := w.credential(func(b *vc.CredentialBuilder) {
					b.Subject(map[string]any{"id": "did:web:someone-else"})
				})
				return w.vpJWT(t, w.verifierDID, w.vcJWT(t, c))
			},
			want: "Not all credential subject IDs match the holder ID",
		},
		{
			name: "expired credential",
			vp: func() string {
				c := w.credential(func(b *vc.CredentialBuilder) {
					b.ExpirationDate(time.Now().Add(-time.Minute))
				})
				return w.vpJWT(t, w.verifierDID, w.vcJWT(t, c))
			},
			want: "Credential is expired",
		},
		{
			name: "credential not yet valid",
			vp: func() string {
				c := w.credential(func(b *vc.CredentialBuilder) {
					b.IssuanceDate(time.Now().Add(time.Hour))
				})
				return w.vpJWT(t, w.verifierDID, w.vcJWT(t, c))
			},
			want: "Credential is not yet valid",
		},
		{
			name: "revoked credential",
			vp: func() string {
				c := w.credential(func(b *vc.CredentialBuilder) { b.Status(statusEntry) })
				return w.vpJWT(t, w.verifierDID, w.vcJWT(t, c))
			},
			want: "Credential is revoked",
		},
		{
			name: "subject fails schema",
			vp: func() string {
				c := w.credential(func(b *vc.CredentialBuilder) {
					b.Subject(map[string]any{"memberOf": "dataspace"}).Schema(schema)
				})
				return w.vpJWT(t, w.verifierDID, w.vcJWT(t, c))
			},
			want: "Credential schema validation failed",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := newVerifier(w, statuses).Verify(context.Background(), tc.vp())
			assertUnauthorized(t, err, tc.want)
		})
	}
}

func TestPresentationVerifier_NotRevokedAndSchemaValid(t *testing.T) {
	w := newWorld(t, "http://unused")
	c := w.credential(func(b *vc.CredentialBuilder) {
		b.Status(vc.NewMetadataReference("s#4", "StatusList2021Entry", map[string]any{"statusListIndex": 4})).
			Schema(vc.NewMetadataReference("schema", "JsonSchema", nil))
	})
	vp := w.vpJWT(t, w.verifierDID, w.vcJWT(t, c))

	err := newVerifier(w, &fakeStatusList{revoked: map[int]bool{3: true}}).Verify(context.Background(), vp)
	assert.NoError(t, err)
}

func TestPresentationVerifier_OutOfRangeStatusIndex(t *testing.T) {
	w := newWorld(t, "http://unused")
	c := w.credential(func(b *vc.CredentialBuilder) {
		b.Status(vc.NewMetadataReference("s#x", "StatusList2021Entry", map[string]any{"statusListIndex": "99999"}))
	})
	vp := w.vpJWT(t, w.verifierDID, w.vcJWT(t, c))

	err := newVerifier(w, &fakeStatusList{}).Verify(context.Background(), vp)
	assertUnauthorized(t, err, "Invalid statusListIndex: 99999")
}

func TestPresentationVerifier_InvalidTokenIsUnauthorized(t *testing.T) {
	w := newWorld(t, "http://unused")
	err := newVerifier(w, &fakeStatusList{}).Verify(context.Background(), "garbage")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Contains(t, dErrors.Message(err), "Invalid JWT")
}

func TestPresentationVerifier_EmptyResponse(t *testing.T) {
	w := newWorld(t, "http://unused")
	err := newVerifier(w, &fakeStatusList{}).VerifyResponse(context.Background(), nil)
	assertUnauthorized(t, err, "empty presentation array")
}

func TestPresentationVerifier_ReplayedPresentation(t *testing.T) {
	w := newWorld(t, "http://unused")
	v := newVerifier(w, &fakeStatusList{})
	vp := w.vpJWT(t, w.verifierDID, w.vcJWT(t, w.credential(nil)))

	require.NoError(t, v.Verify(context.Background(), vp))
	assertUnauthorized(t, v.Verify(context.Background(), vp), "JTI already used")
}

func TestSchemaValidator(t *testing.T) {
	s := verifier.NewSchemaValidator()

	assert.NoError(t, s.Validate(verifier.MembershipCredentialSchema, map[string]any{"id": "did:web:x"}))
	assert.Error(t, s.Validate(verifier.MembershipCredentialSchema, map[string]any{"id": ""}))
	assert.Error(t, s.Validate("missing.json", map[string]any{}))

	query := map[string]any{
		"@context": []any{"https://w3id.org/dspace-dcp/v1.0/dcp.jsonld"},
		"type":     "PresentationQueryMessage",
		"scope":    []any{"org.eclipse.dspace.dcp.vc.type:MembershipCredential:read"},
	}
	assert.NoError(t, s.Validate(verifier.PresentationQuerySchema, query))
	query["type"] = "CredentialMessage"
	assert.Error(t, s.Validate(verifier.PresentationQuerySchema, query))

	raw, ok := s.Raw(verifier.MembershipCredentialSchema)
	assert.True(t, ok)
	assert.Contains(t, string(raw), "MembershipCredential")
}
