package token_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"dcptck/internal/crypto/keys"
	"dcptck/internal/did"
	"dcptck/internal/platform/metrics"
	"dcptck/internal/token"
	"dcptck/internal/token/mocks"
	dErrors "dcptck/pkg/domain-errors"
	"dcptck/pkg/platform/middleware/requesttime"
	platformtestutil "dcptck/pkg/testutil"
)

const (
	holderDID   = "did:web:localhost%3A8083:holder"
	verifierDID = "did:web:localhost%3A8083:verifier"
)

type ValidatorSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	resolver *mocks.MockDocumentResolver
	signer   *keys.Service
	now      time.Time
	ctx      context.Context
}

func (s *ValidatorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.resolver = mocks.NewMockDocumentResolver(s.ctrl)
	kp, err := keys.GenerateEC()
	s.Require().NoError(err)
	s.signer, err = keys.NewService(kp)
	s.Require().NoError(err)
	s.now = time.Unix(1_750_000_000, 0)
	s.ctx = requesttime.WithTime(context.Background(), s.now)
}

func (s *ValidatorSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestValidatorSuite(t *testing.T) {
	suite.Run(t, new(ValidatorSuite))
}

func (s *ValidatorSuite) document() *did.Document {
	return did.NewService(holderDID, "http://localhost:8083/holder", s.signer).Document()
}

func (s *ValidatorSuite) claims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss": holderDID,
		"sub": holderDID,
		"aud": verifierDID,
		"jti": uuid.NewString(),
		"iat": s.now.Add(-time.Minute).Unix(),
		"nbf": s.now.Add(-time.Minute).Unix(),
		"exp": s.now.Add(5 * time.Minute).Unix(),
	}
}

func (s *ValidatorSuite) sign(claims jwt.MapClaims, headers map[string]string) string {
	raw, err := s.signer.Sign(headers, claims)
	s.Require().NoError(err)
	return raw
}

func (s *ValidatorSuite) expectResolve() {
	s.resolver.EXPECT().Resolve(gomock.Any(), holderDID).Return(s.document(), nil)
}

func (s *ValidatorSuite) assertBadRequest(err error, msg string) {
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest), "code: %s", dErrors.CodeOf(err))
	s.Equal(msg, dErrors.Message(err))
}

func (s *ValidatorSuite) TestValidToken() {
	s.expectResolve()
	v := token.NewAudienceValidator(s.resolver, verifierDID)

	tok, err := v.Validate(s.ctx, s.sign(s.claims(), nil))
	s.Require().NoError(err)
	s.Equal(holderDID, tok.Issuer())
	s.Equal(holderDID, tok.Subject())
	s.Equal([]string{verifierDID}, tok.Audience())
	s.Equal(verifierDID, v.Audience())
}

func (s *ValidatorSuite) TestKidWithoutFragmentUsesSingleMethod() {
	s.expectResolve()
	v := token.NewCredentialValidator(s.resolver)

	_, err := v.Validate(s.ctx, s.sign(s.claims(), map[string]string{"kid": holderDID}))
	s.NoError(err)
}

func (s *ValidatorSuite) TestKidWithoutFragmentNeedsExactlyOneMethod() {
	doc := s.document()
	doc.VerificationMethods = append(doc.VerificationMethods, doc.VerificationMethods[0])
	s.resolver.EXPECT().Resolve(gomock.Any(), holderDID).Return(doc, nil)
	v := token.NewCredentialValidator(s.resolver)

	_, err := v.Validate(s.ctx, s.sign(s.claims(), map[string]string{"kid": holderDID}))
	s.assertBadRequest(err, "Since no key id was specified, the DID document must have exactly one verification method")
}

func (s *ValidatorSuite) TestClaimFailures() {
	cases := []struct {
		name   string
		mutate func(jwt.MapClaims)
		want   string
	}{
		{"missing jti", func(c jwt.MapClaims) { delete(c, "jti") }, "JTI not specified"},
		{"missing exp", func(c jwt.MapClaims) { delete(c, "exp") }, "Expiration not specified"},
		{"expired", func(c jwt.MapClaims) { c["exp"] = s.now.Add(-time.Second).Unix() }, "Token has expired"},
		{"exp equals now", func(c jwt.MapClaims) { c["exp"] = s.now.Unix() }, "Token has expired"},
		{"missing iat", func(c jwt.MapClaims) { delete(c, "iat") }, "IAT not specified"},
		{"iat in future", func(c jwt.MapClaims) { c["iat"] = s.now.Add(time.Minute).Unix() }, "Token issued in the future"},
		{"nbf in future", func(c jwt.MapClaims) { c["nbf"] = s.now.Add(time.Minute).Unix() }, "Token used before start"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			v := token.NewCredentialValidator(s.resolver)
			claims := s.claims()
			tc.mutate(claims)
			_, err := v.Validate(s.ctx, s.sign(claims, nil))
			s.assertBadRequest(err, tc.want)
		})
	}
}

func (s *ValidatorSuite) TestMalformedToken() {
	v := token.NewCredentialValidator(s.resolver)
	_, err := v.Validate(s.ctx, "not-a-jwt")
	s.Require().Error(err)
	s.Contains(dErrors.Message(err), "Invalid JWT: ")
}

func (s *ValidatorSuite) TestInvalidKid() {
	v := token.NewCredentialValidator(s.resolver)
	_, err := v.Validate(s.ctx, s.sign(s.claims(), map[string]string{"kid": "a#b#c"}))
	s.assertBadRequest(err, "Invalid kid: a#b#c")
}

func (s *ValidatorSuite) TestUnknownFragment() {
	s.expectResolve()
	v := token.NewCredentialValidator(s.resolver)
	_, err := v.Validate(s.ctx, s.sign(s.claims(), map[string]string{"kid": holderDID + "#other"}))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ValidatorSuite) TestResolutionFailureKeepsResolverError() {
	s.resolver.EXPECT().Resolve(gomock.Any(), holderDID).
		Return(nil, dErrors.New(dErrors.CodeInternal, "Unexpected response: 404"))
	v := token.NewCredentialValidator(s.resolver)

	_, err := v.Validate(s.ctx, s.sign(s.claims(), nil))
	s.Require().Error(err)
	s.Equal("Unexpected response: 404", dErrors.Message(err))
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ValidatorSuite) TestSignatureFromAnotherKey() {
	other, err := keys.GenerateEC()
	s.Require().NoError(err)
	otherSigner, err := keys.NewService(other)
	s.Require().NoError(err)
	s.expectResolve()

	raw, err := otherSigner.Sign(map[string]string{"kid": holderDID + "#" + s.signer.KeyID()}, s.claims())
	s.Require().NoError(err)

	_, err = token.NewCredentialValidator(s.resolver).Validate(s.ctx, raw)
	s.assertBadRequest(err, "JWT verification failed")
}

func (s *ValidatorSuite) TestJTIIsSingleUse() {
	s.expectResolve()
	v := token.NewCredentialValidator(s.resolver)
	raw := s.sign(s.claims(), nil)

	_, err := v.Validate(s.ctx, raw)
	s.Require().NoError(err)

	_, err = v.Validate(s.ctx, raw)
	s.assertBadRequest(err, "JTI already used")
}

func (s *ValidatorSuite) TestJTIConsumedEvenWhenLaterCheckFails() {
	v := token.NewCredentialValidator(s.resolver)
	claims := s.claims()
	claims["exp"] = s.now.Add(-time.Hour).Unix()
	raw := s.sign(claims, nil)

	_, err := v.Validate(s.ctx, raw)
	s.assertBadRequest(err, "Token has expired")
	_, err = v.Validate(s.ctx, raw)
	s.assertBadRequest(err, "JTI already used")
}

func (s *ValidatorSuite) TestJTIForgottenAfterTTL() {
	s.resolver.EXPECT().Resolve(gomock.Any(), holderDID).Return(s.document(), nil).Times(2)
	v := token.NewCredentialValidator(s.resolver, token.WithJTITTL(time.Nanosecond))
	raw := s.sign(s.claims(), nil)

	_, err := v.Validate(s.ctx, raw)
	s.Require().NoError(err)
	time.Sleep(time.Millisecond)
	_, err = v.Validate(s.ctx, raw)
	s.NoError(err)
}

func (s *ValidatorSuite) TestAudiencePolicy() {
	cases := []struct {
		name   string
		mutate func(jwt.MapClaims)
		want   string
	}{
		{"empty audience", func(c jwt.MapClaims) { delete(c, "aud") }, "Audience is empty"},
		{"other audience", func(c jwt.MapClaims) { c["aud"] = []string{"did:web:a", "did:web:b"} }, "Audience does not match: [did:web:a, did:web:b]"},
		{"iss differs from sub", func(c jwt.MapClaims) { c["sub"] = "did:web:someone" }, "Issuer and subject do not match"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			v := token.NewAudienceValidator(s.resolver, verifierDID)
			claims := s.claims()
			tc.mutate(claims)
			_, err := v.Validate(s.ctx, s.sign(claims, nil))
			s.assertBadRequest(err, tc.want)
		})
	}
}

func (s *ValidatorSuite) TestBindingFailureDoesNotConsumeJTI() {
	s.expectResolve()
	claims := s.claims()
	claims["aud"] = "did:web:elsewhere"
	first := token.NewAudienceValidator(s.resolver, verifierDID)

	raw := s.sign(claims, nil)
	_, err := first.Validate(s.ctx, raw)
	s.assertBadRequest(err, "Audience does not match: [did:web:elsewhere]")

	// the same validator still accepts a correctly addressed token with that jti
	claims["aud"] = verifierDID
	_, err = first.Validate(s.ctx, s.sign(claims, nil))
	s.NoError(err)
}

func (s *ValidatorSuite) TestCredentialPolicyIgnoresAudience() {
	s.expectResolve()
	claims := s.claims()
	delete(claims, "aud")
	claims["sub"] = "urn:uuid:credential"

	_, err := token.NewCredentialValidator(s.resolver).Validate(s.ctx, s.sign(claims, nil))
	s.NoError(err)
}

func (s *ValidatorSuite) TestMetricsRecordOutcome() {
	m := metrics.New(prometheus.NewRegistry())
	s.expectResolve()
	v := token.NewCredentialValidator(s.resolver, token.WithMetrics(m))

	raw := s.sign(s.claims(), nil)
	_, _ = v.Validate(s.ctx, raw)
	_, _ = v.Validate(s.ctx, raw)

	s.Equal(1.0, testutil.ToFloat64(m.TokenValidations.WithLabelValues(token.PolicyCredential, metrics.OutcomeSuccess)))
	s.Equal(1.0, testutil.ToFloat64(m.TokenValidations.WithLabelValues(token.PolicyCredential, metrics.OutcomeFailure)))
}

func (s *ValidatorSuite) TestConcurrentReplayHasOneWinner() {
	s.resolver.EXPECT().Resolve(gomock.Any(), holderDID).Return(s.document(), nil).AnyTimes()
	v := token.NewCredentialValidator(s.resolver)
	raw := s.sign(s.claims(), nil)

	result := platformtestutil.RunConcurrent(20, func(int) error {
		_, err := v.Validate(s.ctx, raw)
		return err
	})
	s.EqualValues(1, result.Successes)
	s.EqualValues(19, result.Failures())
}
