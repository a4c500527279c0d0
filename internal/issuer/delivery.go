package issuer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"dcptck/internal/message"
	"dcptck/internal/platform/tracer"
	dErrors "dcptck/pkg/domain-errors"
	"dcptck/pkg/platform/httputil"
	"dcptck/pkg/platform/middleware/requesttime"
)

const maxResponseBytes = 1 << 20

// deliverLater waits the delivery delay and sends msg to the holder. The
// request stays RECEIVED when delivery fails.
func (s *Service) deliverLater(holderDID string, msg *message.CredentialMessage) {
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-s.ctx.Done():
		return
	case <-timer.C:
	}

	if err := s.deliver(s.ctx, holderDID, msg); err != nil {
		s.logger.Error("credential delivery failed",
			"holder", holderDID,
			"issuer_pid", msg.IssuerPid,
			"error", err,
		)
		return
	}
	s.setStatus(msg.IssuerPid, message.StatusIssued)
	s.logger.Info("credentials delivered",
		"holder", holderDID,
		"issuer_pid", msg.IssuerPid,
	)
}

// IssueCredentials generates the membership and sensitive data credentials
// for holderDID and delivers them at once under holderPid. The holder must
// already expect a write from this issuer for holderPid.
func (s *Service) IssueCredentials(ctx context.Context, holderDID, holderPid string) error {
	containers := make([]message.CredentialContainer, 0, 2)
	for _, credentialType := range []string{message.MembershipCredentialType, message.SensitiveDataCredentialType} {
		c, err := s.issue(ctx, credentialType, holderDID, map[string]any{"foo": "bar"})
		if err != nil {
			return err
		}
		containers = append(containers, c)
	}
	msg := message.NewCredentialMessage(uuid.NewString(), holderPid, containers)
	if err := s.deliver(ctx, holderDID, &msg); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "Failed to seed credentials")
	}
	return nil
}

// deliver posts msg to the holder's credential service, retrying transport
// failures and 5xx answers.
func (s *Service) deliver(ctx context.Context, holderDID string, msg *message.CredentialMessage) (err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanCredentialDelivery,
		tracer.String(tracer.AttrDID, holderDID),
		tracer.Int(tracer.AttrCredentials, len(msg.Credentials)),
	)
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveCredentialDelivery(err == nil)
		}
		span.End(err)
	}()

	doc, err := s.resolver.Resolve(ctx, holderDID)
	if err != nil {
		return err
	}
	svc, err := doc.Service(message.CredentialServiceType)
	if err != nil {
		return err
	}
	endpoint := svc.ServiceEndpoint + message.CredentialsPath
	span.SetAttributes(tracer.String(tracer.AttrURL, endpoint))

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode credential message: %w", err)
	}

	op := func() error {
		// a fresh token per attempt keeps the jti unique
		idToken, signErr := s.deliveryToken(ctx, holderDID)
		if signErr != nil {
			return backoff.Permanent(signErr)
		}
		return s.post(ctx, endpoint, idToken, body)
	}
	notify := func(opErr error, wait time.Duration) {
		s.logger.WarnContext(ctx, "retrying credential delivery",
			"holder", holderDID,
			"error", opErr,
			"wait", wait,
		)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	return backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, s.retries), ctx), notify)
}

func (s *Service) deliveryToken(ctx context.Context, holderDID string) (string, error) {
	now := requesttime.Now(ctx)
	tok, err := s.signer.Sign(nil, jwt.MapClaims{
		"iss": s.issuerDID,
		"sub": s.issuerDID,
		"aud": holderDID,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(DeliveryTokenLifetime).Unix(),
	})
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "Error signing delivery token")
	}
	return tok, nil
}

func (s *Service) post(ctx context.Context, endpoint, idToken string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build delivery request: %w", err))
	}
	req.Header.Set("Content-Type", httputil.ContentTypeJSON)
	req.Header.Set(message.AuthorizationHeader, "Bearer "+idToken)

	res, err := s.client.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "Error delivering credentials")
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxResponseBytes))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		err := dErrors.Newf(dErrors.CodeInternal, "Credential delivery failed with HTTP code %d", res.StatusCode)
		if res.StatusCode < 500 {
			return backoff.Permanent(err)
		}
		return err
	}
	return nil
}
