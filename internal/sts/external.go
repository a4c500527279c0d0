package sts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-jwt/jwt/v5"

	"dcptck/internal/message"
	"dcptck/internal/platform/tracer"
	dErrors "dcptck/pkg/domain-errors"
)

const maxTokenResponseBytes = 1 << 20

type externalSTS struct {
	url          string
	clientID     string
	clientSecret string
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// requestRemoteAccessToken runs a client credentials grant against the
// external STS and returns the inner access token carried in the "token"
// claim of the issued JWT. Transport failures and 5xx answers are retried.
func (s *Server) requestRemoteAccessToken(ctx context.Context, audience, scopes string) (token string, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanExternalTokenRequest,
		tracer.String(tracer.AttrURL, s.external.url),
	)
	defer func() { span.End(err) }()

	form := url.Values{
		"grant_type":          {"client_credentials"},
		"client_id":           {s.external.clientID},
		"client_secret":       {s.external.clientSecret},
		"audience":            {audience},
		"bearer_access_scope": {scopes},
	}

	var body []byte
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	op := func() error {
		b, postErr := s.postForm(ctx, form)
		if postErr != nil {
			return postErr
		}
		body = b
		return nil
	}
	notify := func(err error, wait time.Duration) {
		s.logger.WarnContext(ctx, "external sts request failed, retrying",
			"error", err,
			"wait", wait,
		)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(policy, s.retries), ctx), notify); err != nil {
		return "", err
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", dErrors.New(dErrors.CodeInternal, "Failed to parse token: "+err.Error())
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(resp.AccessToken, jwt.MapClaims{})
	if err != nil {
		return "", dErrors.New(dErrors.CodeInternal, "Failed to parse token: "+err.Error())
	}
	claims, _ := parsed.Claims.(jwt.MapClaims)
	inner, ok := claims[message.TokenClaim].(string)
	if !ok {
		return "", dErrors.New(dErrors.CodeInternal, "Failed to parse token: missing token claim")
	}
	return inner, nil
}

func (s *Server) postForm(ctx context.Context, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.external.url+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, backoff.Permanent(dErrors.New(dErrors.CodeInternal, "Error requesting token: "+err.Error()))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := s.client.Do(req)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInternal, "Error requesting token: "+err.Error())
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		failure := dErrors.New(dErrors.CodeInternal, fmt.Sprintf("Request failed with HTTP code %d", res.StatusCode))
		if res.StatusCode >= 500 {
			return nil, failure
		}
		return nil, backoff.Permanent(failure)
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, maxTokenResponseBytes))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInternal, "Error requesting token: "+err.Error())
	}
	return body, nil
}
