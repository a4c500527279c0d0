package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"dcptck/internal/admin"
	"dcptck/internal/crypto/keys"
	"dcptck/internal/message"
	"dcptck/pkg/platform/httpclient"
)

const (
	serverFlagName     = "server"
	serverEnvKey       = "DCP_BASE_URL"
	adminTokenFlagName = "admin-token"
	adminTokenEnvKey   = "DCP_ADMIN_TOKEN"
	audienceFlagName   = "audience"
	scopeFlagName      = "scope"
	issuerFlagName     = "issuer"
	ttlFlagName        = "ttl"
	claimFlagName      = "claim"

	defaultServer = "http://localhost:8083"
)

// accessCmd asks the engine's holder for an ID token carrying an access
// token, the input of the verifier trigger endpoint.
func accessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "access",
		Short: "Obtain a holder ID token with an access token for a verifier",
		Long: "Calls POST /admin/tokens on a running engine. Scopes without the " +
			message.ScopeTypeAlias + " prefix are expanded to <alias><type>:read.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			server, err := getUserSetVar(cmd, serverFlagName, serverEnvKey, defaultServer)
			if err != nil {
				return err
			}
			adminToken, err := getUserSetVar(cmd, adminTokenFlagName, adminTokenEnvKey, "")
			if err != nil {
				return err
			}
			audience, err := cmd.Flags().GetString(audienceFlagName)
			if err != nil {
				return err
			}
			scopes, err := cmd.Flags().GetStringSlice(scopeFlagName)
			if err != nil {
				return err
			}
			tok, err := requestAccessToken(cmd.Context(), httpclient.New(), server, adminToken, admin.TokenRequest{
				Audience: audience,
				Scopes:   expandScopes(scopes),
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().String(serverFlagName, "", "Engine base URL. Alternatively, this can be set with the "+serverEnvKey+" env var.")
	cmd.Flags().String(adminTokenFlagName, "", "Admin token. Alternatively, this can be set with the "+adminTokenEnvKey+" env var.")
	cmd.Flags().String(audienceFlagName, "", "Verifier DID the token is addressed to")
	cmd.Flags().StringSlice(scopeFlagName, []string{message.MembershipCredentialType}, "Credential types or full scopes to grant")
	_ = cmd.MarkFlagRequired(audienceFlagName)
	return cmd
}

// selfCmd signs a token with a throwaway key. The token only resolves if
// its issuer DID document publishes the printed JWK.
func selfCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "self",
		Short: "Sign a self-issued ID token with a fresh P-256 key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			iss, _ := cmd.Flags().GetString(issuerFlagName)
			aud, _ := cmd.Flags().GetString(audienceFlagName)
			ttl, _ := cmd.Flags().GetDuration(ttlFlagName)
			extra, _ := cmd.Flags().GetStringToString(claimFlagName)

			out, err := selfSigned(iss, aud, ttl, extra, time.Now())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().String(issuerFlagName, "", "Issuer and subject DID")
	cmd.Flags().String(audienceFlagName, "", "Audience DID")
	cmd.Flags().Duration(ttlFlagName, 5*time.Minute, "Token lifetime")
	cmd.Flags().StringToString(claimFlagName, nil, "Additional string claims, e.g. --claim token=abc")
	_ = cmd.MarkFlagRequired(issuerFlagName)
	_ = cmd.MarkFlagRequired(audienceFlagName)
	return cmd
}

func getUserSetVar(cmd *cobra.Command, flagName, envKey, def string) (string, error) {
	if cmd.Flags().Changed(flagName) {
		return cmd.Flags().GetString(flagName)
	}
	if value, ok := os.LookupEnv(envKey); ok && value != "" {
		return value, nil
	}
	if def == "" {
		return "", fmt.Errorf("neither %s (command line flag) nor %s (environment variable) have been set", flagName, envKey)
	}
	return def, nil
}

func expandScopes(scopes []string) []string {
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if !strings.HasPrefix(s, message.ScopeTypeAlias) {
			s = message.ScopeTypeAlias + s + ":read"
		}
		out = append(out, s)
	}
	return out
}

func requestAccessToken(ctx context.Context, client *http.Client, server, adminToken string, req admin.TokenRequest) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode token request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(server, "/")+"/admin/tokens", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Admin-Token", adminToken)

	res, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request failed with HTTP code %d: %s", res.StatusCode, strings.TrimSpace(string(data)))
	}
	var out admin.TokenResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	return out.Token, nil
}

type selfSignedOutput struct {
	Token     string         `json:"token"`
	KeyID     string         `json:"kid"`
	PublicJWK map[string]any `json:"publicKeyJwk"`
	ExpiresAt time.Time      `json:"expires_at"`
}

func selfSigned(iss, aud string, ttl time.Duration, extra map[string]string, now time.Time) (*selfSignedOutput, error) {
	kp, err := keys.GenerateEC()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	svc, err := keys.NewService(kp)
	if err != nil {
		return nil, fmt.Errorf("load key: %w", err)
	}
	claims := jwt.MapClaims{
		"iss": iss,
		"sub": iss,
		"aud": aud,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	tok, err := svc.Sign(nil, claims)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &selfSignedOutput{
		Token:     tok,
		KeyID:     iss + "#" + svc.KeyID(),
		PublicJWK: svc.PublicJWK(),
		ExpiresAt: now.Add(ttl).UTC(),
	}, nil
}
