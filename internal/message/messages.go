package message

import (
	"encoding/json"
	"slices"

	dErrors "dcptck/pkg/domain-errors"
)

// CredentialContainer is one issued credential inside a CredentialMessage.
type CredentialContainer struct {
	CredentialType string `json:"credentialType"`
	Payload        string `json:"payload"`
	Format         string `json:"format"`
}

// CredentialMessage delivers issued credentials to a holder.
type CredentialMessage struct {
	Context     []string              `json:"@context,omitempty"`
	Type        string                `json:"type"`
	IssuerPid   string                `json:"issuerPid"`
	HolderPid   string                `json:"holderPid"`
	Status      string                `json:"status"`
	Credentials []CredentialContainer `json:"credentials"`
}

// NewCredentialMessage returns an ISSUED message.
func NewCredentialMessage(issuerPid, holderPid string, credentials []CredentialContainer) CredentialMessage {
	return CredentialMessage{
		Context:     []string{DCPNamespace},
		Type:        TypeCredentialMessage,
		IssuerPid:   issuerPid,
		HolderPid:   holderPid,
		Status:      StatusIssued,
		Credentials: credentials,
	}
}

func (m *CredentialMessage) Validate() error {
	switch {
	case m.Status != StatusIssued && m.Status != StatusRejected:
		return dErrors.Newf(dErrors.CodeBadRequest, "invalid credential message status: %q", m.Status)
	case m.IssuerPid == "" || m.HolderPid == "":
		return dErrors.New(dErrors.CodeBadRequest, "issuerPid and holderPid are required")
	case len(m.Credentials) == 0:
		return dErrors.New(dErrors.CodeBadRequest, "credentials must not be empty")
	}
	return nil
}

// CredentialObject references a credential the issuer can produce.
type CredentialObject struct {
	ID               string         `json:"id"`
	Type             string         `json:"type,omitempty"`
	CredentialType   string         `json:"credentialType,omitempty"`
	BindingMethods   []string       `json:"bindingMethods,omitempty"`
	Profile          string         `json:"profile,omitempty"`
	IssuancePolicy   map[string]any `json:"issuancePolicy,omitempty"`
	OfferReason      string         `json:"offerReason,omitempty"`
	CredentialSchema string         `json:"credentialSchema,omitempty"`
}

// Valid accepts either a bare id reference or a fully typed object.
func (o *CredentialObject) Valid() bool {
	if o.ID == "" {
		return false
	}
	if o.Type == "" && o.CredentialType == "" {
		return true
	}
	return o.Type != "" && o.CredentialType != ""
}

// CredentialRequestMessage asks an issuer for credentials.
type CredentialRequestMessage struct {
	Context     []string           `json:"@context,omitempty"`
	Type        string             `json:"type"`
	HolderPid   string             `json:"holderPid"`
	Credentials []CredentialObject `json:"credentials"`
}

func (m *CredentialRequestMessage) Validate() error {
	if m.Type == "" || m.HolderPid == "" || len(m.Credentials) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "type, holderPid and credentials are required")
	}
	for i := range m.Credentials {
		if !m.Credentials[i].Valid() {
			return dErrors.Newf(dErrors.CodeBadRequest, "invalid credential object at index %d", i)
		}
	}
	return nil
}

// OfferedCredential is a credential object inside an offer.
type OfferedCredential struct {
	Type             string         `json:"type"`
	CredentialType   string         `json:"credentialType"`
	BindingMethods   []string       `json:"bindingMethods,omitempty"`
	Profiles         []string       `json:"profiles,omitempty"`
	IssuancePolicy   map[string]any `json:"issuancePolicy,omitempty"`
	OfferReason      string         `json:"offerReason,omitempty"`
	CredentialSchema string         `json:"credentialSchema,omitempty"`
}

func (o *OfferedCredential) Valid() bool {
	return o.Type != "" && o.CredentialType != ""
}

// CredentialOfferMessage announces credentials an issuer is willing to issue.
type CredentialOfferMessage struct {
	Context     []string            `json:"@context,omitempty"`
	Type        string              `json:"type"`
	Issuer      string              `json:"issuer"`
	Credentials []OfferedCredential `json:"credentials"`
}

func (m *CredentialOfferMessage) Validate() error {
	if m.Type == "" || m.Issuer == "" || len(m.Credentials) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "type, issuer and credentials are required")
	}
	for i := range m.Credentials {
		if !m.Credentials[i].Valid() {
			return dErrors.Newf(dErrors.CodeBadRequest, "invalid offered credential at index %d", i)
		}
	}
	return nil
}

// CredentialStatus reports the state of an issuance request.
type CredentialStatus struct {
	Context   []string `json:"@context,omitempty"`
	Type      string   `json:"type"`
	IssuerPid string   `json:"issuerPid"`
	HolderPid string   `json:"holderPid"`
	Status    string   `json:"status"`
}

func (s *CredentialStatus) Validate() error {
	if !slices.Contains([]string{StatusIssued, StatusReceived, StatusRejected}, s.Status) {
		return dErrors.Newf(dErrors.CodeBadRequest, "invalid credential status: %q", s.Status)
	}
	if s.IssuerPid == "" || s.HolderPid == "" {
		return dErrors.New(dErrors.CodeBadRequest, "issuerPid and holderPid are required")
	}
	return nil
}

// PresentationQueryMessage requests presentations by scope or by
// presentation definition, never both.
type PresentationQueryMessage struct {
	Context                []string       `json:"@context,omitempty"`
	Type                   string         `json:"type"`
	Scope                  []string       `json:"scope,omitempty"`
	PresentationDefinition map[string]any `json:"presentationDefinition,omitempty"`
}

// NewPresentationQuery builds a scope based query.
func NewPresentationQuery(scopes ...string) PresentationQueryMessage {
	return PresentationQueryMessage{
		Context: []string{DCPContext},
		Type:    TypePresentationQuery,
		Scope:   scopes,
	}
}

// PresentationResponseMessage carries JWT encoded presentations.
type PresentationResponseMessage struct {
	Context      []string `json:"@context,omitempty"`
	Type         string   `json:"type"`
	Presentation []string `json:"presentation"`
}

// NewPresentationResponse wraps vps.
func NewPresentationResponse(vps ...string) PresentationResponseMessage {
	return PresentationResponseMessage{
		Context:      []string{DCPNamespace},
		Type:         TypePresentationResponse,
		Presentation: vps,
	}
}

// IssuerMetadata lists the credentials an issuer supports.
type IssuerMetadata struct {
	Context              []string           `json:"@context,omitempty"`
	Type                 string             `json:"type"`
	Issuer               string             `json:"issuer"`
	CredentialsSupported []CredentialObject `json:"credentialsSupported"`
}

// PeekType reads the type member of a raw message.
func PeekType(raw []byte) (string, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeBadRequest, "Invalid JSON")
	}
	return head.Type, nil
}

// Decode unmarshals raw into T, reporting malformed JSON as a bad request.
func Decode[T any](raw []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "Invalid message")
	}
	return &v, nil
}
