package did

import (
	"dcptck/internal/message"
)

const verificationMethodType = "JsonWebKey2020"

// PublicKeySource is the part of a key service needed to publish a document.
type PublicKeySource interface {
	KeyID() string
	PublicJWK() map[string]any
}

// Service builds the DID document a hosted role publishes about itself.
type Service struct {
	did          string
	baseEndpoint string
	keys         PublicKeySource
	serviceID    string
	serviceType  string
}

// NewService describes a holder or verifier: one CredentialService endpoint.
func NewService(did, baseEndpoint string, keys PublicKeySource) *Service {
	return &Service{
		did:          did,
		baseEndpoint: baseEndpoint,
		keys:         keys,
		serviceID:    "TCK-Credential-Service",
		serviceType:  message.CredentialServiceType,
	}
}

// NewIssuerService describes an issuer: one IssuerService endpoint.
func NewIssuerService(did, baseEndpoint string, keys PublicKeySource) *Service {
	s := NewService(did, baseEndpoint, keys)
	s.serviceID = "TCK-Issuer-Service"
	s.serviceType = message.IssuerServiceType
	return s
}

// DID returns the identifier the document is published for.
func (s *Service) DID() string {
	return s.did
}

// Document returns a fresh copy of the role's document.
func (s *Service) Document() *Document {
	return &Document{
		ID:      s.did,
		Context: []string{ContextDIDv1, message.DCPNamespace},
		Services: []ServiceEntry{{
			ID:              s.serviceID,
			Type:            s.serviceType,
			ServiceEndpoint: s.baseEndpoint,
		}},
		VerificationMethods: []VerificationMethod{{
			ID:           s.did + "#" + s.keys.KeyID(),
			Type:         verificationMethodType,
			Controller:   s.did,
			PublicKeyJwk: s.keys.PublicJWK(),
		}},
	}
}
