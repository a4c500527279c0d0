// Package message assembles and parses the DCP JSON message envelopes.
package message

// Protocol vocabulary.
const (
	DCPContext   = "https://w3id.org/dspace-dcp/v1.0/dcp.jsonld"
	DCPNamespace = "https://w3id.org/dspace-dcp/v1.0"

	ContextKey = "@context"
	IDKey      = "id"
	TypeKey    = "type"

	TokenClaim                = "token"
	VCClaim                   = "vc"
	VPClaim                   = "vp"
	VerifiableCredentialClaim = "verifiableCredential"

	PresentationKey           = "presentation"
	ScopeKey                  = "scope"
	PresentationDefinitionKey = "presentationDefinition"

	// ScopeTypeAlias prefixes every credential type scope.
	ScopeTypeAlias = "org.eclipse.dspace.dcp.vc.type:"

	AuthorizationHeader = "Authorization"

	CredentialServiceType = "CredentialService"
	IssuerServiceType     = "IssuerService"
	PresentationQueryPath = "/presentations/query"
	CredentialsPath       = "/credentials"
)

// Message types.
const (
	TypePresentationQuery    = "PresentationQueryMessage"
	TypePresentationResponse = "PresentationResponseMessage"
	TypeCredentialMessage    = "CredentialMessage"
	TypeCredentialRequest    = "CredentialRequestMessage"
	TypeCredentialOffer      = "CredentialOfferMessage"
	TypeIssuerMetadata       = "IssuerMetadata"
	TypeCredentialStatus     = "CredentialStatus"
)

// Credential request lifecycle states.
const (
	StatusIssued   = "ISSUED"
	StatusReceived = "RECEIVED"
	StatusRejected = "REJECTED"
)
