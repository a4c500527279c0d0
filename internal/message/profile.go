package message

// Credential types and scopes of the conformance test profile.
const (
	MembershipCredentialType    = "MembershipCredential"
	SensitiveDataCredentialType = "SensitiveDataCredential"

	MembershipScope    = ScopeTypeAlias + MembershipCredentialType + ":read"
	SensitiveDataScope = ScopeTypeAlias + SensitiveDataCredentialType + ":read"
)
