// Package vc models W3C verifiable credentials and JWT presentations as they
// travel through DCP flows.
package vc

import "fmt"

// Credential data model contexts.
const (
	ContextV1 = "https://www.w3.org/2018/credentials/v1"
	ContextV2 = "https://www.w3.org/ns/credentials/v2"
)

const (
	TypeVerifiableCredential   = "VerifiableCredential"
	TypeVerifiablePresentation = "VerifiablePresentation"
)

// Format identifies how a credential is secured.
type Format string

const (
	FormatVC1JWT   Format = "VC1_0_JWT"
	FormatVC1LD    Format = "VC1_0_LD"
	FormatVC2JOSE  Format = "VC2_0_JOSE"
	FormatVC2SDJWT Format = "VC2_0_SD_JWT"
	FormatVC2COSE  Format = "VC2_0_COSE"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatVC1JWT, FormatVC1LD, FormatVC2JOSE, FormatVC2SDJWT, FormatVC2COSE:
		return f, nil
	default:
		return "", fmt.Errorf("unknown credential format %q", s)
	}
}
