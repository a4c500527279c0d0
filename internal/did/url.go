package did

import (
	"net/url"
	"strings"

	dErrors "dcptck/pkg/domain-errors"
)

const (
	didScheme    = "did"
	webPrefix    = "web:"
	wellKnown    = "/.well-known"
	documentName = "/did.json"
)

// URLFromDID maps a did:web identifier to the URL of its document.
//
// Colon separated segments after the host become path segments and the
// result is percent decoded, so did:web:example.com%3A3000:verifier maps to
// <scheme>://example.com:3000/verifier/did.json. A DID without path segments
// maps to /.well-known/did.json.
func URLFromDID(did, scheme string) (string, error) {
	i := strings.IndexByte(did, ':')
	if i < 0 || did[:i] != didScheme {
		return "", dErrors.Newf(dErrors.CodeBadRequest, "Unsupported DID scheme: %s", did)
	}
	part := did[i+1:]
	if !strings.HasPrefix(part, webPrefix) {
		return "", dErrors.Newf(dErrors.CodeBadRequest, "Invalid DID format, the URN must specify the 'web' DID Method: %s", did)
	}
	if strings.HasSuffix(part, ":") {
		return "", dErrors.Newf(dErrors.CodeBadRequest, "Invalid DID format, the URN must not end with ':': %s", did)
	}
	host := strings.ReplaceAll(strings.TrimPrefix(part, webPrefix), ":", "/")
	if host == "" || strings.HasPrefix(host, "/") {
		return "", dErrors.Newf(dErrors.CodeBadRequest, "Invalid DID format, missing host: %s", did)
	}

	address := scheme + "://" + host
	if !strings.Contains(host, "/") {
		address += wellKnown
	}
	decoded, err := url.PathUnescape(address + documentName)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeBadRequest, "Invalid DID encoding: "+did)
	}
	return decoded, nil
}

// hostOf returns the authority part of a resolved document URL. It keys the
// per-host circuit breakers.
func hostOf(address string) string {
	u, err := url.Parse(address)
	if err != nil || u.Host == "" {
		return address
	}
	return u.Host
}
