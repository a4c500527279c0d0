package request

import (
	"net/http"
)

// DefaultMaxBodyBytes bounds DCP message bodies. Credential messages carry
// a handful of JWTs, well under this.
const DefaultMaxBodyBytes int64 = 1 << 20

// BodyLimit caps request bodies at maxBytes. Reads past the cap fail, so
// JSON decoding of an oversized message reports a bad request.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
