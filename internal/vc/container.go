package vc

// Container ties a raw credential to its parsed form and format.
type Container struct {
	RawCredential string
	Credential    *VerifiableCredential
	Format        Format
}

// NewContainer panics when any part is missing.
func NewContainer(raw string, credential *VerifiableCredential, format Format) Container {
	switch {
	case raw == "":
		panic("raw credential is required")
	case credential == nil:
		panic("credential is required")
	case format == "":
		panic("credential format is required")
	}
	return Container{RawCredential: raw, Credential: credential, Format: format}
}
