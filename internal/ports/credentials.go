package ports

import "poetry-export/internal/types"

// CredentialPort looks up HTTP basic credentials for a named source.
type CredentialPort interface {
	Credentials(source string) (types.Credential, bool)
}
