package adapters

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"poetry-export/internal/ports"
	"poetry-export/internal/shared"
	"poetry-export/internal/types"
)

// CredentialAdapter resolves source credentials from configuration keys
// http_basic.<source>.username/password, falling back to the package
// manager's POETRY_HTTP_BASIC_<SOURCE>_USERNAME/_PASSWORD variables.
type CredentialAdapter struct {
	Config *viper.Viper
	Getenv func(string) string
}

func NewCredentialAdapter(config *viper.Viper) CredentialAdapter {
	return CredentialAdapter{Config: config, Getenv: os.Getenv}
}

func (a CredentialAdapter) Credentials(source string) (types.Credential, bool) {
	key := shared.NormalizePipName(source)
	var credential types.Credential
	if a.Config != nil {
		credential.Username = a.Config.GetString(fmt.Sprintf("http_basic.%s.username", key))
		credential.Password = a.Config.GetString(fmt.Sprintf("http_basic.%s.password", key))
	}
	if credential.Username == "" && a.Getenv != nil {
		prefix := "POETRY_HTTP_BASIC_" + envKey(source)
		credential.Username = a.Getenv(prefix + "_USERNAME")
		credential.Password = a.Getenv(prefix + "_PASSWORD")
	}
	if credential.Username == "" {
		return types.Credential{}, false
	}
	return credential, true
}

func envKey(source string) string {
	replacer := strings.NewReplacer("-", "_", ".", "_", " ", "_")
	return strings.ToUpper(replacer.Replace(source))
}

var _ ports.CredentialPort = CredentialAdapter{}
