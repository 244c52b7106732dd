package publish

import (
	"fmt"
	"net/http"
	"os"
)

// Credential is an upload token resolved once at deploy time from the
// hosting environment. It is deliberately opaque: the token is never
// logged, never serialized, and never persisted after the run.
type Credential struct {
	token string
}

// ResolveCredential reads the token from the named environment variable.
// Resolution happens exactly once, immediately before publishing.
func ResolveCredential(envVar string) (Credential, error) {
	token := os.Getenv(envVar)
	if token == "" {
		return Credential{}, fmt.Errorf("credential environment variable %s is not set", envVar)
	}
	return Credential{token: token}, nil
}

// Empty reports whether no token has been resolved.
func (c Credential) Empty() bool {
	return c.token == ""
}

// String implements fmt.Stringer so accidental formatting of a credential
// can never reveal the token.
func (c Credential) String() string {
	return "[redacted]"
}

// GoString keeps %#v output redacted as well.
func (c Credential) GoString() string {
	return "publish.Credential{token: [redacted]}"
}

// authorize attaches the token to an outgoing request.
func (c Credential) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
}
