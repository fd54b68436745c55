package statekeys

import "fmt"

// Keys for the small connection state persisted across process restarts.
// Each manager instance namespaces its keys by the configured diagnostics
// tag, so multiple profiles can share one store.

// IdentityKey is where the last-used identity/username is stored.
func IdentityKey(tag string) string {
	return fmt.Sprintf("conn_state:%s:identity", tag)
}

// CredentialKey is where the last-used credential/token is stored.
func CredentialKey(tag string) string {
	return fmt.Sprintf("conn_state:%s:credential", tag)
}
