package contextkeys

// contextKey is an unexported type for context keys to avoid collisions.
type contextKey string

const (
	// RequestIDKey is the context key for storing and retrieving a request ID.
	RequestIDKey contextKey = "request_id"

	// ConnectionIDKey identifies one logical connection attempt; a new ID is
	// minted for every (re)connect cycle.
	ConnectionIDKey contextKey = "connection_id"

	// TagKey is the context key for the manager's diagnostics tag.
	TagKey contextKey = "tag"
)

// String makes contextKey satisfy fmt.Stringer to help with debugging/logging of keys themselves.
func (c contextKey) String() string {
	return string(c)
}
