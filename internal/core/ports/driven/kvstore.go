package driven

// Well-known keys in the KeyValueStore.
//
//nolint:gosec // G101: These are key names, not actual credentials.
const (
	KeySessions        = "chat_sessions"
	KeyCurrentSession  = "current_session_id"
	KeyEmbeddingAPIKey = "embedding_api_key"
	KeyAuthToken       = "auth_token"
)

// KeyValueStore is a small persistent store for scalar and blob state.
// It replaces ambient global storage: services receive it explicitly.
type KeyValueStore interface {
	// Get returns the value for key, or domain.ErrNotFound.
	Get(key string) ([]byte, error)

	// Set stores the value and notifies subscribers of the key.
	Set(key string, value []byte) error

	// Delete removes the key and notifies subscribers with a nil value.
	// Deleting a missing key is not an error.
	Delete(key string) error

	// Subscribe registers fn to be called after every change to key.
	// The returned function removes the subscription.
	Subscribe(key string, fn func(value []byte)) (unsubscribe func())

	// Close releases resources.
	Close() error
}
