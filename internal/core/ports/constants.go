package ports

import "time"

const (
	// MaxListRows caps admin list endpoints.
	MaxListRows = 500

	// MutationTimeout bounds a single coordinator invocation including its
	// store calls. On expiry the batch either fully committed or not at all.
	MutationTimeout = 10 * time.Second
)
