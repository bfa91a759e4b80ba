package domain

import (
	"context"
)

// Keys persisted in the client state store.
const (
	StateKeyAuthToken = "authToken"
	StateKeyUserEmail = "userEmail"
)

// StateRepository is the local key-value store backing the session.
type StateRepository interface {
	// Get returns ("", false, nil) when the key is absent.
	Get(ctx context.Context, key string) (string, bool, error)
	// Put writes all values in a single transaction.
	Put(ctx context.Context, values map[string]string) error
	// Delete removes the keys in a single transaction. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}
