package ports

import "context"

// StoredResponse is the entry kept for an Idempotency-Key. While the first
// request is still running the entry is Pending and carries no response.
type StoredResponse struct {
	Pending     bool   `json:"pending,omitempty"`
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// IdempotencyStore remembers responses per caller scope and key.
type IdempotencyStore interface {
	// Reserve atomically claims key with a pending entry for the request
	// identified by fingerprint. It returns nil when the claim succeeded and
	// the existing entry otherwise.
	Reserve(ctx context.Context, scope, key, fingerprint string) (*StoredResponse, error)
	// Complete replaces the pending entry with the final response.
	Complete(ctx context.Context, scope, key string, resp StoredResponse) error
	// Release drops a pending claim so the key can be retried.
	Release(ctx context.Context, scope, key string) error
}
