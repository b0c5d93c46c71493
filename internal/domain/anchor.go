package domain

import (
	"context"
	"time"
)

// AnchorClient persists attestations to an external, ideally immutable, store.
// Store fails with ErrAnchoringUnavailable on transport failure; Retrieve fails with
// ErrNotFound for ids the store does not know. Callers own retries.
type AnchorClient interface {
	Store(ctx context.Context, att BatchAttestation) (txID string, err error)
	Retrieve(ctx context.Context, txID string) (BatchAttestation, error)
}

type AnchorAttempt struct {
	Backend     string
	Operation   string
	TxID        string
	Status      string
	ErrorCode   string
	PayloadHash string
	RootHash    string
	RecordCount int
	Duration    time.Duration
	CreatedAt   time.Time
}

const (
	AnchorOpStore    = "store"
	AnchorOpRetrieve = "retrieve"
)

const (
	AnchorStatusAnchored  = "anchored"
	AnchorStatusRetrieved = "retrieved"
	AnchorStatusFailed    = "failed"
)

const (
	AnchorErrorUnavailable = "UNAVAILABLE"
	AnchorErrorTimeout     = "TIMEOUT"
	AnchorErrorNotFound    = "NOT_FOUND"
	AnchorErrorRejected    = "REJECTED"
)

type AnchorAttemptRepository interface {
	Append(ctx context.Context, attempt AnchorAttempt) error
	ListByPayloadHash(ctx context.Context, payloadHash string) ([]AnchorAttempt, error)
}
