package memstore

import (
	"context"
	"fmt"
	"sync"

	"batchattest/internal/domain"
	"batchattest/internal/infra/anchor"
	"batchattest/internal/infra/codec"

	"github.com/google/uuid"
)

// Store is an in-process anchoring backend. Entries are kept in their canonical
// encoded form so callers cannot mutate what was anchored.
type Store struct {
	mu        sync.RWMutex
	entries   map[string][]byte
	byPayload map[string]string
}

func New() *Store {
	return &Store{
		entries:   make(map[string][]byte),
		byPayload: make(map[string]string),
	}
}

func (s *Store) Name() string {
	return "memory"
}

// Store returns the existing transaction id when the same attestation was
// anchored before.
func (s *Store) Store(ctx context.Context, att domain.BatchAttestation) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	payload, err := anchor.BuildPayload(att)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if txID, ok := s.byPayload[payload.HashHex]; ok {
		return txID, nil
	}
	txID := uuid.NewString()
	s.entries[txID] = payload.CanonicalJSON
	s.byPayload[payload.HashHex] = txID
	return txID, nil
}

func (s *Store) Retrieve(ctx context.Context, txID string) (domain.BatchAttestation, error) {
	if err := ctx.Err(); err != nil {
		return domain.BatchAttestation{}, err
	}
	s.mu.RLock()
	encoded, ok := s.entries[txID]
	s.mu.RUnlock()
	if !ok {
		return domain.BatchAttestation{}, fmt.Errorf("%w: transaction %s", domain.ErrNotFound, txID)
	}
	return codec.Decode(encoded, codec.FormatJSON)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ anchor.Backend = (*Store)(nil)
