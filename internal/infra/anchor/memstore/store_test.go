package memstore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"batchattest/internal/domain"

	"github.com/google/uuid"
)

func sampleAttestation(root string) domain.BatchAttestation {
	return domain.NewBatchAttestation(
		strings.Repeat(root, 32),
		time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		[]domain.RecordRef{
			{LogicalKey: "UID-1", Index: 0},
			{LogicalKey: "UID-2", Index: 1},
			{LogicalKey: "UID-3", Index: 2},
		},
		domain.LeafEncodingV1,
	)
}

func TestStoreAndRetrieve(t *testing.T) {
	store := New()
	txID, err := store.Store(context.Background(), sampleAttestation("aa"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, err := uuid.Parse(txID); err != nil {
		t.Fatalf("expected uuid transaction id, got %q", txID)
	}
	got, err := store.Retrieve(context.Background(), txID)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if got.RootHash != strings.Repeat("aa", 32) || got.RecordCount != 3 {
		t.Fatalf("unexpected attestation: %+v", got)
	}
	if idx, ok := got.IndexOf("UID-3"); !ok || idx != 2 {
		t.Fatalf("expected key lookup, got %d %v", idx, ok)
	}
}

func TestStoreIsIdempotentPerPayload(t *testing.T) {
	store := New()
	first, err := store.Store(context.Background(), sampleAttestation("bb"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	second, err := store.Store(context.Background(), sampleAttestation("bb"))
	if err != nil {
		t.Fatalf("store again: %v", err)
	}
	if first != second || store.Len() != 1 {
		t.Fatalf("expected one entry for identical attestation, got %q %q (%d)", first, second, store.Len())
	}
	third, err := store.Store(context.Background(), sampleAttestation("cc"))
	if err != nil {
		t.Fatalf("store different: %v", err)
	}
	if third == first {
		t.Fatal("different attestations must get different ids")
	}
}

func TestStoredCopyIsImmutable(t *testing.T) {
	store := New()
	att := sampleAttestation("dd")
	txID, err := store.Store(context.Background(), att)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	att.Records[0].LogicalKey = "MUTATED"
	got, err := store.Retrieve(context.Background(), txID)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if got.Records[0].LogicalKey != "UID-1" {
		t.Fatalf("anchored attestation changed: %+v", got.Records[0])
	}
}

func TestRetrieveUnknown(t *testing.T) {
	if _, err := New().Retrieve(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreRejectsInvalid(t *testing.T) {
	att := sampleAttestation("ee")
	att.RootHash = "short"
	if _, err := New().Store(context.Background(), att); !errors.Is(err, domain.ErrMalformedAttestation) {
		t.Fatalf("expected ErrMalformedAttestation, got %v", err)
	}
}

func TestStoreConcurrent(t *testing.T) {
	store := New()
	var wg sync.WaitGroup
	ids := make([]string, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := store.Store(context.Background(), sampleAttestation("ff"))
			if err != nil {
				t.Errorf("store: %v", err)
				return
			}
			ids[i] = id
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("expected single id under concurrency, got %v", ids)
		}
	}
}
