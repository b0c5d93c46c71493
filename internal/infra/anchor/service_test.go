package anchor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"batchattest/internal/domain"
)

type stubBackend struct {
	name     string
	txID     string
	stored   []domain.BatchAttestation
	att      domain.BatchAttestation
	storeErr error
	getErr   error
	block    bool
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Store(ctx context.Context, att domain.BatchAttestation) (string, error) {
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if s.storeErr != nil {
		return "", s.storeErr
	}
	s.stored = append(s.stored, att)
	return s.txID, nil
}

func (s *stubBackend) Retrieve(ctx context.Context, txID string) (domain.BatchAttestation, error) {
	if s.block {
		<-ctx.Done()
		return domain.BatchAttestation{}, ctx.Err()
	}
	if s.getErr != nil {
		return domain.BatchAttestation{}, s.getErr
	}
	return s.att, nil
}

type stubAttemptStore struct {
	attempts []domain.AnchorAttempt
	err      error
}

func (s *stubAttemptStore) Append(ctx context.Context, attempt domain.AnchorAttempt) error {
	s.attempts = append(s.attempts, attempt)
	return s.err
}

func (s *stubAttemptStore) ListByPayloadHash(ctx context.Context, payloadHash string) ([]domain.AnchorAttempt, error) {
	var out []domain.AnchorAttempt
	for _, a := range s.attempts {
		if a.PayloadHash == payloadHash {
			out = append(out, a)
		}
	}
	return out, nil
}

func testAttestation() domain.BatchAttestation {
	return domain.NewBatchAttestation(
		strings.Repeat("0a", 32),
		time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		[]domain.RecordRef{
			{LogicalKey: "UID-1", Index: 0},
			{LogicalKey: "UID-2", Index: 1},
		},
		domain.LeafEncodingV1,
	)
}

func TestBuildPayloadStable(t *testing.T) {
	first, err := BuildPayload(testAttestation())
	if err != nil {
		t.Fatalf("build payload: %v", err)
	}
	second, err := BuildPayload(testAttestation())
	if err != nil {
		t.Fatalf("build payload again: %v", err)
	}
	if first.HashHex != second.HashHex {
		t.Fatalf("expected stable hash, got %s vs %s", first.HashHex, second.HashHex)
	}
	if !bytes.Equal(first.CanonicalJSON, second.CanonicalJSON) {
		t.Fatal("expected stable canonical json")
	}
	if first.RecordCount != 2 || first.RootHash != strings.Repeat("0a", 32) {
		t.Fatalf("unexpected payload header: %+v", first)
	}
}

func TestBuildPayloadRejectsInvalid(t *testing.T) {
	att := testAttestation()
	att.RecordCount = 0
	if _, err := BuildPayload(att); !errors.Is(err, domain.ErrMalformedAttestation) {
		t.Fatalf("expected ErrMalformedAttestation, got %v", err)
	}
}

func TestNewServiceRequiresBackend(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatal("expected error for nil backend")
	}
	if _, err := NewService(&stubBackend{}); err == nil {
		t.Fatal("expected error for unnamed backend")
	}
}

func TestServiceStoreRecordsAttempt(t *testing.T) {
	backend := &stubBackend{name: "memory", txID: "tx-1"}
	attempts := &stubAttemptStore{}
	svc, err := NewService(backend, WithAttempts(attempts))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	txID, err := svc.Store(context.Background(), testAttestation())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if txID != "tx-1" || len(backend.stored) != 1 {
		t.Fatalf("unexpected store result %q, %d stored", txID, len(backend.stored))
	}
	if len(attempts.attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(attempts.attempts))
	}
	got := attempts.attempts[0]
	payload, _ := BuildPayload(testAttestation())
	if got.Backend != "memory" || got.Operation != domain.AnchorOpStore || got.Status != domain.AnchorStatusAnchored {
		t.Fatalf("unexpected attempt: %+v", got)
	}
	if got.PayloadHash != payload.HashHex || got.TxID != "tx-1" || got.RecordCount != 2 {
		t.Fatalf("attempt missing payload metadata: %+v", got)
	}
}

func TestServiceStoreFailurePropagates(t *testing.T) {
	backend := &stubBackend{name: "redis", storeErr: domain.ErrAnchoringUnavailable}
	attempts := &stubAttemptStore{}
	svc, err := NewService(backend, WithAttempts(attempts))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := svc.Store(context.Background(), testAttestation()); !errors.Is(err, domain.ErrAnchoringUnavailable) {
		t.Fatalf("expected ErrAnchoringUnavailable, got %v", err)
	}
	if len(attempts.attempts) != 1 {
		t.Fatalf("expected failed attempt recorded, got %d", len(attempts.attempts))
	}
	got := attempts.attempts[0]
	if got.Status != domain.AnchorStatusFailed || got.ErrorCode != domain.AnchorErrorUnavailable {
		t.Fatalf("unexpected attempt: %s/%s", got.Status, got.ErrorCode)
	}
}

func TestServiceTimeoutIsUnavailable(t *testing.T) {
	backend := &stubBackend{name: "http", block: true}
	attempts := &stubAttemptStore{}
	svc, err := NewService(backend, WithAttempts(attempts), WithTimeout(10*time.Millisecond))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	_, err = svc.Store(context.Background(), testAttestation())
	if !errors.Is(err, domain.ErrAnchoringUnavailable) {
		t.Fatalf("expected ErrAnchoringUnavailable, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline cause to be kept, got %v", err)
	}
	if len(attempts.attempts) != 1 || attempts.attempts[0].ErrorCode != domain.AnchorErrorTimeout {
		t.Fatalf("expected timeout attempt, got %+v", attempts.attempts)
	}

	if _, err := svc.Retrieve(context.Background(), "tx-1"); !errors.Is(err, domain.ErrAnchoringUnavailable) {
		t.Fatalf("expected ErrAnchoringUnavailable on retrieve, got %v", err)
	}
}

func TestServiceAttemptPersistenceFailureKeepsResult(t *testing.T) {
	backend := &stubBackend{name: "memory", txID: "tx-9"}
	attempts := &stubAttemptStore{err: errors.New("attempt insert failed")}
	svc, err := NewService(backend, WithAttempts(attempts))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	txID, err := svc.Store(context.Background(), testAttestation())
	if err != nil || txID != "tx-9" {
		t.Fatalf("expected anchored result despite attempt failure, got %q %v", txID, err)
	}
}

func TestServiceRetrieve(t *testing.T) {
	backend := &stubBackend{name: "memory", att: testAttestation()}
	attempts := &stubAttemptStore{}
	svc, err := NewService(backend, WithAttempts(attempts))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	att, err := svc.Retrieve(context.Background(), "tx-1")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if idx, ok := att.IndexOf("UID-2"); !ok || idx != 1 {
		t.Fatalf("expected key index after retrieve, got %d %v", idx, ok)
	}
	if len(attempts.attempts) != 1 || attempts.attempts[0].Status != domain.AnchorStatusRetrieved {
		t.Fatalf("expected retrieve attempt, got %+v", attempts.attempts)
	}
	listed, err := attempts.ListByPayloadHash(context.Background(), attempts.attempts[0].PayloadHash)
	if err != nil || len(listed) != 1 {
		t.Fatalf("expected attempt listed by payload hash, got %d %v", len(listed), err)
	}
}

func TestServiceRetrieveNotFound(t *testing.T) {
	backend := &stubBackend{name: "memory", getErr: domain.ErrNotFound}
	attempts := &stubAttemptStore{}
	svc, err := NewService(backend, WithAttempts(attempts))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := svc.Retrieve(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Retrieve(context.Background(), ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty id, got %v", err)
	}
	if attempts.attempts[0].ErrorCode != domain.AnchorErrorNotFound {
		t.Fatalf("expected NOT_FOUND code, got %s", attempts.attempts[0].ErrorCode)
	}
}

func TestServiceRetrieveRejectsCorruptAttestation(t *testing.T) {
	corrupt := testAttestation()
	corrupt.Records[1].Index = 5
	backend := &stubBackend{name: "memory", att: corrupt}
	svc, err := NewService(backend)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := svc.Retrieve(context.Background(), "tx-1"); !errors.Is(err, domain.ErrMalformedAttestation) {
		t.Fatalf("expected ErrMalformedAttestation, got %v", err)
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: nil, want: ""},
		{err: domain.ErrNotFound, want: domain.AnchorErrorNotFound},
		{err: domain.ErrAnchoringUnavailable, want: domain.AnchorErrorUnavailable},
		{err: context.DeadlineExceeded, want: domain.AnchorErrorTimeout},
		{err: errors.New("boom"), want: domain.AnchorErrorRejected},
	}
	for _, tc := range tests {
		if got := ErrorCode(tc.err); got != tc.want {
			t.Fatalf("ErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
