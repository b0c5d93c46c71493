package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"batchattest/internal/domain"
)

type stubAnchor struct {
	stored   map[string]domain.BatchAttestation
	storeErr error
	getErr   error
	calls    int
}

func newStubAnchor() *stubAnchor {
	return &stubAnchor{stored: make(map[string]domain.BatchAttestation)}
}

func (s *stubAnchor) Store(ctx context.Context, att domain.BatchAttestation) (string, error) {
	s.calls++
	if s.storeErr != nil {
		return "", s.storeErr
	}
	id := fmt.Sprintf("tx-%d", len(s.stored)+1)
	s.stored[id] = att
	return id, nil
}

func (s *stubAnchor) Retrieve(ctx context.Context, txID string) (domain.BatchAttestation, error) {
	if s.getErr != nil {
		return domain.BatchAttestation{}, s.getErr
	}
	att, ok := s.stored[txID]
	if !ok {
		return domain.BatchAttestation{}, domain.ErrNotFound
	}
	return att, nil
}

func sealFourTags(t *testing.T) *SealedBatch {
	t.Helper()
	uc := &SealBatch{}
	records := []Record{
		{Key: "UID-1", Data: "tag1"},
		{Key: "UID-2", Data: "tag2"},
		{Key: "UID-3", Data: "tag3"},
		{Key: "UID-4", Data: "tag4"},
	}
	sealed, err := uc.Execute(context.Background(), SealBatchRequest{Records: records})
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	return sealed
}

func TestAnchorAndVerifyRecord(t *testing.T) {
	sealed := sealFourTags(t)
	anchor := newStubAnchor()

	receipt, err := (&AnchorAttestation{Anchor: anchor}).Execute(context.Background(), sealed.Attestation)
	if err != nil {
		t.Fatalf("anchor: %v", err)
	}
	if receipt.TxID == "" || receipt.PayloadHash != sealed.PayloadHash {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}

	proof, found, err := LookupProof(sealed.Attestation, sealed.Tree, "UID-1")
	if err != nil || !found {
		t.Fatalf("lookup: found=%v err=%v", found, err)
	}

	verifier := &VerifyRecord{Anchor: anchor}
	ok, err := verifier.Execute(context.Background(), VerifyRecordRequest{
		TxID: receipt.TxID, LogicalKey: "UID-1", Record: "tag1", Proof: proof,
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok.Included || !ok.KeyFound || ok.LeafIndex != 0 {
		t.Fatalf("expected inclusion, got %+v", ok)
	}

	bad, err := verifier.Execute(context.Background(), VerifyRecordRequest{
		TxID: receipt.TxID, LogicalKey: "UID-1", Record: "wrong-data", Proof: proof,
	})
	if err != nil {
		t.Fatalf("verify wrong data: %v", err)
	}
	if bad.Included {
		t.Fatal("wrong data must not verify")
	}

	other, err := verifier.Execute(context.Background(), VerifyRecordRequest{
		TxID: receipt.TxID, LogicalKey: "UID-2", Record: "tag1", Proof: proof,
	})
	if err != nil {
		t.Fatalf("verify under other key: %v", err)
	}
	if other.Included {
		t.Fatal("proof must not verify under another key")
	}
}

func TestVerifyRecordUnknownKey(t *testing.T) {
	sealed := sealFourTags(t)
	anchor := newStubAnchor()
	txID, err := anchor.Store(context.Background(), sealed.Attestation)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	receipt, err := (&VerifyRecord{Anchor: anchor}).Execute(context.Background(), VerifyRecordRequest{
		TxID: txID, LogicalKey: "NO-SUCH-KEY", Record: "tag1",
	})
	if err != nil {
		t.Fatalf("unknown key must not error: %v", err)
	}
	if receipt.KeyFound || receipt.Included {
		t.Fatalf("unexpected receipt for unknown key: %+v", receipt)
	}
}

func TestVerifyRecordBindsLeafCount(t *testing.T) {
	sealed := sealFourTags(t)
	proof, _, err := LookupProof(sealed.Attestation, sealed.Tree, "UID-3")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	forged := proof
	forged.LeafCount = 3
	receipt, err := VerifyAgainstAttestation(sealed.Attestation, "UID-3", "tag3", forged)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if receipt.Included {
		t.Fatal("proof with a different leaf count must not verify")
	}
}

func TestVerifyRecordPropagatesAnchorErrors(t *testing.T) {
	anchor := newStubAnchor()
	verifier := &VerifyRecord{Anchor: anchor}
	if _, err := verifier.Execute(context.Background(), VerifyRecordRequest{TxID: "missing"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	anchor.getErr = domain.ErrAnchoringUnavailable
	if _, err := verifier.Execute(context.Background(), VerifyRecordRequest{TxID: "tx-1"}); !errors.Is(err, domain.ErrAnchoringUnavailable) {
		t.Fatalf("expected ErrAnchoringUnavailable, got %v", err)
	}
}

func TestAnchorAttestationNoRetry(t *testing.T) {
	sealed := sealFourTags(t)
	anchor := newStubAnchor()
	anchor.storeErr = domain.ErrAnchoringUnavailable
	_, err := (&AnchorAttestation{Anchor: anchor}).Execute(context.Background(), sealed.Attestation)
	if !errors.Is(err, domain.ErrAnchoringUnavailable) {
		t.Fatalf("expected ErrAnchoringUnavailable, got %v", err)
	}
	if anchor.calls != 1 {
		t.Fatalf("expected exactly one store attempt, got %d", anchor.calls)
	}
}

func TestAnchorAttestationRejectsInvalid(t *testing.T) {
	anchor := newStubAnchor()
	_, err := (&AnchorAttestation{Anchor: anchor}).Execute(context.Background(), domain.BatchAttestation{RootHash: "nope"})
	if !errors.Is(err, domain.ErrMalformedAttestation) {
		t.Fatalf("expected ErrMalformedAttestation, got %v", err)
	}
	if anchor.calls != 0 {
		t.Fatal("invalid attestation must not reach the backend")
	}
}
