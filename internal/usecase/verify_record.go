package usecase

import (
	"context"
	"errors"
	"fmt"

	"batchattest/internal/domain"
	"batchattest/internal/infra/merkle"

	"go.uber.org/zap"
)

type VerifyRecordRequest struct {
	TxID       string
	LogicalKey string
	Record     any
	Proof      merkle.Proof
}

type VerifyReceipt struct {
	Included    bool
	KeyFound    bool
	LeafIndex   int
	RootHash    string
	RecordCount int
}

// VerifyRecord checks a record against an attestation fetched from the anchor.
// Retrieval errors (domain.ErrNotFound, domain.ErrAnchoringUnavailable) are
// returned unchanged; an integrity mismatch is a receipt with Included=false.
type VerifyRecord struct {
	Anchor AnchorClient
	Logger *zap.Logger
}

func (uc *VerifyRecord) Execute(ctx context.Context, req VerifyRecordRequest) (*VerifyReceipt, error) {
	if uc.Anchor == nil {
		return nil, errors.New("anchor client is required")
	}
	if req.TxID == "" {
		return nil, fmt.Errorf("%w: empty transaction id", domain.ErrNotFound)
	}
	att, err := uc.Anchor.Retrieve(ctx, req.TxID)
	if err != nil {
		return nil, err
	}
	receipt, err := VerifyAgainstAttestation(att, req.LogicalKey, req.Record, req.Proof)
	if err != nil {
		return nil, err
	}
	loggerOrNop(uc.Logger).Debug("record verified",
		zap.String("tx_id", req.TxID),
		zap.String("logical_key", req.LogicalKey),
		zap.Bool("included", receipt.Included))
	return &receipt, nil
}

// VerifyAgainstAttestation binds the proof to the attestation: the key must
// resolve to the proof's leaf index and the proof's leaf count must equal the
// attested record count, so neither can be chosen by whoever supplies the proof.
func VerifyAgainstAttestation(att domain.BatchAttestation, logicalKey string, record any, proof merkle.Proof) (VerifyReceipt, error) {
	receipt := VerifyReceipt{
		RootHash:    att.RootHash,
		RecordCount: att.RecordCount,
	}
	root, err := merkle.ParseHash(att.RootHash)
	if err != nil {
		return receipt, fmt.Errorf("%w: %v", domain.ErrMalformedAttestation, err)
	}
	idx, ok := att.IndexOf(logicalKey)
	if !ok {
		return receipt, nil
	}
	receipt.KeyFound = true
	receipt.LeafIndex = idx

	ok, err = merkle.VerifyProof(record, idx, proof, root, att.RecordCount)
	if err != nil {
		return receipt, err
	}
	receipt.Included = ok
	return receipt, nil
}
