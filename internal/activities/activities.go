package activities

import (
	"context"
	"errors"
	"fmt"

	"batchattest/internal/domain"
	"batchattest/internal/infra/anchor"
	"batchattest/internal/infra/codec"
	"batchattest/internal/usecase"

	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"
)

const (
	StoreAttestationActivityName = "StoreAttestation"
	ConfirmAnchoredActivityName  = "ConfirmAnchored"
)

const (
	ErrTypeMalformed       = "MALFORMED_ATTESTATION"
	ErrTypeRejected        = "ANCHOR_REJECTED"
	ErrTypePayloadMismatch = "PAYLOAD_MISMATCH"
)

type Activities struct {
	Anchor domain.AnchorClient
	Logger *zap.Logger
}

// StoreAttestationInput carries the canonical JSON form so the payload that
// crosses the workflow boundary is the one that gets hashed and anchored.
type StoreAttestationInput struct {
	AttestationJSON []byte
}

type StoreAttestationResult struct {
	TxID        string
	PayloadHash string
	RootHash    string
	RecordCount int
}

type ConfirmAnchoredInput struct {
	TxID        string
	PayloadHash string
}

func New(anchorClient domain.AnchorClient, logger *zap.Logger) *Activities {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Activities{Anchor: anchorClient, Logger: logger}
}

func (a *Activities) StoreAttestation(ctx context.Context, input StoreAttestationInput) (StoreAttestationResult, error) {
	if a == nil || a.Anchor == nil {
		return StoreAttestationResult{}, fmt.Errorf("anchor client not configured")
	}
	att, err := codec.Decode(input.AttestationJSON, codec.FormatJSON)
	if err != nil {
		return StoreAttestationResult{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeMalformed, err)
	}
	uc := &usecase.AnchorAttestation{Anchor: a.Anchor, Logger: a.Logger}
	receipt, err := uc.Execute(ctx, att)
	if err != nil {
		return StoreAttestationResult{}, retryable(err)
	}
	return StoreAttestationResult{
		TxID:        receipt.TxID,
		PayloadHash: receipt.PayloadHash,
		RootHash:    receipt.RootHash,
		RecordCount: receipt.RecordCount,
	}, nil
}

// ConfirmAnchored reads the attestation back and checks it is the one that was
// stored. A backend that has not caught up yet (not found) is retried.
func (a *Activities) ConfirmAnchored(ctx context.Context, input ConfirmAnchoredInput) error {
	if a == nil || a.Anchor == nil {
		return fmt.Errorf("anchor client not configured")
	}
	att, err := a.Anchor.Retrieve(ctx, input.TxID)
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if err != nil {
		return retryable(err)
	}
	payload, err := anchor.BuildPayload(att)
	if err != nil {
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeMalformed, err)
	}
	if payload.HashHex != input.PayloadHash {
		msg := fmt.Sprintf("anchored payload %s does not match %s", payload.HashHex, input.PayloadHash)
		return temporal.NewNonRetryableApplicationError(msg, ErrTypePayloadMismatch, nil)
	}
	a.Logger.Info("anchor confirmed",
		zap.String("tx_id", input.TxID),
		zap.String("payload_hash", input.PayloadHash))
	return nil
}

// retryable keeps transport failures retryable and marks everything else final.
func retryable(err error) error {
	if errors.Is(err, domain.ErrAnchoringUnavailable) {
		return err
	}
	errType := ErrTypeRejected
	if errors.Is(err, domain.ErrMalformedAttestation) {
		errType = ErrTypeMalformed
	}
	return temporal.NewNonRetryableApplicationError(err.Error(), errType, err)
}
