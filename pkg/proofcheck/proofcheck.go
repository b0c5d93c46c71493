// Package proofcheck verifies record inclusion offline, from the serialized
// artifacts alone, without access to any anchoring backend.
package proofcheck

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"batchattest/internal/domain"
	"batchattest/internal/infra/codec"
	"batchattest/internal/infra/merkle"
	"batchattest/internal/usecase"
)

const (
	RecordEncodingJSON   = "json"
	RecordEncodingUTF8   = "utf8"
	RecordEncodingBase64 = "base64"
)

var ErrInvalidBundle = errors.New("invalid proof bundle")

// Bundle is a self-contained inclusion claim for one record.
type Bundle struct {
	Attestation    json.RawMessage `json:"attestation"`
	LogicalKey     string          `json:"logicalKey"`
	RecordEncoding string          `json:"recordEncoding"`
	Record         json.RawMessage `json:"record"`
	Proof          merkle.Proof    `json:"proof"`
}

type Result struct {
	Included    bool   `json:"included"`
	KeyFound    bool   `json:"keyFound"`
	LeafIndex   int    `json:"leafIndex"`
	RootHash    string `json:"rootHash"`
	RecordCount int    `json:"recordCount"`
	PayloadHash string `json:"payloadHash"`
}

// Check verifies record under logicalKey against a JSON attestation and a JSON
// proof. An integrity mismatch is a Result with Included=false; errors are
// reserved for artifacts that cannot be parsed.
func Check(attestationJSON, proofJSON []byte, logicalKey string, record any) (Result, error) {
	att, err := codec.Decode(attestationJSON, codec.FormatJSON)
	if err != nil {
		return Result{}, err
	}
	proof, err := merkle.ParseProof(proofJSON)
	if err != nil {
		return Result{}, err
	}
	return check(att, proof, logicalKey, record)
}

func CheckBundle(data []byte) (Result, error) {
	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	if len(bundle.Attestation) == 0 {
		return Result{}, fmt.Errorf("%w: missing attestation", ErrInvalidBundle)
	}
	if err := bundle.Proof.Validate(); err != nil {
		return Result{}, err
	}
	att, err := codec.Decode(bundle.Attestation, codec.FormatJSON)
	if err != nil {
		return Result{}, err
	}
	record, err := bundle.DecodeRecord()
	if err != nil {
		return Result{}, err
	}
	return check(att, bundle.Proof, bundle.LogicalKey, record)
}

// NewBundle packages a record and its proof. []byte records are carried as
// base64, strings as UTF-8 text, anything else as JSON.
func NewBundle(att domain.BatchAttestation, logicalKey string, record any, proof merkle.Proof) (Bundle, error) {
	attJSON, err := codec.Encode(att, codec.FormatJSON)
	if err != nil {
		return Bundle{}, err
	}
	bundle := Bundle{
		Attestation: attJSON,
		LogicalKey:  logicalKey,
		Proof:       proof,
	}
	switch v := record.(type) {
	case []byte:
		bundle.RecordEncoding = RecordEncodingBase64
		bundle.Record, err = json.Marshal(base64.StdEncoding.EncodeToString(v))
	case string:
		bundle.RecordEncoding = RecordEncodingUTF8
		bundle.Record, err = json.Marshal(v)
	case json.RawMessage:
		bundle.RecordEncoding = RecordEncodingJSON
		bundle.Record = append(json.RawMessage(nil), v...)
	default:
		bundle.RecordEncoding = RecordEncodingJSON
		bundle.Record, err = json.Marshal(v)
	}
	if err != nil {
		return Bundle{}, fmt.Errorf("%w: %v", domain.ErrEncoding, err)
	}
	return bundle, nil
}

// DecodeRecord returns the record in the form it was hashed in.
func (b Bundle) DecodeRecord() (any, error) {
	switch b.RecordEncoding {
	case "", RecordEncodingJSON:
		if len(b.Record) == 0 {
			return nil, fmt.Errorf("%w: missing record", ErrInvalidBundle)
		}
		return b.Record, nil
	case RecordEncodingUTF8:
		var s string
		if err := json.Unmarshal(b.Record, &s); err != nil {
			return nil, fmt.Errorf("%w: utf8 record: %v", ErrInvalidBundle, err)
		}
		return s, nil
	case RecordEncodingBase64:
		var s string
		if err := json.Unmarshal(b.Record, &s); err != nil {
			return nil, fmt.Errorf("%w: base64 record: %v", ErrInvalidBundle, err)
		}
		raw, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: base64 record: %v", ErrInvalidBundle, err)
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("%w: unknown record encoding %q", ErrInvalidBundle, b.RecordEncoding)
	}
}

func check(att domain.BatchAttestation, proof merkle.Proof, logicalKey string, record any) (Result, error) {
	receipt, err := usecase.VerifyAgainstAttestation(att, logicalKey, record, proof)
	if err != nil {
		return Result{}, err
	}
	payloadHash, _, err := codec.PayloadHash(att)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Included:    receipt.Included,
		KeyFound:    receipt.KeyFound,
		LeafIndex:   receipt.LeafIndex,
		RootHash:    receipt.RootHash,
		RecordCount: receipt.RecordCount,
		PayloadHash: payloadHash,
	}, nil
}
