package anchor

import (
	"batchattest/internal/domain"
	"batchattest/internal/infra/codec"
)

// Payload is the content-addressed form of an attestation handed to a backend.
type Payload struct {
	RootHash      string
	RecordCount   int
	CanonicalJSON []byte
	HashHex       string
}

func BuildPayload(att domain.BatchAttestation) (Payload, error) {
	if err := codec.Validate(att); err != nil {
		return Payload{}, err
	}
	hashHex, canonical, err := codec.PayloadHash(att)
	if err != nil {
		return Payload{}, err
	}
	return Payload{
		RootHash:      att.RootHash,
		RecordCount:   att.RecordCount,
		CanonicalJSON: canonical,
		HashHex:       hashHex,
	}, nil
}
