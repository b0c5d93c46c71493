package merkle

import (
	"encoding/json"
	"fmt"

	"batchattest/internal/domain"
	"batchattest/internal/infra/crypto"
)

// CanonicalRecord returns the bytes a record contributes to its leaf hash.
// []byte and string records are opaque and used as-is; json.RawMessage and
// structured values are reduced to RFC 8785 canonical JSON.
func CanonicalRecord(record any) ([]byte, error) {
	switch value := record.(type) {
	case []byte:
		return value, nil
	case string:
		return []byte(value), nil
	case json.RawMessage:
		canonical, err := crypto.CanonicalizeJSON(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrEncoding, err)
		}
		return canonical, nil
	case nil:
		return nil, fmt.Errorf("%w: nil record", domain.ErrEncoding)
	default:
		canonical, err := crypto.Canonicalize(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrEncoding, err)
		}
		return canonical, nil
	}
}

// EncodeLeaf canonicalizes record and returns its domain-separated leaf hash.
func EncodeLeaf(record any) (Hash, error) {
	canonical, err := CanonicalRecord(record)
	if err != nil {
		return Hash{}, err
	}
	return LeafHash(canonical), nil
}

func EncodeAll(records []any) ([]Hash, error) {
	out := make([]Hash, len(records))
	for i, record := range records {
		h, err := EncodeLeaf(record)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out[i] = h
	}
	return out, nil
}
