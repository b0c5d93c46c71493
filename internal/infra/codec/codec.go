package codec

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"batchattest/internal/domain"
	"batchattest/internal/infra/crypto"

	"github.com/fxamacker/cbor/v2"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCBOR:
		return FormatCBOR, nil
	default:
		return "", fmt.Errorf("unknown attestation format %q", s)
	}
}

func (f Format) ContentType() string {
	if f == FormatCBOR {
		return "application/cbor"
	}
	return "application/json"
}

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	encOpts := cbor.CoreDetEncOptions()
	encOpts.Time = cbor.TimeRFC3339Nano
	em, err := encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor enc mode: %v", err))
	}
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("cbor dec mode: %v", err))
	}
	cborEnc = em
	cborDec = dm
}

// Encode serializes an attestation. JSON output is RFC 8785 canonical; CBOR
// output uses core deterministic encoding.
func Encode(att domain.BatchAttestation, format Format) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		return crypto.Canonicalize(att)
	case FormatCBOR:
		return cborEnc.Marshal(att)
	default:
		return nil, fmt.Errorf("unknown attestation format %q", format)
	}
}

// Decode parses and validates an attestation and rebuilds its key table.
func Decode(data []byte, format Format) (domain.BatchAttestation, error) {
	var att domain.BatchAttestation
	var err error
	switch format {
	case FormatJSON, "":
		err = json.Unmarshal(data, &att)
	case FormatCBOR:
		err = cborDec.Unmarshal(data, &att)
	default:
		return domain.BatchAttestation{}, fmt.Errorf("unknown attestation format %q", format)
	}
	if err != nil {
		return domain.BatchAttestation{}, fmt.Errorf("%w: %v", domain.ErrMalformedAttestation, err)
	}
	if err := Validate(att); err != nil {
		return domain.BatchAttestation{}, err
	}
	att.Reindex()
	return att, nil
}

// Validate checks the invariants every stored attestation must satisfy.
func Validate(att domain.BatchAttestation) error {
	if len(att.RootHash) != 2*sha256.Size {
		return fmt.Errorf("%w: root hash must be %d hex characters", domain.ErrMalformedAttestation, 2*sha256.Size)
	}
	if _, err := hex.DecodeString(att.RootHash); err != nil {
		return fmt.Errorf("%w: root hash: %v", domain.ErrMalformedAttestation, err)
	}
	if att.RecordCount < 1 {
		return fmt.Errorf("%w: record count %d", domain.ErrMalformedAttestation, att.RecordCount)
	}
	if len(att.Records) != att.RecordCount {
		return fmt.Errorf("%w: %d records for record count %d", domain.ErrMalformedAttestation, len(att.Records), att.RecordCount)
	}
	seen := make(map[string]struct{}, len(att.Records))
	for i, rec := range att.Records {
		if rec.Index != i {
			return fmt.Errorf("%w: record %d has index %d", domain.ErrMalformedAttestation, i, rec.Index)
		}
		if _, dup := seen[rec.LogicalKey]; dup {
			return fmt.Errorf("%w: %w: %q", domain.ErrMalformedAttestation, domain.ErrDuplicateKey, rec.LogicalKey)
		}
		seen[rec.LogicalKey] = struct{}{}
	}
	return nil
}

// PayloadHash is the hex SHA-256 of the canonical JSON encoding, the
// content address of an attestation regardless of transport format.
func PayloadHash(att domain.BatchAttestation) (string, []byte, error) {
	canonical, err := Encode(att, FormatJSON)
	if err != nil {
		return "", nil, err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), canonical, nil
}
