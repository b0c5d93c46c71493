package domain

import "time"

// LeafEncodingV1 names the canonical record encoding used to derive leaf hashes:
// opaque bytes/strings hashed as-is, structured records as RFC 8785 JSON, SHA-256
// with a 0x00 leaf prefix and 0x01 node prefix.
const LeafEncodingV1 = "jcs-sha256-v1"

type RecordRef struct {
	LogicalKey string `json:"logicalKey"`
	Index      int    `json:"index"`
}

// BatchAttestation is the artifact handed to an AnchorClient. It is immutable once
// created; the key table is derived from Records.
type BatchAttestation struct {
	RootHash     string      `json:"rootHash"`
	RecordCount  int         `json:"recordCount"`
	CreatedAt    time.Time   `json:"createdAt"`
	Records      []RecordRef `json:"records"`
	LeafEncoding string      `json:"leafEncoding,omitempty"`

	keyIndex map[string]int
}

func NewBatchAttestation(rootHash string, createdAt time.Time, records []RecordRef, leafEncoding string) BatchAttestation {
	att := BatchAttestation{
		RootHash:     rootHash,
		RecordCount:  len(records),
		CreatedAt:    createdAt.UTC(),
		Records:      records,
		LeafEncoding: leafEncoding,
	}
	att.keyIndex = indexRecords(records)
	return att
}

// IndexOf resolves a logical key to its leaf index.
func (a BatchAttestation) IndexOf(logicalKey string) (int, bool) {
	if a.keyIndex != nil {
		idx, ok := a.keyIndex[logicalKey]
		return idx, ok
	}
	for _, rec := range a.Records {
		if rec.LogicalKey == logicalKey {
			return rec.Index, true
		}
	}
	return 0, false
}

// Reindex rebuilds the key table, typically after decoding from the wire.
func (a *BatchAttestation) Reindex() {
	a.keyIndex = indexRecords(a.Records)
}

func indexRecords(records []RecordRef) map[string]int {
	index := make(map[string]int, len(records))
	for _, rec := range records {
		if _, exists := index[rec.LogicalKey]; exists {
			continue
		}
		index[rec.LogicalKey] = rec.Index
	}
	return index
}
