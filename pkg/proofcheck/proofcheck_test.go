package proofcheck

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"batchattest/internal/domain"
	"batchattest/internal/infra/codec"
	"batchattest/internal/infra/merkle"
	"batchattest/internal/usecase"
)

func sealTags(t *testing.T) *usecase.SealedBatch {
	t.Helper()
	records := []usecase.Record{
		{Key: "UID-1", Data: "tag1"},
		{Key: "UID-2", Data: []byte{0xde, 0xad, 0xbe, 0xef}},
		{Key: "UID-3", Data: json.RawMessage(`{"uid":"04:A1","batch":7}`)},
		{Key: "UID-4", Data: map[string]any{"uid": "04:A4", "batch": 7}},
		{Key: "UID-5", Data: "tag5"},
	}
	sealed, err := (&usecase.SealBatch{}).Execute(context.Background(), usecase.SealBatchRequest{Records: records})
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	return sealed
}

func proofFor(t *testing.T, sealed *usecase.SealedBatch, key string) merkle.Proof {
	t.Helper()
	proof, found, err := usecase.LookupProof(sealed.Attestation, sealed.Tree, key)
	if err != nil || !found {
		t.Fatalf("lookup %s: %v %v", key, found, err)
	}
	return proof
}

func TestCheck(t *testing.T) {
	sealed := sealTags(t)
	attJSON, err := codec.Encode(sealed.Attestation, codec.FormatJSON)
	if err != nil {
		t.Fatalf("encode attestation: %v", err)
	}
	proofJSON, err := json.Marshal(proofFor(t, sealed, "UID-5"))
	if err != nil {
		t.Fatalf("encode proof: %v", err)
	}

	res, err := Check(attJSON, proofJSON, "UID-5", "tag5")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !res.Included || res.LeafIndex != 4 || res.PayloadHash != sealed.PayloadHash {
		t.Fatalf("unexpected result: %+v", res)
	}

	res, err = Check(attJSON, proofJSON, "UID-5", "tag6")
	if err != nil {
		t.Fatalf("check wrong record: %v", err)
	}
	if res.Included {
		t.Fatal("wrong record must not verify")
	}

	res, err = Check(attJSON, proofJSON, "UID-404", "tag5")
	if err != nil {
		t.Fatalf("check unknown key: %v", err)
	}
	if res.KeyFound || res.Included {
		t.Fatalf("unknown key must not verify: %+v", res)
	}

	if _, err := Check(attJSON, []byte(`{"leafIndex":0,"leafCount":5,"steps":[{"siblingHash":"zz","position":"L"}]}`), "UID-5", "tag5"); !errors.Is(err, domain.ErrMalformedProof) {
		t.Fatalf("expected ErrMalformedProof, got %v", err)
	}
	if _, err := Check([]byte(`{}`), proofJSON, "UID-5", "tag5"); !errors.Is(err, domain.ErrMalformedAttestation) {
		t.Fatalf("expected ErrMalformedAttestation, got %v", err)
	}
}

func TestBundleRoundTripAllEncodings(t *testing.T) {
	sealed := sealTags(t)
	cases := []struct {
		key    string
		record any
		enc    string
	}{
		{key: "UID-1", record: "tag1", enc: RecordEncodingUTF8},
		{key: "UID-2", record: []byte{0xde, 0xad, 0xbe, 0xef}, enc: RecordEncodingBase64},
		{key: "UID-3", record: json.RawMessage(`{"batch":7, "uid":"04:A1"}`), enc: RecordEncodingJSON},
		{key: "UID-4", record: map[string]any{"batch": 7, "uid": "04:A4"}, enc: RecordEncodingJSON},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			bundle, err := NewBundle(sealed.Attestation, tc.key, tc.record, proofFor(t, sealed, tc.key))
			if err != nil {
				t.Fatalf("new bundle: %v", err)
			}
			if bundle.RecordEncoding != tc.enc {
				t.Fatalf("expected encoding %s, got %s", tc.enc, bundle.RecordEncoding)
			}
			data, err := json.Marshal(bundle)
			if err != nil {
				t.Fatalf("marshal bundle: %v", err)
			}
			res, err := CheckBundle(data)
			if err != nil {
				t.Fatalf("check bundle: %v", err)
			}
			if !res.Included {
				t.Fatalf("expected inclusion, got %+v", res)
			}
		})
	}
}

func TestBundleDetectsTampering(t *testing.T) {
	sealed := sealTags(t)
	bundle, err := NewBundle(sealed.Attestation, "UID-1", "tag1", proofFor(t, sealed, "UID-1"))
	if err != nil {
		t.Fatalf("new bundle: %v", err)
	}
	bundle.Record, _ = json.Marshal("tag2")
	data, _ := json.Marshal(bundle)
	res, err := CheckBundle(data)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.Included {
		t.Fatal("tampered record must not verify")
	}

	bundle.RecordEncoding = "rot13"
	data, _ = json.Marshal(bundle)
	if _, err := CheckBundle(data); !errors.Is(err, ErrInvalidBundle) {
		t.Fatalf("expected ErrInvalidBundle, got %v", err)
	}
	if _, err := CheckBundle([]byte(`not json`)); !errors.Is(err, ErrInvalidBundle) {
		t.Fatalf("expected ErrInvalidBundle for garbage, got %v", err)
	}
}
