package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"batchattest/internal/infra/codec"
	"batchattest/internal/usecase"
	"batchattest/pkg/proofcheck"
)

// sealInput is one entry of the records file. A JSON string is hashed as opaque
// UTF-8 text; any other JSON value is hashed in canonical JSON form.
type sealInput struct {
	Key  string          `json:"key"`
	Data json.RawMessage `json:"data"`
}

func runSeal(args []string) int {
	fs := flag.NewFlagSet("seal", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var inPath string
	var outDir string
	var workers int
	fs.StringVar(&inPath, "in", "", "records JSON file (array of {key, data})")
	fs.StringVar(&outDir, "out-dir", "", "output directory")
	fs.IntVar(&workers, "workers", 0, "hashing workers (0 = sequential, negative = GOMAXPROCS)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if inPath == "" || outDir == "" {
		fmt.Fprintln(os.Stderr, "seal requires --in and --out-dir")
		return 1
	}

	payload, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read records: %v\n", err)
		return 1
	}
	var inputs []sealInput
	if err := json.Unmarshal(payload, &inputs); err != nil {
		fmt.Fprintf(os.Stderr, "decode records: %v\n", err)
		return 1
	}
	records := make([]usecase.Record, len(inputs))
	for i, in := range inputs {
		records[i] = usecase.Record{Key: in.Key, Data: recordValue(in.Data)}
	}

	uc := &usecase.SealBatch{Workers: workers}
	sealed, err := uc.Execute(context.Background(), usecase.SealBatchRequest{Records: records})
	if err != nil {
		fmt.Fprintf(os.Stderr, "seal batch: %v\n", err)
		return 1
	}

	bundleDir := filepath.Join(outDir, "bundles")
	attJSON, err := codec.Encode(sealed.Attestation, codec.FormatJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode attestation: %v\n", err)
		return 1
	}
	if err := writeOutput(filepath.Join(outDir, "attestation.json"), attJSON, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write attestation: %v\n", err)
		return 1
	}
	for i, rec := range records {
		proof, err := sealed.Tree.Proof(i)
		if err != nil {
			fmt.Fprintf(os.Stderr, "proof %d: %v\n", i, err)
			return 1
		}
		bundle, err := proofcheck.NewBundle(sealed.Attestation, rec.Key, rec.Data, proof)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bundle %d: %v\n", i, err)
			return 1
		}
		encoded, err := json.MarshalIndent(bundle, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "encode bundle %d: %v\n", i, err)
			return 1
		}
		if err := writeOutput(filepath.Join(bundleDir, fmt.Sprintf("%d.json", i)), encoded, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write bundle %d: %v\n", i, err)
			return 1
		}
	}
	fmt.Printf("root_hash=%s record_count=%d payload_hash=%s\n",
		sealed.Attestation.RootHash, sealed.Attestation.RecordCount, sealed.PayloadHash)
	return 0
}

func recordValue(raw json.RawMessage) any {
	trimmed := bytes.TrimSpace(raw)
	var s string
	if len(trimmed) > 0 && trimmed[0] == '"' && json.Unmarshal(trimmed, &s) == nil {
		return s
	}
	return json.RawMessage(trimmed)
}
