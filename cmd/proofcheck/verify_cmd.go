package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"batchattest/pkg/proofcheck"
)

func runVerify(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "verify requires <bundle.json>")
		return 1
	}
	payload, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "read bundle: %v\n", err)
		return 1
	}
	res, err := proofcheck.CheckBundle(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verify bundle: %v\n", err)
		return 1
	}
	return printResult(res)
}

func runCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var attPath string
	var proofPath string
	var key string
	var recordPath string
	var recordEncoding string
	fs.StringVar(&attPath, "attestation", "", "attestation JSON file")
	fs.StringVar(&proofPath, "proof", "", "proof JSON file")
	fs.StringVar(&key, "key", "", "logical key")
	fs.StringVar(&recordPath, "record", "", "record file")
	fs.StringVar(&recordEncoding, "record-encoding", "json", "record encoding: json, utf8 or raw")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if attPath == "" || proofPath == "" || key == "" || recordPath == "" {
		fmt.Fprintln(os.Stderr, "check requires --attestation, --proof, --key and --record")
		return 1
	}

	attJSON, err := os.ReadFile(attPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read attestation: %v\n", err)
		return 1
	}
	proofJSON, err := os.ReadFile(proofPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read proof: %v\n", err)
		return 1
	}
	raw, err := os.ReadFile(recordPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read record: %v\n", err)
		return 1
	}
	var record any
	switch recordEncoding {
	case "json":
		record = json.RawMessage(raw)
	case "utf8":
		record = string(raw)
	case "raw":
		record = raw
	default:
		fmt.Fprintf(os.Stderr, "unknown record encoding %q\n", recordEncoding)
		return 1
	}

	res, err := proofcheck.Check(attJSON, proofJSON, key, record)
	if err != nil {
		fmt.Fprintf(os.Stderr, "check: %v\n", err)
		return 1
	}
	return printResult(res)
}

func printResult(res proofcheck.Result) int {
	status := "pass"
	if !res.Included {
		status = "fail"
	}
	fmt.Printf("status=%s\n", status)
	fmt.Printf("root_hash=%s record_count=%d payload_hash=%s\n", res.RootHash, res.RecordCount, res.PayloadHash)
	if !res.KeyFound {
		fmt.Println("key_found=false")
	} else {
		fmt.Printf("leaf_index=%d\n", res.LeafIndex)
	}
	if res.Included {
		return 0
	}
	return 1
}
