package main

import (
	"fmt"
	"os"
	"path/filepath"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	if len(args) < 2 {
		usage(args)
		return 1
	}
	switch args[1] {
	case "seal":
		return runSeal(args[2:])
	case "verify":
		return runVerify(args[2:])
	case "check":
		return runCheck(args[2:])
	}
	usage(args)
	return 1
}

func usage(args []string) {
	name := "proofcheck"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  %s seal --in <records.json> --out-dir <dir> [--workers <n>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s verify <bundle.json>\n", name)
	fmt.Fprintf(os.Stderr, "  %s check --attestation <file> --proof <file> --key <logical key> --record <file> [--record-encoding json|utf8|raw]\n", name)
}
