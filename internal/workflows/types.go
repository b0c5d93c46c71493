package workflows

type AnchorWorkflowInput struct {
	AttestationJSON []byte
	// Confirm reads the attestation back after storing it.
	Confirm bool
}

type AnchorWorkflowResult struct {
	TxID        string
	PayloadHash string
	RootHash    string
	RecordCount int
	Confirmed   bool
}
