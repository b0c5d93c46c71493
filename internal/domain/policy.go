package domain

import "context"

type AdmissionRecord struct {
	LogicalKey string `json:"logical_key"`
	Index      int    `json:"index"`
}

type AdmissionLimits struct {
	MaxRecords int `json:"max_records"`
}

type AdmissionInput struct {
	RecordCount  int               `json:"record_count"`
	RootHash     string            `json:"root_hash"`
	LeafEncoding string            `json:"leaf_encoding"`
	Records      []AdmissionRecord `json:"records"`
	Limits       AdmissionLimits   `json:"limits"`
}

type PolicyDeny struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type PolicyResult struct {
	Allow bool         `json:"allow"`
	Deny  []PolicyDeny `json:"deny,omitempty"`
}

type PolicyEvaluation struct {
	BundleID   string       `json:"bundle_id,omitempty"`
	BundleHash string       `json:"bundle_hash"`
	Result     PolicyResult `json:"result"`
}

// AdmissionPolicy decides whether a sealed batch may be published.
type AdmissionPolicy interface {
	Evaluate(ctx context.Context, input AdmissionInput) (PolicyEvaluation, error)
}
