package workflows

import (
	"time"

	"batchattest/internal/activities"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// AnchorAttestationWorkflow owns the retries the anchoring core never performs:
// unavailability is retried with exponential backoff, any other failure ends
// the workflow.
func AnchorAttestationWorkflow(ctx workflow.Context, input AnchorWorkflowInput) (AnchorWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)

	activityOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    1 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOpts)

	var stored activities.StoreAttestationResult
	if err := workflow.ExecuteActivity(ctx, activities.StoreAttestationActivityName, activities.StoreAttestationInput{
		AttestationJSON: input.AttestationJSON,
	}).Get(ctx, &stored); err != nil {
		logger.Error("store attestation failed", "error", err)
		return AnchorWorkflowResult{}, err
	}
	result := AnchorWorkflowResult{
		TxID:        stored.TxID,
		PayloadHash: stored.PayloadHash,
		RootHash:    stored.RootHash,
		RecordCount: stored.RecordCount,
	}
	logger.Info("attestation anchored", "tx_id", stored.TxID, "root_hash", stored.RootHash)

	if !input.Confirm {
		return result, nil
	}
	if err := workflow.ExecuteActivity(ctx, activities.ConfirmAnchoredActivityName, activities.ConfirmAnchoredInput{
		TxID:        stored.TxID,
		PayloadHash: stored.PayloadHash,
	}).Get(ctx, nil); err != nil {
		logger.Error("confirm anchor failed", "tx_id", stored.TxID, "error", err)
		return result, err
	}
	result.Confirmed = true
	return result, nil
}
