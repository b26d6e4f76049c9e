package batch

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dantezy/spark-market-scripts/internal/chain"
)

// Phase is the submission step at which a batch failed.
type Phase string

const (
	PhaseBuild     Phase = "build"
	PhaseSimulate  Phase = "simulate"
	PhaseSend      Phase = "send"
	PhaseInclusion Phase = "inclusion"
)

var errReverted = chain.ErrReverted

// SubmissionError reports a failed batch. Before PhaseInclusion nothing was
// broadcast. At PhaseInclusion the transaction was broadcast: a mined revert
// applied nothing, but when waiting for the receipt failed (see Pending) the
// transaction may still be mined, so resending can apply the batch twice.
type SubmissionError struct {
	Phase  Phase
	Calls  int
	TxHash common.Hash
	// Reason is the decoded revert reason when the node reported one.
	Reason string
	Err    error
}

func (e *SubmissionError) Error() string {
	msg := fmt.Sprintf("batch of %d calls failed at %s", e.Calls, e.Phase)
	if e.TxHash != (common.Hash{}) {
		msg += fmt.Sprintf(" (tx %s)", e.TxHash.Hex())
	}
	if e.Reason != "" && (e.Err == nil || !containsReason(e.Err, e.Reason)) {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// Reverted reports whether the chain rejected the batch, as opposed to a
// transport or local failure.
func (e *SubmissionError) Reverted() bool {
	return errors.Is(e.Err, chain.ErrReverted)
}

// Pending reports whether the transaction was broadcast but its outcome is
// unknown, because waiting for the receipt failed. It may still be mined.
func (e *SubmissionError) Pending() bool {
	return e.Phase == PhaseInclusion && e.TxHash != (common.Hash{}) && !e.Reverted()
}

func newSubmissionError(phase Phase, calls int, txHash common.Hash, err error) *SubmissionError {
	err = chain.AsRevert(err)
	return &SubmissionError{
		Phase:  phase,
		Calls:  calls,
		TxHash: txHash,
		Reason: chain.RevertReason(err),
		Err:    err,
	}
}

func containsReason(err error, reason string) bool {
	var revertErr *chain.RevertError
	return errors.As(err, &revertErr) && revertErr.Reason == reason
}
