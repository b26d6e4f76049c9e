// Package batch groups market calls into one multicall transaction.
//
// The market contract executes multicall entries in order against its own
// state and reverts the whole transaction if any entry reverts, so a batch
// either applies completely or not at all. Later calls may rely on state
// written by earlier ones (deposit, then open an order that spends it).
package batch

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const multicallABI = `[{"type":"function","name":"multicall","stateMutability":"payable","inputs":[{"name":"data","type":"bytes[]"}],"outputs":[{"name":"results","type":"bytes[]"}]}]`

var parsedMulticall = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(multicallABI))
	if err != nil {
		panic("batch: invalid multicall ABI: " + err.Error())
	}
	return parsed
}()

var (
	ErrEmptyBatch     = errors.New("batch has no calls")
	ErrTargetMismatch = errors.New("call target differs from batch target")
	ErrResultCount    = errors.New("multicall returned unexpected number of results")
)

// Call describes one contract call: the method it invokes, the encoded
// calldata, and the native value it forwards.
type Call struct {
	Method string
	Target common.Address
	Data   []byte
	Value  *big.Int
}

// Sender signs and submits transactions. *chain.Transactor implements it.
type Sender interface {
	From() common.Address
	DryRun() bool
	Call(ctx context.Context, to common.Address, value *big.Int, data []byte) ([]byte, error)
	Send(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// Result describes a submitted batch.
type Result struct {
	TxHash  common.Hash
	Receipt *types.Receipt
	// Returns holds one ABI-encoded return value per call, in submission
	// order, taken from the pre-flight simulation of the whole batch.
	Returns [][]byte
	DryRun  bool
}

// Builder accumulates calls against a single market contract.
type Builder struct {
	sender Sender
	target common.Address
	calls  []Call
}

// New returns an empty batch bound to a sender and a target contract.
func New(sender Sender, target common.Address) *Builder {
	return &Builder{
		sender: sender,
		target: target,
	}
}

// Add appends a call and returns the builder for chaining.
func (b *Builder) Add(call Call) *Builder {
	b.calls = append(b.calls, call)
	return b
}

// AddAll appends calls in order.
func (b *Builder) AddAll(calls ...Call) *Builder {
	b.calls = append(b.calls, calls...)
	return b
}

// Len returns the number of queued calls.
func (b *Builder) Len() int {
	return len(b.calls)
}

// Calls returns a copy of the queued calls.
func (b *Builder) Calls() []Call {
	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

// Target returns the contract the batch is bound to.
func (b *Builder) Target() common.Address {
	return b.target
}

// Reset drops all queued calls.
func (b *Builder) Reset() {
	b.calls = nil
}

// Value returns the native value the batch forwards, the sum of all calls.
func (b *Builder) Value() *big.Int {
	total := new(big.Int)
	for _, c := range b.calls {
		if c.Value != nil {
			total.Add(total, c.Value)
		}
	}
	return total
}

// Encode returns the multicall calldata for the queued calls.
func (b *Builder) Encode() ([]byte, error) {
	if len(b.calls) == 0 {
		return nil, ErrEmptyBatch
	}

	data := make([][]byte, len(b.calls))
	for i, c := range b.calls {
		if c.Target != b.target {
			return nil, fmt.Errorf("%w: call %d (%s) targets %s, batch targets %s",
				ErrTargetMismatch, i, c.Method, c.Target.Hex(), b.target.Hex())
		}
		data[i] = c.Data
	}

	return parsedMulticall.Pack("multicall", data)
}

// Submit simulates the batch, sends it as one transaction and waits for it
// to be mined. It is not retried; on failure the caller decides whether to
// rebuild and resend.
func (b *Builder) Submit(ctx context.Context) (*Result, error) {
	n := len(b.calls)

	data, err := b.Encode()
	if err != nil {
		return nil, &SubmissionError{Phase: PhaseBuild, Calls: n, Err: err}
	}
	value := b.Value()

	out, err := b.sender.Call(ctx, b.target, value, data)
	if err != nil {
		return nil, newSubmissionError(PhaseSimulate, n, common.Hash{}, err)
	}

	returns, err := decodeResults(out, n)
	if err != nil {
		return nil, &SubmissionError{Phase: PhaseSimulate, Calls: n, Err: err}
	}

	if b.sender.DryRun() {
		return &Result{Returns: returns, DryRun: true}, nil
	}

	tx, err := b.sender.Send(ctx, b.target, value, data)
	if err != nil {
		return nil, newSubmissionError(PhaseSend, n, common.Hash{}, err)
	}

	receipt, err := b.sender.WaitMined(ctx, tx)
	if err != nil {
		return nil, newSubmissionError(PhaseInclusion, n, tx.Hash(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, &SubmissionError{
			Phase:  PhaseInclusion,
			Calls:  n,
			TxHash: tx.Hash(),
			Err:    errReverted,
		}
	}

	return &Result{
		TxHash:  tx.Hash(),
		Receipt: receipt,
		Returns: returns,
	}, nil
}

func decodeResults(out []byte, n int) ([][]byte, error) {
	values, err := parsedMulticall.Unpack("multicall", out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode multicall results: %w", err)
	}
	if len(values) != 1 {
		return nil, ErrResultCount
	}

	returns, ok := values[0].([][]byte)
	if !ok || len(returns) != n {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrResultCount, len(returns), n)
	}
	return returns, nil
}

// Chunk splits calls into consecutive groups of at most size calls.
func Chunk(calls []Call, size int) [][]Call {
	if size <= 0 {
		size = len(calls)
	}

	var chunks [][]Call
	for start := 0; start < len(calls); start += size {
		end := start + size
		if end > len(calls) {
			end = len(calls)
		}
		chunks = append(chunks, calls[start:end])
	}
	return chunks
}

// SubmitChunked submits calls in groups of size, one transaction per group,
// pausing between groups. It stops at the first failing group and returns the
// results of the groups already mined.
func SubmitChunked(ctx context.Context, sender Sender, target common.Address, calls []Call, size int, pause time.Duration) ([]*Result, error) {
	var results []*Result

	chunks := Chunk(calls, size)
	for i, chunk := range chunks {
		res, err := New(sender, target).AddAll(chunk...).Submit(ctx)
		if err != nil {
			return results, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		results = append(results, res)

		if pause > 0 && i < len(chunks)-1 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(pause):
			}
		}
	}
	return results, nil
}
