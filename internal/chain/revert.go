package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

var ErrReverted = errors.New("execution reverted")

// RevertError is a contract revert with its decoded reason, if any.
type RevertError struct {
	TxHash common.Hash
	Reason string
	Data   []byte
}

func (e *RevertError) Error() string {
	msg := ErrReverted.Error()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.TxHash != (common.Hash{}) {
		msg += fmt.Sprintf(" (tx %s)", e.TxHash.Hex())
	}
	return msg
}

func (e *RevertError) Unwrap() error {
	return ErrReverted
}

// AsRevert converts an eth_call/estimateGas error into a *RevertError when the
// node reports revert data. Other errors are returned unchanged.
func AsRevert(err error) error {
	if err == nil {
		return nil
	}

	var revertErr *RevertError
	if errors.As(err, &revertErr) {
		return err
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data, ok := revertData(dataErr.ErrorData()); ok {
			return &RevertError{Reason: decodeReason(data), Data: data}
		}
	}

	if strings.Contains(err.Error(), ErrReverted.Error()) {
		return &RevertError{Reason: strings.TrimPrefix(strings.TrimPrefix(err.Error(), ErrReverted.Error()), ": ")}
	}

	return err
}

// RevertReason returns the decoded revert reason carried by err, or "".
func RevertReason(err error) string {
	var revertErr *RevertError
	if errors.As(AsRevert(err), &revertErr) {
		return revertErr.Reason
	}
	return ""
}

func revertData(v interface{}) ([]byte, bool) {
	switch data := v.(type) {
	case string:
		b, err := hexutil.Decode(data)
		if err != nil {
			return nil, false
		}
		return b, true
	case []byte:
		return data, true
	default:
		return nil, false
	}
}

// decodeReason unpacks Error(string) and Panic(uint256) payloads. Custom
// errors are reported by their selector.
func decodeReason(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if reason, err := abi.UnpackRevert(data); err == nil {
		return reason
	}
	if len(data) >= 4 {
		return fmt.Sprintf("custom error %s", hexutil.Encode(data[:4]))
	}
	return hexutil.Encode(data)
}
