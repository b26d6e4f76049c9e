package strategy

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/dantezy/spark-market-scripts/internal/chain"
	"github.com/dantezy/spark-market-scripts/internal/erc20"
)

// ReadRecipients parses one address per line. Blank lines and lines starting
// with # are skipped.
func ReadRecipients(r io.Reader) ([]common.Address, error) {
	var out []common.Address
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if !common.IsHexAddress(text) {
			return nil, fmt.Errorf("line %d: invalid address %q", line, text)
		}
		out = append(out, common.HexToAddress(text))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recipients: %w", err)
	}
	return out, nil
}

// Sender pays one recipient.
type Sender func(ctx context.Context, to common.Address) error

// NativeSender pays amount of the chain's native coin.
func NativeSender(tx *chain.Transactor, amount *big.Int) Sender {
	return func(ctx context.Context, to common.Address) error {
		_, err := tx.Transact(ctx, to, amount, nil)
		return err
	}
}

// TokenSender pays amount of an ERC-20 token.
func TokenSender(token *erc20.Token, amount *big.Int) Sender {
	return func(ctx context.Context, to common.Address) error {
		_, err := token.Transfer(ctx, to, amount)
		return err
	}
}

// AirdropReport lists who was paid.
type AirdropReport struct {
	Sent   []common.Address
	Failed []common.Address
}

// Airdrop pays every recipient in turn. A failed payment is logged and the
// run continues; only ctx ending stops it early.
func Airdrop(ctx context.Context, recipients []common.Address, send Sender, logger *zap.Logger) (AirdropReport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var report AirdropReport
	for _, to := range recipients {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := send(ctx, to); err != nil {
			report.Failed = append(report.Failed, to)
			logger.Warn("failed to send", zap.String("to", to.Hex()), zap.Error(err))
			continue
		}
		report.Sent = append(report.Sent, to)
		logger.Info("sent", zap.String("to", to.Hex()))
	}
	return report, nil
}
