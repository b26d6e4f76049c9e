package strategy

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/dantezy/spark-market-scripts/internal/batch"
	"github.com/dantezy/spark-market-scripts/internal/erc20"
	"github.com/dantezy/spark-market-scripts/internal/market"
	"github.com/dantezy/spark-market-scripts/internal/units"
)

// Funder moves wallet tokens into a market account.
type Funder struct {
	market *market.Market
	base   *erc20.Token
	quote  *erc20.Token
	scale  Scale
	logger *zap.Logger
}

// NewFunder binds a market to its base and quote tokens.
func NewFunder(m *market.Market, base, quote *erc20.Token, s Scale, logger *zap.Logger) *Funder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Funder{market: m, base: base, quote: quote, scale: s, logger: logger}
}

// DepositCalls approves the market for both sides of amount and returns the
// deposit calls, ready to lead a multicall. Zero sides are skipped. In dry
// run nothing is approved and no calls are returned.
func (f *Funder) DepositCalls(ctx context.Context, amount market.Balance) ([]batch.Call, error) {
	type side struct {
		token  *erc20.Token
		amount *big.Int
		dec    uint32
	}
	sides := []side{
		{f.base, amount.Base, f.scale.BaseDecimals},
		{f.quote, amount.Quote, f.scale.QuoteDecimals},
	}

	tx := f.market.Transactor()
	if tx == nil {
		return nil, fmt.Errorf("deposit: market is read-only")
	}

	var calls []batch.Call
	for _, s := range sides {
		if s.amount == nil || s.amount.Sign() <= 0 {
			continue
		}
		if tx.DryRun() {
			f.logger.Info("dry run: would deposit",
				zap.String("token", s.token.Address().Hex()),
				zap.String("amount", units.Format(s.amount, s.dec)))
			continue
		}
		if _, err := s.token.EnsureAllowance(ctx, f.market.Address(), s.amount); err != nil {
			return nil, fmt.Errorf("approve %s: %w", s.token.Address().Hex(), err)
		}
		call, err := f.market.DepositCall(s.amount, s.token.Address())
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	return calls, nil
}

// Deposit deposits both sides of amount in a single multicall. A nil result
// means nothing was sent.
func (f *Funder) Deposit(ctx context.Context, amount market.Balance) (*batch.Result, error) {
	calls, err := f.DepositCalls(ctx, amount)
	if err != nil {
		return nil, err
	}
	if len(calls) == 0 {
		return nil, nil
	}

	res, err := f.market.Batch().AddAll(calls...).Submit(ctx)
	if err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}
	f.logger.Info("deposited",
		zap.String("base", units.Format(amount.Base, f.scale.BaseDecimals)),
		zap.String("quote", units.Format(amount.Quote, f.scale.QuoteDecimals)),
		zap.Stringer("tx", res.TxHash))
	return res, nil
}

// TopUp deposits whatever the user's liquid balance lacks to cover required
// and returns the amounts it deposited.
func (f *Funder) TopUp(ctx context.Context, required market.Balance) (market.Balance, error) {
	acct, err := f.market.Account(ctx, f.market.Transactor().From())
	if err != nil {
		return market.Balance{}, err
	}

	need := TopUpBalance(required, acct.Liquid)
	if need.Base.Sign() == 0 && need.Quote.Sign() == 0 {
		f.logger.Info("no additional deposit needed")
		return need, nil
	}

	if _, err := f.Deposit(ctx, need); err != nil {
		return market.Balance{}, err
	}
	return need, nil
}
