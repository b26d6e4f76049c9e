package strategy

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dantezy/spark-market-scripts/internal/batch"
	"github.com/dantezy/spark-market-scripts/internal/market"
)

// CancelCalls builds one cancelOrder call per id.
func CancelCalls(m *market.Market, ids []market.OrderID) ([]batch.Call, error) {
	calls := make([]batch.Call, 0, len(ids))
	for _, id := range ids {
		call, err := m.CancelOrderCall(id)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	return calls, nil
}

// DrainCalls cancels every open order of user and withdraws the whole
// account, liquid and locked. The cancels run first in the batch and release
// the locked funds before the withdrawals. When target is set the withdrawals
// go to that market instead of the wallet.
func DrainCalls(ctx context.Context, m *market.Market, user common.Address, target *common.Address) ([]batch.Call, market.Balance, error) {
	ids, err := m.UserOrders(ctx, user)
	if err != nil {
		return nil, market.Balance{}, fmt.Errorf("user orders: %w", err)
	}
	acct, err := m.Account(ctx, user)
	if err != nil {
		return nil, market.Balance{}, fmt.Errorf("account: %w", err)
	}

	calls, err := CancelCalls(m, ids)
	if err != nil {
		return nil, market.Balance{}, err
	}

	total := market.Balance{
		Base:  sum(acct.Liquid.Base, acct.Locked.Base),
		Quote: sum(acct.Liquid.Quote, acct.Locked.Quote),
	}
	for _, w := range []struct {
		asset  market.AssetType
		amount *big.Int
	}{{market.Base, total.Base}, {market.Quote, total.Quote}} {
		if w.amount.Sign() <= 0 {
			continue
		}
		var call batch.Call
		if target != nil {
			call, err = m.WithdrawToMarketCall(w.amount, w.asset, *target)
		} else {
			call, err = m.WithdrawCall(w.amount, w.asset)
		}
		if err != nil {
			return nil, market.Balance{}, err
		}
		calls = append(calls, call)
	}
	return calls, total, nil
}

func sum(a, b *big.Int) *big.Int {
	out := new(big.Int)
	if a != nil {
		out.Add(out, a)
	}
	if b != nil {
		out.Add(out, b)
	}
	return out
}
