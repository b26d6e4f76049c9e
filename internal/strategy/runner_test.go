package strategy_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dantezy/spark-market-scripts/internal/erc20"
	"github.com/dantezy/spark-market-scripts/internal/market"
	"github.com/dantezy/spark-market-scripts/internal/market/markettest"
	"github.com/dantezy/spark-market-scripts/internal/strategy"
	"github.com/dantezy/spark-market-scripts/internal/telegram"
	"github.com/dantezy/spark-market-scripts/internal/units"
)

type fixedPrice float64

func (p fixedPrice) Price(ctx context.Context, asset string) (float64, error) {
	return float64(p), nil
}

type brokenFeed struct{}

func (brokenFeed) Price(ctx context.Context, asset string) (float64, error) {
	return 0, errors.New("feed down")
}

type rig struct {
	be     *markettest.Backend
	market *market.Market
	funder *strategy.Funder
	scale  strategy.Scale
	user   common.Address
	tg     *telegram.Bot
}

func newRig(t *testing.T) *rig {
	t.Helper()
	be := markettest.NewDefault()
	tx := be.Transactor(t, markettest.Key0)
	opts := be.Options()
	logger := zaptest.NewLogger(t)

	m := market.New(opts.Market, be, tx)
	cfg, err := m.Config(context.Background())
	require.NoError(t, err)
	scale := strategy.ScaleOf(cfg)

	tg, err := telegram.NewBot("", "", logger)
	require.NoError(t, err)

	return &rig{
		be:     be,
		market: m,
		funder: strategy.NewFunder(m, erc20.New(opts.Base, be, tx), erc20.New(opts.Quote, be, tx), scale, logger),
		scale:  scale,
		user:   tx.From(),
		tg:     tg,
	}
}

// mint credits readable amounts of both tokens to the rig's wallet.
func (r *rig) mint(base, quote float64) {
	r.be.Mint(r.be.Options().Base, r.user, r.scale.Base(base))
	r.be.Mint(r.be.Options().Quote, r.user, r.scale.Quote(quote))
}

func TestFunderDepositAndTopUp(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	r.mint(2, 5000)

	res, err := r.funder.Deposit(ctx, market.Balance{Base: r.scale.Base(1), Quote: new(big.Int)})
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Len(t, res.Returns, 1)

	acct := r.be.Account(r.user)
	require.Equal(t, "100000000", acct.Liquid.Base.String())
	require.Zero(t, acct.Liquid.Quote.Sign())

	deposited, err := r.funder.TopUp(ctx, market.Balance{Base: r.scale.Base(1.5), Quote: r.scale.Quote(1000)})
	require.NoError(t, err)
	require.Equal(t, "50000000", deposited.Base.String())
	require.Equal(t, "1000000000", deposited.Quote.String())

	acct = r.be.Account(r.user)
	require.Equal(t, "150000000", acct.Liquid.Base.String())
	require.Equal(t, "1000000000", acct.Liquid.Quote.String())

	// already covered
	deposited, err = r.funder.TopUp(ctx, market.Balance{Base: r.scale.Base(1), Quote: r.scale.Quote(1000)})
	require.NoError(t, err)
	require.Zero(t, deposited.Base.Sign())
	require.Zero(t, deposited.Quote.Sign())

	res, err = r.funder.Deposit(ctx, market.Balance{Base: new(big.Int), Quote: new(big.Int)})
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestFunderDepositWithoutTokensFails(t *testing.T) {
	r := newRig(t)

	_, err := r.funder.Deposit(context.Background(), market.Balance{Base: r.scale.Base(1), Quote: r.scale.Quote(1)})
	require.ErrorContains(t, err, "exceeds balance")

	acct := r.be.Account(r.user)
	require.Zero(t, acct.Liquid.Base.Sign())
}

func quickMarketMaker() strategy.MarketMakerConfig {
	cfg := strategy.DefaultMarketMakerConfig("BTC")
	cfg.CancelPause = 0
	cfg.OrderPause = 0
	cfg.Interval = 0
	return cfg
}

func TestMarketMakerRunOnce(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	r.mint(1, 1000)

	// a resting sell far below the band
	_, err := r.funder.Deposit(ctx, market.Balance{Base: big.NewInt(1_000_000)})
	require.NoError(t, err)
	stale, _, err := r.market.OpenOrder(ctx, big.NewInt(1_000_000), market.Sell, r.scale.Price(50_000), nil)
	require.NoError(t, err)

	cfg := quickMarketMaker()
	mm, err := strategy.NewMarketMaker(r.market, r.funder, fixedPrice(60_000), r.scale, cfg, r.tg, zaptest.NewLogger(t))
	require.NoError(t, err)

	report, err := mm.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 60_000.0, report.Price)
	require.Equal(t, 1, report.Cancelled)
	require.Equal(t, 10, report.Opened)
	require.Zero(t, report.Failed)
	require.Equal(t, 10, report.Orders)

	_, found, err := r.market.Order(ctx, stale)
	require.NoError(t, err)
	require.False(t, found)

	// the cancelled sell freed enough base, only quote was topped up
	band, err := strategy.Band(60_000, cfg.Band, r.scale)
	require.NoError(t, err)
	require.Zero(t, report.Deposited.Base.Sign())
	require.Zero(t, report.Deposited.Quote.Cmp(band.Required.Quote))
	require.InDelta(t, 50, units.ToFloat(report.Deposited.Quote, r.scale.QuoteDecimals), 0.01)

	// locked quote never exceeds what was required
	acct := r.be.Account(r.user)
	require.LessOrEqual(t, acct.Locked.Quote.Cmp(band.Required.Quote), 0)
}

func TestMarketMakerRun(t *testing.T) {
	r := newRig(t)
	r.mint(1, 1000)

	cfg := quickMarketMaker()
	cfg.Iterations = 2
	mm, err := strategy.NewMarketMaker(r.market, r.funder, fixedPrice(60_000), r.scale, cfg, r.tg, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, mm.Run(context.Background()))

	// the lowest buy and the highest sell sit half a spread outside the band,
	// so the second pass replaces them along with a fresh set
	require.Len(t, r.be.Orders(r.user), 18)
}

func TestMarketMakerStopsOnPriceError(t *testing.T) {
	r := newRig(t)
	mm, err := strategy.NewMarketMaker(r.market, r.funder, brokenFeed{}, r.scale, quickMarketMaker(), r.tg, zaptest.NewLogger(t))
	require.NoError(t, err)

	err = mm.Run(context.Background())
	require.ErrorContains(t, err, "feed down")
	require.Zero(t, r.be.TxCount())
}

func TestMarketMakerStopsWhenDepositFails(t *testing.T) {
	r := newRig(t) // nothing minted

	mm, err := strategy.NewMarketMaker(r.market, r.funder, fixedPrice(60_000), r.scale, quickMarketMaker(), nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = mm.RunOnce(context.Background())
	require.ErrorContains(t, err, "deposit")
	require.Empty(t, r.be.Orders(r.user))
}

func TestMarketMakerNeedsSigner(t *testing.T) {
	r := newRig(t)
	readOnly := market.New(r.be.Options().Market, r.be, nil)

	_, err := strategy.NewMarketMaker(readOnly, r.funder, fixedPrice(1), r.scale, quickMarketMaker(), nil, nil)
	require.Error(t, err)

	_, err = strategy.NewMarketMaker(r.market, r.funder, nil, r.scale, quickMarketMaker(), nil, nil)
	require.Error(t, err)
}

func quickLoadTest() strategy.LoadTestConfig {
	cfg := strategy.DefaultLoadTestConfig("BTC")
	cfg.Grid = strategy.GridConfig{Range: 500, Step: 100, TotalBase: 0.15, TotalQuote: 1000, MinBase: 0.0001, MinQuote: 1}
	cfg.BatchPause = 0
	cfg.Interval = 0
	cfg.Iterations = 2
	return cfg
}

func TestLoadTestNormalGrid(t *testing.T) {
	r := newRig(t)
	r.mint(10, 10_000)

	lt, err := strategy.NewLoadTest(r.market, r.funder, fixedPrice(60_000), r.scale, quickLoadTest(), r.tg, zaptest.NewLogger(t))
	require.NoError(t, err)

	reports, err := lt.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)

	// odd iterations quote 2% lower
	require.InDelta(t, 58_800, reports[0].Price, 1e-6)
	require.Equal(t, 60_000.0, reports[1].Price)

	for _, rep := range reports {
		require.Equal(t, 22, rep.Quotes)
		require.Len(t, rep.Batches, 3)
		require.Len(t, rep.Batches[0].Returns, 10)
		require.Len(t, rep.Batches[2].Returns, 2)
		for _, b := range rep.Batches {
			require.NotEqual(t, common.Hash{}, b.TxHash)
		}
	}
	require.Equal(t, 22, reports[0].Orders)
	require.Equal(t, 44, reports[1].Orders)

	// each iteration deposited 1 BTC and 3000 USDC
	acct := r.be.Account(r.user)
	total := new(big.Int).Add(acct.Liquid.Base, acct.Locked.Base)
	require.Equal(t, "200000000", total.String())
}

func TestLoadTestAlternating(t *testing.T) {
	r := newRig(t)
	r.mint(1, 1000)

	cfg := quickLoadTest()
	cfg.Shape = strategy.ShapeAlternating
	cfg.Orders = 10
	cfg.DepositBase, cfg.DepositQuote = 0, 0
	cfg.OddDiscount = 1
	cfg.Iterations = 1

	lt, err := strategy.NewLoadTest(r.market, r.funder, fixedPrice(60_000), r.scale, cfg, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	reports, err := lt.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.Len(t, reports[0].Batches, 1)
	require.Equal(t, 10, reports[0].Orders)

	// deposits matched the orders exactly, nothing is left liquid
	acct := r.be.Account(r.user)
	require.Zero(t, acct.Liquid.Base.Sign())
	require.Equal(t, "83335", acct.Locked.Base.String())
}

func TestLoadTestStopsOnFailedBatch(t *testing.T) {
	r := newRig(t)
	r.mint(10, 10_000)

	cfg := quickLoadTest()
	cfg.DepositQuote = 1 // far less than the grid's buys need

	lt, err := strategy.NewLoadTest(r.market, r.funder, fixedPrice(60_000), r.scale, cfg, r.tg, zaptest.NewLogger(t))
	require.NoError(t, err)

	reports, err := lt.Run(context.Background())
	require.ErrorContains(t, err, "InsufficientBalance")
	require.Empty(t, reports)
	require.Empty(t, r.be.Orders(r.user))
}

func TestLoadTestRejectsUnknownShape(t *testing.T) {
	r := newRig(t)
	cfg := quickLoadTest()
	cfg.Shape = "spiral"

	_, err := strategy.NewLoadTest(r.market, r.funder, fixedPrice(1), r.scale, cfg, nil, nil)
	require.Error(t, err)
}

func TestDrainCalls(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	r.mint(1, 1000)

	_, err := r.funder.Deposit(ctx, market.Balance{Base: r.scale.Base(1), Quote: r.scale.Quote(1000)})
	require.NoError(t, err)
	_, _, err = r.market.OpenOrder(ctx, r.scale.Base(0.5), market.Sell, r.scale.Price(70000), nil)
	require.NoError(t, err)
	_, _, err = r.market.OpenOrder(ctx, r.scale.Base(0.01), market.Buy, r.scale.Price(50000), nil)
	require.NoError(t, err)

	calls, total, err := strategy.DrainCalls(ctx, r.market, r.user, nil)
	require.NoError(t, err)
	require.Len(t, calls, 4)
	require.Equal(t, "cancelOrder", calls[0].Method)
	require.Equal(t, "withdraw", calls[3].Method)
	require.Equal(t, "100000000", total.Base.String())
	require.Equal(t, "1000000000", total.Quote.String())

	_, err = r.market.Batch().AddAll(calls...).Submit(ctx)
	require.NoError(t, err)

	acct := r.be.Account(r.user)
	require.Zero(t, acct.Liquid.Base.Sign())
	require.Zero(t, acct.Liquid.Quote.Sign())
	require.Zero(t, acct.Locked.Base.Sign())
	require.Zero(t, acct.Locked.Quote.Sign())
	require.Empty(t, r.be.Orders(r.user))

	opts := r.be.Options()
	require.Equal(t, "100000000", r.be.TokenBalance(opts.Base, r.user).String())
	require.Equal(t, "1000000000", r.be.TokenBalance(opts.Quote, r.user).String())
}

func TestDrainCallsEmptyAccount(t *testing.T) {
	r := newRig(t)
	calls, total, err := strategy.DrainCalls(context.Background(), r.market, r.user, nil)
	require.NoError(t, err)
	require.Empty(t, calls)
	require.Zero(t, total.Base.Sign())
	require.Zero(t, total.Quote.Sign())
}

func TestDrainCallsToMarket(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	r.mint(0, 100)
	_, err := r.funder.Deposit(ctx, market.Balance{Quote: r.scale.Quote(100)})
	require.NoError(t, err)

	target := common.HexToAddress("0x000000000000000000000000000000000000a002")
	calls, _, err := strategy.DrainCalls(ctx, r.market, r.user, &target)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	require.Equal(t, "withdrawToMarket", calls[0].Method)

	_, err = r.market.Batch().AddAll(calls...).Submit(ctx)
	require.NoError(t, err)
	require.Equal(t, "100000000", r.be.TokenBalance(r.be.Options().Quote, target).String())
}

func TestPlaceEachSkipsRejectedOrders(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	r.mint(1, 0)
	_, err := r.funder.Deposit(ctx, market.Balance{Base: r.scale.Base(1)})
	require.NoError(t, err)

	quotes := []strategy.Quote{
		{Side: market.Sell, Amount: r.scale.Base(0.6), Price: r.scale.Price(65000)},
		{Side: market.Sell, Amount: r.scale.Base(0.6), Price: r.scale.Price(66000)},
		{Side: market.Sell, Amount: r.scale.Base(0.3), Price: r.scale.Price(67000)},
	}
	placed, err := strategy.PlaceEach(ctx, r.market, quotes, r.scale, 0, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, placed.IDs, 2)
	require.Equal(t, 1, placed.Failed)
	require.ElementsMatch(t, placed.IDs, r.be.Orders(r.user))
}

func TestPlaceEachStopsWhenCancelled(t *testing.T) {
	r := newRig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	quotes := []strategy.Quote{{Side: market.Sell, Amount: r.scale.Base(0.1), Price: r.scale.Price(65000)}}
	_, err := strategy.PlaceEach(ctx, r.market, quotes, r.scale, 0, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestAirdropNativeAndToken(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	r.be.Fund(r.user, big.NewInt(1_000))
	r.mint(0, 10)

	a := common.HexToAddress("0x00000000000000000000000000000000000000d1")
	b := common.HexToAddress("0x00000000000000000000000000000000000000d2")

	report, err := strategy.Airdrop(ctx, []common.Address{a, b}, strategy.NativeSender(r.market.Transactor(), big.NewInt(400)), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Equal(t, []common.Address{a, b}, report.Sent)
	require.Empty(t, report.Failed)

	quote := erc20.New(r.be.Options().Quote, r.be, r.market.Transactor())
	report, err = strategy.Airdrop(ctx, []common.Address{a, b}, strategy.TokenSender(quote, r.scale.Quote(6)), nil)
	require.NoError(t, err)
	require.Equal(t, []common.Address{a}, report.Sent)
	require.Equal(t, []common.Address{b}, report.Failed)
	require.Equal(t, "6000000", r.be.TokenBalance(r.be.Options().Quote, a).String())
}
