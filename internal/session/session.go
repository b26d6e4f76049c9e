// Package session wires configuration, wallet, chain access and the market
// clients together for the command line tools.
package session

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/dantezy/spark-market-scripts/internal/chain"
	"github.com/dantezy/spark-market-scripts/internal/config"
	"github.com/dantezy/spark-market-scripts/internal/erc20"
	"github.com/dantezy/spark-market-scripts/internal/market"
	"github.com/dantezy/spark-market-scripts/internal/strategy"
	"github.com/dantezy/spark-market-scripts/internal/telegram"
	"github.com/dantezy/spark-market-scripts/internal/wallet"
)

// Mode selects whether the session can sign transactions.
type Mode int

const (
	ReadOnly Mode = iota
	Signing
)

// Session is everything a tool needs to talk to one market.
type Session struct {
	Config  *config.Config
	Logger  *zap.Logger
	Backend chain.Backend
	// Tx is nil in read-only sessions.
	Tx *chain.Transactor

	Market      *market.Market
	Info        market.Config
	Scale       strategy.Scale
	Base        *erc20.Token
	Quote       *erc20.Token
	BaseSymbol  string
	QuoteSymbol string

	close func()
}

// Open loads the configuration, dials the provider and binds the market
// selected by PAIR.
func Open(ctx context.Context, mode Mode, logger *zap.Logger) (*Session, error) {
	var (
		cfg *config.Config
		err error
	)
	if mode == Signing {
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadMinimal()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger.Info("connecting to provider", zap.String("url", cfg.ProviderURL))
	client, err := chain.Dial(ctx, cfg.ProviderURL)
	if err != nil {
		return nil, err
	}

	s, err := Attach(ctx, cfg, client, mode, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	s.close = client.Close
	return s, nil
}

// Attach builds a session on an existing backend.
func Attach(ctx context.Context, cfg *config.Config, backend chain.Backend, mode Mode, logger *zap.Logger, opts ...chain.Option) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	baseSym, quoteSym, err := config.PairAssets(cfg.Pair)
	if err != nil {
		return nil, err
	}

	marketAddr, err := cfg.MarketAddress(cfg.Pair)
	if err != nil {
		return nil, err
	}

	s := &Session{
		Config:      cfg,
		Logger:      logger,
		Backend:     backend,
		BaseSymbol:  baseSym,
		QuoteSymbol: quoteSym,
	}

	if mode == Signing {
		if s.Tx, err = newTransactor(ctx, cfg, backend, logger, opts); err != nil {
			return nil, err
		}
	}

	s.Market = market.New(marketAddr, backend, s.Tx)
	if s.Info, err = s.Market.Config(ctx); err != nil {
		return nil, fmt.Errorf("failed to read market config: %w", err)
	}
	s.Scale = strategy.ScaleOf(s.Info)
	s.Base = erc20.New(s.Info.BaseAsset, backend, s.Tx)
	s.Quote = erc20.New(s.Info.QuoteAsset, backend, s.Tx)

	logger.Info("market bound",
		zap.String("pair", cfg.Pair),
		zap.String("market", marketAddr.Hex()),
		zap.String("base", baseSym),
		zap.Uint32("base_decimals", s.Info.BaseDecimals),
		zap.String("quote", quoteSym),
		zap.Uint32("quote_decimals", s.Info.QuoteDecimals),
		zap.Uint32("price_decimals", s.Info.PriceDecimals))

	return s, nil
}

func newTransactor(ctx context.Context, cfg *config.Config, backend chain.Backend, logger *zap.Logger, extra []chain.Option) (*chain.Transactor, error) {
	w, err := wallet.New(cfg.Mnemonic, cfg.PrivateKey, cfg.DerivationPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	opts := []chain.Option{
		chain.WithDryRun(cfg.DryRun),
		chain.WithLogger(logger),
	}
	if cfg.GasLimit > 0 {
		opts = append(opts, chain.WithGasLimit(cfg.GasLimit))
	}
	opts = append(opts, extra...)

	var chainID *big.Int
	if cfg.ChainID > 0 {
		chainID = big.NewInt(cfg.ChainID)
	}

	tx, err := chain.NewTransactor(ctx, backend, w, chainID, opts...)
	if err != nil {
		return nil, err
	}

	logger.Info("wallet ready",
		zap.String("address", w.AddressHex()),
		zap.Bool("mnemonic", cfg.UseMnemonic()),
		zap.String("chain_id", tx.ChainID().String()),
		zap.Bool("dry_run", tx.DryRun()))
	return tx, nil
}

// As returns a copy of the session that signs with another hex private key.
// The copy shares the provider connection and must not be closed.
func (s *Session) As(ctx context.Context, privateKey string, opts ...chain.Option) (*Session, error) {
	cfg := *s.Config
	cfg.Mnemonic = ""
	cfg.PrivateKey = privateKey

	tx, err := newTransactor(ctx, &cfg, s.Backend, s.Logger, opts)
	if err != nil {
		return nil, err
	}

	other := *s
	other.Config = &cfg
	other.Tx = tx
	other.Market = market.New(s.Market.Address(), s.Backend, tx)
	other.Base = erc20.New(s.Info.BaseAsset, s.Backend, tx)
	other.Quote = erc20.New(s.Info.QuoteAsset, s.Backend, tx)
	other.close = nil
	return &other, nil
}

// Close releases the provider connection.
func (s *Session) Close() {
	if s.close != nil {
		s.close()
	}
}

// User returns the signing address, or the zero address when read-only.
func (s *Session) User() common.Address {
	if s.Tx == nil {
		return common.Address{}
	}
	return s.Tx.From()
}

// Funder deposits into the session market from the signer's wallet.
func (s *Session) Funder() *strategy.Funder {
	return strategy.NewFunder(s.Market, s.Base, s.Quote, s.Scale, s.Logger)
}

// Telegram returns the notification bot, disabled when not configured.
func (s *Session) Telegram() (*telegram.Bot, error) {
	token := ""
	if s.Config.HasTelegram() {
		token = s.Config.TelegramBotToken
	}
	bot, err := telegram.NewBot(token, s.Config.TelegramChatID, s.Logger)
	if err != nil {
		return nil, err
	}
	bot.SetDryRun(s.Config.DryRun)
	return bot, nil
}

// MarketFor binds another pair's market with the session's transactor.
func (s *Session) MarketFor(pair string) (*market.Market, error) {
	addr, err := s.Config.MarketAddress(pair)
	if err != nil {
		return nil, err
	}
	return market.New(addr, s.Backend, s.Tx), nil
}

// Token binds the token configured as <SYMBOL>_ID, or the session's own base
// or quote token when the symbol matches the pair.
func (s *Session) Token(symbol string) (*erc20.Token, error) {
	switch strings.ToUpper(symbol) {
	case s.BaseSymbol:
		return s.Base, nil
	case s.QuoteSymbol:
		return s.Quote, nil
	}
	addr, err := s.Config.AssetAddress(symbol)
	if err != nil {
		return nil, err
	}
	return erc20.New(addr, s.Backend, s.Tx), nil
}

// Asset returns the token address and scale of the pair's base or quote side.
func (s *Session) Asset(side market.AssetType) (common.Address, uint32, string) {
	if side == market.Quote {
		return s.Info.QuoteAsset, s.Info.QuoteDecimals, s.QuoteSymbol
	}
	return s.Info.BaseAsset, s.Info.BaseDecimals, s.BaseSymbol
}

// LogAccount prints the signer's market account in readable units.
func (s *Session) LogAccount(ctx context.Context, label string) (market.Account, error) {
	acc, err := s.Market.Account(ctx, s.User())
	if err != nil {
		return market.Account{}, fmt.Errorf("failed to read account: %w", err)
	}
	s.Logger.Info(label,
		zap.String("liquid_"+strings.ToLower(s.BaseSymbol), s.Scale.FormatBase(acc.Liquid.Base)),
		zap.String("liquid_"+strings.ToLower(s.QuoteSymbol), s.Scale.FormatQuote(acc.Liquid.Quote)),
		zap.String("locked_"+strings.ToLower(s.BaseSymbol), s.Scale.FormatBase(acc.Locked.Base)),
		zap.String("locked_"+strings.ToLower(s.QuoteSymbol), s.Scale.FormatQuote(acc.Locked.Quote)))
	return acc, nil
}

// Orders reads every open order of the signer.
func (s *Session) Orders(ctx context.Context) ([]market.Order, error) {
	ids, err := s.Market.UserOrders(ctx, s.User())
	if err != nil {
		return nil, fmt.Errorf("failed to read user orders: %w", err)
	}
	orders := make([]market.Order, 0, len(ids))
	for _, id := range ids {
		o, ok, err := s.Market.Order(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to read order %s: %w", id.Short(), err)
		}
		if ok {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

// LogOrder prints one order in readable units.
func (s *Session) LogOrder(label string, o market.Order) {
	s.Logger.Info(label,
		zap.String("id", o.ID.Hex()),
		zap.Stringer("side", o.OrderType),
		zap.String("amount", s.Scale.FormatBase(o.Amount)),
		zap.String("price", s.Scale.FormatPrice(o.Price)),
		zap.String("owner", o.Owner.Hex()),
		zap.Uint64("block", o.BlockHeight))
}
