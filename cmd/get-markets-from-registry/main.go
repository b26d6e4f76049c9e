package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dantezy/spark-market-scripts/internal/chain"
	"github.com/dantezy/spark-market-scripts/internal/config"
	"github.com/dantezy/spark-market-scripts/internal/logging"
	"github.com/dantezy/spark-market-scripts/internal/registry"
)

const (
	version = "0.1.0"
	banner  = `
Spark Market Registry v%s
Resolve pairs to market contracts through MARKET_REGISTRY
`
)

func main() {
	pairsFlag := flag.String("pairs", "BTC_USDC,ETH_USDC", "comma separated pairs, tokens read from <SYMBOL>_ID")
	flag.Parse()

	logger := logging.Must("get-markets-from-registry")
	defer logger.Sync()

	fmt.Printf(banner, version)
	fmt.Println(strings.Repeat("-", 60))

	cfg, err := config.LoadMinimal()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}
	registryAddr, err := cfg.RegistryAddress()
	if err != nil {
		logger.Fatal("registry address", zap.Error(err))
	}

	var (
		names []string
		pairs []registry.Pair
	)
	for _, name := range strings.Split(*pairsFlag, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		baseSym, quoteSym, err := config.PairAssets(name)
		if err != nil {
			logger.Fatal("bad pair", zap.Error(err))
		}
		base, err := cfg.AssetAddress(baseSym)
		if err != nil {
			logger.Fatal("base token", zap.Error(err))
		}
		quote, err := cfg.AssetAddress(quoteSym)
		if err != nil {
			logger.Fatal("quote token", zap.Error(err))
		}
		names = append(names, strings.ToUpper(name))
		pairs = append(pairs, registry.Pair{Base: base, Quote: quote})
	}
	if len(pairs) == 0 {
		logger.Fatal("no pairs given")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.TxTimeout)
	defer cancel()

	client, err := chain.Dial(ctx, cfg.ProviderURL)
	if err != nil {
		logger.Fatal("failed to connect", zap.Error(err))
	}
	defer client.Close()

	reg := registry.New(registryAddr, client)

	owner, regVersion, err := reg.Config(ctx)
	if err != nil {
		logger.Fatal("registry config", zap.Error(err))
	}
	logger.Info("registry",
		zap.String("address", registryAddr.Hex()),
		zap.String("owner", owner.Hex()),
		zap.Uint32("version", regVersion))

	markets, err := reg.Markets(ctx, pairs)
	if err != nil {
		logger.Fatal("markets", zap.Error(err))
	}
	for i, m := range markets {
		if !m.Registered() {
			logger.Info("market", zap.String("pair", names[i]), zap.String("market", "none"))
			continue
		}
		logger.Info("market", zap.String("pair", names[i]), zap.String("market", m.Address.Hex()))
	}
}
