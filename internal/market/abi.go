package market

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// marketABI is the interface of the order book market contract.
const marketABI = `[
  {"type":"function","name":"deposit","stateMutability":"nonpayable","inputs":[{"name":"asset","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"},{"name":"assetType","type":"uint8"}],"outputs":[]},
  {"type":"function","name":"withdrawToMarket","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"},{"name":"assetType","type":"uint8"},{"name":"market","type":"address"}],"outputs":[]},
  {"type":"function","name":"openOrder","stateMutability":"payable","inputs":[{"name":"amount","type":"uint256"},{"name":"orderType","type":"uint8"},{"name":"price","type":"uint256"}],"outputs":[{"name":"orderId","type":"bytes32"}]},
  {"type":"function","name":"cancelOrder","stateMutability":"nonpayable","inputs":[{"name":"orderId","type":"bytes32"}],"outputs":[]},
  {"type":"function","name":"matchOrderPair","stateMutability":"nonpayable","inputs":[{"name":"orderId0","type":"bytes32"},{"name":"orderId1","type":"bytes32"}],"outputs":[]},
  {"type":"function","name":"matchOrderMany","stateMutability":"nonpayable","inputs":[{"name":"orders","type":"bytes32[]"}],"outputs":[]},
  {"type":"function","name":"fulfillOrderMany","stateMutability":"payable","inputs":[{"name":"amount","type":"uint256"},{"name":"orderType","type":"uint8"},{"name":"limitType","type":"uint8"},{"name":"price","type":"uint256"},{"name":"slippage","type":"uint256"},{"name":"orders","type":"bytes32[]"}],"outputs":[{"name":"orderId","type":"bytes32"}]},
  {"type":"function","name":"multicall","stateMutability":"payable","inputs":[{"name":"data","type":"bytes[]"}],"outputs":[{"name":"results","type":"bytes[]"}]},
  {"type":"function","name":"account","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"liquidBase","type":"uint256"},{"name":"liquidQuote","type":"uint256"},{"name":"lockedBase","type":"uint256"},{"name":"lockedQuote","type":"uint256"}]},
  {"type":"function","name":"userOrders","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"orders","type":"bytes32[]"}]},
  {"type":"function","name":"order","stateMutability":"view","inputs":[{"name":"orderId","type":"bytes32"}],"outputs":[{"name":"exists","type":"bool"},{"name":"amount","type":"uint256"},{"name":"orderType","type":"uint8"},{"name":"owner","type":"address"},{"name":"price","type":"uint256"},{"name":"blockHeight","type":"uint256"}]},
  {"type":"function","name":"orderChangeInfo","stateMutability":"view","inputs":[{"name":"orderId","type":"bytes32"}],"outputs":[{"name":"changeTypes","type":"uint8[]"},{"name":"blockHeights","type":"uint256[]"},{"name":"senders","type":"address[]"},{"name":"txIds","type":"bytes32[]"},{"name":"amountsBefore","type":"uint256[]"},{"name":"amountsAfter","type":"uint256[]"}]},
  {"type":"function","name":"matcherFee","stateMutability":"view","inputs":[],"outputs":[{"name":"fee","type":"uint256"}]},
  {"type":"function","name":"protocolFee","stateMutability":"view","inputs":[],"outputs":[{"name":"makerFees","type":"uint256[]"},{"name":"takerFees","type":"uint256[]"},{"name":"volumeThresholds","type":"uint256[]"}]},
  {"type":"function","name":"protocolFeeUser","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"makerFee","type":"uint256"},{"name":"takerFee","type":"uint256"}]},
  {"type":"function","name":"protocolFeeUserAmount","stateMutability":"view","inputs":[{"name":"amount","type":"uint256"},{"name":"user","type":"address"}],"outputs":[{"name":"makerFee","type":"uint256"},{"name":"takerFee","type":"uint256"}]},
  {"type":"function","name":"config","stateMutability":"view","inputs":[],"outputs":[{"name":"owner","type":"address"},{"name":"baseAsset","type":"address"},{"name":"baseDecimals","type":"uint32"},{"name":"quoteAsset","type":"address"},{"name":"quoteDecimals","type":"uint32"},{"name":"priceDecimals","type":"uint32"},{"name":"version","type":"uint32"}]},
  {"type":"event","name":"OpenOrderEvent","anonymous":false,"inputs":[{"name":"orderId","type":"bytes32","indexed":true},{"name":"user","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false},{"name":"orderType","type":"uint8","indexed":false},{"name":"price","type":"uint256","indexed":false}]},
  {"type":"event","name":"CancelOrderEvent","anonymous":false,"inputs":[{"name":"orderId","type":"bytes32","indexed":true},{"name":"user","type":"address","indexed":true}]},
  {"type":"event","name":"TradeOrderEvent","anonymous":false,"inputs":[{"name":"sellOrderId","type":"bytes32","indexed":true},{"name":"buyOrderId","type":"bytes32","indexed":true},{"name":"tradeSize","type":"uint256","indexed":false},{"name":"tradePrice","type":"uint256","indexed":false}]}
]`

// ABI is the parsed market contract interface.
var ABI = mustParse(marketABI)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("market: invalid ABI: " + err.Error())
	}
	return parsed
}
