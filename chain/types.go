package chain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// QuoteType represents the side of a maker order
type QuoteType uint8

const (
	QuoteTypeBid QuoteType = iota
	QuoteTypeAsk
)

func (q QuoteType) String() string {
	switch q {
	case QuoteTypeBid:
		return "bid"
	case QuoteTypeAsk:
		return "ask"
	default:
		return "unknown"
	}
}

// CollectionType represents the token standard of a collection
type CollectionType uint8

const (
	CollectionTypeERC721 CollectionType = iota
	CollectionTypeERC1155
)

// StrategyID identifies an execution strategy
type StrategyID uint64

// Maker represents a reusable, signed maker order.
// Price is the minimum for asks and the maximum for bids.
type Maker struct {
	QuoteType            QuoteType
	GlobalNonce          *big.Int
	SubsetNonce          *big.Int
	OrderNonce           *big.Int
	StrategyID           StrategyID
	CollectionType       CollectionType
	Collection           common.Address
	Currency             common.Address
	Signer               common.Address
	StartTime            uint64
	EndTime              uint64
	Price                *big.Int
	ItemIDs              []*big.Int
	Amounts              []*big.Int
	AdditionalParameters []byte
	Signature            []byte
}

// Taker represents a one-shot fulfillment request.
// Price is the maximum when filling an ask and the minimum when filling a bid.
type Taker struct {
	Recipient            common.Address
	Price                *big.Int
	ItemIDs              []*big.Int
	Amounts              []*big.Int
	AdditionalParameters []byte
}

// MakerData represents the data for building a maker order
type MakerData struct {
	QuoteType            QuoteType
	GlobalNonce          *big.Int
	SubsetNonce          *big.Int
	OrderNonce           *big.Int
	StrategyID           StrategyID
	CollectionType       CollectionType
	Collection           string
	Currency             string
	Signer               string
	StartTime            uint64
	EndTime              uint64
	Price                *big.Int
	ItemIDs              []*big.Int
	Amounts              []*big.Int
	AdditionalParameters []byte
}

// roundDataOutput mirrors the outputs of a Chainlink aggregator latestRoundData call
type roundDataOutput struct {
	RoundId         *big.Int
	Answer          *big.Int
	StartedAt       *big.Int
	UpdatedAt       *big.Int
	AnsweredInRound *big.Int
}

// Chainlink aggregator ABI JSON for latestRoundData and decimals
const aggregatorABIJSON = `[
	{
		"inputs": [],
		"name": "latestRoundData",
		"outputs": [
			{"name": "roundId", "type": "uint80"},
			{"name": "answer", "type": "int256"},
			{"name": "startedAt", "type": "uint256"},
			{"name": "updatedAt", "type": "uint256"},
			{"name": "answeredInRound", "type": "uint80"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "decimals",
		"outputs": [{"name": "", "type": "uint8"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// GetAggregatorABI returns the parsed Chainlink aggregator ABI
func GetAggregatorABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(aggregatorABIJSON))
	if err != nil {
		panic("failed to parse aggregator ABI: " + err.Error())
	}
	return parsed
}
