package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/kaifufi/nft-exchange-strategies-go/oracle"
)

// AggregatorCaller reads a Chainlink aggregator contract and implements oracle.Feed
type AggregatorCaller struct {
	client  ethereum.ContractCaller
	address common.Address
	abi     abi.ABI
	closer  func()
}

// NewAggregatorCaller creates an AggregatorCaller on top of an existing contract caller
func NewAggregatorCaller(client ethereum.ContractCaller, address common.Address) *AggregatorCaller {
	return &AggregatorCaller{
		client:  client,
		address: address,
		abi:     GetAggregatorABI(),
	}
}

// DialAggregator connects to rpcURL and returns an AggregatorCaller owning the connection
func DialAggregator(ctx context.Context, rpcURL string, address common.Address) (*AggregatorCaller, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}
	caller := NewAggregatorCaller(client, address)
	caller.closer = client.Close
	return caller, nil
}

// Address returns the aggregator contract address
func (ac *AggregatorCaller) Address() common.Address {
	return ac.address
}

// LatestRoundData implements oracle.Feed
func (ac *AggregatorCaller) LatestRoundData(ctx context.Context) (oracle.RoundData, error) {
	result, err := ac.call(ctx, "latestRoundData")
	if err != nil {
		return oracle.RoundData{}, err
	}

	var out roundDataOutput
	if err := ac.abi.UnpackIntoInterface(&out, "latestRoundData", result); err != nil {
		return oracle.RoundData{}, fmt.Errorf("failed to unpack latestRoundData: %w", err)
	}
	if out.UpdatedAt == nil || !out.UpdatedAt.IsUint64() {
		return oracle.RoundData{}, fmt.Errorf("updatedAt out of range from aggregator %s", ac.address.Hex())
	}

	return oracle.RoundData{
		Answer:    out.Answer,
		UpdatedAt: out.UpdatedAt.Uint64(),
	}, nil
}

// Decimals implements oracle.Feed
func (ac *AggregatorCaller) Decimals(ctx context.Context) (uint8, error) {
	result, err := ac.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}

	var decimals uint8
	if err := ac.abi.UnpackIntoInterface(&decimals, "decimals", result); err != nil {
		return 0, fmt.Errorf("failed to unpack decimals: %w", err)
	}
	return decimals, nil
}

// Close closes the RPC connection when the caller owns it
func (ac *AggregatorCaller) Close() {
	if ac.closer != nil {
		ac.closer()
	}
}

func (ac *AggregatorCaller) call(ctx context.Context, method string) ([]byte, error) {
	data, err := ac.abi.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	result, err := ac.client.CallContract(ctx, ethereum.CallMsg{
		To:   &ac.address,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s on %s: %w", method, ac.address.Hex(), err)
	}
	return result, nil
}
