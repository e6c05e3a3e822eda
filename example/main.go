// Example usage of the NFT exchange strategy engine
package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"

	nftexchange "github.com/kaifufi/nft-exchange-strategies-go"
	"github.com/kaifufi/nft-exchange-strategies-go/chain"
	"github.com/kaifufi/nft-exchange-strategies-go/oracle"
	"github.com/kaifufi/nft-exchange-strategies-go/strategy"
)

func main() {
	// Optional .env with NFTX_* settings (NFTX_OWNER is required) and MAKER_PRIVATE_KEY
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to load .env: %v", err)
	}

	config, err := nftexchange.LoadConfig(os.Getenv("NFTX_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	owner := common.HexToAddress(config.Owner)
	protocol := common.HexToAddress(config.ProtocolAddress)
	collection := common.HexToAddress("0xBC4CA0EdA7647A8aB7C2061c2E118A18a936f13D") // Replace with actual collection

	engine, err := nftexchange.NewEngine(*config)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}
	defer engine.Close()

	ctx := context.Background()

	// Register a static floor price feed unless one is configured
	if _, ok := engine.Resolver().PriceFeed(collection); !ok {
		floor := mustUnits("9.7")
		feed := oracle.NewStaticFeed(floor, uint64(time.Now().Unix()))
		if err := engine.SetPriceFeed(ctx, owner, collection, feed); err != nil {
			log.Fatalf("Failed to set price feed: %v", err)
		}
	}

	builder := chain.NewMakerBuilder(signingKey())

	// Example: floor premium ask, 0.1 above the oracle floor
	fmt.Println("Filling floor premium ask...")
	premium, err := chain.EncodeUint256(mustUnits("0.1"))
	if err != nil {
		log.Fatalf("Failed to encode premium: %v", err)
	}
	ask, err := builder.BuildSignedMaker(&chain.MakerData{
		QuoteType:            chain.QuoteTypeAsk,
		OrderNonce:           big.NewInt(1),
		StrategyID:           strategy.IDFloorFromOracle,
		CollectionType:       chain.CollectionTypeERC721,
		Collection:           collection.Hex(),
		Currency:             config.WETH,
		Price:                mustUnits("9.7"),
		ItemIDs:              []*big.Int{big.NewInt(42)},
		Amounts:              []*big.Int{big.NewInt(1)},
		AdditionalParameters: premium,
	})
	if err != nil {
		log.Fatalf("Failed to build maker ask: %v", err)
	}

	valid, kind := engine.IsMakerValid(ctx, strategy.IDFloorFromOracle, strategy.SelectorFixedPremiumWithTakerBid, ask)
	fmt.Printf("Maker ask %s valid: %v (%s)\n", ask.Hash().Hex(), valid, kind)

	exec, err := engine.Execute(ctx, strategy.IDFloorFromOracle, strategy.SelectorFixedPremiumWithTakerBid, protocol,
		&chain.Taker{Recipient: owner, Price: mustUnits("10")}, ask)
	if err != nil {
		log.Printf("Failed to fill ask: %v", err)
	} else {
		fmt.Printf("Filled at %s\n", nftexchange.FormatUnits(exec.Price, nftexchange.MaxDecimals))
	}

	// Example: multi-fill collection bid for 4 items
	fmt.Println("\nFilling multi-fill bid...")
	bid, err := builder.BuildSignedMaker(&chain.MakerData{
		QuoteType:      chain.QuoteTypeBid,
		OrderNonce:     big.NewInt(2),
		StrategyID:     strategy.IDMultiFillCollection,
		CollectionType: chain.CollectionTypeERC721,
		Collection:     collection.Hex(),
		Currency:       config.WETH,
		Price:          mustUnits("9.5"),
		Amounts:        []*big.Int{big.NewInt(4)},
	})
	if err != nil {
		log.Fatalf("Failed to build maker bid: %v", err)
	}

	for _, items := range [][]int64{{7}, {8, 9, 10}, {11}} {
		taker := &chain.Taker{Recipient: owner, Price: mustUnits("9.5")}
		for _, id := range items {
			taker.ItemIDs = append(taker.ItemIDs, big.NewInt(id))
			taker.Amounts = append(taker.Amounts, big.NewInt(1))
		}

		exec, err := engine.Execute(ctx, strategy.IDMultiFillCollection, strategy.SelectorMultiFillCollectionWithTakerAsk, protocol, taker, bid)
		if err != nil {
			log.Printf("Failed to fill %v: %v", items, err)
			continue
		}
		fmt.Printf("Sold %v for %s, order consumed: %v\n",
			items, nftexchange.FormatUnits(exec.Price, nftexchange.MaxDecimals), exec.IsNonceInvalidated)
	}
}

func signingKey() *ecdsa.PrivateKey {
	if hexKey := os.Getenv("MAKER_PRIVATE_KEY"); hexKey != "" {
		key, err := crypto.HexToECDSA(hexKey)
		if err != nil {
			log.Fatalf("Invalid MAKER_PRIVATE_KEY: %v", err)
		}
		return key
	}
	key, err := crypto.GenerateKey()
	if err != nil {
		log.Fatalf("Failed to generate key: %v", err)
	}
	return key
}

func mustUnits(amount string) *big.Int {
	v, err := nftexchange.ParseUnits(amount, nftexchange.MaxDecimals)
	if err != nil {
		log.Fatalf("Invalid amount %s: %v", amount, err)
	}
	return v
}
