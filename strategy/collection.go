package strategy

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kaifufi/nft-exchange-strategies-go/chain"
	"github.com/kaifufi/nft-exchange-strategies-go/merkle"
)

// CollectionOffer is a maker bid for any item of a collection, optionally restricted
// to the items committed to by a merkle root.
type CollectionOffer struct {
	base
}

// NewCollectionOffer creates the collection offer strategy
func NewCollectionOffer(protocol common.Address) *CollectionOffer {
	return &CollectionOffer{base: base{id: IDCollectionOffer, protocol: protocol}}
}

// Selectors implements Strategy
func (s *CollectionOffer) Selectors() []Selector {
	return []Selector{
		SelectorCollectionWithTakerAsk,
		SelectorCollectionWithTakerAskWithProof,
		SelectorCollectionWithTakerAskWithPositionalProof,
		SelectorCollectionWithTakerAskWithRarityProof,
	}
}

// Execute implements Strategy
func (s *CollectionOffer) Execute(ctx context.Context, call Call) (*Execution, error) {
	if err := s.checkCaller(call.Caller); err != nil {
		return nil, err
	}
	root, err := s.validateMaker(call.Maker, call.Selector)
	if err != nil {
		return nil, err
	}
	if err := checkTaker(call.Taker); err != nil {
		return nil, err
	}
	offer, err := decodeOffer(call.Selector, call.Taker.AdditionalParameters)
	if err != nil {
		return nil, err
	}

	maker := call.Maker
	if call.Taker.Price.Cmp(maker.Price) > 0 {
		return nil, fail(KindAskTooHigh, "taker ask %s above bid %s", call.Taker.Price, maker.Price)
	}
	if !offer.verify(root) {
		return nil, fail(KindMerkleProofInvalid, "item %s not in committed set", offer.itemID)
	}

	return &Execution{
		Price:              new(big.Int).Set(maker.Price),
		ItemIDs:            []*big.Int{new(big.Int).Set(offer.itemID)},
		Amounts:            copyInts(maker.Amounts),
		IsNonceInvalidated: true,
	}, nil
}

// IsMakerValid implements Strategy
func (s *CollectionOffer) IsMakerValid(ctx context.Context, maker *chain.Maker, selector Selector) (bool, ErrorKind) {
	return precheck(func() error {
		_, err := s.validateMaker(maker, selector)
		return err
	})
}

// validateMaker returns the committed root for proof selectors
func (s *CollectionOffer) validateMaker(maker *chain.Maker, selector Selector) (common.Hash, error) {
	if !hasSelector(s.Selectors(), selector) {
		return common.Hash{}, fail(KindFunctionSelectorInvalid, "%s", selector)
	}
	if err := checkQuote(maker, chain.QuoteTypeBid); err != nil {
		return common.Hash{}, err
	}
	if len(maker.Amounts) != 1 {
		return common.Hash{}, fail(KindOrderInvalid, "collection offer needs exactly one amount")
	}
	if err := checkAmount(maker.Amounts[0], maker.CollectionType); err != nil {
		return common.Hash{}, err
	}
	if selector == SelectorCollectionWithTakerAsk {
		return common.Hash{}, nil
	}
	root, err := chain.DecodeRoot(maker.AdditionalParameters)
	if err != nil {
		return common.Hash{}, decodeParams(err)
	}
	return root, nil
}

// offer is the item revealed by a taker together with its opening of the maker root
type offer struct {
	itemID *big.Int
	verify func(root common.Hash) bool
}

func decodeOffer(selector Selector, data []byte) (*offer, error) {
	switch selector {
	case SelectorCollectionWithTakerAsk:
		itemID, err := chain.DecodeUint256(data)
		if err != nil {
			return nil, decodeParams(err)
		}
		return &offer{itemID: itemID, verify: func(common.Hash) bool { return true }}, nil

	case SelectorCollectionWithTakerAskWithProof:
		p, err := chain.DecodeItemProof(data)
		if err != nil {
			return nil, decodeParams(err)
		}
		return &offer{itemID: p.ItemID, verify: func(root common.Hash) bool {
			return merkle.Verify(p.Proof, root, merkle.Leaf(p.ItemID))
		}}, nil

	case SelectorCollectionWithTakerAskWithRarityProof:
		p, err := chain.DecodeItemRarityProof(data)
		if err != nil {
			return nil, decodeParams(err)
		}
		return &offer{itemID: p.ItemID, verify: func(root common.Hash) bool {
			return merkle.Verify(p.Proof, root, merkle.LeafWithAux(p.ItemID, p.Rarity))
		}}, nil

	case SelectorCollectionWithTakerAskWithPositionalProof:
		p, err := chain.DecodePositionalProof(data)
		if err != nil {
			return nil, decodeParams(err)
		}
		nodes := make([]merkle.Node, len(p.Proof))
		for i := range p.Proof {
			nodes[i] = merkle.Node{Hash: p.Proof[i], Position: merkle.Position(p.Positions[i])}
		}
		return &offer{itemID: p.ItemID, verify: func(root common.Hash) bool {
			return merkle.VerifyWithPositions(nodes, root, merkle.Leaf(p.ItemID))
		}}, nil
	}
	return nil, fail(KindFunctionSelectorInvalid, "%s", selector)
}
