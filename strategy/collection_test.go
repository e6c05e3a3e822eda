package strategy

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaifufi/nft-exchange-strategies-go/chain"
	"github.com/kaifufi/nft-exchange-strategies-go/merkle"
)

func collectionBid(root *common.Hash) *chain.Maker {
	maker := &chain.Maker{
		QuoteType:      chain.QuoteTypeBid,
		StrategyID:     IDCollectionOffer,
		CollectionType: chain.CollectionTypeERC721,
		Collection:     collection,
		Currency:       weth,
		Price:          ether("2"),
		Amounts:        ints(1),
	}
	if root != nil {
		maker.AdditionalParameters = mustEncode(chain.EncodeRoot(*root))
	}
	return maker
}

func (s *CollectionOffer) sell(selector Selector, price *big.Int, params []byte, maker *chain.Maker) (*Execution, error) {
	return s.Execute(context.Background(), Call{
		Caller:   protocol,
		Selector: selector,
		Taker:    &chain.Taker{Price: price, AdditionalParameters: params},
		Maker:    maker,
	})
}

func TestCollectionOffer_AnyItem(t *testing.T) {
	s := NewCollectionOffer(protocol)
	maker := collectionBid(nil)

	exec, err := s.sell(SelectorCollectionWithTakerAsk, ether("2"), mustEncode(chain.EncodeUint256(big.NewInt(9_999))), maker)
	require.NoError(t, err)
	assert.Equal(t, ether("2"), exec.Price)
	assert.Equal(t, ints(9_999), exec.ItemIDs)
	assert.Equal(t, ints(1), exec.Amounts)
	assert.True(t, exec.IsNonceInvalidated)

	_, err = s.sell(SelectorCollectionWithTakerAsk, ether("2.1"), mustEncode(chain.EncodeUint256(big.NewInt(1))), maker)
	requireKind(t, err, KindAskTooHigh)

	_, err = s.sell(SelectorCollectionWithTakerAsk, ether("1"), nil, maker)
	requireKind(t, err, KindOrderInvalid)
}

func TestCollectionOffer_SortedProof(t *testing.T) {
	s := NewCollectionOffer(protocol)
	leaves := []common.Hash{
		merkle.Leaf(big.NewInt(2)), merkle.Leaf(big.NewInt(4)), merkle.Leaf(big.NewInt(6)),
	}
	tree, err := merkle.NewTree(leaves, merkle.Sorted)
	require.NoError(t, err)
	root := tree.Root()
	maker := collectionBid(&root)

	proof, err := tree.Proof(1)
	require.NoError(t, err)
	exec, err := s.sell(SelectorCollectionWithTakerAskWithProof, ether("2"), mustEncode(chain.EncodeItemProof(big.NewInt(4), proof)), maker)
	require.NoError(t, err)
	assert.Equal(t, ints(4), exec.ItemIDs)

	_, err = s.sell(SelectorCollectionWithTakerAskWithProof, ether("2"), mustEncode(chain.EncodeItemProof(big.NewInt(5), proof)), maker)
	requireKind(t, err, KindMerkleProofInvalid)

	// price is checked before the proof
	_, err = s.sell(SelectorCollectionWithTakerAskWithProof, ether("3"), mustEncode(chain.EncodeItemProof(big.NewInt(5), proof)), maker)
	requireKind(t, err, KindAskTooHigh)
}

func TestCollectionOffer_PositionalProof(t *testing.T) {
	s := NewCollectionOffer(protocol)
	ids := []int64{11, 12, 13, 14, 15}
	leaves := make([]common.Hash, len(ids))
	for i, id := range ids {
		leaves[i] = merkle.Leaf(big.NewInt(id))
	}
	tree, err := merkle.NewTree(leaves, merkle.Positional)
	require.NoError(t, err)
	root := tree.Root()
	maker := collectionBid(&root)

	nodes, err := tree.PositionalProof(3)
	require.NoError(t, err)
	p := chain.PositionalProof{ItemID: big.NewInt(14)}
	for _, n := range nodes {
		p.Proof = append(p.Proof, n.Hash)
		p.Positions = append(p.Positions, uint8(n.Position))
	}

	_, err = s.sell(SelectorCollectionWithTakerAskWithPositionalProof, ether("1"), mustEncode(chain.EncodePositionalProof(p)), maker)
	require.NoError(t, err)

	// flip one sibling position
	p.Positions[0] ^= 1
	_, err = s.sell(SelectorCollectionWithTakerAskWithPositionalProof, ether("1"), mustEncode(chain.EncodePositionalProof(p)), maker)
	requireKind(t, err, KindMerkleProofInvalid)
}

func TestCollectionOffer_RarityProof(t *testing.T) {
	s := NewCollectionOffer(protocol)
	leaves := []common.Hash{
		merkle.LeafWithAux(big.NewInt(1), big.NewInt(90)),
		merkle.LeafWithAux(big.NewInt(2), big.NewInt(15)),
		merkle.LeafWithAux(big.NewInt(3), big.NewInt(60)),
		merkle.LeafWithAux(big.NewInt(4), big.NewInt(99)),
	}
	tree, err := merkle.NewTree(leaves, merkle.Sorted)
	require.NoError(t, err)
	root := tree.Root()
	maker := collectionBid(&root)

	proof, err := tree.Proof(2)
	require.NoError(t, err)
	_, err = s.sell(SelectorCollectionWithTakerAskWithRarityProof, ether("2"),
		mustEncode(chain.EncodeItemRarityProof(big.NewInt(3), big.NewInt(60), proof)), maker)
	require.NoError(t, err)

	// lying about the rarity changes the leaf
	_, err = s.sell(SelectorCollectionWithTakerAskWithRarityProof, ether("2"),
		mustEncode(chain.EncodeItemRarityProof(big.NewInt(3), big.NewInt(99), proof)), maker)
	requireKind(t, err, KindMerkleProofInvalid)

	// the plain proof selector hashes the id alone
	_, err = s.sell(SelectorCollectionWithTakerAskWithProof, ether("2"),
		mustEncode(chain.EncodeItemProof(big.NewInt(3), proof)), maker)
	requireKind(t, err, KindMerkleProofInvalid)
}

func TestCollectionOffer_IsMakerValid(t *testing.T) {
	s := NewCollectionOffer(protocol)
	ctx := context.Background()

	valid, kind := s.IsMakerValid(ctx, collectionBid(nil), SelectorCollectionWithTakerAsk)
	assert.True(t, valid)
	assert.Equal(t, KindNone, kind)

	// proof selectors need a root
	valid, kind = s.IsMakerValid(ctx, collectionBid(nil), SelectorCollectionWithTakerAskWithProof)
	assert.False(t, valid)
	assert.Equal(t, KindOrderInvalid, kind)

	two := collectionBid(nil)
	two.Amounts = ints(1, 1)
	valid, kind = s.IsMakerValid(ctx, two, SelectorCollectionWithTakerAsk)
	assert.False(t, valid)
	assert.Equal(t, KindOrderInvalid, kind)

	ask := collectionBid(nil)
	ask.QuoteType = chain.QuoteTypeAsk
	valid, kind = s.IsMakerValid(ctx, ask, SelectorCollectionWithTakerAsk)
	assert.False(t, valid)
	assert.Equal(t, KindOrderInvalid, kind)

	fungible := collectionBid(nil)
	fungible.CollectionType = chain.CollectionTypeERC1155
	fungible.Amounts = ints(5)
	valid, _ = s.IsMakerValid(ctx, fungible, SelectorCollectionWithTakerAsk)
	assert.True(t, valid)
}
