package merkle

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func leavesFor(ids ...int64) []common.Hash {
	leaves := make([]common.Hash, len(ids))
	for i, id := range ids {
		leaves[i] = Leaf(big.NewInt(id))
	}
	return leaves
}

func TestLeaf_MatchesPackedEncoding(t *testing.T) {
	// keccak256(abi.encodePacked(uint256(1)))
	expected := common.HexToHash("0xb10e2d527612073b26eecdfd717e6a320cf44b4afac2b0732d9fcbe2b7fa0cf6")
	assert.Equal(t, expected, Leaf(big.NewInt(1)))
	assert.NotEqual(t, Leaf(big.NewInt(1)), LeafWithAux(big.NewInt(1), big.NewInt(0)))
}

func TestVerify_SortedTreeRoundTrip(t *testing.T) {
	leaves := leavesFor(2, 5, 9, 14, 21)
	tree, err := NewTree(leaves, Sorted)
	require.NoError(t, err)

	for i, leaf := range leaves {
		proof, err := tree.Proof(i)
		require.NoError(t, err)
		assert.True(t, Verify(proof, tree.Root(), leaf), "leaf %d", i)
	}

	proof, err := tree.Proof(0)
	require.NoError(t, err)
	assert.False(t, Verify(proof, tree.Root(), Leaf(big.NewInt(3))))
}

func TestVerifyWithPositions_RoundTrip(t *testing.T) {
	leaves := leavesFor(1, 2, 3, 4, 5, 6, 7)
	tree, err := NewTree(leaves, Positional)
	require.NoError(t, err)

	for i, leaf := range leaves {
		proof, err := tree.PositionalProof(i)
		require.NoError(t, err)
		assert.True(t, VerifyWithPositions(proof, tree.Root(), leaf), "leaf %d", i)
	}
}

func TestVerifyWithPositions_FlippedPositionFails(t *testing.T) {
	leaves := leavesFor(10, 11, 12, 13)
	tree, err := NewTree(leaves, Positional)
	require.NoError(t, err)

	proof, err := tree.PositionalProof(1)
	require.NoError(t, err)
	require.NotEmpty(t, proof)

	proof[0].Position = Right
	assert.False(t, VerifyWithPositions(proof, tree.Root(), leaves[1]))

	proof[0].Position = Position(7)
	assert.False(t, VerifyWithPositions(proof, tree.Root(), leaves[1]))
}

func TestVerify_RejectsProofsBeyondMaxLength(t *testing.T) {
	ids := make([]int64, 1<<(MaxProofLength+1))
	for i := range ids {
		ids[i] = int64(i)
	}
	leaves := leavesFor(ids...)
	tree, err := NewTree(leaves, Sorted)
	require.NoError(t, err)
	require.Equal(t, MaxProofLength+1, tree.Depth())

	proof, err := tree.Proof(5)
	require.NoError(t, err)
	assert.Len(t, proof, MaxProofLength+1)
	assert.False(t, Verify(proof, tree.Root(), leaves[5]))

	computed := leaves[5]
	for _, sibling := range proof {
		computed = hashPair(computed, sibling)
	}
	assert.Equal(t, tree.Root(), computed)
}

func TestNewTree_Errors(t *testing.T) {
	_, err := NewTree(nil, Sorted)
	assert.ErrorIs(t, err, ErrEmptyTree)

	tree, err := NewTree(leavesFor(1), Sorted)
	require.NoError(t, err)
	assert.Equal(t, Leaf(big.NewInt(1)), tree.Root())
	_, err = tree.Proof(1)
	assert.ErrorIs(t, err, ErrLeafNotFound)
}

func TestProperty_MembersVerifyAndOutsidersDoNot(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ids := rapid.SliceOfNDistinct(rapid.Int64Range(0, 1_000_000), 1, 64, rapid.ID[int64]).Draw(t, "ids")
		pick := rapid.IntRange(0, len(ids)-1).Draw(t, "pick")
		outsider := rapid.Int64Range(1_000_001, 2_000_000).Draw(t, "outsider")

		leaves := leavesFor(ids...)

		sorted, err := NewTree(leaves, Sorted)
		if err != nil {
			t.Fatalf("sorted tree: %v", err)
		}
		proof, _ := sorted.Proof(pick)
		if !Verify(proof, sorted.Root(), leaves[pick]) {
			t.Fatalf("member %d failed canonical verification", ids[pick])
		}
		if Verify(proof, sorted.Root(), Leaf(big.NewInt(outsider))) {
			t.Fatalf("outsider %d verified", outsider)
		}

		positional, err := NewTree(leaves, Positional)
		if err != nil {
			t.Fatalf("positional tree: %v", err)
		}
		nodes, _ := positional.PositionalProof(pick)
		if !VerifyWithPositions(nodes, positional.Root(), leaves[pick]) {
			t.Fatalf("member %d failed positional verification", ids[pick])
		}
		if VerifyWithPositions(nodes, positional.Root(), Leaf(big.NewInt(outsider))) {
			t.Fatalf("outsider %d verified with positions", outsider)
		}
		if len(nodes) > 0 {
			flip := rapid.IntRange(0, len(nodes)-1).Draw(t, "flip")
			nodes[flip].Position ^= 1
			if VerifyWithPositions(nodes, positional.Root(), leaves[pick]) {
				t.Fatalf("proof with flipped sibling order verified")
			}
		}
	})
}
