// Package merkle verifies item criteria committed to by a merkle root.
//
// Two proof conventions exist and are never mixed. Positional proofs carry the
// side of every sibling explicitly. Canonical proofs always hash the smaller of the
// two 32-byte values first and are bounded to MaxProofLength steps.
package merkle

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// MaxProofLength bounds canonical proofs, limiting trees to 2^10 leaves
const MaxProofLength = 10

// Position is the side a sibling occupies when hashed with the running node
type Position uint8

const (
	Left Position = iota
	Right
)

// Node is one step of a positional proof
type Node struct {
	Hash     common.Hash
	Position Position
}

// Leaf hashes an item id as keccak256(abi.encodePacked(uint256 itemId))
func Leaf(itemID *big.Int) common.Hash {
	return crypto.Keccak256Hash(word(itemID))
}

// LeafWithAux hashes an item id with an auxiliary value such as a rarity score
func LeafWithAux(itemID, aux *big.Int) common.Hash {
	return crypto.Keccak256Hash(word(itemID), word(aux))
}

// VerifyWithPositions folds a positional proof from leaf and compares it with root
func VerifyWithPositions(proof []Node, root, leaf common.Hash) bool {
	computed := leaf
	for _, node := range proof {
		switch node.Position {
		case Left:
			computed = crypto.Keccak256Hash(node.Hash.Bytes(), computed.Bytes())
		case Right:
			computed = crypto.Keccak256Hash(computed.Bytes(), node.Hash.Bytes())
		default:
			return false
		}
	}
	return computed == root
}

// Verify folds a canonical proof from leaf and compares it with root.
// Proofs longer than MaxProofLength are rejected.
func Verify(proof []common.Hash, root, leaf common.Hash) bool {
	if len(proof) > MaxProofLength {
		return false
	}
	computed := leaf
	for _, sibling := range proof {
		computed = hashPair(computed, sibling)
	}
	return computed == root
}

func hashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a.Bytes(), b.Bytes()) <= 0 {
		return crypto.Keccak256Hash(a.Bytes(), b.Bytes())
	}
	return crypto.Keccak256Hash(b.Bytes(), a.Bytes())
}

func word(v *big.Int) []byte {
	if v == nil {
		return make([]byte, 32)
	}
	return common.LeftPadBytes(v.Bytes(), 32)
}
