package merkle

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Mode selects the hashing convention of a Tree
type Mode int

const (
	// Sorted hashes each pair smaller-first, matching Verify
	Sorted Mode = iota
	// Positional hashes each pair left-to-right, matching VerifyWithPositions
	Positional
)

var (
	ErrEmptyTree    = errors.New("merkle tree has no leaves")
	ErrLeafNotFound = errors.New("leaf index out of range")
)

// Tree is a binary merkle tree. Odd nodes are promoted to the next layer unchanged.
type Tree struct {
	mode   Mode
	layers [][]common.Hash
}

// NewTree builds a tree over leaves in the given order
func NewTree(leaves []common.Hash, mode Mode) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyTree
	}
	layer := append([]common.Hash(nil), leaves...)
	layers := [][]common.Hash{layer}
	for len(layer) > 1 {
		next := make([]common.Hash, 0, (len(layer)+1)/2)
		for i := 0; i < len(layer); i += 2 {
			if i+1 == len(layer) {
				next = append(next, layer[i])
				continue
			}
			if mode == Sorted {
				next = append(next, hashPair(layer[i], layer[i+1]))
			} else {
				next = append(next, crypto.Keccak256Hash(layer[i].Bytes(), layer[i+1].Bytes()))
			}
		}
		layers = append(layers, next)
		layer = next
	}
	return &Tree{mode: mode, layers: layers}, nil
}

// Root returns the tree root
func (t *Tree) Root() common.Hash {
	return t.layers[len(t.layers)-1][0]
}

// Depth returns the number of hashing layers above the leaves
func (t *Tree) Depth() int {
	return len(t.layers) - 1
}

// Proof returns the sibling hashes for the leaf at index
func (t *Tree) Proof(index int) ([]common.Hash, error) {
	nodes, err := t.PositionalProof(index)
	if err != nil {
		return nil, err
	}
	proof := make([]common.Hash, len(nodes))
	for i, n := range nodes {
		proof[i] = n.Hash
	}
	return proof, nil
}

// PositionalProof returns the siblings of the leaf at index together with their positions
func (t *Tree) PositionalProof(index int) ([]Node, error) {
	if index < 0 || index >= len(t.layers[0]) {
		return nil, ErrLeafNotFound
	}
	var proof []Node
	for _, layer := range t.layers[:len(t.layers)-1] {
		sibling := index ^ 1
		if sibling < len(layer) {
			pos := Right
			if index%2 == 1 {
				pos = Left
			}
			proof = append(proof, Node{Hash: layer[sibling], Position: pos})
		}
		index /= 2
	}
	return proof, nil
}
