package chain

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidParameters is returned when additional parameters do not match the expected schema
var ErrInvalidParameters = errors.New("invalid additional parameters")

// Sibling positions carried by positional proofs
const (
	PositionLeft  uint8 = 0
	PositionRight uint8 = 1
)

var (
	bytes32ArrayType, _ = abi.NewType("bytes32[]", "", nil)
	uint8ArrayType, _   = abi.NewType("uint8[]", "", nil)

	uint256Schema         = abi.Arguments{{Type: uint256Type}}
	rangeSchema           = abi.Arguments{{Type: uint256Type}, {Type: uint256Type}, {Type: uint256Type}}
	rootSchema            = abi.Arguments{{Type: bytes32Type}}
	discountRootSchema    = abi.Arguments{{Type: uint256Type}, {Type: bytes32Type}}
	itemProofSchema       = abi.Arguments{{Type: uint256Type}, {Type: bytes32ArrayType}}
	itemRarityProofSchema = abi.Arguments{{Type: uint256Type}, {Type: uint256Type}, {Type: bytes32ArrayType}}
	positionalProofSchema = abi.Arguments{{Type: uint256Type}, {Type: bytes32ArrayType}, {Type: uint8ArrayType}}
)

// RangeParams holds a half-open item id range and the desired cumulative amount
type RangeParams struct {
	MinItemID     *big.Int
	MaxItemID     *big.Int
	DesiredAmount *big.Int
}

// ItemProof reveals an item id with a canonical merkle proof
type ItemProof struct {
	ItemID *big.Int
	Rarity *big.Int
	Proof  []common.Hash
}

// PositionalProof reveals an item id with a proof whose steps carry sibling positions
type PositionalProof struct {
	ItemID    *big.Int
	Proof     []common.Hash
	Positions []uint8
}

// EncodeUint256 encodes a single uint256 parameter
func EncodeUint256(v *big.Int) ([]byte, error) {
	return pack(uint256Schema, orZero(v))
}

// DecodeUint256 decodes a single uint256 parameter
func DecodeUint256(data []byte) (*big.Int, error) {
	values, err := unpackStrict(uint256Schema, data)
	if err != nil {
		return nil, err
	}
	return values[0].(*big.Int), nil
}

// EncodeRange encodes (minItemId, maxItemId, desiredAmount)
func EncodeRange(p RangeParams) ([]byte, error) {
	return pack(rangeSchema, orZero(p.MinItemID), orZero(p.MaxItemID), orZero(p.DesiredAmount))
}

// DecodeRange decodes (minItemId, maxItemId, desiredAmount)
func DecodeRange(data []byte) (*RangeParams, error) {
	values, err := unpackStrict(rangeSchema, data)
	if err != nil {
		return nil, err
	}
	return &RangeParams{
		MinItemID:     values[0].(*big.Int),
		MaxItemID:     values[1].(*big.Int),
		DesiredAmount: values[2].(*big.Int),
	}, nil
}

// EncodeRoot encodes a merkle root
func EncodeRoot(root common.Hash) ([]byte, error) {
	return pack(rootSchema, [32]byte(root))
}

// DecodeRoot decodes a merkle root
func DecodeRoot(data []byte) (common.Hash, error) {
	values, err := unpackStrict(rootSchema, data)
	if err != nil {
		return common.Hash{}, err
	}
	return common.Hash(values[0].([32]byte)), nil
}

// EncodeDiscountWithRoot encodes (discount, root)
func EncodeDiscountWithRoot(discount *big.Int, root common.Hash) ([]byte, error) {
	return pack(discountRootSchema, orZero(discount), [32]byte(root))
}

// DecodeDiscountWithRoot decodes (discount, root)
func DecodeDiscountWithRoot(data []byte) (*big.Int, common.Hash, error) {
	values, err := unpackStrict(discountRootSchema, data)
	if err != nil {
		return nil, common.Hash{}, err
	}
	return values[0].(*big.Int), common.Hash(values[1].([32]byte)), nil
}

// EncodeItemProof encodes (itemId, proof)
func EncodeItemProof(itemID *big.Int, proof []common.Hash) ([]byte, error) {
	return pack(itemProofSchema, orZero(itemID), toWords(proof))
}

// DecodeItemProof decodes (itemId, proof)
func DecodeItemProof(data []byte) (*ItemProof, error) {
	values, err := unpackStrict(itemProofSchema, data)
	if err != nil {
		return nil, err
	}
	return &ItemProof{
		ItemID: values[0].(*big.Int),
		Proof:  fromWords(values[1].([][32]byte)),
	}, nil
}

// EncodeItemRarityProof encodes (itemId, rarity, proof)
func EncodeItemRarityProof(itemID, rarity *big.Int, proof []common.Hash) ([]byte, error) {
	return pack(itemRarityProofSchema, orZero(itemID), orZero(rarity), toWords(proof))
}

// DecodeItemRarityProof decodes (itemId, rarity, proof)
func DecodeItemRarityProof(data []byte) (*ItemProof, error) {
	values, err := unpackStrict(itemRarityProofSchema, data)
	if err != nil {
		return nil, err
	}
	return &ItemProof{
		ItemID: values[0].(*big.Int),
		Rarity: values[1].(*big.Int),
		Proof:  fromWords(values[2].([][32]byte)),
	}, nil
}

// EncodePositionalProof encodes (itemId, proof, positions)
func EncodePositionalProof(p PositionalProof) ([]byte, error) {
	positions := p.Positions
	if positions == nil {
		positions = []uint8{}
	}
	return pack(positionalProofSchema, orZero(p.ItemID), toWords(p.Proof), positions)
}

// DecodePositionalProof decodes (itemId, proof, positions).
// Proof and positions must have equal length and every position must be left or right.
func DecodePositionalProof(data []byte) (*PositionalProof, error) {
	values, err := unpackStrict(positionalProofSchema, data)
	if err != nil {
		return nil, err
	}
	p := &PositionalProof{
		ItemID:    values[0].(*big.Int),
		Proof:     fromWords(values[1].([][32]byte)),
		Positions: values[2].([]uint8),
	}
	if len(p.Proof) != len(p.Positions) {
		return nil, fmt.Errorf("%w: %d proof nodes but %d positions", ErrInvalidParameters, len(p.Proof), len(p.Positions))
	}
	for _, pos := range p.Positions {
		if pos != PositionLeft && pos != PositionRight {
			return nil, fmt.Errorf("%w: unknown sibling position %d", ErrInvalidParameters, pos)
		}
	}
	return p, nil
}

func pack(schema abi.Arguments, values ...interface{}) ([]byte, error) {
	for _, v := range values {
		if n, ok := v.(*big.Int); ok {
			if err := CheckUint256(n); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
			}
		}
	}
	encoded, err := schema.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	return encoded, nil
}

// unpackStrict decodes data and re-encodes the result, rejecting any input that is
// not the canonical encoding of the schema (trailing bytes, dirty padding, bad offsets).
func unpackStrict(schema abi.Arguments, data []byte) ([]interface{}, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidParameters)
	}
	values, err := schema.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	canonical, err := schema.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	if !bytes.Equal(canonical, data) {
		return nil, fmt.Errorf("%w: non-canonical encoding", ErrInvalidParameters)
	}
	return values, nil
}

func toWords(hashes []common.Hash) [][32]byte {
	words := make([][32]byte, len(hashes))
	for i, h := range hashes {
		words[i] = h
	}
	return words
}

func fromWords(words [][32]byte) []common.Hash {
	hashes := make([]common.Hash, len(words))
	for i, w := range words {
		hashes[i] = w
	}
	return hashes
}
