package chain

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Hashing related errors
var (
	ErrNegativeValue = errors.New("negative uint256 value")
	ErrValueTooLarge = errors.New("value exceeds uint256")
)

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Pre-computed type hashes using keccak256
var (
	// Maker(uint8 quoteType,uint256 globalNonce,uint256 subsetNonce,uint256 orderNonce,uint256 strategyId,uint8 collectionType,address collection,address currency,address signer,uint256 startTime,uint256 endTime,uint256 price,uint256[] itemIds,uint256[] amounts,bytes additionalParameters)
	MakerTypeHash = crypto.Keccak256Hash([]byte(
		"Maker(uint8 quoteType,uint256 globalNonce,uint256 subsetNonce,uint256 orderNonce,uint256 strategyId,uint8 collectionType,address collection,address currency,address signer,uint256 startTime,uint256 endTime,uint256 price,uint256[] itemIds,uint256[] amounts,bytes additionalParameters)",
	))
)

var (
	bytes32Type, _ = abi.NewType("bytes32", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)
	uint8Type, _   = abi.NewType("uint8", "", nil)
	addressType, _ = abi.NewType("address", "", nil)

	makerArguments = abi.Arguments{
		{Type: bytes32Type}, // typeHash
		{Type: uint8Type},   // quoteType
		{Type: uint256Type}, // globalNonce
		{Type: uint256Type}, // subsetNonce
		{Type: uint256Type}, // orderNonce
		{Type: uint256Type}, // strategyId
		{Type: uint8Type},   // collectionType
		{Type: addressType}, // collection
		{Type: addressType}, // currency
		{Type: addressType}, // signer
		{Type: uint256Type}, // startTime
		{Type: uint256Type}, // endTime
		{Type: uint256Type}, // price
		{Type: bytes32Type}, // keccak256(itemIds)
		{Type: bytes32Type}, // keccak256(amounts)
		{Type: bytes32Type}, // keccak256(additionalParameters)
	}
)

// Hash computes the content hash used as the maker order identity.
// Nil integers hash as zero.
func (m *Maker) Hash() common.Hash {
	encoded, err := makerArguments.Pack(
		MakerTypeHash,
		uint8(m.QuoteType),
		orZero(m.GlobalNonce),
		orZero(m.SubsetNonce),
		orZero(m.OrderNonce),
		new(big.Int).SetUint64(uint64(m.StrategyID)),
		uint8(m.CollectionType),
		m.Collection,
		m.Currency,
		m.Signer,
		new(big.Int).SetUint64(m.StartTime),
		new(big.Int).SetUint64(m.EndTime),
		orZero(m.Price),
		PackedHash(m.ItemIDs),
		PackedHash(m.Amounts),
		crypto.Keccak256Hash(m.AdditionalParameters),
	)
	if err != nil {
		panic("failed to encode maker struct: " + err.Error())
	}

	return crypto.Keccak256Hash(encoded)
}

// PackedHash returns keccak256(abi.encodePacked(values)) for a uint256 array
func PackedHash(values []*big.Int) common.Hash {
	data := make([]byte, 0, 32*len(values))
	for _, v := range values {
		data = append(data, Word(v)...)
	}
	return crypto.Keccak256Hash(data)
}

// Word returns the 32-byte big-endian encoding of a uint256 value
func Word(v *big.Int) []byte {
	if v == nil {
		return make([]byte, 32)
	}
	return common.LeftPadBytes(v.Bytes(), 32)
}

// CheckUint256 reports whether v fits the uint256 domain
func CheckUint256(v *big.Int) error {
	if v == nil {
		return nil
	}
	if v.Sign() < 0 {
		return ErrNegativeValue
	}
	if v.Cmp(maxUint256) > 0 {
		return ErrValueTooLarge
	}
	return nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
