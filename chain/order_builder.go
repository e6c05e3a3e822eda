package chain

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// MakerBuilder builds and signs maker orders
type MakerBuilder struct {
	signer *ecdsa.PrivateKey
}

// NewMakerBuilder creates a new MakerBuilder. The signer may be nil when only unsigned orders are built.
func NewMakerBuilder(signer *ecdsa.PrivateKey) *MakerBuilder {
	return &MakerBuilder{signer: signer}
}

// BuildMaker builds a maker order from MakerData
func (mb *MakerBuilder) BuildMaker(data *MakerData) (*Maker, error) {
	if err := mb.validateInputs(data); err != nil {
		return nil, err
	}

	signer := data.Signer
	if signer == "" && mb.signer != nil {
		signer = mb.SignerAddress().Hex()
	}

	maker := &Maker{
		QuoteType:            data.QuoteType,
		GlobalNonce:          orZero(data.GlobalNonce),
		SubsetNonce:          orZero(data.SubsetNonce),
		OrderNonce:           orZero(data.OrderNonce),
		StrategyID:           data.StrategyID,
		CollectionType:       data.CollectionType,
		Collection:           common.HexToAddress(data.Collection),
		Currency:             common.HexToAddress(data.Currency),
		Signer:               common.HexToAddress(signer),
		StartTime:            data.StartTime,
		EndTime:              data.EndTime,
		Price:                new(big.Int).Set(data.Price),
		ItemIDs:              copyInts(data.ItemIDs),
		Amounts:              copyInts(data.Amounts),
		AdditionalParameters: append([]byte(nil), data.AdditionalParameters...),
	}

	return maker, nil
}

// BuildSignedMaker builds and signs a maker order
func (mb *MakerBuilder) BuildSignedMaker(data *MakerData) (*Maker, error) {
	maker, err := mb.BuildMaker(data)
	if err != nil {
		return nil, err
	}

	signature, err := mb.SignMaker(maker)
	if err != nil {
		return nil, err
	}
	maker.Signature = signature

	return maker, nil
}

// SignMaker signs the maker content hash
func (mb *MakerBuilder) SignMaker(maker *Maker) ([]byte, error) {
	if mb.signer == nil {
		return nil, fmt.Errorf("no signing key configured")
	}

	hash := maker.Hash()
	signature, err := crypto.Sign(hash.Bytes(), mb.signer)
	if err != nil {
		return nil, fmt.Errorf("failed to sign maker order: %w", err)
	}

	// Add recovery ID
	signature[64] += 27

	return signature, nil
}

// SignerAddress returns the address of the signing key
func (mb *MakerBuilder) SignerAddress() common.Address {
	if mb.signer == nil {
		return common.Address{}
	}
	return crypto.PubkeyToAddress(mb.signer.PublicKey)
}

func (mb *MakerBuilder) validateInputs(data *MakerData) error {
	if data == nil {
		return fmt.Errorf("maker data is required")
	}
	if data.Collection == "" || !common.IsHexAddress(data.Collection) {
		return fmt.Errorf("collection must be a hex address")
	}
	if data.Currency != "" && !common.IsHexAddress(data.Currency) {
		return fmt.Errorf("currency must be a hex address")
	}
	if data.Signer != "" && !common.IsHexAddress(data.Signer) {
		return fmt.Errorf("signer must be a hex address")
	}
	if data.Price == nil {
		return fmt.Errorf("price is required")
	}
	if err := CheckUint256(data.Price); err != nil {
		return fmt.Errorf("price: %w", err)
	}
	if data.QuoteType != QuoteTypeBid && data.QuoteType != QuoteTypeAsk {
		return fmt.Errorf("invalid quote type")
	}
	if data.CollectionType != CollectionTypeERC721 && data.CollectionType != CollectionTypeERC1155 {
		return fmt.Errorf("invalid collection type")
	}
	if data.EndTime != 0 && data.EndTime < data.StartTime {
		return fmt.Errorf("end time before start time")
	}
	for _, v := range append(append([]*big.Int{}, data.ItemIDs...), data.Amounts...) {
		if v == nil {
			return fmt.Errorf("item ids and amounts must not contain nil values")
		}
		if err := CheckUint256(v); err != nil {
			return err
		}
	}
	return nil
}

func copyInts(values []*big.Int) []*big.Int {
	if values == nil {
		return nil
	}
	out := make([]*big.Int, len(values))
	for i, v := range values {
		out[i] = new(big.Int).Set(v)
	}
	return out
}
