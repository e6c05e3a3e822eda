package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseMaker() *Maker {
	return &Maker{
		QuoteType:            QuoteTypeAsk,
		GlobalNonce:          big.NewInt(0),
		SubsetNonce:          big.NewInt(0),
		OrderNonce:           big.NewInt(7),
		StrategyID:           1,
		CollectionType:       CollectionTypeERC721,
		Collection:           common.HexToAddress("0x01"),
		Currency:             common.HexToAddress("0x02"),
		Signer:               common.HexToAddress("0x03"),
		StartTime:            100,
		EndTime:              200,
		Price:                big.NewInt(1_000),
		ItemIDs:              []*big.Int{big.NewInt(5)},
		Amounts:              []*big.Int{big.NewInt(1)},
		AdditionalParameters: []byte{0x01},
	}
}

func TestMakerHash_CoversEveryField(t *testing.T) {
	base := baseMaker().Hash()
	assert.Equal(t, base, baseMaker().Hash())

	mutations := map[string]func(m *Maker){
		"quote type":      func(m *Maker) { m.QuoteType = QuoteTypeBid },
		"global nonce":    func(m *Maker) { m.GlobalNonce = big.NewInt(1) },
		"subset nonce":    func(m *Maker) { m.SubsetNonce = big.NewInt(1) },
		"order nonce":     func(m *Maker) { m.OrderNonce = big.NewInt(8) },
		"strategy":        func(m *Maker) { m.StrategyID = 2 },
		"collection type": func(m *Maker) { m.CollectionType = CollectionTypeERC1155 },
		"collection":      func(m *Maker) { m.Collection = common.HexToAddress("0x11") },
		"currency":        func(m *Maker) { m.Currency = common.Address{} },
		"signer":          func(m *Maker) { m.Signer = common.HexToAddress("0x13") },
		"start":           func(m *Maker) { m.StartTime = 101 },
		"end":             func(m *Maker) { m.EndTime = 201 },
		"price":           func(m *Maker) { m.Price = big.NewInt(1_001) },
		"item ids":        func(m *Maker) { m.ItemIDs = []*big.Int{big.NewInt(6)} },
		"amounts":         func(m *Maker) { m.Amounts = []*big.Int{big.NewInt(2)} },
		"params":          func(m *Maker) { m.AdditionalParameters = []byte{0x02} },
	}

	seen := map[common.Hash]string{base: "base"}
	for name, mutate := range mutations {
		m := baseMaker()
		mutate(m)
		h := m.Hash()
		prev, dup := seen[h]
		assert.False(t, dup, "%s collides with %s", name, prev)
		seen[h] = name
	}
}

func TestMakerHash_IgnoresSignature(t *testing.T) {
	m := baseMaker()
	h := m.Hash()
	m.Signature = []byte{0xde, 0xad}
	assert.Equal(t, h, m.Hash())
}

func TestMakerHash_NilIntegersHashAsZero(t *testing.T) {
	m := baseMaker()
	m.GlobalNonce = nil
	m.SubsetNonce = nil
	assert.Equal(t, baseMaker().Hash(), m.Hash())
}

func TestPackedHash(t *testing.T) {
	values := []*big.Int{big.NewInt(1), big.NewInt(2)}
	expected := crypto.Keccak256Hash(append(Word(big.NewInt(1)), Word(big.NewInt(2))...))
	assert.Equal(t, expected, PackedHash(values))
	assert.Equal(t, crypto.Keccak256Hash(nil), PackedHash(nil))
}

func TestCheckUint256(t *testing.T) {
	assert.NoError(t, CheckUint256(nil))
	assert.NoError(t, CheckUint256(maxUint256))
	assert.ErrorIs(t, CheckUint256(big.NewInt(-1)), ErrNegativeValue)
	assert.ErrorIs(t, CheckUint256(new(big.Int).Add(maxUint256, big.NewInt(1))), ErrValueTooLarge)
}

func TestMakerBuilder_SignsContentHash(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	builder := NewMakerBuilder(key)

	maker, err := builder.BuildSignedMaker(&MakerData{
		QuoteType:      QuoteTypeBid,
		OrderNonce:     big.NewInt(3),
		StrategyID:     4,
		CollectionType: CollectionTypeERC721,
		Collection:     "0x0000000000000000000000000000000000000001",
		Price:          big.NewInt(10),
		Amounts:        []*big.Int{big.NewInt(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, builder.SignerAddress(), maker.Signer)
	assert.Zero(t, maker.GlobalNonce.Sign())
	require.Len(t, maker.Signature, 65)

	sig := append([]byte(nil), maker.Signature...)
	sig[64] -= 27
	pub, err := crypto.SigToPub(maker.Hash().Bytes(), sig)
	require.NoError(t, err)
	assert.Equal(t, builder.SignerAddress(), crypto.PubkeyToAddress(*pub))
}

func TestMakerBuilder_CopiesInputs(t *testing.T) {
	price := big.NewInt(10)
	ids := []*big.Int{big.NewInt(1)}
	maker, err := NewMakerBuilder(nil).BuildMaker(&MakerData{
		Collection: "0x0000000000000000000000000000000000000001",
		Price:      price,
		ItemIDs:    ids,
	})
	require.NoError(t, err)

	price.SetInt64(11)
	ids[0].SetInt64(2)
	assert.Equal(t, int64(10), maker.Price.Int64())
	assert.Equal(t, int64(1), maker.ItemIDs[0].Int64())
}

func TestMakerBuilder_RejectsInvalidInput(t *testing.T) {
	valid := func() *MakerData {
		return &MakerData{
			Collection: "0x0000000000000000000000000000000000000001",
			Price:      big.NewInt(1),
		}
	}

	cases := map[string]func(d *MakerData){
		"collection":    func(d *MakerData) { d.Collection = "bayc" },
		"currency":      func(d *MakerData) { d.Currency = "weth" },
		"missing price": func(d *MakerData) { d.Price = nil },
		"negative":      func(d *MakerData) { d.Price = big.NewInt(-1) },
		"quote type":    func(d *MakerData) { d.QuoteType = 2 },
		"window":        func(d *MakerData) { d.StartTime, d.EndTime = 10, 5 },
		"nil item":      func(d *MakerData) { d.ItemIDs = []*big.Int{nil} },
	}

	builder := NewMakerBuilder(nil)
	_, err := builder.BuildMaker(valid())
	require.NoError(t, err)

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			d := valid()
			mutate(d)
			_, err := builder.BuildMaker(d)
			assert.Error(t, err)
		})
	}

	_, err = builder.BuildSignedMaker(valid())
	assert.Error(t, err, "signing without a key")
}
