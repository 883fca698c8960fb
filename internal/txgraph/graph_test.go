package txgraph

import (
	"testing"

	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	owner = "0xowner"
	usdc  = "0xdba3::usdc::USDC"
)

func mergeAllPlan(ids ...string) *domain.SpendPlan {
	return &domain.SpendPlan{
		Strategy:    domain.MergeAll,
		Asset:       domain.AssetType{Type: usdc, Decimals: 6},
		Owner:       owner,
		SourceIDs:   ids,
		PrimaryID:   ids[0],
		SplitAmount: 10,
		Remainder:   domain.TransferToOwner,
	}
}

// assertSingleMove checks that no handle is moved by two operations.
func assertSingleMove(t *testing.T, d *Description) {
	t.Helper()
	moved := make(map[string]int)
	for i, op := range d.Operations {
		for _, u := range op.Uses {
			if u.Mode != ByValue || u.Arg.Kind == ArgPure {
				continue
			}
			h := u.Arg.handle()
			prev, dup := moved[h]
			assert.False(t, dup, "%s moved at op %d and %d", h, prev, i)
			moved[h] = i
		}
	}
}

func TestFund_MergeAll(t *testing.T) {
	b := NewBuilder(owner, domain.FeeAssetType)
	coin := b.Fund(mergeAllPlan("0xc1", "0xc2", "0xc3"))
	b.Transfer(owner, coin)

	d, err := b.Build()
	require.NoError(t, err)

	require.Len(t, d.Operations, 4)
	assert.Equal(t, KindMerge, d.Operations[0].Kind)
	assert.Equal(t, "0xc1", d.Operations[0].Uses[0].Arg.ObjectID)
	assert.Len(t, d.Operations[0].Uses, 3)
	assert.Equal(t, KindSplit, d.Operations[1].Kind)
	assert.Equal(t, []uint64{10}, d.Operations[1].Amounts)
	assert.Equal(t, KindTransfer, d.Operations[2].Kind, "remainder goes back explicitly")
	assert.Equal(t, "0xc1", d.Operations[2].Uses[0].Arg.ObjectID)
	assertSingleMove(t, d)
}

func TestFund_MergeAllSingleCoinSkipsMerge(t *testing.T) {
	b := NewBuilder(owner, domain.FeeAssetType)
	coin := b.Fund(mergeAllPlan("0xc1"))
	b.Transfer(owner, coin)

	d, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 0, d.Count(KindMerge))
	assert.Equal(t, 1, d.Count(KindSplit))
}

func TestFund_GasSplit(t *testing.T) {
	b := NewBuilder(owner, domain.FeeAssetType)
	coin := b.Fund(&domain.SpendPlan{
		Strategy:    domain.GasSplit,
		Asset:       domain.AssetType{Type: domain.FeeAssetType, Decimals: 9},
		Owner:       owner,
		SplitAmount: 1_000,
		Remainder:   domain.ReturnWithGas,
	})
	b.Invoke("0xpkg::vault::deposit", nil, 0, MutRef(SharedObject("0xvault")), Value(coin))

	d, err := b.Build()
	require.NoError(t, err)
	require.Len(t, d.Operations, 2)
	assert.Equal(t, ArgGas, d.Operations[0].Uses[0].Arg.Kind)
	assert.Equal(t, 0, d.Count(KindTransfer), "gas remainder returns implicitly")
}

func TestFund_GasSplitRejectsOtherAsset(t *testing.T) {
	b := NewBuilder(owner, domain.FeeAssetType)
	b.Fund(&domain.SpendPlan{Strategy: domain.GasSplit, Asset: domain.AssetType{Type: usdc}, SplitAmount: 1})
	_, err := b.Build()
	assert.ErrorIs(t, err, domain.ErrTransactionBuild)
}

func TestValidate_UntransferredOutput(t *testing.T) {
	b := NewBuilder(owner, domain.FeeAssetType)
	b.Fund(mergeAllPlan("0xc1", "0xc2"))
	_, err := b.Build()
	assert.ErrorIs(t, err, domain.ErrTransactionBuild)
}

func TestValidate_UseAfterMove(t *testing.T) {
	d := &Description{
		Sender:   owner,
		FeeAsset: domain.FeeAssetType,
		Operations: []Operation{
			{Kind: KindMerge, Uses: []Use{MutRef(CoinObject("0xc1", usdc)), Value(CoinObject("0xc2", usdc))}},
			{Kind: KindMerge, Uses: []Use{MutRef(CoinObject("0xc3", usdc)), Value(CoinObject("0xc2", usdc))}},
			{Kind: KindTransfer, Recipient: owner, Uses: []Use{Value(CoinObject("0xc1", usdc)), Value(CoinObject("0xc3", usdc))}},
		},
	}
	err := Validate(d)
	require.ErrorIs(t, err, domain.ErrTransactionBuild)
	assert.Contains(t, err.Error(), "used after it was moved")
}

func TestValidate_ForwardReference(t *testing.T) {
	d := &Description{
		Sender: owner,
		Operations: []Operation{
			{Kind: KindTransfer, Recipient: owner, Uses: []Use{Value(result(1, 0))}},
			{Kind: KindSplit, Uses: []Use{MutRef(Gas())}, Amounts: []uint64{5}, Outputs: 1},
		},
	}
	err := Validate(d)
	require.ErrorIs(t, err, domain.ErrTransactionBuild)
	assert.Contains(t, err.Error(), "does not precede")
}

func TestValidate_OutputIndexOutOfRange(t *testing.T) {
	d := &Description{
		Sender: owner,
		Operations: []Operation{
			{Kind: KindSplit, Uses: []Use{MutRef(Gas())}, Amounts: []uint64{5}, Outputs: 1},
			{Kind: KindTransfer, Recipient: owner, Uses: []Use{Value(result(0, 0)), Value(result(0, 1))}},
		},
	}
	assert.ErrorIs(t, Validate(d), domain.ErrTransactionBuild)
}

func TestValidate_PublishMustBeLast(t *testing.T) {
	b := NewBuilder(owner, domain.FeeAssetType)
	mgr := b.Invoke("0xdeep::balance_manager::new", nil, 1)[0]
	b.Publish(mgr)
	b.Invoke("0xdeep::balance_manager::deposit", []string{usdc}, 0, MutRef(mgr))
	_, err := b.Build()
	require.ErrorIs(t, err, domain.ErrTransactionBuild)

	b = NewBuilder(owner, domain.FeeAssetType)
	mgr = b.Invoke("0xdeep::balance_manager::new", nil, 1)[0]
	coin := b.Fund(mergeAllPlan("0xc1"))
	b.Invoke("0xdeep::balance_manager::deposit", []string{usdc}, 0, MutRef(mgr), Value(coin))
	b.Publish(mgr)
	d, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, KindPublish, d.Operations[len(d.Operations)-1].Kind)
}

func TestValidate_PublishRequiresNewObject(t *testing.T) {
	b := NewBuilder(owner, domain.FeeAssetType)
	b.Publish(Object("0xexisting"))
	_, err := b.Build()
	assert.ErrorIs(t, err, domain.ErrTransactionBuild)
}

func TestValidate_GasObjectCannotMove(t *testing.T) {
	b := NewBuilder(owner, domain.FeeAssetType)
	b.Transfer("0xother", Gas())
	_, err := b.Build()
	assert.ErrorIs(t, err, domain.ErrTransactionBuild)
}

func TestValidate_SharedByValue(t *testing.T) {
	b := NewBuilder(owner, domain.FeeAssetType)
	b.Invoke("0xpkg::pool::destroy", nil, 0, Value(SharedObject("0xpool")))
	_, err := b.Build()
	assert.ErrorIs(t, err, domain.ErrTransactionBuild)
}

func TestValidate_FeeCoinNotSpentAlongsideGasSplit(t *testing.T) {
	b := NewBuilder(owner, domain.FeeAssetType)
	gasCoin := b.Fund(&domain.SpendPlan{
		Strategy:    domain.GasSplit,
		Asset:       domain.AssetType{Type: domain.FeeAssetType, Decimals: 9},
		Owner:       owner,
		SplitAmount: 5,
	})
	feeMerge := b.Fund(&domain.SpendPlan{
		Strategy:    domain.MergeAll,
		Asset:       domain.AssetType{Type: domain.FeeAssetType, Decimals: 9},
		Owner:       owner,
		SourceIDs:   []string{"0xs1", "0xs2"},
		PrimaryID:   "0xs1",
		SplitAmount: 5,
	})
	b.Transfer(owner, gasCoin, feeMerge)
	_, err := b.Build()
	require.ErrorIs(t, err, domain.ErrTransactionBuild)
	assert.Contains(t, err.Error(), "fee-paying object")
}

func TestValidate_DroppableResults(t *testing.T) {
	b := NewBuilder(owner, domain.FeeAssetType)
	proof := b.InvokeDrop("0xdeep::balance_manager::generate_proof_as_owner", nil, 1, MutRef(SharedObject("0xmgr")))[0]
	b.InvokeDrop("0xdeep::pool::cancel_order", nil, 0, MutRef(SharedObject("0xpool")), MutRef(SharedObject("0xmgr")), Ref(proof), Value(Pure(uint64(7))))
	_, err := b.Build()
	assert.NoError(t, err)
}

func TestValidate_DuplicateInOneOperation(t *testing.T) {
	b := NewBuilder(owner, domain.FeeAssetType)
	b.Invoke("0xpkg::m::f", nil, 0, MutRef(SharedObject("0xa")), Ref(SharedObject("0xa")))
	_, err := b.Build()
	assert.ErrorIs(t, err, domain.ErrTransactionBuild)
}

func TestBuilder_MalformedTarget(t *testing.T) {
	b := NewBuilder(owner, domain.FeeAssetType)
	b.Invoke("mint", nil, 0)
	_, err := b.Build()
	assert.ErrorIs(t, err, domain.ErrTransactionBuild)
}

func TestValidate_MissingSender(t *testing.T) {
	assert.ErrorIs(t, Validate(&Description{}), domain.ErrTransactionBuild)
	assert.ErrorIs(t, Validate(nil), domain.ErrTransactionBuild)
}
