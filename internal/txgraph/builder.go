package txgraph

import (
	"fmt"
	"strings"

	"github.com/olyamironova/txbuilder/internal/domain"
)

// Builder appends operations in execution order. The first misuse is kept and
// returned by Build; later calls become no-ops.
type Builder struct {
	sender   string
	feeAsset string
	ops      []Operation
	err      error
}

func NewBuilder(sender, feeAsset string) *Builder {
	return &Builder{sender: sender, feeAsset: feeAsset}
}

func (b *Builder) fail(format string, args ...any) {
	if b.err == nil {
		b.err = &domain.TransactionBuildError{Op: len(b.ops), Reason: fmt.Sprintf(format, args...)}
	}
}

func (b *Builder) add(op Operation) int {
	b.ops = append(b.ops, op)
	return len(b.ops) - 1
}

func outputs(op, n int) []Arg {
	out := make([]Arg, n)
	for i := range out {
		out[i] = result(op, i)
	}
	return out
}

// Merge folds sources into target.
func (b *Builder) Merge(target Arg, sources ...Arg) {
	if b.err != nil {
		return
	}
	if len(sources) == 0 {
		b.fail("merge without sources")
		return
	}
	uses := []Use{MutRef(target)}
	for _, s := range sources {
		uses = append(uses, Value(s))
	}
	b.add(Operation{Kind: KindMerge, Uses: uses})
}

// Split carves amounts out of source and returns one new coin per amount.
func (b *Builder) Split(source Arg, amounts ...uint64) []Arg {
	if b.err != nil {
		return make([]Arg, len(amounts))
	}
	if len(amounts) == 0 {
		b.fail("split without amounts")
		return nil
	}
	i := b.add(Operation{Kind: KindSplit, Uses: []Use{MutRef(source)}, Amounts: amounts, Outputs: len(amounts)})
	return outputs(i, len(amounts))
}

// Invoke calls target ("package::module::function") and returns its n results.
// Every result must later be consumed or transferred.
func (b *Builder) Invoke(target string, typeArgs []string, n int, uses ...Use) []Arg {
	return b.invoke(target, typeArgs, n, false, uses)
}

// InvokeDrop is Invoke for calls whose results may be discarded.
func (b *Builder) InvokeDrop(target string, typeArgs []string, n int, uses ...Use) []Arg {
	return b.invoke(target, typeArgs, n, true, uses)
}

func (b *Builder) invoke(target string, typeArgs []string, n int, droppable bool, uses []Use) []Arg {
	if b.err != nil {
		return make([]Arg, n)
	}
	if strings.Count(target, "::") != 2 {
		b.fail("malformed call target %q", target)
		return make([]Arg, n)
	}
	i := b.add(Operation{Kind: KindInvoke, Target: target, TypeArgs: typeArgs, Uses: uses, Outputs: n, Droppable: droppable})
	return outputs(i, n)
}

// Transfer moves objects to recipient.
func (b *Builder) Transfer(recipient string, objects ...Arg) {
	if b.err != nil {
		return
	}
	if recipient == "" || len(objects) == 0 {
		b.fail("transfer needs a recipient and at least one object")
		return
	}
	uses := make([]Use, 0, len(objects))
	for _, o := range objects {
		uses = append(uses, Value(o))
	}
	b.add(Operation{Kind: KindTransfer, Uses: uses, Recipient: recipient})
}

// Publish turns a newly created object into a shared one. Nothing may touch
// the object afterwards.
func (b *Builder) Publish(object Arg) {
	if b.err != nil {
		return
	}
	b.add(Operation{Kind: KindPublish, Uses: []Use{Value(object)}})
}

// Fund emits the operations a spend plan needs and returns the coin holding
// exactly plan.SplitAmount.
func (b *Builder) Fund(plan *domain.SpendPlan) Arg {
	if b.err != nil {
		return Arg{}
	}
	if plan == nil {
		b.fail("nil spend plan")
		return Arg{}
	}
	switch plan.Strategy {
	case domain.GasSplit:
		if plan.Asset.Type != b.feeAsset {
			b.fail("gas split funding %s, fee asset is %s", plan.Asset.Type, b.feeAsset)
			return Arg{}
		}
		return b.Split(Gas(), plan.SplitAmount)[0]
	case domain.MergeAll:
		if plan.PrimaryID == "" || len(plan.SourceIDs) == 0 {
			b.fail("merge-all plan for %s has no sources", plan.Asset.Type)
			return Arg{}
		}
		primary := CoinObject(plan.PrimaryID, plan.Asset.Type)
		if merged := plan.Merged(); len(merged) > 0 {
			sources := make([]Arg, len(merged))
			for i, id := range merged {
				sources[i] = CoinObject(id, plan.Asset.Type)
			}
			b.Merge(primary, sources...)
		}
		out := b.Split(primary, plan.SplitAmount)[0]
		b.Transfer(plan.Owner, primary)
		return out
	default:
		b.fail("unknown strategy %q", plan.Strategy)
		return Arg{}
	}
}

// Build validates and returns the description.
func (b *Builder) Build() (*Description, error) {
	if b.err != nil {
		return nil, b.err
	}
	d := &Description{
		Sender:     b.sender,
		FeeAsset:   b.feeAsset,
		Operations: append([]Operation(nil), b.ops...),
	}
	if err := Validate(d); err != nil {
		return nil, err
	}
	return d, nil
}
