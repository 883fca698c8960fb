// Package txgraph assembles transaction descriptions as an explicit, ordered
// graph of operations over object handles. Each handle is moved at most once and
// never referenced after it has been moved.
package txgraph

import "fmt"

// ArgKind tells where an argument's value comes from.
type ArgKind string

const (
	ArgInput  ArgKind = "input"
	ArgGas    ArgKind = "gas"
	ArgResult ArgKind = "result"
	ArgPure   ArgKind = "pure"
)

// Arg is a reference to a ledger object, the fee-paying object, an earlier
// output, or a pure value.
type Arg struct {
	Kind     ArgKind `json:"kind"`
	ObjectID string  `json:"object_id,omitempty"`
	Asset    string  `json:"asset,omitempty"`
	Shared   bool    `json:"shared,omitempty"`
	Op       int     `json:"op,omitempty"`
	Index    int     `json:"index,omitempty"`
	Value    any     `json:"value,omitempty"`
}

// Object references an owned ledger object.
func Object(id string) Arg { return Arg{Kind: ArgInput, ObjectID: id} }

// CoinObject references an owned coin of the given asset type.
func CoinObject(id, asset string) Arg { return Arg{Kind: ArgInput, ObjectID: id, Asset: asset} }

// SharedObject references a shared ledger object such as a pool or vault.
func SharedObject(id string) Arg { return Arg{Kind: ArgInput, ObjectID: id, Shared: true} }

// Gas references the fee-paying object chosen by the executor at sign time.
func Gas() Arg { return Arg{Kind: ArgGas} }

// Pure wraps a plain value such as an amount or a flag.
func Pure(v any) Arg { return Arg{Kind: ArgPure, Value: v} }

func result(op, index int) Arg { return Arg{Kind: ArgResult, Op: op, Index: index} }

// handle identifies the object an argument refers to; pure values have none.
func (a Arg) handle() string {
	switch a.Kind {
	case ArgInput:
		return "input:" + a.ObjectID
	case ArgGas:
		return "gas"
	case ArgResult:
		return fmt.Sprintf("result:%d:%d", a.Op, a.Index)
	}
	return ""
}

func (a Arg) String() string {
	if h := a.handle(); h != "" {
		return h
	}
	return fmt.Sprintf("pure:%v", a.Value)
}

// Mode is how an operation uses an argument.
type Mode string

const (
	ByValue  Mode = "value"
	ByRef    Mode = "ref"
	ByMutRef Mode = "mut"
)

// Use binds an argument to the mode an operation uses it in.
type Use struct {
	Arg  Arg  `json:"arg"`
	Mode Mode `json:"mode"`
}

func Value(a Arg) Use  { return Use{Arg: a, Mode: ByValue} }
func Ref(a Arg) Use    { return Use{Arg: a, Mode: ByRef} }
func MutRef(a Arg) Use { return Use{Arg: a, Mode: ByMutRef} }

type Kind string

const (
	KindMerge    Kind = "Merge"
	KindSplit    Kind = "Split"
	KindInvoke   Kind = "Invoke"
	KindTransfer Kind = "Transfer"
	KindPublish  Kind = "Publish"
)

// Operation is one node of a description.
//
// Merge: Uses[0] is the mutated target, the rest are sources consumed by value.
// Split: Uses[0] is the mutated source, one output per amount.
// Invoke: Uses are call arguments, Outputs is the number of returned values;
// Droppable results may be left unused.
// Transfer: every use is moved to Recipient.
// Publish: Uses[0] is a newly created object turned into a shared one.
type Operation struct {
	Kind      Kind     `json:"kind"`
	Uses      []Use    `json:"uses"`
	Amounts   []uint64 `json:"amounts,omitempty"`
	Target    string   `json:"target,omitempty"`
	TypeArgs  []string `json:"type_args,omitempty"`
	Recipient string   `json:"recipient,omitempty"`
	Outputs   int      `json:"outputs"`
	Droppable bool     `json:"droppable,omitempty"`
}

// Description is the engine's output: an ordered, validated operation graph
// handed to an external signer.
type Description struct {
	Sender     string      `json:"sender"`
	FeeAsset   string      `json:"fee_asset"`
	Operations []Operation `json:"operations"`
}

// Count returns how many operations of kind k the description holds.
func (d *Description) Count(k Kind) int {
	n := 0
	for _, op := range d.Operations {
		if op.Kind == k {
			n++
		}
	}
	return n
}

// Invocations returns the targets of all Invoke operations in order.
func (d *Description) Invocations() []string {
	var out []string
	for _, op := range d.Operations {
		if op.Kind == KindInvoke {
			out = append(out, op.Target)
		}
	}
	return out
}
