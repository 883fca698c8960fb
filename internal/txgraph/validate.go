package txgraph

import (
	"fmt"

	"github.com/olyamironova/txbuilder/internal/domain"
)

type handleState struct {
	movedAt int
	dirty   bool
}

// Validate checks a description before it is handed to a signer:
//   - results reference strictly earlier operations and existing outputs
//   - no handle is used after it was moved, nor twice in one operation
//   - every produced output is moved unless the call marks its results
//     droppable, and so is every owned coin that was
//     merged into or split from, except the fee-paying object
//   - Publish only takes newly created objects and is the last use of them
//   - fee-asset coins are not merged when the gas object is split
func Validate(d *Description) error {
	if d == nil {
		return &domain.TransactionBuildError{Op: -1, Reason: "nil description"}
	}
	if d.Sender == "" {
		return &domain.TransactionBuildError{Op: -1, Reason: "missing sender"}
	}

	states := make(map[string]*handleState)
	state := func(h string) *handleState {
		s, ok := states[h]
		if !ok {
			s = &handleState{movedAt: -1}
			states[h] = s
		}
		return s
	}
	gasSplit := false
	feeCoin := ""

	for i, op := range d.Operations {
		if err := checkShape(i, op); err != nil {
			return err
		}
		seen := make(map[string]struct{}, len(op.Uses))
		for _, u := range op.Uses {
			a := u.Arg
			if a.Kind == ArgPure {
				if op.Kind != KindInvoke {
					return buildErr(i, "pure value in %s", op.Kind)
				}
				continue
			}
			if a.Kind == ArgResult {
				if a.Op < 0 || a.Op >= i {
					return buildErr(i, "%s references op %d which does not precede it", a, a.Op)
				}
				if a.Index < 0 || a.Index >= d.Operations[a.Op].Outputs {
					return buildErr(i, "%s: op %d has %d outputs", a, a.Op, d.Operations[a.Op].Outputs)
				}
			}
			h := a.handle()
			if h == "" {
				return buildErr(i, "unknown argument kind %q", a.Kind)
			}
			if _, dup := seen[h]; dup {
				return buildErr(i, "%s used twice in one operation", h)
			}
			seen[h] = struct{}{}

			st := state(h)
			if st.movedAt >= 0 {
				return buildErr(i, "%s used after it was moved at op %d", h, st.movedAt)
			}
			switch u.Mode {
			case ByValue:
				if a.Kind == ArgGas {
					return buildErr(i, "fee-paying object cannot be moved")
				}
				if a.Shared {
					return buildErr(i, "shared object %s passed by value", a.ObjectID)
				}
				st.movedAt = i
			case ByMutRef, ByRef:
			default:
				return buildErr(i, "unknown mode %q for %s", u.Mode, h)
			}

			if a.Kind == ArgInput && !a.Shared && (op.Kind == KindMerge || op.Kind == KindSplit) {
				st.dirty = true
				if a.Asset != "" && a.Asset == d.FeeAsset {
					feeCoin = a.ObjectID
				}
			}
		}
		if op.Kind == KindSplit && op.Uses[0].Arg.Kind == ArgGas {
			gasSplit = true
		}
		if op.Kind == KindPublish && op.Uses[0].Arg.Kind != ArgResult {
			return buildErr(i, "publish of %s which was not created in this transaction", op.Uses[0].Arg)
		}
	}

	if gasSplit && feeCoin != "" {
		return buildErr(-1, "fee-asset coin %s spent while the fee-paying object is split", feeCoin)
	}

	for i, op := range d.Operations {
		if op.Droppable {
			continue
		}
		for j := 0; j < op.Outputs; j++ {
			h := result(i, j).handle()
			if st, ok := states[h]; !ok || st.movedAt < 0 {
				return buildErr(i, "output %d is neither consumed nor transferred", j)
			}
		}
	}
	for h, st := range states {
		if st.dirty && st.movedAt < 0 {
			return buildErr(-1, "remainder %s is not transferred", h)
		}
	}
	return nil
}

func checkShape(i int, op Operation) error {
	switch op.Kind {
	case KindMerge:
		if len(op.Uses) < 2 {
			return buildErr(i, "merge needs a target and at least one source")
		}
		if op.Uses[0].Mode != ByMutRef {
			return buildErr(i, "merge target must be mutably borrowed")
		}
		for _, u := range op.Uses[1:] {
			if u.Mode != ByValue {
				return buildErr(i, "merge sources must be moved")
			}
		}
	case KindSplit:
		if len(op.Uses) != 1 || op.Uses[0].Mode != ByMutRef {
			return buildErr(i, "split takes exactly one mutably borrowed source")
		}
		if len(op.Amounts) == 0 || op.Outputs != len(op.Amounts) {
			return buildErr(i, "split outputs must match amounts")
		}
	case KindInvoke:
		if op.Target == "" {
			return buildErr(i, "invoke without target")
		}
		if op.Outputs < 0 {
			return buildErr(i, "negative output count")
		}
	case KindTransfer:
		if op.Recipient == "" || len(op.Uses) == 0 {
			return buildErr(i, "transfer needs a recipient and objects")
		}
		for _, u := range op.Uses {
			if u.Mode != ByValue {
				return buildErr(i, "transferred objects must be moved")
			}
		}
	case KindPublish:
		if len(op.Uses) != 1 || op.Uses[0].Mode != ByValue {
			return buildErr(i, "publish takes exactly one moved object")
		}
	default:
		return buildErr(i, "unknown operation kind %q", op.Kind)
	}
	if op.Kind != KindInvoke && op.Kind != KindSplit && op.Outputs != 0 {
		return buildErr(i, "%s produces no outputs", op.Kind)
	}
	return nil
}

func buildErr(op int, format string, args ...any) error {
	return &domain.TransactionBuildError{Op: op, Reason: fmt.Sprintf(format, args...)}
}
