package breakpoints

import (
	"github.com/ferros-go/ferros/memory"
	"github.com/ferros-go/ferros/registers"
	"github.com/ferros-go/ferros/types"
)

// EvaluatePredicate checks whether pred holds, for a hit at hitCount
// against regs/cache. A nil predicate is always satisfied (the
// unconditional case). An unresolved register name evaluates false
// rather than erroring, so a malformed predicate degrades to "never
// fires" instead of aborting the stop.
func EvaluatePredicate(pred *types.Predicate, regs types.Registers, cache *memory.Cache, hitCount uint64) bool {
	if pred == nil {
		return true
	}

	var actual uint64
	switch pred.Source {
	case types.ConditionRegister:
		id, ok := registers.Lookup(regs.Arch, pred.RegisterName)
		if !ok {
			return false
		}
		val, ok := regs.Get(id)
		if !ok {
			return false
		}
		actual = val

	case types.ConditionMemory:
		val, err := cache.ReadU64(pred.MemoryAddress)
		if err != nil {
			return false
		}
		actual = val

	case types.ConditionHitCount:
		actual = hitCount

	default:
		return false
	}

	return compare(actual, pred.Op, pred.Value)
}

func compare(actual uint64, op types.ConditionOp, expected uint64) bool {
	switch op {
	case types.CondEqual:
		return actual == expected
	case types.CondNotEqual:
		return actual != expected
	case types.CondLess:
		return actual < expected
	case types.CondGreater:
		return actual > expected
	case types.CondLessEqual:
		return actual <= expected
	case types.CondGreaterEqual:
		return actual >= expected
	default:
		return false
	}
}
