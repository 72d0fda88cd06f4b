package ltl

// NNF rewrites f into negation normal form over the operators
// true, false, prop, !prop, &, |, X, F, G, U and R. Implications,
// equivalences and weak until are expanded on the way.
func NNF(f *Formula) *Formula {
	return nnf(f, false)
}

func nnf(f *Formula, neg bool) *Formula {
	switch f.Op {
	case OpTrue:
		if neg {
			return False()
		}
		return True()
	case OpFalse:
		if neg {
			return True()
		}
		return False()
	case OpProp:
		if neg {
			return Not(Prop(f.Prop))
		}
		return Prop(f.Prop)
	case OpNot:
		return nnf(f.Args[0], !neg)
	case OpAnd, OpOr:
		args := make([]*Formula, len(f.Args))
		for i, a := range f.Args {
			args[i] = nnf(a, neg)
		}
		if (f.Op == OpAnd) != neg {
			return And(args...)
		}
		return Or(args...)
	case OpImplies:
		return nnf(Or(Not(f.Args[0]), f.Args[1]), neg)
	case OpIff:
		a, b := f.Args[0], f.Args[1]
		if neg {
			return Or(And(nnf(a, false), nnf(b, true)), And(nnf(a, true), nnf(b, false)))
		}
		return Or(And(nnf(a, false), nnf(b, false)), And(nnf(a, true), nnf(b, true)))
	case OpNext:
		return Next(nnf(f.Args[0], neg))
	case OpFinally:
		if neg {
			return Globally(nnf(f.Args[0], true))
		}
		return Finally(nnf(f.Args[0], false))
	case OpGlobally:
		if neg {
			return Finally(nnf(f.Args[0], true))
		}
		return Globally(nnf(f.Args[0], false))
	case OpUntil:
		if neg {
			return Release(nnf(f.Args[0], true), nnf(f.Args[1], true))
		}
		return Until(nnf(f.Args[0], false), nnf(f.Args[1], false))
	case OpRelease:
		if neg {
			return Until(nnf(f.Args[0], true), nnf(f.Args[1], true))
		}
		return Release(nnf(f.Args[0], false), nnf(f.Args[1], false))
	case OpWeakUntil:
		// a W b == b R (a | b)
		a, b := f.Args[0], f.Args[1]
		return nnf(Release(b, Or(a, b)), neg)
	}
	return f
}
