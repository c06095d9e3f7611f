package expr

import (
	"fmt"

	"github.com/openhab/yamlpp/internal/tree"
)

// Eval parses and evaluates src against scope. Syntax errors are logged as
// "Error parsing …" and yield Null, matching spec.md §4.2's diagnostics.
func Eval(src string, scope *Scope) *tree.Value {
	node, err := Parse(src)
	if err != nil {
		scope.warn(fmt.Sprintf("Error parsing '%s': %v", src, err))
		return tree.Null()
	}
	v, _, err := evalNode(node, scope)
	if err != nil {
		scope.warn(fmt.Sprintf("Error parsing '%s': %v", src, err))
		return tree.Null()
	}
	return v
}

// evalNode returns the evaluated value and whether it is "undefined"
// (distinct from an explicit Null, for the `default` filter's strict mode).
func evalNode(n Node, scope *Scope) (*tree.Value, bool, error) {
	switch x := n.(type) {
	case NumLit:
		if x.IsInt {
			return tree.NewInt(x.Int), false, nil
		}
		return tree.NewFloat(x.Float), false, nil
	case StrLit:
		return tree.NewString(x.Val), false, nil
	case NullLit:
		return tree.Null(), false, nil
	case BoolLit:
		return tree.NewBool(x.Val), false, nil
	case Ident:
		v, undef := scope.lookupIdent(x.Name)
		return v, undef, nil
	case MapLit:
		m := tree.NewMap()
		for i, k := range x.Keys {
			kv, _, err := evalNode(k, scope)
			if err != nil {
				return nil, false, err
			}
			vv, _, err := evalNode(x.Vals[i], scope)
			if err != nil {
				return nil, false, err
			}
			m.Set(kv.AsString(), vv)
		}
		return m, false, nil
	case ListLit:
		seq := make([]*tree.Value, 0, len(x.Items))
		for _, item := range x.Items {
			v, undef, err := evalNode(item, scope)
			if err != nil {
				return nil, false, err
			}
			if undef {
				continue // dropped per spec.md §4.3: undefined entries filtered from list literals
			}
			seq = append(seq, v)
		}
		return tree.NewSeq(seq...), false, nil
	case Access:
		return evalAccess(x, scope)
	case Unary:
		return evalUnary(x, scope)
	case Binary:
		return evalBinary(x, scope)
	case Ternary:
		cond, _, err := evalNode(x.Cond, scope)
		if err != nil {
			return nil, false, err
		}
		if cond.Truthy() {
			return evalNode(x.Then, scope)
		}
		if x.Else != nil {
			return evalNode(x.Else, scope)
		}
		return tree.Null(), true, nil
	case Pipe:
		return evalPipe(x, scope)
	case MethodCall:
		return evalMethodCall(x, scope)
	default:
		return nil, false, fmt.Errorf("unhandled node type %T", n)
	}
}

func evalAccess(a Access, scope *Scope) (*tree.Value, bool, error) {
	base, _, err := evalNode(a.Base, scope)
	if err != nil {
		return nil, false, err
	}
	if a.IsField {
		if base.Kind != tree.KindMap {
			return tree.Null(), true, nil
		}
		v := base.Get(a.Field)
		if v == nil {
			return tree.Null(), true, nil
		}
		return v, false, nil
	}
	idx, _, err := evalNode(a.Index, scope)
	if err != nil {
		return nil, false, err
	}
	switch base.Kind {
	case tree.KindMap:
		v := base.Get(idx.AsString())
		if v == nil {
			return tree.Null(), true, nil
		}
		return v, false, nil
	case tree.KindSeq:
		i, ok := asIndex(idx)
		if !ok {
			return tree.Null(), true, nil
		}
		if i < 0 {
			i += len(base.Seq)
		}
		if i < 0 || i >= len(base.Seq) {
			return tree.Null(), true, nil
		}
		return base.Seq[i], false, nil
	default:
		return tree.Null(), true, nil
	}
}

func asIndex(v *tree.Value) (int, bool) {
	switch v.Kind {
	case tree.KindInt:
		return int(v.Int), true
	case tree.KindFloat:
		return int(v.Float), true
	default:
		return 0, false
	}
}

func evalUnary(u Unary, scope *Scope) (*tree.Value, bool, error) {
	x, _, err := evalNode(u.X, scope)
	if err != nil {
		return nil, false, err
	}
	switch u.Op {
	case "not":
		return tree.NewBool(!x.Truthy()), false, nil
	case "-":
		switch x.Kind {
		case tree.KindInt:
			return tree.NewInt(-x.Int), false, nil
		case tree.KindFloat:
			return tree.NewFloat(-x.Float), false, nil
		default:
			return nil, false, fmt.Errorf("cannot negate %s", x.Kind)
		}
	}
	return nil, false, fmt.Errorf("unknown unary operator %q", u.Op)
}

func evalBinary(b Binary, scope *Scope) (*tree.Value, bool, error) {
	if b.Op == "and" {
		l, _, err := evalNode(b.L, scope)
		if err != nil {
			return nil, false, err
		}
		if !l.Truthy() {
			return l, false, nil
		}
		return evalNode(b.R, scope)
	}
	if b.Op == "or" {
		l, _, err := evalNode(b.L, scope)
		if err != nil {
			return nil, false, err
		}
		if l.Truthy() {
			return l, false, nil
		}
		return evalNode(b.R, scope)
	}

	l, _, err := evalNode(b.L, scope)
	if err != nil {
		return nil, false, err
	}
	r, _, err := evalNode(b.R, scope)
	if err != nil {
		return nil, false, err
	}

	switch b.Op {
	case "==":
		return tree.NewBool(tree.Equal(l, r)), false, nil
	case "!=":
		return tree.NewBool(!tree.Equal(l, r)), false, nil
	case "<", "<=", ">", ">=":
		return compareOrdering(b.Op, l, r)
	case "+":
		return arith(b.Op, l, r)
	case "-", "*", "/", "%":
		return arith(b.Op, l, r)
	}
	return nil, false, fmt.Errorf("unknown binary operator %q", b.Op)
}

func numOf(v *tree.Value) (f float64, isInt bool, ok bool) {
	switch v.Kind {
	case tree.KindInt:
		return float64(v.Int), true, true
	case tree.KindFloat:
		return v.Float, false, true
	default:
		return 0, false, false
	}
}

func compareOrdering(op string, l, r *tree.Value) (*tree.Value, bool, error) {
	lf, _, lok := numOf(l)
	rf, _, rok := numOf(r)
	var cmp int
	switch {
	case lok && rok:
		switch {
		case lf < rf:
			cmp = -1
		case lf > rf:
			cmp = 1
		}
	case l.Kind == tree.KindString && r.Kind == tree.KindString:
		switch {
		case l.Str < r.Str:
			cmp = -1
		case l.Str > r.Str:
			cmp = 1
		}
	default:
		return nil, false, fmt.Errorf("cannot compare %s and %s", l.Kind, r.Kind)
	}
	switch op {
	case "<":
		return tree.NewBool(cmp < 0), false, nil
	case "<=":
		return tree.NewBool(cmp <= 0), false, nil
	case ">":
		return tree.NewBool(cmp > 0), false, nil
	case ">=":
		return tree.NewBool(cmp >= 0), false, nil
	}
	return nil, false, fmt.Errorf("unreachable ordering operator %q", op)
}

func arith(op string, l, r *tree.Value) (*tree.Value, bool, error) {
	if op == "+" && (l.Kind == tree.KindString || r.Kind == tree.KindString) {
		return tree.NewString(l.AsString() + r.AsString()), false, nil
	}
	lf, lInt, lok := numOf(l)
	rf, rInt, rok := numOf(r)
	if !lok || !rok {
		return nil, false, fmt.Errorf("cannot apply %q to %s and %s", op, l.Kind, r.Kind)
	}
	bothInt := lInt && rInt
	var f float64
	switch op {
	case "+":
		f = lf + rf
	case "-":
		f = lf - rf
	case "*":
		f = lf * rf
	case "/":
		if rf == 0 {
			return nil, false, fmt.Errorf("division by zero")
		}
		f = lf / rf
		bothInt = false
	case "%":
		if rf == 0 {
			return nil, false, fmt.Errorf("division by zero")
		}
		if bothInt {
			return tree.NewInt(int64(lf) % int64(rf)), false, nil
		}
		f = float64(int64(lf) % int64(rf))
	}
	if bothInt {
		return tree.NewInt(int64(f)), false, nil
	}
	return tree.NewFloat(f), false, nil
}
