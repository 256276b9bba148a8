package lisp

import (
	"fmt"
	"strconv"
	"strings"
)

// Print renders v in the printed form spec section 6 names as the test
// oracle: "()" for nil, "#t"/"#f" for booleans, numbers in invariant
// locale, quoted strings, "name"/"package:name" symbols, recursive cons
// printing with dotted tails, "[Vector ...]", "{k v ...}" maps, closures
// as "[Closure]"/"[Closure/name]", return addresses as "[debug/pc]", and
// foreign objects as "[Native <type> <value>]".
func Print(v Val) string {
	var b strings.Builder
	print1(&b, v)

	return b.String()
}

func print1(b *strings.Builder, v Val) {
	switch v.Kind {
	case KindNil:
		b.WriteString("()")
	case KindBool:
		if v.AsBool() {
			b.WriteString("#t")
		} else {
			b.WriteString("#f")
		}
	case KindInt32:
		b.WriteString(strconv.FormatInt(v.Int64(), 10))
	case KindInt64:
		b.WriteString(strconv.FormatInt(v.Int64(), 10))
	case KindUint32:
		b.WriteString(strconv.FormatUint(v.Uint64(), 10))
	case KindUint64:
		b.WriteString(strconv.FormatUint(v.Uint64(), 10))
	case KindFloat32:
		b.WriteString(strconv.FormatFloat(v.Float64(), 'g', -1, 32))
	case KindFloat64:
		b.WriteString(strconv.FormatFloat(v.Float64(), 'g', -1, 64))
	case KindString:
		b.WriteString(strconv.Quote(v.AsStr()))
	case KindSymbol:
		b.WriteString(v.Symbol().FullName())
	case KindCons:
		printCons(b, v.Cons())
	case KindVector:
		printVector(b, v.Vector())
	case KindMap:
		printMap(b, v.Map())
	case KindClosure:
		printClosure(b, v.Closure())
	case KindReturnAddress:
		printReturnAddress(b, v.ReturnAddress())
	case KindObject:
		fmt.Fprintf(b, "[Native %T %v]", v.Object(), v.Object())
	default:
		b.WriteString("#<unprintable>")
	}
}

func printCons(b *strings.Builder, c *Cons) {
	b.WriteByte('(')
	print1(b, c.First)

	rest := c.Rest
	for {
		switch rest.Kind {
		case KindNil:
			b.WriteByte(')')

			return
		case KindCons:
			b.WriteByte(' ')
			rc := rest.Cons()
			print1(b, rc.First)
			rest = rc.Rest
		default:
			b.WriteString(" . ")
			print1(b, rest)
			b.WriteByte(')')

			return
		}
	}
}

func printVector(b *strings.Builder, v *Vector) {
	b.WriteString("[Vector")

	for _, item := range v.Items {
		b.WriteByte(' ')
		print1(b, item)
	}

	b.WriteByte(']')
}

func printMap(b *strings.Builder, m *MapVal) {
	b.WriteByte('{')

	keys, vals := m.Entries()
	for i := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}

		print1(b, keys[i])
		b.WriteByte(' ')
		print1(b, vals[i])
	}

	b.WriteByte('}')
}

func printClosure(b *strings.Builder, c *Closure) {
	if c.Name == "" {
		b.WriteString("[Closure]")

		return
	}

	fmt.Fprintf(b, "[Closure/%s]", c.Name)
}

func printReturnAddress(b *strings.Builder, r *ReturnAddress) {
	debug := r.Debug
	if debug == "" && r.Fn != nil {
		debug = r.Fn.Name
	}

	fmt.Fprintf(b, "[%s/%d]", debug, r.PC)
}
