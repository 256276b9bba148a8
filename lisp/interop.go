package lisp

import (
	"fmt"
	"reflect"

	"github.com/iancoleman/strcase"
)

// registerInteropPrimitives installs the opaque host-reflection
// primitives spec section 1 carves out as "exposed only as a set of
// opaque built-in operations": native-call, native-field, native?. Member
// names are translated from Lisp kebab-case to Go exported-field/method
// CamelCase with strcase, matching the field/method a (native-field obj
// "some-field") call is expected to reach.
func registerInteropPrimitives(core *Package) {
	register := func(name string, fn variadicPrimFunc) {
		closure := &Closure{
			Name:      name,
			Primitive: func(m *Machine, args []Val) (Val, error) { return fn(m, args) },
		}
		Set(core.Intern(name), ClosureVal(closure))
	}

	register("native?", primNativeIs)
	register("native-call", primNativeCall)
	register("native-field", primNativeField)
}

type variadicPrimFunc func(m *Machine, args []Val) (Val, error)

func primNativeIs(_ *Machine, args []Val) (Val, error) {
	if len(args) != 1 {
		return Nil, ErrWrongArgCount
	}

	return Bool(args[0].Kind == KindObject), nil
}

func primNativeField(_ *Machine, args []Val) (Val, error) {
	if len(args) != 2 || args[0].Kind != KindObject || args[1].Kind != KindString {
		return Nil, ErrPrimitiveTypeMismatch
	}

	rv := reflect.ValueOf(args[0].Object())
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}

	fieldName := strcase.ToCamel(args[1].AsStr())

	if rv.Kind() != reflect.Struct {
		return Nil, ErrInteropMissingMember.Wrap(fmt.Errorf("not a struct: %T", args[0].Object()))
	}

	field := rv.FieldByName(fieldName)
	if !field.IsValid() {
		return Nil, ErrInteropMissingMember.Wrap(fmt.Errorf("no field %q on %T", fieldName, args[0].Object()))
	}

	return goToVal(field.Interface()), nil
}

func primNativeCall(m *Machine, args []Val) (result Val, err error) {
	if len(args) < 2 || args[0].Kind != KindObject || args[1].Kind != KindString {
		return Nil, ErrPrimitiveTypeMismatch
	}

	rv := reflect.ValueOf(args[0].Object())
	methodName := strcase.ToCamel(args[1].AsStr())

	method := rv.MethodByName(methodName)
	if !method.IsValid() {
		return Nil, ErrInteropMissingMember.Wrap(fmt.Errorf("no method %q on %T", methodName, args[0].Object()))
	}

	methodType := method.Type()
	if !methodType.IsVariadic() && methodType.NumIn() != len(args)-2 {
		return Nil, ErrInteropArity.Wrap(
			fmt.Errorf("%s wants %d args, got %d", methodName, methodType.NumIn(), len(args)-2))
	}

	in := make([]reflect.Value, 0, len(args)-2)

	for _, a := range args[2:] {
		in = append(in, reflect.ValueOf(valToGo(a)))
	}

	defer func() {
		// reflection panics (e.g. argument type mismatch the arity check
		// above didn't catch) surface as an interop error, not a VM crash.
		if r := recover(); r != nil {
			result, err = Nil, ErrInteropArity.Wrap(fmt.Errorf("%s: %v", methodName, r))
		}
	}()

	out := method.Call(in)
	if len(out) == 0 {
		return Nil, nil
	}

	return goToVal(out[0].Interface()), nil
}

// goToVal wraps a Go value returned from reflection as a Val, unwrapping
// the primitive kinds the value model already understands natively and
// falling back to an opaque Object for everything else.
func goToVal(v any) Val {
	switch x := v.(type) {
	case nil:
		return Nil
	case bool:
		return Bool(x)
	case int:
		return Int64(int64(x))
	case int32:
		return Int32(x)
	case int64:
		return Int64(x)
	case uint32:
		return Uint32(x)
	case uint64:
		return Uint64(x)
	case float32:
		return Float32(x)
	case float64:
		return Float64(x)
	case string:
		return Str(x)
	default:
		return ObjectVal(v)
	}
}

// valToGo is the inverse of goToVal, used to marshal Lisp arguments into
// Go values before a reflect.Value.Call.
func valToGo(v Val) any {
	switch v.Kind {
	case KindNil:
		return nil
	case KindBool:
		return v.AsBool()
	case KindInt32:
		return int32(v.Int64())
	case KindInt64:
		return v.Int64()
	case KindUint32:
		return uint32(v.Uint64())
	case KindUint64:
		return v.Uint64()
	case KindFloat32:
		return float32(v.Float64())
	case KindFloat64:
		return v.Float64()
	case KindString:
		return v.AsStr()
	case KindObject:
		return v.Object()
	default:
		return v
	}
}
