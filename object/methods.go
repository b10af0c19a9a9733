package object

import (
	"fmt"
	"hash/fnv"
	"math/big"
	"strings"
)

// methodNames maps every id handed out by [MethodID] back to its name, so
// runtime diagnostics can report the name the programmer wrote instead of
// a hash. Execution is single-threaded; no locking is needed.
var methodNames = map[uint64]string{}

// MethodID returns the 64-bit FNV-1a hash of name: the id the compiler
// encodes into the OpMethod and OpClassMember operands (the same hash
// algorithm [Str.HashKey] uses for Str keys), and the key this package's
// method tables are indexed by.
func MethodID(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	id := h.Sum64()
	methodNames[id] = name
	return id
}

// MethodName returns the name behind a method id, or a hex rendering of
// the id when the name was never registered.
func MethodName(id uint64) string {
	if name, ok := methodNames[id]; ok {
		return name
	}
	return fmt.Sprintf("#%016x", id)
}

// BuiltinMethodNames is the canonical ordering of the built-in method
// registry, indexed by the OpString operand.
var BuiltinMethodNames = []string{
	"len", "push", "pop", "first", "last", "rest",
	"keys", "values", "contains", "set",
	"to_str", "to_int", "to_float",
}

var (
	methodLen      = MethodID("len")
	methodPush     = MethodID("push")
	methodPop      = MethodID("pop")
	methodFirst    = MethodID("first")
	methodLast     = MethodID("last")
	methodRest     = MethodID("rest")
	methodKeys     = MethodID("keys")
	methodValues   = MethodID("values")
	methodContains = MethodID("contains")
	methodSet      = MethodID("set")
	methodToStr    = MethodID("to_str")
	methodToInt    = MethodID("to_int")
	methodToFloat  = MethodID("to_float")
)

type methodTable map[uint64]BuiltinFunction

// CallMethod dispatches a built-in method invocation to the table matching
// caller's runtime kind. The VM only reaches this after failing to find
// the name on the caller's own [Class] declarations (§9 "Class instance
// model": class body first, then the built-in registry).
func CallMethod(caller Object, methodID uint64, args []Object, hasArgs bool) Object {
	var table methodTable
	switch caller.(type) {
	case *Array:
		table = arrayMethods
	case *Hash:
		table = hashMethods
	case *Str:
		table = strMethods
	case *Int, *Float, *Bool, *Char:
		table = scalarMethods
	default:
		return Newf("%s has no built-in methods", caller.Type())
	}

	fn, ok := table[methodID]
	if !ok {
		return Newf("%s has no method '%s'", caller.Type(), MethodName(methodID))
	}
	if !hasArgs {
		args = nil
	}
	return fn(caller, args)
}

var arrayMethods = methodTable{
	methodLen: func(caller Object, _ []Object) Object {
		arr := caller.(*Array)
		return &Int{Value: big.NewInt(int64(len(arr.Elements)))}
	},
	methodPush: func(caller Object, args []Object) Object {
		arr := caller.(*Array)
		if len(args) != 1 {
			return Newf("wrong number of arguments to `push`. got=%d, want=1", len(args))
		}
		arr.Elements = append(arr.Elements, args[0])
		return arr
	},
	methodPop: func(caller Object, _ []Object) Object {
		arr := caller.(*Array)
		n := len(arr.Elements)
		if n == 0 {
			return &Null{}
		}
		last := arr.Elements[n-1]
		arr.Elements = arr.Elements[:n-1]
		return last
	},
	methodFirst: func(caller Object, _ []Object) Object {
		arr := caller.(*Array)
		if len(arr.Elements) == 0 {
			return &Null{}
		}
		return arr.Elements[0]
	},
	methodLast: func(caller Object, _ []Object) Object {
		arr := caller.(*Array)
		if len(arr.Elements) == 0 {
			return &Null{}
		}
		return arr.Elements[len(arr.Elements)-1]
	},
	methodRest: func(caller Object, _ []Object) Object {
		arr := caller.(*Array)
		if len(arr.Elements) == 0 {
			return &Array{Elements: []Object{}}
		}
		rest := make([]Object, len(arr.Elements)-1)
		copy(rest, arr.Elements[1:])
		return &Array{Elements: rest}
	},
	methodContains: func(caller Object, args []Object) Object {
		arr := caller.(*Array)
		if len(args) != 1 {
			return Newf("wrong number of arguments to `contains`. got=%d, want=1", len(args))
		}
		for _, e := range arr.Elements {
			if objectsEqual(e, args[0]) {
				return &Bool{Value: true}
			}
		}
		return &Bool{Value: false}
	},
	// set backs "arr[i] = value" assignment, which the compiler lowers to a
	// method call on the receiver.
	methodSet: func(caller Object, args []Object) Object {
		arr := caller.(*Array)
		if len(args) != 2 {
			return Newf("wrong number of arguments to `set`. got=%d, want=2", len(args))
		}
		idx, ok := args[0].(*Int)
		if !ok {
			return Newf("array index must be INT, got %s", args[0].Type())
		}
		i := int(idx.Value.Int64())
		max := len(arr.Elements) - 1
		if !idx.Value.IsInt64() || i < 0 || i > max {
			return Newf("index out of bounds. got: %s, max: %d", idx.Value, max)
		}
		arr.Elements[i] = args[1]
		return args[1]
	},
}

var hashMethods = methodTable{
	methodLen: func(caller Object, _ []Object) Object {
		h := caller.(*Hash)
		return &Int{Value: big.NewInt(int64(len(h.order)))}
	},
	methodKeys: func(caller Object, _ []Object) Object {
		h := caller.(*Hash)
		keys := make([]Object, len(h.order))
		for i, k := range h.order {
			keys[i] = h.Pairs[k].Key
		}
		return &Array{Elements: keys}
	},
	methodValues: func(caller Object, _ []Object) Object {
		h := caller.(*Hash)
		values := make([]Object, len(h.order))
		for i, k := range h.order {
			values[i] = h.Pairs[k].Value
		}
		return &Array{Elements: values}
	},
	methodContains: func(caller Object, args []Object) Object {
		h := caller.(*Hash)
		if len(args) != 1 {
			return Newf("wrong number of arguments to `contains`. got=%d, want=1", len(args))
		}
		hashable, ok := AsHashable(args[0])
		if !ok {
			return Newf("unusable as hash key: %s", args[0].Type())
		}
		_, found := h.Pairs[hashable.HashKey()]
		return &Bool{Value: found}
	},
	// set backs "hash[key] = value" assignment.
	methodSet: func(caller Object, args []Object) Object {
		h := caller.(*Hash)
		if len(args) != 2 {
			return Newf("wrong number of arguments to `set`. got=%d, want=2", len(args))
		}
		hashable, ok := AsHashable(args[0])
		if !ok {
			return Newf("unusable as hash key: %s", args[0].Type())
		}
		h.Set(hashable.HashKey(), HashPair{Key: args[0], Value: args[1]})
		return args[1]
	},
}

var strMethods = methodTable{
	methodLen: func(caller Object, _ []Object) Object {
		s := caller.(*Str)
		return &Int{Value: big.NewInt(int64(len([]rune(s.Value))))}
	},
	methodFirst: func(caller Object, _ []Object) Object {
		s := caller.(*Str)
		runes := []rune(s.Value)
		if len(runes) == 0 {
			return &Null{}
		}
		return &Char{Value: runes[0]}
	},
	methodLast: func(caller Object, _ []Object) Object {
		s := caller.(*Str)
		runes := []rune(s.Value)
		if len(runes) == 0 {
			return &Null{}
		}
		return &Char{Value: runes[len(runes)-1]}
	},
	methodRest: func(caller Object, _ []Object) Object {
		s := caller.(*Str)
		runes := []rune(s.Value)
		if len(runes) == 0 {
			return &Str{Value: ""}
		}
		return &Str{Value: string(runes[1:])}
	},
	methodContains: func(caller Object, args []Object) Object {
		s := caller.(*Str)
		if len(args) != 1 {
			return Newf("wrong number of arguments to `contains`. got=%d, want=1", len(args))
		}
		switch needle := args[0].(type) {
		case *Str:
			return &Bool{Value: strings.Contains(s.Value, needle.Value)}
		case *Char:
			return &Bool{Value: strings.ContainsRune(s.Value, needle.Value)}
		default:
			return Newf("argument to `contains` not supported, got %s", args[0].Type())
		}
	},
}

var scalarMethods = methodTable{
	methodToStr: func(caller Object, _ []Object) Object {
		return &Str{Value: caller.Inspect()}
	},
	methodToInt: func(caller Object, _ []Object) Object {
		switch v := caller.(type) {
		case *Int:
			return v
		case *Float:
			bi, _ := big.NewFloat(v.Value).Int(nil)
			return &Int{Value: bi}
		case *Bool:
			if v.Value {
				return &Int{Value: big.NewInt(1)}
			}
			return &Int{Value: big.NewInt(0)}
		case *Char:
			return &Int{Value: big.NewInt(int64(v.Value))}
		default:
			return Newf("cannot convert %s to_int", caller.Type())
		}
	},
	methodToFloat: func(caller Object, _ []Object) Object {
		switch v := caller.(type) {
		case *Float:
			return v
		case *Int:
			f := new(big.Float).SetInt(v.Value)
			result, _ := f.Float64()
			return &Float{Value: result}
		case *Bool:
			if v.Value {
				return &Float{Value: 1}
			}
			return &Float{Value: 0}
		default:
			return Newf("cannot convert %s to_float", caller.Type())
		}
	},
}

// objectsEqual reports structural equality for the `contains` method:
// Hashable values compare by hash key, everything else by Inspect text.
func objectsEqual(a, b Object) bool {
	if ah, ok := AsHashable(a); ok {
		if bh, ok := AsHashable(b); ok {
			return ah.HashKey() == bh.HashKey()
		}
		return false
	}
	return a.Inspect() == b.Inspect()
}
