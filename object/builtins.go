package object

import (
	"fmt"
	"math/big"
)

// Builtins is the table of free built-in functions available to every
// Panda program, looked up by [code.OpGetBuiltin]'s index operand. Their
// calling convention is the one [BuiltinFunction] describes; caller is
// always *Null here since these are not methods bound to a receiver.
var Builtins = []struct {
	Name    string
	Builtin *Builtin
}{
	{
		"len",
		&Builtin{Fn: func(_ Object, args []Object) Object {
			if len(args) != 1 {
				return Newf("wrong number of arguments. got=%d, want=1", len(args))
			}
			switch arg := args[0].(type) {
			case *Str:
				return &Int{Value: big.NewInt(int64(len([]rune(arg.Value))))}

			case *Array:
				return &Int{Value: big.NewInt(int64(len(arg.Elements)))}

			default:
				return Newf("argument to `len` not supported, got %s", args[0].Type())
			}
		}},
	},
	{
		"first",
		&Builtin{Fn: func(_ Object, args []Object) Object {
			if len(args) != 1 {
				return Newf("wrong number of arguments. got=%d, want=1", len(args))
			}
			switch arg := args[0].(type) {
			case *Array:
				if len(arg.Elements) > 0 {
					return arg.Elements[0]
				}
				return &Null{}
			default:
				return Newf("argument to `first` not supported, got %s", args[0].Type())
			}
		}},
	},
	{
		"rest",
		&Builtin{Fn: func(_ Object, args []Object) Object {
			if len(args) != 1 {
				return Newf("wrong number of arguments. got=%d, want=1", len(args))
			}
			switch arg := args[0].(type) {
			case *Array:
				length := len(arg.Elements)
				if length > 0 {
					newElements := make([]Object, length-1)
					copy(newElements, arg.Elements[1:length])
					return &Array{Elements: newElements}
				}
				return &Null{}
			default:
				return Newf("argument to `rest` not supported, got %s", args[0].Type())
			}
		}},
	},
	{
		"last",
		&Builtin{Fn: func(_ Object, args []Object) Object {
			if len(args) != 1 {
				return Newf("wrong number of arguments. got=%d, want=1", len(args))
			}
			switch arg := args[0].(type) {
			case *Array:
				length := len(arg.Elements)
				if length > 0 {
					return arg.Elements[length-1]
				}
				return &Null{}
			default:
				return Newf("argument to `last` not supported, got %s", args[0].Type())
			}
		}},
	},
	{
		"push",
		&Builtin{Fn: func(_ Object, args []Object) Object {
			if len(args) != 2 {
				return Newf("wrong number of arguments. got=%d, want=2", len(args))
			}
			switch arg := args[0].(type) {
			case *Array:
				length := len(arg.Elements)
				newElements := make([]Object, length+1)
				copy(newElements, arg.Elements)
				newElements[length] = args[1]

				return &Array{Elements: newElements}
			default:
				return Newf("argument to `push` not supported, got %s", args[0].Type())
			}
		}},
	},
	{
		"puts",
		&Builtin{Fn: func(_ Object, args []Object) Object {
			for _, arg := range args {
				fmt.Println(arg.Inspect())
			}
			return &Null{}
		}},
	},
}

// GetBuiltinByName retrieves a built-in function definition by name.
//
// It returns a pointer to the corresponding [Builtin] or nil if the name is
// not found.
func GetBuiltinByName(name string) *Builtin {
	for _, def := range Builtins {
		if def.Name == name {
			return def.Builtin
		}
	}
	return nil
}
