// Package object defines the runtime value model for the Panda programming
// language: the tagged union of values the compiler interns as constants and
// the virtual machine pushes and pops on its operand stack.
//
// Key components:
//   - [Object]: the base interface implemented by every runtime value
//   - Scalar values ([Int], [Float], [Bool], [Char], [Str], [Null])
//   - Composite values ([Array], [Hash], [Range])
//   - Callable values ([CompiledFunction], [Closure], [Builtin])
//   - [Class] and [Instance], the user-defined object model
//   - [Hashable]: the capability projection used for hash keys
//   - [Iterable]: the capability projection consumed by the iterator protocol
package object

import (
	"fmt"
	"hash/fnv"
	"math/big"
	"strconv"
	"strings"

	"github.com/dr8co/panda/code"
)

//nolint:revive
const (
	INT_OBJ               = "INT"
	FLOAT_OBJ             = "FLOAT"
	BOOL_OBJ              = "BOOL"
	CHAR_OBJ              = "CHAR"
	STR_OBJ               = "STR"
	NULL_OBJ              = "NULL"
	ARRAY_OBJ             = "ARRAY"
	HASH_OBJ              = "HASH"
	RANGE_OBJ             = "RANGE"
	ERROR_OBJ             = "ERROR"
	COMPILED_FUNCTION_OBJ = "COMPILED_FUNCTION"
	CLOSURE_OBJ           = "CLOSURE"
	BUILTIN_OBJ           = "BUILTIN"
	ITER_OBJ              = "ITER"
	CLASS_OBJ             = "CLASS"
	INSTANCE_OBJ          = "INSTANCE"
)

// Type identifies the runtime kind of an [Object], used both for error
// messages ("unusable as hash key: <KIND>") and as the discriminant half of
// a [HashKey].
type Type string

// Object is the interface every Panda runtime value implements.
type Object interface {
	// Type returns the runtime kind of the object.
	Type() Type

	// Inspect returns a human-readable representation, used by the REPL
	// and by the `to_str` builtin method.
	Inspect() string
}

// Int is an arbitrary-precision signed integer. math/big.Int backs it
// because no example in the retrieved pack ships a third-party bignum type.
type Int struct {
	Value *big.Int
}

func (i *Int) Type() Type      { return INT_OBJ }
func (i *Int) Inspect() string { return i.Value.String() }

// Float is a 64-bit IEEE 754 floating-point value.
type Float struct {
	Value float64
}

func (f *Float) Type() Type      { return FLOAT_OBJ }
func (f *Float) Inspect() string { return strconv.FormatFloat(f.Value, 'g', -1, 64) }

// Bool is a boolean value.
type Bool struct {
	Value bool
}

func (b *Bool) Type() Type      { return BOOL_OBJ }
func (b *Bool) Inspect() string { return strconv.FormatBool(b.Value) }

// Char is a single Unicode scalar value.
type Char struct {
	Value rune
}

func (c *Char) Type() Type      { return CHAR_OBJ }
func (c *Char) Inspect() string { return string(c.Value) }

// Str is a UTF-8 text value. Indexing and slicing operate on code points,
// not bytes.
type Str struct {
	Value string
	// hashKey caches the computed hash key, mirroring the teacher's String.
	hashKey *HashKey
}

func (s *Str) Type() Type      { return STR_OBJ }
func (s *Str) Inspect() string { return s.Value }

// Null is the absence of a value.
type Null struct{}

func (n *Null) Type() Type      { return NULL_OBJ }
func (n *Null) Inspect() string { return "null" }

// Array is an ordered, mutable sequence of objects.
type Array struct {
	Elements []Object
}

func (a *Array) Type() Type { return ARRAY_OBJ }
func (a *Array) Inspect() string {
	elements := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		elements[i] = e.Inspect()
	}

	var out strings.Builder
	out.WriteString("[")
	out.WriteString(strings.Join(elements, ", "))
	out.WriteString("]")
	return out.String()
}

// Range is a half-open arithmetic sequence start..stop advancing by step.
// step's sign must agree with the stop-start direction or the range is
// empty when iterated.
type Range struct {
	Start int
	Stop  int
	Step  int
}

func (r *Range) Type() Type { return RANGE_OBJ }
func (r *Range) Inspect() string {
	if r.Step == 1 || r.Step == -1 {
		return fmt.Sprintf("%d..%d", r.Start, r.Stop)
	}
	return fmt.Sprintf("%d..%d..%d", r.Start, r.Stop, r.Step)
}

// HashKey is the hashed-and-tagged projection of a [Hashable] value, used
// as the key of a [Hash]'s backing map.
type HashKey struct {
	Type  Type
	Value uint64
}

// Hashable is implemented by the subset of objects usable as hash keys:
// Int, Str, Char, and Bool.
type Hashable interface {
	HashKey() HashKey
}

func (b *Bool) HashKey() HashKey {
	var value uint64
	if b.Value {
		value = 1
	}
	return HashKey{Type: b.Type(), Value: value}
}

func (i *Int) HashKey() HashKey {
	h := fnv.New64a()
	// Hash the decimal text rather than the raw magnitude bytes so sign and
	// value both participate without needing a separate sign byte.
	_, _ = h.Write([]byte(i.Value.String()))
	return HashKey{Type: i.Type(), Value: h.Sum64()}
}

func (c *Char) HashKey() HashKey {
	return HashKey{Type: c.Type(), Value: uint64(c.Value)}
}

func (s *Str) HashKey() HashKey {
	if s.hashKey != nil {
		return *s.hashKey
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(s.Value))

	hashKey := HashKey{Type: s.Type(), Value: h.Sum64()}
	s.hashKey = &hashKey
	return hashKey
}

// AsHashable returns obj's [Hashable] projection, or false if obj's variant
// cannot be used as a hash key.
func AsHashable(obj Object) (Hashable, bool) {
	h, ok := obj.(Hashable)
	return h, ok
}

// HashPair is a key/value entry stored in a [Hash]. Key is retained
// alongside the hashed index so iteration and `keys`/`values` can recover
// the original key object, not just its hash.
type HashPair struct {
	Key   Object
	Value Object
}

// Hash maps Hashable keys to objects. Insertion order is tracked internally
// only to give iteration (`for x in hash`) a stable order within a single
// run; per the value model, that order is not otherwise part of the
// contract and must not be relied upon across runs.
type Hash struct {
	Pairs map[HashKey]HashPair
	order []HashKey
}

// NewHash returns an empty Hash ready for [Hash.Set].
func NewHash() *Hash {
	return &Hash{Pairs: make(map[HashKey]HashPair)}
}

// Set inserts or overwrites the pair stored under key, tracking insertion
// order for first-time keys.
func (h *Hash) Set(key HashKey, pair HashPair) {
	if _, exists := h.Pairs[key]; !exists {
		h.order = append(h.order, key)
	}
	h.Pairs[key] = pair
}

func (h *Hash) Type() Type { return HASH_OBJ }
func (h *Hash) Inspect() string {
	pairs := make([]string, 0, len(h.order))
	for _, k := range h.order {
		pair := h.Pairs[k]
		pairs = append(pairs, fmt.Sprintf("%s: %s", pair.Key.Inspect(), pair.Value.Inspect()))
	}

	var out strings.Builder
	out.WriteString("{")
	out.WriteString(strings.Join(pairs, ", "))
	out.WriteString("}")
	return out.String()
}

// Error is a runtime-produced error value, distinct from a compile error.
type Error struct {
	Message string
}

func (e *Error) Type() Type      { return ERROR_OBJ }
func (e *Error) Inspect() string { return "ERROR: " + e.Message }

// Newf constructs an *Error with a formatted message.
func Newf(format string, a ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, a...)}
}

// CompiledFunction is a function body lowered to bytecode by the compiler.
type CompiledFunction struct {
	Instructions  code.Instructions
	NumLocals     int
	NumParameters int
}

func (c *CompiledFunction) Type() Type      { return COMPILED_FUNCTION_OBJ }
func (c *CompiledFunction) Inspect() string { return fmt.Sprintf("CompiledFunction[%p]", c) }

// Closure pairs a compiled function with the free variables (upvalues) it
// captured from enclosing scopes at the point it was created.
type Closure struct {
	Fn   *CompiledFunction
	Free []Object
}

func (c *Closure) Type() Type      { return CLOSURE_OBJ }
func (c *Closure) Inspect() string { return fmt.Sprintf("Closure[%p]", c) }

// BuiltinFunction is the calling convention shared by free builtin
// functions (§1 "specified only by their calling convention") and the
// built-in method registry. caller is the bound receiver for a method call,
// or *Null for a free function call.
type BuiltinFunction func(caller Object, args []Object) Object

// Builtin is a built-in function or method, optionally bound to a receiver.
type Builtin struct {
	Name   string
	Fn     BuiltinFunction
	Caller Object
}

func (b *Builtin) Type() Type      { return BUILTIN_OBJ }
func (b *Builtin) Inspect() string { return "builtin function" }

// Iterable is the capability consumed by the Start/Next/JumpEnd iterator
// protocol: a source of Count() elements retrievable in order by index.
type Iterable interface {
	Count() int
	Get(index int) Object
}

func (a *Array) Count() int          { return len(a.Elements) }
func (a *Array) Get(index int) Object { return a.Elements[index] }

func (s *Str) Count() int { return len([]rune(s.Value)) }
func (s *Str) Get(index int) Object {
	return &Char{Value: []rune(s.Value)[index]}
}

// Count reports the number of values the range produces, 0 if step is 0 or
// points away from stop.
func (r *Range) Count() int {
	if r.Step == 0 {
		return 0
	}
	diff := r.Stop - r.Start
	if (r.Step > 0 && diff <= 0) || (r.Step < 0 && diff >= 0) {
		return 0
	}
	n := diff / r.Step
	if diff%r.Step != 0 {
		n++
	}
	return n
}

func (r *Range) Get(index int) Object {
	return &Int{Value: big.NewInt(int64(r.Start + index*r.Step))}
}

func (h *Hash) Count() int { return len(h.order) }
func (h *Hash) Get(index int) Object {
	pair := h.Pairs[h.order[index]]
	return &Array{Elements: []Object{pair.Key, pair.Value}}
}

// AsIterable returns obj's [Iterable] projection, or false if obj's variant
// cannot be iterated.
func AsIterable(obj Object) (Iterable, bool) {
	it, ok := obj.(Iterable)
	return it, ok
}

// Iter is a one-shot cursor produced by OpStart over an [Iterable] source.
type Iter struct {
	Source  Iterable
	Size    int
	Current int
}

func (it *Iter) Type() Type      { return ITER_OBJ }
func (it *Iter) Inspect() string { return fmt.Sprintf("iterator[%d/%d]", it.Current, it.Size) }

// ClassMethod is a method compiled from a class body. FieldRefs lists the
// ids of the instance fields the body references, in capture order; at
// dispatch the VM loads those fields into the method closure's free slots.
type ClassMethod struct {
	Fn        *CompiledFunction
	FieldRefs []uint64
}

// Class is a compiled class declaration: the parameter names copied into a
// new [Instance]'s field map at construction, literal field defaults from
// the body's declarations, and the method bodies declared in its body,
// keyed by the 64-bit FNV-1a id the compiler hashes their names to (the
// same hash [Str.HashKey] uses).
type Class struct {
	Name         string
	Initializers []string
	Fields       map[uint64]Object
	Methods      map[uint64]*ClassMethod
}

func (c *Class) Type() Type      { return CLASS_OBJ }
func (c *Class) Inspect() string { return "class " + c.Name }

// Instance is a live object constructed from a [Class]: a shared pointer to
// its class descriptor plus a private field map seeded from the class's
// defaults and the constructor arguments, mutated by subsequent field
// assignment. Fields are keyed by the same hashed ids the class uses.
type Instance struct {
	Class  *Class
	Fields map[uint64]Object
}

func (in *Instance) Type() Type      { return INSTANCE_OBJ }
func (in *Instance) Inspect() string { return in.Class.Name + " instance" }
