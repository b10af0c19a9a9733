// Package vm implements the stack-based virtual machine that executes
// compiled Panda bytecode.
//
// The machine owns four regions of storage: the constant pool shared with
// the bytecode (never written), the growable globals array, the fixed-size operand stack,
// and the frame stack of function activations. Execution is a single
// fetch-decode-execute loop over the current frame's instructions; any
// runtime check failure propagates out of [VM.Run] as an error and halts
// the machine.
package vm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/dr8co/panda/code"
	"github.com/dr8co/panda/compiler"
	"github.com/dr8co/panda/object"
)

const (
	// StackSize is the capacity of the operand stack.
	StackSize = 2048

	// GlobalSize is the maximum number of global bindings.
	GlobalSize = 65536

	// MaxFrames is the maximum function call depth.
	MaxFrames = 1024
)

// epsilon is the tolerance for float equality comparisons.
const epsilon = 2.220446049250313e-16

// Shared singletons for the literal opcodes; scalars are immutable, so one
// instance of each serves every push.
var (
	// True is the canonical true value.
	True = &object.Bool{Value: true}

	// False is the canonical false value.
	False = &object.Bool{Value: false}

	// Null is the canonical null value.
	Null = &object.Null{}
)

// VM is the virtual machine state for one program execution.
type VM struct {
	constants []object.Object
	globals   []object.Object

	stack [StackSize]object.Object
	sp    int

	frames      [MaxFrames]*Frame
	framesIndex int

	// lastPopped holds the value most recently popped off the stack, which
	// the REPL displays as the result of the last statement.
	lastPopped object.Object
}

// New creates a VM ready to run the given bytecode.
func New(bytecode *compiler.Bytecode) *VM {
	return NewWithState(bytecode, make([]object.Object, 0, GlobalSize))
}

// NewWithState creates a VM that reuses an existing globals array, so a REPL
// can retain bindings across submissions.
func NewWithState(bytecode *compiler.Bytecode, globals []object.Object) *VM {
	mainFn := &object.CompiledFunction{Instructions: bytecode.Instructions}
	mainClosure := &object.Closure{Fn: mainFn}

	vm := &VM{
		constants:   bytecode.Constants,
		globals:     globals,
		framesIndex: 1,
	}
	vm.frames[0] = NewFrame(mainClosure, 0)
	return vm
}

// StackTop returns the value on top of the stack without popping it, or nil
// if the stack is empty.
func (vm *VM) StackTop() object.Object {
	if vm.sp == 0 {
		return nil
	}
	return vm.stack[vm.sp-1]
}

// LastPoppedStackElem returns the value most recently popped off the stack.
func (vm *VM) LastPoppedStackElem() object.Object {
	return vm.lastPopped
}

// GetGlobals returns the VM's globals array for reuse in a later VM.
func (vm *VM) GetGlobals() []object.Object {
	return vm.globals
}

// Run executes the loaded bytecode until the main frame's instructions are
// exhausted or a runtime error occurs.
func (vm *VM) Run() error {
	var ip int
	var ins code.Instructions
	var op code.Opcode

	for vm.currentFrame().ip < len(vm.currentFrame().Instructions())-1 {
		vm.currentFrame().ip++

		ip = vm.currentFrame().ip
		ins = vm.currentFrame().Instructions()
		op = code.Opcode(ins[ip])

		switch op {
		case code.OpConstant:
			constIndex := code.ReadUint16(ins[ip+1:])
			vm.currentFrame().ip += 2

			err := vm.push(vm.constants[constIndex])
			if err != nil {
				return err
			}

		case code.OpPop:
			vm.pop()

		case code.OpPopNoRet:
			vm.pop()
			vm.lastPopped = nil

		case code.OpDup:
			if vm.sp == 0 {
				return fmt.Errorf("nothing to duplicate")
			}
			err := vm.push(vm.stack[vm.sp-1])
			if err != nil {
				return err
			}

		case code.OpAdd, code.OpSub, code.OpMul, code.OpDiv, code.OpMod,
			code.OpBitXor, code.OpBitAnd, code.OpBitOr, code.OpShr, code.OpShl:
			err := vm.executeBinaryOperation(op)
			if err != nil {
				return err
			}

		case code.OpTrue:
			err := vm.push(True)
			if err != nil {
				return err
			}

		case code.OpFalse:
			err := vm.push(False)
			if err != nil {
				return err
			}

		case code.OpNil:
			err := vm.push(Null)
			if err != nil {
				return err
			}

		case code.OpEqual, code.OpNotEqual, code.OpGreaterThan, code.OpGreaterThanEqual:
			err := vm.executeComparison(op)
			if err != nil {
				return err
			}

		case code.OpMinus:
			err := vm.executeMinusOperator()
			if err != nil {
				return err
			}

		case code.OpBang:
			err := vm.executeBangOperator()
			if err != nil {
				return err
			}

		case code.OpAnd, code.OpOr:
			err := vm.executeBooleanOperator(op)
			if err != nil {
				return err
			}

		case code.OpJump:
			pos := int(code.ReadUint16(ins[ip+1:]))
			vm.currentFrame().ip = pos - 1

		case code.OpJumpNotTruthy:
			pos := int(code.ReadUint16(ins[ip+1:]))
			vm.currentFrame().ip += 2

			condition := vm.pop()
			if !isTruthy(condition) {
				vm.currentFrame().ip = pos - 1
			}

		case code.OpSetGlobal:
			globalIndex := int(code.ReadUint16(ins[ip+1:]))
			vm.currentFrame().ip += 2

			obj := vm.pop()
			if globalIndex >= len(vm.globals) {
				vm.globals = append(vm.globals, obj)
			} else {
				vm.globals[globalIndex] = obj
			}

		case code.OpGetGlobal:
			globalIndex := int(code.ReadUint16(ins[ip+1:]))
			vm.currentFrame().ip += 2

			err := vm.push(vm.globals[globalIndex])
			if err != nil {
				return err
			}

		case code.OpArray:
			numElements := int(code.ReadUint16(ins[ip+1:]))
			vm.currentFrame().ip += 2

			elements := make([]object.Object, numElements)
			for i := numElements - 1; i >= 0; i-- {
				elements[i] = vm.pop()
			}

			err := vm.push(&object.Array{Elements: elements})
			if err != nil {
				return err
			}

		case code.OpDict:
			numPairs := int(code.ReadUint16(ins[ip+1:]))
			vm.currentFrame().ip += 2

			err := vm.buildHash(numPairs)
			if err != nil {
				return err
			}

		case code.OpIndex:
			index := vm.pop()
			left := vm.pop()

			err := vm.executeIndexExpression(left, index)
			if err != nil {
				return err
			}

		case code.OpRange:
			hasStep := code.ReadUint8(ins[ip+1:]) == 1
			vm.currentFrame().ip++

			err := vm.executeRange(hasStep)
			if err != nil {
				return err
			}

		case code.OpCall:
			numArgs := int(code.ReadUint8(ins[ip+1:]))
			vm.currentFrame().ip++

			err := vm.executeCall(numArgs)
			if err != nil {
				return err
			}

		case code.OpReturnValue:
			returnValue := vm.pop()

			frame := vm.popFrame()
			vm.sp = frame.basePointer - 1

			err := vm.push(returnValue)
			if err != nil {
				return err
			}

		case code.OpReturn:
			frame := vm.popFrame()
			vm.sp = frame.basePointer - 1

			err := vm.push(Null)
			if err != nil {
				return err
			}

		case code.OpSetLocal:
			localIndex := int(code.ReadUint8(ins[ip+1:]))
			vm.currentFrame().ip++

			frame := vm.currentFrame()
			vm.stack[frame.basePointer+localIndex] = vm.pop()

		case code.OpGetLocal:
			localIndex := int(code.ReadUint8(ins[ip+1:]))
			vm.currentFrame().ip++

			frame := vm.currentFrame()
			err := vm.push(vm.stack[frame.basePointer+localIndex])
			if err != nil {
				return err
			}

		case code.OpGetBuiltin:
			builtinIndex := int(code.ReadUint8(ins[ip+1:]))
			vm.currentFrame().ip++

			definition := object.Builtins[builtinIndex]
			err := vm.push(definition.Builtin)
			if err != nil {
				return err
			}

		case code.OpClosure:
			constIndex := int(code.ReadUint16(ins[ip+1:]))
			numFree := int(code.ReadUint8(ins[ip+3:]))
			vm.currentFrame().ip += 3

			err := vm.pushClosure(constIndex, numFree)
			if err != nil {
				return err
			}

		case code.OpGetFree:
			freeIndex := int(code.ReadUint8(ins[ip+1:]))
			vm.currentFrame().ip++

			currentClosure := vm.currentFrame().cl
			err := vm.push(currentClosure.Free[freeIndex])
			if err != nil {
				return err
			}

		case code.OpCurrentClosure:
			err := vm.push(vm.currentFrame().cl)
			if err != nil {
				return err
			}

		case code.OpMethod:
			methodID := code.ReadUint64(ins[ip+1:])
			hasArgs := code.ReadUint8(ins[ip+9:]) == 1
			numArgs := int(code.ReadUint8(ins[ip+10:]))
			vm.currentFrame().ip += 10

			err := vm.executeMethod(methodID, hasArgs, numArgs)
			if err != nil {
				return err
			}

		case code.OpClassMember:
			memberID := code.ReadUint64(ins[ip+1:])
			isStore := code.ReadUint8(ins[ip+9:]) == 1
			vm.currentFrame().ip += 9

			err := vm.executeClassMember(memberID, isStore)
			if err != nil {
				return err
			}

		case code.OpConstructor:
			numArgs := int(code.ReadUint8(ins[ip+1:]))
			vm.currentFrame().ip++

			err := vm.executeConstructor(numArgs)
			if err != nil {
				return err
			}

		case code.OpDelete:
			index := int(code.ReadUint16(ins[ip+1:]))
			vm.currentFrame().ip += 2

			vm.lastPopped = vm.globals[index]
			vm.globals = append(vm.globals[:index], vm.globals[index+1:]...)

		case code.OpStart:
			source := vm.pop()

			iterable, ok := object.AsIterable(source)
			if !ok {
				return fmt.Errorf("%s is not iterable", source.Type())
			}

			err := vm.push(&object.Iter{
				Source:  iterable,
				Size:    iterable.Count(),
				Current: 0,
			})
			if err != nil {
				return err
			}

		case code.OpNext:
			iter, ok := vm.pop().(*object.Iter)
			if !ok {
				return fmt.Errorf("Object is not an iterator")
			}

			err := vm.push(&object.Iter{
				Source:  iter.Source,
				Size:    iter.Size,
				Current: iter.Current + 1,
			})
			if err != nil {
				return err
			}

			err = vm.push(iter.Source.Get(iter.Current))
			if err != nil {
				return err
			}

		case code.OpJumpEnd:
			jumpPos := int(code.ReadUint16(ins[ip+1:]))
			symbolIndex := int(code.ReadUint16(ins[ip+3:]))
			vm.currentFrame().ip += 4

			iter, ok := vm.StackTop().(*object.Iter)
			if !ok {
				return fmt.Errorf("Object is not an iterator")
			}

			if iter.Current >= iter.Size {
				vm.pop()
				vm.currentFrame().ip = jumpPos - 1
				if symbolIndex < len(vm.globals) {
					vm.globals = append(vm.globals[:symbolIndex], vm.globals[symbolIndex+1:]...)
				}
			}

		case code.OpString:
			index := int(code.ReadUint8(ins[ip+1:]))
			vm.currentFrame().ip++

			if index >= len(object.BuiltinMethodNames) {
				return fmt.Errorf("no method name at index %d", index)
			}
			err := vm.push(&object.Str{Value: object.BuiltinMethodNames[index]})
			if err != nil {
				return err
			}

		default:
			return fmt.Errorf("unknown opcode %d", op)
		}
	}
	return nil
}

func (vm *VM) push(o object.Object) error {
	if vm.sp >= StackSize {
		return fmt.Errorf("stack overflow")
	}
	vm.stack[vm.sp] = o
	vm.sp++
	return nil
}

func (vm *VM) pop() object.Object {
	o := vm.stack[vm.sp-1]
	vm.sp--
	vm.lastPopped = o
	return o
}

func (vm *VM) currentFrame() *Frame {
	return vm.frames[vm.framesIndex-1]
}

func (vm *VM) pushFrame(f *Frame) error {
	if vm.framesIndex >= MaxFrames {
		return fmt.Errorf("stack overflow")
	}
	vm.frames[vm.framesIndex] = f
	vm.framesIndex++
	return nil
}

func (vm *VM) popFrame() *Frame {
	vm.framesIndex--
	return vm.frames[vm.framesIndex]
}

// opSymbol renders an opcode as the source operator it compiles from, for
// error messages.
func opSymbol(op code.Opcode) string {
	switch op {
	case code.OpAdd:
		return "+"
	case code.OpSub:
		return "-"
	case code.OpMul:
		return "*"
	case code.OpDiv:
		return "/"
	case code.OpMod:
		return "%"
	case code.OpBitXor:
		return "^"
	case code.OpBitAnd:
		return "&"
	case code.OpBitOr:
		return "|"
	case code.OpShr:
		return ">>"
	case code.OpShl:
		return "<<"
	case code.OpEqual:
		return "=="
	case code.OpNotEqual:
		return "!="
	case code.OpGreaterThan:
		return ">"
	case code.OpGreaterThanEqual:
		return ">="
	default:
		return fmt.Sprintf("op(%d)", op)
	}
}

func (vm *VM) executeBinaryOperation(op code.Opcode) error {
	right := vm.pop()
	left := vm.pop()

	switch left := left.(type) {
	case *object.Int:
		if right, ok := right.(*object.Int); ok {
			return vm.executeBinaryIntOperation(op, left, right)
		}
	case *object.Float:
		if right, ok := right.(*object.Float); ok {
			return vm.executeBinaryFloatOperation(op, left, right)
		}
	case *object.Str:
		switch right := right.(type) {
		case *object.Str:
			return vm.executeBinaryStringOperation(op, left.Value, right.Value)
		case *object.Char:
			return vm.executeBinaryStringOperation(op, left.Value, string(right.Value))
		}
	case *object.Char:
		if right, ok := right.(*object.Char); ok {
			return vm.executeBinaryStringOperation(op, string(left.Value), string(right.Value))
		}
	}

	return fmt.Errorf("unsupported types for binary operation: %s %s %s",
		left.Type(), opSymbol(op), right.Type())
}

func (vm *VM) executeBinaryIntOperation(op code.Opcode, left, right *object.Int) error {
	result := new(big.Int)

	switch op {
	case code.OpAdd:
		result.Add(left.Value, right.Value)
	case code.OpSub:
		result.Sub(left.Value, right.Value)
	case code.OpMul:
		result.Mul(left.Value, right.Value)
	case code.OpDiv:
		if right.Value.Sign() == 0 {
			return fmt.Errorf("division by zero")
		}
		result.Quo(left.Value, right.Value)
	case code.OpMod:
		if right.Value.Sign() == 0 {
			return fmt.Errorf("division by zero")
		}
		// The result's sign follows the dividend.
		result.Rem(left.Value, right.Value)
	case code.OpBitXor:
		result.Xor(left.Value, right.Value)
	case code.OpBitAnd:
		result.And(left.Value, right.Value)
	case code.OpBitOr:
		result.Or(left.Value, right.Value)
	case code.OpShr:
		n, err := shiftCount(right.Value)
		if err != nil {
			return err
		}
		result.Rsh(left.Value, n)
	case code.OpShl:
		n, err := shiftCount(right.Value)
		if err != nil {
			return err
		}
		result.Lsh(left.Value, n)
	default:
		return fmt.Errorf("unknown integer operation: %s", opSymbol(op))
	}

	return vm.push(&object.Int{Value: result})
}

func shiftCount(v *big.Int) (uint, error) {
	if v.Sign() < 0 || !v.IsUint64() || v.Uint64() > 1<<20 {
		return 0, fmt.Errorf("invalid shift amount: %s", v)
	}
	return uint(v.Uint64()), nil
}

func (vm *VM) executeBinaryFloatOperation(op code.Opcode, left, right *object.Float) error {
	var result float64

	switch op {
	case code.OpAdd:
		result = left.Value + right.Value
	case code.OpSub:
		result = left.Value - right.Value
	case code.OpMul:
		result = left.Value * right.Value
	case code.OpDiv:
		result = left.Value / right.Value
	default:
		return fmt.Errorf("unknown float operation: %s", opSymbol(op))
	}

	return vm.push(&object.Float{Value: result})
}

func (vm *VM) executeBinaryStringOperation(op code.Opcode, left, right string) error {
	if op != code.OpAdd {
		return fmt.Errorf("unknown string operation: %s", opSymbol(op))
	}
	return vm.push(&object.Str{Value: left + right})
}

func (vm *VM) executeComparison(op code.Opcode) error {
	right := vm.pop()
	left := vm.pop()

	switch left := left.(type) {
	case *object.Int:
		if right, ok := right.(*object.Int); ok {
			return vm.executeIntComparison(op, left, right)
		}
	case *object.Float:
		if right, ok := right.(*object.Float); ok {
			return vm.executeFloatComparison(op, left, right)
		}
	case *object.Char:
		if right, ok := right.(*object.Char); ok {
			return vm.executeCharComparison(op, left, right)
		}
	}

	// Everything else compares structurally; unequal kinds are unequal
	// rather than an error.
	switch op {
	case code.OpEqual:
		return vm.push(nativeBoolToBooleanObject(objectEquals(left, right)))
	case code.OpNotEqual:
		return vm.push(nativeBoolToBooleanObject(!objectEquals(left, right)))
	default:
		return fmt.Errorf("unknown operator: %s (%s %s)", opSymbol(op), left.Type(), right.Type())
	}
}

func (vm *VM) executeIntComparison(op code.Opcode, left, right *object.Int) error {
	cmp := left.Value.Cmp(right.Value)

	switch op {
	case code.OpEqual:
		return vm.push(nativeBoolToBooleanObject(cmp == 0))
	case code.OpNotEqual:
		return vm.push(nativeBoolToBooleanObject(cmp != 0))
	case code.OpGreaterThan:
		return vm.push(nativeBoolToBooleanObject(cmp > 0))
	case code.OpGreaterThanEqual:
		return vm.push(nativeBoolToBooleanObject(cmp >= 0))
	default:
		return fmt.Errorf("unknown operator: %s", opSymbol(op))
	}
}

func (vm *VM) executeFloatComparison(op code.Opcode, left, right *object.Float) error {
	diff := left.Value - right.Value
	if diff < 0 {
		diff = -diff
	}

	switch op {
	case code.OpEqual:
		return vm.push(nativeBoolToBooleanObject(diff < epsilon))
	case code.OpNotEqual:
		return vm.push(nativeBoolToBooleanObject(diff > epsilon))
	case code.OpGreaterThan:
		return vm.push(nativeBoolToBooleanObject(left.Value > right.Value))
	case code.OpGreaterThanEqual:
		return vm.push(nativeBoolToBooleanObject(left.Value >= right.Value))
	default:
		return fmt.Errorf("unknown operator: %s", opSymbol(op))
	}
}

func (vm *VM) executeCharComparison(op code.Opcode, left, right *object.Char) error {
	switch op {
	case code.OpEqual:
		return vm.push(nativeBoolToBooleanObject(left.Value == right.Value))
	case code.OpNotEqual:
		return vm.push(nativeBoolToBooleanObject(left.Value != right.Value))
	case code.OpGreaterThan:
		return vm.push(nativeBoolToBooleanObject(left.Value > right.Value))
	case code.OpGreaterThanEqual:
		return vm.push(nativeBoolToBooleanObject(left.Value >= right.Value))
	default:
		return fmt.Errorf("unknown operator: %s", opSymbol(op))
	}
}

func (vm *VM) executeBangOperator() error {
	operand := vm.pop()
	if isTruthy(operand) {
		return vm.push(False)
	}
	return vm.push(True)
}

func (vm *VM) executeMinusOperator() error {
	operand := vm.pop()

	switch operand := operand.(type) {
	case *object.Int:
		return vm.push(&object.Int{Value: new(big.Int).Neg(operand.Value)})
	case *object.Float:
		return vm.push(&object.Float{Value: -operand.Value})
	default:
		return fmt.Errorf("unsupported type for negation: %s", operand.Type())
	}
}

// executeBooleanOperator resolves && and || on the two operands the compiler
// pushed; the popped values decide which one survives.
func (vm *VM) executeBooleanOperator(op code.Opcode) error {
	right := vm.pop()
	left := vm.pop()

	if op == code.OpAnd {
		if isTruthy(left) {
			return vm.push(right)
		}
		return vm.push(left)
	}
	if isTruthy(left) {
		return vm.push(left)
	}
	return vm.push(right)
}

func (vm *VM) buildHash(numPairs int) error {
	hash := object.NewHash()

	// Pairs come off the stack value-first in reverse emission order.
	pairs := make([]object.HashPair, numPairs)
	for i := numPairs - 1; i >= 0; i-- {
		value := vm.pop()
		key := vm.pop()
		pairs[i] = object.HashPair{Key: key, Value: value}
	}

	for _, pair := range pairs {
		hashable, ok := object.AsHashable(pair.Key)
		if !ok {
			return fmt.Errorf("unusable as hash key: %s", pair.Key.Type())
		}
		hash.Set(hashable.HashKey(), pair)
	}

	return vm.push(hash)
}

func (vm *VM) executeRange(hasStep bool) error {
	stop := vm.pop()
	start := vm.pop()

	startInt, ok := start.(*object.Int)
	if !ok {
		return fmt.Errorf("cannot use %s as bound in range. expected: INT", start.Type())
	}
	stopInt, ok := stop.(*object.Int)
	if !ok {
		return fmt.Errorf("cannot use %s as bound in range. expected: INT", stop.Type())
	}

	var step int
	if hasStep {
		stepObj := vm.pop()
		stepInt, ok := stepObj.(*object.Int)
		if !ok {
			return fmt.Errorf("cannot use %s as step in range. expected: INT", stepObj.Type())
		}
		step = int(stepInt.Value.Int64())
	} else if startInt.Value.Cmp(stopInt.Value) > 0 {
		step = -1
	} else {
		step = 1
	}

	return vm.push(&object.Range{
		Start: int(startInt.Value.Int64()),
		Stop:  int(stopInt.Value.Int64()),
		Step:  step,
	})
}

func (vm *VM) executeIndexExpression(left, index object.Object) error {
	switch left := left.(type) {
	case *object.Array:
		switch index := index.(type) {
		case *object.Int:
			return vm.executeArrayIndex(left, index)
		case *object.Range:
			return vm.executeArraySlice(left, index)
		}
	case *object.Str:
		switch index := index.(type) {
		case *object.Int:
			return vm.executeStringIndex(left, index)
		case *object.Range:
			return vm.executeStringSlice(left, index)
		}
	case *object.Hash:
		return vm.executeHashIndex(left, index)
	}

	return fmt.Errorf("index operator not supported: %s[%s]", left.Type(), index.Type())
}

func (vm *VM) executeArrayIndex(array *object.Array, index *object.Int) error {
	max := int64(len(array.Elements)) - 1

	if !index.Value.IsInt64() || index.Value.Int64() < 0 || index.Value.Int64() > max {
		return fmt.Errorf("index out of bounds. got: %s, max: %d", index.Value, max)
	}
	return vm.push(array.Elements[index.Value.Int64()])
}

// executeStringIndex indexes by code point, consistent with slicing and the
// iteration protocol.
func (vm *VM) executeStringIndex(str *object.Str, index *object.Int) error {
	runes := []rune(str.Value)
	max := int64(len(runes)) - 1

	if !index.Value.IsInt64() || index.Value.Int64() < 0 || index.Value.Int64() > max {
		return fmt.Errorf("index out of bounds. got: %s, max: %d", index.Value, max)
	}
	return vm.push(&object.Char{Value: runes[index.Value.Int64()]})
}

func (vm *VM) executeArraySlice(array *object.Array, rng *object.Range) error {
	max := len(array.Elements) - 1

	if rng.Start > max || rng.Stop > max || rng.Start < 0 || rng.Stop < 0 || rng.Start > rng.Stop {
		return fmt.Errorf("cannot slice %s using this range", array.Type())
	}

	var elements []object.Object
	if rng.Step > 0 {
		for i := rng.Start; i < rng.Stop; i += rng.Step {
			elements = append(elements, array.Elements[i])
		}
	}
	return vm.push(&object.Array{Elements: elements})
}

func (vm *VM) executeStringSlice(str *object.Str, rng *object.Range) error {
	runes := []rune(str.Value)
	max := len(runes) - 1

	if rng.Start > max || rng.Stop > max || rng.Start < 0 || rng.Stop < 0 || rng.Start > rng.Stop {
		return fmt.Errorf("cannot slice %s using this range", str.Type())
	}

	var out strings.Builder
	if rng.Step > 0 {
		for i := rng.Start; i < rng.Stop; i += rng.Step {
			out.WriteRune(runes[i])
		}
	}
	return vm.push(&object.Str{Value: out.String()})
}

func (vm *VM) executeHashIndex(hash *object.Hash, index object.Object) error {
	key, ok := object.AsHashable(index)
	if !ok {
		return fmt.Errorf("unusable as hash key: %s", index.Type())
	}

	pair, ok := hash.Pairs[key.HashKey()]
	if !ok {
		return fmt.Errorf("key error: no entry found for key '%s'", index.Inspect())
	}
	return vm.push(pair.Value)
}

func (vm *VM) executeCall(numArgs int) error {
	callee := vm.stack[vm.sp-1-numArgs]

	switch callee := callee.(type) {
	case *object.Closure:
		return vm.callClosure(callee, numArgs)
	case *object.Builtin:
		return vm.callBuiltin(callee, numArgs)
	default:
		return fmt.Errorf("calling non-function and non-builtin: %s", callee.Type())
	}
}

func (vm *VM) callClosure(cl *object.Closure, numArgs int) error {
	if numArgs != cl.Fn.NumParameters {
		return fmt.Errorf("wrong number of arguments. got: %d, want: %d",
			numArgs, cl.Fn.NumParameters)
	}

	frame := NewFrame(cl, vm.sp-numArgs)
	if err := vm.pushFrame(frame); err != nil {
		return err
	}
	vm.sp = frame.basePointer + cl.Fn.NumLocals
	return nil
}

func (vm *VM) callBuiltin(builtin *object.Builtin, numArgs int) error {
	args := make([]object.Object, numArgs)
	copy(args, vm.stack[vm.sp-numArgs:vm.sp])
	vm.sp = vm.sp - numArgs - 1

	caller := builtin.Caller
	if caller == nil {
		caller = Null
	}
	return vm.push(builtin.Fn(caller, args))
}

func (vm *VM) pushClosure(constIndex, numFree int) error {
	constant := vm.constants[constIndex]
	fn, ok := constant.(*object.CompiledFunction)
	if !ok {
		return fmt.Errorf("not a function: %s", constant.Inspect())
	}

	free := make([]object.Object, numFree)
	for i := 0; i < numFree; i++ {
		free[i] = vm.stack[vm.sp-numFree+i]
	}
	vm.sp -= numFree

	return vm.push(&object.Closure{Fn: fn, Free: free})
}

// executeMethod dispatches a method call: a class method when the receiver
// is an instance, the built-in registry otherwise.
func (vm *VM) executeMethod(methodID uint64, hasArgs bool, numArgs int) error {
	args := make([]object.Object, numArgs)
	for i := numArgs - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}
	caller := vm.pop()

	if instance, ok := caller.(*object.Instance); ok {
		return vm.callInstanceMethod(instance, methodID, args)
	}

	return vm.push(object.CallMethod(caller, methodID, args, hasArgs))
}

// callInstanceMethod resolves a method on the instance's class, binds the
// fields it references into a closure, and invokes it through the normal
// call protocol so the dispatch loop executes its body.
func (vm *VM) callInstanceMethod(instance *object.Instance, methodID uint64, args []object.Object) error {
	method, ok := instance.Class.Methods[methodID]
	if !ok {
		// A field holding a callable works like a method.
		if field, ok := instance.Fields[methodID]; ok {
			if cl, ok := field.(*object.Closure); ok {
				return vm.invokeClosure(cl, args)
			}
		}
		return fmt.Errorf("%s has no method '%s'",
			instance.Class.Name, object.MethodName(methodID))
	}

	free := make([]object.Object, len(method.FieldRefs))
	for i, ref := range method.FieldRefs {
		value, ok := instance.Fields[ref]
		if !ok {
			value = Null
		}
		free[i] = value
	}

	return vm.invokeClosure(&object.Closure{Fn: method.Fn, Free: free}, args)
}

// invokeClosure arranges the stack into the call-protocol layout (callee
// below its arguments) and pushes the new frame.
func (vm *VM) invokeClosure(cl *object.Closure, args []object.Object) error {
	if err := vm.push(cl); err != nil {
		return err
	}
	for _, arg := range args {
		if err := vm.push(arg); err != nil {
			return err
		}
	}
	return vm.callClosure(cl, len(args))
}

// executeClassMember loads or stores an instance member. On non-instance
// receivers a load falls back to the built-in method registry, so bare
// accesses like "str.len" work on every type.
func (vm *VM) executeClassMember(memberID uint64, isStore bool) error {
	if isStore {
		value := vm.pop()
		receiver := vm.pop()

		instance, ok := receiver.(*object.Instance)
		if !ok {
			return fmt.Errorf("cannot set property '%s' on %s",
				object.MethodName(memberID), receiver.Type())
		}
		instance.Fields[memberID] = value
		return vm.push(value)
	}

	receiver := vm.pop()

	instance, ok := receiver.(*object.Instance)
	if !ok {
		return vm.push(object.CallMethod(receiver, memberID, nil, false))
	}

	if value, ok := instance.Fields[memberID]; ok {
		return vm.push(value)
	}
	if method, ok := instance.Class.Methods[memberID]; ok {
		free := make([]object.Object, len(method.FieldRefs))
		for i, ref := range method.FieldRefs {
			value, ok := instance.Fields[ref]
			if !ok {
				value = Null
			}
			free[i] = value
		}
		return vm.push(&object.Closure{Fn: method.Fn, Free: free})
	}
	return fmt.Errorf("%s has no property '%s'",
		instance.Class.Name, object.MethodName(memberID))
}

func (vm *VM) executeConstructor(numArgs int) error {
	args := make([]object.Object, numArgs)
	for i := numArgs - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}

	callee := vm.pop()
	class, ok := callee.(*object.Class)
	if !ok {
		return fmt.Errorf("not a class: %s", callee.Type())
	}

	if numArgs != len(class.Initializers) {
		return fmt.Errorf("wrong number of arguments. got: %d, want: %d",
			numArgs, len(class.Initializers))
	}

	fields := make(map[uint64]object.Object, len(class.Fields)+numArgs)
	for id, value := range class.Fields {
		fields[id] = value
	}
	for i, name := range class.Initializers {
		fields[object.MethodID(name)] = args[i]
	}

	return vm.push(&object.Instance{Class: class, Fields: fields})
}

func nativeBoolToBooleanObject(input bool) *object.Bool {
	if input {
		return True
	}
	return False
}

// objectEquals reports structural equality between values of the same kind;
// values of different kinds are never equal.
func objectEquals(left, right object.Object) bool {
	if left.Type() != right.Type() {
		return false
	}
	if lh, ok := object.AsHashable(left); ok {
		rh, _ := object.AsHashable(right)
		return lh.HashKey() == rh.HashKey()
	}
	return left.Inspect() == right.Inspect()
}

// isTruthy reports the truthiness of a value: null, false, zero, NaN, and
// empty containers are falsy, everything else truthy.
func isTruthy(obj object.Object) bool {
	switch obj := obj.(type) {
	case *object.Null:
		return false
	case *object.Bool:
		return obj.Value
	case *object.Int:
		return obj.Value.Sign() != 0
	case *object.Float:
		return obj.Value == obj.Value && obj.Value != 0
	case *object.Str:
		return obj.Value != ""
	case *object.Char:
		return obj.Value != 0
	case *object.Array:
		return len(obj.Elements) > 0
	case *object.Hash:
		return obj.Count() > 0
	case *object.Error:
		return obj.Message != ""
	default:
		return true
	}
}
