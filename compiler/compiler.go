// Package compiler transforms abstract syntax tree (AST) nodes into bytecode instructions.
//
// This package provides a compiler that traverses an AST produced by the parser and generates
// bytecode instructions that can be executed by a virtual machine.
// The compiler handles expression evaluation, control flow, variable scoping,
// function compilation, class lowering, module imports, and constant management.
//
// # Architecture
//
// The compiler uses a stack-based bytecode generation approach with support for:
//
//   - Multiple compilation scopes for nested functions and closures
//   - Symbol tables for variable resolution (local, global, free, and builtin variables)
//   - Constant pooling for literals, compiled functions, and classes
//   - Optimizations such as replacing a tail OpPop with OpReturnValue
//
// # Compilation Process
//
// The compiler works by recursively traversing the AST and emitting bytecode instructions:
//
//  1. Expressions are compiled to push their results onto the stack
//  2. Operators pop operands from the stack and push results
//  3. Variables are resolved through symbol tables and compiled to load/store instructions
//  4. Control flow (if/else, while, for) is compiled using conditional and unconditional jumps
//  5. Functions are compiled in separate scopes and stored as constants
//  6. Closures capture free variables from enclosing scopes
//  7. Method and field names are pre-hashed to 64-bit ids so the VM dispatches without
//     string comparison
//
// # Scoping
//
// The compiler maintains a stack of compilation scopes to support nested functions and closures.
// Each scope has its own instruction sequence and tracks the last two emitted instructions for
// optimization purposes.
// Symbol tables manage variable bindings and support lexical scoping with
// proper closure semantics.
package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dr8co/panda/ast"
	"github.com/dr8co/panda/code"
	"github.com/dr8co/panda/lexer"
	"github.com/dr8co/panda/object"
	"github.com/dr8co/panda/parser"
)

// placeholder is the operand emitted for a forward jump before its target is
// known; changeOperand back-patches it.
const placeholder = 0xFFFF

// ImportContext carries the module-resolution state for "import" statements.
// It is passed in explicitly rather than read from a process-wide variable,
// so embedders control where imports resolve from.
type ImportContext struct {
	// Root is the directory import paths are resolved against.
	Root string
}

// module is a compiled import: the symbols its top-level bindings resolved
// to, keyed by name. The bindings live in the shared globals array; only
// their names are hidden behind the module alias.
type module struct {
	exports map[string]Symbol
}

// loopContext tracks the patching state of the innermost enclosing loop:
// where "continue" jumps to, the break jumps awaiting the loop-end address,
// and, for for-loops, the loop variable whose global slot break must release.
type loopContext struct {
	continuePos int
	breakJumps  []int

	isFor    bool
	symIndex int
}

// Compiler is responsible for compiling an AST into bytecode instructions and managing compilation states.
type Compiler struct {
	// Holds the collection of constant values encountered during compilation.
	constants []object.Object

	// symbolTable manages variable bindings and symbol resolution.
	symbolTable *SymbolTable

	// Tracks the current compilation scope and its instruction sequence.
	scopes []CompilationScope

	// scopeIndex tracks the current compilation scope.
	scopeIndex int

	// loops is the stack of enclosing loop contexts for break/continue patching.
	loops []loopContext

	// importCtx is the module-resolution context for import statements.
	importCtx ImportContext

	// modules maps import aliases to their compiled exports.
	modules map[string]*module

	// importCache holds compiled modules by canonical path, so a file
	// imported twice is compiled and executed once.
	importCache map[string]*module

	// importing tracks the canonical paths currently being compiled, for
	// circular import detection.
	importing map[string]bool
}

// Bytecode represents the compiled instructions and constants for a program or function.
type Bytecode struct {

	// Holds the compiled bytecode instructions for a program or function.
	Instructions code.Instructions

	// Contains the constant values used in the bytecode, represented as a slice of objects.
	Constants []object.Object
}

// EmittedInstruction represents a bytecode instruction that has been emitted during compilation.
type EmittedInstruction struct {

	// Opcode represents the specific operation code of the emitted bytecode instruction.
	Opcode code.Opcode

	// Position represents the index or location in the instructions' slice where the bytecode instruction is stored.
	Position int
}

// CompilationScope represents a single layer of compilation containing instructions and metadata about recently emitted instructions.
type CompilationScope struct {

	// Represents the sequence of bytecode instructions for the current compilation scope.
	instructions code.Instructions

	// lastInstruction tracks the most recently emitted bytecode instruction within the current compilation scope.
	lastInstruction EmittedInstruction

	// previousInstruction tracks the second most recently emitted bytecode instruction in the current compilation scope.
	previousInstruction EmittedInstruction
}

// newCompilationScope creates a new compilation scope with an empty instruction sequence.
func newCompilationScope() CompilationScope {
	return CompilationScope{
		instructions:        code.Instructions{},
		lastInstruction:     EmittedInstruction{},
		previousInstruction: EmittedInstruction{},
	}
}

// New creates a new compiler instance resolving imports against the current
// directory.
func New() *Compiler {
	return NewWithContext(ImportContext{Root: "."})
}

// NewWithContext creates a new compiler instance with the given
// module-resolution context.
func NewWithContext(ctx ImportContext) *Compiler {
	symbolTable := NewSymbolTable()
	for i, v := range object.Builtins {
		symbolTable.DefineBuiltin(i, v.Name)
	}

	return &Compiler{
		constants:   []object.Object{},
		symbolTable: symbolTable,
		scopes:      []CompilationScope{newCompilationScope()},
		scopeIndex:  0,
		importCtx:   ctx,
		modules:     make(map[string]*module),
		importCache: make(map[string]*module),
		importing:   make(map[string]bool),
	}
}

// NewWithState creates a new compiler instance with a pre-defined symbol table
// and constant pool, so a REPL can thread state between submissions.
func NewWithState(ctx ImportContext, s *SymbolTable, constants []object.Object) *Compiler {
	c := NewWithContext(ctx)
	c.symbolTable = s
	c.constants = constants
	return c
}

// Compile traverses the given AST node and translates it into bytecode instructions for interpretation.
func (c *Compiler) Compile(node ast.Node) error {
	switch node := node.(type) {
	case *ast.Program:
		for _, s := range node.Statements {
			err := c.Compile(s)
			if err != nil {
				return err
			}
		}

	case *ast.ExpressionStatement:
		err := c.Compile(node.Expression)
		if err != nil {
			return err
		}
		// A semicolon discards the value for good; its absence keeps the
		// value eligible for the implicit-return rewrite and the REPL echo.
		if node.Returns {
			c.emit(code.OpPop)
		} else {
			c.emit(code.OpPopNoRet)
		}

	case *ast.BlockStatement:
		for _, s := range node.Statements {
			err := c.Compile(s)
			if err != nil {
				return err
			}
		}

	case *ast.Declaration:
		return c.compileDeclaration(node)

	case *ast.Function:
		symbol := c.symbolTable.Define(node.Name)
		lambda := &ast.Lambda{
			Token:      node.Token,
			Parameters: node.Parameters,
			Body:       node.Body,
			Name:       node.Name,
		}
		if err := c.Compile(lambda); err != nil {
			return err
		}
		c.storeSymbol(symbol)

	case *ast.Return:
		if node.ReturnValue == nil {
			c.emit(code.OpReturn)
			return nil
		}
		err := c.Compile(node.ReturnValue)
		if err != nil {
			return err
		}
		c.emit(code.OpReturnValue)

	case *ast.Delete:
		return c.compileDelete(node)

	case *ast.While:
		return c.compileWhile(node)

	case *ast.For:
		return c.compileFor(node)

	case *ast.Break:
		return c.compileBreak()

	case *ast.Continue:
		return c.compileContinue()

	case *ast.ClassDecl:
		return c.compileClassDecl(node)

	case *ast.Import:
		return c.compileImport(node)

	case *ast.Identifier:
		symbol, ok := c.symbolTable.Resolve(node.Value)
		if !ok {
			return fmt.Errorf("undefined variable %s", node.Value)
		}
		c.loadSymbol(symbol)

	case *ast.Assign:
		return c.compileAssign(node)

	case *ast.Infix:
		return c.compileInfix(node)

	case *ast.Prefix:
		err := c.Compile(node.Right)
		if err != nil {
			return err
		}
		switch node.Operator {
		case "!":
			c.emit(code.OpBang)
		case "-":
			c.emit(code.OpMinus)
		default:
			return fmt.Errorf("unknown operator %s", node.Operator)
		}

	case *ast.If:
		return c.compileIf(node)

	case *ast.IntegerLiteral:
		integer := &object.Int{Value: node.Value}
		c.emit(code.OpConstant, c.addConstant(integer))

	case *ast.FloatLiteral:
		float := &object.Float{Value: node.Value}
		c.emit(code.OpConstant, c.addConstant(float))

	case *ast.StringLiteral:
		str := &object.Str{Value: node.Value}
		c.emit(code.OpConstant, c.addConstant(str))

	case *ast.CharLiteral:
		char := &object.Char{Value: node.Value}
		c.emit(code.OpConstant, c.addConstant(char))

	case *ast.Boolean:
		if node.Value {
			c.emit(code.OpTrue)
		} else {
			c.emit(code.OpFalse)
		}

	case *ast.NullLiteral:
		c.emit(code.OpNil)

	case *ast.ArrayLiteral:
		for _, el := range node.Elements {
			err := c.Compile(el)
			if err != nil {
				return err
			}
		}
		c.emit(code.OpArray, len(node.Elements))

	case *ast.HashLiteral:
		for _, pair := range node.Pairs {
			err := c.Compile(pair.Key)
			if err != nil {
				return err
			}
			err = c.Compile(pair.Value)
			if err != nil {
				return err
			}
		}
		c.emit(code.OpDict, len(node.Pairs))

	case *ast.Index:
		err := c.Compile(node.Left)
		if err != nil {
			return err
		}
		err = c.Compile(node.Index)
		if err != nil {
			return err
		}
		c.emit(code.OpIndex)

	case *ast.Range:
		return c.compileRange(node)

	case *ast.Lambda:
		return c.compileLambda(node)

	case *ast.Call:
		err := c.Compile(node.Function)
		if err != nil {
			return err
		}
		for _, arg := range node.Arguments {
			err := c.Compile(arg)
			if err != nil {
				return err
			}
		}
		c.emit(code.OpCall, len(node.Arguments))

	case *ast.Method:
		return c.compileMethod(node)

	case *ast.Constructor:
		return c.compileConstructor(node)

	case *ast.Scope:
		return c.compileScope(node)

	default:
		return fmt.Errorf("unknown node type %T", node)
	}
	return nil
}

func (c *Compiler) compileDeclaration(node *ast.Declaration) error {
	var symbol Symbol
	if node.Mutable {
		symbol = c.symbolTable.Define(node.Name.Value)
	} else {
		symbol = c.symbolTable.DefineConst(node.Name.Value)
	}

	err := c.Compile(node.Value)
	if err != nil {
		return err
	}
	c.storeSymbol(symbol)
	return nil
}

func (c *Compiler) compileAssign(node *ast.Assign) error {
	switch target := node.To.(type) {
	case *ast.Identifier:
		symbol, ok := c.symbolTable.Resolve(target.Value)
		if !ok {
			return fmt.Errorf("undefined variable %s", target.Value)
		}
		if symbol.Scope == BuiltinScope || symbol.Scope == FunctionScope {
			return fmt.Errorf("cannot assign to %s", target.Value)
		}
		if !symbol.Mutable {
			return fmt.Errorf("cannot reassign const %s", target.Value)
		}
		if symbol.Scope == FreeScope {
			return fmt.Errorf("cannot assign to captured variable %s", target.Value)
		}

		if err := c.Compile(node.Value); err != nil {
			return err
		}
		// Duplicate the value so the assignment itself has one: the store
		// consumes the copy.
		c.emit(code.OpDup)
		c.storeSymbol(symbol)

	case *ast.Index:
		// arr[i] = v lowers to the built-in `set` method on the receiver.
		if err := c.Compile(target.Left); err != nil {
			return err
		}
		if err := c.Compile(target.Index); err != nil {
			return err
		}
		if err := c.Compile(node.Value); err != nil {
			return err
		}
		c.emit(code.OpMethod, int(object.MethodID("set")), 1, 2)

	case *ast.Method:
		if target.HasArgs {
			return fmt.Errorf("invalid assignment target %s", target.String())
		}
		if err := c.Compile(target.Left); err != nil {
			return err
		}
		if err := c.Compile(node.Value); err != nil {
			return err
		}
		c.emit(code.OpClassMember, int(object.MethodID(target.Name)), 1)

	default:
		return fmt.Errorf("invalid assignment target %s", node.To.String())
	}
	return nil
}

func (c *Compiler) compileInfix(node *ast.Infix) error {
	// < and <= compile to their mirrored comparisons with swapped operands.
	if node.Operator == "<" || node.Operator == "<=" {
		err := c.Compile(node.Right)
		if err != nil {
			return err
		}
		err = c.Compile(node.Left)
		if err != nil {
			return err
		}
		if node.Operator == "<" {
			c.emit(code.OpGreaterThan)
		} else {
			c.emit(code.OpGreaterThanEqual)
		}
		return nil
	}

	err := c.Compile(node.Left)
	if err != nil {
		return err
	}
	err = c.Compile(node.Right)
	if err != nil {
		return err
	}

	switch node.Operator {
	case "+":
		c.emit(code.OpAdd)
	case "-":
		c.emit(code.OpSub)
	case "*":
		c.emit(code.OpMul)
	case "/":
		c.emit(code.OpDiv)
	case "%":
		c.emit(code.OpMod)
	case "^":
		c.emit(code.OpBitXor)
	case "&":
		c.emit(code.OpBitAnd)
	case "|":
		c.emit(code.OpBitOr)
	case ">>":
		c.emit(code.OpShr)
	case "<<":
		c.emit(code.OpShl)
	case ">":
		c.emit(code.OpGreaterThan)
	case ">=":
		c.emit(code.OpGreaterThanEqual)
	case "==":
		c.emit(code.OpEqual)
	case "!=":
		c.emit(code.OpNotEqual)
	case "&&":
		c.emit(code.OpAnd)
	case "||":
		c.emit(code.OpOr)
	default:
		return fmt.Errorf("unknown operator %s", node.Operator)
	}
	return nil
}

func (c *Compiler) compileIf(node *ast.If) error {
	err := c.Compile(node.Condition)
	if err != nil {
		return err
	}

	// Emit an `OpJumpNotTruthy` with a placeholder operand to patch later.
	jumpNotTruthyPos := c.emit(code.OpJumpNotTruthy, placeholder)

	err = c.Compile(node.Consequence)
	if err != nil {
		return err
	}
	c.leaveBranchValue()

	// Emit an `OpJump` with a placeholder operand to patch later.
	jumpPos := c.emit(code.OpJump, placeholder)
	afterConsequencePos := len(c.currentInstructions())
	c.changeOperand(jumpNotTruthyPos, afterConsequencePos)

	if node.Alternative == nil {
		c.emit(code.OpNil)
	} else {
		err := c.Compile(node.Alternative)
		if err != nil {
			return err
		}
		c.leaveBranchValue()
	}
	afterAlternativePos := len(c.currentInstructions())
	c.changeOperand(jumpPos, afterAlternativePos)
	return nil
}

// leaveBranchValue makes an if-branch leave exactly one value on the stack:
// a trailing OpPop is removed so the branch's tail expression becomes its
// value, and a branch that discarded or produced no value yields null.
func (c *Compiler) leaveBranchValue() {
	if c.lastInstructionIs(code.OpPop) {
		c.removeLastPop()
		return
	}
	c.emit(code.OpNil)
}

func (c *Compiler) compileWhile(node *ast.While) error {
	conditionPos := len(c.currentInstructions())

	err := c.Compile(node.Condition)
	if err != nil {
		return err
	}
	jumpNotTruthyPos := c.emit(code.OpJumpNotTruthy, placeholder)

	c.loops = append(c.loops, loopContext{continuePos: conditionPos})

	err = c.Compile(node.Body)
	if err != nil {
		return err
	}
	// The body's tail expression is popped like any other statement; the
	// loop itself produces no value.
	c.emit(code.OpJump, conditionPos)

	afterBodyPos := len(c.currentInstructions())
	c.changeOperand(jumpNotTruthyPos, afterBodyPos)

	loop := c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]
	for _, pos := range loop.breakJumps {
		c.changeOperand(pos, afterBodyPos)
	}
	return nil
}

func (c *Compiler) compileFor(node *ast.For) error {
	err := c.Compile(node.Iterator)
	if err != nil {
		return err
	}
	c.emit(code.OpStart)

	// The loop variable lives in the globals array for the duration of the
	// loop, even inside nested functions; OpJumpEnd removes it when the
	// iterator is exhausted, so the name is not visible after the loop.
	root := c.symbolTable
	for root.Outer != nil {
		root = root.Outer
	}
	symbol := root.Define(node.Name.Value)

	checkPos := c.emit(code.OpJumpEnd, placeholder, symbol.Index)
	c.emit(code.OpNext)
	c.emit(code.OpSetGlobal, symbol.Index)

	c.loops = append(c.loops, loopContext{
		continuePos: checkPos,
		isFor:       true,
		symIndex:    symbol.Index,
	})

	err = c.Compile(node.Body)
	if err != nil {
		return err
	}
	c.emit(code.OpJump, checkPos)

	afterLoopPos := len(c.currentInstructions())
	c.changeJumpEnd(checkPos, afterLoopPos, symbol.Index)

	loop := c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]
	for _, pos := range loop.breakJumps {
		c.changeOperand(pos, afterLoopPos)
	}

	root.Remove(node.Name.Value)
	return nil
}

func (c *Compiler) compileBreak() error {
	if len(c.loops) == 0 {
		return fmt.Errorf("break outside loop")
	}
	loop := &c.loops[len(c.loops)-1]

	if loop.isFor {
		// Leaving a for-loop early must do what OpJumpEnd would have done:
		// discard the iterator and release the loop variable's global slot.
		c.emit(code.OpPopNoRet)
		c.emit(code.OpDelete, loop.symIndex)
	}
	pos := c.emit(code.OpJump, placeholder)
	loop.breakJumps = append(loop.breakJumps, pos)
	return nil
}

func (c *Compiler) compileContinue() error {
	if len(c.loops) == 0 {
		return fmt.Errorf("continue outside loop")
	}
	loop := c.loops[len(c.loops)-1]
	c.emit(code.OpJump, loop.continuePos)
	return nil
}

func (c *Compiler) compileRange(node *ast.Range) error {
	hasStep := 0
	if node.Step != nil {
		hasStep = 1
		// The step sits deepest on the stack, below start and stop.
		if err := c.Compile(node.Step); err != nil {
			return err
		}
	}
	if err := c.Compile(node.Start); err != nil {
		return err
	}
	if err := c.Compile(node.Stop); err != nil {
		return err
	}
	c.emit(code.OpRange, hasStep)
	return nil
}

func (c *Compiler) compileLambda(node *ast.Lambda) error {
	c.enterScope()
	if node.Name != "" {
		c.symbolTable.DefineFunctionName(node.Name)
	}

	for _, param := range node.Parameters {
		c.symbolTable.Define(param.Value)
	}

	err := c.Compile(node.Body)
	if err != nil {
		return err
	}
	if c.lastInstructionIs(code.OpPop) {
		c.replaceLastPopWithReturn()
	}
	if !c.lastInstructionIs(code.OpReturnValue) {
		c.emit(code.OpReturn)
	}

	freeSymbols := c.symbolTable.FreeSymbols
	numLocals := c.symbolTable.numDefinitions
	instructions := c.leaveScope()

	for _, s := range freeSymbols {
		c.loadSymbol(s)
	}

	compiledFn := &object.CompiledFunction{
		Instructions:  instructions,
		NumLocals:     numLocals,
		NumParameters: len(node.Parameters),
	}
	fnIndex := c.addConstant(compiledFn)
	c.emit(code.OpClosure, fnIndex, len(freeSymbols))
	return nil
}

func (c *Compiler) compileMethod(node *ast.Method) error {
	err := c.Compile(node.Left)
	if err != nil {
		return err
	}

	id := int(object.MethodID(node.Name))

	if !node.HasArgs {
		// A bare access loads the member; on non-instances the VM falls
		// back to the built-in method registry.
		c.emit(code.OpClassMember, id, 0)
		return nil
	}

	for _, arg := range node.Arguments {
		err := c.Compile(arg)
		if err != nil {
			return err
		}
	}
	c.emit(code.OpMethod, id, 1, len(node.Arguments))
	return nil
}

func (c *Compiler) compileConstructor(node *ast.Constructor) error {
	switch constructable := node.Constructable.(type) {
	case *ast.Call:
		if err := c.Compile(constructable.Function); err != nil {
			return err
		}
		for _, arg := range constructable.Arguments {
			if err := c.Compile(arg); err != nil {
				return err
			}
		}
		c.emit(code.OpConstructor, len(constructable.Arguments))

	case *ast.Identifier, *ast.Scope:
		if err := c.Compile(node.Constructable); err != nil {
			return err
		}
		c.emit(code.OpConstructor, 0)

	default:
		return fmt.Errorf("cannot construct %s", node.Constructable.String())
	}
	return nil
}

func (c *Compiler) compileClassDecl(node *ast.ClassDecl) error {
	symbol := c.symbolTable.Define(node.Name)

	class := &object.Class{
		Name:    node.Name,
		Fields:  make(map[uint64]object.Object),
		Methods: make(map[uint64]*object.ClassMethod),
	}
	for _, init := range node.Initializers {
		class.Initializers = append(class.Initializers, init.Value)
	}

	// Fields (initializer parameters and declared defaults) compile in a
	// table enclosing the method bodies, so a method's references to them
	// resolve as free variables the VM binds from the instance at dispatch.
	classTable := NewEnclosedSymbolTable(c.symbolTable)
	for _, init := range node.Initializers {
		classTable.Define(init.Value)
	}

	for _, stmt := range node.Body {
		switch stmt := stmt.(type) {
		case *ast.Declaration:
			value, err := literalObject(stmt.Value)
			if err != nil {
				return fmt.Errorf("class %s: %w", node.Name, err)
			}
			class.Fields[object.MethodID(stmt.Name.Value)] = value
			classTable.Define(stmt.Name.Value)

		case *ast.Function:
			method, err := c.compileClassMethod(classTable, stmt)
			if err != nil {
				return err
			}
			class.Methods[object.MethodID(stmt.Name)] = method

		default:
			return fmt.Errorf("class %s: unsupported statement %T in class body", node.Name, stmt)
		}
	}

	c.emit(code.OpConstant, c.addConstant(class))
	c.storeSymbol(symbol)
	return nil
}

// compileClassMethod compiles a method body against the class's field table.
// The field names the body references come back as the scope's free symbols;
// their ids become the method's FieldRefs, bound from the instance at
// dispatch. Anything else free is rejected.
func (c *Compiler) compileClassMethod(classTable *SymbolTable, node *ast.Function) (*object.ClassMethod, error) {
	prevTable := c.symbolTable
	c.symbolTable = classTable
	defer func() { c.symbolTable = prevTable }()

	c.enterScope()
	c.symbolTable.DefineFunctionName(node.Name)
	for _, param := range node.Parameters {
		c.symbolTable.Define(param.Value)
	}

	if err := c.Compile(node.Body); err != nil {
		c.leaveScope()
		return nil, err
	}
	if c.lastInstructionIs(code.OpPop) {
		c.replaceLastPopWithReturn()
	}
	if !c.lastInstructionIs(code.OpReturnValue) {
		c.emit(code.OpReturn)
	}

	freeSymbols := c.symbolTable.FreeSymbols
	numLocals := c.symbolTable.numDefinitions
	instructions := c.leaveScope()

	method := &object.ClassMethod{
		Fn: &object.CompiledFunction{
			Instructions:  instructions,
			NumLocals:     numLocals,
			NumParameters: len(node.Parameters),
		},
	}
	for _, s := range freeSymbols {
		if s.Scope != LocalScope {
			return nil, fmt.Errorf("cannot capture %s in a class method", s.Name)
		}
		method.FieldRefs = append(method.FieldRefs, object.MethodID(s.Name))
	}
	return method, nil
}

// literalObject evaluates a literal expression at compile time. Class field
// defaults are restricted to literals so construction stays a single
// instruction.
func literalObject(node ast.Expression) (object.Object, error) {
	switch node := node.(type) {
	case *ast.IntegerLiteral:
		return &object.Int{Value: node.Value}, nil
	case *ast.FloatLiteral:
		return &object.Float{Value: node.Value}, nil
	case *ast.StringLiteral:
		return &object.Str{Value: node.Value}, nil
	case *ast.CharLiteral:
		return &object.Char{Value: node.Value}, nil
	case *ast.Boolean:
		return &object.Bool{Value: node.Value}, nil
	case *ast.NullLiteral:
		return &object.Null{}, nil
	case *ast.Prefix:
		if node.Operator == "-" {
			inner, err := literalObject(node.Right)
			if err != nil {
				return nil, err
			}
			switch inner := inner.(type) {
			case *object.Int:
				return &object.Int{Value: inner.Value.Neg(inner.Value)}, nil
			case *object.Float:
				return &object.Float{Value: -inner.Value}, nil
			}
		}
	}
	return nil, fmt.Errorf("field initializer must be a literal, got %s", node.String())
}

func (c *Compiler) compileDelete(node *ast.Delete) error {
	symbol, ok := c.symbolTable.Resolve(node.Name.Value)
	if !ok {
		return fmt.Errorf("undefined variable %s", node.Name.Value)
	}
	if symbol.Scope != GlobalScope {
		return fmt.Errorf("cannot delete %s", node.Name.Value)
	}

	c.emit(code.OpDelete, symbol.Index)
	c.symbolTable.Remove(node.Name.Value)
	return nil
}

func (c *Compiler) compileImport(node *ast.Import) error {
	if c.scopeIndex != 0 {
		return fmt.Errorf("import is only allowed at the top level")
	}

	alias := node.Alias
	if alias == "" {
		alias = strings.TrimSuffix(filepath.Base(node.Path), filepath.Ext(node.Path))
	}

	path := node.Path
	if filepath.Ext(path) == "" {
		path += ".panda"
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.importCtx.Root, path)
	}
	canonical, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("cannot resolve import %q: %w", node.Path, err)
	}

	if c.importing[canonical] {
		return fmt.Errorf("circular import of %q", node.Path)
	}
	if mod, ok := c.importCache[canonical]; ok {
		c.modules[alias] = mod
		return nil
	}

	source, err := os.ReadFile(canonical)
	if err != nil {
		return fmt.Errorf("cannot import %q: %w", node.Path, err)
	}

	l := lexer.New(string(source))
	p := parser.New(l)
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		return fmt.Errorf("parse errors in %q: %s", node.Path, strings.Join(errs, "; "))
	}

	// The module's top level compiles into the current instruction stream,
	// its imports resolving relative to its own directory. Its bindings land
	// in the shared globals array and are then hidden behind the alias.
	c.importing[canonical] = true
	prevCtx := c.importCtx
	c.importCtx = ImportContext{Root: filepath.Dir(canonical)}

	compileErr := c.Compile(program)

	c.importCtx = prevCtx
	delete(c.importing, canonical)
	if compileErr != nil {
		return fmt.Errorf("in %q: %w", node.Path, compileErr)
	}

	mod := &module{exports: make(map[string]Symbol)}
	for _, stmt := range program.Statements {
		var name string
		switch stmt := stmt.(type) {
		case *ast.Declaration:
			name = stmt.Name.Value
		case *ast.Function:
			name = stmt.Name
		case *ast.ClassDecl:
			name = stmt.Name
		default:
			continue
		}
		if symbol, ok := c.symbolTable.Resolve(name); ok {
			mod.exports[name] = symbol
			c.symbolTable.forget(name)
		}
	}

	c.importCache[canonical] = mod
	c.modules[alias] = mod
	return nil
}

func (c *Compiler) compileScope(node *ast.Scope) error {
	mod, ok := c.modules[node.Module]
	if !ok {
		return fmt.Errorf("unknown module %s", node.Module)
	}

	switch member := node.Member.(type) {
	case *ast.Identifier:
		symbol, ok := mod.exports[member.Value]
		if !ok {
			return fmt.Errorf("undefined variable %s in module %s", member.Value, node.Module)
		}
		c.loadSymbol(symbol)

	case *ast.Call:
		ident, ok := member.Function.(*ast.Identifier)
		if !ok {
			return fmt.Errorf("cannot call %s in module %s", member.Function.String(), node.Module)
		}
		symbol, ok := mod.exports[ident.Value]
		if !ok {
			return fmt.Errorf("undefined variable %s in module %s", ident.Value, node.Module)
		}
		c.loadSymbol(symbol)
		for _, arg := range member.Arguments {
			if err := c.Compile(arg); err != nil {
				return err
			}
		}
		c.emit(code.OpCall, len(member.Arguments))

	default:
		return fmt.Errorf("cannot access %s in module %s", node.Member.String(), node.Module)
	}
	return nil
}

// addConstant adds a constant value to the constant pool and returns its index.
func (c *Compiler) addConstant(obj object.Object) int {
	c.constants = append(c.constants, obj)
	return len(c.constants) - 1
}

// emit generates a bytecode instruction with the given opcode and operands,
// adds it to the instruction list, and tracks its position.
func (c *Compiler) emit(op code.Opcode, operands ...int) int {
	ins := code.Make(op, operands...)
	pos := c.addInstruction(ins)

	c.setLastInstruction(op, pos)
	return pos
}

// setLastInstruction updates the most recent and the previous instruction metadata within the current compilation scope.
func (c *Compiler) setLastInstruction(op code.Opcode, pos int) {
	previous := c.scopes[c.scopeIndex].lastInstruction
	last := EmittedInstruction{Opcode: op, Position: pos}

	c.scopes[c.scopeIndex].previousInstruction = previous
	c.scopes[c.scopeIndex].lastInstruction = last
}

// addInstruction appends the given bytecode instruction to the current scope's instructions and returns its starting position.
func (c *Compiler) addInstruction(ins []byte) int {
	posNewInstruction := len(c.currentInstructions())
	c.scopes[c.scopeIndex].instructions = append(c.currentInstructions(), ins...)
	return posNewInstruction
}

// Bytecode returns the compiled bytecode containing instructions and constants for a program or function.
func (c *Compiler) Bytecode() *Bytecode {
	return &Bytecode{
		Instructions: c.currentInstructions(),
		Constants:    c.constants,
	}
}

// lastInstructionIs checks if the last emitted instruction is of the given opcode.
func (c *Compiler) lastInstructionIs(op code.Opcode) bool {
	if len(c.currentInstructions()) == 0 {
		return false
	}
	return c.scopes[c.scopeIndex].lastInstruction.Opcode == op
}

// removeLastPop removes the last emitted "pop" instruction from the current compilation scope instructions.
func (c *Compiler) removeLastPop() {
	last := c.scopes[c.scopeIndex].lastInstruction
	previous := c.scopes[c.scopeIndex].previousInstruction

	old := c.currentInstructions()
	newInstruction := old[:last.Position]

	c.scopes[c.scopeIndex].instructions = newInstruction
	c.scopes[c.scopeIndex].lastInstruction = previous
}

// replaceInstruction replaces a sequence of bytecode instructions at the specified position with a new instruction sequence.
func (c *Compiler) replaceInstruction(pos int, newInstruction []byte) {
	ins := c.currentInstructions()

	for i := 0; i < len(newInstruction); i++ {
		ins[pos+i] = newInstruction[i]
	}
}

// changeOperand replaces the operand of an instruction at the specified position with a new provided operand.
func (c *Compiler) changeOperand(opPos int, operand int) {
	op := code.Opcode(c.currentInstructions()[opPos])
	newInstruction := code.Make(op, operand)

	c.replaceInstruction(opPos, newInstruction)
}

// changeJumpEnd back-patches both operands of an OpJumpEnd instruction.
func (c *Compiler) changeJumpEnd(opPos int, jumpPos int, symIndex int) {
	newInstruction := code.Make(code.OpJumpEnd, jumpPos, symIndex)
	c.replaceInstruction(opPos, newInstruction)
}

// currentInstructions retrieves the current compilation scope's bytecode instructions.
func (c *Compiler) currentInstructions() code.Instructions {
	return c.scopes[c.scopeIndex].instructions
}

// enterScope initializes a new compilation scope, updates scope tracking, and creates a new enclosed symbol table.
func (c *Compiler) enterScope() {
	scope := newCompilationScope()
	c.scopes = append(c.scopes, scope)
	c.scopeIndex++
	c.symbolTable = NewEnclosedSymbolTable(c.symbolTable)
}

// leaveScope removes the current compilation scope, updates scope tracking, and restores the outer symbol table.
func (c *Compiler) leaveScope() code.Instructions {
	instructions := c.currentInstructions()
	c.scopes = c.scopes[:len(c.scopes)-1]
	c.scopeIndex--
	c.symbolTable = c.symbolTable.Outer
	return instructions
}

// replaceLastPopWithReturn modifies the last emitted "pop"
// instruction into a "return value" instruction in the current scope.
func (c *Compiler) replaceLastPopWithReturn() {
	lastPos := c.scopes[c.scopeIndex].lastInstruction.Position
	c.replaceInstruction(lastPos, code.Make(code.OpReturnValue))
	c.scopes[c.scopeIndex].lastInstruction.Opcode = code.OpReturnValue
}

// loadSymbol generates bytecode to load the value of a symbol from its associated scope using the symbol's index.
func (c *Compiler) loadSymbol(s Symbol) {
	switch s.Scope {
	case GlobalScope:
		c.emit(code.OpGetGlobal, s.Index)
	case LocalScope:
		c.emit(code.OpGetLocal, s.Index)
	case BuiltinScope:
		c.emit(code.OpGetBuiltin, s.Index)
	case FreeScope:
		c.emit(code.OpGetFree, s.Index)
	case FunctionScope:
		c.emit(code.OpCurrentClosure)
	}
}

// storeSymbol generates bytecode to store the value on top of the stack into
// the symbol's slot.
func (c *Compiler) storeSymbol(s Symbol) {
	if s.Scope == GlobalScope {
		c.emit(code.OpSetGlobal, s.Index)
	} else {
		c.emit(code.OpSetLocal, s.Index)
	}
}
