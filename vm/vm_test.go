package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dr8co/panda/ast"
	"github.com/dr8co/panda/compiler"
	"github.com/dr8co/panda/lexer"
	"github.com/dr8co/panda/object"
	"github.com/dr8co/panda/parser"
)

func parse(input string) *ast.Program {
	l := lexer.New(input)
	p := parser.New(l)
	return p.ParseProgram()
}

type vmTestCase struct {
	input    string
	expected any
}

// errValue marks an expectation as an Error object on the stack rather than
// a halted machine.
type errValue string

func runVmTests(t *testing.T, tests []vmTestCase) {
	t.Helper()

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			program := parse(tt.input)

			comp := compiler.New()
			err := comp.Compile(program)
			require.NoError(t, err)

			machine := New(comp.Bytecode())
			err = machine.Run()
			require.NoError(t, err)

			testExpectedObject(t, tt.expected, machine.LastPoppedStackElem())
		})
	}
}

func runVmErrorTests(t *testing.T, tests []vmTestCase) {
	t.Helper()

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			program := parse(tt.input)

			comp := compiler.New()
			err := comp.Compile(program)
			require.NoError(t, err)

			machine := New(comp.Bytecode())
			err = machine.Run()
			require.Error(t, err)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func testExpectedObject(t *testing.T, expected any, actual object.Object) {
	t.Helper()

	switch expected := expected.(type) {
	case int:
		testIntObject(t, int64(expected), actual)
	case float64:
		result, ok := actual.(*object.Float)
		require.True(t, ok, "object is not *object.Float, got %T (%+v)", actual, actual)
		assert.InDelta(t, expected, result.Value, 1e-9)
	case bool:
		result, ok := actual.(*object.Bool)
		require.True(t, ok, "object is not *object.Bool, got %T (%+v)", actual, actual)
		assert.Equal(t, expected, result.Value)
	case string:
		result, ok := actual.(*object.Str)
		require.True(t, ok, "object is not *object.Str, got %T (%+v)", actual, actual)
		assert.Equal(t, expected, result.Value)
	case rune:
		result, ok := actual.(*object.Char)
		require.True(t, ok, "object is not *object.Char, got %T (%+v)", actual, actual)
		assert.Equal(t, expected, result.Value)
	case []int:
		result, ok := actual.(*object.Array)
		require.True(t, ok, "object is not *object.Array, got %T (%+v)", actual, actual)
		require.Len(t, result.Elements, len(expected))
		for i, e := range expected {
			testIntObject(t, int64(e), result.Elements[i])
		}
	case errValue:
		result, ok := actual.(*object.Error)
		require.True(t, ok, "object is not *object.Error, got %T (%+v)", actual, actual)
		assert.Equal(t, string(expected), result.Message)
	case nil:
		_, ok := actual.(*object.Null)
		require.True(t, ok, "object is not *object.Null, got %T (%+v)", actual, actual)
	default:
		t.Fatalf("unhandled expectation type %T", expected)
	}
}

func testIntObject(t *testing.T, expected int64, actual object.Object) {
	t.Helper()
	result, ok := actual.(*object.Int)
	require.True(t, ok, "object is not *object.Int, got %T (%+v)", actual, actual)
	assert.Equal(t, expected, result.Value.Int64())
}

func TestIntegerArithmetic(t *testing.T) {
	runVmTests(t, []vmTestCase{
		{"1", 1},
		{"2", 2},
		{"1 + 2", 3},
		{"1 - 2", -1},
		{"1 * 2", 2},
		{"4 / 2", 2},
		{"7 / 2", 3},
		{"-7 / 2", -3},
		{"7 % 3", 1},
		{"-7 % 3", -1},
		{"5 + 2 * 10", 25},
		{"50 / 2 * 2 + 10 - 5", 55},
		{"5 * (2 + 10)", 60},
		{"-5", -5},
		{"-10 + 20", 10},
		{"6 ^ 3", 5},
		{"6 & 3", 2},
		{"6 | 3", 7},
		{"8 >> 2", 2},
		{"2 << 3", 16},
	})
}

func TestFloatArithmetic(t *testing.T) {
	runVmTests(t, []vmTestCase{
		{"1.5", 1.5},
		{"1.5 + 2.5", 4.0},
		{"3.0 - 1.5", 1.5},
		{"2.0 * 2.5", 5.0},
		{"5.0 / 2.0", 2.5},
		{"-1.5", -1.5},
	})
}

func TestBooleanExpressions(t *testing.T) {
	runVmTests(t, []vmTestCase{
		{"true", true},
		{"false", false},
		{"1 < 2", true},
		{"1 > 2", false},
		{"1 <= 1", true},
		{"2 >= 3", false},
		{"1 == 1", true},
		{"1 != 1", false},
		{"1.5 == 1.5", true},
		{"1.5 > 1.4", true},
		{"'a' < 'b'", true},
		{"'a' == 'a'", true},
		{"true == true", true},
		{"true != false", true},
		{`"a" == "a"`, true},
		{`"a" == "b"`, false},
		// Unequal kinds are unequal, not an error.
		{"1 == true", false},
		{`1 != "1"`, true},
		{"!true", false},
		{"!5", false},
		{"!!5", true},
		{"!0", true},
		{`!""`, true},
	})
}

func TestBooleanOperators(t *testing.T) {
	runVmTests(t, []vmTestCase{
		{"true && true", true},
		{"true && false", false},
		{"false || true", true},
		{"false || false", false},
		// && and || yield the deciding operand, not a coerced boolean.
		{"1 && 2", 2},
		{"0 && 2", 0},
		{"0 || 3", 3},
		{"4 || 3", 4},
		{"null && 1", nil},
		{"null || 1", 1},
	})
}

func TestConditionals(t *testing.T) {
	runVmTests(t, []vmTestCase{
		{"if (true) { 10 }", 10},
		{"if (true) { 10 } else { 20 }", 10},
		{"if (false) { 10 } else { 20 }", 20},
		{"if (1) { 10 }", 10},
		{"if (1 < 2) { 10 }", 10},
		{"if (1 > 2) { 10 }", nil},
		{"if (false) { 10 }", nil},
		{"if (1 < 2) { 10 } else if (1 == 2) { 20 } else { 30 }", 10},
		{"if (2 < 2) { 10 } else if (2 == 2) { 20 } else { 30 }", 20},
		{"if (3 < 2) { 10 } else if (3 == 2) { 20 } else { 30 }", 30},
		{"if ((if (false) { 10 })) { 10 } else { 20 }", 20},
	})
}

func TestGlobalDeclarations(t *testing.T) {
	runVmTests(t, []vmTestCase{
		{"var one = 1; one", 1},
		{"var one = 1; var two = 2; one + two", 3},
		{"var one = 1; var two = one + one; one + two", 3},
		{"var a = 5; var b = a * 2; b", 10},
		{"const pi = 3; pi", 3},
		{"var x = 1; x = x + 1; x", 2},
	})
}

func TestDeleteStatements(t *testing.T) {
	runVmTests(t, []vmTestCase{
		{"var a = 5; delete a", 5},
		{"var a = 1; delete a; var b = 2; b", 2},
	})
}

func TestStringAndCharExpressions(t *testing.T) {
	runVmTests(t, []vmTestCase{
		{`"panda"`, "panda"},
		{`"pan" + "da"`, "panda"},
		{`"pan" + "da" + "!"`, "panda!"},
		{`'a'`, 'a'},
		{`'a' + 'b'`, "ab"},
		{`"ab" + 'c'`, "abc"},
		{`"héllo"[1]`, 'é'},
		{`"hello"[0]`, 'h'},
	})
}

func TestArrayLiterals(t *testing.T) {
	runVmTests(t, []vmTestCase{
		{"[]", []int{}},
		{"[1, 2, 3]", []int{1, 2, 3}},
		{"[1 + 2, 3 * 4, 5 + 6]", []int{3, 12, 11}},
	})
}

func TestHashLiterals(t *testing.T) {
	runVmTests(t, []vmTestCase{
		{`{"a": 1, "b": 2}["b"]`, 2},
		{"{1: 1, 2: 2}[1]", 1},
		{"{1 + 1: 2 * 2}[2]", 4},
		{"{true: 5}[true]", 5},
		{"{'a': 7}['a']", 7},
	})
}

func TestIndexExpressions(t *testing.T) {
	runVmTests(t, []vmTestCase{
		{"[1, 2, 3][1]", 2},
		{"[[1, 1, 1]][0][0]", 1},
		{"var arr = [1, 2, 3]; arr[0] + arr[2]", 4},
		{"var a = [1, 2, 3]; a[1] = 9; a[1]", 9},
		{`var h = {"a": 1}; h["b"] = 2; h["b"]`, 2},
	})
}

func TestSliceExpressions(t *testing.T) {
	runVmTests(t, []vmTestCase{
		{"[1, 2, 3, 4][1..3]", []int{2, 3}},
		{"[1, 2, 3, 4][0..3..2]", []int{1, 3}},
		{"[1, 2, 3, 4][2..2]", []int{}},
		{`"hello"[0..4]`, "hell"},
		{`"hello"[1..4..2]`, "el"},
	})
}

func TestRanges(t *testing.T) {
	runVmTests(t, []vmTestCase{
		{"var sum = 0; for (i in 0..5) { sum = sum + i }; sum", 10},
		{"var sum = 0; for (i in 0..10..2) { sum = sum + i }; sum", 20},
		{"var n = 0; for (i in 5..0) { n = n + 1 }; n", 5},
		// A range whose step points away from stop is empty.
		{"var n = 0; for (i in 0..5..-1) { n = n + 1 }; n", 0},
	})
}

func TestWhileLoops(t *testing.T) {
	runVmTests(t, []vmTestCase{
		{"var i = 0; while (i < 5) { i = i + 1; } i", 5},
		{"var s = 0; var i = 0; while (i < 4) { i = i + 1; s = s + i; } s", 10},
		{"var x = 0; while (true) { x = x + 1; if (x > 2) { break; } } x", 3},
		{"var s = 0; var i = 0; while (i < 5) { i = i + 1; if (i == 3) { continue; } s = s + i; } s", 12},
	})
}

func TestForLoops(t *testing.T) {
	runVmTests(t, []vmTestCase{
		{"var sum = 0; for (x in [1, 2, 3]) { sum = sum + x } sum", 6},
		{`var s = ""; for (c in "abc") { s = s + c } s`, "abc"},
		{`var ks = ""; for (p in {"a": 1, "b": 2}) { ks = ks + p[0] } ks`, "ab"},
		{"var sum = 0; for (i in 0..10) { if (i == 3) { break; } sum = sum + i; } sum", 3},
		{"var sum = 0; for (i in 0..5) { if (i == 2) { continue; } sum = sum + i; } sum", 8},
	})
}

func TestForLoopVariableScope(t *testing.T) {
	// The loop variable is not visible after the loop.
	program := parse("for (i in 0..3) { i } i")

	comp := compiler.New()
	err := comp.Compile(program)
	require.Error(t, err)
	assert.Equal(t, "undefined variable i", err.Error())
}

func TestFunctionCalls(t *testing.T) {
	runVmTests(t, []vmTestCase{
		{"var fivePlusTen = fn() { 5 + 10 }; fivePlusTen()", 15},
		{"var one = fn() { 1 }; var two = fn() { 2 }; one() + two()", 3},
		{"var a = fn() { 1 }; var b = fn() { a() + 1 }; var c = fn() { b() + 1 }; c()", 3},
		{"var earlyExit = fn() { return 99; 100 }; earlyExit()", 99},
		{"var noReturn = fn() { }; noReturn()", nil},
		{"var identity = fn(a) { a }; identity(4)", 4},
		{"var sum = fn(a, b) { a + b }; sum(1, 2)", 3},
		{"var sum = fn(a, b) { var c = a + b; c }; sum(1, 2) + sum(3, 4)", 10},
		{"fn add(a, b) { a + b } add(2, 3)", 5},
		{"var g = 10; var f = fn(a) { a + g }; f(5)", 15},
	})
}

func TestClosures(t *testing.T) {
	runVmTests(t, []vmTestCase{
		{"var addTwo = fn(x) { fn(y) { x + y } }(2); addTwo(3)", 5},
		{"var newAdder = fn(a, b) { fn(c) { a + b + c } }; var adder = newAdder(1, 2); adder(8)", 11},
		{
			`var newAdderOuter = fn(a, b) {
				var c = a + b;
				fn(d) {
					var e = d + c;
					fn(f) { e + f }
				}
			};
			var newAdderInner = newAdderOuter(1, 2);
			var adder = newAdderInner(3);
			adder(8)`,
			14,
		},
		{
			`var wrapper = fn() {
				var countDown = fn(x) {
					if (x == 0) { return 0 } else { countDown(x - 1) }
				};
				countDown(2)
			};
			wrapper()`,
			0,
		},
	})
}

func TestBuiltinFunctions(t *testing.T) {
	runVmTests(t, []vmTestCase{
		{`len("")`, 0},
		{`len("four")`, 4},
		{"len([1, 2, 3])", 3},
		{"first([1, 2, 3])", 1},
		{"last([1, 2, 3])", 3},
		{"rest([1, 2, 3])", []int{2, 3}},
		{"push([1], 2)", []int{1, 2}},
		{"first([])", nil},
	})
}

func TestBuiltinMethods(t *testing.T) {
	runVmTests(t, []vmTestCase{
		{"[1, 2, 3].len()", 3},
		{"[1, 2, 3].first", 1},
		{"[1, 2, 3].last", 3},
		{"[1, 2, 3].rest()", []int{2, 3}},
		{"var a = [1, 2]; a.push(3); a.len()", 3},
		{"var a = [1, 2, 3]; a.pop(); a.len()", 2},
		{"[1, 2, 3].contains(2)", true},
		{"[1, 2, 3].contains(5)", false},
		{`"hello".len()`, 5},
		{`"héllo".len()`, 5},
		{`"hello".first`, 'h'},
		{`"hello".contains("ell")`, true},
		{`"hello".contains('z')`, false},
		{`{"a": 1, "b": 2}.len()`, 2},
		{`{"a": 1, "b": 2}.contains("a")`, true},
		{`{"a": 1}.values()`, []int{1}},
		{"5.to_str()", "5"},
		{"'a'.to_int()", 97},
		{"true.to_int()", 1},
		{"3.0.to_int()", 3},
	})
}

func TestClasses(t *testing.T) {
	runVmTests(t, []vmTestCase{
		{
			`class(x, y) Point { fn sum() { x + y } }
			var p = new Point(1, 2);
			p.sum()`,
			3,
		},
		{
			`class(x, y) Point { }
			var p = new Point(3, 4);
			p.x + p.y`,
			7,
		},
		{
			`class() Box { var v = 42; fn get() { v } }
			var b = new Box;
			b.get()`,
			42,
		},
		{
			`class() Box { var v = 42; }
			var b = new Box;
			b.v = 7;
			b.v`,
			7,
		},
		{
			`class() Box { var v = 1; fn get() { v } }
			var b = new Box;
			b.v = 9;
			b.get()`,
			9,
		},
		{
			`class(n) Counter { fn next() { n + 1 } }
			var a = new Counter(1);
			var b = new Counter(10);
			a.next() + b.next()`,
			13,
		},
	})
}

func TestRuntimeErrors(t *testing.T) {
	runVmErrorTests(t, []vmTestCase{
		{"5 + true", "unsupported types for binary operation: INT + BOOL"},
		{`5 - "x"`, "unsupported types for binary operation: INT - STR"},
		{"-true", "unsupported type for negation: BOOL"},
		{"5 / 0", "division by zero"},
		{"5 % 0", "division by zero"},
		{"true > false", "unknown operator: > (BOOL BOOL)"},
		{"1()", "calling non-function and non-builtin: INT"},
		{"fn(a) { a }(1, 2)", "wrong number of arguments. got: 2, want: 1"},
		{"[1, 2, 3][3]", "index out of bounds. got: 3, max: 2"},
		{"[1][-1]", "index out of bounds. got: -1, max: 0"},
		{`"hi"[5]`, "index out of bounds. got: 5, max: 1"},
		{`{"a": 1}["b"]`, "key error: no entry found for key 'b'"},
		{"{}[[]]", "unusable as hash key: ARRAY"},
		{"{[]: 1}", "unusable as hash key: ARRAY"},
		{"5[0]", "index operator not supported: INT[INT]"},
		{"[1, 2, 3][0..5]", "cannot slice ARRAY using this range"},
		{"for (x in 5) { }", "INT is not iterable"},
		{"var f = fn() { f() }; f()", "stack overflow"},
		{
			`class() Box { } var b = new Box; b.missing`,
			"Box has no property 'missing'",
		},
		{
			`class() Box { } var b = new Box; b.frob()`,
			"Box has no method 'frob'",
		},
		{
			`class(x) Point { } new Point(1, 2)`,
			"wrong number of arguments. got: 2, want: 1",
		},
	})
}

func TestMethodErrorsAreValues(t *testing.T) {
	// A failed built-in method call pushes an Error value; it does not halt
	// the machine.
	runVmTests(t, []vmTestCase{
		{"[1].foo()", errValue("ARRAY has no method 'foo'")},
		{"[1, 2].set(9, 0)", errValue("index out of bounds. got: 9, max: 1")},
	})
}

func TestLastPoppedAfterDiscard(t *testing.T) {
	// A trailing semicolon discards the statement's value for good.
	program := parse("5;")

	comp := compiler.New()
	require.NoError(t, comp.Compile(program))

	machine := New(comp.Bytecode())
	require.NoError(t, machine.Run())
	assert.Nil(t, machine.LastPoppedStackElem())
}

func TestGlobalsSurviveAcrossRuns(t *testing.T) {
	// The REPL reuses the symbol table, constants, and globals between
	// submissions.
	symbolTable := compiler.NewSymbolTable()
	for i, v := range object.Builtins {
		symbolTable.DefineBuiltin(i, v.Name)
	}
	constants := []object.Object{}
	globals := make([]object.Object, 0, GlobalSize)

	run := func(input string) object.Object {
		program := parse(input)
		comp := compiler.NewWithState(compiler.ImportContext{Root: "."}, symbolTable, constants)
		require.NoError(t, comp.Compile(program))

		bytecode := comp.Bytecode()
		constants = bytecode.Constants

		machine := NewWithState(bytecode, globals)
		require.NoError(t, machine.Run())
		globals = machine.GetGlobals()
		return machine.LastPoppedStackElem()
	}

	run("var a = 40;")
	result := run("a + 2")
	testIntObject(t, 42, result)
}
