package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefine(t *testing.T) {
	expected := map[string]Symbol{
		"a": {Name: "a", Scope: GlobalScope, Index: 0, Mutable: true},
		"b": {Name: "b", Scope: GlobalScope, Index: 1, Mutable: true},
		"c": {Name: "c", Scope: LocalScope, Index: 0, Mutable: true},
		"d": {Name: "d", Scope: LocalScope, Index: 1, Mutable: true},
		"e": {Name: "e", Scope: LocalScope, Index: 0, Mutable: true},
		"f": {Name: "f", Scope: LocalScope, Index: 1, Mutable: true},
	}

	global := NewSymbolTable()
	assert.Equal(t, expected["a"], global.Define("a"))
	assert.Equal(t, expected["b"], global.Define("b"))

	firstLocal := NewEnclosedSymbolTable(global)
	assert.Equal(t, expected["c"], firstLocal.Define("c"))
	assert.Equal(t, expected["d"], firstLocal.Define("d"))

	secondLocal := NewEnclosedSymbolTable(firstLocal)
	assert.Equal(t, expected["e"], secondLocal.Define("e"))
	assert.Equal(t, expected["f"], secondLocal.Define("f"))
}

func TestDefineConst(t *testing.T) {
	global := NewSymbolTable()
	sym := global.DefineConst("pi")

	assert.False(t, sym.Mutable)

	resolved, ok := global.Resolve("pi")
	require.True(t, ok)
	assert.False(t, resolved.Mutable)
}

func TestResolveGlobal(t *testing.T) {
	global := NewSymbolTable()
	global.Define("a")
	global.Define("b")

	expected := []Symbol{
		{Name: "a", Scope: GlobalScope, Index: 0, Mutable: true},
		{Name: "b", Scope: GlobalScope, Index: 1, Mutable: true},
	}

	for _, sym := range expected {
		result, ok := global.Resolve(sym.Name)
		require.True(t, ok, "name %s not resolvable", sym.Name)
		assert.Equal(t, sym, result)
	}
}

func TestResolveLocal(t *testing.T) {
	global := NewSymbolTable()
	global.Define("a")
	global.Define("b")

	local := NewEnclosedSymbolTable(global)
	local.Define("c")
	local.Define("d")

	expected := []Symbol{
		{Name: "a", Scope: GlobalScope, Index: 0, Mutable: true},
		{Name: "b", Scope: GlobalScope, Index: 1, Mutable: true},
		{Name: "c", Scope: LocalScope, Index: 0, Mutable: true},
		{Name: "d", Scope: LocalScope, Index: 1, Mutable: true},
	}

	for _, sym := range expected {
		result, ok := local.Resolve(sym.Name)
		require.True(t, ok, "name %s not resolvable", sym.Name)
		assert.Equal(t, sym, result)
	}
}

func TestResolveFree(t *testing.T) {
	global := NewSymbolTable()
	global.Define("a")
	global.Define("b")

	firstLocal := NewEnclosedSymbolTable(global)
	firstLocal.Define("c")
	firstLocal.Define("d")

	secondLocal := NewEnclosedSymbolTable(firstLocal)
	secondLocal.Define("e")
	secondLocal.Define("f")

	tests := []struct {
		table               *SymbolTable
		expectedSymbols     []Symbol
		expectedFreeSymbols []Symbol
	}{
		{
			firstLocal,
			[]Symbol{
				{Name: "a", Scope: GlobalScope, Index: 0, Mutable: true},
				{Name: "b", Scope: GlobalScope, Index: 1, Mutable: true},
				{Name: "c", Scope: LocalScope, Index: 0, Mutable: true},
				{Name: "d", Scope: LocalScope, Index: 1, Mutable: true},
			},
			[]Symbol{},
		},
		{
			secondLocal,
			[]Symbol{
				{Name: "a", Scope: GlobalScope, Index: 0, Mutable: true},
				{Name: "b", Scope: GlobalScope, Index: 1, Mutable: true},
				{Name: "c", Scope: FreeScope, Index: 0, Mutable: true},
				{Name: "d", Scope: FreeScope, Index: 1, Mutable: true},
				{Name: "e", Scope: LocalScope, Index: 0, Mutable: true},
				{Name: "f", Scope: LocalScope, Index: 1, Mutable: true},
			},
			[]Symbol{
				{Name: "c", Scope: LocalScope, Index: 0, Mutable: true},
				{Name: "d", Scope: LocalScope, Index: 1, Mutable: true},
			},
		},
	}

	for _, tt := range tests {
		for _, sym := range tt.expectedSymbols {
			result, ok := tt.table.Resolve(sym.Name)
			require.True(t, ok, "name %s not resolvable", sym.Name)
			assert.Equal(t, sym, result)
		}

		assert.Equal(t, tt.expectedFreeSymbols, tt.table.FreeSymbols)
	}
}

func TestResolveUnresolvableFree(t *testing.T) {
	global := NewSymbolTable()
	global.Define("a")

	firstLocal := NewEnclosedSymbolTable(global)
	firstLocal.Define("c")

	secondLocal := NewEnclosedSymbolTable(firstLocal)
	secondLocal.Define("e")
	secondLocal.Define("f")

	expected := []Symbol{
		{Name: "a", Scope: GlobalScope, Index: 0, Mutable: true},
		{Name: "c", Scope: FreeScope, Index: 0, Mutable: true},
		{Name: "e", Scope: LocalScope, Index: 0, Mutable: true},
		{Name: "f", Scope: LocalScope, Index: 1, Mutable: true},
	}

	for _, sym := range expected {
		result, ok := secondLocal.Resolve(sym.Name)
		require.True(t, ok, "name %s not resolvable", sym.Name)
		assert.Equal(t, sym, result)
	}

	for _, name := range []string{"b", "d"} {
		_, ok := secondLocal.Resolve(name)
		assert.False(t, ok, "name %s resolved, but was expected not to", name)
	}
}

func TestDefineAndResolveBuiltins(t *testing.T) {
	global := NewSymbolTable()
	firstLocal := NewEnclosedSymbolTable(global)
	secondLocal := NewEnclosedSymbolTable(firstLocal)

	expected := []Symbol{
		{Name: "a", Scope: BuiltinScope, Index: 0},
		{Name: "c", Scope: BuiltinScope, Index: 1},
		{Name: "e", Scope: BuiltinScope, Index: 2},
		{Name: "f", Scope: BuiltinScope, Index: 3},
	}

	for i, v := range expected {
		global.DefineBuiltin(i, v.Name)
	}

	for _, table := range []*SymbolTable{global, firstLocal, secondLocal} {
		for _, sym := range expected {
			result, ok := table.Resolve(sym.Name)
			require.True(t, ok, "name %s not resolvable", sym.Name)
			assert.Equal(t, sym, result)
		}
	}
}

func TestDefineAndResolveFunctionName(t *testing.T) {
	global := NewSymbolTable()
	global.DefineFunctionName("a")

	expected := Symbol{Name: "a", Scope: FunctionScope, Index: 0}

	result, ok := global.Resolve(expected.Name)
	require.True(t, ok)
	assert.Equal(t, expected, result)
}

func TestShadowingFunctionName(t *testing.T) {
	global := NewSymbolTable()
	global.DefineFunctionName("a")
	global.Define("a")

	expected := Symbol{Name: "a", Scope: GlobalScope, Index: 0, Mutable: true}

	result, ok := global.Resolve(expected.Name)
	require.True(t, ok)
	assert.Equal(t, expected, result)
}

func TestRemoveCompactsIndices(t *testing.T) {
	global := NewSymbolTable()
	global.Define("a")
	global.Define("b")
	global.Define("c")

	global.Remove("b")

	_, ok := global.Resolve("b")
	assert.False(t, ok)

	c, ok := global.Resolve("c")
	require.True(t, ok)
	assert.Equal(t, 1, c.Index)

	// The freed slot is reused by the next definition.
	d := global.Define("d")
	assert.Equal(t, 2, d.Index)
}
