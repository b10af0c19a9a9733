package compiler

// SymbolScope represents the scope of a symbol within a program, such as global, local, builtin, free, or function.
type SymbolScope string

const (
	// GlobalScope represents the global scope of symbols, typically defining symbols accessible throughout the program.
	GlobalScope SymbolScope = "GLOBAL"

	// LocalScope defines the symbol scope for variables declared within a local function or block.
	LocalScope SymbolScope = "LOCAL"

	// BuiltinScope represents the scope used for predefined or built-in symbols in the program.
	BuiltinScope SymbolScope = "BUILTIN"

	// FreeScope represents the symbol scope for variables that are free,
	// i.e., not locally defined but referenced in a nested context.
	FreeScope SymbolScope = "FREE"

	// FunctionScope marks the name of the function being compiled, bound
	// inside its own body so the function can refer to itself.
	FunctionScope SymbolScope = "FUNCTION"
)

// Symbol represents a named entity within a specific scope and its associated index in the symbol table.
type Symbol struct {
	// The name of the symbol.
	Name string

	// The scope of the symbol.
	Scope SymbolScope

	// The position of the symbol within its respective scope or table.
	Index int

	// Mutable is false for symbols bound by `const`; the compiler rejects any
	// assignment to them with "cannot reassign const <name>".
	Mutable bool
}

// SymbolTable manages variable bindings, symbol definition, and resolution within nested or global scopes.
type SymbolTable struct {
	// Outer represents the parent symbol table, allowing nested scopes to resolve symbols defined in enclosing contexts.
	Outer *SymbolTable

	// store is a map that holds symbol definitions, associating their names with their Symbol metadata.
	store map[string]Symbol

	// numDefinitions tracks the number of symbols defined in the symbol table.
	numDefinitions int

	// FreeSymbols holds a collection of symbols that are referenced but not defined in the current scope,
	// resolved to outer scopes. Order matches the order of first reference from the inner scope.
	FreeSymbols []Symbol
}

// NewSymbolTable creates a new symbol table with an empty symbol store.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		store:       make(map[string]Symbol),
		FreeSymbols: []Symbol{},
	}
}

// NewEnclosedSymbolTable creates a new symbol table with its outer field set to the provided enclosing symbol table.
func NewEnclosedSymbolTable(outer *SymbolTable) *SymbolTable {
	s := NewSymbolTable()
	s.Outer = outer
	return s
}

// Define adds a new mutable ("var") symbol with the given name to the symbol
// table and assigns it a scope and index: Global at depth 0, Local otherwise.
func (s *SymbolTable) Define(name string) Symbol {
	symbol := Symbol{Name: name, Index: s.numDefinitions, Mutable: true}
	if s.Outer == nil {
		symbol.Scope = GlobalScope
	} else {
		symbol.Scope = LocalScope
	}

	s.store[name] = symbol
	s.numDefinitions++
	return symbol
}

// DefineConst adds a new immutable ("const") symbol, identical to [Define]
// except that assigning to it later is a compile error.
func (s *SymbolTable) DefineConst(name string) Symbol {
	symbol := s.Define(name)
	symbol.Mutable = false
	s.store[name] = symbol
	return symbol
}

// Resolve looks up a symbol by name in the current symbol table and, if not found, in enclosing scopes recursively.
// A name found as Local or Free in an enclosing function's table is promoted to a Free
// symbol in the current (innermost) table.
func (s *SymbolTable) Resolve(name string) (Symbol, bool) {
	obj, ok := s.store[name]
	if !ok && s.Outer != nil {
		obj, ok = s.Outer.Resolve(name)
		if ok {
			if obj.Scope != GlobalScope && obj.Scope != BuiltinScope {
				free := s.defineFree(obj)
				return free, true
			}
		}
	}
	return obj, ok
}

// DefineBuiltin adds a symbol with a built-in scope to the symbol table using the given index and name.
func (s *SymbolTable) DefineBuiltin(index int, name string) Symbol {
	symbol := Symbol{Name: name, Index: index, Scope: BuiltinScope}
	s.store[name] = symbol
	return symbol
}

// defineFree adds a free symbol to the FreeSymbols collection and assigns it a FreeScope with a new index.
func (s *SymbolTable) defineFree(original Symbol) Symbol {
	s.FreeSymbols = append(s.FreeSymbols, original)
	symbol := Symbol{Name: original.Name, Index: len(s.FreeSymbols) - 1, Mutable: original.Mutable}

	symbol.Scope = FreeScope
	s.store[original.Name] = symbol

	return symbol
}

// Remove deletes a symbol from this table and compacts the indices of the
// symbols defined after it, mirroring the VM's shifting removal from the
// globals array on OpDelete and OpJumpEnd.
func (s *SymbolTable) Remove(name string) {
	removed, ok := s.store[name]
	if !ok {
		return
	}
	delete(s.store, name)
	s.numDefinitions--

	for n, sym := range s.store {
		if sym.Scope == removed.Scope && sym.Index > removed.Index {
			sym.Index--
			s.store[n] = sym
		}
	}
}

// forget drops a name from the table without releasing its index. Used by
// the importer to hide a module's top-level bindings behind its alias while
// keeping their global slots valid.
func (s *SymbolTable) forget(name string) {
	delete(s.store, name)
}

// DefineFunctionName defines a symbol with function scope and index 0,
// storing it in the symbol table by the given name. This lets a named
// function literal reference itself for recursion.
func (s *SymbolTable) DefineFunctionName(name string) Symbol {
	symbol := Symbol{Name: name, Index: 0, Scope: FunctionScope}
	s.store[name] = symbol
	return symbol
}
