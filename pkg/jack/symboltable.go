package jack

import (
	"fmt"

	"hackstack.dev/n2t/pkg/vm"
)

// ----------------------------------------------------------------------------
// Symbol Table

// SymbolTable tracks the variables visible at a given point of the compilation.
//
// It's really two scopes stacked on top of each other: a class-level scope (holding
// 'static' and 'field' variables, alive for the whole class) and a subroutine-level
// scope (holding 'argument' and 'local' variables, alive for a single subroutine).
// Lookups always try the subroutine scope first, falling back to the class scope,
// mirroring the shadowing rules of the language.
type SymbolTable struct {
	class      map[string]Variable
	subroutine map[string]Variable

	nStatic, nField uint16
	nArg, nLocal    uint16
}

// Initializes and returns to the caller a brand new, empty 'SymbolTable'.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		class:      map[string]Variable{},
		subroutine: map[string]Variable{},
	}
}

// Discards every subroutine-level entry accumulated so far, resetting the
// argument/local counters. Called once per subroutine, right before its
// parameter list is compiled. Class-level entries are left untouched.
func (st *SymbolTable) StartSubroutine() {
	st.subroutine = map[string]Variable{}
	st.nArg, st.nLocal = 0, 0
}

// Adds a new variable to the table, assigning it the next free index in the
// segment its 'kind' maps to, and returns the freshly built 'Variable'.
//
// 'Static' and 'Field' entries land in the class scope, 'Parameter' and 'Local'
// entries land in the subroutine scope, matching the language's declaration forms.
func (st *SymbolTable) Define(name string, dtype DataType, kind VarType) Variable {
	var v Variable

	switch kind {
	case Static:
		v = Variable{Name: name, Type: kind, DataType: dtype, Index: st.nStatic}
		st.nStatic++
		st.class[name] = v
	case Field:
		v = Variable{Name: name, Type: kind, DataType: dtype, Index: st.nField}
		st.nField++
		st.class[name] = v
	case Parameter:
		v = Variable{Name: name, Type: kind, DataType: dtype, Index: st.nArg}
		st.nArg++
		st.subroutine[name] = v
	case Local:
		v = Variable{Name: name, Type: kind, DataType: dtype, Index: st.nLocal}
		st.nLocal++
		st.subroutine[name] = v
	}

	return v
}

// Looks up 'name' in the subroutine scope first, then the class scope.
// Returns the found 'Variable' and true, or a zero Variable and false.
func (st *SymbolTable) Resolve(name string) (Variable, bool) {
	if v, found := st.subroutine[name]; found {
		return v, true
	}
	if v, found := st.class[name]; found {
		return v, true
	}
	return Variable{}, false
}

// The number of instance fields defined on the class so far, used by the
// Compiler to size the 'constructor's allocation call.
func (st *SymbolTable) FieldCount() uint16 {
	return st.nField
}

// The number of local variables defined on the current subroutine so far, used
// by the Compiler to size the subroutine's 'function' preamble.
func (st *SymbolTable) LocalCount() uint16 {
	return st.nLocal
}

// Segment maps a Variable's declaration kind to the VM memory segment backing it.
// 'This' is only meaningful inside a method/constructor body, where the Compiler
// has already pushed the object reference into the 'pointer 0' segment.
func (v Variable) Segment() (vm.SegmentType, error) {
	switch v.Type {
	case Static:
		return vm.Static, nil
	case Field:
		return vm.This, nil
	case Parameter:
		return vm.Argument, nil
	case Local:
		return vm.Local, nil
	default:
		return "", fmt.Errorf("unrecognized variable kind '%s'", v.Type)
	}
}
