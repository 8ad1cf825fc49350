package jack_test

import (
	"testing"

	"hackstack.dev/n2t/pkg/jack"
)

func TestSymbolTableClassScope(t *testing.T) {
	test := func(st *jack.SymbolTable, lookup string, expected jack.Variable, fail bool) {
		v, found := st.Resolve(lookup)
		if found == fail {
			t.Errorf("resolving '%s': expected found=%v, got %v", lookup, !fail, found)
		}
		if found && v != expected {
			t.Errorf("resolving '%s': expected %+v, got %+v", lookup, expected, v)
		}
	}

	t.Run("Static and field indices are dense and independent", func(t *testing.T) {
		st := jack.NewSymbolTable()

		st.Define("a", jack.DataType{Main: jack.Int}, jack.Field)
		st.Define("b", jack.DataType{Main: jack.String}, jack.Static)
		st.Define("c", jack.DataType{Main: jack.Char}, jack.Field)
		st.Define("d", jack.DataType{Main: jack.Bool}, jack.Static)

		test(st, "a", jack.Variable{Name: "a", Type: jack.Field, DataType: jack.DataType{Main: jack.Int}, Index: 0}, false)
		test(st, "b", jack.Variable{Name: "b", Type: jack.Static, DataType: jack.DataType{Main: jack.String}, Index: 0}, false)
		test(st, "c", jack.Variable{Name: "c", Type: jack.Field, DataType: jack.DataType{Main: jack.Char}, Index: 1}, false)
		test(st, "d", jack.Variable{Name: "d", Type: jack.Static, DataType: jack.DataType{Main: jack.Bool}, Index: 1}, false)

		test(st, "missing", jack.Variable{}, true)

		if st.FieldCount() != 2 {
			t.Errorf("expected FieldCount() == 2, got %d", st.FieldCount())
		}
	})
}

func TestSymbolTableSubroutineScope(t *testing.T) {
	test := func(st *jack.SymbolTable, lookup string, expected jack.Variable, fail bool) {
		v, found := st.Resolve(lookup)
		if found == fail {
			t.Errorf("resolving '%s': expected found=%v, got %v", lookup, !fail, found)
		}
		if found && v != expected {
			t.Errorf("resolving '%s': expected %+v, got %+v", lookup, expected, v)
		}
	}

	t.Run("Subroutine scope shadows class scope", func(t *testing.T) {
		st := jack.NewSymbolTable()
		st.Define("x", jack.DataType{Main: jack.Int}, jack.Field)

		st.StartSubroutine()
		st.Define("this", jack.DataType{Main: jack.Object, Subtype: "Foo"}, jack.Parameter)
		st.Define("x", jack.DataType{Main: jack.Bool}, jack.Local)

		test(st, "x", jack.Variable{Name: "x", Type: jack.Local, DataType: jack.DataType{Main: jack.Bool}, Index: 0}, false)
		test(st, "this", jack.Variable{Name: "this", Type: jack.Parameter, DataType: jack.DataType{Main: jack.Object, Subtype: "Foo"}, Index: 0}, false)

		if st.LocalCount() != 1 {
			t.Errorf("expected LocalCount() == 1, got %d", st.LocalCount())
		}
	})

	t.Run("StartSubroutine resets local/argument counters but keeps class scope", func(t *testing.T) {
		st := jack.NewSymbolTable()
		st.Define("field1", jack.DataType{Main: jack.Int}, jack.Field)

		st.StartSubroutine()
		st.Define("p", jack.DataType{Main: jack.Int}, jack.Parameter)
		st.Define("l", jack.DataType{Main: jack.Int}, jack.Local)

		st.StartSubroutine()
		test(st, "p", jack.Variable{}, true)
		test(st, "l", jack.Variable{}, true)
		test(st, "field1", jack.Variable{Name: "field1", Type: jack.Field, DataType: jack.DataType{Main: jack.Int}, Index: 0}, false)

		if st.LocalCount() != 0 {
			t.Errorf("expected LocalCount() == 0 after reset, got %d", st.LocalCount())
		}
	})
}

func TestVariableSegment(t *testing.T) {
	test := func(kind jack.VarType, fail bool) {
		v := jack.Variable{Type: kind}
		_, err := v.Segment()
		if (err != nil) != fail {
			t.Errorf("Segment() for kind '%s': expected err!=nil to be %v, got %v", kind, fail, err != nil)
		}
	}

	test(jack.Static, false)
	test(jack.Field, false)
	test(jack.Parameter, false)
	test(jack.Local, false)
	test(jack.VarType("bogus"), true)
}
