package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name string
		want Type
		ok   bool
	}{
		{"int", Integer, true},
		{"long", Long, true},
		{"void", Nothing, true},
		{"string", Ptr{Elem: Char}, true},
		{"*char", Ptr{Elem: Char}, true},
		{"**int", Ptr{Elem: Ptr{Elem: Integer}}, true},
		{"float", nil, false},
		{"*float", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Lookup(tt.name)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReservedNames(t *testing.T) {
	for _, name := range ReservedTypeNames() {
		assert.True(t, IsReservedTypeName(name), name)
	}
	assert.False(t, IsReservedTypeName("main"))

	names := ReservedTypeNames()
	names[0] = "changed"
	assert.Equal(t, "char", ReservedTypeNames()[0])
}

func TestFuncString(t *testing.T) {
	f := Func{Ret: Integer, Name: "add", Params: []Type{Integer, Long}}
	assert.Equal(t, "int add(int, long)", f.String())
	assert.Equal(t, FuncKind, f.Kind())
	assert.Equal(t, "void main()", Func{Ret: Nothing, Name: "main"}.String())
}

func TestForInt(t *testing.T) {
	assert.Equal(t, Integer, ForInt(0))
	assert.Equal(t, Integer, ForInt(-1<<31))
	assert.Equal(t, Long, ForInt(1<<31))
	assert.Equal(t, Long, ForInt(-1<<40))
}
