package compiler

import (
	"bytes"
	"fmt"
)

// ScopeID identifies a SymbolTable inside a SymbolMap.
type ScopeID int

const (
	GlobalScope ScopeID = 0
	NoScope     ScopeID = -1
)

// Ref names a symbol together with the scope that declares it.
type Ref struct {
	Scope ScopeID
	Name  string
}

func (r Ref) String() string {
	return fmt.Sprintf("%s@%d", r.Name, r.Scope)
}

// SymbolTable is a single lexical scope.
type SymbolTable struct {
	Label   string // unique among the scopes of a SymbolMap
	Parent  ScopeID
	Symbols map[string]*Symbol
	order   []string
}

func NewSymbolTable(label string, parent ScopeID) *SymbolTable {
	return &SymbolTable{
		Label:   label,
		Parent:  parent,
		Symbols: make(map[string]*Symbol),
	}
}

// Insert binds name in this scope. A name already bound here is an error
// carrying the prior symbol; the table is left unchanged.
func (st *SymbolTable) Insert(name string, s *Symbol) error {
	if prior, ok := st.Symbols[name]; ok {
		return &AlreadyExistsError{Name: name, Scope: st.Label, New: s, Prior: prior}
	}
	st.Symbols[name] = s
	st.order = append(st.order, name)
	return nil
}

func (st *SymbolTable) Get(name string) (*Symbol, bool) {
	sym, ok := st.Symbols[name]
	return sym, ok
}

// Names returns the bound names in insertion order.
func (st *SymbolTable) Names() []string {
	return append([]string(nil), st.order...)
}

// TempName returns the lowest-numbered temporary (t0, t1, ...) not bound here.
func (st *SymbolTable) TempName() string {
	for id := 0; ; id++ {
		name := fmt.Sprintf("t%d", id)
		if _, ok := st.Symbols[name]; !ok {
			return name
		}
	}
}

func (st *SymbolTable) String() string {
	var out bytes.Buffer
	out.WriteString("Name | Type | Role | Value\n")
	for _, name := range st.order {
		fmt.Fprintf(&out, "%s | %s\n", name, st.Symbols[name])
	}
	return out.String()
}

// SymbolMap is an arena of scopes. Scope 0 is the global scope; every other
// scope names its parent by ID.
type SymbolMap struct {
	Scopes []*SymbolTable
	labels map[string]struct{}
}

func NewSymbolMap() *SymbolMap {
	// entry labels the top-level block
	sm := &SymbolMap{labels: map[string]struct{}{string(EntryBlock): {}}}
	sm.Push("g", NoScope)
	return sm
}

// Push opens a new scope under parent. The label is made unique by suffixing
// the scope ID when needed.
func (sm *SymbolMap) Push(label string, parent ScopeID) ScopeID {
	id := ScopeID(len(sm.Scopes))
	if _, taken := sm.labels[label]; taken {
		label = fmt.Sprintf("%s_%d", label, id)
	}
	sm.labels[label] = struct{}{}
	sm.Scopes = append(sm.Scopes, NewSymbolTable(label, parent))
	return id
}

func (sm *SymbolMap) Scope(id ScopeID) *SymbolTable {
	return sm.Scopes[id]
}

// Get returns the symbol a Ref points at.
func (sm *SymbolMap) Get(r Ref) (*Symbol, bool) {
	if r.Scope < 0 || int(r.Scope) >= len(sm.Scopes) {
		return nil, false
	}
	return sm.Scopes[r.Scope].Get(r.Name)
}

// Lookup resolves name from scope outward through the parent chain.
func (sm *SymbolMap) Lookup(scope ScopeID, name string) (Ref, *Symbol, error) {
	for id := scope; id != NoScope; id = sm.Scopes[id].Parent {
		if sym, ok := sm.Scopes[id].Get(name); ok {
			return Ref{Scope: id, Name: name}, sym, nil
		}
	}
	return Ref{}, nil, &UndefinedError{Name: name, Offset: -1}
}

func (sm *SymbolMap) String() string {
	var out bytes.Buffer
	for id, table := range sm.Scopes {
		fmt.Fprintf(&out, "SCOPE %d %s (parent %d)\n", id, table.Label, table.Parent)
		out.WriteString(table.String())
	}
	return out.String()
}
