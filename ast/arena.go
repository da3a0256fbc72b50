package ast

import (
	"bytes"
	"errors"
	"fmt"
	"iter"

	"github.com/thiremani/sexpc/token"
)

// NodeID is the stable identity of a List inside an Arena.
type NodeID int

// NoNode marks the absent parent of a root list.
const NoNode NodeID = -1

var (
	ErrClosed  = errors.New("list is closed")
	ErrUnknown = errors.New("unknown list")
)

// Child is either an Item (a lexeme) or a nested list identified by List.
type Child struct {
	Item   token.Lexeme
	List   NodeID
	IsList bool
}

// List is a parenthesized expression. Parent never owns the list; the list
// owns its children through their identities.
type List struct {
	Parent   NodeID
	Children []Child
	Open     int // offset of the opening paren
	Close    int // offset of the closing paren, -1 while open
	closed   bool
}

func (l *List) Closed() bool {
	return l.closed
}

// Arena is a flat store of lists. Identities never change once allocated.
type Arena struct {
	lists []List
}

func NewArena() *Arena {
	return &Arena{}
}

func (a *Arena) Len() int {
	return len(a.lists)
}

// New allocates an open list under parent (NoNode for a root).
func (a *Arena) New(parent NodeID, open int) NodeID {
	a.lists = append(a.lists, List{Parent: parent, Open: open, Close: -1})
	return NodeID(len(a.lists) - 1)
}

func (a *Arena) get(id NodeID) (*List, error) {
	if id < 0 || int(id) >= len(a.lists) {
		return nil, fmt.Errorf("%w: %d", ErrUnknown, id)
	}
	return &a.lists[id], nil
}

// AddItem appends a lexeme to list id.
func (a *Arena) AddItem(id NodeID, lex token.Lexeme) error {
	l, err := a.get(id)
	if err != nil {
		return err
	}
	if l.closed {
		return fmt.Errorf("%w: cannot add %s to list at %d", ErrClosed, lex, l.Open)
	}
	l.Children = append(l.Children, Child{Item: lex, List: NoNode})
	return nil
}

// AddList appends child to list id. The child must name id as its parent.
func (a *Arena) AddList(id, child NodeID) error {
	l, err := a.get(id)
	if err != nil {
		return err
	}
	c, err := a.get(child)
	if err != nil {
		return err
	}
	if c.Parent != id {
		return fmt.Errorf("list %d is not a child of list %d", child, id)
	}
	if l.closed {
		return fmt.Errorf("%w: cannot add list to list at %d", ErrClosed, l.Open)
	}
	l.Children = append(l.Children, Child{List: child, IsList: true})
	return nil
}

// Close marks list id as complete at the given closing offset.
func (a *Arena) Close(id NodeID, pos int) error {
	l, err := a.get(id)
	if err != nil {
		return err
	}
	if l.closed {
		return fmt.Errorf("%w: list at %d closed twice", ErrClosed, l.Open)
	}
	l.closed = true
	l.Close = pos
	return nil
}

// View is a read-only look at one list of the arena.
type View struct {
	ID    NodeID
	Depth int
	arena *Arena
}

func (v View) Parent() NodeID {
	return v.arena.lists[v.ID].Parent
}

func (v View) Open() int {
	return v.arena.lists[v.ID].Open
}

func (v View) Len() int {
	return len(v.arena.lists[v.ID].Children)
}

func (v View) Child(i int) Child {
	return v.arena.lists[v.ID].Children[i]
}

func (v View) Closed() bool {
	return v.arena.lists[v.ID].closed
}

// View returns a read-only view of list id.
func (a *Arena) View(id NodeID) View {
	return View{ID: id, arena: a}
}

// Cursor walks a tree of lists in pre-order.
type Cursor struct {
	arena *Arena
	stack []View
}

func (a *Arena) Cursor(root NodeID) *Cursor {
	return &Cursor{arena: a, stack: []View{{ID: root, arena: a}}}
}

// Next returns the next list, or false once the tree is exhausted.
func (c *Cursor) Next() (View, bool) {
	if len(c.stack) == 0 {
		return View{}, false
	}
	v := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]

	children := c.arena.lists[v.ID].Children
	for i := len(children) - 1; i >= 0; i-- {
		if children[i].IsList {
			c.stack = append(c.stack, View{ID: children[i].List, Depth: v.Depth + 1, arena: c.arena})
		}
	}
	return v, true
}

// Walk yields every list under root, root first.
func (a *Arena) Walk(root NodeID) iter.Seq[View] {
	return func(yield func(View) bool) {
		c := a.Cursor(root)
		for v, ok := c.Next(); ok; v, ok = c.Next() {
			if !yield(v) {
				return
			}
		}
	}
}

// Items counts the leaves of the tree under root.
func (a *Arena) Items(root NodeID) int {
	n := 0
	for v := range a.Walk(root) {
		for i := 0; i < v.Len(); i++ {
			if !v.Child(i).IsList {
				n++
			}
		}
	}
	return n
}

// Format renders the tree under root back to canonical S-expression text.
func (a *Arena) Format(root NodeID) string {
	var out bytes.Buffer
	a.format(&out, root)
	return out.String()
}

func (a *Arena) format(out *bytes.Buffer, id NodeID) {
	out.WriteByte('(')
	for i, c := range a.lists[id].Children {
		if i > 0 {
			out.WriteByte(' ')
		}
		if c.IsList {
			a.format(out, c.List)
			continue
		}
		out.WriteString(c.Item.String())
	}
	out.WriteByte(')')
}
