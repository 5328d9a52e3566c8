package syntax

import (
	"github.com/oxhq/tern/internal/rbtree"
)

// ScopeType classifies a lexical scope.
type ScopeType int

const (
	ScopeGlobal ScopeType = iota
	ScopeFunction
	ScopeBlock
	// ScopeShim is the one-entry scope wrapped around a named function
	// expression so the name is visible inside the body but not outside.
	ScopeShim
)

// MaxFunctionNesting caps lexical function depth.
const MaxFunctionNesting = 5

// VarKind classifies a declared variable.
type VarKind int

const (
	VarVar VarKind = iota
	VarFunction
	VarArgument
	VarCatch
	VarShim
)

// VarState tracks the declaration lifecycle.
type VarState int

const (
	StateCreated VarState = iota
	StateDeclared
	// StateLateBound marks a global slot materialized for a reference that
	// never found a declaration.
	StateLateBound
)

// Level selects which per-frame array an Index addresses.
type Level uint32

const (
	LevelLocal Level = iota
	LevelClosure
	LevelGlobal
	LevelArgument
	LevelBlock
	levelMask = 0x7
)

// Index is a tagged slot number: the low bits carry the Level, the high bits
// the slot within that level's array. Once assigned an index is stable for
// the life of the VM.
type Index uint32

const indexShift = 3

// NoIndex marks a variable that has not been assigned a slot yet.
const NoIndex Index = ^Index(0)

// MakeIndex builds an index from a level and a slot number.
func MakeIndex(level Level, slot uint32) Index {
	return Index(slot<<indexShift) | Index(level)
}

// Level returns the scope class of the index.
func (i Index) Level() Level { return Level(i) & levelMask }

// Slot returns the array position within the level.
func (i Index) Slot() uint32 { return uint32(i) >> indexShift }

// Variable is one declared name.
type Variable struct {
	UniqueID uint32
	Name     string
	Kind     VarKind
	Index    Index
	State    VarState

	// Value carries the initializer node for hoisted function
	// declarations.
	Value *Node
}

// Label is a statement label, stored beside variables in its scope.
type Label struct {
	UniqueID uint32
	Name     string
}

// Scope is one node of the lexical scope tree.
type Scope struct {
	Type     ScopeType
	Parent   *Scope
	Children []*Scope

	// Nesting is the function-nesting depth; block scopes inherit it.
	Nesting int

	// Module is set on a global scope parsed in module mode; Arrow on a
	// function scope produced by an arrow body.
	Module bool
	Arrow  bool

	vars   *rbtree.Tree[uint32, *Variable]
	labels *rbtree.Tree[uint32, *Label]
	refs   *rbtree.Tree[uint32, []*Reference]

	// Per-class next-slot counters. Function and global scopes own their
	// counters; block scopes delegate local/closure slots to the nearest
	// function scope.
	nextSlot [2]uint32 // LevelLocal, LevelClosure
	nextArg  uint32
	nextBlck uint32
}

func uintCmp(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// NewScope returns an empty scope of the given type linked under parent.
func NewScope(t ScopeType, parent *Scope) *Scope {
	s := &Scope{
		Type:   t,
		Parent: parent,
		vars:   rbtree.New[uint32, *Variable](uintCmp),
		labels: rbtree.New[uint32, *Label](uintCmp),
		refs:   rbtree.New[uint32, []*Reference](uintCmp),
	}
	if parent != nil {
		parent.Children = append(parent.Children, s)
		s.Nesting = parent.Nesting
	}
	return s
}

// functionScope returns the nearest enclosing function or global scope,
// including s itself.
func (s *Scope) functionScope() *Scope {
	for s.Type == ScopeBlock || s.Type == ScopeShim {
		s = s.Parent
	}
	return s
}

// indexLevel returns the slot class variables of this scope belong to.
func (s *Scope) indexLevel() Level {
	switch s.Type {
	case ScopeGlobal:
		return LevelGlobal
	case ScopeBlock, ScopeShim:
		return LevelBlock
	default:
		return LevelLocal
	}
}

// nextIndex hands out the next slot of the given level.
func (s *Scope) nextIndex(level Level) Index {
	switch level {
	case LevelArgument:
		f := s.functionScope()
		i := MakeIndex(level, f.nextArg)
		f.nextArg++
		return i
	case LevelBlock:
		i := MakeIndex(level, s.nextBlck)
		s.nextBlck++
		return i
	case LevelClosure:
		f := s.functionScope()
		i := MakeIndex(level, f.nextSlot[1])
		f.nextSlot[1]++
		return i
	default:
		f := s.functionScope()
		i := MakeIndex(level, f.nextSlot[0])
		f.nextSlot[0]++
		return i
	}
}

// AddVariable declares a name in this scope. Declaring the same unique id
// again is benign and returns the existing variable with its original
// index.
func (s *Scope) AddVariable(uid uint32, name string, kind VarKind) *Variable {
	if v, ok := s.vars.Get(uid); ok {
		return v
	}

	level := s.indexLevel()
	switch kind {
	case VarArgument:
		level = LevelArgument
	case VarCatch, VarShim:
		level = LevelBlock
	}

	v := &Variable{
		UniqueID: uid,
		Name:     name,
		Kind:     kind,
		Index:    s.nextIndex(level),
		State:    StateCreated,
	}
	s.vars.Insert(uid, v)
	return v
}

// Variable returns the variable declared in this scope (not the chain).
func (s *Scope) Variable(uid uint32) (*Variable, bool) {
	return s.vars.Get(uid)
}

// EachVariable visits this scope's variables in unique-id order.
func (s *Scope) EachVariable(fn func(*Variable) bool) {
	s.vars.Each(func(_ uint32, v *Variable) bool { return fn(v) })
}

// AddLabel declares a statement label; duplicate labels report false.
func (s *Scope) AddLabel(uid uint32, name string) bool {
	if _, ok := s.FindLabel(uid); ok {
		return false
	}
	s.labels.Insert(uid, &Label{UniqueID: uid, Name: name})
	return true
}

// RemoveLabel drops a label at the end of its statement.
func (s *Scope) RemoveLabel(uid uint32) {
	s.labels.Delete(uid)
}

// FindLabel searches this scope and its ancestors up to the function
// boundary.
func (s *Scope) FindLabel(uid uint32) (*Label, bool) {
	for c := s; c != nil; c = c.Parent {
		if l, ok := c.labels.Get(uid); ok {
			return l, true
		}
		if c.Type == ScopeFunction || c.Type == ScopeGlobal {
			break
		}
	}
	return nil, false
}

// AddReference records a use of a name in this scope for later resolution.
func (s *Scope) AddReference(r *Reference) {
	list, _ := s.refs.Get(r.UniqueID)
	s.refs.Insert(r.UniqueID, append(list, r))
}

// Close resolves this scope's references against its own declarations and
// escalates the rest to the parent. On the global scope, any reference
// still unresolved is materialized as a late-bound global slot.
func (s *Scope) Close() {
	s.refs.Each(func(uid uint32, list []*Reference) bool {
		v, ok := s.vars.Get(uid)
		if !ok {
			if s.Parent != nil {
				for _, r := range list {
					s.Parent.AddReference(r)
				}
				return true
			}
			// Global scope: materialize a late binding.
			v = s.AddVariable(uid, list[0].Name, VarVar)
			v.State = StateLateBound
		}
		for _, r := range list {
			r.Variable = v
			r.Index = v.Index
		}
		return true
	})
	s.refs = rbtree.New[uint32, []*Reference](uintCmp)
}

// Import copies another global scope's variables into s, keeping their
// indices. It backs the accumulative parse mode used for incremental
// evaluation.
func (s *Scope) Import(prev *Scope) {
	if prev == nil {
		return
	}
	prev.vars.Each(func(uid uint32, v *Variable) bool {
		s.vars.Insert(uid, v)
		return true
	})
	s.nextSlot = prev.nextSlot
	s.nextArg = prev.nextArg
	s.nextBlck = prev.nextBlck
}
