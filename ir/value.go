package ir

// ValueID is a stable, module-scoped identity for an SSA value: the raw
// identity the abstract state store keys on, an opaque handle from the IR
// library rather than anything derived from a value's contents.
type ValueID uint64

// Value is anything that can be an operand: a constant, a global, a
// function parameter, or the result of an instruction.
type Value interface {
	ID() ValueID
	Type() *Type
	Name() string
}

// ConstInt is an integer (or, at pointer type, a null-pointer) constant.
type ConstInt struct {
	id  ValueID
	Ty  *Type
	Val int64
}

func (c *ConstInt) ID() ValueID  { return c.id }
func (c *ConstInt) Type() *Type  { return c.Ty }
func (c *ConstInt) Name() string { return "" }

// IsNullPointer reports whether this constant is the null-pointer constant,
// which the state store handles specially rather than recording.
func (c *ConstInt) IsNullPointer() bool { return c.Ty.IsPointer() && c.Val == 0 }

// Global is a module-level variable. Its IR-visible type is a pointer to
// PointeeType; the pass driver registers one record per global, sized from
// the whole PointeeType, without recursing into array or struct members.
type Global struct {
	id          ValueID
	Name_       string
	PointeeType *Type
	IsConst     bool
}

func (g *Global) ID() ValueID  { return g.id }
func (g *Global) Type() *Type  { return PointerTo(g.PointeeType) }
func (g *Global) Name() string { return g.Name_ }

// Param is a function formal parameter.
type Param struct {
	id     ValueID
	Name_  string
	Ty     *Type
	Index  int
	Parent *Function
}

func (p *Param) ID() ValueID  { return p.id }
func (p *Param) Type() *Type  { return p.Ty }
func (p *Param) Name() string { return p.Name_ }
