package ir

// Module is the whole-program unit the pass runs over: this whole-module
// compiler pass operates on exactly one of these per invocation.
type Module struct {
	Name      string
	Functions []*Function
	Globals   []*Global
	nextID    ValueID
}

func NewModule(name string) *Module {
	return &Module{Name: name}
}

// NewID hands out the next stable value identity. IDs are never reused,
// keeping identity stable over the pass's lifetime.
func (m *Module) NewID() ValueID {
	m.nextID++
	return m.nextID
}

func (m *Module) FuncByName(name string) *Function {
	for _, f := range m.Functions {
		if f.Name_ == name {
			return f
		}
	}
	return nil
}

func (m *Module) GlobalByName(name string) *Global {
	for _, g := range m.Globals {
		if g.Name_ == name {
			return g
		}
	}
	return nil
}

// NewFunction declares (and, unless declOnly, defines with a single entry
// block) a function in the module.
func (m *Module) NewFunction(name string, ty *Type, declOnly bool) *Function {
	f := &Function{id: m.NewID(), Name_: name, Ty: ty, module: m, IsDeclaration: declOnly}
	for i, pt := range ty.Params {
		f.Params = append(f.Params, &Param{id: m.NewID(), Name_: paramName(i), Ty: pt, Index: i, Parent: f})
	}
	if !declOnly {
		f.addBlock("entry")
	}
	m.Functions = append(m.Functions, f)
	return f
}

func paramName(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	if i < len(letters) {
		return string(letters[i])
	}
	return "arg"
}

// NewGlobal declares a module-level global variable.
func (m *Module) NewGlobal(name string, pointee *Type, isConst bool) *Global {
	g := &Global{id: m.NewID(), Name_: name, PointeeType: pointee, IsConst: isConst}
	m.Globals = append(m.Globals, g)
	return g
}

// RemoveFunction deletes f from the module's function list. Callers are
// responsible for having already checked (or accepted) that f has no
// remaining uses.
func (m *Module) RemoveFunction(f *Function) {
	for i, fn := range m.Functions {
		if fn == f {
			m.Functions = append(m.Functions[:i], m.Functions[i+1:]...)
			return
		}
	}
}
