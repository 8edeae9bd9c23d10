package ir

import (
	"encoding/json"
	"fmt"
)

// This file implements the JSON module format: a direct, line-for-line
// rendering of ir.Module, used by cmd/nescheck in place of a
// source-language front-end (deliberately out of scope for this pass). It
// is a serialization of the IR, not a programming language.

type typeJSON struct {
	Kind   string      `json:"kind"`
	Bits   int         `json:"bits,omitempty"`
	Elem   *typeJSON   `json:"elem,omitempty"`
	Len    uint64      `json:"len,omitempty"`
	Fields []*typeJSON `json:"fields,omitempty"`
	Params []*typeJSON `json:"params,omitempty"`
	Ret    *typeJSON   `json:"ret,omitempty"`
	VarArg bool        `json:"varArg,omitempty"`
}

func kindName(k Kind) string {
	switch k {
	case KindVoid:
		return "void"
	case KindInt:
		return "int"
	case KindPointer:
		return "pointer"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	case KindFunc:
		return "func"
	default:
		return "void"
	}
}

func encodeType(t *Type) *typeJSON {
	if t == nil {
		return &typeJSON{Kind: "void"}
	}
	tj := &typeJSON{Kind: kindName(t.Kind), Bits: t.Bits, Len: t.Len, VarArg: t.VarArg}
	if t.Elem != nil {
		tj.Elem = encodeType(t.Elem)
	}
	if t.Ret != nil {
		tj.Ret = encodeType(t.Ret)
	}
	for _, f := range t.Fields {
		tj.Fields = append(tj.Fields, encodeType(f))
	}
	for _, p := range t.Params {
		tj.Params = append(tj.Params, encodeType(p))
	}
	return tj
}

func decodeType(tj *typeJSON) *Type {
	if tj == nil {
		return Void()
	}
	switch tj.Kind {
	case "int":
		return IntType(tj.Bits)
	case "pointer":
		return PointerTo(decodeType(tj.Elem))
	case "array":
		return ArrayOf(decodeType(tj.Elem), tj.Len)
	case "struct":
		var fields []*Type
		for _, f := range tj.Fields {
			fields = append(fields, decodeType(f))
		}
		return StructOf(fields...)
	case "func":
		var params []*Type
		for _, p := range tj.Params {
			params = append(params, decodeType(p))
		}
		return FuncType(params, decodeType(tj.Ret), tj.VarArg)
	default:
		return Void()
	}
}

type valueRefJSON struct {
	Ref   string     `json:"ref,omitempty"`   // "%name" (local) or "@name" (global)
	Const *constJSON `json:"const,omitempty"` // literal constant operand
}

type constJSON struct {
	Type *typeJSON `json:"type"`
	Val  int64     `json:"val"`
}

type instrJSON struct {
	Op             string          `json:"op"`
	Name           string          `json:"name,omitempty"`
	Type           *typeJSON       `json:"type,omitempty"`
	Operands       []*valueRefJSON `json:"operands,omitempty"`
	AllocType      *typeJSON       `json:"allocType,omitempty"`
	AllocCount     *valueRefJSON   `json:"allocCount,omitempty"`
	SourceElemType *typeJSON       `json:"sourceElemType,omitempty"`
	Indices        []*valueRefJSON `json:"indices,omitempty"`
	Callee         string          `json:"callee,omitempty"`
	Args           []*valueRefJSON `json:"args,omitempty"`
	TailCall       bool            `json:"tailCall,omitempty"`
	SrcType        *typeJSON       `json:"srcType,omitempty"`
	DstType        *typeJSON       `json:"dstType,omitempty"`
	Target         string          `json:"target,omitempty"`
	TrueBlock      string          `json:"trueBlock,omitempty"`
	FalseBlock     string          `json:"falseBlock,omitempty"`
	Index          int             `json:"index,omitempty"`
	Line           int64           `json:"line,omitempty"`
}

type blockJSON struct {
	Name   string      `json:"name"`
	Instrs []instrJSON `json:"instrs"`
}

type paramJSON struct {
	Name string `json:"name"`
}

type functionJSON struct {
	Name          string      `json:"name"`
	Type          *typeJSON   `json:"type"`
	Declaration   bool        `json:"declaration,omitempty"`
	CallingConv   string      `json:"callingConv,omitempty"`
	Linkage       string      `json:"linkage,omitempty"`
	Params        []paramJSON `json:"params,omitempty"`
	Blocks        []blockJSON `json:"blocks,omitempty"`
}

type globalJSON struct {
	Name    string    `json:"name"`
	Pointee *typeJSON `json:"pointee"`
	Const   bool      `json:"const,omitempty"`
}

type moduleJSON struct {
	Name      string         `json:"name"`
	Globals   []globalJSON   `json:"globals,omitempty"`
	Functions []functionJSON `json:"functions"`
}

func opName(op Op) string {
	names := map[Op]string{
		OpAlloca: "alloca", OpLoad: "load", OpStore: "store", OpGEP: "gep",
		OpCall: "call", OpCallIndirect: "callindirect", OpRet: "ret",
		OpBitCast: "bitcast", OpIntToPtr: "inttoptr", OpPtrToInt: "ptrtoint",
		OpBr: "br", OpCondBr: "condbr", OpICmpSLT: "icmpslt", OpSub: "sub",
		OpMul: "mul", OpUnreachable: "unreachable",
		OpExtractValue: "extractvalue", OpInsertValue: "insertvalue",
	}
	if n, ok := names[op]; ok {
		return n
	}
	return "unknown"
}

func opFromName(n string) (Op, error) {
	names := map[string]Op{
		"alloca": OpAlloca, "load": OpLoad, "store": OpStore, "gep": OpGEP,
		"call": OpCall, "callindirect": OpCallIndirect, "ret": OpRet,
		"bitcast": OpBitCast, "inttoptr": OpIntToPtr, "ptrtoint": OpPtrToInt,
		"br": OpBr, "condbr": OpCondBr, "icmpslt": OpICmpSLT, "sub": OpSub,
		"mul": OpMul, "unreachable": OpUnreachable,
		"extractvalue": OpExtractValue, "insertvalue": OpInsertValue,
	}
	op, ok := names[n]
	if !ok {
		return 0, fmt.Errorf("ir: unknown opcode %q", n)
	}
	return op, nil
}

// EncodeModule renders m as the JSON module format.
func EncodeModule(m *Module) ([]byte, error) {
	mj := moduleJSON{Name: m.Name}
	for _, g := range m.Globals {
		mj.Globals = append(mj.Globals, globalJSON{Name: g.Name_, Pointee: encodeType(g.PointeeType), Const: g.IsConst})
	}
	for _, f := range m.Functions {
		fj := functionJSON{Name: f.Name_, Type: encodeType(f.Ty), Declaration: f.IsDeclaration, CallingConv: f.CallingConv, Linkage: f.Linkage}
		for _, p := range f.Params {
			fj.Params = append(fj.Params, paramJSON{Name: p.Name_})
		}
		for _, b := range f.Blocks {
			bj := blockJSON{Name: b.Name_}
			for _, in := range b.Instrs {
				bj.Instrs = append(bj.Instrs, encodeInstr(in))
			}
			fj.Blocks = append(fj.Blocks, bj)
		}
		mj.Functions = append(mj.Functions, fj)
	}
	return json.MarshalIndent(mj, "", "  ")
}

func encodeRef(v Value) *valueRefJSON {
	if v == nil {
		return nil
	}
	if c, ok := v.(*ConstInt); ok {
		return &valueRefJSON{Const: &constJSON{Type: encodeType(c.Ty), Val: c.Val}}
	}
	if g, ok := v.(*Global); ok {
		return &valueRefJSON{Ref: "@" + g.Name_}
	}
	return &valueRefJSON{Ref: "%" + v.Name()}
}

func encodeRefs(vs []Value) []*valueRefJSON {
	var out []*valueRefJSON
	for _, v := range vs {
		out = append(out, encodeRef(v))
	}
	return out
}

func encodeInstr(in *Instr) instrJSON {
	ij := instrJSON{Op: opName(in.Op), Name: in.Name_, Type: encodeType(in.Ty), Line: in.Line}
	switch in.Op {
	case OpAlloca:
		ij.AllocType = encodeType(in.AllocType)
		ij.AllocCount = encodeRef(in.AllocCount)
	case OpGEP:
		ij.Operands = encodeRefs(in.Operands)
		ij.SourceElemType = encodeType(in.SourceElemType)
		ij.Indices = encodeRefs(in.Indices)
	case OpCall:
		if in.Callee != nil {
			ij.Callee = in.Callee.Name_
		}
		ij.Args = encodeRefs(in.Args)
		ij.TailCall = in.TailCall
	case OpCallIndirect:
		ij.Operands = encodeRefs(in.Operands)
		ij.Args = encodeRefs(in.Args)
	case OpBitCast, OpIntToPtr, OpPtrToInt:
		ij.Operands = encodeRefs(in.Operands)
		ij.SrcType = encodeType(in.SrcType)
		ij.DstType = encodeType(in.DstType)
	case OpBr:
		ij.Target = in.Target.Name_
	case OpCondBr:
		ij.Operands = encodeRefs(in.Operands)
		ij.TrueBlock = in.TrueBlock.Name_
		ij.FalseBlock = in.FalseBlock.Name_
	case OpExtractValue, OpInsertValue:
		ij.Operands = encodeRefs(in.Operands)
		ij.Index = in.Index
	default:
		ij.Operands = encodeRefs(in.Operands)
	}
	return ij
}

// DecodeModule parses the JSON module format into an ir.Module.
func DecodeModule(data []byte) (*Module, error) {
	var mj moduleJSON
	if err := json.Unmarshal(data, &mj); err != nil {
		return nil, err
	}
	m := NewModule(mj.Name)
	for _, gj := range mj.Globals {
		m.NewGlobal(gj.Name, decodeType(gj.Pointee), gj.Const)
	}

	// Pass 1: declare every function and its parameters, and every
	// instruction result with its name and type, so forward references
	// (e.g. a call to a function defined later, or a branch to a later
	// block) resolve in pass 2.
	fns := make(map[string]*Function, len(mj.Functions))
	scopes := make(map[string]map[string]Value, len(mj.Functions))
	blockByName := make(map[string]map[string]*BasicBlock, len(mj.Functions))

	for _, fj := range mj.Functions {
		f := m.NewFunction(fj.Name, decodeType(fj.Type), true)
		f.CallingConv = fj.CallingConv
		f.Linkage = fj.Linkage
		f.Blocks = nil // declared with no blocks; the blocks below are built from the JSON
		for i, pj := range fj.Params {
			if i < len(f.Params) {
				f.Params[i].Name_ = pj.Name
			}
		}
		scope := map[string]Value{}
		for _, p := range f.Params {
			scope[p.Name_] = p
		}
		blocks := map[string]*BasicBlock{}
		for _, bj := range fj.Blocks {
			bb := f.addBlock(bj.Name)
			blocks[bj.Name] = bb
			for _, ij := range bj.Instrs {
				op, err := opFromName(ij.Op)
				if err != nil {
					return nil, err
				}
				in := &Instr{id: m.NewID(), Op: op, Name_: ij.Name, Ty: decodeType(ij.Type), Parent: bb, Line: ij.Line}
				bb.Instrs = append(bb.Instrs, in)
				if in.Name_ != "" {
					scope[in.Name_] = in
				}
			}
		}
		f.IsDeclaration = len(fj.Blocks) == 0
		fns[fj.Name] = f
		scopes[fj.Name] = scope
		blockByName[fj.Name] = blocks
	}

	resolve := func(scope map[string]Value, r *valueRefJSON) (Value, error) {
		if r == nil {
			return nil, nil
		}
		if r.Const != nil {
			return &ConstInt{id: m.NewID(), Ty: decodeType(r.Const.Type), Val: r.Const.Val}, nil
		}
		if len(r.Ref) == 0 {
			return nil, fmt.Errorf("ir: empty value reference")
		}
		name := r.Ref[1:]
		if r.Ref[0] == '@' {
			g := m.GlobalByName(name)
			if g == nil {
				return nil, fmt.Errorf("ir: unresolved global %q", name)
			}
			return g, nil
		}
		v, ok := scope[name]
		if !ok {
			return nil, fmt.Errorf("ir: unresolved value %%%s", name)
		}
		return v, nil
	}
	resolveMany := func(scope map[string]Value, rs []*valueRefJSON) ([]Value, error) {
		var out []Value
		for _, r := range rs {
			v, err := resolve(scope, r)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}

	// Pass 2: fill in operands now that every value and block is known.
	for _, fj := range mj.Functions {
		f := fns[fj.Name]
		scope := scopes[fj.Name]
		blocks := blockByName[fj.Name]
		bi := 0
		for _, bj := range fj.Blocks {
			bb := f.Blocks[bi]
			bi++
			for k, ij := range bj.Instrs {
				in := bb.Instrs[k]
				switch in.Op {
				case OpAlloca:
					in.AllocType = decodeType(ij.AllocType)
					cnt, err := resolve(scope, ij.AllocCount)
					if err != nil {
						return nil, err
					}
					in.AllocCount = cnt
				case OpGEP:
					ops, err := resolveMany(scope, ij.Operands)
					if err != nil {
						return nil, err
					}
					in.Operands = ops
					in.SourceElemType = decodeType(ij.SourceElemType)
					idxs, err := resolveMany(scope, ij.Indices)
					if err != nil {
						return nil, err
					}
					in.Indices = idxs
				case OpCall:
					if ij.Callee != "" {
						callee, ok := fns[ij.Callee]
						if !ok {
							return nil, fmt.Errorf("ir: unresolved callee %q", ij.Callee)
						}
						in.Callee = callee
					}
					args, err := resolveMany(scope, ij.Args)
					if err != nil {
						return nil, err
					}
					in.Args = args
					in.Operands = args
					in.TailCall = ij.TailCall
				case OpCallIndirect:
					ops, err := resolveMany(scope, ij.Operands)
					if err != nil {
						return nil, err
					}
					in.Operands = ops
					args, err := resolveMany(scope, ij.Args)
					if err != nil {
						return nil, err
					}
					in.Args = args
				case OpBitCast, OpIntToPtr, OpPtrToInt:
					ops, err := resolveMany(scope, ij.Operands)
					if err != nil {
						return nil, err
					}
					in.Operands = ops
					in.SrcType = decodeType(ij.SrcType)
					in.DstType = decodeType(ij.DstType)
				case OpBr:
					target, ok := blocks[ij.Target]
					if !ok {
						return nil, fmt.Errorf("ir: unresolved block %q", ij.Target)
					}
					in.Target = target
					addSucc(bb, target)
				case OpCondBr:
					ops, err := resolveMany(scope, ij.Operands)
					if err != nil {
						return nil, err
					}
					in.Operands = ops
					tb, ok1 := blocks[ij.TrueBlock]
					fb, ok2 := blocks[ij.FalseBlock]
					if !ok1 || !ok2 {
						return nil, fmt.Errorf("ir: unresolved branch target in %q", f.Name_)
					}
					in.TrueBlock, in.FalseBlock = tb, fb
					addSucc(bb, tb)
					addSucc(bb, fb)
				case OpExtractValue, OpInsertValue:
					ops, err := resolveMany(scope, ij.Operands)
					if err != nil {
						return nil, err
					}
					in.Operands = ops
					in.Index = ij.Index
				default:
					ops, err := resolveMany(scope, ij.Operands)
					if err != nil {
						return nil, err
					}
					in.Operands = ops
				}
			}
		}
	}
	return m, nil
}
