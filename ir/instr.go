package ir

// Op names the opcode of an instruction. The set is deliberately small: only
// what the instruction walker needs to switch on.
type Op int

const (
	OpAlloca Op = iota
	OpLoad
	OpStore
	OpGEP
	OpCall
	OpRet     // return with a value (or none, when Operands is empty)
	OpBitCast // pointer-to-pointer cast, may change indirection depth
	OpIntToPtr
	OpPtrToInt
	OpBr        // unconditional branch
	OpCondBr    // conditional branch
	OpICmpSLT   // signed less-than, result i1 (modeled as i8)
	OpSub       // integer subtraction
	OpMul       // integer multiplication
	OpUnreachable
	OpExtractValue
	OpInsertValue
	OpCallIndirect // call through a value operand rather than a known Function
)

// Instr is every non-terminator-and-terminator instruction in the IR. A
// single struct (rather than one Go type per opcode) mirrors how the walker
// wants to treat instructions: dispatch on Op, then read the fields that
// opcode defines. This keeps the walker's switch close to the shape of an
// opcode table instead of a large sealed-interface hierarchy.
type Instr struct {
	id     ValueID
	Op     Op
	Ty     *Type // result type; Void for Store/Br/CondBr/Ret/Unreachable
	Name_  string
	Parent *BasicBlock

	// Generic operand list; meaning depends on Op (documented per accessor
	// below rather than per field, since most opcodes use only a couple).
	Operands []Value

	// Alloca
	AllocType  *Type
	AllocCount Value // element count; nil means 1

	// GEP
	SourceElemType *Type   // aggregate type the base pointer points into
	Indices        []Value // index list; Indices[len-1] is the byte-offset-driving index

	// Call / CallIndirect
	Callee   *Function // direct callee; nil for CallIndirect
	Args     []Value
	TailCall bool

	// Cast
	SrcType, DstType *Type

	// Br / CondBr
	Target                *BasicBlock // OpBr
	TrueBlock, FalseBlock *BasicBlock // OpCondBr (Operands[0] is the condition)

	// ExtractValue / InsertValue
	Index int

	// Line is the source line of the originating instruction. Instructions
	// made by Builder, and instructions decoded without a "line" field,
	// carry 0; no -1 sentinel is substituted for a missing debug location.
	Line int64
}

func (i *Instr) ID() ValueID  { return i.id }
func (i *Instr) Type() *Type  { return i.Ty }
func (i *Instr) Name() string { return i.Name_ }

// IsTerminator reports whether this instruction ends a basic block.
func (i *Instr) IsTerminator() bool {
	switch i.Op {
	case OpRet, OpBr, OpCondBr, OpUnreachable:
		return true
	default:
		return false
	}
}

// PointerOperand returns the pointer operand of a Load/Store/GEP/free-style
// call, by convention operand 0 for GEP/Load and the last operand for Store.
func (i *Instr) PointerOperand() Value {
	switch i.Op {
	case OpLoad, OpGEP:
		if len(i.Operands) > 0 {
			return i.Operands[0]
		}
	case OpStore:
		// Operands = [value, pointer]
		if len(i.Operands) > 1 {
			return i.Operands[1]
		}
	}
	return nil
}

// StoredValue returns the value operand of a Store instruction.
func (i *Instr) StoredValue() Value {
	if i.Op == OpStore && len(i.Operands) > 0 {
		return i.Operands[0]
	}
	return nil
}
