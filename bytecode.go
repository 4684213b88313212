// bytecode.go - fixed 8-byte instruction encoding, string interning, and
// the alternate fetch-through-memory execution path . Grounded on assembler/ie64asm.go (encode) and
// assembler/ie64dis.go (decode) for the encode/decode split, and on
// coprocessor_manager_test.go's binary.LittleEndian helpers for how
// this codebase builds fixed-size wire records.

package main

import (
	"encoding/binary"
	"fmt"
)

// Opcodes, as enumerates them.
const (
	OpPrint uint8 = 1
	OpDeclare uint8 = 2
	OpAdd uint8 = 3
	OpSub uint8 = 4
	OpSleep uint8 = 5
	OpFor uint8 = 6
	OpRead uint8 = 7
	OpWrite uint8 = 8
)

// Flag bits, per kind, as defines them.
const (
	flagOp2Literal = 1 << 0 // Add/Sub
	flagOp3Literal = 1 << 1 // Add/Sub
	flagHasVariable = 1 << 0 // Print
	flagUsesVar = 1 << 0 // Write
)

// EncodedInstruction is the fixed 8-byte on-the-wire record.
type EncodedInstruction struct {
	Opcode uint8
	Flags uint8
	Op1 uint16
	Op2 uint16
	Op3 uint16
}

const encodedInstrSize = 8

// Bytes serializes e into an 8-byte little-endian record.
func (e EncodedInstruction) Bytes() [encodedInstrSize]byte {
	var b [encodedInstrSize]byte
	b[0] = e.Opcode
	b[1] = e.Flags
	binary.LittleEndian.PutUint16(b[2:4], e.Op1)
	binary.LittleEndian.PutUint16(b[4:6], e.Op2)
	binary.LittleEndian.PutUint16(b[6:8], e.Op3)
	return b
}

// DecodeBytes parses an 8-byte record back into an EncodedInstruction.
func DecodeBytes(b [encodedInstrSize]byte) EncodedInstruction {
	return EncodedInstruction{
		Opcode: b[0],
		Flags: b[1],
		Op1: binary.LittleEndian.Uint16(b[2:4]),
		Op2: binary.LittleEndian.Uint16(b[4:6]),
		Op3: binary.LittleEndian.Uint16(b[6:8]),
	}
}

// stringTable is a name<->id interning table. id 0 is reserved/unused;
// ids are assigned densely starting at 1, matching // "id 0 reserved, ids are 16 bits" contract.
type stringTable struct {
	ids map[string]uint16
	names []string // names[id-1] == name for id, names[0] is id 1
}

func newStringTable() *stringTable {
	return &stringTable{ids: make(map[string]uint16)}
}

func (t *stringTable) intern(name string) uint16 {
	if name == "" {
		return 0
	}
	if id, ok := t.ids[name]; ok {
		return id
	}
	t.names = append(t.names, name)
	id := uint16(len(t.names))
	t.ids[name] = id
	return id
}

func (t *stringTable) lookup(id uint16) string {
	if id == 0 || int(id) > len(t.names) {
		return ""
	}
	return t.names[id-1]
}

// EncodeInstruction produces the fixed 8-byte record for ins, interning
// any string operands into table as it goes.
func EncodeInstruction(table *stringTable, ins Instruction) EncodedInstruction {
	switch ins.Kind {
	case InstrPrint:
		e := EncodedInstruction{Opcode: OpPrint, Op1: table.intern(ins.Message)}
		if ins.HasPrintVar {
			e.Flags |= flagHasVariable
			e.Op2 = table.intern(ins.PrintVar.Name)
		}
		return e
	case InstrDeclare:
		return EncodedInstruction{
			Opcode: OpDeclare,
			Op1: table.intern(ins.DeclareName),
			Op2: ins.DeclareValue,
		}
	case InstrAdd, InstrSub:
		op := OpAdd
		if ins.Kind == InstrSub {
			op = OpSub
		}
		e := EncodedInstruction{Opcode: op, Op1: table.intern(ins.Dest)}
		if ins.Op2.IsLiteral {
			e.Flags |= flagOp2Literal
			e.Op2 = ins.Op2.Literal
		} else {
			e.Op2 = table.intern(ins.Op2.Name)
		}
		if ins.Op3.IsLiteral {
			e.Flags |= flagOp3Literal
			e.Op3 = ins.Op3.Literal
		} else {
			e.Op3 = table.intern(ins.Op3.Name)
		}
		return e
	case InstrSleep:
		return EncodedInstruction{Opcode: OpSleep, Op1: ins.SleepTicks}
	case InstrFor:
		// Body is flattened away before admission; the fixed-size
		// record only round-trips the repeat count.
		return EncodedInstruction{Opcode: OpFor, Op1: ins.Repeats}
	case InstrRead:
		return EncodedInstruction{
			Opcode: OpRead,
			Op1: uint16(ins.ReadAddr & 0xFFFF),
			Op2: uint16(ins.ReadAddr >> 16),
			Op3: table.intern(ins.ReadName),
		}
	case InstrWrite:
		e := EncodedInstruction{
			Opcode: OpWrite,
			Op1: uint16(ins.WriteAddr & 0xFFFF),
			Op2: uint16(ins.WriteAddr >> 16),
		}
		if ins.WriteValue.IsLiteral {
			e.Op3 = ins.WriteValue.Literal
		} else {
			e.Flags |= flagUsesVar
			e.Op3 = table.intern(ins.WriteValue.Name)
		}
		return e
	default:
		panic(fmt.Sprintf("aphelios: cannot encode instruction kind %d", ins.Kind))
	}
}

// DecodeInstruction reverses EncodeInstruction, resolving interned
// string ids back to names through table.
func DecodeInstruction(table *stringTable, e EncodedInstruction) Instruction {
	switch e.Opcode {
	case OpPrint:
		ins := Instruction{Kind: InstrPrint, Message: table.lookup(e.Op1)}
		if e.Flags&flagHasVariable != 0 {
			ins.HasPrintVar = true
			ins.PrintVar = nameOperand(table.lookup(e.Op2))
		}
		return ins
	case OpDeclare:
		return Instruction{Kind: InstrDeclare, DeclareName: table.lookup(e.Op1), DeclareValue: e.Op2}
	case OpAdd, OpSub:
		kind := InstrAdd
		if e.Opcode == OpSub {
			kind = InstrSub
		}
		ins := Instruction{Kind: kind, Dest: table.lookup(e.Op1)}
		if e.Flags&flagOp2Literal != 0 {
			ins.Op2 = litOperand(e.Op2)
		} else {
			ins.Op2 = nameOperand(table.lookup(e.Op2))
		}
		if e.Flags&flagOp3Literal != 0 {
			ins.Op3 = litOperand(e.Op3)
		} else {
			ins.Op3 = nameOperand(table.lookup(e.Op3))
		}
		return ins
	case OpSleep:
		return Instruction{Kind: InstrSleep, SleepTicks: e.Op1}
	case OpFor:
		return Instruction{Kind: InstrFor, Repeats: e.Op1}
	case OpRead:
		addr := uint32(e.Op1) | uint32(e.Op2)<<16
		return Instruction{Kind: InstrRead, ReadAddr: addr, ReadName: table.lookup(e.Op3)}
	case OpWrite:
		addr := uint32(e.Op1) | uint32(e.Op2)<<16
		ins := Instruction{Kind: InstrWrite, WriteAddr: addr}
		if e.Flags&flagUsesVar != 0 {
			ins.WriteValue = nameOperand(table.lookup(e.Op3))
		} else {
			ins.WriteValue = litOperand(e.Op3)
		}
		return ins
	default:
		panic(fmt.Sprintf("aphelios: cannot decode opcode %d", e.Opcode))
	}
}

// --- fetch-through-memory path ---
//
// EnableBytecode interns every program string, writes the table into the
// process's memory at strTableBase, then writes each instruction as an
// 8-byte EncodedInstruction starting at codeBase. fetchInstruction later
// reads those 8 bytes back through the MemoryManager (paging them in on
// demand), so the instruction Execute runs is the one decoded from paged
// memory rather than the entry in p.Program.

const (
	strTableBase = 0x0000
	strTableSlot = 32 // bytes reserved per interned name
	maxInternedLen = strTableSlot - 2
)

// EnableBytecode switches p into the bytecode execution mode described
// by codeBase is the virtual address the encoded program
// begins at; it must leave room below it for the string table.
func (p *Process) EnableBytecode(codeBase uint32) error {
	table := newStringTable()
	for _, ins := range p.Program {
		EncodeInstruction(table, ins) // interns strings as a side effect
	}
	for id := 1; id <= len(table.names); id++ {
		if err := p.writeInternedString(uint16(id), table.names[id-1]); err != nil {
			return err
		}
	}
	for i, ins := range p.Program {
		enc := EncodeInstruction(table, ins)
		raw := enc.Bytes()
		addr := codeBase + uint32(i)*encodedInstrSize
		for j, b := range raw {
			if !p.mem.WriteByte(p.ID, addr+uint32(j), b) {
				return fmt.Errorf("aphelios: failed to write encoded instruction %d", i)
			}
		}
	}
	p.bytecode = true
	p.codeBase = codeBase
	p.strTable = table
	p.instrCount = len(p.Program)
	return nil
}

func (p *Process) writeInternedString(id uint16, name string) error {
	if len(name) > maxInternedLen {
		name = name[:maxInternedLen]
	}
	base := strTableBase + uint32(id-1)*strTableSlot
	if !p.mem.WriteWord(p.ID, base, uint16(len(name))) {
		return fmt.Errorf("aphelios: failed to write string table length for id %d", id)
	}
	for i := 0; i < len(name); i++ {
		if !p.mem.WriteByte(p.ID, base+2+uint32(i), name[i]) {
			return fmt.Errorf("aphelios: failed to write string table bytes for id %d", id)
		}
	}
	return nil
}

// fetchInstruction reads the 8-byte record at p.codeBase + index*8
// through the paging layer and decodes it back to AST form.
func (p *Process) fetchInstruction(index uint32) *Instruction {
	addr := p.codeBase + index*encodedInstrSize
	var raw [encodedInstrSize]byte
	for i := range raw {
		b, ok := p.mem.ReadByte(p.ID, addr+uint32(i))
		if !ok {
			p.logError(fmt.Sprintf("segmentation fault fetching instruction at %#x", addr))
			ins := Instruction{Kind: InstrSleep, SleepTicks: 0}
			return &ins
		}
		raw[i] = b
	}
	enc := DecodeBytes(raw)
	ins := DecodeInstruction(p.strTable, enc)
	return &ins
}
