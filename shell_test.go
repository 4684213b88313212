package main

import "testing"

func TestParseProgramStringFlatStatements(t *testing.T) {
	prog, err := parseProgramString(`DECLARE(x, 10); PRINT("hello"); SLEEP(3)`)
	if err != nil {
		t.Fatalf("parseProgramString: %v", err)
	}
	if len(prog) != 3 {
		t.Fatalf("len(prog): got %d, want 3", len(prog))
	}
	if prog[0].Kind != InstrDeclare || prog[0].DeclareName != "x" || prog[0].DeclareValue != 10 {
		t.Fatalf("prog[0]: got %+v", prog[0])
	}
	if prog[1].Kind != InstrPrint || prog[1].Message != "hello" {
		t.Fatalf("prog[1]: got %+v", prog[1])
	}
	if prog[2].Kind != InstrSleep || prog[2].SleepTicks != 3 {
		t.Fatalf("prog[2]: got %+v", prog[2])
	}
}

func TestParseProgramStringForBody(t *testing.T) {
	prog, err := parseProgramString(`DECLARE(x, 0); FOR(3) { ADD(x, x, 1) }; PRINT("done", x)`)
	if err != nil {
		t.Fatalf("parseProgramString: %v", err)
	}
	if len(prog) != 3 {
		t.Fatalf("len(prog): got %d, want 3", len(prog))
	}
	forIns := prog[1]
	if forIns.Kind != InstrFor || forIns.Repeats != 3 || len(forIns.Body) != 1 {
		t.Fatalf("for instruction: got %+v", forIns)
	}
	if forIns.Body[0].Kind != InstrAdd || forIns.Body[0].Dest != "x" {
		t.Fatalf("for body: got %+v", forIns.Body[0])
	}
	last := prog[2]
	if !last.HasPrintVar || last.PrintVar.Name != "x" {
		t.Fatalf("trailing print: got %+v", last)
	}
}

func TestParseProgramStringAddSubOperands(t *testing.T) {
	prog, err := parseProgramString(`ADD(dest, 5, y); SUB(dest, y, 2)`)
	if err != nil {
		t.Fatalf("parseProgramString: %v", err)
	}
	if !prog[0].Op2.IsLiteral || prog[0].Op2.Literal != 5 {
		t.Fatalf("ADD op2: got %+v", prog[0].Op2)
	}
	if prog[0].Op3.IsLiteral {
		t.Fatalf("ADD op3: want a variable name, got literal %+v", prog[0].Op3)
	}
	if prog[1].Kind != InstrSub {
		t.Fatalf("prog[1].Kind: got %v, want InstrSub", prog[1].Kind)
	}
}

func TestParseProgramStringReadWrite(t *testing.T) {
	prog, err := parseProgramString(`READ(v, 0x10); WRITE(0x20, v); WRITE(0x30, 42)`)
	if err != nil {
		t.Fatalf("parseProgramString: %v", err)
	}
	if prog[0].Kind != InstrRead || prog[0].ReadName != "v" || prog[0].ReadAddr != 0x10 {
		t.Fatalf("READ: got %+v", prog[0])
	}
	if prog[1].Kind != InstrWrite || prog[1].WriteAddr != 0x20 || prog[1].WriteValue.IsLiteral {
		t.Fatalf("WRITE var: got %+v", prog[1])
	}
	if prog[2].WriteValue.Literal != 42 {
		t.Fatalf("WRITE literal: got %+v", prog[2].WriteValue)
	}
}

func TestParseProgramStringUnknownInstruction(t *testing.T) {
	if _, err := parseProgramString(`BOGUS(1,2)`); err == nil {
		t.Fatalf("parseProgramString: want error for unknown instruction")
	}
}

func TestParseProgramStringMalformed(t *testing.T) {
	if _, err := parseProgramString(`PRINT "no parens"`); err == nil {
		t.Fatalf("parseProgramString: want error for missing parens")
	}
}
