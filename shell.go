// shell.go - plain text command shell and the "screen -c" program-string
// parser. Grounded on debug_commands.go's ParseCommand for the
// trim-and-tokenize style, and on terminal_host.go for the raw-mode
// attach-and-restore pattern — but not on shell.cpp, whose FTXUI table
// rendering, fake-nvidia-smi grid, and marquee are deliberately left
// out. This is a line-in, line-out shell, nothing more.

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// RunShell drives the read-eval-print loop against sys until stdin
// closes or "exit" is issued from the root "pts" session. When stdin is
// a real terminal and a "screen" command leaves the current session
// attached to something other than "pts", it hands off to
// attachInteractive for the duration of that attachment.
func RunShell(sys *System, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	stdinFile, isFile := in.(*os.File)
	isTTY := isFile && term.IsTerminal(int(stdinFile.Fd()))
	fmt.Fprintln(out, "aphelios-sim ready. type 'initialize' to begin.")
	for {
		fmt.Fprintf(out, "%s> ", sys.current.Name)
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		if strings.TrimSpace(strings.ToLower(line)) == "exit" && sys.current.Name == "pts" {
			fmt.Fprintln(out, "[exiting]")
			return
		}
		result := sys.ProcessCommand(line)
		if result != "" {
			fmt.Fprintln(out, result)
		}
		if isTTY && isScreenCommand(line) && sys.current.Name != "pts" {
			attachInteractive(sys, stdinFile, out)
		}
	}
}

func isScreenCommand(line string) bool {
	f := strings.Fields(strings.TrimSpace(line))
	return len(f) > 0 && strings.EqualFold(f[0], "screen")
}

// AttachTerminal puts fd into raw mode for the duration of fn, restoring
// the prior terminal state on return. It is a no-op (fn still runs)
// when fd isn't a terminal, matching terminal_host.go's fallback
// posture.
func AttachTerminal(fd int, fn func()) {
	if !term.IsTerminal(fd) {
		fn()
		return
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fn()
		return
	}
	defer term.Restore(fd, oldState)
	fn()
}

// attachInteractive puts the terminal in raw mode and reads single
// keystrokes for as long as a screen is attached: 'p' prints a
// process-smi snapshot, Ctrl-] detaches back to "pts". This is the
// single-byte read-and-dispatch loop terminal_host.go uses for its
// char-mode MMIO input, repurposed here instead of a full TUI.
func attachInteractive(sys *System, f *os.File, out io.Writer) {
	fmt.Fprintln(out, "[attached to "+sys.current.Name+" - Ctrl-] to detach, 'p' for process-smi]")
	AttachTerminal(int(f.Fd()), func() {
		buf := make([]byte, 1)
		for {
			n, err := f.Read(buf)
			if err != nil || n == 0 {
				return
			}
			switch buf[0] {
			case 0x1D: // Ctrl-]
				return
			case 'p', 'P':
				fmt.Fprint(out, "\r\n"+sys.handleProcessSMI()+"\r\n")
			}
		}
	})
	sys.switchSession("pts")
	fmt.Fprintln(out, "\n[detached]")
}

// writeFile writes content to path, creating any missing parent
// directories (the "logs/" tree names).
func writeFile(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// parseProgramString parses the "screen -c" instruction grammar:
// semicolon-separated statements, FOR(n) { ... } for nesting, e.g.
//
//	DECLARE(x, 10); FOR(3) { ADD(x, x, 1); PRINT("x is", x) }; PRINT("done")
//
// Operand tokens that parse as an integer are literals; anything else
// is a variable name.
func parseProgramString(text string) ([]Instruction, error) {
	toks := tokenizeStatements(text)
	return parseStatements(toks)
}

// tokenizeStatements splits text into top-level statements on ';',
// treating '{'..'}' as nested (so a For body's internal ';' doesn't
// split the outer statement) and ignoring separators inside quotes.
func tokenizeStatements(text string) []string {
	var out []string
	depth := 0
	inQuote := false
	start := 0
	for i, r := range text {
		switch r {
		case '"':
			inQuote = !inQuote
		case '{':
			if !inQuote {
				depth++
			}
		case '}':
			if !inQuote && depth > 0 {
				depth--
			}
		case ';':
			if !inQuote && depth == 0 {
				out = append(out, text[start:i])
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		out = append(out, text[start:])
	}
	return out
}

func parseStatements(toks []string) ([]Instruction, error) {
	var prog []Instruction
	for _, raw := range toks {
		stmt := strings.TrimSpace(raw)
		if stmt == "" {
			continue
		}
		ins, err := parseStatement(stmt)
		if err != nil {
			return nil, err
		}
		prog = append(prog, ins)
	}
	return prog, nil
}

// parseStatement parses one "NAME(args) [{ body }]" statement.
func parseStatement(stmt string) (Instruction, error) {
	open := strings.IndexByte(stmt, '(')
	if open < 0 {
		return Instruction{}, fmt.Errorf("aphelios: malformed statement %q: missing '('", stmt)
	}
	kind := strings.ToUpper(strings.TrimSpace(stmt[:open]))

	depth := 0
	close := -1
	for i := open; i < len(stmt); i++ {
		switch stmt[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				close = i
			}
		}
		if close >= 0 {
			break
		}
	}
	if close < 0 {
		return Instruction{}, fmt.Errorf("aphelios: malformed statement %q: unbalanced '('", stmt)
	}
	args := splitArgs(stmt[open+1 : close])
	rest := strings.TrimSpace(stmt[close+1:])

	switch kind {
	case "PRINT":
		if len(args) < 1 {
			return Instruction{}, fmt.Errorf("aphelios: PRINT needs a message")
		}
		ins := Instruction{Kind: InstrPrint, Message: unquote(args[0])}
		if len(args) > 1 {
			ins.HasPrintVar = true
			ins.PrintVar = nameOperand(args[1])
		}
		return ins, nil
	case "DECLARE":
		if len(args) != 2 {
			return Instruction{}, fmt.Errorf("aphelios: DECLARE needs (name, value)")
		}
		v, err := strconv.ParseUint(args[1], 10, 16)
		if err != nil {
			return Instruction{}, fmt.Errorf("aphelios: DECLARE value %q: %w", args[1], err)
		}
		return Instruction{Kind: InstrDeclare, DeclareName: args[0], DeclareValue: uint16(v)}, nil
	case "ADD", "SUB":
		if len(args) != 3 {
			return Instruction{}, fmt.Errorf("aphelios: %s needs (dest, op2, op3)", kind)
		}
		k := InstrAdd
		if kind == "SUB" {
			k = InstrSub
		}
		return Instruction{Kind: k, Dest: args[0], Op2: parseOperand(args[1]), Op3: parseOperand(args[2])}, nil
	case "SLEEP":
		if len(args) != 1 {
			return Instruction{}, fmt.Errorf("aphelios: SLEEP needs (ticks)")
		}
		v, err := strconv.ParseUint(args[0], 10, 16)
		if err != nil {
			return Instruction{}, fmt.Errorf("aphelios: SLEEP ticks %q: %w", args[0], err)
		}
		return Instruction{Kind: InstrSleep, SleepTicks: uint16(v)}, nil
	case "FOR":
		if len(args) != 1 {
			return Instruction{}, fmt.Errorf("aphelios: FOR needs (repeats)")
		}
		reps, err := strconv.ParseUint(args[0], 10, 16)
		if err != nil {
			return Instruction{}, fmt.Errorf("aphelios: FOR repeats %q: %w", args[0], err)
		}
		if !strings.HasPrefix(rest, "{") || !strings.HasSuffix(rest, "}") {
			return Instruction{}, fmt.Errorf("aphelios: FOR needs a { body }")
		}
		body, err := parseStatements(tokenizeStatements(rest[1 : len(rest)-1]))
		if err != nil {
			return Instruction{}, err
		}
		return Instruction{Kind: InstrFor, Repeats: uint16(reps), Body: body}, nil
	case "READ":
		if len(args) != 2 {
			return Instruction{}, fmt.Errorf("aphelios: READ needs (name, addr)")
		}
		addr, err := strconv.ParseUint(args[1], 0, 32)
		if err != nil {
			return Instruction{}, fmt.Errorf("aphelios: READ addr %q: %w", args[1], err)
		}
		return Instruction{Kind: InstrRead, ReadName: args[0], ReadAddr: uint32(addr)}, nil
	case "WRITE":
		if len(args) != 2 {
			return Instruction{}, fmt.Errorf("aphelios: WRITE needs (addr, value)")
		}
		addr, err := strconv.ParseUint(args[0], 0, 32)
		if err != nil {
			return Instruction{}, fmt.Errorf("aphelios: WRITE addr %q: %w", args[0], err)
		}
		return Instruction{Kind: InstrWrite, WriteAddr: uint32(addr), WriteValue: parseOperand(args[1])}, nil
	default:
		return Instruction{}, fmt.Errorf("aphelios: unknown instruction %q", kind)
	}
}

// splitArgs splits a comma-separated argument list, ignoring commas
// inside double quotes.
func splitArgs(s string) []string {
	var out []string
	inQuote := false
	start := 0
	for i, r := range s {
		switch r {
		case '"':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if tail := strings.TrimSpace(s[start:]); tail != "" || len(out) > 0 {
		out = append(out, tail)
	}
	return out
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	return strings.Trim(s, `"`)
}

// parseOperand classifies an Add/Sub/Write operand token as a literal
// (parses as an unsigned integer) or a variable name.
func parseOperand(tok string) Operand {
	tok = strings.TrimSpace(tok)
	if v, err := strconv.ParseUint(tok, 10, 16); err == nil {
		return litOperand(uint16(v))
	}
	return nameOperand(tok)
}
