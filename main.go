// main.go - entry point: builds a System and drives the shell loop
// against stdin/stdout. Thin wiring only: construct subsystems, then
// hand off to the run loop.

package main

import (
	"fmt"
	"os"
)

func main() {
	sys := NewSystem()

	if len(os.Args) > 1 {
		if err := sys.Initialize(os.Args[1]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println("initialized from", os.Args[1])
	}

	RunShell(sys, os.Stdin, os.Stdout)
}
