// Command kurokodis compiles and runs Kuroko source, optionally
// printing a disassembly instead of executing it. It is the disassembler/
// trace-consumer tooling named in SPEC_FULL.md §6 ("opcode numbering is
// exposed to tooling"), not a general embedding front-end.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/kurokolang/kuroko"
)

type args struct {
	scriptPath *string

	asmOnly  *bool
	astOnly  *bool // kept for flag-surface parity; Kuroko's compiler is AST-free (§4.2)
	classOnly *string

	noColor     *bool
	interactive *bool
}

func readArgs() *args {
	a := &args{
		scriptPath: flag.String("script", "", "Path to a .krk source file"),

		asmOnly:   flag.Bool("asm-only", false, "Print the compiled bytecode instead of running it"),
		astOnly:   flag.Bool("ast-only", false, "No-op: Kuroko's compiler emits bytecode directly, there is no AST to print"),
		classOnly: flag.String("class", "", "After running the script, print the named class's method tree and exit"),

		noColor:     flag.Bool("no-color", false, "Disable ANSI color even on a terminal"),
		interactive: flag.Bool("interactive", false, "Drop into a line-at-a-time REPL"),
	}
	flag.Parse()
	return a
}

func main() {
	a := readArgs()
	vm := kuroko.Init(nil)
	colorize := !*a.noColor && kuroko.StdoutIsTerminal(os.Stdout.Fd())

	if *a.astOnly {
		fmt.Println("kurokodis: -ast-only is a no-op; the compiler has no AST stage")
	}

	if *a.interactive {
		runREPL(vm, colorize)
		return
	}

	if *a.scriptPath == "" {
		log.Fatal("no script given (pass -script or -interactive)")
	}

	source, err := os.ReadFile(*a.scriptPath)
	if err != nil {
		log.Fatalf("can't open script: %s", err.Error())
	}

	if *a.asmOnly {
		fn, err := vm.CompileSource(string(source), *a.scriptPath)
		if err != nil {
			log.Fatalf("compile error: %s", err.Error())
		}
		fmt.Println(kuroko.DisassembleFunction(fn, colorize))
		return
	}

	_, err = vm.Interpret(string(source), *a.scriptPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, kuroko.FormatTraceback(err))
		os.Exit(1)
	}

	if *a.classOnly != "" {
		cls := vm.ClassNamed(*a.classOnly)
		if cls == nil {
			log.Fatalf("no such class: %s", *a.classOnly)
		}
		fmt.Println(kuroko.DumpClassTree(cls))
	}
}

// runREPL evaluates one line at a time, printing the result's repr
// unless it's None — the same read/eval/print shape the teacher's
// interactive grammar shell used, adapted to run Kuroko source instead
// of matching PEG input.
func runREPL(vm *kuroko.VM, colorize bool) {
	reader := bufio.NewReader(os.Stdin)
	for i := 0; ; i++ {
		fmt.Print(">>> ")
		line, err := reader.ReadString('\n')
		if line == "" && err != nil {
			fmt.Println()
			return
		}
		name := fmt.Sprintf("<repl:%d>", i)
		val, err := vm.Interpret(line, name)
		if err != nil {
			fmt.Fprintln(os.Stderr, kuroko.FormatTraceback(err))
			continue
		}
		if !val.IsNone() {
			fmt.Println(val.String())
		}
	}
}
