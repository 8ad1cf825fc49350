package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/teris-io/cli"
	"hackstack.dev/n2t/pkg/cpu"
)

var Description = strings.ReplaceAll(`
The CPU Emulator loads a compiled Hack binary (.hack) and runs it on a simulated Hack
computer, either for a fixed number of cycles or until the program halts on its own,
then reports the final state of the requested memory locations.
`, "\n", " ")

var CpuEmulator = cli.New(Description).
	WithArg(cli.NewArg("input", "The compiled binary (.hack) file to run")).
	WithOption(cli.NewOption("cycles", "Maximum number of instructions to execute").WithChar('c').WithType(cli.TypeNumber)).
	WithOption(cli.NewOption("ram", "Comma separated list of RAM addresses to print after execution").WithChar('r')).
	WithOption(cli.NewOption("log", "Print a disassembly trace of every executed instruction").WithChar('l').WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	program, err := loadProgram(args[0])
	if err != nil {
		fmt.Printf("ERROR: Unable to load program: %s\n", err)
		return -1
	}

	maxCycles := 1_000_000
	if raw, found := options["cycles"]; found {
		n, err := strconv.Atoi(raw)
		if err != nil {
			fmt.Printf("ERROR: Invalid '--cycles' value: %s\n", err)
			return -1
		}
		maxCycles = n
	}

	trace := options["log"] == "true"

	computer := cpu.NewComputer()
	computer.Load(program)

	for i := 0; i < maxCycles; i++ {
		if trace && int(computer.PC) < len(computer.ROM()) {
			if decoded, decErr := cpu.Decode(computer.ROM()[computer.PC]); decErr == nil {
				fmt.Printf("PC=%-6d %s\n", computer.PC, cpu.Disassemble(decoded))
			}
		}

		cont, err := computer.Step(false)
		if err != nil {
			fmt.Printf("ERROR: Execution faulted: %s\n", err)
			return -1
		}
		if !cont {
			break
		}
	}

	if raw, found := options["ram"]; found {
		for _, field := range strings.Split(raw, ",") {
			addr, err := strconv.Atoi(strings.TrimSpace(field))
			if err != nil {
				fmt.Printf("ERROR: Invalid RAM address '%s': %s\n", field, err)
				return -1
			}
			fmt.Printf("RAM[%d] = %d\n", addr, computer.RAM()[addr])
		}
	} else {
		fmt.Printf("RAM[0] = %d\n", computer.RAM()[0])
	}

	return 0
}

// loadProgram reads a '.hack' file (one 16-character binary digit string per
// line, MSB first, the Assembler's output convention) and decodes it into ROM words.
func loadProgram(path string) ([]uint16, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var program []uint16
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if len(line) != 16 {
			return nil, fmt.Errorf("malformed instruction line %q: expected 16 binary digits", line)
		}
		word, err := strconv.ParseUint(line, 2, 16)
		if err != nil {
			return nil, fmt.Errorf("malformed instruction line %q: %w", line, err)
		}
		program = append(program, uint16(word))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return program, nil
}

func main() { os.Exit(CpuEmulator.Run(os.Args, os.Stdout)) }
