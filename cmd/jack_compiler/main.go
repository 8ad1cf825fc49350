package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/teris-io/cli"
	"hackstack.dev/n2t/pkg/jack"
	"hackstack.dev/n2t/pkg/vm"
)

var Description = strings.ReplaceAll(`
The Jack Compiler compiles programs (composed of multiple classes/files) written in
the Jack language into VM modules that can be further elaborated. The Jack language
is a higher-level OOP language tailored for use with the Hack computer architecture.
`, "\n", " ")

var JackCompiler = cli.New(Description).
	// 'AsOptional()' allows to have more than one input .jack file or directory
	WithArg(cli.NewArg("inputs", "The source (.jack) files or directories to be compiled").
		AsOptional().WithType(cli.TypeString)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	// The aggregation of all the Translation Units (TUs) found during the input walk (just
	// the paths). Every Jack class lives in its own file and compiles to its own '.vm'
	// module, so each TU goes through the whole front end independently of the others.
	TUs := []string{}

	for _, input := range args {
		filepath.Walk(input, func(path string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || filepath.Ext(path) != ".jack" {
				return nil // We recurse on dirs and ignore other filetypes
			}

			TUs = append(TUs, path)
			return nil
		})
	}

	for _, tu := range TUs {
		content, err := os.ReadFile(tu)
		if err != nil {
			fmt.Printf("ERROR: Unable to open input file: %s\n", err)
			return -1
		}

		// The Compiler is single pass: parsing and VM emission happen together, there's no
		// separate lowering step like the other stages have.
		name, module, err := jack.NewCompiler(string(content)).Compile()
		if err != nil {
			fmt.Printf("ERROR: Unable to compile '%s': %s\n", tu, err)
			return -1
		}

		program := vm.Program{}
		program.Add(name, module)

		// Now, instantiates a code generator for the Vm (compiled) program
		codegen := vm.NewCodeGenerator(program)
		// Iterates over each instruction and spits out the relative textual representation.
		compiled, err := codegen.Generate()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'codegen' pass: %s\n", err)
			return -1
		}

		// The output artifact is materialized only once the whole TU compiled cleanly, so
		// a failed run never leaves a partial '.vm' file behind.
		extension := filepath.Ext(tu)
		outPath := fmt.Sprintf("%s.vm", strings.TrimSuffix(tu, extension))
		if err := os.WriteFile(outPath, []byte(joinLines(compiled[0].Lines)), 0644); err != nil {
			fmt.Printf("ERROR: Unable to write output file: %s\n", err)
			return -1
		}
	}

	return 0
}

func joinLines(lines []string) string {
	var builder strings.Builder
	for _, line := range lines {
		builder.WriteString(line)
		builder.WriteString("\n")
	}
	return builder.String()
}

func main() { os.Exit(JackCompiler.Run(os.Args, os.Stdout)) }
