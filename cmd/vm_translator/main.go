package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/teris-io/cli"
	"hackstack.dev/n2t/pkg/asm"
	"hackstack.dev/n2t/pkg/vm"
)

var Description = strings.ReplaceAll(`
The VM Translator translates programs (composed of multiple modules/files) written in
the VM language into Hack assembly code that can be further elaborated. The VM language
is a higher-level (bytecode'like) language tailored for use with the Hack computer arch.
When invoked on a directory every '.vm' file inside is translated (in lexicographic
order, so static slot assignment is reproducible) into a single '.asm' named after it.
The bootstrap sequence (stack init + call to Sys.init) is always emitted, matching how
a real multi-file VM program is expected to be linked.
`, "\n", " ")

var VmTranslator = cli.New(Description).
	// 'AsOptional()' allows to have more than one input .vm file
	WithArg(cli.NewArg("inputs", "The bytecode (.vm) files or a directory of them").
		AsOptional().WithType(cli.TypeString)).
	WithOption(cli.NewOption("output", "The compiled assembly output (.asm)").
		WithType(cli.TypeString)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	inputs, outPath, err := resolveInputs(args, options["output"])
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		return -1
	}

	// Allocates a 'vm.Program' struct to save all the parsed translation units
	// (the .vm files) that will be parsed and lowered together and then sent to
	// the codegen phase (that will create a monolithic compiled output).
	program := vm.Program{}

	// For every file provided by the user we do the following things
	for _, input := range inputs {
		content, err := os.ReadFile(input)
		if err != nil {
			fmt.Printf("ERROR: Unable to open input file: %s\n", err)
			return -1
		}

		// Instantiate a parser for the Vm program
		parser := vm.NewParser(bytes.NewReader(content))
		// Parses the input file content and extracts a 'vm.Module' from it.
		module, err := parser.Parse()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'parsing' pass: %s\n", err)
			return -1
		}

		name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		program.Add(name, module)
	}

	// Instantiate a lowerer to convert the program from Vm to Asm. The bootstrap
	// sequence (stack init + 'call Sys.init 0') is always emitted as part of this pass.
	lowerer := vm.NewLowerer(program)
	// Lowers the vm.Program to an in-memory/IR representation of its Asm counterpart 'asm.Program'.
	asmProgram, err := lowerer.Lower()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'lowering' pass: %s\n", err)
		return -1
	}

	// Now, instantiates a code generator for the Asm (compiled) program
	codegen := asm.NewCodeGenerator(asmProgram)
	// Iterates over each instruction and spits out the relative textual representation.
	compiled, err := codegen.Generate()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'codegen' pass: %s\n", err)
		return -1
	}

	// The output artifact is materialized only once the whole program translated
	// cleanly, so a failed run never leaves a partial '.asm' file behind.
	var builder strings.Builder
	for _, comp := range compiled {
		builder.WriteString(comp)
		builder.WriteString("\n")
	}
	if err := os.WriteFile(outPath, []byte(builder.String()), 0644); err != nil {
		fmt.Printf("ERROR: Unable to write output file: %s\n", err)
		return -1
	}

	return 0
}

// resolveInputs expands each argument into the list of '.vm' files to translate and
// picks the output path. A directory argument stands for every '.vm' file directly
// inside it, sorted lexicographically so repeated runs assign static slots in the same
// order; its translation is named '<dir>/<dirname>.asm' unless '--output' overrides it.
func resolveInputs(args []string, output string) ([]string, string, error) {
	inputs := []string{}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, "", fmt.Errorf("unable to stat input '%s': %w", arg, err)
		}

		if !info.IsDir() {
			if filepath.Ext(arg) != ".vm" {
				return nil, "", fmt.Errorf("input '%s' does not have the '.vm' extension", arg)
			}
			inputs = append(inputs, arg)
			continue
		}

		matches, err := filepath.Glob(filepath.Join(arg, "*.vm"))
		if err != nil {
			return nil, "", fmt.Errorf("unable to list '.vm' files in '%s': %w", arg, err)
		}
		sort.Strings(matches)
		inputs = append(inputs, matches...)

		if output == "" {
			base := filepath.Base(filepath.Clean(arg))
			output = filepath.Join(arg, base+".asm")
		}
	}

	if len(inputs) == 0 {
		return nil, "", fmt.Errorf("no '.vm' input files found")
	}
	if output == "" {
		first := inputs[0]
		output = strings.TrimSuffix(first, filepath.Ext(first)) + ".asm"
	}

	return inputs, output, nil
}

func main() { os.Exit(VmTranslator.Run(os.Args, os.Stdout)) }
