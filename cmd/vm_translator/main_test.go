package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVMTranslatorDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Prog")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create input directory: %v", err)
	}

	fixtures := map[string]string{
		// 'Aux' sorts before 'Sys', so its code (and its statics) must come first.
		"Aux.vm": "function Aux.helper 0\npush static 0\nreturn\n",
		"Sys.vm": "function Sys.init 0\npush constant 1\npop static 0\nlabel HALT\ngoto HALT\n",
	}
	for name, content := range fixtures {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write input fixture %s: %v", name, err)
		}
	}

	if status := Handler([]string{dir}, map[string]string{}); status != 0 {
		t.Fatalf("Unexpected exit status code: expected 0 got: %d", status)
	}

	generated, err := os.ReadFile(filepath.Join(dir, "Prog.asm"))
	if err != nil {
		t.Fatalf("Failed to read generated output: %v", err)
	}
	content := string(generated)

	// The bootstrap (SP init + 'call Sys.init 0') leads the output, exactly once.
	if !strings.HasPrefix(content, "@256\nD=A\n@SP\nM=D\n") {
		t.Errorf("Expected the output to start with the SP bootstrap, got:\n%s", content[:64])
	}
	if strings.Count(content, "@256\nD=A\n@SP\nM=D\n") != 1 {
		t.Errorf("Expected the bootstrap to be emitted exactly once")
	}

	// Statics are namespaced by module, so the two files never share a RAM cell.
	if !strings.Contains(content, "@Aux.0\n") || !strings.Contains(content, "@Sys.0\n") {
		t.Errorf("Expected per-module static symbols 'Aux.0' and 'Sys.0' in the output")
	}

	// Lexicographic file order: Aux's translated code precedes Sys's.
	if strings.Index(content, "(Aux.helper)") > strings.Index(content, "(Sys.init)") {
		t.Errorf("Expected 'Aux.vm' to be translated before 'Sys.vm'")
	}

	// Translating again into a separate file must be byte-identical (reproducibility).
	other := filepath.Join(dir, "other.asm")
	if status := Handler([]string{dir}, map[string]string{"output": other}); status != 0 {
		t.Fatalf("Unexpected exit status code on re-run: expected 0 got: %d", status)
	}
	rerun, err := os.ReadFile(other)
	if err != nil {
		t.Fatalf("Failed to read re-run output: %v", err)
	}
	if string(rerun) != content {
		t.Errorf("Repeated translation of the same directory is not deterministic")
	}
}

func TestVMTranslatorSingleFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "SimpleAdd.vm")
	if err := os.WriteFile(input, []byte("push constant 7\npush constant 8\nadd\n"), 0644); err != nil {
		t.Fatalf("Failed to write input fixture: %v", err)
	}

	if status := Handler([]string{input}, map[string]string{}); status != 0 {
		t.Fatalf("Unexpected exit status code: expected 0 got: %d", status)
	}

	generated, err := os.ReadFile(filepath.Join(dir, "SimpleAdd.asm"))
	if err != nil {
		t.Fatalf("Failed to read generated output: %v", err)
	}
	if !strings.Contains(string(generated), "M=D+M\n") {
		t.Errorf("Expected the translated 'add' in the output")
	}
}

func TestVMTranslatorErrorLeavesNoArtifact(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "Broken.vm")
	if err := os.WriteFile(input, []byte("pop constant 7\n"), 0644); err != nil {
		t.Fatalf("Failed to write input fixture: %v", err)
	}

	if status := Handler([]string{input}, map[string]string{}); status == 0 {
		t.Fatal("Expected a non-zero exit status code for a pop into 'constant'")
	}

	if _, err := os.Stat(filepath.Join(dir, "Broken.asm")); !os.IsNotExist(err) {
		t.Errorf("Expected no output artifact for a failed translation, stat error: %v", err)
	}
}
