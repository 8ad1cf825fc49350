package jack_test

import (
	"errors"
	"testing"

	"hackstack.dev/n2t/pkg/jack"
)

func collectTokens(t *testing.T, src string) ([]jack.Token, error) {
	t.Helper()
	tok := jack.NewTokenizer(src)

	var out []jack.Token
	for {
		token, next, err := tok.Peek()
		if err != nil {
			return out, err
		}
		if token.Kind == jack.EndTok {
			return out, nil
		}
		tok.Advance(next)
		out = append(out, token)
	}
}

func TestTokenizerHappyPath(t *testing.T) {
	src := `class Foo {
		// a single field
		field int x;
		/* a block comment
		   spanning lines */
		method void bar() {
			return;
		}
	}`

	tokens, err := collectTokens(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedKinds := []jack.TokenKind{
		jack.KeywordTok, jack.IdentTok, jack.SymbolTok, // class Foo {
		jack.KeywordTok, jack.KeywordTok, jack.IdentTok, jack.SymbolTok, // field int x ;
		jack.KeywordTok, jack.KeywordTok, jack.IdentTok, jack.SymbolTok, jack.SymbolTok, jack.SymbolTok, // method void bar ( ) {
		jack.KeywordTok, jack.SymbolTok, // return ;
		jack.SymbolTok, jack.SymbolTok, // } }
	}

	if len(tokens) != len(expectedKinds) {
		t.Fatalf("expected %d tokens, got %d (%+v)", len(expectedKinds), len(tokens), tokens)
	}
	for i, kind := range expectedKinds {
		if tokens[i].Kind != kind {
			t.Errorf("token %d: expected kind %s, got %s (%q)", i, kind, tokens[i].Kind, tokens[i].Value)
		}
	}
}

func TestTokenizerIntConstants(t *testing.T) {
	t.Run("Within range", func(t *testing.T) {
		tokens, err := collectTokens(t, "0 1 32767")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := []string{"0", "1", "32767"}
		for i, e := range expected {
			if tokens[i].Value != e {
				t.Errorf("expected %q, got %q", e, tokens[i].Value)
			}
		}
	})

	t.Run("Out of range rejected with LexError", func(t *testing.T) {
		_, err := collectTokens(t, "32768")
		var lexErr *jack.LexError
		if !errors.As(err, &lexErr) {
			t.Fatalf("expected a *jack.LexError, got %v", err)
		}
	})
}

func TestTokenizerStringConstants(t *testing.T) {
	t.Run("Well formed", func(t *testing.T) {
		tokens, err := collectTokens(t, `"hello world"`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tokens) != 1 || tokens[0].Kind != jack.StringTok || tokens[0].Value != "hello world" {
			t.Fatalf("unexpected tokens: %+v", tokens)
		}
	})

	t.Run("Unterminated string rejected", func(t *testing.T) {
		_, err := collectTokens(t, `"hello`)
		var lexErr *jack.LexError
		if !errors.As(err, &lexErr) {
			t.Fatalf("expected a *jack.LexError, got %v", err)
		}
	})

	t.Run("Embedded newline rejected", func(t *testing.T) {
		_, err := collectTokens(t, "\"hello\nworld\"")
		var lexErr *jack.LexError
		if !errors.As(err, &lexErr) {
			t.Fatalf("expected a *jack.LexError, got %v", err)
		}
	})
}

func TestTokenizerUnterminatedBlockComment(t *testing.T) {
	_, err := collectTokens(t, "class Foo { /* never closed")
	var lexErr *jack.LexError
	if !errors.As(err, &lexErr) {
		t.Fatalf("expected a *jack.LexError, got %v", err)
	}
}

func TestTokenizerUnrecognizedCharacter(t *testing.T) {
	_, err := collectTokens(t, "let x = 1 @ 2;")
	var lexErr *jack.LexError
	if !errors.As(err, &lexErr) {
		t.Fatalf("expected a *jack.LexError, got %v", err)
	}
}

func TestTokenizerKeywordVsIdentifier(t *testing.T) {
	tokens, err := collectTokens(t, "class classy")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens[0].Kind != jack.KeywordTok {
		t.Errorf("expected 'class' to lex as a keyword, got %s", tokens[0].Kind)
	}
	if tokens[1].Kind != jack.IdentTok {
		t.Errorf("expected 'classy' to lex as an identifier (not a keyword prefix match), got %s", tokens[1].Kind)
	}
}
