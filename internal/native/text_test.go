package native

import (
	"strings"
	"testing"
)

func TestUTF8AssemblerJoinsSplitRunes(t *testing.T) {
	// "é" is 0xC3 0xA9, "€" is 0xE2 0x82 0xAC
	chunks := []string{"caf\xc3", "\xa9 ", "\xe2", "\x82", "\xac!"}
	var a utf8Assembler
	var got []string
	for _, c := range chunks {
		if s := a.Push(c); s != "" {
			got = append(got, s)
		}
	}
	if tail := a.Flush(); tail != "" {
		got = append(got, tail)
	}
	if strings.Join(got, "") != "café €!" {
		t.Fatalf("joined = %q", strings.Join(got, ""))
	}
	for _, s := range got {
		if strings.ContainsRune(s, '�') {
			t.Fatalf("piece %q contains replacement char", s)
		}
	}
}

func TestUTF8AssemblerReplacesInvalid(t *testing.T) {
	var a utf8Assembler
	if s := a.Push("ok\xff"); s != "ok�" {
		t.Fatalf("push = %q", s)
	}
	if s := a.Push("\xe2\x82"); s != "" {
		t.Fatalf("incomplete rune should be held, got %q", s)
	}
	if s := a.Flush(); s != "�" {
		t.Fatalf("flush = %q", s)
	}
}

func TestValidateText(t *testing.T) {
	if err := ValidateText("hello wörld"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateText("a\x00b"); !IsInvalidText(err) {
		t.Fatalf("expected invalid text for NUL, got %v", err)
	}
	if err := ValidateText("\xc3"); !IsInvalidText(err) {
		t.Fatalf("expected invalid text for bad UTF-8, got %v", err)
	}
}
