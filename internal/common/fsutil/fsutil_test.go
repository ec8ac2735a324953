package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestExpandHome(t *testing.T) {
	// Set a deterministic HOME for the duration of this test so we never skip.
	origHome, hadHome := os.LookupEnv("HOME")
	origUserProfile, hadUserProfile := os.LookupEnv("USERPROFILE")
	t.Cleanup(func() {
		if hadHome {
			_ = os.Setenv("HOME", origHome)
		} else {
			_ = os.Unsetenv("HOME")
		}
		if hadUserProfile {
			_ = os.Setenv("USERPROFILE", origUserProfile)
		} else {
			_ = os.Unsetenv("USERPROFILE")
		}
	})

	home := t.TempDir()
	// Configure both env vars for cross-platform behavior of os.UserHomeDir.
	_ = os.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		_ = os.Setenv("USERPROFILE", home)
	}
	// raw path unaffected
	if got, err := ExpandHome("/tmp"); err != nil || got != "/tmp" {
		t.Fatalf("got %q err=%v", got, err)
	}
	// empty path
	if got, err := ExpandHome(""); err != nil || got != "" {
		t.Fatalf("got %q err=%v", got, err)
	}
	// ~ expansion
	p, err := ExpandHome("~")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if p != home {
		t.Fatalf("expected %q, got %q", home, p)
	}
	// ~/subdir
	sub := "test-sub"
	exp, err := ExpandHome("~/" + sub)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if runtime.GOOS == "windows" {
		if filepath.Base(exp) != sub {
			t.Fatalf("unexpected expanded path: %q", exp)
		}
	} else {
		expected := filepath.Join(home, sub)
		if exp != expected {
			t.Fatalf("expected %q, got %q", expected, exp)
		}
	}
}

func TestIsFileIsDir(t *testing.T) {
	d := t.TempDir()
	f := filepath.Join(d, "m.bin")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !IsFile(f) || IsFile(d) || IsFile(filepath.Join(d, "missing")) {
		t.Fatalf("IsFile wrong")
	}
	if !IsDir(d) || IsDir(f) {
		t.Fatalf("IsDir wrong")
	}
	if !PathExists(f) {
		t.Fatalf("PathExists wrong")
	}
}

func TestSameRealPath(t *testing.T) {
	d := t.TempDir()
	f := filepath.Join(d, "m.bin")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !SameRealPath(f, filepath.Join(d, ".", "sub", "..", "m.bin")) {
		t.Fatalf("equivalent paths not equal")
	}
	if runtime.GOOS != "windows" {
		link := filepath.Join(d, "link.bin")
		if err := os.Symlink(f, link); err != nil {
			t.Fatalf("symlink: %v", err)
		}
		if !SameRealPath(f, link) {
			t.Fatalf("symlink not resolved")
		}
	}
	other := filepath.Join(d, "other.bin")
	_ = os.WriteFile(other, []byte("y"), 0o644)
	if SameRealPath(f, other) || SameRealPath(f, filepath.Join(d, "missing")) {
		t.Fatalf("different paths reported equal")
	}
}
