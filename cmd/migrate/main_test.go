package main

import (
	"testing"
)

func TestIntArg(t *testing.T) {
	if _, err := intArg("force", nil); err == nil {
		t.Error("Expected error for missing argument")
	}
	if _, err := intArg("force", []string{"one"}); err == nil {
		t.Error("Expected error for non-numeric argument")
	}
	n, err := intArg("steps", []string{"-2"})
	if err != nil || n != -2 {
		t.Errorf("intArg() = %d, %v; want -2", n, err)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	if err := run(nil, "sideways", nil); err == nil {
		t.Error("Expected error for unknown command")
	}
}
