package rules

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/liamcoop/lacvalidate/dataset"
)

func constRule(code string, out Outcome) RuleDefinition {
	return RuleDefinition{
		Code:    code,
		Message: "rule " + code,
		Predicate: func(ctx context.Context, b *dataset.Bundle) (Outcome, error) {
			return out, nil
		},
	}
}

// TestNewRegistry verifies a registry can be built from an initial set
func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry(constRule("101", nil), constRule("102", nil))
	if err != nil {
		t.Fatalf("NewRegistry() failed: %v", err)
	}
	if reg.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reg.Len())
	}

	empty, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() with no rules failed: %v", err)
	}
	if empty.Len() != 0 {
		t.Errorf("empty Len() = %d, want 0", empty.Len())
	}
}

// TestRegistryAddDuplicate verifies a duplicate code is rejected without a partial insert
func TestRegistryAddDuplicate(t *testing.T) {
	original := constRule("101", Outcome{"Header": {1}})
	reg, err := NewRegistry(original)
	if err != nil {
		t.Fatalf("NewRegistry() failed: %v", err)
	}

	replacement := constRule("101", Outcome{"Header": {2}})
	replacement.Message = "replacement"
	err = reg.Add(replacement)
	if err == nil {
		t.Fatal("Add() with duplicate code should fail")
	}
	if !errors.Is(err, ErrDuplicateRule) {
		t.Errorf("Add() error = %v, want ErrDuplicateRule", err)
	}

	var dupErr *DuplicateRuleError
	if !errors.As(err, &dupErr) || dupErr.Code != "101" {
		t.Errorf("Add() error should be *DuplicateRuleError for 101, got %v", err)
	}

	got, _ := reg.Get("101")
	if got.Message != original.Message {
		t.Errorf("registry changed after failed Add: message = %q", got.Message)
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d after failed Add, want 1", reg.Len())
	}
}

func TestNewRegistryDuplicate(t *testing.T) {
	_, err := NewRegistry(constRule("101", nil), constRule("101", nil))
	if !errors.Is(err, ErrDuplicateRule) {
		t.Errorf("NewRegistry() error = %v, want ErrDuplicateRule", err)
	}
}

func TestRegistryGetNotFound(t *testing.T) {
	reg, _ := NewRegistry()

	_, err := reg.Get("missing")
	if !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("Get() error = %v, want ErrRuleNotFound", err)
	}
	if reg.Has("missing") {
		t.Error("Has() should be false for missing code")
	}
}

func TestRegistryAddInvalid(t *testing.T) {
	reg, _ := NewRegistry()

	testCases := []struct {
		name string
		def  RuleDefinition
	}{
		{"Empty code", RuleDefinition{Predicate: constRule("x", nil).Predicate}},
		{"Whitespace code", RuleDefinition{Code: "1 01", Predicate: constRule("x", nil).Predicate}},
		{"Nil predicate", RuleDefinition{Code: "101"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := reg.Add(tc.def)
			if !errors.Is(err, ErrInvalidRuleDefinition) {
				t.Errorf("Add() error = %v, want ErrInvalidRuleDefinition", err)
			}
		})
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d, invalid rules should not be inserted", reg.Len())
	}
}

func TestRegistryCodesSorted(t *testing.T) {
	reg, _ := NewRegistry(constRule("203", nil), constRule("101", nil), constRule("150", nil))

	codes := reg.Codes()
	want := []string{"101", "150", "203"}
	if len(codes) != len(want) {
		t.Fatalf("Codes() = %v, want %v", codes, want)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("Codes()[%d] = %s, want %s", i, codes[i], want[i])
		}
	}

	defs := reg.Rules()
	for i := range want {
		if defs[i].Code != want[i] {
			t.Errorf("Rules()[%d].Code = %s, want %s", i, defs[i].Code, want[i])
		}
	}
}

// TestRegistryToMapIsIndependent verifies the returned map cannot corrupt the registry
func TestRegistryToMapIsIndependent(t *testing.T) {
	def := constRule("101", nil)
	def.AffectedFields = []string{"SEX"}
	reg, _ := NewRegistry(def)

	m := reg.ToMap()
	delete(m, "101")
	m["999"] = constRule("999", nil)

	if !reg.Has("101") || reg.Has("999") {
		t.Error("mutating ToMap() result changed the registry")
	}

	got, _ := reg.Get("101")
	got.AffectedFields[0] = "CHANGED"

	again, _ := reg.Get("101")
	if again.AffectedFields[0] != "SEX" {
		t.Errorf("AffectedFields aliased registry state: %v", again.AffectedFields)
	}
}

func TestRegistryAddCopiesInput(t *testing.T) {
	def := constRule("101", nil)
	def.ApplicableTables = []string{"Header"}
	reg, _ := NewRegistry(def)

	def.ApplicableTables[0] = "Episodes"

	got, _ := reg.Get("101")
	if got.ApplicableTables[0] != "Header" {
		t.Errorf("registry shares caller's slice: %v", got.ApplicableTables)
	}
}

func TestRegistryConcurrentReads(t *testing.T) {
	reg, _ := NewRegistry(constRule("101", nil), constRule("102", nil))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = reg.Codes()
			_, _ = reg.Get("101")
			_ = reg.ToMap()
		}()
	}
	wg.Wait()
}
