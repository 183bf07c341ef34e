package rulesets

import (
	"testing"

	"github.com/liamcoop/lacvalidate/rules"
)

func TestInMemoryRegistryCache(t *testing.T) {
	c := NewInMemoryRegistryCache()

	if _, ok := c.Get(2023); ok {
		t.Fatal("empty cache should miss")
	}

	regs := map[int]*rules.Registry{}
	for _, y := range []int{2022, 2023, 2024} {
		reg, _ := rules.NewRegistry()
		regs[y] = reg
		c.Set(y, reg)
	}

	if got, ok := c.Get(2023); !ok || got != regs[2023] {
		t.Error("Get() should return the stored registry")
	}

	c.InvalidateFrom(2023)

	if _, ok := c.Get(2022); !ok {
		t.Error("years before the invalidated one should stay cached")
	}
	if _, ok := c.Get(2023); ok {
		t.Error("invalidated year should miss")
	}
	if _, ok := c.Get(2024); ok {
		t.Error("later years should be invalidated too")
	}
}
