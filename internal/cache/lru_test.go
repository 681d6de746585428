package cache

import (
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLRU(size int, ttl time.Duration) (*LRU[int64, string], *clock) {
	clk := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRU[int64, string](size, ttl)
	c.now = clk.now
	return c, clk
}

var _ Cache[int64, string] = (*LRU[int64, string])(nil)

func TestLRU_GetSet(t *testing.T) {
	c, _ := newTestLRU(2, time.Minute)

	if _, ok := c.Get(1); ok {
		t.Fatal("empty cache returned a value")
	}
	c.Set(1, "a")
	c.Set(1, "b")
	if v, ok := c.Get(1); !ok || v != "b" {
		t.Errorf("Get(1) = %q, %v, want b, true", v, ok)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestLRU(2, time.Minute)

	c.Set(1, "a")
	c.Set(2, "b")
	c.Get(1)
	c.Set(3, "c")

	if _, ok := c.Get(2); ok {
		t.Error("2 should have been evicted")
	}
	if _, ok := c.Get(1); !ok {
		t.Error("1 was used recently and should remain")
	}
	if _, ok := c.Get(3); !ok {
		t.Error("3 should be present")
	}
}

func TestLRU_Expiry(t *testing.T) {
	c, clk := newTestLRU(10, time.Minute)

	c.Set(1, "a")
	c.Set(2, "b")
	clk.t = clk.t.Add(30 * time.Second)
	c.Set(3, "c")
	clk.t = clk.t.Add(45 * time.Second)

	if _, ok := c.Get(1); ok {
		t.Error("1 should have expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
	if v, ok := c.Get(3); !ok || v != "c" {
		t.Errorf("Get(3) = %q, %v", v, ok)
	}
}

func TestLRU_Delete(t *testing.T) {
	c, _ := newTestLRU(2, time.Minute)
	c.Set(1, "a")
	c.Delete(1)
	c.Delete(42)
	if _, ok := c.Get(1); ok {
		t.Error("deleted key still present")
	}
}
