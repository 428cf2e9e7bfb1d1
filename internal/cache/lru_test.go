package cache

import (
	"testing"
	"time"
)

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a was used recently and should be kept")
	}
	if c.Size() != 2 {
		t.Errorf("size = %d", c.Size())
	}
}

func TestLRUCacheGetOrCreate(t *testing.T) {
	c := NewLRUCache[*int](10, time.Minute)
	calls := 0
	create := func() *int {
		calls++
		v := calls
		return &v
	}

	first, found := c.GetOrCreate("s", create)
	if found {
		t.Error("first call should create")
	}
	second, found := c.GetOrCreate("s", create)
	if !found || first != second {
		t.Error("second call should return the stored value")
	}
	if calls != 1 {
		t.Errorf("create called %d times", calls)
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache[string](10, 20*time.Millisecond)
	c.Set("k", "v")
	c.Set("other", "v")

	time.Sleep(40 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expected k to expire")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Errorf("size = %d", c.Size())
	}
}

func TestLRUCacheReadsSlideExpiry(t *testing.T) {
	c := NewLRUCache[string](10, 60*time.Millisecond)
	c.Set("k", "v")
	for i := 0; i < 4; i++ {
		time.Sleep(30 * time.Millisecond)
		if _, ok := c.Get("k"); !ok {
			t.Fatalf("entry expired despite reads (iteration %d)", i)
		}
	}
}

func TestManagerCleanNow(t *testing.T) {
	c := NewLRUCache[string](10, time.Millisecond)
	c.Set("k", "v")
	m := NewManager()
	m.Register("sessions", c)

	time.Sleep(5 * time.Millisecond)
	removed := m.CleanNow()
	if removed["sessions"] != 1 {
		t.Errorf("removed = %v", removed)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
