package cache

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestMemorySetGet(t *testing.T) {
	c := NewMemory(time.Minute)
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected miss on empty cache, got ok=%v err=%v", ok, err)
	}

	want := []byte(`{"temp":42}`)
	if err := c.Set(ctx, "k", want, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok, err := c.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(got) != string(want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestMemoryValueCopied(t *testing.T) {
	c := NewMemory(time.Minute)
	ctx := context.Background()

	val := []byte("original")
	if err := c.Set(ctx, "k", val, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val[0] = 'X'

	got, _, _ := c.Get(ctx, "k")
	if string(got) != "original" {
		t.Errorf("cached value mutated through caller slice: %q", got)
	}
}

func TestMemoryExpiry(t *testing.T) {
	c := NewMemory(time.Minute)
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("expected expired entry to miss")
	}
	if n := c.Len(); n != 0 {
		t.Errorf("Len() = %d after expiry, want 0", n)
	}
}

func TestMemoryOverwrite(t *testing.T) {
	c := NewMemory(time.Minute)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("first"), 0)
	c.Set(ctx, "k", []byte("second"), 0)

	got, ok, _ := c.Get(ctx, "k")
	if !ok || string(got) != "second" {
		t.Errorf("got %q ok=%v, want latest write to win", got, ok)
	}
}

func TestMemoryClear(t *testing.T) {
	c := NewMemory(time.Minute)
	ctx := context.Background()

	c.Set(ctx, "a", []byte("1"), 0)
	c.Set(ctx, "b", []byte("2"), 0)
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Error("expected miss after Clear")
	}
	if n := c.Len(); n != 0 {
		t.Errorf("Len() = %d after Clear, want 0", n)
	}
}

func TestDiskSetGet(t *testing.T) {
	c, err := NewDisk(t.TempDir(), time.Minute)
	if err != nil {
		t.Fatalf("NewDisk failed: %v", err)
	}
	ctx := context.Background()

	want := []byte(`{"description":"Sunny day"}`)
	if err := c.Set(ctx, "report", want, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok, err := c.Get(ctx, "report")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(got) != string(want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDiskExpiry(t *testing.T) {
	c, err := NewDisk(t.TempDir(), time.Minute)
	if err != nil {
		t.Fatalf("NewDisk failed: %v", err)
	}
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("expected expired entry to miss")
	}
	// Expired entries are reclaimed lazily on read.
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("expected sustained miss after lazy reclaim")
	}
}

func TestDiskClear(t *testing.T) {
	c, err := NewDisk(t.TempDir(), time.Minute)
	if err != nil {
		t.Fatalf("NewDisk failed: %v", err)
	}
	ctx := context.Background()

	c.Set(ctx, "a", []byte("1"), 0)
	c.Set(ctx, "b", []byte("2"), 0)
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Error("expected miss after Clear")
	}
}

func TestNewDispatch(t *testing.T) {
	if c, err := New("", time.Minute); err != nil {
		t.Fatalf("New(\"\") failed: %v", err)
	} else if _, ok := c.(Nop); !ok {
		t.Errorf("New(\"\") = %T, want Nop", c)
	}

	if c, err := New("memory://", time.Minute); err != nil {
		t.Fatalf("New(memory://) failed: %v", err)
	} else if _, ok := c.(*Memory); !ok {
		t.Errorf("New(memory://) = %T, want *Memory", c)
	}

	dir := t.TempDir()
	if c, err := New(dir, time.Minute); err != nil {
		t.Fatalf("New(dir) failed: %v", err)
	} else if _, ok := c.(*DiskCache); !ok {
		t.Errorf("New(dir) = %T, want *DiskCache", c)
	}
}

func TestKeyDeterministic(t *testing.T) {
	a := Key("weather_api", 38.9542, -77.0832, "imperial")
	b := Key("weather_api", 38.9542, -77.0832, "imperial")
	if a != b {
		t.Errorf("same inputs produced different keys: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, "weather_api_") {
		t.Errorf("key %q missing prefix", a)
	}

	c := Key("weather_api", 38.9542, -77.0832, "metric")
	if a == c {
		t.Error("different inputs produced the same key")
	}
}

func TestKeyDigestsLongParts(t *testing.T) {
	long := strings.Repeat("weather context line\n", 50)
	k := Key("llm", long, "model-a")
	if strings.Contains(k, "\n") {
		t.Errorf("long part leaked into key verbatim: %q", k)
	}
	if len(k) > 100 {
		t.Errorf("key unexpectedly long (%d chars): %q", len(k), k)
	}

	// The digest is stable for the same input.
	if k2 := Key("llm", long, "model-a"); k2 != k {
		t.Errorf("digested key not deterministic: %q vs %q", k2, k)
	}
}
