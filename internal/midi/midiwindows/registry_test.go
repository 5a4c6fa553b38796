package midiwindows

import (
	"sync"
	"testing"
)

func TestRegistry(t *testing.T) {
	r := newRegistry[string]()

	a := r.add("a")
	b := r.add("b")
	if a == 0 || a == b {
		t.Fatalf("ids a=%d b=%d", a, b)
	}
	if v, ok := r.get(b); !ok || v != "b" {
		t.Errorf("get(%d) = %q, %v", b, v, ok)
	}

	r.remove(a)
	if _, ok := r.get(a); ok {
		t.Errorf("get(%d) found a removed entry", a)
	}
	if c := r.add("c"); c == a {
		t.Errorf("id %d reused", c)
	}
	if _, ok := r.get(0); ok {
		t.Error("get(0) found an entry")
	}
}

func TestRegistryConcurrent(t *testing.T) {
	r := newRegistry[int]()
	var wg sync.WaitGroup
	ids := make([]uintptr, 64)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = r.add(i)
		}(i)
	}
	wg.Wait()

	seen := make(map[uintptr]bool)
	for i, id := range ids {
		if seen[id] {
			t.Fatalf("id %d handed out twice", id)
		}
		seen[id] = true
		if v, ok := r.get(id); !ok || v != i {
			t.Errorf("get(%d) = %d, %v; want %d", id, v, ok, i)
		}
	}
}
