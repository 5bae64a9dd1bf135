package testfixtures

import (
	"sync"
	"testing"
)

func TestIDGeneratorSequence(t *testing.T) {
	gen := NewIDGenerator("cal")

	for i, want := range []string{"cal-1", "cal-2", "cal-3"} {
		if got := gen.Next(); got != want {
			t.Fatalf("Next() #%d = %q, want %q", i+1, got, want)
		}
	}

	gen.Reset("tag")
	if got := gen.Next(); got != "tag-1" {
		t.Fatalf("after Reset, Next() = %q, want tag-1", got)
	}

	gen.Reset("")
	if got := gen.Next(); got != "tag-1" {
		t.Fatalf("empty Reset should keep the prefix, got %q", got)
	}
}

func TestIDGeneratorDefaultsAndNilSafety(t *testing.T) {
	if got := NewIDGenerator("").Next(); got != "id-1" {
		t.Fatalf("empty prefix Next() = %q, want id-1", got)
	}

	var gen *IDGenerator
	if got := gen.NextFunc()(); got != "" {
		t.Fatalf("nil generator produced %q, want empty", got)
	}
}

func TestIDGeneratorConcurrentNextIsUnique(t *testing.T) {
	gen := NewIDGenerator("x")

	const workers, perWorker = 8, 50
	seen := make(chan string, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				seen <- gen.Next()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[string]struct{}, workers*perWorker)
	for id := range seen {
		if _, dup := unique[id]; dup {
			t.Fatalf("duplicate identifier %q", id)
		}
		unique[id] = struct{}{}
	}
}
