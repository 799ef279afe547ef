package channel

import (
	"encoding/json"
	"os"
	"strings"
	"sync"
	"testing"

	logx "hookrelay/pkg/logx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(t.TempDir(), logx.Nop())
	if err := s.Load("12345"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

func TestLoadSynthesizesDefault(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	c, ok := s.Get(DefaultID)
	if !ok {
		t.Fatal("default channel missing after first Load")
	}
	if c.Name != "Default" || c.Destination != "12345" {
		t.Fatalf("unexpected default channel: %+v", c)
	}
	if c.HasSecret() {
		t.Fatal("default channel must not carry a secret")
	}
	if _, err := os.Stat(s.Path()); err != nil {
		t.Fatalf("snapshot not persisted: %v", err)
	}
}

func TestCreateDeleteRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s := NewStore(dir, logx.Nop())
	if err := s.Load(""); err != nil {
		t.Fatalf("Load: %v", err)
	}

	c, err := s.Create("ci", "987", "s3cr3t")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.ID == "" || c.ID == DefaultID {
		t.Fatalf("bad id %q", c.ID)
	}

	// A fresh store over the same dir sees the persisted channel.
	s2 := NewStore(dir, logx.Nop())
	if err := s2.Load(""); err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, ok := s2.Get(c.ID)
	if !ok {
		t.Fatalf("channel %s not found after reload", c.ID)
	}
	if got.Name != "ci" || got.Destination != "987" || got.Secret != "s3cr3t" {
		t.Fatalf("unexpected channel after reload: %+v", got)
	}

	if err := s2.Delete(c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := s2.Get(c.ID); ok {
		t.Fatal("channel still present after Delete")
	}
	if err := s2.Delete(c.ID); err != ErrNotFound {
		t.Fatalf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestConcurrentCreatesYieldDistinctIDs(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	const n = 16
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := s.Create("c", "", "")
			if err != nil {
				t.Errorf("Create: %v", err)
				return
			}
			ids[i] = c.ID
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, id := range ids {
		if id == "" {
			continue
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
		if _, ok := s.Get(id); !ok {
			t.Fatalf("created channel %s missing from store", id)
		}
	}
	if len(seen) != n {
		t.Fatalf("got %d distinct ids, want %d", len(seen), n)
	}
	// All creates survived into the final list (no lost update).
	if got := s.Len(); got != n+1 {
		t.Fatalf("store has %d channels, want %d", got, n+1)
	}
}

func TestRedactedNeverExposesSecret(t *testing.T) {
	t.Parallel()
	c := Channel{ID: "abc", Name: "x", Secret: "topsecret"}
	b, err := json.Marshal(c.Redacted())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if want := `"has_secret":true`; !strings.Contains(string(b), want) {
		t.Fatalf("redacted json %s missing %s", b, want)
	}
	if strings.Contains(string(b), "topsecret") {
		t.Fatalf("redacted json leaks the secret: %s", b)
	}
	if !strings.Contains(string(b), `"url":"/hook/abc"`) {
		t.Fatalf("redacted json missing ingress url: %s", b)
	}
}
