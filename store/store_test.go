package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// openStores returns one store per backend, each in its own temp dir.
func openStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	f, err := OpenFile(filepath.Join(dir, "settings.json"))
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	db, err := OpenSQLite(filepath.Join(dir, "settings.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		f.Close()
		db.Close()
	})
	return map[string]Store{"file": f, "sqlite": db}
}

func TestMergeIsShallow(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Merge(ctx, map[string]json.RawMessage{
				"token": json.RawMessage(`"abc"`),
				"books": json.RawMessage(`{"a":1,"b":2}`),
			})
			if err != nil {
				t.Fatalf("Merge: %v", err)
			}
			err = s.Merge(ctx, map[string]json.RawMessage{
				"books": json.RawMessage(`{"c":3}`),
			})
			if err != nil {
				t.Fatalf("Merge: %v", err)
			}

			var books map[string]int
			ok, err := GetJSON(ctx, s, "books", &books)
			if err != nil || !ok {
				t.Fatalf("GetJSON(books) = %v, %v", ok, err)
			}
			if len(books) != 1 || books["c"] != 3 {
				t.Errorf("books = %v; want map[c:3]", books)
			}

			var token string
			if ok, err := GetJSON(ctx, s, "token", &token); err != nil || !ok || token != "abc" {
				t.Errorf("token = %q (%v, %v); want %q", token, ok, err, "abc")
			}
		})
	}
}

func TestGetMissing(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			v, ok, err := s.Get(ctx, "nope")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if ok || v != nil {
				t.Errorf("Get(nope) = %s, %v; want nil, false", v, ok)
			}
		})
	}
}

func TestAll(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := SetJSON(ctx, s, "a", 1); err != nil {
				t.Fatal(err)
			}
			if err := SetJSON(ctx, s, "b", []string{"x"}); err != nil {
				t.Fatal(err)
			}
			all, err := s.All(ctx)
			if err != nil {
				t.Fatalf("All: %v", err)
			}
			if len(all) != 2 {
				t.Fatalf("All() has %d keys; want 2", len(all))
			}
			if string(all["a"]) != "1" {
				t.Errorf("All()[a] = %s; want 1", all["a"])
			}
		})
	}
}

func TestMergeRejectsInvalidJSON(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Merge(ctx, map[string]json.RawMessage{"bad": json.RawMessage(`{`)})
			if err == nil {
				t.Fatal("Merge accepted invalid JSON")
			}
			if _, ok, _ := s.Get(ctx, "bad"); ok {
				t.Error("invalid value was stored")
			}
		})
	}
}

func TestClosed(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}
			if _, _, err := s.Get(ctx, "a"); !errors.Is(err, ErrClosed) {
				t.Errorf("Get after Close = %v; want ErrClosed", err)
			}
			if err := SetJSON(ctx, s, "a", 1); !errors.Is(err, ErrClosed) {
				t.Errorf("Merge after Close = %v; want ErrClosed", err)
			}
		})
	}
}

func TestConcurrentMerge(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			keys := []string{"k0", "k1", "k2", "k3", "k4", "k5", "k6", "k7"}
			for i, k := range keys {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := SetJSON(ctx, s, k, i); err != nil {
						t.Errorf("SetJSON(%s): %v", k, err)
					}
				}()
			}
			wg.Wait()

			all, err := s.All(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(all) != len(keys) {
				t.Errorf("All() has %d keys; want %d", len(all), len(keys))
			}
		})
	}
}

func TestFileStorePersists(t *testing.T) {
	ctx := context.Background()
	p := filepath.Join(t.TempDir(), "nested", "settings.json")

	f, err := OpenFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if err := SetJSON(ctx, f, "lang", "ar"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("settings file not written: %v", err)
	}
	var doc map[string]string
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("settings file is not JSON: %v", err)
	}
	if doc["lang"] != "ar" {
		t.Errorf("lang = %q; want %q", doc["lang"], "ar")
	}

	again, _ := OpenFile(p)
	var lang string
	if ok, err := GetJSON(ctx, again, "lang", &lang); err != nil || !ok || lang != "ar" {
		t.Errorf("reopened lang = %q (%v, %v); want %q", lang, ok, err, "ar")
	}
}

func TestFileStoreEmptyFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(p, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	f, _ := OpenFile(p)
	all, err := f.All(context.Background())
	if err != nil {
		t.Fatalf("All on empty file: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("All() = %v; want empty", all)
	}
}

func TestSQLiteMemory(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite(:memory:): %v", err)
	}
	defer s.Close()

	if err := SetJSON(ctx, s, "x", true); err != nil {
		t.Fatal(err)
	}
	if err := SetJSON(ctx, s, "x", false); err != nil {
		t.Fatal(err)
	}
	var x bool
	if ok, err := GetJSON(ctx, s, "x", &x); err != nil || !ok || x {
		t.Errorf("x = %v (%v, %v); want false", x, ok, err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("redis", "x"); err == nil {
		t.Error("Open(redis) succeeded; want error")
	}
}
