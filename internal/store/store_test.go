package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// newTestStore creates an in-memory SQLite store for testing.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// backends returns every backend that can run without external services.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	out := map[string]Store{
		"sqlite": newTestStore(t),
		"memory": NewMemoryStore(),
	}
	if addr := os.Getenv("NUGGETS_TEST_REDIS_ADDR"); addr != "" {
		rs, err := NewRedisStore(context.Background(), RedisConfig{Addr: addr, Prefix: "nuggets-test:" + t.Name() + ":"})
		if err != nil {
			t.Fatalf("redis: %v", err)
		}
		t.Cleanup(func() { rs.Close() })
		out["redis"] = rs
	}
	return out
}

func TestNewSQLiteStore_CreatesTables(t *testing.T) {
	s := newTestStore(t)

	for _, table := range []string{"kv", "meta"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}

	v, err := s.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != schemaVersion {
		t.Fatalf("schema version = %q, want %q", v, schemaVersion)
	}

	done, err := s.isMetaFlagEnabled("schema_bootstrap_complete")
	if err != nil {
		t.Fatalf("isMetaFlagEnabled: %v", err)
	}
	if !done {
		t.Fatal("expected bootstrap flag to be set")
	}
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "nuggets.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Set(ctx, "user_highlights", []byte(`{"1":{}}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	got, ok, err := s.Get(ctx, "user_highlights")
	if err != nil || !ok {
		t.Fatalf("Get after reopen: ok=%v err=%v", ok, err)
	}
	if string(got) != `{"1":{}}` {
		t.Fatalf("value = %q", got)
	}
}

func TestStore_GetMissing(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			v, ok, err := s.Get(context.Background(), "nope")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if ok || v != nil {
				t.Fatalf("expected missing, got ok=%v v=%q", ok, v)
			}
		})
	}
}

func TestStore_SetOverwrites(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set(ctx, "k", []byte("one")); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := s.Set(ctx, "k", []byte("two")); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, ok, err := s.Get(ctx, "k")
			if err != nil || !ok {
				t.Fatalf("Get: ok=%v err=%v", ok, err)
			}
			if string(got) != "two" {
				t.Fatalf("value = %q, want two", got)
			}
		})
	}
}

func TestStore_SetMany(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := s.SetMany(ctx, map[string][]byte{
				"user_highlights":  []byte("h"),
				"user_preferences": []byte("p"),
				"reminder_state":   []byte("r"),
			})
			if err != nil {
				t.Fatalf("SetMany: %v", err)
			}
			for k, want := range map[string]string{"user_highlights": "h", "user_preferences": "p", "reminder_state": "r"} {
				got, ok, err := s.Get(ctx, k)
				if err != nil || !ok {
					t.Fatalf("Get(%s): ok=%v err=%v", k, ok, err)
				}
				if string(got) != want {
					t.Fatalf("Get(%s) = %q, want %q", k, got, want)
				}
			}
			if err := s.SetMany(ctx, nil); err != nil {
				t.Fatalf("empty SetMany: %v", err)
			}
		})
	}
}

func TestSQLiteStore_Keys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_ = s.SetMany(ctx, map[string][]byte{"b": []byte("1"), "a": []byte("2")})

	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("keys = %v", keys)
	}
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	buf := []byte("abc")
	_ = m.Set(ctx, "k", buf)
	buf[0] = 'z'

	got, _, _ := m.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("stored value mutated: %q", got)
	}
	got[0] = 'y'
	again, _, _ := m.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("returned value aliases storage: %q", again)
	}
}

func TestMemoryStore_Closed(t *testing.T) {
	m := NewMemoryStore()
	_ = m.Close()
	if _, _, err := m.Get(context.Background(), "k"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Get after close: %v", err)
	}
	if err := m.Set(context.Background(), "k", nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("Set after close: %v", err)
	}
}

func TestOpen_Backends(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Backend: "memory"})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("memory backend type = %T", s)
	}

	s, err = Open(ctx, Config{Backend: "SQLite", DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*SQLiteStore); !ok {
		t.Fatalf("sqlite backend type = %T", s)
	}

	if _, err := Open(ctx, Config{Backend: "etcd"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := expandPath("~/.nuggets/x.db"); got != filepath.Join(home, ".nuggets/x.db") {
		t.Fatalf("expandPath = %q", got)
	}
	if got := expandPath("/tmp/x.db"); got != "/tmp/x.db" {
		t.Fatalf("expandPath absolute = %q", got)
	}
}
