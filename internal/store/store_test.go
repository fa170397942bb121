package store

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "reconciler.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStatementTextCache(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveStatementText("jan.txt", "hash-1", "statement body"); err != nil {
		t.Fatalf("save: %v", err)
	}

	text, ok, err := s.GetStatementText("jan.txt", "hash-1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if text != "statement body" {
		t.Errorf("text = %q", text)
	}

	// A changed hash invalidates the cache entry.
	if _, ok, _ := s.GetStatementText("jan.txt", "hash-2"); ok {
		t.Error("stale hash must miss")
	}
	if _, ok, _ := s.GetStatementText("absent.txt", "hash-1"); ok {
		t.Error("unknown file must miss")
	}

	// Saving again replaces the row.
	if err := s.SaveStatementText("jan.txt", "hash-2", "updated body"); err != nil {
		t.Fatalf("resave: %v", err)
	}
	text, ok, _ = s.GetStatementText("jan.txt", "hash-2")
	if !ok || text != "updated body" {
		t.Errorf("after resave: ok=%v text=%q", ok, text)
	}
}

func TestBoundaryAccounts(t *testing.T) {
	s := openTestStore(t)

	if err := s.AddBoundaryAccount("062000-12345678", "everyday"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.AddBoundaryAccount("733000-87654321", ""); err != nil {
		t.Fatalf("add: %v", err)
	}

	ids, err := s.ListBoundaryAccounts()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("ids = %v", ids)
	}

	if err := s.RemoveBoundaryAccount("062000-12345678"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	ids, _ = s.ListBoundaryAccounts()
	if len(ids) != 1 || ids[0] != "733000-87654321" {
		t.Errorf("after remove: %v", ids)
	}

	// Removing an absent account is not an error.
	if err := s.RemoveBoundaryAccount("nope"); err != nil {
		t.Errorf("remove absent: %v", err)
	}
}

func TestAliases(t *testing.T) {
	s := openTestStore(t)

	if err := s.SetAlias("john-smith-s-saver", "062000-12345678"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SetAlias("john-smith-s-saver", "062000-99999999"); err != nil {
		t.Fatalf("replace: %v", err)
	}

	aliases, err := s.Aliases()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if aliases["john-smith-s-saver"] != "062000-99999999" {
		t.Errorf("aliases = %v", aliases)
	}

	empty := openTestStore(t)
	aliases, err = empty.Aliases()
	if err != nil || len(aliases) != 0 {
		t.Errorf("fresh store aliases = %v, err = %v", aliases, err)
	}
}
