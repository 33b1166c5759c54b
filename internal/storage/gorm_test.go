package storage

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T, path string) *GormStore {
	t.Helper()
	store, err := NewGormStore(path)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCredentialLifecycle(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "client.db"))

	if _, ok, err := store.GetCredential(); err != nil || ok {
		t.Fatalf("Expected no credential on fresh store, got ok=%v err=%v", ok, err)
	}

	if err := store.SaveCredential("tok-1"); err != nil {
		t.Fatalf("SaveCredential failed: %v", err)
	}
	if err := store.SaveCredential("tok-2"); err != nil {
		t.Fatalf("SaveCredential overwrite failed: %v", err)
	}

	token, ok, err := store.GetCredential()
	if err != nil || !ok {
		t.Fatalf("Expected credential, got ok=%v err=%v", ok, err)
	}
	if token != "tok-2" {
		t.Errorf("Expected tok-2, got %s", token)
	}

	if err := store.DeleteCredential(); err != nil {
		t.Fatalf("DeleteCredential failed: %v", err)
	}
	if _, ok, _ := store.GetCredential(); ok {
		t.Error("Expected credential to be gone after delete")
	}

	// Deleting again is not an error.
	if err := store.DeleteCredential(); err != nil {
		t.Errorf("Second delete failed: %v", err)
	}
}

func TestCredentialSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.db")

	first, err := NewGormStore(path)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	if err := first.SaveCredential("persisted"); err != nil {
		t.Fatalf("SaveCredential failed: %v", err)
	}
	first.Close()

	second := newTestStore(t, path)
	token, ok, err := second.GetCredential()
	if err != nil || !ok || token != "persisted" {
		t.Errorf("Expected persisted credential, got %q ok=%v err=%v", token, ok, err)
	}
}

func TestSaveEmptyCredentialRejected(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "client.db"))
	if err := store.SaveCredential(""); err == nil {
		t.Error("Expected error saving empty credential")
	}
}
