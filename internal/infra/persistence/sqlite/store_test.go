package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"imagingcore/pkg/domain"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPersistAndReloadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogue.db")
	ctx := context.Background()

	store := openStore(t, path)
	err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateUser(domain.User{Base: domain.Base{ID: "u1"}}); err != nil {
			return err
		}
		repo, err := tx.CreateRepository(domain.Repository{Base: domain.Base{ID: "r1"}, Name: "repo", RawStorage: domain.RawStorageStandard})
		if err != nil {
			return err
		}
		if _, err := tx.CreateGrant(domain.Grant{SubjectID: "u1", SubjectKind: domain.SubjectUser, RepositoryID: repo.ID, Permission: domain.PermissionAdmin}); err != nil {
			return err
		}
		imp, err := tx.CreateImport(domain.Import{Base: domain.Base{ID: "i1"}, Name: "import", RepositoryID: repo.ID})
		if err != nil {
			return err
		}
		if _, err := tx.AddKeys(imp.ID, []string{"k1", "k2"}); err != nil {
			return err
		}
		_, err = tx.CreateFileset(domain.Fileset{Base: domain.Base{ID: "f1"}, Name: "fileset", Reader: "tiff", ImportID: imp.ID}, []string{"k1"})
		return err
	})
	if err != nil {
		t.Fatalf("RunInTransaction: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openStore(t, path)
	if _, ok := reopened.GetUser("u1"); !ok {
		t.Fatalf("expected user after reload")
	}
	if _, ok := reopened.GetFileset("f1"); !ok {
		t.Fatalf("expected fileset after reload")
	}
	claimed := reopened.ListKeysInFileset("f1")
	if len(claimed) != 1 || claimed[0].Key != "k1" {
		t.Fatalf("expected claim restored after reload, got %+v", claimed)
	}
	ok, err := reopened.HasPermission("u1", domain.EntityFileset, "f1", domain.PermissionAdmin)
	if err != nil || !ok {
		t.Fatalf("expected grant restored after reload, ok=%v err=%v", ok, err)
	}
}

func TestUserErrorDoesNotPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogue.db")
	ctx := context.Background()

	store := openStore(t, path)
	userErr := fmt.Errorf("user fail")
	err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateUser(domain.User{Base: domain.Base{ID: "ghost"}}); err != nil {
			return err
		}
		return userErr
	})
	if !errors.Is(err, userErr) {
		t.Fatalf("expected user error to propagate, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openStore(t, path)
	if _, ok := reopened.GetUser("ghost"); ok {
		t.Fatalf("rolled-back user must not be persisted")
	}
}

func TestConflictKeepsDatabaseConsistent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogue.db")
	ctx := context.Background()

	store := openStore(t, path)
	err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		repo, err := tx.CreateRepository(domain.Repository{Base: domain.Base{ID: "r1"}, Name: "repo", RawStorage: domain.RawStorageStandard})
		if err != nil {
			return err
		}
		imp, err := tx.CreateImport(domain.Import{Base: domain.Base{ID: "i1"}, Name: "import", RepositoryID: repo.ID})
		if err != nil {
			return err
		}
		if _, err := tx.AddKeys(imp.ID, []string{"k1"}); err != nil {
			return err
		}
		_, err = tx.CreateFileset(domain.Fileset{Base: domain.Base{ID: "f1"}, Name: "fileset", Reader: "tiff", ImportID: imp.ID}, []string{"k1"})
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateFileset(domain.Fileset{Base: domain.Base{ID: "f2"}, Name: "loser", Reader: "tiff", ImportID: "i1"}, []string{"k1"})
		return err
	})
	if !domain.IsKeyConflict(err) {
		t.Fatalf("expected key conflict, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openStore(t, path)
	if _, ok := reopened.GetFileset("f2"); ok {
		t.Fatalf("losing fileset must not be persisted")
	}
	keys := reopened.ListKeysInImport("i1")
	if len(keys) != 1 || keys[0].FilesetID == nil || *keys[0].FilesetID != "f1" {
		t.Fatalf("expected claim held by f1 after reload, got %+v", keys)
	}
}

func TestNewStoreCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "catalogue.db")
	store := openStore(t, path)
	if store.Path() != path {
		t.Fatalf("unexpected path %q", store.Path())
	}
	if err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateUser(domain.User{Base: domain.Base{ID: "u1"}})
		return err
	}); err != nil {
		t.Fatalf("RunInTransaction: %v", err)
	}
}
