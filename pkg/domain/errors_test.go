package domain

import (
	"fmt"
	"testing"
)

func TestErrorPredicatesMatchWrappedConditions(t *testing.T) {
	cases := []struct {
		err  error
		pred func(error) bool
	}{
		{NotFoundError{Entity: EntityRepository, ID: "r1"}, IsNotFound},
		{DuplicateError{Entity: EntityImport, Field: "name"}, IsDuplicate},
		{InvalidEnumError{Field: "raw_storage", Value: "x"}, IsInvalidEnum},
		{KeyConflictError{ImportID: "i1", Keys: []string{"k1"}}, IsKeyConflict},
		{InvalidStateError{Reason: "images without complete"}, IsInvalidState},
	}
	for _, tc := range cases {
		if !tc.pred(tc.err) {
			t.Fatalf("predicate rejected %v", tc.err)
		}
		wrapped := fmt.Errorf("run transaction: %w", tc.err)
		if !tc.pred(wrapped) {
			t.Fatalf("predicate rejected wrapped %v", wrapped)
		}
	}
	if IsNotFound(DuplicateError{Entity: EntityUser, Field: "id"}) {
		t.Fatalf("predicates must not cross-match")
	}
}

func TestConditionMessages(t *testing.T) {
	if got := (NotFoundError{Entity: EntityUser, ID: "u1"}).Error(); got != "user u1 not found" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := (KeyConflictError{ImportID: "i1", Keys: []string{"k1", "k2"}}).Error(); got != "keys [k1, k2] of import i1 absent or already claimed" {
		t.Fatalf("unexpected message %q", got)
	}
}
