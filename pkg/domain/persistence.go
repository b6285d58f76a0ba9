package domain

import "context"

// Transaction exposes the domain mutations a persistence implementation must
// support within a single atomic scope. Every method validates parent
// existence before any uniqueness constraint and leaves the transactional
// state untouched on error.
type Transaction interface {
	Snapshot() TransactionView

	CreateUser(User) (User, error)
	DeleteUser(id string) error

	CreateGroup(Group) (Group, error)
	DeleteGroup(id string) error

	CreateMembership(Membership) (Membership, error)
	UpdateMembership(groupID, userID string, mutator func(*Membership) error) (Membership, error)
	DeleteMembership(groupID, userID string) error

	CreateRepository(Repository) (Repository, error)
	UpdateRepository(id string, mutator func(*Repository) error) (Repository, error)
	DeleteRepository(id string) error

	CreateGrant(Grant) (Grant, error)
	DeleteGrant(subjectID, repositoryID string) error

	CreateImport(Import) (Import, error)
	UpdateImport(id string, mutator func(*Import) error) (Import, error)
	DeleteImport(id string) error

	// AddKeys introduces key names into an import's namespace, unclaimed.
	AddKeys(importID string, names []string) ([]Key, error)

	// CreateFileset inserts a fileset and atomically claims the named keys
	// within the parent import's namespace. Any absent or already-claimed key
	// fails the whole operation with KeyConflictError and no partial claim.
	CreateFileset(fileset Fileset, claims []string) (Fileset, error)
	UpdateFileset(id string, mutator func(*Fileset) error) (Fileset, error)
	DeleteFileset(id string) error

	CreateImage(Image) (Image, error)
	DeleteImage(id string) error

	FindUser(id string) (User, bool)
	FindGroup(id string) (Group, bool)
	FindRepository(id string) (Repository, bool)
	FindImport(id string) (Import, bool)
	FindFileset(id string) (Fileset, bool)
}

// TransactionView provides read-only access to the transactional snapshot.
type TransactionView interface {
	FindUser(id string) (User, bool)
	FindGroup(id string) (Group, bool)
	FindRepository(id string) (Repository, bool)
	FindImport(id string) (Import, bool)
	FindFileset(id string) (Fileset, bool)
	FindImage(id string) (Image, bool)
	FindMembership(groupID, userID string) (Membership, bool)
	ListKeys(importID string) []Key
}

// PersistentStore is a minimal abstraction over durable backends. Reads
// execute against committed state in a single round trip; authorization and
// membership predicates are pure and side-effect-free.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) error
	View(ctx context.Context, fn func(TransactionView) error) error

	GetUser(id string) (User, bool)
	GetGroup(id string) (Group, bool)
	GetMembership(groupID, userID string) (Membership, bool)
	GetRepository(id string) (Repository, bool)
	GetImport(id string) (Import, bool)
	GetFileset(id string) (Fileset, bool)
	GetImage(id string) (Image, bool)

	ListUsers() []User
	ListGroups() []Group
	ListImports(repositoryID string) []Import
	ListFilesets(importID string) []Fileset
	ListImages(filesetID string) []Image
	ListKeysInImport(importID string) []Key
	ListKeysInFileset(filesetID string) []Key
	ListGrants(repositoryID string) []Grant
	ListRepositoriesForUser(userID string, implied bool) []RepositoryAccess

	IsMember(groupID, userID string) bool
	IsOwner(groupID, userID string) bool

	// HasPermission resolves the owning repository of the addressed resource
	// and reports whether the user holds a grant, directly or through any
	// group membership, at or above the required level.
	HasPermission(userID string, kind EntityType, resourceID string, required Permission) (bool, error)
}
