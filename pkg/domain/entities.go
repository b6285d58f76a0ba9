// Package domain defines the core persistent entities, value types, and
// error conditions used by imagingcore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in persistence buckets and error conditions.
const (
	// EntityUser identifies a user record.
	EntityUser EntityType = "user"
	// EntityGroup identifies a group record.
	EntityGroup EntityType = "group"
	// EntityMembership identifies a group membership record.
	EntityMembership EntityType = "membership"
	// EntityRepository identifies a repository record.
	EntityRepository EntityType = "repository"
	// EntityGrant identifies a grant record.
	EntityGrant EntityType = "grant"
	// EntityImport identifies an import record.
	EntityImport EntityType = "import"
	// EntityKey identifies a raw-file key record.
	EntityKey EntityType = "key"
	// EntityFileset identifies a fileset record.
	EntityFileset EntityType = "fileset"
	// EntityImage identifies an image record.
	EntityImage EntityType = "image"
)

// Permission is a totally ordered grant level on a repository.
type Permission string

// Grant permission levels. Holding a higher level implies all lower capabilities.
const (
	PermissionRead  Permission = "Read"
	PermissionWrite Permission = "Write"
	PermissionAdmin Permission = "Admin"
)

var permissionLevels = map[Permission]int{
	PermissionRead:  0,
	PermissionWrite: 1,
	PermissionAdmin: 2,
}

// Valid reports whether the permission is a recognised level.
func (p Permission) Valid() bool {
	_, ok := permissionLevels[p]
	return ok
}

// Includes reports whether holding p satisfies a requirement of required.
func (p Permission) Includes(required Permission) bool {
	pl, ok := permissionLevels[p]
	if !ok {
		return false
	}
	rl, ok := permissionLevels[required]
	if !ok {
		return false
	}
	return pl >= rl
}

// ParsePermission validates a permission value, returning InvalidEnumError otherwise.
func ParsePermission(value string) (Permission, error) {
	p := Permission(value)
	if !p.Valid() {
		return "", InvalidEnumError{Field: "permission", Value: value}
	}
	return p, nil
}

// Role is the membership role a user holds within a group.
type Role string

// Membership roles. Owners administer the group; members merely belong to it.
const (
	RoleMember Role = "Member"
	RoleOwner  Role = "Owner"
)

// Valid reports whether the role is recognised.
func (r Role) Valid() bool { return r == RoleMember || r == RoleOwner }

// ParseRole validates a role value, returning InvalidEnumError otherwise.
func ParseRole(value string) (Role, error) {
	r := Role(value)
	if !r.Valid() {
		return "", InvalidEnumError{Field: "membership_type", Value: value}
	}
	return r, nil
}

// RawStorage is a repository's raw-file storage lifecycle policy. It is
// opaque to authorization and the claim engine; only its membership in the
// enumeration is enforced.
type RawStorage string

// Raw storage policies.
const (
	RawStorageStandard RawStorage = "Standard"
	RawStorageArchive  RawStorage = "Archive"
	RawStorageDestroy  RawStorage = "Destroy"
)

// Valid reports whether the policy is recognised.
func (r RawStorage) Valid() bool {
	switch r {
	case RawStorageStandard, RawStorageArchive, RawStorageDestroy:
		return true
	}
	return false
}

// ParseRawStorage validates a raw storage value, returning InvalidEnumError otherwise.
func ParseRawStorage(value string) (RawStorage, error) {
	r := RawStorage(value)
	if !r.Valid() {
		return "", InvalidEnumError{Field: "raw_storage", Value: value}
	}
	return r, nil
}

// SubjectKind distinguishes the two subject variants a grant may bind.
type SubjectKind string

// Grant subject kinds.
const (
	SubjectUser  SubjectKind = "user"
	SubjectGroup SubjectKind = "group"
)

// Base contains common fields for identified domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is an authentication principal. It carries no mutable attributes; the
// identifier is established externally and stored verbatim.
type User struct {
	Base
}

// Group is a named collection of users addressed by grants and memberships.
type Group struct {
	Base
	Name string `json:"name"`
}

// Membership binds a user to a group with a role. The (group, user) pair is
// the composite key; only the role is mutable.
type Membership struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
	Role    Role   `json:"membership_type"`
}

// Repository is the root of a containment subtree and the scope of grants.
type Repository struct {
	Base
	Name       string     `json:"name"`
	RawStorage RawStorage `json:"raw_storage"`
}

// Grant authorizes a subject (user or group) on a repository at a permission
// level. The (subject, repository) pair is unique.
type Grant struct {
	SubjectID    string      `json:"subject_id"`
	SubjectKind  SubjectKind `json:"subject_kind"`
	RepositoryID string      `json:"repository_id"`
	Permission   Permission  `json:"permission"`
}

// Import is a single ingestion session under a repository. Its key namespace
// scopes raw-file references.
type Import struct {
	Base
	Name         string `json:"name"`
	RepositoryID string `json:"repository_id"`
	Complete     bool   `json:"complete"`
}

// Key references one raw file within an import's namespace. A key is claimed
// by at most one fileset, and a claim is permanent.
type Key struct {
	ImportID  string  `json:"import_id"`
	Key       string  `json:"key"`
	FilesetID *string `json:"fileset_id"`
}

// Fileset groups a claimed subset of an import's keys that a reader can
// interpret as a unit.
type Fileset struct {
	Base
	Name           string `json:"name"`
	Reader         string `json:"reader"`
	ReaderSoftware string `json:"reader_software"`
	ReaderVersion  string `json:"reader_version"`
	Complete       bool   `json:"complete"`
	ImportID       string `json:"import_id"`
}

// Image is a renderable entity extracted from a fileset. PyramidLevels is
// opaque metadata passed through unchanged.
type Image struct {
	Base
	Name          string `json:"name"`
	PyramidLevels int    `json:"pyramid_levels"`
	FilesetID     string `json:"fileset_id"`
}

// RepositoryAccess pairs a grant with the repository it scopes, as returned
// by repository listing for a user.
type RepositoryAccess struct {
	Grant      Grant      `json:"grant"`
	Repository Repository `json:"repository"`
}
