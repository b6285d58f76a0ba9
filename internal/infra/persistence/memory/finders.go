package memory

import (
	"sort"

	"imagingcore/pkg/domain"
)

// Committed-state read helpers. Each method takes the read lock once and
// answers from the current state, which is the store's single-round-trip
// contract for gets and lists.

// GetUser retrieves a user by ID from committed state.
func (s *Store) GetUser(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.state.users[id]
	return u, ok
}

// GetGroup retrieves a group by ID.
func (s *Store) GetGroup(id string) (Group, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.state.groups[id]
	return g, ok
}

// GetMembership retrieves the membership binding a user to a group.
func (s *Store) GetMembership(groupID, userID string) (Membership, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.state.memberships[membershipKey{GroupID: groupID, UserID: userID}]
	return m, ok
}

// GetRepository retrieves a repository by ID.
func (s *Store) GetRepository(id string) (Repository, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.state.repositories[id]
	return r, ok
}

// GetImport retrieves an import by ID.
func (s *Store) GetImport(id string) (Import, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.state.imports[id]
	return i, ok
}

// GetFileset retrieves a fileset by ID.
func (s *Store) GetFileset(id string) (Fileset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.state.filesets[id]
	return f, ok
}

// GetImage retrieves an image by ID.
func (s *Store) GetImage(id string) (Image, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.state.images[id]
	return img, ok
}

// ListUsers returns all users ordered by ID.
func (s *Store) ListUsers() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.state.users))
	for _, u := range s.state.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListGroups returns all groups ordered by ID.
func (s *Store) ListGroups() []Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Group, 0, len(s.state.groups))
	for _, g := range s.state.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListImports returns the imports under a repository ordered by ID. Listing
// against a nonexistent repository returns an empty sequence; existence of
// the parent is deliberately not enforced by list.
func (s *Store) ListImports(repositoryID string) []Import {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Import
	for _, i := range s.state.imports {
		if i.RepositoryID == repositoryID {
			out = append(out, i)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListFilesets returns the filesets under an import ordered by ID.
func (s *Store) ListFilesets(importID string) []Fileset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Fileset
	for _, f := range s.state.filesets {
		if f.ImportID == importID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListImages returns the images under a fileset ordered by ID.
func (s *Store) ListImages(filesetID string) []Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Image
	for _, img := range s.state.images {
		if img.FilesetID == filesetID {
			out = append(out, img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func listKeysInImport(state memoryState, importID string) []Key {
	var out []Key
	for _, k := range state.keys {
		if k.ImportID == importID {
			out = append(out, cloneKey(k))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ListKeysInImport returns every key in an import's namespace ordered by name.
func (s *Store) ListKeysInImport(importID string) []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listKeysInImport(s.state, importID)
}

// ListKeysInFileset returns the keys claimed by a fileset ordered by name.
func (s *Store) ListKeysInFileset(filesetID string) []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Key
	for _, k := range s.state.keys {
		if k.FilesetID != nil && *k.FilesetID == filesetID {
			out = append(out, cloneKey(k))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ListGrants returns every grant scoped to a repository, ordered by subject.
func (s *Store) ListGrants(repositoryID string) []Grant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Grant
	for _, g := range s.state.grants {
		if g.RepositoryID == repositoryID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubjectID < out[j].SubjectID })
	return out
}

// ListRepositoriesForUser returns the repositories a user can reach through
// grants. Direct grants are always included; when implied is set, grants
// held by any group the user belongs to are included as well.
func (s *Store) ListRepositoriesForUser(userID string, implied bool) []domain.RepositoryAccess {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.RepositoryAccess
	for _, g := range s.state.grants {
		if !s.grantReaches(g, userID, implied) {
			continue
		}
		repo, ok := s.state.repositories[g.RepositoryID]
		if !ok {
			continue
		}
		out = append(out, domain.RepositoryAccess{Grant: g, Repository: repo})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Repository.ID != out[j].Repository.ID {
			return out[i].Repository.ID < out[j].Repository.ID
		}
		return out[i].Grant.SubjectID < out[j].Grant.SubjectID
	})
	return out
}

func (s *Store) grantReaches(g Grant, userID string, implied bool) bool {
	switch g.SubjectKind {
	case domain.SubjectUser:
		return g.SubjectID == userID
	case domain.SubjectGroup:
		if !implied {
			return false
		}
		_, ok := s.state.memberships[membershipKey{GroupID: g.SubjectID, UserID: userID}]
		return ok
	}
	return false
}

// IsMember reports whether the user holds any membership in the group.
func (s *Store) IsMember(groupID, userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.state.memberships[membershipKey{GroupID: groupID, UserID: userID}]
	return ok
}

// IsOwner reports whether the user holds the Owner role in the group.
func (s *Store) IsOwner(groupID, userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.state.memberships[membershipKey{GroupID: groupID, UserID: userID}]
	return ok && m.Role == domain.RoleOwner
}

// HasPermission resolves the owning repository of the addressed resource by
// walking containment upward, then reports whether the user holds a grant at
// or above the required level, directly or through any group membership.
func (s *Store) HasPermission(userID string, kind domain.EntityType, resourceID string, required domain.Permission) (bool, error) {
	if !required.Valid() {
		return false, domain.InvalidEnumError{Field: "permission", Value: string(required)}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	repositoryID, err := s.resolveRepository(kind, resourceID)
	if err != nil {
		return false, err
	}
	for _, g := range s.state.grants {
		if g.RepositoryID != repositoryID {
			continue
		}
		if !g.Permission.Includes(required) {
			continue
		}
		switch g.SubjectKind {
		case domain.SubjectUser:
			if g.SubjectID == userID {
				return true, nil
			}
		case domain.SubjectGroup:
			if _, ok := s.state.memberships[membershipKey{GroupID: g.SubjectID, UserID: userID}]; ok {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *Store) resolveRepository(kind domain.EntityType, resourceID string) (string, error) {
	switch kind {
	case domain.EntityRepository:
		if _, ok := s.state.repositories[resourceID]; !ok {
			return "", domain.NotFoundError{Entity: domain.EntityRepository, ID: resourceID}
		}
		return resourceID, nil
	case domain.EntityImport:
		i, ok := s.state.imports[resourceID]
		if !ok {
			return "", domain.NotFoundError{Entity: domain.EntityImport, ID: resourceID}
		}
		return i.RepositoryID, nil
	case domain.EntityFileset:
		f, ok := s.state.filesets[resourceID]
		if !ok {
			return "", domain.NotFoundError{Entity: domain.EntityFileset, ID: resourceID}
		}
		return s.resolveRepository(domain.EntityImport, f.ImportID)
	case domain.EntityImage:
		img, ok := s.state.images[resourceID]
		if !ok {
			return "", domain.NotFoundError{Entity: domain.EntityImage, ID: resourceID}
		}
		return s.resolveRepository(domain.EntityFileset, img.FilesetID)
	}
	return "", domain.InvalidEnumError{Field: "entity_type", Value: string(kind)}
}
