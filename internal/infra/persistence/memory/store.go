// Package memory provides the canonical in-memory implementation of the core
// persistence store. Transactions operate on a clone of the committed state
// and are serialized under a single writer lock, which gives the claim engine
// the isolation it needs without extra coordination.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"imagingcore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// User aliases domain.User for in-memory persistence operations.
	User = domain.User
	// Group aliases domain.Group.
	Group = domain.Group
	// Membership aliases domain.Membership.
	Membership = domain.Membership
	// Repository aliases domain.Repository.
	Repository = domain.Repository
	// Grant aliases domain.Grant.
	Grant = domain.Grant
	// Import aliases domain.Import.
	Import = domain.Import
	// Key aliases domain.Key.
	Key = domain.Key
	// Fileset aliases domain.Fileset.
	Fileset = domain.Fileset
	// Image aliases domain.Image.
	Image = domain.Image
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases the domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

type membershipKey struct {
	GroupID string
	UserID  string
}

type grantKey struct {
	SubjectID    string
	SubjectKind  domain.SubjectKind
	RepositoryID string
}

type rawKey struct {
	ImportID string
	Name     string
}

type memoryState struct {
	users        map[string]User
	groups       map[string]Group
	memberships  map[membershipKey]Membership
	repositories map[string]Repository
	grants       map[grantKey]Grant
	imports      map[string]Import
	keys         map[rawKey]Key
	filesets     map[string]Fileset
	images       map[string]Image
}

func newMemoryState() memoryState {
	return memoryState{
		users:        make(map[string]User),
		groups:       make(map[string]Group),
		memberships:  make(map[membershipKey]Membership),
		repositories: make(map[string]Repository),
		grants:       make(map[grantKey]Grant),
		imports:      make(map[string]Import),
		keys:         make(map[rawKey]Key),
		filesets:     make(map[string]Fileset),
		images:       make(map[string]Image),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.users {
		cloned.users[k] = v
	}
	for k, v := range s.groups {
		cloned.groups[k] = v
	}
	for k, v := range s.memberships {
		cloned.memberships[k] = v
	}
	for k, v := range s.repositories {
		cloned.repositories[k] = v
	}
	for k, v := range s.grants {
		cloned.grants[k] = v
	}
	for k, v := range s.imports {
		cloned.imports[k] = v
	}
	for k, v := range s.keys {
		cloned.keys[k] = cloneKey(v)
	}
	for k, v := range s.filesets {
		cloned.filesets[k] = v
	}
	for k, v := range s.images {
		cloned.images[k] = v
	}
	return cloned
}

func cloneKey(k Key) Key {
	cp := k
	if k.FilesetID != nil {
		id := *k.FilesetID
		cp.FilesetID = &id
	}
	return cp
}

// Snapshot captures a point-in-time clone of the store state. Composite-key
// rows are flattened to slices so the snapshot serializes cleanly.
type Snapshot struct {
	Users        map[string]User       `json:"users"`
	Groups       map[string]Group      `json:"groups"`
	Memberships  []Membership          `json:"memberships"`
	Repositories map[string]Repository `json:"repositories"`
	Grants       []Grant               `json:"grants"`
	Imports      map[string]Import     `json:"imports"`
	Keys         []Key                 `json:"keys"`
	Filesets     map[string]Fileset    `json:"filesets"`
	Images       map[string]Image      `json:"images"`
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Users:        make(map[string]User, len(state.users)),
		Groups:       make(map[string]Group, len(state.groups)),
		Memberships:  make([]Membership, 0, len(state.memberships)),
		Repositories: make(map[string]Repository, len(state.repositories)),
		Grants:       make([]Grant, 0, len(state.grants)),
		Imports:      make(map[string]Import, len(state.imports)),
		Keys:         make([]Key, 0, len(state.keys)),
		Filesets:     make(map[string]Fileset, len(state.filesets)),
		Images:       make(map[string]Image, len(state.images)),
	}
	for k, v := range state.users {
		s.Users[k] = v
	}
	for k, v := range state.groups {
		s.Groups[k] = v
	}
	for _, v := range state.memberships {
		s.Memberships = append(s.Memberships, v)
	}
	for k, v := range state.repositories {
		s.Repositories[k] = v
	}
	for _, v := range state.grants {
		s.Grants = append(s.Grants, v)
	}
	for k, v := range state.imports {
		s.Imports[k] = v
	}
	for _, v := range state.keys {
		s.Keys = append(s.Keys, cloneKey(v))
	}
	for k, v := range state.filesets {
		s.Filesets[k] = v
	}
	for k, v := range state.images {
		s.Images[k] = v
	}
	sort.Slice(s.Memberships, func(i, j int) bool {
		if s.Memberships[i].GroupID != s.Memberships[j].GroupID {
			return s.Memberships[i].GroupID < s.Memberships[j].GroupID
		}
		return s.Memberships[i].UserID < s.Memberships[j].UserID
	})
	sort.Slice(s.Grants, func(i, j int) bool {
		if s.Grants[i].RepositoryID != s.Grants[j].RepositoryID {
			return s.Grants[i].RepositoryID < s.Grants[j].RepositoryID
		}
		return s.Grants[i].SubjectID < s.Grants[j].SubjectID
	})
	sort.Slice(s.Keys, func(i, j int) bool {
		if s.Keys[i].ImportID != s.Keys[j].ImportID {
			return s.Keys[i].ImportID < s.Keys[j].ImportID
		}
		return s.Keys[i].Key < s.Keys[j].Key
	})
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Users {
		state.users[k] = v
	}
	for k, v := range s.Groups {
		state.groups[k] = v
	}
	for _, v := range s.Memberships {
		state.memberships[membershipKey{GroupID: v.GroupID, UserID: v.UserID}] = v
	}
	for k, v := range s.Repositories {
		state.repositories[k] = v
	}
	for _, v := range s.Grants {
		state.grants[grantKey{SubjectID: v.SubjectID, SubjectKind: v.SubjectKind, RepositoryID: v.RepositoryID}] = v
	}
	for k, v := range s.Imports {
		state.imports[k] = v
	}
	for _, v := range s.Keys {
		state.keys[rawKey{ImportID: v.ImportID, Name: v.Key}] = cloneKey(v)
	}
	for k, v := range s.Filesets {
		state.filesets[k] = v
	}
	for k, v := range s.Images {
		state.images[k] = v
	}
	return state
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu    sync.RWMutex
	state memoryState
	nowFn func() time.Time
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		state: newMemoryState(),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// RunInTransaction executes fn within a transactional copy of the store
// state. The copy is committed only when fn returns nil, so a failing
// operation leaves the committed state exactly as it was.
func (s *Store) RunInTransaction(ctx context.Context, fn func(Transaction) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(ctx context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(newTransactionView(&snapshot))
}

type transaction struct {
	store *Store
	state memoryState
	now   time.Time
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// CreateUser stores a new user within the transaction.
func (tx *transaction) CreateUser(u User) (User, error) {
	if u.ID == "" {
		u.ID = tx.store.newID()
	}
	if _, exists := tx.state.users[u.ID]; exists {
		return User{}, domain.DuplicateError{Entity: domain.EntityUser, Field: "id"}
	}
	u.CreatedAt = tx.now
	u.UpdatedAt = tx.now
	tx.state.users[u.ID] = u
	return u, nil
}

// DeleteUser removes a user along with its memberships and grants. Groups the
// user belonged to survive.
func (tx *transaction) DeleteUser(id string) error {
	if _, ok := tx.state.users[id]; !ok {
		return domain.NotFoundError{Entity: domain.EntityUser, ID: id}
	}
	delete(tx.state.users, id)
	for mk := range tx.state.memberships {
		if mk.UserID == id {
			delete(tx.state.memberships, mk)
		}
	}
	for gk, g := range tx.state.grants {
		if g.SubjectKind == domain.SubjectUser && g.SubjectID == id {
			delete(tx.state.grants, gk)
		}
	}
	return nil
}

// CreateGroup stores a new group. Group names are globally unique.
func (tx *transaction) CreateGroup(g Group) (Group, error) {
	if g.ID == "" {
		g.ID = tx.store.newID()
	}
	if _, exists := tx.state.groups[g.ID]; exists {
		return Group{}, domain.DuplicateError{Entity: domain.EntityGroup, Field: "id"}
	}
	for _, other := range tx.state.groups {
		if other.Name == g.Name {
			return Group{}, domain.DuplicateError{Entity: domain.EntityGroup, Field: "name"}
		}
	}
	g.CreatedAt = tx.now
	g.UpdatedAt = tx.now
	tx.state.groups[g.ID] = g
	return g, nil
}

// DeleteGroup removes a group along with its memberships and grants. Users
// survive.
func (tx *transaction) DeleteGroup(id string) error {
	if _, ok := tx.state.groups[id]; !ok {
		return domain.NotFoundError{Entity: domain.EntityGroup, ID: id}
	}
	delete(tx.state.groups, id)
	for mk := range tx.state.memberships {
		if mk.GroupID == id {
			delete(tx.state.memberships, mk)
		}
	}
	for gk, g := range tx.state.grants {
		if g.SubjectKind == domain.SubjectGroup && g.SubjectID == id {
			delete(tx.state.grants, gk)
		}
	}
	return nil
}

// CreateMembership binds a user to a group. Both endpoints must exist before
// the pair's uniqueness is considered.
func (tx *transaction) CreateMembership(m Membership) (Membership, error) {
	if _, ok := tx.state.groups[m.GroupID]; !ok {
		return Membership{}, domain.NotFoundError{Entity: domain.EntityGroup, ID: m.GroupID}
	}
	if _, ok := tx.state.users[m.UserID]; !ok {
		return Membership{}, domain.NotFoundError{Entity: domain.EntityUser, ID: m.UserID}
	}
	if !m.Role.Valid() {
		return Membership{}, domain.InvalidEnumError{Field: "membership_type", Value: string(m.Role)}
	}
	mk := membershipKey{GroupID: m.GroupID, UserID: m.UserID}
	if _, exists := tx.state.memberships[mk]; exists {
		return Membership{}, domain.DuplicateError{Entity: domain.EntityMembership, Field: "(group_id, user_id)"}
	}
	tx.state.memberships[mk] = m
	return m, nil
}

// UpdateMembership mutates an existing membership, typically a role change.
func (tx *transaction) UpdateMembership(groupID, userID string, mutator func(*Membership) error) (Membership, error) {
	mk := membershipKey{GroupID: groupID, UserID: userID}
	current, ok := tx.state.memberships[mk]
	if !ok {
		return Membership{}, domain.NotFoundError{Entity: domain.EntityMembership, ID: groupID + "/" + userID}
	}
	if err := mutator(&current); err != nil {
		return Membership{}, err
	}
	current.GroupID = groupID
	current.UserID = userID
	if !current.Role.Valid() {
		return Membership{}, domain.InvalidEnumError{Field: "membership_type", Value: string(current.Role)}
	}
	tx.state.memberships[mk] = current
	return current, nil
}

// DeleteMembership removes a membership; both endpoints survive.
func (tx *transaction) DeleteMembership(groupID, userID string) error {
	mk := membershipKey{GroupID: groupID, UserID: userID}
	if _, ok := tx.state.memberships[mk]; !ok {
		return domain.NotFoundError{Entity: domain.EntityMembership, ID: groupID + "/" + userID}
	}
	delete(tx.state.memberships, mk)
	return nil
}

// CreateRepository stores a new repository. Names are globally unique and the
// raw storage policy must be a member of its enumeration.
func (tx *transaction) CreateRepository(r Repository) (Repository, error) {
	if r.ID == "" {
		r.ID = tx.store.newID()
	}
	if r.RawStorage == "" {
		r.RawStorage = domain.RawStorageStandard
	}
	if !r.RawStorage.Valid() {
		return Repository{}, domain.InvalidEnumError{Field: "raw_storage", Value: string(r.RawStorage)}
	}
	if _, exists := tx.state.repositories[r.ID]; exists {
		return Repository{}, domain.DuplicateError{Entity: domain.EntityRepository, Field: "id"}
	}
	for _, other := range tx.state.repositories {
		if other.Name == r.Name {
			return Repository{}, domain.DuplicateError{Entity: domain.EntityRepository, Field: "name"}
		}
	}
	r.CreatedAt = tx.now
	r.UpdatedAt = tx.now
	tx.state.repositories[r.ID] = r
	return r, nil
}

// UpdateRepository mutates a repository's name or raw storage policy.
func (tx *transaction) UpdateRepository(id string, mutator func(*Repository) error) (Repository, error) {
	current, ok := tx.state.repositories[id]
	if !ok {
		return Repository{}, domain.NotFoundError{Entity: domain.EntityRepository, ID: id}
	}
	if err := mutator(&current); err != nil {
		return Repository{}, err
	}
	current.ID = id
	if !current.RawStorage.Valid() {
		return Repository{}, domain.InvalidEnumError{Field: "raw_storage", Value: string(current.RawStorage)}
	}
	for otherID, other := range tx.state.repositories {
		if otherID != id && other.Name == current.Name {
			return Repository{}, domain.DuplicateError{Entity: domain.EntityRepository, Field: "name"}
		}
	}
	current.UpdatedAt = tx.now
	tx.state.repositories[id] = current
	return current, nil
}

// DeleteRepository removes the repository and, transitively, every import,
// fileset, image, and key it contains plus every grant scoped to it. Users
// and groups are never deleted.
func (tx *transaction) DeleteRepository(id string) error {
	if _, ok := tx.state.repositories[id]; !ok {
		return domain.NotFoundError{Entity: domain.EntityRepository, ID: id}
	}
	for importID, imp := range tx.state.imports {
		if imp.RepositoryID == id {
			tx.deleteImportContents(importID)
			delete(tx.state.imports, importID)
		}
	}
	for gk, g := range tx.state.grants {
		if g.RepositoryID == id {
			delete(tx.state.grants, gk)
		}
	}
	delete(tx.state.repositories, id)
	return nil
}

// CreateGrant authorizes a subject on a repository. The repository and the
// subject must both exist.
func (tx *transaction) CreateGrant(g Grant) (Grant, error) {
	if _, ok := tx.state.repositories[g.RepositoryID]; !ok {
		return Grant{}, domain.NotFoundError{Entity: domain.EntityRepository, ID: g.RepositoryID}
	}
	switch g.SubjectKind {
	case domain.SubjectUser:
		if _, ok := tx.state.users[g.SubjectID]; !ok {
			return Grant{}, domain.NotFoundError{Entity: domain.EntityUser, ID: g.SubjectID}
		}
	case domain.SubjectGroup:
		if _, ok := tx.state.groups[g.SubjectID]; !ok {
			return Grant{}, domain.NotFoundError{Entity: domain.EntityGroup, ID: g.SubjectID}
		}
	default:
		return Grant{}, domain.InvalidEnumError{Field: "subject_kind", Value: string(g.SubjectKind)}
	}
	if !g.Permission.Valid() {
		return Grant{}, domain.InvalidEnumError{Field: "permission", Value: string(g.Permission)}
	}
	gk := grantKey{SubjectID: g.SubjectID, SubjectKind: g.SubjectKind, RepositoryID: g.RepositoryID}
	if _, exists := tx.state.grants[gk]; exists {
		return Grant{}, domain.DuplicateError{Entity: domain.EntityGrant, Field: "(subject_id, subject_kind, repository_id)"}
	}
	tx.state.grants[gk] = g
	return g, nil
}

// DeleteGrant removes a subject's grant on a repository. Subject IDs are
// unique across kinds, so the pair addresses at most one row.
func (tx *transaction) DeleteGrant(subjectID, repositoryID string) error {
	for gk := range tx.state.grants {
		if gk.SubjectID == subjectID && gk.RepositoryID == repositoryID {
			delete(tx.state.grants, gk)
			return nil
		}
	}
	return domain.NotFoundError{Entity: domain.EntityGrant, ID: subjectID + "/" + repositoryID}
}

// CreateImport stores an ingestion session under an existing repository.
func (tx *transaction) CreateImport(i Import) (Import, error) {
	if _, ok := tx.state.repositories[i.RepositoryID]; !ok {
		return Import{}, domain.NotFoundError{Entity: domain.EntityRepository, ID: i.RepositoryID}
	}
	if i.ID == "" {
		i.ID = tx.store.newID()
	}
	if _, exists := tx.state.imports[i.ID]; exists {
		return Import{}, domain.DuplicateError{Entity: domain.EntityImport, Field: "id"}
	}
	for _, other := range tx.state.imports {
		if other.Name == i.Name {
			return Import{}, domain.DuplicateError{Entity: domain.EntityImport, Field: "name"}
		}
	}
	i.CreatedAt = tx.now
	i.UpdatedAt = tx.now
	tx.state.imports[i.ID] = i
	return i, nil
}

// UpdateImport mutates an import's name or completion flag.
func (tx *transaction) UpdateImport(id string, mutator func(*Import) error) (Import, error) {
	current, ok := tx.state.imports[id]
	if !ok {
		return Import{}, domain.NotFoundError{Entity: domain.EntityImport, ID: id}
	}
	if err := mutator(&current); err != nil {
		return Import{}, err
	}
	current.ID = id
	for otherID, other := range tx.state.imports {
		if otherID != id && other.Name == current.Name {
			return Import{}, domain.DuplicateError{Entity: domain.EntityImport, Field: "name"}
		}
	}
	current.UpdatedAt = tx.now
	tx.state.imports[id] = current
	return current, nil
}

// DeleteImport removes an import and its keys, filesets, and images.
func (tx *transaction) DeleteImport(id string) error {
	if _, ok := tx.state.imports[id]; !ok {
		return domain.NotFoundError{Entity: domain.EntityImport, ID: id}
	}
	tx.deleteImportContents(id)
	delete(tx.state.imports, id)
	return nil
}

func (tx *transaction) deleteImportContents(importID string) {
	for rk := range tx.state.keys {
		if rk.ImportID == importID {
			delete(tx.state.keys, rk)
		}
	}
	for filesetID, fs := range tx.state.filesets {
		if fs.ImportID == importID {
			for imageID, img := range tx.state.images {
				if img.FilesetID == filesetID {
					delete(tx.state.images, imageID)
				}
			}
			delete(tx.state.filesets, filesetID)
		}
	}
}

// AddKeys introduces raw-file key names into an import's namespace. Each name
// must be new within that import; names are scoped per import, not globally.
func (tx *transaction) AddKeys(importID string, names []string) ([]Key, error) {
	if _, ok := tx.state.imports[importID]; !ok {
		return nil, domain.NotFoundError{Entity: domain.EntityImport, ID: importID}
	}
	for _, name := range names {
		if _, exists := tx.state.keys[rawKey{ImportID: importID, Name: name}]; exists {
			return nil, domain.DuplicateError{Entity: domain.EntityKey, Field: "key"}
		}
	}
	created := make([]Key, 0, len(names))
	for _, name := range names {
		k := Key{ImportID: importID, Key: name}
		tx.state.keys[rawKey{ImportID: importID, Name: name}] = k
		created = append(created, k)
	}
	return created, nil
}

// CreateFileset inserts a fileset and claims the named keys within the parent
// import's namespace. The claim is all-or-nothing: any absent or already
// claimed key aborts the whole operation with KeyConflictError before the
// fileset row is inserted.
func (tx *transaction) CreateFileset(fs Fileset, claims []string) (Fileset, error) {
	if _, ok := tx.state.imports[fs.ImportID]; !ok {
		return Fileset{}, domain.NotFoundError{Entity: domain.EntityImport, ID: fs.ImportID}
	}
	var conflicts []string
	for _, name := range claims {
		k, exists := tx.state.keys[rawKey{ImportID: fs.ImportID, Name: name}]
		if !exists || k.FilesetID != nil {
			conflicts = append(conflicts, name)
		}
	}
	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return Fileset{}, domain.KeyConflictError{ImportID: fs.ImportID, Keys: conflicts}
	}
	if fs.ID == "" {
		fs.ID = tx.store.newID()
	}
	if _, exists := tx.state.filesets[fs.ID]; exists {
		return Fileset{}, domain.DuplicateError{Entity: domain.EntityFileset, Field: "id"}
	}
	fs.CreatedAt = tx.now
	fs.UpdatedAt = tx.now
	tx.state.filesets[fs.ID] = fs
	for _, name := range claims {
		rk := rawKey{ImportID: fs.ImportID, Name: name}
		k := tx.state.keys[rk]
		id := fs.ID
		k.FilesetID = &id
		tx.state.keys[rk] = k
	}
	return fs, nil
}

// UpdateFileset mutates a fileset record.
func (tx *transaction) UpdateFileset(id string, mutator func(*Fileset) error) (Fileset, error) {
	current, ok := tx.state.filesets[id]
	if !ok {
		return Fileset{}, domain.NotFoundError{Entity: domain.EntityFileset, ID: id}
	}
	if err := mutator(&current); err != nil {
		return Fileset{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.filesets[id] = current
	return current, nil
}

// DeleteFileset removes a fileset, its images, and the keys it had claimed.
// Claims are permanent, so the key rows die with their owner rather than
// returning to the unclaimed pool.
func (tx *transaction) DeleteFileset(id string) error {
	if _, ok := tx.state.filesets[id]; !ok {
		return domain.NotFoundError{Entity: domain.EntityFileset, ID: id}
	}
	for imageID, img := range tx.state.images {
		if img.FilesetID == id {
			delete(tx.state.images, imageID)
		}
	}
	for rk, k := range tx.state.keys {
		if k.FilesetID != nil && *k.FilesetID == id {
			delete(tx.state.keys, rk)
		}
	}
	delete(tx.state.filesets, id)
	return nil
}

// CreateImage attaches an image to an existing fileset.
func (tx *transaction) CreateImage(img Image) (Image, error) {
	if _, ok := tx.state.filesets[img.FilesetID]; !ok {
		return Image{}, domain.NotFoundError{Entity: domain.EntityFileset, ID: img.FilesetID}
	}
	if img.ID == "" {
		img.ID = tx.store.newID()
	}
	if _, exists := tx.state.images[img.ID]; exists {
		return Image{}, domain.DuplicateError{Entity: domain.EntityImage, Field: "id"}
	}
	img.CreatedAt = tx.now
	img.UpdatedAt = tx.now
	tx.state.images[img.ID] = img
	return img, nil
}

// DeleteImage removes an image record.
func (tx *transaction) DeleteImage(id string) error {
	if _, ok := tx.state.images[id]; !ok {
		return domain.NotFoundError{Entity: domain.EntityImage, ID: id}
	}
	delete(tx.state.images, id)
	return nil
}

// FindUser retrieves a user from the transactional state.
func (tx *transaction) FindUser(id string) (User, bool) {
	u, ok := tx.state.users[id]
	return u, ok
}

// FindGroup retrieves a group from the transactional state.
func (tx *transaction) FindGroup(id string) (Group, bool) {
	g, ok := tx.state.groups[id]
	return g, ok
}

// FindRepository retrieves a repository from the transactional state.
func (tx *transaction) FindRepository(id string) (Repository, bool) {
	r, ok := tx.state.repositories[id]
	return r, ok
}

// FindImport retrieves an import from the transactional state.
func (tx *transaction) FindImport(id string) (Import, bool) {
	i, ok := tx.state.imports[id]
	return i, ok
}

// FindFileset retrieves a fileset from the transactional state.
func (tx *transaction) FindFileset(id string) (Fileset, bool) {
	f, ok := tx.state.filesets[id]
	return f, ok
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) FindUser(id string) (User, bool) {
	u, ok := v.state.users[id]
	return u, ok
}

func (v transactionView) FindGroup(id string) (Group, bool) {
	g, ok := v.state.groups[id]
	return g, ok
}

func (v transactionView) FindRepository(id string) (Repository, bool) {
	r, ok := v.state.repositories[id]
	return r, ok
}

func (v transactionView) FindImport(id string) (Import, bool) {
	i, ok := v.state.imports[id]
	return i, ok
}

func (v transactionView) FindFileset(id string) (Fileset, bool) {
	f, ok := v.state.filesets[id]
	return f, ok
}

func (v transactionView) FindImage(id string) (Image, bool) {
	img, ok := v.state.images[id]
	return img, ok
}

func (v transactionView) FindMembership(groupID, userID string) (Membership, bool) {
	m, ok := v.state.memberships[membershipKey{GroupID: groupID, UserID: userID}]
	return m, ok
}

func (v transactionView) ListKeys(importID string) []Key {
	return listKeysInImport(*v.state, importID)
}
