package core

import (
	"context"
	"fmt"
	"time"

	"imagingcore/internal/blob"
	"imagingcore/internal/infra/persistence/memory"
	"imagingcore/pkg/domain"
)

// Service exposes higher-level transactional operations for the catalogue
// hierarchy, layering authorization conveniences and observability hooks over
// a PersistentStore.
type Service struct {
	store   PersistentStore
	raw     blob.Store
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithLogger attaches a structured logger to the service.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder attaches a metrics recorder to the service.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(s *Service) { s.metrics = recorder }
}

// WithTracer attaches a tracer to the service.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) { s.tracer = tracer }
}

// WithAuditRecorder attaches an audit recorder to the service.
func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(s *Service) { s.audit = recorder }
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...Option) *Service {
	s := &Service{store: store, logger: noopLogger{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store.
func NewInMemoryService(opts ...Option) *Service {
	return NewService(memory.NewStore(), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// run executes fn in a transaction wrapped with tracing, metrics, audit, and
// logging under the given operation name.
func (s *Service) run(ctx context.Context, op string, entity EntityType, entityID *string, fn func(Transaction) error) error {
	start := time.Now()
	var span TraceSpan
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, op)
	}
	err := s.store.RunInTransaction(ctx, fn)
	duration := time.Since(start)
	if span != nil {
		span.End(err)
	}
	if s.metrics != nil {
		s.metrics.Observe(ctx, op, err == nil, duration)
	}
	var id string
	if entityID != nil {
		id = *entityID
	}
	if s.audit != nil {
		entry := AuditEntry{
			Operation:  op,
			EntityType: entity,
			EntityID:   id,
			Status:     AuditStatusSuccess,
			OccurredAt: time.Now().UTC(),
		}
		if err != nil {
			entry.Status = AuditStatusError
			entry.Error = err.Error()
		}
		s.audit.Record(ctx, entry)
	}
	if err != nil {
		s.logger.Error(op+" failed", "entity", string(entity), "id", id, "error", err)
		return err
	}
	s.logger.Debug(op, "entity", string(entity), "id", id, "duration_ms", float64(duration)/float64(time.Millisecond))
	return nil
}

// CreateUser persists a new identity record.
func (s *Service) CreateUser(ctx context.Context, user User) (User, error) {
	var created User
	err := s.run(ctx, "create_user", domain.EntityUser, &created.ID, func(tx Transaction) error {
		var err error
		created, err = tx.CreateUser(user)
		return err
	})
	return created, err
}

// GetUser fetches a user by ID.
func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	if u, ok := s.store.GetUser(id); ok {
		return u, nil
	}
	return User{}, domain.NotFoundError{Entity: domain.EntityUser, ID: id}
}

// ListUsers returns every known user.
func (s *Service) ListUsers(ctx context.Context) []User {
	return s.store.ListUsers()
}

// DeleteUser removes a user together with its memberships and grants. Groups
// the user belonged to survive.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	return s.run(ctx, "delete_user", domain.EntityUser, &id, func(tx Transaction) error {
		return tx.DeleteUser(id)
	})
}

// CreateGroup persists a new group and makes ownerUserID its Owner in the
// same transaction.
func (s *Service) CreateGroup(ctx context.Context, ownerUserID string, group Group) (Group, error) {
	var created Group
	err := s.run(ctx, "create_group", domain.EntityGroup, &created.ID, func(tx Transaction) error {
		if _, ok := tx.FindUser(ownerUserID); !ok {
			return domain.NotFoundError{Entity: domain.EntityUser, ID: ownerUserID}
		}
		var err error
		created, err = tx.CreateGroup(group)
		if err != nil {
			return err
		}
		_, err = tx.CreateMembership(Membership{GroupID: created.ID, UserID: ownerUserID, Role: domain.RoleOwner})
		return err
	})
	return created, err
}

// GetGroup fetches a group by ID.
func (s *Service) GetGroup(ctx context.Context, id string) (Group, error) {
	if g, ok := s.store.GetGroup(id); ok {
		return g, nil
	}
	return Group{}, domain.NotFoundError{Entity: domain.EntityGroup, ID: id}
}

// ListGroups returns every known group.
func (s *Service) ListGroups(ctx context.Context) []Group {
	return s.store.ListGroups()
}

// DeleteGroup removes a group together with its memberships and grants. Users
// survive.
func (s *Service) DeleteGroup(ctx context.Context, id string) error {
	return s.run(ctx, "delete_group", domain.EntityGroup, &id, func(tx Transaction) error {
		return tx.DeleteGroup(id)
	})
}

// CreateMembership binds a user to a group with the given role.
func (s *Service) CreateMembership(ctx context.Context, membership Membership) (Membership, error) {
	var created Membership
	id := membership.GroupID + "/" + membership.UserID
	err := s.run(ctx, "create_membership", domain.EntityMembership, &id, func(tx Transaction) error {
		var err error
		created, err = tx.CreateMembership(membership)
		return err
	})
	return created, err
}

// UpdateMembership mutates an existing membership, typically a role change.
func (s *Service) UpdateMembership(ctx context.Context, groupID, userID string, mutator func(*Membership) error) (Membership, error) {
	var updated Membership
	id := groupID + "/" + userID
	err := s.run(ctx, "update_membership", domain.EntityMembership, &id, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateMembership(groupID, userID, mutator)
		return err
	})
	return updated, err
}

// GetMembership fetches the membership binding a user to a group.
func (s *Service) GetMembership(ctx context.Context, groupID, userID string) (Membership, error) {
	if m, ok := s.store.GetMembership(groupID, userID); ok {
		return m, nil
	}
	return Membership{}, domain.NotFoundError{Entity: domain.EntityMembership, ID: groupID + "/" + userID}
}

// DeleteMembership removes a membership; both endpoints survive.
func (s *Service) DeleteMembership(ctx context.Context, groupID, userID string) error {
	id := groupID + "/" + userID
	return s.run(ctx, "delete_membership", domain.EntityMembership, &id, func(tx Transaction) error {
		return tx.DeleteMembership(groupID, userID)
	})
}

// IsMember reports whether the user holds any membership in the group.
func (s *Service) IsMember(ctx context.Context, groupID, userID string) bool {
	return s.store.IsMember(groupID, userID)
}

// IsOwner reports whether the user holds the Owner role in the group.
func (s *Service) IsOwner(ctx context.Context, groupID, userID string) bool {
	return s.store.IsOwner(groupID, userID)
}

// CreateRepository persists a new repository and grants ownerUserID Admin on
// it in the same transaction.
func (s *Service) CreateRepository(ctx context.Context, ownerUserID string, repository Repository) (Repository, error) {
	var created Repository
	err := s.run(ctx, "create_repository", domain.EntityRepository, &created.ID, func(tx Transaction) error {
		if _, ok := tx.FindUser(ownerUserID); !ok {
			return domain.NotFoundError{Entity: domain.EntityUser, ID: ownerUserID}
		}
		var err error
		created, err = tx.CreateRepository(repository)
		if err != nil {
			return err
		}
		_, err = tx.CreateGrant(Grant{
			SubjectID:    ownerUserID,
			SubjectKind:  domain.SubjectUser,
			RepositoryID: created.ID,
			Permission:   domain.PermissionAdmin,
		})
		return err
	})
	return created, err
}

// GetRepository fetches a repository by ID.
func (s *Service) GetRepository(ctx context.Context, id string) (Repository, error) {
	if r, ok := s.store.GetRepository(id); ok {
		return r, nil
	}
	return Repository{}, domain.NotFoundError{Entity: domain.EntityRepository, ID: id}
}

// UpdateRepository mutates a repository's name or raw storage policy.
func (s *Service) UpdateRepository(ctx context.Context, id string, mutator func(*Repository) error) (Repository, error) {
	var updated Repository
	err := s.run(ctx, "update_repository", domain.EntityRepository, &id, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateRepository(id, mutator)
		return err
	})
	return updated, err
}

// DeleteRepository removes the repository and, transitively, every import,
// fileset, image, and key it contains plus every grant scoped to it. Users
// and groups are never deleted.
func (s *Service) DeleteRepository(ctx context.Context, id string) error {
	return s.run(ctx, "delete_repository", domain.EntityRepository, &id, func(tx Transaction) error {
		return tx.DeleteRepository(id)
	})
}

// ListRepositoriesForUser returns the repositories a user can reach through
// grants. Direct grants are always included; when implied is set, grants held
// by groups the user belongs to are included as well.
func (s *Service) ListRepositoriesForUser(ctx context.Context, userID string, implied bool) []RepositoryAccess {
	return s.store.ListRepositoriesForUser(userID, implied)
}

// CreateGrant authorizes a subject on a repository.
func (s *Service) CreateGrant(ctx context.Context, grant Grant) (Grant, error) {
	var created Grant
	id := grant.SubjectID + "/" + grant.RepositoryID
	err := s.run(ctx, "create_grant", domain.EntityGrant, &id, func(tx Transaction) error {
		var err error
		created, err = tx.CreateGrant(grant)
		return err
	})
	return created, err
}

// DeleteGrant removes a subject's grant on a repository.
func (s *Service) DeleteGrant(ctx context.Context, subjectID, repositoryID string) error {
	id := subjectID + "/" + repositoryID
	return s.run(ctx, "delete_grant", domain.EntityGrant, &id, func(tx Transaction) error {
		return tx.DeleteGrant(subjectID, repositoryID)
	})
}

// ListGrants returns every grant scoped to a repository.
func (s *Service) ListGrants(ctx context.Context, repositoryID string) []Grant {
	return s.store.ListGrants(repositoryID)
}

// HasPermission reports whether the user may act on the addressed resource at
// the required level, resolving containment and group membership.
func (s *Service) HasPermission(ctx context.Context, userID string, kind EntityType, resourceID string, required Permission) (bool, error) {
	return s.store.HasPermission(userID, kind, resourceID, required)
}

// CreateImport persists a new import under a repository.
func (s *Service) CreateImport(ctx context.Context, imp Import) (Import, error) {
	var created Import
	err := s.run(ctx, "create_import", domain.EntityImport, &created.ID, func(tx Transaction) error {
		var err error
		created, err = tx.CreateImport(imp)
		return err
	})
	return created, err
}

// GetImport fetches an import by ID.
func (s *Service) GetImport(ctx context.Context, id string) (Import, error) {
	if i, ok := s.store.GetImport(id); ok {
		return i, nil
	}
	return Import{}, domain.NotFoundError{Entity: domain.EntityImport, ID: id}
}

// UpdateImport mutates an import, typically to mark it complete.
func (s *Service) UpdateImport(ctx context.Context, id string, mutator func(*Import) error) (Import, error) {
	var updated Import
	err := s.run(ctx, "update_import", domain.EntityImport, &id, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateImport(id, mutator)
		return err
	})
	return updated, err
}

// ListImportsInRepository returns the imports under a repository.
func (s *Service) ListImportsInRepository(ctx context.Context, repositoryID string) []Import {
	return s.store.ListImports(repositoryID)
}

// DeleteImport removes an import and, transitively, its filesets, images, and
// keys.
func (s *Service) DeleteImport(ctx context.Context, id string) error {
	return s.run(ctx, "delete_import", domain.EntityImport, &id, func(tx Transaction) error {
		return tx.DeleteImport(id)
	})
}

// AddKeysToImport introduces key names into an import's namespace, unclaimed.
func (s *Service) AddKeysToImport(ctx context.Context, importID string, names []string) ([]Key, error) {
	var created []Key
	err := s.run(ctx, "add_keys", domain.EntityKey, &importID, func(tx Transaction) error {
		var err error
		created, err = tx.AddKeys(importID, names)
		return err
	})
	return created, err
}

// ListKeysInImport returns every key in an import's namespace.
func (s *Service) ListKeysInImport(ctx context.Context, importID string) []Key {
	return s.store.ListKeysInImport(importID)
}

// ListKeysInFileset returns the keys claimed by a fileset.
func (s *Service) ListKeysInFileset(ctx context.Context, filesetID string) []Key {
	return s.store.ListKeysInFileset(filesetID)
}

// CreateFileset persists a fileset and atomically claims the named keys in
// its parent import's namespace. Any absent or already-claimed key fails the
// whole operation and nothing is persisted.
func (s *Service) CreateFileset(ctx context.Context, fileset Fileset, claims []string) (Fileset, error) {
	var created Fileset
	err := s.run(ctx, "create_fileset", domain.EntityFileset, &created.ID, func(tx Transaction) error {
		var err error
		created, err = tx.CreateFileset(fileset, claims)
		return err
	})
	return created, err
}

// GetFileset fetches a fileset by ID.
func (s *Service) GetFileset(ctx context.Context, id string) (Fileset, error) {
	if f, ok := s.store.GetFileset(id); ok {
		return f, nil
	}
	return Fileset{}, domain.NotFoundError{Entity: domain.EntityFileset, ID: id}
}

// UpdateFileset mutates a fileset, optionally sets its completion flag, and
// optionally registers images in the same transaction. Images may only be
// registered by a call that itself sets complete to true; a fileset that was
// completed earlier does not accept images on later calls. On failure the
// whole operation rolls back and nothing is persisted.
func (s *Service) UpdateFileset(ctx context.Context, id string, mutator func(*Fileset) error, complete *bool, images []Image) (Fileset, error) {
	var updated Fileset
	err := s.run(ctx, "update_fileset", domain.EntityFileset, &id, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateFileset(id, func(f *Fileset) error {
			if mutator != nil {
				if err := mutator(f); err != nil {
					return err
				}
			}
			if complete != nil {
				f.Complete = *complete
			}
			return nil
		})
		if err != nil {
			return err
		}
		if len(images) == 0 {
			return nil
		}
		if complete == nil || !*complete {
			return domain.InvalidStateError{Reason: fmt.Sprintf("images can only be registered while completing a fileset, update of fileset %s does not set complete", id)}
		}
		for _, img := range images {
			img.FilesetID = id
			if _, err := tx.CreateImage(img); err != nil {
				return err
			}
		}
		return nil
	})
	return updated, err
}

// ListFilesetsInImport returns the filesets under an import.
func (s *Service) ListFilesetsInImport(ctx context.Context, importID string) []Fileset {
	return s.store.ListFilesets(importID)
}

// DeleteFileset removes a fileset together with its images and claimed keys.
func (s *Service) DeleteFileset(ctx context.Context, id string) error {
	return s.run(ctx, "delete_fileset", domain.EntityFileset, &id, func(tx Transaction) error {
		return tx.DeleteFileset(id)
	})
}

// CreateImage persists a new image under a fileset.
func (s *Service) CreateImage(ctx context.Context, image Image) (Image, error) {
	var created Image
	err := s.run(ctx, "create_image", domain.EntityImage, &created.ID, func(tx Transaction) error {
		var err error
		created, err = tx.CreateImage(image)
		return err
	})
	return created, err
}

// GetImage fetches an image by ID.
func (s *Service) GetImage(ctx context.Context, id string) (Image, error) {
	if img, ok := s.store.GetImage(id); ok {
		return img, nil
	}
	return Image{}, domain.NotFoundError{Entity: domain.EntityImage, ID: id}
}

// ListImagesInFileset returns the images under a fileset.
func (s *Service) ListImagesInFileset(ctx context.Context, filesetID string) []Image {
	return s.store.ListImages(filesetID)
}

// DeleteImage removes an image record.
func (s *Service) DeleteImage(ctx context.Context, id string) error {
	return s.run(ctx, "delete_image", domain.EntityImage, &id, func(tx Transaction) error {
		return tx.DeleteImage(id)
	})
}
