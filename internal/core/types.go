// Package core exposes the catalogue service facade: transactional CRUD for
// the resource hierarchy, authorization resolution, and observability hooks.
package core

import "imagingcore/pkg/domain"

// Aliases keep service call sites terse while the canonical definitions live
// in pkg/domain.
type (
	User             = domain.User
	Group            = domain.Group
	Membership       = domain.Membership
	Repository       = domain.Repository
	Grant            = domain.Grant
	Import           = domain.Import
	Key              = domain.Key
	Fileset          = domain.Fileset
	Image            = domain.Image
	RepositoryAccess = domain.RepositoryAccess

	EntityType  = domain.EntityType
	Permission  = domain.Permission
	Role        = domain.Role
	RawStorage  = domain.RawStorage
	SubjectKind = domain.SubjectKind

	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
)
