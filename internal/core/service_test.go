package core

import (
	"context"
	"testing"

	"imagingcore/pkg/domain"
)

func seedOwner(t *testing.T, svc *Service) User {
	t.Helper()
	owner, err := svc.CreateUser(context.Background(), User{})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return owner
}

func TestCreateRepositoryGrantsAdminToCreator(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService()
	owner := seedOwner(t, svc)

	repo, err := svc.CreateRepository(ctx, owner.ID, Repository{Name: "scans"})
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	if repo.RawStorage != domain.RawStorageStandard {
		t.Fatalf("expected default raw storage, got %s", repo.RawStorage)
	}

	grants := svc.ListGrants(ctx, repo.ID)
	if len(grants) != 1 {
		t.Fatalf("expected implicit grant, got %+v", grants)
	}
	if grants[0].SubjectID != owner.ID || grants[0].Permission != domain.PermissionAdmin {
		t.Fatalf("unexpected implicit grant %+v", grants[0])
	}
	ok, err := svc.HasPermission(ctx, owner.ID, domain.EntityRepository, repo.ID, domain.PermissionAdmin)
	if err != nil || !ok {
		t.Fatalf("creator must hold admin, ok=%v err=%v", ok, err)
	}
}

func TestCreateRepositoryUnknownOwnerRollsBack(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService()

	_, err := svc.CreateRepository(ctx, "nonexistant", Repository{Name: "scans"})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if got := svc.ListRepositoriesForUser(ctx, "nonexistant", true); len(got) != 0 {
		t.Fatalf("nothing should persist, got %+v", got)
	}
}

func TestCreateGroupMakesCreatorOwner(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService()
	owner := seedOwner(t, svc)

	group, err := svc.CreateGroup(ctx, owner.ID, Group{Name: "lab"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if !svc.IsOwner(ctx, group.ID, owner.ID) {
		t.Fatalf("creator must be group owner")
	}

	m, err := svc.GetMembership(ctx, group.ID, owner.ID)
	if err != nil {
		t.Fatalf("get membership: %v", err)
	}
	if m.Role != domain.RoleOwner {
		t.Fatalf("expected owner role, got %s", m.Role)
	}
}

func TestMembershipRoleTransition(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService()
	owner := seedOwner(t, svc)
	group, err := svc.CreateGroup(ctx, owner.ID, Group{Name: "lab"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	member, err := svc.CreateUser(ctx, User{})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if _, err := svc.CreateMembership(ctx, Membership{GroupID: group.ID, UserID: member.ID, Role: domain.RoleMember}); err != nil {
		t.Fatalf("create membership: %v", err)
	}
	if svc.IsOwner(ctx, group.ID, member.ID) {
		t.Fatalf("plain member must not be owner")
	}

	updated, err := svc.UpdateMembership(ctx, group.ID, member.ID, func(m *Membership) error {
		m.Role = domain.RoleOwner
		return nil
	})
	if err != nil {
		t.Fatalf("update membership: %v", err)
	}
	if updated.Role != domain.RoleOwner || !svc.IsOwner(ctx, group.ID, member.ID) {
		t.Fatalf("expected promoted owner, got %+v", updated)
	}

	if err := svc.DeleteMembership(ctx, group.ID, member.ID); err != nil {
		t.Fatalf("delete membership: %v", err)
	}
	if _, err := svc.GetUser(ctx, member.ID); err != nil {
		t.Fatalf("user must survive membership removal: %v", err)
	}
}

func seedImport(t *testing.T, svc *Service) (User, Repository, Import) {
	t.Helper()
	ctx := context.Background()
	owner := seedOwner(t, svc)
	repo, err := svc.CreateRepository(ctx, owner.ID, Repository{Name: "scans"})
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	imp, err := svc.CreateImport(ctx, Import{Name: "batch-1", RepositoryID: repo.ID})
	if err != nil {
		t.Fatalf("create import: %v", err)
	}
	return owner, repo, imp
}

func TestFilesetClaimsKeysAtomically(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService()
	_, _, imp := seedImport(t, svc)

	if _, err := svc.AddKeysToImport(ctx, imp.ID, []string{"a.tiff", "b.tiff"}); err != nil {
		t.Fatalf("add keys: %v", err)
	}

	fs, err := svc.CreateFileset(ctx, Fileset{Name: "slide", Reader: "tiff", ImportID: imp.ID}, []string{"a.tiff"})
	if err != nil {
		t.Fatalf("create fileset: %v", err)
	}
	claimed := svc.ListKeysInFileset(ctx, fs.ID)
	if len(claimed) != 1 || claimed[0].Key != "a.tiff" {
		t.Fatalf("expected one claimed key, got %+v", claimed)
	}

	_, err = svc.CreateFileset(ctx, Fileset{Name: "loser", Reader: "tiff", ImportID: imp.ID}, []string{"a.tiff", "b.tiff"})
	if !domain.IsKeyConflict(err) {
		t.Fatalf("expected key conflict, got %v", err)
	}
	// The losing claim must not take b.tiff either.
	if got := svc.ListKeysInFileset(ctx, fs.ID); len(got) != 1 {
		t.Fatalf("claims changed unexpectedly: %+v", got)
	}
	all := svc.ListKeysInImport(ctx, imp.ID)
	for _, k := range all {
		if k.Key == "b.tiff" && k.FilesetID != nil {
			t.Fatalf("b.tiff must stay unclaimed, got %+v", k)
		}
	}
}

func TestUpdateFilesetRegistersImagesWhenComplete(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService()
	_, _, imp := seedImport(t, svc)

	if _, err := svc.AddKeysToImport(ctx, imp.ID, []string{"a.tiff"}); err != nil {
		t.Fatalf("add keys: %v", err)
	}
	fs, err := svc.CreateFileset(ctx, Fileset{Name: "slide", Reader: "tiff", ImportID: imp.ID}, []string{"a.tiff"})
	if err != nil {
		t.Fatalf("create fileset: %v", err)
	}

	complete := true
	updated, err := svc.UpdateFileset(ctx, fs.ID, nil, &complete, []Image{{Name: "plane-0", PyramidLevels: 4}})
	if err != nil {
		t.Fatalf("update fileset: %v", err)
	}
	if !updated.Complete {
		t.Fatalf("expected complete fileset")
	}
	images := svc.ListImagesInFileset(ctx, fs.ID)
	if len(images) != 1 || images[0].Name != "plane-0" || images[0].FilesetID != fs.ID {
		t.Fatalf("unexpected images %+v", images)
	}
}

func TestUpdateFilesetRejectsImagesWhileIncomplete(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService()
	_, _, imp := seedImport(t, svc)

	if _, err := svc.AddKeysToImport(ctx, imp.ID, []string{"a.tiff"}); err != nil {
		t.Fatalf("add keys: %v", err)
	}
	fs, err := svc.CreateFileset(ctx, Fileset{Name: "slide", Reader: "tiff", ImportID: imp.ID}, []string{"a.tiff"})
	if err != nil {
		t.Fatalf("create fileset: %v", err)
	}

	_, err = svc.UpdateFileset(ctx, fs.ID, func(f *Fileset) error {
		f.Name = "renamed"
		return nil
	}, nil, []Image{{Name: "plane-0", PyramidLevels: 4}})
	if !domain.IsInvalidState(err) {
		t.Fatalf("expected InvalidState, got %v", err)
	}
	// The whole transaction rolls back, including the rename.
	current, err := svc.GetFileset(ctx, fs.ID)
	if err != nil {
		t.Fatalf("get fileset: %v", err)
	}
	if current.Name != "slide" {
		t.Fatalf("rename must roll back, got %q", current.Name)
	}
	if images := svc.ListImagesInFileset(ctx, fs.ID); len(images) != 0 {
		t.Fatalf("no image may persist, got %+v", images)
	}
}

func TestUpdateFilesetRejectsImagesAfterPriorCompletion(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService()
	_, _, imp := seedImport(t, svc)

	if _, err := svc.AddKeysToImport(ctx, imp.ID, []string{"a.tiff"}); err != nil {
		t.Fatalf("add keys: %v", err)
	}
	fs, err := svc.CreateFileset(ctx, Fileset{Name: "slide", Reader: "tiff", ImportID: imp.ID}, []string{"a.tiff"})
	if err != nil {
		t.Fatalf("create fileset: %v", err)
	}
	complete := true
	if _, err := svc.UpdateFileset(ctx, fs.ID, nil, &complete, []Image{{Name: "plane-0", PyramidLevels: 4}}); err != nil {
		t.Fatalf("complete fileset: %v", err)
	}

	// The fileset is complete, but images still require the call itself to
	// set complete.
	_, err = svc.UpdateFileset(ctx, fs.ID, nil, nil, []Image{{Name: "plane-1", PyramidLevels: 4}})
	if !domain.IsInvalidState(err) {
		t.Fatalf("expected InvalidState, got %v", err)
	}
	if images := svc.ListImagesInFileset(ctx, fs.ID); len(images) != 1 || images[0].Name != "plane-0" {
		t.Fatalf("only the original image may persist, got %+v", images)
	}

	// Re-asserting completion in the registering call is accepted.
	if _, err := svc.UpdateFileset(ctx, fs.ID, nil, &complete, []Image{{Name: "plane-1", PyramidLevels: 4}}); err != nil {
		t.Fatalf("register with explicit complete: %v", err)
	}
	if images := svc.ListImagesInFileset(ctx, fs.ID); len(images) != 2 {
		t.Fatalf("expected both images, got %+v", images)
	}
}

func TestDeleteRepositoryCascadePreservesSubjects(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService()
	owner, repo, imp := seedImport(t, svc)

	group, err := svc.CreateGroup(ctx, owner.ID, Group{Name: "lab"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if _, err := svc.CreateGrant(ctx, Grant{SubjectID: group.ID, SubjectKind: domain.SubjectGroup, RepositoryID: repo.ID, Permission: domain.PermissionRead}); err != nil {
		t.Fatalf("create grant: %v", err)
	}
	if _, err := svc.AddKeysToImport(ctx, imp.ID, []string{"a.tiff"}); err != nil {
		t.Fatalf("add keys: %v", err)
	}
	fs, err := svc.CreateFileset(ctx, Fileset{Name: "slide", Reader: "tiff", ImportID: imp.ID}, []string{"a.tiff"})
	if err != nil {
		t.Fatalf("create fileset: %v", err)
	}
	img, err := svc.CreateImage(ctx, Image{Name: "plane-0", PyramidLevels: 4, FilesetID: fs.ID})
	if err != nil {
		t.Fatalf("create image: %v", err)
	}

	if err := svc.DeleteRepository(ctx, repo.ID); err != nil {
		t.Fatalf("delete repository: %v", err)
	}

	for _, probe := range []func() error{
		func() error { _, err := svc.GetRepository(ctx, repo.ID); return err },
		func() error { _, err := svc.GetImport(ctx, imp.ID); return err },
		func() error { _, err := svc.GetFileset(ctx, fs.ID); return err },
		func() error { _, err := svc.GetImage(ctx, img.ID); return err },
	} {
		if err := probe(); !domain.IsNotFound(err) {
			t.Fatalf("expected cascade delete, got %v", err)
		}
	}
	if len(svc.ListKeysInImport(ctx, imp.ID)) != 0 {
		t.Fatalf("keys must not survive the repository")
	}
	if len(svc.ListGrants(ctx, repo.ID)) != 0 {
		t.Fatalf("grants must not survive the repository")
	}
	// Identity records survive cascades.
	if _, err := svc.GetUser(ctx, owner.ID); err != nil {
		t.Fatalf("user must survive: %v", err)
	}
	if _, err := svc.GetGroup(ctx, group.ID); err != nil {
		t.Fatalf("group must survive: %v", err)
	}
}

func TestImpliedRepositoryAccess(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService()
	owner, repo, _ := seedImport(t, svc)

	group, err := svc.CreateGroup(ctx, owner.ID, Group{Name: "lab"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	member, err := svc.CreateUser(ctx, User{})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := svc.CreateMembership(ctx, Membership{GroupID: group.ID, UserID: member.ID, Role: domain.RoleMember}); err != nil {
		t.Fatalf("create membership: %v", err)
	}
	if _, err := svc.CreateGrant(ctx, Grant{SubjectID: group.ID, SubjectKind: domain.SubjectGroup, RepositoryID: repo.ID, Permission: domain.PermissionWrite}); err != nil {
		t.Fatalf("create grant: %v", err)
	}

	if got := svc.ListRepositoriesForUser(ctx, member.ID, false); len(got) != 0 {
		t.Fatalf("direct listing must skip group grants, got %+v", got)
	}
	implied := svc.ListRepositoriesForUser(ctx, member.ID, true)
	if len(implied) != 1 || implied[0].Repository.ID != repo.ID {
		t.Fatalf("unexpected implied access %+v", implied)
	}
	ok, err := svc.HasPermission(ctx, member.ID, domain.EntityRepository, repo.ID, domain.PermissionWrite)
	if err != nil || !ok {
		t.Fatalf("membership must imply write, ok=%v err=%v", ok, err)
	}
	ok, err = svc.HasPermission(ctx, member.ID, domain.EntityRepository, repo.ID, domain.PermissionAdmin)
	if err != nil || ok {
		t.Fatalf("write grant must not imply admin, ok=%v err=%v", ok, err)
	}
}

func TestGettersReturnTypedNotFound(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService()

	probes := []func() error{
		func() error { _, err := svc.GetUser(ctx, "x"); return err },
		func() error { _, err := svc.GetGroup(ctx, "x"); return err },
		func() error { _, err := svc.GetMembership(ctx, "g", "u"); return err },
		func() error { _, err := svc.GetRepository(ctx, "x"); return err },
		func() error { _, err := svc.GetImport(ctx, "x"); return err },
		func() error { _, err := svc.GetFileset(ctx, "x"); return err },
		func() error { _, err := svc.GetImage(ctx, "x"); return err },
	}
	for i, probe := range probes {
		if err := probe(); !domain.IsNotFound(err) {
			t.Fatalf("probe %d: expected NotFound, got %v", i, err)
		}
	}
}

func TestListUsersAndGroups(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService()
	owner := seedOwner(t, svc)
	if _, err := svc.CreateGroup(ctx, owner.ID, Group{Name: "lab"}); err != nil {
		t.Fatalf("create group: %v", err)
	}
	if len(svc.ListUsers(ctx)) != 1 {
		t.Fatalf("expected one user")
	}
	if len(svc.ListGroups(ctx)) != 1 {
		t.Fatalf("expected one group")
	}
}

func TestDeleteUserKeepsGroups(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService()
	owner := seedOwner(t, svc)
	group, err := svc.CreateGroup(ctx, owner.ID, Group{Name: "lab"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	if err := svc.DeleteUser(ctx, owner.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := svc.GetGroup(ctx, group.ID); err != nil {
		t.Fatalf("group must survive user deletion: %v", err)
	}
	if svc.IsMember(ctx, group.ID, owner.ID) {
		t.Fatalf("membership must not survive user deletion")
	}
}

func TestDeleteImportAndFilesetScopes(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService()
	_, repo, imp := seedImport(t, svc)

	if _, err := svc.AddKeysToImport(ctx, imp.ID, []string{"a.tiff", "b.tiff"}); err != nil {
		t.Fatalf("add keys: %v", err)
	}
	fs, err := svc.CreateFileset(ctx, Fileset{Name: "slide", Reader: "tiff", ImportID: imp.ID}, []string{"a.tiff"})
	if err != nil {
		t.Fatalf("create fileset: %v", err)
	}
	if _, err := svc.CreateImage(ctx, Image{Name: "plane-0", PyramidLevels: 4, FilesetID: fs.ID}); err != nil {
		t.Fatalf("create image: %v", err)
	}

	if err := svc.DeleteFileset(ctx, fs.ID); err != nil {
		t.Fatalf("delete fileset: %v", err)
	}
	if len(svc.ListImagesInFileset(ctx, fs.ID)) != 0 {
		t.Fatalf("images must not survive their fileset")
	}
	// The key returns to the unclaimed pool minus the deleted claim.
	remaining := svc.ListKeysInImport(ctx, imp.ID)
	if len(remaining) != 1 || remaining[0].Key != "b.tiff" {
		t.Fatalf("expected only unclaimed key to remain, got %+v", remaining)
	}

	if err := svc.DeleteImport(ctx, imp.ID); err != nil {
		t.Fatalf("delete import: %v", err)
	}
	if len(svc.ListImportsInRepository(ctx, repo.ID)) != 0 {
		t.Fatalf("import must be gone")
	}
	if len(svc.ListKeysInImport(ctx, imp.ID)) != 0 {
		t.Fatalf("keys must not survive their import")
	}
}
