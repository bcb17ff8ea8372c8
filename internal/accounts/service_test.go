package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rollcall-app/rollcall/internal/audit"
	"github.com/rollcall-app/rollcall/internal/authz"
	"github.com/rollcall-app/rollcall/internal/identity"
	"github.com/rollcall-app/rollcall/internal/provider"
	"github.com/rollcall-app/rollcall/internal/shared"
)

var (
	superadminRole = identity.Role{ID: 1, Name: identity.RoleSuperadmin, Rank: 100}
	adminRole      = identity.Role{ID: 2, Name: identity.RoleAdmin, Rank: 50}
	operatorRole   = identity.Role{ID: 3, Name: identity.RoleOperator, Rank: 10}
)

type memoryAccountsRepo struct {
	profiles   map[string]Profile
	roles      map[string]identity.Role
	upsertErr  error
	deleteErr  map[string]error
	deletedIDs []string
}

func newMemoryAccountsRepo() *memoryAccountsRepo {
	return &memoryAccountsRepo{
		profiles: make(map[string]Profile),
		roles: map[string]identity.Role{
			identity.RoleSuperadmin: superadminRole,
			identity.RoleAdmin:      adminRole,
			identity.RoleOperator:   operatorRole,
		},
		deleteErr: make(map[string]error),
	}
}

func (r *memoryAccountsRepo) ListProfiles(ctx context.Context) ([]Profile, error) {
	out := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (r *memoryAccountsRepo) GetProfile(ctx context.Context, id string) (Profile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return Profile{}, shared.ErrNotFound
	}
	return p, nil
}

func (r *memoryAccountsRepo) GetProfiles(ctx context.Context, ids []string) (map[string]Profile, error) {
	out := make(map[string]Profile)
	for _, id := range ids {
		if p, ok := r.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (r *memoryAccountsRepo) UpsertProfile(ctx context.Context, id, email, nickname string, roleID int64) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	role := operatorRole
	for _, candidate := range r.roles {
		if candidate.ID == roleID {
			role = candidate
		}
	}
	r.profiles[id] = Profile{ID: id, Email: email, Nickname: nickname, Role: role}
	return nil
}

func (r *memoryAccountsRepo) UpdateProfile(ctx context.Context, id string, email, nickname *string, roleID *int64) error {
	p, ok := r.profiles[id]
	if !ok {
		return shared.ErrNotFound
	}
	if email != nil {
		p.Email = *email
	}
	if nickname != nil {
		p.Nickname = *nickname
	}
	if roleID != nil {
		for _, candidate := range r.roles {
			if candidate.ID == *roleID {
				p.Role = candidate
			}
		}
	}
	r.profiles[id] = p
	return nil
}

func (r *memoryAccountsRepo) DeleteProfile(ctx context.Context, id string) error {
	if err := r.deleteErr[id]; err != nil {
		return err
	}
	delete(r.profiles, id)
	r.deletedIDs = append(r.deletedIDs, id)
	return nil
}

func (r *memoryAccountsRepo) RoleByName(ctx context.Context, name string) (identity.Role, error) {
	role, ok := r.roles[name]
	if !ok {
		return identity.Role{}, shared.ErrNotFound
	}
	return role, nil
}

type fakeProvider struct {
	nextID     int
	created    []provider.Account
	deleted    []string
	createErr  error
	updateErr  error
	deleteErrs map[string]error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{deleteErrs: make(map[string]error)}
}

func (f *fakeProvider) CreateAccount(ctx context.Context, email, password string, metadata map[string]string) (provider.Account, error) {
	if f.createErr != nil {
		return provider.Account{}, f.createErr
	}
	f.nextID++
	account := provider.Account{ID: fmt.Sprintf("uid-%d", f.nextID), Email: email}
	f.created = append(f.created, account)
	return account, nil
}

func (f *fakeProvider) UpdateAccount(ctx context.Context, id string, fields provider.UpdateFields) error {
	return f.updateErr
}

func (f *fakeProvider) DeleteAccount(ctx context.Context, id string) error {
	if err := f.deleteErrs[id]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type memoryAuditStore struct {
	records []audit.Record
}

func (m *memoryAuditStore) Insert(ctx context.Context, rec audit.Record) error {
	m.records = append(m.records, rec)
	return nil
}

func (m *memoryAuditStore) ActorEmail(ctx context.Context, actorID string) (string, error) {
	return "admin@example.com", nil
}

func newTestService(repo *memoryAccountsRepo, idp *fakeProvider) (*Service, *memoryAuditStore) {
	store := &memoryAuditStore{}
	recorder := audit.NewRecorder(store, slog.Default())
	return NewService(repo, idp, recorder, nil, slog.Default()), store
}

func adminActor(perms ...string) *identity.Principal {
	return &identity.Principal{ID: "admin-1", Email: "admin@example.com", Role: adminRole, Permissions: perms}
}

func TestCreateSagaCompensatesOnProfileFailure(t *testing.T) {
	repo := newMemoryAccountsRepo()
	repo.upsertErr = errors.New("profile write failed")
	idp := newFakeProvider()
	svc, store := newTestService(repo, idp)

	_, err := svc.Create(context.Background(), adminActor(shared.PermAccountsEdit), CreateInput{
		Email:    "new@example.com",
		Password: "secret123",
		RoleName: identity.RoleOperator,
	})
	require.ErrorContains(t, err, "profile write failed")
	require.Len(t, idp.created, 1)
	require.Equal(t, []string{idp.created[0].ID}, idp.deleted)
	require.Empty(t, store.records)
}

func TestCreateEmailCollisionIsConflict(t *testing.T) {
	repo := newMemoryAccountsRepo()
	idp := newFakeProvider()
	idp.createErr = provider.ErrAlreadyExists
	svc, _ := newTestService(repo, idp)

	_, err := svc.Create(context.Background(), adminActor(shared.PermAccountsEdit), CreateInput{
		Email:    "dup@example.com",
		Password: "secret123",
	})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestCreateDefaultsBlankRoleToOperator(t *testing.T) {
	repo := newMemoryAccountsRepo()
	idp := newFakeProvider()
	svc, store := newTestService(repo, idp)

	profile, err := svc.Create(context.Background(), adminActor(shared.PermAccountsEdit), CreateInput{
		Email:    "new@example.com",
		Password: "secret123",
		RoleName: "  ",
	})
	require.NoError(t, err)
	require.Equal(t, identity.RoleOperator, profile.Role.Name)
	require.Len(t, store.records, 1)
	require.Equal(t, audit.ActionCreate, store.records[0].Action)
}

func TestAdminCannotCreateSuperadmin(t *testing.T) {
	repo := newMemoryAccountsRepo()
	idp := newFakeProvider()
	svc, store := newTestService(repo, idp)

	_, err := svc.Create(context.Background(), adminActor(shared.PermAccountsEdit), CreateInput{
		Email:    "boss@example.com",
		Password: "secret123",
		RoleName: identity.RoleSuperadmin,
	})
	require.ErrorIs(t, err, shared.ErrUnauthorized)
	var denied *authz.DeniedError
	require.ErrorAs(t, err, &denied)
	require.Equal(t, authz.ReasonRoleCeiling, denied.Decision.Reason)
	require.Empty(t, idp.created)
	require.Empty(t, store.records)
}

func TestUpdateOperatorByAdminAllowedAndAudited(t *testing.T) {
	repo := newMemoryAccountsRepo()
	repo.profiles["op-1"] = Profile{ID: "op-1", Email: "op@example.com", Nickname: "old", Role: operatorRole}
	idp := newFakeProvider()
	svc, store := newTestService(repo, idp)

	nickname := "X"
	updated, err := svc.Update(context.Background(), adminActor(shared.PermAccountsEdit), "op-1", UpdateInput{Nickname: &nickname})
	require.NoError(t, err)
	require.Equal(t, "X", updated.Nickname)
	require.Len(t, store.records, 1)
	require.Equal(t, audit.ActionUpdate, store.records[0].Action)
	require.NotNil(t, store.records[0].OldValue)
	require.NotNil(t, store.records[0].NewValue)
}

func TestUpdateSuperadminByAdminDeniedBeforeMutation(t *testing.T) {
	repo := newMemoryAccountsRepo()
	repo.profiles["root-1"] = Profile{ID: "root-1", Email: "root@example.com", Nickname: "root", Role: superadminRole}
	idp := newFakeProvider()
	svc, store := newTestService(repo, idp)

	nickname := "X"
	_, err := svc.Update(context.Background(), adminActor(shared.PermAccountsEdit), "root-1", UpdateInput{Nickname: &nickname})
	require.ErrorIs(t, err, shared.ErrUnauthorized)
	var denied *authz.DeniedError
	require.ErrorAs(t, err, &denied)
	require.Equal(t, authz.ReasonRoleCeiling, denied.Decision.Reason)
	require.Equal(t, "root", repo.profiles["root-1"].Nickname)
	require.Empty(t, store.records)
}

func TestUpdateMissingPermissionDenied(t *testing.T) {
	repo := newMemoryAccountsRepo()
	repo.profiles["op-1"] = Profile{ID: "op-1", Email: "op@example.com", Role: operatorRole}
	svc, _ := newTestService(repo, newFakeProvider())

	nickname := "X"
	_, err := svc.Update(context.Background(), adminActor(), "op-1", UpdateInput{Nickname: &nickname})
	var denied *authz.DeniedError
	require.ErrorAs(t, err, &denied)
	require.Equal(t, authz.ReasonMissingPermission, denied.Decision.Reason)
}

func TestBatchDeletePartialFailure(t *testing.T) {
	repo := newMemoryAccountsRepo()
	for _, id := range []string{"a", "b", "c"} {
		repo.profiles[id] = Profile{ID: id, Email: id + "@example.com", Role: operatorRole}
	}
	idp := newFakeProvider()
	idp.deleteErrs["b"] = errors.New("provider unavailable")
	svc, store := newTestService(repo, idp)

	result, err := svc.Delete(context.Background(), adminActor(shared.PermAccountsDelete), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c"}, result.Succeeded)
	require.Len(t, result.Failed, 1)
	require.Equal(t, "b", result.Failed[0].ID)
	require.True(t, result.Partial())

	require.Len(t, store.records, 2)
	require.Equal(t, "a", store.records[0].TargetID)
	require.Equal(t, "c", store.records[1].TargetID)
	_, stillThere := repo.profiles["b"]
	require.True(t, stillThere)
}

func TestBatchDeleteIdempotentWhenProviderAccountAbsent(t *testing.T) {
	repo := newMemoryAccountsRepo()
	repo.profiles["gone"] = Profile{ID: "gone", Email: "gone@example.com", Role: operatorRole}
	idp := newFakeProvider()
	idp.deleteErrs["gone"] = provider.ErrNotFound
	svc, _ := newTestService(repo, idp)

	result, err := svc.Delete(context.Background(), adminActor(shared.PermAccountsDelete), []string{"gone"})
	require.NoError(t, err)
	require.Equal(t, []string{"gone"}, result.Succeeded)
	require.Empty(t, result.Failed)
	require.Contains(t, repo.deletedIDs, "gone")
}

func TestBatchDeleteSuperadminTargetFailsItemOnly(t *testing.T) {
	repo := newMemoryAccountsRepo()
	repo.profiles["root-1"] = Profile{ID: "root-1", Email: "root@example.com", Role: superadminRole}
	repo.profiles["op-1"] = Profile{ID: "op-1", Email: "op@example.com", Role: operatorRole}
	idp := newFakeProvider()
	svc, store := newTestService(repo, idp)

	result, err := svc.Delete(context.Background(), adminActor(shared.PermAccountsDelete), []string{"root-1", "op-1"})
	require.NoError(t, err)
	require.Equal(t, []string{"op-1"}, result.Succeeded)
	require.Len(t, result.Failed, 1)
	require.Equal(t, string(authz.ReasonRoleCeiling), result.Failed[0].Reason)
	_, rootAlive := repo.profiles["root-1"]
	require.True(t, rootAlive)
	require.Len(t, store.records, 1)
}

func TestSuperadminBypassesCeiling(t *testing.T) {
	repo := newMemoryAccountsRepo()
	repo.profiles["root-2"] = Profile{ID: "root-2", Email: "other-root@example.com", Role: superadminRole}
	idp := newFakeProvider()
	svc, _ := newTestService(repo, idp)

	actor := &identity.Principal{ID: "root-1", Role: superadminRole}
	result, err := svc.Delete(context.Background(), actor, []string{"root-2"})
	require.NoError(t, err)
	require.Equal(t, []string{"root-2"}, result.Succeeded)
}
