package settings

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rollcall-app/rollcall/internal/audit"
	"github.com/rollcall-app/rollcall/internal/identity"
	"github.com/rollcall-app/rollcall/internal/shared"
)

type memorySettingsRepo struct {
	settings map[string]json.RawMessage
	codes    map[int64]RegistrationCode
	nextID   int64
}

func newMemorySettingsRepo() *memorySettingsRepo {
	return &memorySettingsRepo{
		settings: make(map[string]json.RawMessage),
		codes:    make(map[int64]RegistrationCode),
	}
}

func (r *memorySettingsRepo) ListSettings(ctx context.Context) ([]Setting, error) {
	var out []Setting
	for key, value := range r.settings {
		out = append(out, Setting{Key: key, Value: value})
	}
	return out, nil
}

func (r *memorySettingsRepo) GetSetting(ctx context.Context, key string) (Setting, error) {
	value, ok := r.settings[key]
	if !ok {
		return Setting{}, shared.ErrNotFound
	}
	return Setting{Key: key, Value: value}, nil
}

func (r *memorySettingsRepo) UpsertSetting(ctx context.Context, key string, value json.RawMessage) (Setting, error) {
	r.settings[key] = value
	return Setting{Key: key, Value: value}, nil
}

func (r *memorySettingsRepo) ListCodes(ctx context.Context) ([]RegistrationCode, error) {
	var out []RegistrationCode
	for _, c := range r.codes {
		out = append(out, c)
	}
	return out, nil
}

func (r *memorySettingsRepo) GetCode(ctx context.Context, id int64) (RegistrationCode, error) {
	c, ok := r.codes[id]
	if !ok {
		return RegistrationCode{}, shared.ErrNotFound
	}
	return c, nil
}

func (r *memorySettingsRepo) CodeByValue(ctx context.Context, code string) (RegistrationCode, error) {
	for _, c := range r.codes {
		if c.Code == code {
			return c, nil
		}
	}
	return RegistrationCode{}, shared.ErrNotFound
}

func (r *memorySettingsRepo) InsertCode(ctx context.Context, input CodeInput, createdBy string) (RegistrationCode, error) {
	for _, c := range r.codes {
		if c.Code == input.Code {
			return RegistrationCode{}, shared.ErrConflict
		}
	}
	r.nextID++
	c := RegistrationCode{
		ID:        r.nextID,
		Code:      input.Code,
		RoleID:    input.RoleID,
		UsesLeft:  input.UsesLeft,
		ExpiresAt: input.ExpiresAt,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}
	r.codes[c.ID] = c
	return c, nil
}

func (r *memorySettingsRepo) UpdateCode(ctx context.Context, id int64, input CodeInput) (RegistrationCode, error) {
	c, ok := r.codes[id]
	if !ok {
		return RegistrationCode{}, shared.ErrNotFound
	}
	c.Code = input.Code
	c.RoleID = input.RoleID
	c.UsesLeft = input.UsesLeft
	c.ExpiresAt = input.ExpiresAt
	r.codes[id] = c
	return c, nil
}

func (r *memorySettingsRepo) DeleteCode(ctx context.Context, id int64) error {
	if _, ok := r.codes[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.codes, id)
	return nil
}

func (r *memorySettingsRepo) ConsumeCodeUse(ctx context.Context, id int64) error {
	c, ok := r.codes[id]
	if !ok || c.UsesLeft <= 0 {
		return shared.ErrConflict
	}
	c.UsesLeft--
	r.codes[id] = c
	return nil
}

type recordingAuditStore struct {
	records []audit.Record
}

func (s *recordingAuditStore) Insert(ctx context.Context, rec audit.Record) error {
	s.records = append(s.records, rec)
	return nil
}

func (s *recordingAuditStore) ActorEmail(ctx context.Context, actorID string) (string, error) {
	return "admin@example.com", nil
}

func admin(perms ...string) *identity.Principal {
	return &identity.Principal{ID: "admin-1", Role: identity.Role{ID: 2, Name: identity.RoleAdmin, Rank: 50}, Permissions: perms}
}

func newSettingsService(repo Repository) (*Service, *recordingAuditStore) {
	store := &recordingAuditStore{}
	return NewService(repo, audit.NewRecorder(store, slog.Default())), store
}

func TestUpdateSettingUpsertsAndAudits(t *testing.T) {
	repo := newMemorySettingsRepo()
	svc, store := newSettingsService(repo)

	setting, err := svc.UpdateSetting(context.Background(), admin(shared.PermSettingsEdit),
		SettingRegistrationCodeRequired, json.RawMessage(`true`))
	require.NoError(t, err)
	require.True(t, setting.Bool())

	require.Len(t, store.records, 1)
	rec := store.records[0]
	require.Equal(t, audit.ActionUpdate, rec.Action)
	require.Equal(t, "settings", rec.TargetTable)
	require.Equal(t, SettingRegistrationCodeRequired, rec.TargetID)
}

func TestCodeLifecycleIsAudited(t *testing.T) {
	repo := newMemorySettingsRepo()
	svc, store := newSettingsService(repo)
	actor := admin(shared.PermSettingsEdit, shared.PermSettingsView)

	code, err := svc.CreateCode(context.Background(), actor, CodeInput{Code: "JOIN2026", UsesLeft: 5})
	require.NoError(t, err)
	require.Equal(t, "admin-1", code.CreatedBy)

	updated, err := svc.UpdateCode(context.Background(), actor, code.ID, CodeInput{Code: "JOIN2026", UsesLeft: 2})
	require.NoError(t, err)
	require.Equal(t, 2, updated.UsesLeft)

	require.NoError(t, svc.DeleteCode(context.Background(), actor, code.ID))

	require.Len(t, store.records, 3)
	require.Equal(t, audit.ActionCreate, store.records[0].Action)
	require.Equal(t, audit.ActionUpdate, store.records[1].Action)
	require.Equal(t, audit.ActionDelete, store.records[2].Action)
	require.NotNil(t, store.records[2].OldValue)

	var oldCode RegistrationCode
	require.NoError(t, json.Unmarshal(store.records[1].OldValue, &oldCode))
	require.Equal(t, 5, oldCode.UsesLeft)
}

func TestDuplicateCodeIsConflict(t *testing.T) {
	repo := newMemorySettingsRepo()
	svc, _ := newSettingsService(repo)
	actor := admin(shared.PermSettingsEdit)

	_, err := svc.CreateCode(context.Background(), actor, CodeInput{Code: "JOIN2026", UsesLeft: 1})
	require.NoError(t, err)
	_, err = svc.CreateCode(context.Background(), actor, CodeInput{Code: "JOIN2026", UsesLeft: 9})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestSettingsRequireViewPermission(t *testing.T) {
	repo := newMemorySettingsRepo()
	svc, _ := newSettingsService(repo)

	_, err := svc.Settings(context.Background(), admin())
	require.ErrorIs(t, err, shared.ErrUnauthorized)

	_, err = svc.ListCodes(context.Background(), admin())
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestUpdateSettingRequiresEditPermission(t *testing.T) {
	repo := newMemorySettingsRepo()
	svc, store := newSettingsService(repo)

	_, err := svc.UpdateSetting(context.Background(), admin(shared.PermSettingsView),
		SettingRegistrationCodeRequired, json.RawMessage(`true`))
	require.ErrorIs(t, err, shared.ErrUnauthorized)
	require.Empty(t, store.records)
}
