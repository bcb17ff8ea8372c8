package registration

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rollcall-app/rollcall/internal/audit"
	"github.com/rollcall-app/rollcall/internal/identity"
	"github.com/rollcall-app/rollcall/internal/provider"
	"github.com/rollcall-app/rollcall/internal/settings"
	"github.com/rollcall-app/rollcall/internal/shared"
)

type fakeGate struct {
	required bool
	code     *settings.RegistrationCode
	consumed []int64
}

func (g *fakeGate) GetSetting(ctx context.Context, key string) (settings.Setting, error) {
	value := "false"
	if g.required {
		value = "true"
	}
	return settings.Setting{Key: key, Value: json.RawMessage(value)}, nil
}

func (g *fakeGate) CodeByValue(ctx context.Context, code string) (settings.RegistrationCode, error) {
	if g.code == nil || g.code.Code != code {
		return settings.RegistrationCode{}, shared.ErrNotFound
	}
	return *g.code, nil
}

func (g *fakeGate) ConsumeCodeUse(ctx context.Context, id int64) error {
	g.consumed = append(g.consumed, id)
	return nil
}

type fakeProfiles struct {
	upserts   map[string]int64
	upsertErr error
}

func (p *fakeProfiles) UpsertProfile(ctx context.Context, id, email, nickname string, roleID int64) error {
	if p.upsertErr != nil {
		return p.upsertErr
	}
	if p.upserts == nil {
		p.upserts = make(map[string]int64)
	}
	p.upserts[id] = roleID
	return nil
}

func (p *fakeProfiles) RoleByName(ctx context.Context, name string) (identity.Role, error) {
	if name != identity.RoleOperator {
		return identity.Role{}, shared.ErrNotFound
	}
	return identity.Role{ID: 3, Name: identity.RoleOperator, Rank: 10}, nil
}

type fakeProvider struct {
	created   []string
	deleted   []string
	createErr error
}

func (f *fakeProvider) CreateAccount(ctx context.Context, email, password string, _ map[string]string) (provider.Account, error) {
	if f.createErr != nil {
		return provider.Account{}, f.createErr
	}
	id := "uid-" + email
	f.created = append(f.created, id)
	return provider.Account{ID: id, Email: email}, nil
}

func (f *fakeProvider) UpdateAccount(ctx context.Context, id string, fields provider.UpdateFields) error {
	return nil
}

func (f *fakeProvider) DeleteAccount(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type captureAuditStore struct {
	records []audit.Record
}

func (s *captureAuditStore) Insert(ctx context.Context, rec audit.Record) error {
	s.records = append(s.records, rec)
	return nil
}

func (s *captureAuditStore) ActorEmail(ctx context.Context, actorID string) (string, error) {
	return "", errors.New("no profile yet")
}

func newRegistrationService(gate *fakeGate, profiles *fakeProfiles, idp *fakeProvider) (*Service, *captureAuditStore) {
	store := &captureAuditStore{}
	return NewService(gate, profiles, idp, audit.NewRecorder(store, slog.Default()), slog.Default()), store
}

func validInput(code string) Input {
	return Input{Email: "new@example.com", Password: "secret123", Nickname: "Newbie", Code: code}
}

func roleID(id int64) *int64 { return &id }

func TestRegisterWithValidCodeConsumesUseAndPinsRole(t *testing.T) {
	gate := &fakeGate{required: true, code: &settings.RegistrationCode{ID: 7, Code: "JOIN2026", RoleID: roleID(5), UsesLeft: 2}}
	profiles := &fakeProfiles{}
	idp := &fakeProvider{}
	svc, store := newRegistrationService(gate, profiles, idp)

	userID, err := svc.Register(context.Background(), validInput("JOIN2026"))
	require.NoError(t, err)
	require.Equal(t, "uid-new@example.com", userID)
	require.Equal(t, int64(5), profiles.upserts[userID])
	require.Equal(t, []int64{7}, gate.consumed)

	require.Len(t, store.records, 1)
	rec := store.records[0]
	require.Equal(t, audit.ActionCreate, rec.Action)
	require.Equal(t, userID, rec.ActorID)
	require.Equal(t, audit.UnknownActorEmail, rec.ActorEmail)

	var snapshot map[string]any
	require.NoError(t, json.Unmarshal(rec.NewValue, &snapshot))
	require.Equal(t, "public_registration", snapshot["source"])
}

func TestRegisterWithoutRequiredCodeIsRejected(t *testing.T) {
	gate := &fakeGate{required: true}
	svc, store := newRegistrationService(gate, &fakeProfiles{}, &fakeProvider{})

	_, err := svc.Register(context.Background(), validInput(""))
	require.ErrorIs(t, err, ErrCodeRequired)
	require.Empty(t, store.records)
}

func TestRegisterUnknownCodeIsNotFound(t *testing.T) {
	gate := &fakeGate{required: true}
	svc, _ := newRegistrationService(gate, &fakeProfiles{}, &fakeProvider{})

	_, err := svc.Register(context.Background(), validInput("NOPE"))
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRegisterExpiredCodeIsRejected(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	gate := &fakeGate{required: true, code: &settings.RegistrationCode{ID: 7, Code: "OLD", UsesLeft: 2, ExpiresAt: &past}}
	idp := &fakeProvider{}
	svc, _ := newRegistrationService(gate, &fakeProfiles{}, idp)

	_, err := svc.Register(context.Background(), validInput("OLD"))
	require.ErrorIs(t, err, ErrCodeExpired)
	require.Empty(t, idp.created)
}

func TestRegisterExhaustedCodeIsRejected(t *testing.T) {
	gate := &fakeGate{required: true, code: &settings.RegistrationCode{ID: 7, Code: "FULL", UsesLeft: 0}}
	svc, _ := newRegistrationService(gate, &fakeProfiles{}, &fakeProvider{})

	_, err := svc.Register(context.Background(), validInput("FULL"))
	require.ErrorIs(t, err, ErrCodeExhausted)
}

func TestRegisterWithoutGateDefaultsToOperatorRole(t *testing.T) {
	gate := &fakeGate{required: false}
	profiles := &fakeProfiles{}
	svc, _ := newRegistrationService(gate, profiles, &fakeProvider{})

	userID, err := svc.Register(context.Background(), validInput(""))
	require.NoError(t, err)
	require.Equal(t, int64(3), profiles.upserts[userID])
	require.Empty(t, gate.consumed)
}

func TestRegisterProfileFailureCompensatesProviderAccount(t *testing.T) {
	gate := &fakeGate{required: false}
	profiles := &fakeProfiles{upsertErr: errors.New("profiles down")}
	idp := &fakeProvider{}
	svc, store := newRegistrationService(gate, profiles, idp)

	_, err := svc.Register(context.Background(), validInput(""))
	require.Error(t, err)
	require.Equal(t, idp.created, idp.deleted)
	require.Empty(t, store.records)
}

func TestRegisterDuplicateEmailIsConflict(t *testing.T) {
	gate := &fakeGate{required: false}
	idp := &fakeProvider{createErr: provider.ErrAlreadyExists}
	svc, _ := newRegistrationService(gate, &fakeProfiles{}, idp)

	_, err := svc.Register(context.Background(), validInput(""))
	require.ErrorIs(t, err, shared.ErrConflict)
}
