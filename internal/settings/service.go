package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rollcall-app/rollcall/internal/audit"
	"github.com/rollcall-app/rollcall/internal/authz"
	"github.com/rollcall-app/rollcall/internal/identity"
	"github.com/rollcall-app/rollcall/internal/shared"
)

// Service handles system settings and registration-code administration.
type Service struct {
	repo  Repository
	audit *audit.Recorder
}

// NewService builds Service instance.
func NewService(repo Repository, recorder *audit.Recorder) *Service {
	return &Service{repo: repo, audit: recorder}
}

// Settings returns the configuration map keyed by setting name.
func (s *Service) Settings(ctx context.Context, actor *identity.Principal) (map[string]json.RawMessage, error) {
	if err := authz.Authorize(actor, shared.PermSettingsView, nil).Err(); err != nil {
		return nil, err
	}
	all, err := s.repo.ListSettings(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(all))
	for _, setting := range all {
		out[setting.Key] = setting.Value
	}
	return out, nil
}

// UpdateSetting upserts one setting value.
func (s *Service) UpdateSetting(ctx context.Context, actor *identity.Principal, key string, value json.RawMessage) (Setting, error) {
	if err := authz.Authorize(actor, shared.PermSettingsEdit, nil).Err(); err != nil {
		return Setting{}, err
	}
	setting, err := s.repo.UpsertSetting(ctx, key, value)
	if err != nil {
		return Setting{}, err
	}
	s.audit.Write(ctx, audit.Entry{
		ActorID:     actor.ID,
		Action:      audit.ActionUpdate,
		TargetTable: "settings",
		TargetID:    key,
		Description: fmt.Sprintf("update system setting %s", key),
		NewValue:    map[string]any{"value": value},
	})
	return setting, nil
}

// ListCodes returns all registration codes.
func (s *Service) ListCodes(ctx context.Context, actor *identity.Principal) ([]RegistrationCode, error) {
	if err := authz.Authorize(actor, shared.PermSettingsView, nil).Err(); err != nil {
		return nil, err
	}
	return s.repo.ListCodes(ctx)
}

// CreateCode mints a registration code owned by the actor.
func (s *Service) CreateCode(ctx context.Context, actor *identity.Principal, input CodeInput) (RegistrationCode, error) {
	if err := authz.Authorize(actor, shared.PermSettingsEdit, nil).Err(); err != nil {
		return RegistrationCode{}, err
	}
	code, err := s.repo.InsertCode(ctx, input, actor.ID)
	if err != nil {
		return RegistrationCode{}, err
	}
	s.audit.Write(ctx, audit.Entry{
		ActorID:     actor.ID,
		Action:      audit.ActionCreate,
		TargetTable: "registration_codes",
		TargetID:    strconv.FormatInt(code.ID, 10),
		Description: fmt.Sprintf("create registration code %s", code.Code),
		NewValue:    code,
	})
	return code, nil
}

// UpdateCode replaces a code's fields, snapshotting old and new.
func (s *Service) UpdateCode(ctx context.Context, actor *identity.Principal, id int64, input CodeInput) (RegistrationCode, error) {
	if err := authz.Authorize(actor, shared.PermSettingsEdit, nil).Err(); err != nil {
		return RegistrationCode{}, err
	}
	old, err := s.repo.GetCode(ctx, id)
	if err != nil {
		return RegistrationCode{}, err
	}
	code, err := s.repo.UpdateCode(ctx, id, input)
	if err != nil {
		return RegistrationCode{}, err
	}
	s.audit.Write(ctx, audit.Entry{
		ActorID:     actor.ID,
		Action:      audit.ActionUpdate,
		TargetTable: "registration_codes",
		TargetID:    strconv.FormatInt(id, 10),
		Description: fmt.Sprintf("update registration code %s", code.Code),
		OldValue:    old,
		NewValue:    code,
	})
	return code, nil
}

// DeleteCode removes a code, snapshotting the old row.
func (s *Service) DeleteCode(ctx context.Context, actor *identity.Principal, id int64) error {
	if err := authz.Authorize(actor, shared.PermSettingsEdit, nil).Err(); err != nil {
		return err
	}
	old, err := s.repo.GetCode(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteCode(ctx, id); err != nil {
		return err
	}
	s.audit.Write(ctx, audit.Entry{
		ActorID:     actor.ID,
		Action:      audit.ActionDelete,
		TargetTable: "registration_codes",
		TargetID:    strconv.FormatInt(id, 10),
		Description: fmt.Sprintf("delete registration code %s", old.Code),
		OldValue:    old,
	})
	return nil
}
