// Package registration implements code-gated public self-registration.
// It is the one unauthenticated mutation path: admission is controlled by
// the registration_code_required setting and the code table instead of
// the permission gate.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rollcall-app/rollcall/internal/audit"
	"github.com/rollcall-app/rollcall/internal/identity"
	"github.com/rollcall-app/rollcall/internal/provider"
	"github.com/rollcall-app/rollcall/internal/settings"
	"github.com/rollcall-app/rollcall/internal/shared"
)

var (
	// ErrCodeRequired indicates registration needs a code and none was sent.
	ErrCodeRequired = errors.New("registration code required")
	// ErrCodeExpired indicates the supplied code's deadline has passed.
	ErrCodeExpired = errors.New("registration code expired")
	// ErrCodeExhausted indicates the supplied code has no uses left.
	ErrCodeExhausted = errors.New("registration code exhausted")
)

// CodeGate reads the admission configuration.
type CodeGate interface {
	GetSetting(ctx context.Context, key string) (settings.Setting, error)
	CodeByValue(ctx context.Context, code string) (settings.RegistrationCode, error)
	ConsumeCodeUse(ctx context.Context, id int64) error
}

// ProfileStore provisions the local profile for a new account.
type ProfileStore interface {
	UpsertProfile(ctx context.Context, id, email, nickname string, roleID int64) error
	RoleByName(ctx context.Context, name string) (identity.Role, error)
}

// Input is one self-registration request.
type Input struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Nickname string `json:"nickname" validate:"required"`
	Code     string `json:"registration_code"`
}

// Service runs the self-registration flow.
type Service struct {
	gate     CodeGate
	profiles ProfileStore
	provider provider.IdentityProvider
	audit    *audit.Recorder
	logger   *slog.Logger
}

// NewService builds Service instance.
func NewService(gate CodeGate, profiles ProfileStore, idp provider.IdentityProvider, recorder *audit.Recorder, logger *slog.Logger) *Service {
	return &Service{gate: gate, profiles: profiles, provider: idp, audit: recorder, logger: logger}
}

// Register creates a login account and its profile. The same saga shape
// as admin account creation applies: a profile failure compensates by
// deleting the provider account.
func (s *Service) Register(ctx context.Context, input Input) (string, error) {
	code, err := s.admit(ctx, input.Code)
	if err != nil {
		return "", err
	}

	roleID, err := s.grantedRole(ctx, code)
	if err != nil {
		return "", err
	}

	account, err := s.provider.CreateAccount(ctx, input.Email, input.Password, map[string]string{"nickname": input.Nickname})
	if err != nil {
		if errors.Is(err, provider.ErrAlreadyExists) {
			return "", shared.ErrConflict
		}
		return "", err
	}

	if err := s.profiles.UpsertProfile(ctx, account.ID, input.Email, input.Nickname, roleID); err != nil {
		if compErr := s.provider.DeleteAccount(ctx, account.ID); compErr != nil && !errors.Is(compErr, provider.ErrNotFound) {
			s.logger.Error("compensating provider delete failed",
				slog.String("account_id", account.ID),
				slog.Any("error", compErr))
		}
		return "", err
	}

	if code != nil {
		// The account exists either way; a failed decrement is logged only.
		if err := s.gate.ConsumeCodeUse(ctx, code.ID); err != nil {
			s.logger.Error("consume registration code",
				slog.Int64("code_id", code.ID),
				slog.Any("error", err))
		}
	}

	s.audit.Write(ctx, audit.Entry{
		ActorID:     account.ID,
		Action:      audit.ActionCreate,
		TargetTable: "profiles",
		TargetID:    account.ID,
		Description: fmt.Sprintf("account %s created via public registration", input.Email),
		NewValue: map[string]any{
			"id":       account.ID,
			"email":    input.Email,
			"nickname": input.Nickname,
			"source":   "public_registration",
		},
	})
	return account.ID, nil
}

// admit checks the registration code against the gating setting. It
// returns the code to consume, or nil when no code is required.
func (s *Service) admit(ctx context.Context, codeValue string) (*settings.RegistrationCode, error) {
	setting, err := s.gate.GetSetting(ctx, settings.SettingRegistrationCodeRequired)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !setting.Bool() {
		return nil, nil
	}

	if codeValue == "" {
		return nil, ErrCodeRequired
	}
	code, err := s.gate.CodeByValue(ctx, codeValue)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid registration code", shared.ErrNotFound)
		}
		return nil, err
	}
	if code.Expired(time.Now()) {
		return nil, ErrCodeExpired
	}
	if code.UsesLeft <= 0 {
		return nil, ErrCodeExhausted
	}
	return &code, nil
}

func (s *Service) grantedRole(ctx context.Context, code *settings.RegistrationCode) (int64, error) {
	if code != nil && code.RoleID != nil {
		return *code.RoleID, nil
	}
	role, err := s.profiles.RoleByName(ctx, identity.RoleOperator)
	if err != nil {
		return 0, err
	}
	return role.ID, nil
}
