package usecases

import (
	"context"
	"time"

	"veritime/internal/domain/device"
	"veritime/internal/shared/config"
	"veritime/internal/shared/errors"
	"veritime/internal/shared/logger"
)

type ListExpiringCredentialsCommand struct {
	// WithinDays defaults to the configured expiry warning horizon.
	WithinDays int
}

type ListExpiringCredentialsResult struct {
	Credentials []*CredentialDTO
}

// ListExpiringCredentialsUseCase surfaces active credentials whose expiry
// falls inside the warning horizon so operators can rotate ahead of time.
type ListExpiringCredentialsUseCase struct {
	credRepo   device.CredentialRepository
	credConfig config.CredentialConfig
	logger     logger.Interface
}

func NewListExpiringCredentialsUseCase(
	credRepo device.CredentialRepository,
	credConfig config.CredentialConfig,
	logger logger.Interface,
) *ListExpiringCredentialsUseCase {
	return &ListExpiringCredentialsUseCase{
		credRepo:   credRepo,
		credConfig: credConfig,
		logger:     logger,
	}
}

func (uc *ListExpiringCredentialsUseCase) Execute(ctx context.Context, cmd ListExpiringCredentialsCommand) (*ListExpiringCredentialsResult, error) {
	days := cmd.WithinDays
	if days == 0 {
		days = uc.credConfig.ExpiryWarningDays
	}
	if days < 0 {
		return nil, errors.NewValidationError("expiry horizon cannot be negative")
	}

	before := time.Now().AddDate(0, 0, days)

	creds, err := uc.credRepo.ListExpiring(ctx, before)
	if err != nil {
		uc.logger.Errorw("failed to list expiring credentials", "error", err)
		return nil, err
	}

	return &ListExpiringCredentialsResult{Credentials: toCredentialDTOs(creds)}, nil
}
