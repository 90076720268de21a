package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/DawPastrator/server/internal/common"
	"github.com/DawPastrator/server/internal/logging"
	"github.com/DawPastrator/server/internal/server/auth"
	"github.com/DawPastrator/server/internal/server/config"
)

// accountAccess is the slice of AccountService the vault surface needs.
type accountAccess interface {
	VerifyMasterPassword(ctx context.Context, userName, masterPassword string) (bool, error)
	GetUserID(ctx context.Context, userName string) (int64, error)
	GetVaultBlob(ctx context.Context, userID int64) ([]byte, error)
	UpdateVaultBlob(ctx context.Context, userID int64, blob []byte) error
}

// VaultService is the caller-facing surface consumed by the web layer:
// authenticate, read vault, write vault. Authentication yields a signed
// token the web layer can put in a cookie and map back via ParseToken.
type VaultService struct {
	accounts      accountAccess
	secretKey     []byte
	tokenValidity time.Duration
	logger        logging.Logger
}

// NewVaultService wires the vault surface over an AccountService.
func NewVaultService(accounts accountAccess, cfg *config.Config, logger logging.Logger) *VaultService {
	return &VaultService{
		accounts:      accounts,
		secretKey:     []byte(cfg.SecretKey),
		tokenValidity: cfg.TokenValidityDuration,
		logger:        logger,
	}
}

// Authenticate checks the credentials and returns a signed token. Unknown
// users and wrong passwords are both ErrUnauthorized — the caller cannot
// tell which, so account existence does not leak.
func (s *VaultService) Authenticate(ctx context.Context, userName, masterPassword string) (string, error) {
	ok, err := s.accounts.VerifyMasterPassword(ctx, userName, masterPassword)
	if err != nil {
		if errors.Is(err, common.ErrUserNameNotFound) {
			return "", common.ErrUnauthorized
		}
		return "", err
	}
	if !ok {
		s.logger.Warn(ctx, "authentication rejected", "user_name", userName)
		return "", common.ErrUnauthorized
	}

	userID, err := s.accounts.GetUserID(ctx, userName)
	if err != nil {
		return "", err
	}
	return auth.GenerateToken(strconv.FormatInt(userID, 10), s.secretKey, s.tokenValidity)
}

// ParseToken maps a token from Authenticate back to its user ID.
func (s *VaultService) ParseToken(tokenString string) (int64, error) {
	claim, err := auth.GetUserIDFromToken(tokenString, s.secretKey)
	if err != nil {
		return 0, err
	}
	userID, err := strconv.ParseInt(claim, 10, 64)
	if err != nil {
		return 0, common.ErrInvalidToken
	}
	return userID, nil
}

// GetVault returns the user's encrypted vault blob.
func (s *VaultService) GetVault(ctx context.Context, userID int64) ([]byte, error) {
	return s.accounts.GetVaultBlob(ctx, userID)
}

// PutVault stores the user's encrypted vault blob.
func (s *VaultService) PutVault(ctx context.Context, userID int64, blob []byte) error {
	return s.accounts.UpdateVaultBlob(ctx, userID, blob)
}
