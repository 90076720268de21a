// Package services contains the server-side business logic: the account
// state machine and the vault surface consumed by the web layer.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"

	"github.com/DawPastrator/server/internal/common"
	"github.com/DawPastrator/server/internal/cryptox"
	"github.com/DawPastrator/server/internal/dbx"
	"github.com/DawPastrator/server/internal/logging"
	"github.com/DawPastrator/server/internal/server/models"
	"github.com/DawPastrator/server/internal/server/repositories/accounts"
	"github.com/google/uuid"
)

// AccountService implements the account state machine: an account is
// non-existent, then active, then deleted, with every mutation atomic from
// the caller's perspective. All expected failures come from the closed
// taxonomy in internal/common.
type AccountService struct {
	db      *sql.DB
	repoFor func(db dbx.DBTX) accounts.Repository
	logger  logging.Logger
}

// NewAccountService constructs an AccountService over the given database.
func NewAccountService(db *sql.DB, logger logging.Logger) *AccountService {
	return &AccountService{
		db: db,
		repoFor: func(db dbx.DBTX) accounts.Repository {
			return accounts.NewPostgresRepository(db)
		},
		logger: logger,
	}
}

// CreateAccount registers a new account and returns its generated user ID.
// The verifier is derived from the master password with the user name as
// salt; the raw password is never stored. The duplicate pre-check is
// advisory — the unique index closes the race, surfacing as
// ErrUserNameExists either way.
func (s *AccountService) CreateAccount(ctx context.Context, userName, masterPassword string) (int64, error) {
	if userName == "" {
		return 0, common.ErrEmptyUserName
	}
	if masterPassword == "" {
		return 0, common.ErrEmptyPassword
	}

	verifier, err := cryptox.HashPassword(masterPassword, userName)
	if err != nil {
		return 0, err
	}

	var id int64
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repoFor(tx)

		_, err := repo.GetByName(ctx, userName)
		if err == nil {
			return common.ErrUserNameExists
		}
		if !errors.Is(err, common.ErrUserNameNotFound) {
			return err
		}

		created, err := repo.Create(ctx, &models.Account{UserName: userName, Verifier: verifier})
		if err != nil {
			return err
		}
		id = created.ID
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info(ctx, "account created", "user_id", id)
	return id, nil
}

// GetUserID resolves a user name to its account ID.
func (s *AccountService) GetUserID(ctx context.Context, userName string) (int64, error) {
	account, err := s.repoFor(s.db).GetByName(ctx, userName)
	if err != nil {
		return 0, err
	}
	return account.ID, nil
}

// VerifyMasterPassword recomputes the verifier for the candidate password
// and compares it to the stored one in constant time. A mismatch is a false
// result, not an error; only a missing user errors.
func (s *AccountService) VerifyMasterPassword(ctx context.Context, userName, masterPassword string) (bool, error) {
	account, err := s.repoFor(s.db).GetByName(ctx, userName)
	if err != nil {
		return false, err
	}
	if masterPassword == "" {
		return false, nil
	}

	candidate, err := cryptox.HashPassword(masterPassword, account.UserName)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(account.Verifier)) == 1, nil
}

// UpdateMasterPassword rotates the master password. The vault key is
// derived from the password, so the caller must hand over the vault blob
// already re-encrypted under the new password; verifier and blob are
// swapped in one transaction.
func (s *AccountService) UpdateMasterPassword(ctx context.Context, userID int64, newMasterPassword string, reencryptedVaultBlob []byte) error {
	if newMasterPassword == "" {
		return common.ErrEmptyPassword
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repoFor(tx)

		account, err := repo.GetByID(ctx, userID)
		if err != nil {
			return err
		}

		verifier, err := cryptox.HashPassword(newMasterPassword, account.UserName)
		if err != nil {
			return err
		}

		if err := repo.UpdateVerifier(ctx, userID, verifier); err != nil {
			return err
		}
		return repo.UpdateVaultBlob(ctx, userID, reencryptedVaultBlob)
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "master password rotated", "user_id", userID)
	return nil
}

// GetVaultBlob returns the stored vault blob, nil if nothing was stored yet.
func (s *AccountService) GetVaultBlob(ctx context.Context, userID int64) ([]byte, error) {
	account, err := s.repoFor(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return account.VaultBlob, nil
}

// UpdateVaultBlob replaces the stored vault blob.
func (s *AccountService) UpdateVaultBlob(ctx context.Context, userID int64, blob []byte) error {
	return s.repoFor(s.db).UpdateVaultBlob(ctx, userID, blob)
}

// AddDevice registers a device public key and returns the generated device
// ID.
func (s *AccountService) AddDevice(ctx context.Context, userID int64, publicKey string) (string, error) {
	deviceID := uuid.NewString()
	entry := models.DeviceEntry{DeviceID: deviceID, PublicKey: publicKey}
	if err := s.repoFor(s.db).AddDevice(ctx, userID, entry); err != nil {
		return "", err
	}
	return deviceID, nil
}

// RemoveDevice unregisters a device; an absent device is ErrDeviceNotFound
// with no side effects.
func (s *AccountService) RemoveDevice(ctx context.Context, userID int64, deviceID string) error {
	return s.repoFor(s.db).RemoveDevice(ctx, userID, deviceID)
}

// GetDevices lists the account's registered devices.
func (s *AccountService) GetDevices(ctx context.Context, userID int64) ([]models.DeviceEntry, error) {
	repo := s.repoFor(s.db)
	if _, err := repo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return repo.ListDevices(ctx, userID)
}

// DevicesSnapshot returns the device registry in its serialized
// length-prefixed form, as embedded in vault blobs.
func (s *AccountService) DevicesSnapshot(ctx context.Context, userID int64) ([]byte, error) {
	entries, err := s.GetDevices(ctx, userID)
	if err != nil {
		return nil, err
	}
	return models.EncodeDevices(entries), nil
}

// DeleteAccount removes the account and, via cascade, its devices. The
// deleted state is terminal. An invariant violation from the store is
// logged loudly and passed through untouched.
func (s *AccountService) DeleteAccount(ctx context.Context, userID int64) error {
	err := s.repoFor(s.db).Delete(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrInvariantViolation) {
			s.logger.Error(ctx, "unique-key corruption detected on delete", "user_id", userID, "error", err.Error())
		}
		return err
	}

	s.logger.Info(ctx, "account deleted", "user_id", userID)
	return nil
}
