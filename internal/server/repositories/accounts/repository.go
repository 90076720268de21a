// Package accounts persists account records and their device registries.
// The interface is the narrow CRUD boundary the rest of the server sees;
// each mutable field has its own fixed update statement.
package accounts

import (
	"context"

	"github.com/DawPastrator/server/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByName(ctx context.Context, userName string) (*models.Account, error)
	GetByID(ctx context.Context, id int64) (*models.Account, error)

	UpdateVerifier(ctx context.Context, id int64, verifier string) error
	UpdateVaultBlob(ctx context.Context, id int64, blob []byte) error

	AddDevice(ctx context.Context, accountID int64, device models.DeviceEntry) error
	RemoveDevice(ctx context.Context, accountID int64, deviceID string) error
	ListDevices(ctx context.Context, accountID int64) ([]models.DeviceEntry, error)

	Delete(ctx context.Context, id int64) error
}
