package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DawPastrator/server/internal/common"
	"github.com/DawPastrator/server/internal/dbx"
	"github.com/DawPastrator/server/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres error codes mapped to the error taxonomy.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// storeErr wraps unclassified database failures as transient store errors.
func storeErr(err error) error {
	return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
}

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (username, password_verifier, vault_blob)
		 VALUES ($1, $2, $3)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		account.UserName, account.Verifier, account.VaultBlob).Scan(&account.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, common.ErrUserNameExists
		}
		return nil, storeErr(err)
	}

	return account, nil
}

func (r *PostgresRepository) GetByName(ctx context.Context, userName string) (*models.Account, error) {
	query :=
		`SELECT id, username, password_verifier, vault_blob FROM accounts
		 WHERE username = $1
		 `

	account := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, userName).
		Scan(&account.ID, &account.UserName, &account.Verifier, &account.VaultBlob)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrUserNameNotFound
		}
		return nil, storeErr(err)
	}

	return account, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query :=
		`SELECT id, username, password_verifier, vault_blob FROM accounts
		 WHERE id = $1
		 `

	account := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&account.ID, &account.UserName, &account.Verifier, &account.VaultBlob)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrUserIDNotFound
		}
		return nil, storeErr(err)
	}

	return account, nil
}

func (r *PostgresRepository) UpdateVerifier(ctx context.Context, id int64, verifier string) error {
	query :=
		`UPDATE accounts SET password_verifier = $1
		 WHERE id = $2
		 `
	res, err := r.db.ExecContext(ctx, query, verifier, id)
	if err != nil {
		return storeErr(err)
	}
	return checkOneRow(res)
}

func (r *PostgresRepository) UpdateVaultBlob(ctx context.Context, id int64, blob []byte) error {
	query :=
		`UPDATE accounts SET vault_blob = $1
		 WHERE id = $2
		 `
	res, err := r.db.ExecContext(ctx, query, blob, id)
	if err != nil {
		return storeErr(err)
	}
	return checkOneRow(res)
}

func (r *PostgresRepository) AddDevice(ctx context.Context, accountID int64, device models.DeviceEntry) error {
	query :=
		`INSERT INTO devices (account_id, device_id, public_key)
		 VALUES ($1, $2, $3)
		 `
	_, err := r.db.ExecContext(ctx, query, accountID, device.DeviceID, device.PublicKey)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return common.ErrUserIDNotFound
		}
		return storeErr(err)
	}
	return nil
}

func (r *PostgresRepository) RemoveDevice(ctx context.Context, accountID int64, deviceID string) error {
	query :=
		`DELETE FROM devices
		 WHERE account_id = $1 AND device_id = $2
		 `
	res, err := r.db.ExecContext(ctx, query, accountID, deviceID)
	if err != nil {
		return storeErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if affected == 0 {
		return common.ErrDeviceNotFound
	}
	return nil
}

func (r *PostgresRepository) ListDevices(ctx context.Context, accountID int64) ([]models.DeviceEntry, error) {
	query :=
		`SELECT device_id, public_key FROM devices
		 WHERE account_id = $1
		 ORDER BY device_id
		 `
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	entries := []models.DeviceEntry{}
	for rows.Next() {
		var e models.DeviceEntry
		if err := rows.Scan(&e.DeviceID, &e.PublicKey); err != nil {
			return nil, storeErr(err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}
	return entries, nil
}

// Delete removes the account row; devices cascade. Exactly one row must be
// affected: zero means the ID is gone, more than one means the unique key
// is corrupt and the failure must surface loudly.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	query :=
		`DELETE FROM accounts
		 WHERE id = $1
		 `
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return storeErr(err)
	}
	return checkOneRow(res)
}

func checkOneRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	switch {
	case affected == 0:
		return common.ErrUserIDNotFound
	case affected > 1:
		return fmt.Errorf("%w: %d rows affected for one id", common.ErrInvariantViolation, affected)
	}
	return nil
}
