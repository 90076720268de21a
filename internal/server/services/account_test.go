package services

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/DawPastrator/server/internal/common"
	"github.com/DawPastrator/server/internal/cryptox"
	"github.com/DawPastrator/server/internal/dbx"
	"github.com/DawPastrator/server/internal/logging"
	"github.com/DawPastrator/server/internal/server/models"
	"github.com/DawPastrator/server/internal/server/repositories/accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (l nopLogger) With(...any) logging.Logger          { return l }

type fakeRepo struct {
	byName map[string]*models.Account
	byID   map[int64]*models.Account

	devices map[int64][]models.DeviceEntry

	nextID int64

	createErr error
	updateErr error
	deleteErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		byName:  map[string]*models.Account{},
		byID:    map[int64]*models.Account{},
		devices: map[int64][]models.DeviceEntry{},
		nextID:  1,
	}
}

func (f *fakeRepo) add(a *models.Account) *models.Account {
	a.ID = f.nextID
	f.nextID++
	f.byName[a.UserName] = a
	f.byID[a.ID] = a
	return a
}

func (f *fakeRepo) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.byName[a.UserName]; ok {
		return nil, common.ErrUserNameExists
	}
	return f.add(a), nil
}

func (f *fakeRepo) GetByName(ctx context.Context, userName string) (*models.Account, error) {
	a, ok := f.byName[userName]
	if !ok {
		return nil, common.ErrUserNameNotFound
	}
	return a, nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, common.ErrUserIDNotFound
	}
	return a, nil
}

func (f *fakeRepo) UpdateVerifier(ctx context.Context, id int64, verifier string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	a, ok := f.byID[id]
	if !ok {
		return common.ErrUserIDNotFound
	}
	a.Verifier = verifier
	return nil
}

func (f *fakeRepo) UpdateVaultBlob(ctx context.Context, id int64, blob []byte) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	a, ok := f.byID[id]
	if !ok {
		return common.ErrUserIDNotFound
	}
	a.VaultBlob = blob
	return nil
}

func (f *fakeRepo) AddDevice(ctx context.Context, accountID int64, device models.DeviceEntry) error {
	if _, ok := f.byID[accountID]; !ok {
		return common.ErrUserIDNotFound
	}
	f.devices[accountID] = append(f.devices[accountID], device)
	return nil
}

func (f *fakeRepo) RemoveDevice(ctx context.Context, accountID int64, deviceID string) error {
	list := f.devices[accountID]
	for i, d := range list {
		if d.DeviceID == deviceID {
			f.devices[accountID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return common.ErrDeviceNotFound
}

func (f *fakeRepo) ListDevices(ctx context.Context, accountID int64) ([]models.DeviceEntry, error) {
	return append([]models.DeviceEntry{}, f.devices[accountID]...), nil
}

func (f *fakeRepo) Delete(ctx context.Context, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	a, ok := f.byID[id]
	if !ok {
		return common.ErrUserIDNotFound
	}
	delete(f.byID, id)
	delete(f.byName, a.UserName)
	delete(f.devices, id)
	return nil
}

func newServiceWithFake(t *testing.T) (*AccountService, *fakeRepo, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	repo := newFakeRepo()
	s := NewAccountService(conn, nopLogger{})
	s.repoFor = func(dbx.DBTX) accounts.Repository { return repo }
	return s, repo, mock, conn
}

// --- tests ---

func TestCreateAccount_Success(t *testing.T) {
	s, repo, mock, _ := newServiceWithFake(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	id, err := s.CreateAccount(context.Background(), "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	stored := repo.byName["alice"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "pw1", stored.Verifier)

	wantVerifier, err := cryptox.HashPassword("pw1", "alice")
	require.NoError(t, err)
	assert.Equal(t, wantVerifier, stored.Verifier)
	assert.Nil(t, stored.VaultBlob)
}

func TestCreateAccount_EmptyInputs(t *testing.T) {
	s, _, _, _ := newServiceWithFake(t)

	_, err := s.CreateAccount(context.Background(), "", "pw")
	assert.ErrorIs(t, err, common.ErrEmptyUserName)

	_, err = s.CreateAccount(context.Background(), "alice", "")
	assert.ErrorIs(t, err, common.ErrEmptyPassword)
}

func TestCreateAccount_DuplicateName(t *testing.T) {
	s, repo, mock, _ := newServiceWithFake(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	_, err := s.CreateAccount(context.Background(), "alice", "pw1")
	require.NoError(t, err)
	firstVerifier := repo.byName["alice"].Verifier

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err = s.CreateAccount(context.Background(), "alice", "pw2")
	assert.ErrorIs(t, err, common.ErrUserNameExists)

	// The original record is untouched.
	assert.Equal(t, firstVerifier, repo.byName["alice"].Verifier)
}

func TestGetUserID(t *testing.T) {
	s, repo, _, _ := newServiceWithFake(t)
	repo.add(&models.Account{UserName: "bob", Verifier: "v"})

	id, err := s.GetUserID(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	_, err = s.GetUserID(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrUserNameNotFound)
}

func TestVerifyMasterPassword(t *testing.T) {
	s, repo, _, _ := newServiceWithFake(t)

	verifier, err := cryptox.HashPassword("secret", "bob")
	require.NoError(t, err)
	repo.add(&models.Account{UserName: "bob", Verifier: verifier})

	ok, err := s.VerifyMasterPassword(context.Background(), "bob", "secret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.VerifyMasterPassword(context.Background(), "bob", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.VerifyMasterPassword(context.Background(), "bob", "")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.VerifyMasterPassword(context.Background(), "ghost", "secret")
	assert.ErrorIs(t, err, common.ErrUserNameNotFound)
}

func TestUpdateMasterPassword_RotatesVerifierAndBlob(t *testing.T) {
	s, repo, mock, _ := newServiceWithFake(t)

	verifier, err := cryptox.HashPassword("old-pw", "alice")
	require.NoError(t, err)
	a := repo.add(&models.Account{UserName: "alice", Verifier: verifier, VaultBlob: []byte("old blob")})

	mock.ExpectBegin()
	mock.ExpectCommit()

	newBlob := []byte("blob re-encrypted under new-pw")
	require.NoError(t, s.UpdateMasterPassword(context.Background(), a.ID, "new-pw", newBlob))

	wantVerifier, err := cryptox.HashPassword("new-pw", "alice")
	require.NoError(t, err)
	assert.Equal(t, wantVerifier, repo.byID[a.ID].Verifier)
	assert.Equal(t, newBlob, repo.byID[a.ID].VaultBlob)
}

func TestUpdateMasterPassword_Errors(t *testing.T) {
	s, _, mock, _ := newServiceWithFake(t)

	err := s.UpdateMasterPassword(context.Background(), 1, "", nil)
	assert.ErrorIs(t, err, common.ErrEmptyPassword)

	mock.ExpectBegin()
	mock.ExpectRollback()
	err = s.UpdateMasterPassword(context.Background(), 99, "new-pw", nil)
	assert.ErrorIs(t, err, common.ErrUserIDNotFound)
}

func TestVaultBlob_RoundTrip(t *testing.T) {
	s, repo, _, _ := newServiceWithFake(t)
	a := repo.add(&models.Account{UserName: "alice", Verifier: "v"})

	blob, err := s.GetVaultBlob(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Nil(t, blob)

	require.NoError(t, s.UpdateVaultBlob(context.Background(), a.ID, []byte{1, 2, 3}))

	blob, err = s.GetVaultBlob(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, blob)

	_, err = s.GetVaultBlob(context.Background(), 99)
	assert.ErrorIs(t, err, common.ErrUserIDNotFound)
}

func TestDeviceLifecycle(t *testing.T) {
	s, repo, _, _ := newServiceWithFake(t)
	a := repo.add(&models.Account{UserName: "alice", Verifier: "v"})

	deviceID, err := s.AddDevice(context.Background(), a.ID, "pubkeyA")
	require.NoError(t, err)
	assert.NotEmpty(t, deviceID)

	devices, err := s.GetDevices(context.Background(), a.ID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "pubkeyA", devices[0].PublicKey)

	require.NoError(t, s.RemoveDevice(context.Background(), a.ID, deviceID))

	devices, err = s.GetDevices(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Empty(t, devices)

	// Removing again is DeviceNotFound with no side effects.
	err = s.RemoveDevice(context.Background(), a.ID, deviceID)
	assert.ErrorIs(t, err, common.ErrDeviceNotFound)

	_, err = s.AddDevice(context.Background(), 99, "pk")
	assert.ErrorIs(t, err, common.ErrUserIDNotFound)
}

func TestDevicesSnapshot_RoundTrips(t *testing.T) {
	s, repo, _, _ := newServiceWithFake(t)
	a := repo.add(&models.Account{UserName: "alice", Verifier: "v"})

	_, err := s.AddDevice(context.Background(), a.ID, "public key1")
	require.NoError(t, err)
	_, err = s.AddDevice(context.Background(), a.ID, "public key2")
	require.NoError(t, err)

	snapshot, err := s.DevicesSnapshot(context.Background(), a.ID)
	require.NoError(t, err)

	decoded, err := models.DecodeDevices(snapshot)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
}

func TestDeleteAccount(t *testing.T) {
	s, repo, _, _ := newServiceWithFake(t)
	a := repo.add(&models.Account{UserName: "alice", Verifier: "v"})
	_, err := s.AddDevice(context.Background(), a.ID, "pk")
	require.NoError(t, err)

	require.NoError(t, s.DeleteAccount(context.Background(), a.ID))

	// Cascade: devices are gone, the name no longer resolves.
	assert.Empty(t, repo.devices[a.ID])
	_, err = s.GetUserID(context.Background(), "alice")
	assert.ErrorIs(t, err, common.ErrUserNameNotFound)

	err = s.DeleteAccount(context.Background(), a.ID)
	assert.ErrorIs(t, err, common.ErrUserIDNotFound)
}

func TestDeleteAccount_InvariantViolationSurfaces(t *testing.T) {
	s, repo, _, _ := newServiceWithFake(t)
	repo.deleteErr = fmt.Errorf("%w: 2 rows affected for one id", common.ErrInvariantViolation)

	err := s.DeleteAccount(context.Background(), 1)
	assert.ErrorIs(t, err, common.ErrInvariantViolation)
}
