package main

import (
	"testing"
	"time"

	"docmon/config"
	"docmon/models"
	pkglog "docmon/pkg/log"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestEnv points the package globals at an in-memory database and a
// test configuration. Every test gets a fresh database.
func setupTestEnv(t *testing.T) {
	t.Helper()
	cfg = &config.Config{
		AppEnv:           "test",
		JWTSecret:        "test-secret",
		AccessTTL:        time.Hour,
		RefreshTTL:       7 * 24 * time.Hour,
		ResetTTL:         time.Hour,
		ExposeResetToken: true,
		UploadBase:       t.TempDir(),
	}
	logger = pkglog.New(cfg.AppEnv)
	jwtSecret = []byte(cfg.JWTSecret)
	mail = nil

	var err error
	db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	// the pool must stay at one connection or every pooled conn gets its
	// own empty :memory: database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	migrateDB(db)
	seedDB()
}

func registerAlice(t *testing.T) {
	t.Helper()
	require.NoError(t, Register("alice", "Secret1!", "alice@x.com", nil))
}

func TestRegisterConflicts(t *testing.T) {
	setupTestEnv(t)
	registerAlice(t)

	assert.ErrorIs(t, Register("alice", "Other1!", "other@x.com", nil), ErrConflict)
	assert.ErrorIs(t, Register("other", "Other1!", "alice@x.com", nil), ErrConflict)

	missing := uint(9999)
	assert.ErrorIs(t, Register("bob", "Secret1!", "bob@x.com", &missing), ErrVendorNotFound)
}

func TestRegisterWithVendor(t *testing.T) {
	setupTestEnv(t)
	v := models.Vendor{Name: "Acme", Active: true}
	require.NoError(t, db.Create(&v).Error)

	require.NoError(t, Register("carol", "Secret1!", "carol@x.com", &v.ID))
	var u models.User
	require.NoError(t, db.Where("username = ?", "carol").First(&u).Error)
	require.NotNil(t, u.VendorID)
	assert.Equal(t, v.ID, *u.VendorID)
	assert.NotEmpty(t, u.SecurityStamp)
}

func TestLoginIssuesTokens(t *testing.T) {
	setupTestEnv(t)
	registerAlice(t)

	access1, refresh1, err := Login("alice", "Secret1!", "127.0.0.1", "test")
	require.NoError(t, err)
	assert.NotEmpty(t, access1)
	assert.NotEmpty(t, refresh1)

	_, refresh2, err := Login("alice", "Secret1!", "127.0.0.1", "test")
	require.NoError(t, err)
	assert.NotEqual(t, refresh1, refresh2, "each login must issue a fresh refresh secret")

	var u models.User
	require.NoError(t, db.Where("username = ?", "alice").First(&u).Error)
	assert.NotNil(t, u.LastLoginAt)
}

func TestLoginEnumerationResistance(t *testing.T) {
	setupTestEnv(t)
	registerAlice(t)

	_, _, errUnknown := Login("nobody", "whatever", "", "")
	_, _, errBadPass := Login("alice", "wrong-password", "", "")
	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.ErrorIs(t, errBadPass, ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errBadPass.Error(), "failure modes must be indistinguishable")
}

func TestLoginInactiveUser(t *testing.T) {
	setupTestEnv(t)
	registerAlice(t)
	db.Model(&models.User{}).Where("username = ?", "alice").Update("active", false)

	_, _, err := Login("alice", "Secret1!", "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshRotation(t *testing.T) {
	setupTestEnv(t)
	registerAlice(t)

	_, r1, err := Login("alice", "Secret1!", "", "")
	require.NoError(t, err)

	access2, r2, err := RefreshSession(r1, "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, access2)
	assert.NotEqual(t, r1, r2)

	// replaying the rotated-out secret must fail
	_, _, err = RefreshSession(r1, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// the new secret still works
	_, _, err = RefreshSession(r2, "", "")
	assert.NoError(t, err)
}

func TestLogoutIsPermanent(t *testing.T) {
	setupTestEnv(t)
	registerAlice(t)

	_, r1, err := Login("alice", "Secret1!", "", "")
	require.NoError(t, err)

	assert.True(t, Logout(r1))
	assert.False(t, Logout(r1), "second logout of the same secret must fail")

	_, _, err = RefreshSession(r1, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogoutUnknownSecret(t *testing.T) {
	setupTestEnv(t)
	assert.False(t, Logout("not-a-token"))
}

func TestExpiredRefreshTokenFails(t *testing.T) {
	setupTestEnv(t)
	registerAlice(t)

	_, r1, err := Login("alice", "Secret1!", "", "")
	require.NoError(t, err)

	// age the stored record past its expiry without revoking it
	res := db.Model(&models.RefreshToken{}).
		Where("token_hash = ?", hashTokenSecret(r1)).
		Update("expires_at", time.Now().Add(-time.Minute))
	require.NoError(t, res.Error)
	require.EqualValues(t, 1, res.RowsAffected)

	_, _, err = RefreshSession(r1, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.False(t, Logout(r1))
}

func TestResetTokenNotUsableAsRefresh(t *testing.T) {
	setupTestEnv(t)
	registerAlice(t)

	reset, err := GenerateResetToken("alice", "")
	require.NoError(t, err)
	require.NotEmpty(t, reset)

	_, _, err = RefreshSession(reset, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestGenerateResetUnknownSubject(t *testing.T) {
	setupTestEnv(t)
	token, err := GenerateResetToken("ghost", "ghost@x.com")
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestResetPasswordFlow(t *testing.T) {
	setupTestEnv(t)
	registerAlice(t)

	_, session, err := Login("alice", "Secret1!", "", "")
	require.NoError(t, err)

	reset, err := GenerateResetToken("", "alice@x.com")
	require.NoError(t, err)
	require.NotEmpty(t, reset)

	require.NoError(t, ResetPassword(reset, "NewPass1!"))

	// single use
	assert.Error(t, ResetPassword(reset, "Another1!"))

	// the old credential is dead, the new one works
	_, _, err = Login("alice", "Secret1!", "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = Login("alice", "NewPass1!", "", "")
	assert.NoError(t, err)

	// outstanding sessions died with the reset
	_, _, err = RefreshSession(session, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestResetPasswordRotatesSecurityStamp(t *testing.T) {
	setupTestEnv(t)
	registerAlice(t)

	var before models.User
	require.NoError(t, db.Where("username = ?", "alice").First(&before).Error)

	reset, err := GenerateResetToken("alice", "")
	require.NoError(t, err)
	require.NoError(t, ResetPassword(reset, "NewPass1!"))

	var after models.User
	require.NoError(t, db.Where("username = ?", "alice").First(&after).Error)
	assert.NotEqual(t, before.SecurityStamp, after.SecurityStamp)
}

func TestDeleteUserTombstonesCredentials(t *testing.T) {
	setupTestEnv(t)
	registerAlice(t)

	var u models.User
	require.NoError(t, db.Where("username = ?", "alice").First(&u).Error)
	require.NoError(t, DeleteUser(u.ID))

	// the row survives with tombstoned identity
	var gone models.User
	require.NoError(t, db.First(&gone, u.ID).Error)
	assert.NotNil(t, gone.DeletedAt)
	assert.NotEqual(t, "alice", gone.Username)
	assert.Contains(t, gone.Username, "alice")

	// the original username/email are free again
	require.NoError(t, Register("alice", "Secret2!", "alice@x.com", nil))

	// the deleted user cannot log in under the tombstone either
	_, _, err := Login(gone.Username, "Secret1!", "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRevokeTokenIfValidSingleWinner(t *testing.T) {
	setupTestEnv(t)
	registerAlice(t)

	_, r1, err := Login("alice", "Secret1!", "", "")
	require.NoError(t, err)
	rt, err := findTokenByRaw(r1)
	require.NoError(t, err)

	assert.True(t, revokeTokenIfValid(rt.ID))
	assert.False(t, revokeTokenIfValid(rt.ID), "consumption must be at-most-once")
}
