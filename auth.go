package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"docmon/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Session-service errors. Only registration distinguishes its failures;
// everything credential-shaped collapses to ErrInvalidCredentials so the
// API cannot be used to enumerate usernames.
var (
	ErrConflict           = errors.New("username or email already exists")
	ErrVendorNotFound     = errors.New("vendor not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// tombstonePrefix marks soft-deleted usernames/emails so the original
// values become reusable while the row keeps its history.
const tombstonePrefix = "deleted:"

// Register creates a new active user. No tokens are issued.
func Register(username, password, email string, vendorID *uint) error {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" {
		return fmt.Errorf("username and email required")
	}
	if len(password) < 6 {
		return fmt.Errorf("password too short (min 6)")
	}
	if vendorID != nil {
		var v models.Vendor
		if err := db.First(&v, *vendorID).Error; err != nil {
			return ErrVendorNotFound
		}
	}
	// pre-check existing (optimistic); the unique indexes catch races
	var existing models.User
	if err := db.Where("username = ? OR email = ?", username, email).First(&existing).Error; err == nil {
		return ErrConflict
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	var role models.Role
	if err := db.Where("name = ?", "user").First(&role).Error; err != nil {
		role = models.Role{Name: "user", Description: "regular user"}
		if err2 := db.Where("name = ?", role.Name).FirstOrCreate(&role).Error; err2 != nil {
			return fmt.Errorf("failed to ensure user role: %v", err2)
		}
	}
	rid := role.ID
	user := models.User{
		Username:       username,
		Email:          email,
		HashedPassword: hashedPassword,
		Active:         true,
		SecurityStamp:  uuid.NewString(),
		VendorID:       vendorID,
		RoleID:         &rid,
	}
	if err := db.Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// Authenticate verifies a username/password pair. All failure modes
// return the same error; the distinction only reaches the log.
func Authenticate(username, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	var user models.User
	if err := db.Where("username = ? AND deleted_at IS NULL", username).First(&user).Error; err != nil {
		logger.Debug().Str("username", username).Msg("login: unknown username")
		return models.User{}, ErrInvalidCredentials
	}
	if !user.Active {
		logger.Debug().Uint("user_id", user.ID).Msg("login: inactive user")
		return models.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(password)); err != nil {
		logger.Debug().Uint("user_id", user.ID).Msg("login: bad password")
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Login verifies the credential and issues an access/refresh token pair.
func Login(username, password, ip, userAgent string) (string, string, error) {
	user, err := Authenticate(username, password)
	if err != nil {
		return "", "", err
	}
	now := time.Now()
	db.Model(&models.User{}).Where("id = ?", user.ID).Update("last_login_at", now)

	access, err := issueAccessToken(&user)
	if err != nil {
		return "", "", err
	}
	refresh, err := createAndStoreToken(user.ID, models.TokenPurposeSession, cfg.RefreshTTL, ip, userAgent)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// RefreshSession rotates a refresh token: the presented secret is revoked
// with a conditional update (so of two concurrent callers exactly one
// wins) and a fresh pair is issued to the winner.
func RefreshSession(secret, ip, userAgent string) (string, string, error) {
	rt, err := findTokenByRaw(secret)
	if err != nil || rt.Purpose != models.TokenPurposeSession || !rt.Valid(time.Now()) {
		return "", "", ErrInvalidCredentials
	}
	var user models.User
	if err := db.Where("id = ? AND deleted_at IS NULL", rt.UserID).First(&user).Error; err != nil || !user.Active {
		return "", "", ErrInvalidCredentials
	}
	if !revokeTokenIfValid(rt.ID) {
		// lost the rotation race, or revoked between read and update
		return "", "", ErrInvalidCredentials
	}
	access, err := issueAccessToken(&user)
	if err != nil {
		return "", "", err
	}
	refresh, err := createAndStoreToken(user.ID, models.TokenPurposeSession, cfg.RefreshTTL, ip, userAgent)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Logout revokes the presented refresh token. Returns false when the
// token is unknown, expired or already revoked.
func Logout(secret string) bool {
	rt, err := findTokenByRaw(secret)
	if err != nil || rt.Purpose != models.TokenPurposeSession || !rt.Valid(time.Now()) {
		return false
	}
	return revokeTokenIfValid(rt.ID)
}

// GenerateResetToken issues a short-lived single-use reset token for the
// user matching either username or email. The plaintext is returned to
// the caller and mailed; a mail failure is logged and swallowed so it
// never blocks the flow. An unknown subject yields an empty result.
func GenerateResetToken(username, email string) (string, error) {
	var user models.User
	err := db.Where("deleted_at IS NULL").
		Where("username = ? OR email = ?", strings.TrimSpace(username), strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return "", nil
	}
	token, err := createAndStoreToken(user.ID, models.TokenPurposeReset, cfg.ResetTTL, "", "")
	if err != nil {
		return "", err
	}
	if mail != nil {
		if err := mail.SendResetToken(user.Email, token); err != nil {
			logger.Warn().Err(err).Uint("user_id", user.ID).Msg("reset mail failed")
		}
	}
	return token, nil
}

// ResetPassword consumes a reset token, stores the new password hash,
// rotates the security stamp and revokes every outstanding session token
// for the user.
func ResetPassword(token, newPassword string) error {
	if len(newPassword) < 6 {
		return fmt.Errorf("password too short (min 6)")
	}
	rt, err := findTokenByRaw(token)
	if err != nil || rt.Purpose != models.TokenPurposeReset || !rt.Valid(time.Now()) {
		return ErrInvalidCredentials
	}
	if !revokeTokenIfValid(rt.ID) { // single-use
		return ErrInvalidCredentials
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := time.Now()
	if err := db.Model(&models.User{}).Where("id = ?", rt.UserID).Updates(map[string]interface{}{
		"hashed_password": hashed,
		"security_stamp":  uuid.NewString(),
	}).Error; err != nil {
		return err
	}
	// existing sessions die with the old credential
	db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND purpose = ? AND revoked_at IS NULL", rt.UserID, models.TokenPurposeSession).
		Update("revoked_at", now)
	return nil
}

// DeleteUser soft-deletes: the row stays for referential history but the
// username/email are tombstoned so they can be registered again.
func DeleteUser(userID uint) error {
	var user models.User
	if err := db.Where("id = ? AND deleted_at IS NULL", userID).First(&user).Error; err != nil {
		return err
	}
	now := time.Now()
	stamp := fmt.Sprintf("%s%d:", tombstonePrefix, now.Unix())
	if err := db.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"username":   stamp + user.Username,
		"email":      stamp + user.Email,
		"active":     false,
		"deleted_at": now,
	}).Error; err != nil {
		return err
	}
	db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", user.ID).
		Update("revoked_at", now)
	return nil
}

// issueAccessToken builds the signed HS256 access token for a user.
func issueAccessToken(user *models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      fmt.Sprint(user.ID),
		"jti":      uuid.NewString(),
		"nameid":   fmt.Sprint(user.ID),
		"email":    user.Email,
		"username": user.Username,
		"stamp":    user.SecurityStamp,
		"iat":      now.Unix(),
		"exp":      now.Add(cfg.AccessTTL).Unix(),
	})
	return token.SignedString(jwtSecret)
}

// createAndStoreToken generates a random 64-byte secret, stores its
// sha256 with the given expiry and returns the raw hex string.
func createAndStoreToken(userID uint, purpose string, ttl time.Duration, ip, userAgent string) (string, error) {
	b := make([]byte, 64)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	rt := models.RefreshToken{
		UserID:    userID,
		TokenHash: hashTokenSecret(token),
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(ttl),
		IP:        ip,
		UserAgent: userAgent,
	}
	if err := db.Create(&rt).Error; err != nil {
		return "", err
	}
	return token, nil
}

func hashTokenSecret(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// findTokenByRaw resolves a presented secret to its stored record via the
// indexed sha256, so the lookup stays O(1) regardless of how many tokens
// are outstanding.
func findTokenByRaw(token string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	if err := db.Where("token_hash = ?", hashTokenSecret(token)).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

// revokeTokenIfValid marks a token revoked only if it is still live. The
// conditional WHERE makes consumption atomic: exactly one caller can win.
func revokeTokenIfValid(id uint) bool {
	now := time.Now()
	res := db.Model(&models.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL AND expires_at > ?", id, now).
		Update("revoked_at", now)
	if res.Error != nil {
		logger.Warn().Err(res.Error).Uint("token_id", id).Msg("token revoke failed")
		return false
	}
	return res.RowsAffected == 1
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "UNIQUE constraint") || strings.Contains(s, "already exists")
}
