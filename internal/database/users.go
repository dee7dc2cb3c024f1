package database

import (
	"errors"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"phuket-estate/internal/auth"
	"phuket-estate/internal/models"
)

// GetAllUsers retrieves every back-office account, newest first
func (s *Store) GetAllUsers() ([]models.User, error) {
	var users []models.User
	if err := s.db.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, wrapErr("list users", err)
	}
	return users, nil
}

// GetUserByID retrieves one account by id
func (s *Store) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, wrapErr("get user", err)
	}
	return &user, nil
}

// GetUserByUsername retrieves one account by its login name
func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, wrapErr("get user", err)
	}
	return &user, nil
}

// UserFilters holds the admin user list search conditions
type UserFilters struct {
	SearchTerm string
	Role       string
	IsActive   *bool
}

// SearchUsers queries accounts by name or username, role and active flag
func (s *Store) SearchUsers(f UserFilters) ([]models.User, error) {
	query := s.db.Model(&models.User{})

	if f.SearchTerm != "" {
		term := "%" + strings.ToLower(f.SearchTerm) + "%"
		query = query.Where("LOWER(username) LIKE ? OR LOWER(name) LIKE ?", term, term)
	}
	if f.Role != "" {
		query = query.Where("role = ?", f.Role)
	}
	if f.IsActive != nil {
		query = query.Where("is_active = ?", *f.IsActive)
	}

	var users []models.User
	if err := query.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, wrapErr("search users", err)
	}
	return users, nil
}

// UsernameExists reports whether a login name is already taken
func (s *Store) UsernameExists(username string) (bool, error) {
	var count int64
	err := s.db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error
	if err != nil {
		return false, wrapErr("check username", err)
	}
	return count > 0, nil
}

// CreateUser validates the account, hashes the password and inserts it.
// The plaintext in user.Password is replaced by its bcrypt hash.
func (s *Store) CreateUser(user *models.User, bcryptCost int) error {
	if err := validateUser(user); err != nil {
		return err
	}

	taken, err := s.UsernameExists(user.Username)
	if err != nil {
		return err
	}
	if taken {
		return &ValidationError{Field: "username", Reason: "already taken"}
	}

	hash, err := auth.HashPassword(user.Password, bcryptCost)
	if err != nil {
		return wrapErr("create user", err)
	}
	user.Password = hash

	if err := s.db.Create(user).Error; err != nil {
		return wrapErr("create user", err)
	}
	return nil
}

// UpdateUser applies a partial field set to an account and returns the
// updated record. Password changes go through ResetPassword instead.
func (s *Store) UpdateUser(id string, updates map[string]interface{}) (*models.User, error) {
	delete(updates, "password")

	if role, ok := updates["role"].(string); ok && !models.ValidRole(role) {
		return nil, &ValidationError{Field: "role", Reason: "unknown role"}
	}

	var existing models.User
	if err := s.db.Where("id = ?", id).First(&existing).Error; err != nil {
		return nil, wrapErr("update user", err)
	}

	if len(updates) > 0 {
		if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
			return nil, wrapErr("update user", err)
		}
	}

	return s.GetUserByID(id)
}

// DeleteUser removes an account
func (s *Store) DeleteUser(id string) error {
	result := s.db.Delete(&models.User{}, "id = ?", id)
	if result.Error != nil {
		return wrapErr("delete user", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleUserStatus flips the active flag and returns the updated account
func (s *Store) ToggleUserStatus(id string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, wrapErr("toggle user status", err)
	}

	err := s.db.Model(&user).Update("is_active", !user.IsActive).Error
	if err != nil {
		return nil, wrapErr("toggle user status", err)
	}
	return s.GetUserByID(id)
}

// ResetPassword replaces an account's credential with a fresh bcrypt hash
func (s *Store) ResetPassword(id, newPassword string, bcryptCost int) error {
	if len(newPassword) < 8 {
		return &ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	}

	var user models.User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		return wrapErr("reset password", err)
	}

	hash, err := auth.HashPassword(newPassword, bcryptCost)
	if err != nil {
		return wrapErr("reset password", err)
	}

	if err := s.db.Model(&user).Update("password", hash).Error; err != nil {
		return wrapErr("reset password", err)
	}
	return nil
}

// Authenticate verifies a login attempt and records the login time.
// Unknown username, wrong password and a deactivated account all return
// the same ErrInvalidCredentials so the response never reveals which
// check failed.
func (s *Store) Authenticate(username, password string) (*models.User, error) {
	var user models.User
	err := s.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, wrapErr("authenticate", err)
	}

	if !auth.CheckPassword(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.db.Model(&user).Update("last_login", now).Error; err != nil {
		return nil, wrapErr("authenticate", err)
	}
	user.LastLogin = &now

	return &user, nil
}

// MigrateLegacyPasswords rewrites accounts whose stored credential is not
// a bcrypt hash (plaintext or base64 from the earliest imports). Each
// recovered plaintext is re-hashed and written back; the migrated
// usernames are logged and returned. Already-hashed accounts are left
// untouched, so the operation is safe to run repeatedly.
func (s *Store) MigrateLegacyPasswords(bcryptCost int) ([]string, error) {
	var users []models.User
	if err := s.db.Find(&users).Error; err != nil {
		return nil, wrapErr("migrate passwords", err)
	}

	migrated := make([]string, 0)
	for _, user := range users {
		plaintext, legacy := auth.RecoverLegacyPassword(user.Password)
		if !legacy {
			continue
		}

		hash, err := auth.HashPassword(plaintext, bcryptCost)
		if err != nil {
			return migrated, wrapErr("migrate passwords", err)
		}
		err = s.db.Model(&models.User{}).Where("id = ?", user.ID).Update("password", hash).Error
		if err != nil {
			return migrated, wrapErr("migrate passwords", err)
		}

		log.Printf("[Password Migration] migrated user=%s", user.Username)
		migrated = append(migrated, user.Username)
	}

	return migrated, nil
}

// GetRecentActiveUsers returns active accounts that logged in within the
// given window, most recent first
func (s *Store) GetRecentActiveUsers(within time.Duration) ([]models.User, error) {
	cutoff := time.Now().Add(-within)
	var users []models.User
	err := s.db.Where("is_active = ? AND last_login >= ?", true, cutoff).
		Order("last_login DESC").
		Find(&users).Error
	if err != nil {
		return nil, wrapErr("list recent users", err)
	}
	return users, nil
}

// UserStats holds the account counts shown on the admin dashboard
type UserStats struct {
	Total    int64            `json:"total"`
	Active   int64            `json:"active"`
	Inactive int64            `json:"inactive"`
	ByRole   map[string]int64 `json:"by_role"`
}

// GetUserStats aggregates account counts by active flag and role
func (s *Store) GetUserStats() (*UserStats, error) {
	stats := &UserStats{ByRole: make(map[string]int64)}

	if err := s.db.Model(&models.User{}).Count(&stats.Total).Error; err != nil {
		return nil, wrapErr("user stats", err)
	}
	if err := s.db.Model(&models.User{}).Where("is_active = ?", true).Count(&stats.Active).Error; err != nil {
		return nil, wrapErr("user stats", err)
	}
	stats.Inactive = stats.Total - stats.Active

	type roleCount struct {
		Role  string
		Count int64
	}
	var byRole []roleCount
	err := s.db.Model(&models.User{}).
		Select("role, count(*) as count").
		Group("role").
		Scan(&byRole).Error
	if err != nil {
		return nil, wrapErr("user stats", err)
	}
	for _, g := range byRole {
		stats.ByRole[g.Role] = g.Count
	}

	return stats, nil
}

func validateUser(u *models.User) error {
	switch {
	case strings.TrimSpace(u.Username) == "":
		return &ValidationError{Field: "username", Reason: "required"}
	case strings.TrimSpace(u.Name) == "":
		return &ValidationError{Field: "name", Reason: "required"}
	case len(u.Password) < 8:
		return &ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	case u.Role != "" && !models.ValidRole(string(u.Role)):
		return &ValidationError{Field: "role", Reason: "unknown role"}
	}
	return nil
}
