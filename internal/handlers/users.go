package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"phuket-estate/internal/database"
	"phuket-estate/internal/models"
)

// UserHandler serves the admin account management endpoints
type UserHandler struct {
	store      *database.Store
	bcryptCost int
}

func NewUserHandler(store *database.Store, bcryptCost int) *UserHandler {
	return &UserHandler{store: store, bcryptCost: bcryptCost}
}

// ListUsers returns accounts, optionally filtered by search term, role
// and active flag
func (h *UserHandler) ListUsers(c *gin.Context) {
	filters := database.UserFilters{
		SearchTerm: c.Query("search"),
		Role:       c.Query("role"),
	}
	if v := c.Query("active"); v == "true" || v == "false" {
		active := v == "true"
		filters.IsActive = &active
	}

	users, err := h.store.SearchUsers(filters)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"count": len(users),
	})
}

// GetUser returns one account by id
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.store.GetUserByID(c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type createUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role"`
}

// CreateUser adds a back-office account
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username, password and name are required"})
		return
	}

	user := models.User{
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
		Role:     models.UserRole(req.Role),
		IsActive: true,
	}
	if user.Role == "" {
		user.Role = models.RoleEditor
	}
	if claims := CurrentClaims(c); claims != nil {
		user.CreatedBy = claims.Subject
	}

	if err := h.store.CreateUser(&user, h.bcryptCost); err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// UpdateUser applies a partial update to an account
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	delete(updates, "id")
	delete(updates, "username")
	if claims := CurrentClaims(c); claims != nil {
		updates["updated_by"] = claims.Subject
	}

	user, err := h.store.UpdateUser(c.Param("id"), updates)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser removes an account. Accounts cannot remove themselves.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if claims := CurrentClaims(c); claims != nil && claims.Subject == id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot delete your own account"})
		return
	}

	if err := h.store.DeleteUser(id); err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// ToggleUserStatus flips an account's active flag
func (h *UserHandler) ToggleUserStatus(c *gin.Context) {
	id := c.Param("id")
	if claims := CurrentClaims(c); claims != nil && claims.Subject == id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot deactivate your own account"})
		return
	}

	user, err := h.store.ToggleUserStatus(id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type resetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// ResetPassword replaces an account's credential
func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
		return
	}

	if err := h.store.ResetPassword(c.Param("id"), req.Password, h.bcryptCost); err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": c.Param("id")})
}
