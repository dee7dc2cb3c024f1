package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"phuket-estate/internal/auth"
	"phuket-estate/internal/database"
	"phuket-estate/internal/ratelimit"
)

// AuthHandler handles admin login and token verification
type AuthHandler struct {
	store   *database.Store
	tokens  *auth.TokenService
	limiter *ratelimit.Limiter
}

func NewAuthHandler(store *database.Store, tokens *auth.TokenService, limiter *ratelimit.Limiter) *AuthHandler {
	return &AuthHandler{store: store, tokens: tokens, limiter: limiter}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates an admin account and returns a session token.
// Every failure mode answers 401 with the same message.
func (h *AuthHandler) Login(c *gin.Context) {
	if h.limiter != nil && !h.limiter.Allow(c.ClientIP()) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	user, err := h.store.Authenticate(req.Username, req.Password)
	if err != nil {
		log.Printf("[Auth] login failed user=%s ip=%s", req.Username, c.ClientIP())
		respondStoreError(c, err)
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	log.Printf("[Auth] login ok user=%s", user.Username)
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// Me returns the account behind the presented token
func (h *AuthHandler) Me(c *gin.Context) {
	claims := CurrentClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := h.store.GetUserByID(claims.Subject)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

const claimsContextKey = "auth_claims"

// RequireAuth is the gin middleware guarding the admin route group.
// It expects "Authorization: Bearer <token>".
func (h *AuthHandler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := h.tokens.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

// RateLimitWrites limits mutating admin requests per client
func (h *AuthHandler) RateLimitWrites() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet {
			c.Next()
			return
		}
		if h.limiter != nil && !h.limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

// CurrentClaims returns the token claims stored by RequireAuth
func CurrentClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(claimsContextKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
