package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/aiblog/middleware"
	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/repository"
	"github.com/cppla/aiblog/utils"
)

// AuthController handles registration, login and the current user's profile.
type AuthController struct {
	users    *repository.UserRepository
	tokenTTL time.Duration
	admins   Admins
}

// NewAuthController creates an AuthController.
func NewAuthController(users *repository.UserRepository, tokenTTL time.Duration, admins Admins) *AuthController {
	if tokenTTL <= 0 {
		tokenTTL = 72 * time.Hour
	}
	return &AuthController{users: users, tokenTTL: tokenTTL, admins: admins}
}

// Register creates a local account with a bcrypt hashed password.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required,max=150"`
		Email    string `json:"email" binding:"omitempty,email,max=254"`
		Password string `json:"password" binding:"required,min=8,max=72"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, bindMessage(err))
		return
	}

	username := strings.TrimSpace(req.Username)
	if !validUsername(username) {
		utils.Error(ctx, http.StatusBadRequest, 40002, "username may contain only letters, digits and @.+-_")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	user := models.User{Username: username, Email: strings.TrimSpace(req.Email), PasswordHash: hash}
	if err := a.users.Create(ctx.Request.Context(), &user); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			utils.Error(ctx, http.StatusConflict, 40901, "username already exists")
			return
		}
		utils.Sugar.Errorw("create user failed", "username", username, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create user")
		return
	}

	utils.Sugar.Infow("user registered", "user_id", user.ID, "username", user.Username)
	utils.Created(ctx, "", gin.H{"user": userResponse(user)})
}

// Login checks the password and issues a bearer token.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	user, err := a.users.GetByUsername(ctx.Request.Context(), strings.TrimSpace(req.Username))
	if err != nil || !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, a.tokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{
		"token": token,
		"user":  userResponse(*user),
	})
}

// Logout revokes the bearer token used for this request.
func (a *AuthController) Logout(ctx *gin.Context) {
	revokeCurrentToken(ctx, a.tokenTTL)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Profile returns the authenticated user.
func (a *AuthController) Profile(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	user, err := a.users.Get(ctx.Request.Context(), userID)
	if err != nil {
		utils.Error(ctx, http.StatusNotFound, 40420, "user not found")
		return
	}

	resp := userResponse(*user)
	resp["is_admin"] = a.admins.Has(user.Username)
	utils.Success(ctx, resp)
}

// DeleteProfile deletes the authenticated user. Their posts are deleted with them.
func (a *AuthController) DeleteProfile(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40109, "unauthorized")
		return
	}

	user, err := a.users.Get(ctx.Request.Context(), userID)
	if err != nil {
		utils.Error(ctx, http.StatusNotFound, 40421, "user not found")
		return
	}

	removed, err := a.users.Delete(ctx.Request.Context(), user.ID)
	if err != nil {
		utils.Sugar.Errorw("delete user failed", "user_id", user.ID, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to delete user")
		return
	}

	utils.InvalidateByPrefix("cache:posts:list:")
	utils.InvalidateByPrefix("cache:post:detail:")
	utils.InvalidateByPrefix(userPostsCachePrefix(user.Username))
	revokeCurrentToken(ctx, a.tokenTTL)

	utils.Sugar.Infow("user deleted", "user_id", user.ID, "posts_removed", removed)
	utils.Success(ctx, gin.H{"message": "account deleted", "posts_removed": removed})
}

func revokeCurrentToken(ctx *gin.Context, ttl time.Duration) {
	token := ctx.GetString(middleware.ContextTokenKey)
	if token == "" {
		return
	}
	expiresAt := time.Now().Add(ttl)
	if claims, err := utils.ParseToken(token); err == nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(token, expiresAt)
}

func userResponse(user models.User) gin.H {
	return gin.H{
		"id":          user.ID,
		"username":    user.Username,
		"email":       user.Email,
		"date_joined": user.DateJoined,
	}
}

// validUsername accepts letters, digits and @.+-_ only.
func validUsername(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("@.+-_", r):
		default:
			return false
		}
	}
	return true
}
