package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ChemXGen/internal/application/identity"
	"github.com/turtacn/ChemXGen/internal/interfaces/http/middleware"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

// IdentityService is the account surface behind /auth.
type IdentityService interface {
	SignIn(ctx context.Context, email, password string) (*identity.SignInResult, error)
	SignUp(ctx context.Context, fullName, email, password string) (string, error)
	SignOut(ctx context.Context, refreshToken string) error
}

type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SignUpRequest struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type SignOutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type AuthHandler struct {
	identity IdentityService
}

func NewAuthHandler(svc IdentityService) *AuthHandler {
	return &AuthHandler{identity: svc}
}

// SignIn handles POST /auth/signin.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req SignInRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.identity.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// SignUp handles POST /auth/signup. The profile row is created on first
// sign-in, not here.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req SignUpRequest
	if !bindJSON(c, &req) {
		return
	}
	id, err := h.identity.SignUp(c.Request.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// SignOut handles POST /auth/signout.
func (h *AuthHandler) SignOut(c *gin.Context) {
	var req SignOutRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.identity.SignOut(c.Request.Context(), req.RefreshToken); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Session handles GET /auth/session. The session is resolved by the
// authentication middleware; without a user it answers 401.
func (h *AuthHandler) Session(c *gin.Context) {
	u := middleware.CurrentUser(c)
	if u == nil {
		writeError(c, errors.Unauthorized("no active session"))
		return
	}
	c.JSON(http.StatusOK, identity.Session{User: u})
}
