package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/usecase"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/api/dto"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/api/middleware"
)

// UserHandler handles signup, login and the logged-in user's wallet views
type UserHandler struct {
	accounts usecase.AccountUseCase
	logger   coreport.Logger
}

// NewUserHandler creates a new user handler instance
func NewUserHandler(accounts usecase.AccountUseCase, logger coreport.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, logger: logger}
}

// Signup handles POST /api/v1/auth/signup
func (h *UserHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.accounts.Signup(c.Request.Context(), usecase.SignupRequest{
		FullName:        req.FullName,
		Email:           req.Email,
		Phone:           req.Phone,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		PIN:             req.PIN,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewUserResponse(user))
}

// Login handles POST /api/v1/auth/login
func (h *UserHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.Session.ExpiresAt,
		User:      dto.NewUserResponse(result.User),
	})
}

// Logout handles POST /api/v1/auth/logout
func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.accounts.Logout(c.Request.Context(), middleware.BearerToken(c)); err != nil {
		h.logger.Warn("Logout failed", map[string]any{"error": err.Error()})
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Dashboard handles GET /api/v1/me/dashboard
func (h *UserHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.accounts.Dashboard(c.Request.Context(), middleware.CurrentSession(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewDashboardResponse(dashboard))
}

// Transactions handles GET /api/v1/me/transactions
func (h *UserHandler) Transactions(c *gin.Context) {
	session := middleware.CurrentSession(c)
	txns, err := h.accounts.Transactions(c.Request.Context(), session)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": dto.NewTransactionResponses(txns, session.UserID)})
}

// Banks handles GET /api/v1/banks
func (h *UserHandler) Banks(c *gin.Context) {
	banks, err := h.accounts.Banks(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"banks": banks})
}

// bindJSON decodes the body into req, recording ErrInvalidRequest on failure
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(fmt.Errorf("%w: %s", errs.ErrInvalidRequest, err.Error()))
		return false
	}
	return true
}
