package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"marketplace/internal/middleware"
	"marketplace/internal/service"
	"marketplace/internal/session"
	"marketplace/pkg/pagination"
	"marketplace/pkg/response"

	"github.com/gin-gonic/gin"
)

const logoutFlash = "You have been logged out."

type CSRFTokenResponse struct {
	Token     string    `json:"token"`
	Purpose   string    `json:"purpose"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AuthHandler struct {
	authService service.AuthService
	tokens      *session.TokenManager
	remember    middleware.RememberCookie
	logger      *slog.Logger
}

// NewAuthHandler sets up the routing dependencies for authentication endpoints
func NewAuthHandler(authService service.AuthService, tokens *session.TokenManager, remember middleware.RememberCookie, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, tokens: tokens, remember: remember, logger: logger}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/csrf-token", h.CSRFToken)
	router.POST("/register", middleware.RequireCSRF(h.tokens, session.PurposeRegister, h.logger, nil), h.Register)
	router.POST("/login", middleware.RequireCSRF(h.tokens, session.PurposeLogin, h.logger, nil), h.Login)
	router.POST("/logout", middleware.RequireCSRF(h.tokens, session.PurposeLogout, h.logger, nil), h.Logout)
	router.GET("/me", h.GetMe)
	router.GET("/account/activity", middleware.RequireAuth(), h.Activity)
}

// CSRFToken issues a single-use token bound to the caller's session
// @Summary      Issue CSRF token
// @Description  Returns a single-use token for one purpose: general, login, register, logout or cart
// @Tags         auth
// @Produce      json
// @Param        purpose  query     string  false  "Token purpose"  default(general)
// @Success      200      {object}  response.Response{data=CSRFTokenResponse}
// @Failure      400      {object}  response.Response
// @Router       /csrf-token [get]
func (h *AuthHandler) CSRFToken(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}

	tok, err := h.tokens.Generate(c.Request.Context(), sess, c.Query("purpose"))
	if err != nil {
		if errors.Is(err, session.ErrInvalidPurpose) {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid token purpose"))
			return
		}
		h.logger.Error("generate csrf token", "error", err)
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Something went wrong, please try again later"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, CSRFTokenResponse{
		Token:     tok.Value,
		Purpose:   tok.Purpose,
		ExpiresAt: tok.ExpiresAt,
	}))
}

// Register creates a buyer or seller account
// @Summary      Register
// @Description  Creates an account. Requires a CSRF token of purpose "register".
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        X-CSRF-Token  header    string                   true  "CSRF token"
// @Param        payload       body      service.RegisterRequest  true  "Registration payload"
// @Success      201           {object}  response.Response{data=service.UserResponse}
// @Failure      400           {object}  response.Response
// @Failure      403           {object}  response.Response
// @Router       /register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, bindingMessage(err)))
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req, c.ClientIP())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// Login authenticates the session
// @Summary      Login
// @Description  Authenticates with email and password. Requires a CSRF token of purpose "login".
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        X-CSRF-Token  header    string                true  "CSRF token"
// @Param        payload       body      service.LoginRequest  true  "Login payload"
// @Success      200           {object}  response.Response{data=service.UserResponse}
// @Failure      400           {object}  response.Response
// @Failure      401           {object}  response.Response
// @Failure      403           {object}  response.Response
// @Router       /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}

	var req service.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, bindingMessage(err)))
		return
	}

	ctx := c.Request.Context()
	user, err := h.authService.Authenticate(ctx, req.Email, req.Password, c.ClientIP())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	token, err := h.authService.CreateSession(ctx, sess, user, req.RememberMe)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if token != "" {
		middleware.SetRememberCookie(c, h.remember, token)
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.ToUserResponse(user)))
}

// Logout ends the session
// @Summary      Logout
// @Description  Clears the session and the remember-me cookie. Requires a CSRF token of purpose "logout".
// @Tags         auth
// @Produce      json
// @Param        X-CSRF-Token  header    string  true  "CSRF token"
// @Success      200           {object}  response.Response
// @Failure      403           {object}  response.Response
// @Router       /logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}

	rememberToken, _ := c.Cookie(h.remember.Name)
	if err := h.authService.DestroySession(c.Request.Context(), sess, rememberToken, logoutFlash); err != nil {
		respondError(c, h.logger, err)
		return
	}
	middleware.ClearRememberCookie(c, h.remember)

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Logged out successfully"}))
}

// GetMe returns the logged-in user and any pending flash messages
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Failure      401  {object}  response.Response
// @Router       /me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}
	flash := sess.Flashes()

	user, err := h.authService.CurrentUser(c.Request.Context(), sess)
	if err != nil {
		status := service.StatusCode(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("load current user", "error", err)
		}
		c.JSON(status, response.Error(status, service.PublicMessage(err)).WithFlash(flash))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, user).WithFlash(flash))
}

// Activity lists the account events of the logged-in user
// @Summary      Account activity
// @Tags         auth
// @Produce      json
// @Param        page   query     int  false  "Page"   default(1)
// @Param        limit  query     int  false  "Limit"  default(20)
// @Success      200    {object}  response.Response{data=pagination.Page}
// @Failure      401    {object}  response.Response
// @Router       /account/activity [get]
func (h *AuthHandler) Activity(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}

	p := pagination.Parse(c)
	items, total, err := h.authService.Activity(c.Request.Context(), sess, p.Page, p.Limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.NewPage(items, total)))
}
