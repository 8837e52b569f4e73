package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/healthmate/companion/internal/apiclient"
	"github.com/healthmate/companion/internal/audit"
	"github.com/healthmate/companion/internal/session"
	"github.com/healthmate/companion/pkg/model"
)

// LoginForm is the login page form
type LoginForm struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// RegisterForm is the registration page form
type RegisterForm struct {
	Name        string `json:"name" form:"name"`
	Email       string `json:"email" form:"email"`
	Password    string `json:"password" form:"password"`
	Phone       string `json:"phone" form:"phone"`
	DateOfBirth string `json:"dateOfBirth" form:"dateOfBirth"`
	Gender      string `json:"gender" form:"gender"`
}

// AuthResponse is returned after a successful login or registration
type AuthResponse struct {
	User     model.User `json:"user"`
	Message  string     `json:"message"`
	Redirect string     `json:"redirect"`
}

// NavLink is one entry of the navigation bar
type NavLink struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// Navbar is the data the navigation bar renders
type Navbar struct {
	User  model.User `json:"user"`
	Links []NavLink  `json:"links"`
}

var navLinks = []NavLink{
	{Label: "Dashboard", Path: "/dashboard"},
	{Label: "Upload Report", Path: "/upload"},
	{Label: "Add Vitals", Path: "/add-vitals"},
	{Label: "Timeline", Path: "/timeline"},
}

// AuthHandler serves login, registration, logout and the navbar
type AuthHandler struct {
	sessions *session.Store
	audit    *audit.Logger
	logger   *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(sessions *session.Store, auditLogger *audit.Logger, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		audit:    auditLogger,
		logger:   logger,
	}
}

// GetLogin is the entry point. Authenticated users go straight to the dashboard.
func (h *AuthHandler) GetLogin(c *gin.Context) {
	if h.sessions.IsAuthenticated() {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated": false,
		"login":         "/login",
		"register":      "/register",
	})
}

// PostLogin signs the user in
func (h *AuthHandler) PostLogin(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.sessions.Login(c.Request.Context(), form.Email, form.Password)
	h.record(c, audit.ActionLogin, user, err)
	if err != nil {
		h.logger.Warn("login failed", zap.String("email", form.Email), zap.Error(err))
		writeError(c, err, "Login failed")
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		User:     *user,
		Message:  "Login successful!",
		Redirect: "/dashboard",
	})
}

// PostRegister creates an account and signs the user in
func (h *AuthHandler) PostRegister(c *gin.Context) {
	var form RegisterForm
	if err := c.ShouldBind(&form); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.sessions.Register(c.Request.Context(), apiclient.RegisterRequest{
		Name:        form.Name,
		Email:       form.Email,
		Password:    form.Password,
		Phone:       form.Phone,
		DateOfBirth: form.DateOfBirth,
		Gender:      form.Gender,
	})
	h.record(c, audit.ActionRegister, user, err)
	if err != nil {
		h.logger.Warn("registration failed", zap.String("email", form.Email), zap.Error(err))
		writeError(c, err, "Registration failed")
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{
		User:     *user,
		Message:  "Registration successful!",
		Redirect: "/dashboard",
	})
}

// PostLogout ends the session
func (h *AuthHandler) PostLogout(c *gin.Context) {
	user := currentUser(c)
	h.sessions.Logout()
	h.record(c, audit.ActionLogout, &user, nil)

	c.JSON(http.StatusOK, Notice{Message: "Logged out", Redirect: "/login"})
}

// GetMe returns the navbar data for the current user
func (h *AuthHandler) GetMe(c *gin.Context) {
	c.JSON(http.StatusOK, Navbar{
		User:  currentUser(c),
		Links: navLinks,
	})
}

func (h *AuthHandler) record(c *gin.Context, action audit.Action, user *model.User, err error) {
	entry := audit.Entry{
		Action:    action,
		Resource:  audit.ResourceSession,
		Succeeded: err == nil,
		IPAddress: c.ClientIP(),
	}
	if user != nil {
		entry.UserID = user.ID
	}
	h.audit.Log(entry)
}
