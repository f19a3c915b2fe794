package server

import (
	"github.com/gin-gonic/gin"

	"nunbody/internal/remote"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"passwordConfirm"`
	Name            string `json:"name" binding:"required"`
	Phone           string `json:"phone"`
}

type passwordRequest struct {
	CurrentPassword    string `json:"currentPassword" binding:"required"`
	NewPassword        string `json:"newPassword" binding:"required"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

func (s *Server) handleSession(c *gin.Context) {
	user, loggedIn := s.remote.Session().User()
	data := gin.H{"loggedIn": loggedIn}
	if loggedIn {
		data["user"] = user
	}
	ok(c, data)
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}
	user, err := s.remote.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(c, err, "Login failed")
		return
	}
	ok(c, gin.H{"user": user})
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email, password and name are required")
		return
	}
	if req.PasswordConfirm != "" && req.PasswordConfirm != req.Password {
		badRequest(c, "passwords do not match")
		return
	}
	user, err := s.remote.Register(c.Request.Context(), remote.Registration{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
	})
	if err != nil {
		s.fail(c, err, "Registration failed")
		return
	}
	_, loggedIn := s.remote.Session().User()
	ok(c, gin.H{"user": user, "loggedIn": loggedIn})
}

func (s *Server) handleLogout(c *gin.Context) {
	if err := s.remote.Logout(); err != nil {
		s.fail(c, err, "Logout failed")
		return
	}
	ok(c, gin.H{"redirect": loginPath})
}

func (s *Server) handleGetProfile(c *gin.Context) {
	user, err := s.remote.GetProfile(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Could not load profile")
		return
	}
	ok(c, gin.H{"user": user})
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req remote.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid profile")
		return
	}
	user, err := s.remote.UpdateProfile(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err, "Could not update profile")
		return
	}
	ok(c, gin.H{"user": user})
}

func (s *Server) handleChangePassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "current and new password are required")
		return
	}
	if req.ConfirmNewPassword != "" && req.ConfirmNewPassword != req.NewPassword {
		badRequest(c, "passwords do not match")
		return
	}
	if err := s.remote.ChangePassword(c.Request.Context(), req.CurrentPassword, req.NewPassword); err != nil {
		s.fail(c, err, "Could not change password")
		return
	}
	ok(c, nil)
}

func (s *Server) handleDeleteAccount(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "password is required")
		return
	}
	if err := s.remote.DeleteAccount(c.Request.Context(), req.Password); err != nil {
		s.fail(c, err, "Could not delete account")
		return
	}
	ok(c, gin.H{"redirect": loginPath})
}
