package mockapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type credentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

func userJSON(u *user) gin.H {
	return gin.H{
		"id":          u.ID,
		"email":       u.Email,
		"name":        u.Name,
		"is_active":   u.Active,
		"is_verified": true,
		"created_at":  u.Created.Format("2006-01-02T15:04:05.999999"),
	}
}

func (s *Server) register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationDetail("body", "email", err.Error()))
		return
	}
	if len(req.Password) < 8 {
		c.JSON(http.StatusUnprocessableEntity, validationDetail("body", "password", "Password must be at least 8 characters long"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, req.Email) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Email already registered"})
			return
		}
	}

	u := &user{ID: s.allocID(), Email: req.Email, Name: req.Name, Password: req.Password, Created: time.Now().UTC(), Active: true}
	s.users[u.ID] = u
	resp := s.issueTokens(u.ID)
	resp["user"] = userJSON(u)
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationDetail("body", "email", err.Error()))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, req.Email) && u.Password == req.Password {
			if !u.Active {
				c.JSON(http.StatusBadRequest, gin.H{"detail": "Inactive user"})
				return
			}
			resp := s.issueTokens(u.ID)
			resp["user"] = userJSON(u)
			c.JSON(http.StatusOK, resp)
			return
		}
	}
	c.JSON(http.StatusUnauthorized, gin.H{"detail": "Incorrect email or password"})
}

func (s *Server) refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationDetail("body", "refresh_token", "field required"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.refreshTokens[req.RefreshToken]
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid refresh token"})
		return
	}
	delete(s.refreshTokens, req.RefreshToken)
	c.JSON(http.StatusOK, s.issueTokens(userID))
}

func (s *Server) logout(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")

	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.refreshTokens[token]
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
		return
	}
	delete(s.refreshTokens, token)
	for access, id := range s.accessTokens {
		if id == userID {
			delete(s.accessTokens, access)
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

func (s *Server) forgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationDetail("body", "email", "field required"))
		return
	}

	s.mu.Lock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, req.Email) {
			s.resetTokens[uuid.NewString()] = u.ID
		}
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"message": "If the email exists, a password reset link has been sent"})
}

func (s *Server) resetPassword(c *gin.Context) {
	var req struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationDetail("body", "token", "field required"))
		return
	}
	if len(req.NewPassword) < 8 {
		c.JSON(http.StatusUnprocessableEntity, validationDetail("body", "new_password", "Password must be at least 8 characters long"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.resetTokens[req.Token]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid or expired reset token"})
		return
	}
	delete(s.resetTokens, req.Token)
	s.users[userID].Password = req.NewPassword
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}
