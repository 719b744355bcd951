package rest

import (
	"net/http"

	"github.com/dmitrijs2005/bugsheriff/internal/server/services"
	"github.com/gin-gonic/gin"
)

func (s *HTTPServer) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	_, err := s.users.Register(c.Request.Context(), services.RegisterInput{
		Username:       req.Username,
		Password:       req.Password,
		SecretQuestion: req.SecretQuestion,
		SecretAnswer:   req.SecretAnswer,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully."})
}

func (s *HTTPServer) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	pair, err := s.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *HTTPServer) refreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		abortMessage(c, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := s.users.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *HTTPServer) resetPassword(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := s.users.ResetPassword(c.Request.Context(), services.ResetPasswordInput{
		Username:       req.Username,
		Password:       req.Password,
		SecretQuestion: req.SecretQuestion,
		SecretAnswer:   req.SecretAnswer,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password has been changed successfully."})
}

func (s *HTTPServer) updateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := s.users.UpdateProfile(c.Request.Context(), currentUser(c).UserName, services.ProfileUpdate{
		Password:       req.Password,
		SecretQuestion: req.SecretQuestion,
		SecretAnswer:   req.SecretAnswer,
		IBAN:           req.IBAN,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User details updated successfully."})
}

func (s *HTTPServer) userDetails(c *gin.Context) {
	user, err := s.users.GetProfile(c.Request.Context(), currentUser(c).UserName)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, userDetailsResponse{
		Username:       user.UserName,
		SecretQuestion: user.SecretQuestion,
		SecretAnswer:   user.SecretAnswer,
		IBAN:           user.IBAN,
	})
}
