package service

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/address-book/internal/model"
)

// signup registers a new user and responds with the account data.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/auth/signup --request "POST" --header "Content-Type: application/json" --data '{"username": "erika", "email": "erika@example.com", "password": "geheim123"}'
func (s *Server) signup(c *gin.Context) {
	var in model.SignupInput
	if !bindJSON(c, &in) {
		return
	}
	user, err := s.accounts.Signup(c.Request.Context(), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusCreated, user)
}

// login exchanges username and password for a bearer token. The credentials are sent as
// JSON or as a form.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/auth/login --request "POST" --data "username=erika&password=geheim123"
func (s *Server) login(c *gin.Context) {
	var in model.LoginInput
	if err := c.ShouldBind(&in); err != nil {
		abortWithBindError(c, err)
		return
	}
	token, err := s.accounts.Login(c.Request.Context(), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, token)
}

// confirmEmail marks the account the token in the URL was issued for as confirmed and
// responds with the account data.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/auth/confirmed_email/$CONFIRMATION_TOKEN
func (s *Server) confirmEmail(c *gin.Context) {
	user, err := s.accounts.ConfirmEmail(c.Request.Context(), c.Param("token"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	s.resolver.Forget(c.Request.Context(), user.ID)
	c.IndentedJSON(http.StatusOK, user)
}

// me responds with the account of the caller.
func (s *Server) me(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, callerFrom(c))
}
