package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"site-cms/pkg/apiclient"
)

const (
	sessionToken  = "token"
	sessionState  = "oauth_state"
	tokenCookie   = "token"
	credentialKey = "credential"
)

// AuthRequired resolves the admin's credential from the session, falling back
// to a plain "token" cookie, and stores it on the context for the handlers.
func (s *Server) AuthRequired(c *gin.Context) {
	token := ""
	if v, ok := sessions.Default(c).Get(sessionToken).(string); ok {
		token = v
	}
	if token == "" {
		token, _ = c.Cookie(tokenCookie)
	}
	if strings.TrimSpace(token) == "" {
		s.unauthorized(c)
		return
	}
	c.Set(credentialKey, apiclient.Credential{Token: token})
	c.Next()
}

func credentialFrom(c *gin.Context) apiclient.Credential {
	if v, ok := c.Get(credentialKey); ok {
		if cred, ok := v.(apiclient.Credential); ok {
			return cred
		}
	}
	return apiclient.Credential{}
}

func (s *Server) unauthorized(c *gin.Context) {
	if cred := credentialFrom(c); cred.Token != "" {
		s.media.Drop(cred)
	}
	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()
	c.SetCookie(tokenCookie, "", -1, "/", "", false, true)

	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.Redirect(http.StatusFound, "/login")
	c.Abort()
}

func (s *Server) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{"OAuth": s.oauth != nil})
}

func (s *Server) OAuthLogin(c *gin.Context) {
	if s.oauth == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "OAuth login is not configured"})
		return
	}
	state := uuid.NewString()
	session := sessions.Default(c)
	session.Set(sessionState, state)
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start login"})
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline))
}

func (s *Server) AuthCallback(c *gin.Context) {
	if s.oauth == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "OAuth login is not configured"})
		return
	}
	session := sessions.Default(c)
	want, _ := session.Get(sessionState).(string)
	if want == "" || c.Query("state") != want {
		c.String(http.StatusBadRequest, "Invalid OAuth state")
		return
	}

	token, err := s.oauth.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "OAuth Exchange Failed")
		return
	}

	session.Delete(sessionState)
	session.Set(sessionToken, token.AccessToken)
	_ = session.Save()
	c.Redirect(http.StatusFound, "/admin")
}

// TokenLogin accepts a pasted bearer token, as a form field or JSON, and
// checks it against the API before starting the session.
func (s *Server) TokenLogin(c *gin.Context) {
	var req struct {
		Token string `json:"token" form:"token"`
	}
	if err := c.ShouldBind(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token is required"})
		return
	}
	cred := apiclient.Credential{Token: strings.TrimSpace(req.Token)}

	if _, err := s.client.ListPages(c.Request.Context(), cred); err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": apiclient.UserMessage(err, "Invalid token")})
			return
		}
		s.fail(c, err, "Could not reach the CMS API")
		return
	}

	session := sessions.Default(c)
	session.Set(sessionToken, cred.Token)
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Logout(c *gin.Context) {
	session := sessions.Default(c)
	if token, ok := session.Get(sessionToken).(string); ok && token != "" {
		s.media.Drop(apiclient.Credential{Token: token})
	}
	session.Clear()
	_ = session.Save()
	c.SetCookie(tokenCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/login")
}
