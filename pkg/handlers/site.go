package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"site-cms/pkg/site"
)

// SitePage serves a landing page by path. It is also the NoRoute handler, so
// anything that is not a GET for a known page is a 404.
func (s *Server) SitePage(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	page, ok := s.site.Page(c.Request.URL.Path)
	if !ok {
		c.Data(http.StatusNotFound, "text/html; charset=utf-8", []byte("<h1>Page not found</h1>"))
		return
	}
	s.renderPage(c, page, c.Request.URL.Path, false)
}

func (s *Server) renderPage(c *gin.Context, page *site.Page, currentPath string, preview bool) {
	chrome := site.Chrome{
		SiteName:    s.site.Name,
		Nav:         s.site.Nav,
		CurrentPath: currentPath,
		Preview:     preview,
	}
	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, chrome, page); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render page"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "pages": len(s.site.Slugs())})
}
