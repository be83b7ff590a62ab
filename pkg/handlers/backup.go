package handlers

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"site-cms/pkg/apiclient"
	"site-cms/pkg/models"
)

// ExportBackup streams the API's backup to the browser as a download. The
// bytes are passed through untouched.
func (s *Server) ExportBackup(c *gin.Context) {
	format := c.DefaultQuery("format", apiclient.FormatNDJSON)
	if !apiclient.ValidBackupFormat(format) {
		s.fail(c, badRequest("format must be ndjson or archive"), "")
		return
	}
	d, err := s.client.ExportBackup(c.Request.Context(), credentialFrom(c), format)
	if err != nil {
		s.fail(c, err, "Backup export failed")
		return
	}
	defer d.Body.Close()

	c.DataFromReader(http.StatusOK, d.ContentLength, d.ContentType, d.Body, map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": d.Filename}),
	})
}

// ImportBackup forwards an uploaded backup and returns the API's summary.
// Every list cache is dropped since any resource may have changed.
func (s *Server) ImportBackup(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		s.fail(c, badRequest("No file uploaded"), "")
		return
	}
	f, err := header.Open()
	if err != nil {
		s.fail(c, badRequest("Failed to read "+header.Filename), "")
		return
	}
	defer f.Close()

	summary, err := s.client.ImportBackup(c.Request.Context(), credentialFrom(c), header.Filename, f)
	if err != nil {
		s.fail(c, err, "Backup import failed")
		return
	}
	for _, resource := range []string{string(models.KindBlogs), string(models.KindStories), resourcePages, resourceModules} {
		s.cache.Invalidate(resource)
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", summary)
}
