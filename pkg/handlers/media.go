package handlers

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"site-cms/pkg/listing"
	"site-cms/pkg/services"
)

// ListMedia returns the admin's media table: pending placeholders first,
// then confirmed records, filtered and paged, plus failed uploads and the
// last upload error.
func (s *Server) ListMedia(c *gin.Context) {
	cred := credentialFrom(c)
	lib := s.media.For(cred)
	if !lib.Loaded() {
		if err := lib.Refresh(c.Request.Context(), cred); err != nil {
			s.fail(c, err, "Failed to list media")
			return
		}
	}

	q := listing.ParseQuery(c.Request.URL.Query())
	items := services.FilterMedia(lib.Items(), q)
	resp := paged(items, q)
	c.JSON(http.StatusOK, gin.H{
		"items":        resp.Items,
		"page":         resp.Page,
		"visiblePages": resp.VisiblePages,
		"sort":         resp.Sort,
		"dir":          resp.Dir,
		"failed":       lib.Failed(),
		"error":        lib.LastError(),
	})
}

// UploadMedia takes the files of a multipart form ("file" or "files"),
// shows them as pending at once and uploads them in the background. The
// response is 202 with the placeholders.
func (s *Server) UploadMedia(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		s.fail(c, badRequest("No file uploaded"), "")
		return
	}
	headers := append(form.File["files"], form.File["file"]...)
	if len(headers) == 0 {
		s.fail(c, badRequest("No file uploaded"), "")
		return
	}

	cred := credentialFrom(c)
	lib := s.media.For(cred)
	files := make([]services.PendingFile, 0, len(headers))
	for _, h := range headers {
		if err := lib.CheckSize(h.Filename, h.Size); err != nil {
			s.fail(c, err, "")
			return
		}
		f, err := readUpload(h)
		if err != nil {
			s.fail(c, badRequest("Failed to read "+h.Filename), "")
			return
		}
		files = append(files, f)
	}

	batch, err := lib.Begin(files)
	if err != nil {
		s.fail(c, err, "Upload failed")
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	s.uploads.Add(1)
	go func() {
		defer s.uploads.Done()
		ctx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
		defer cancel()
		if err := lib.Complete(ctx, cred, batch); err != nil {
			s.logger.Warn("background upload failed", zap.String("batch", batch.ID), zap.Error(err))
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"batch": batch.ID, "items": batch.Items})
}

func readUpload(h *multipart.FileHeader) (services.PendingFile, error) {
	f, err := h.Open()
	if err != nil {
		return services.PendingFile{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return services.PendingFile{}, fmt.Errorf("read %s: %w", h.Filename, err)
	}
	contentType := h.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return services.PendingFile{Name: h.Filename, ContentType: contentType, Data: data}, nil
}

// PendingMedia serves the bytes of a placeholder so the table can preview it
// before the upload completes.
func (s *Server) PendingMedia(c *gin.Context) {
	data, contentType, ok := s.media.For(credentialFrom(c)).Pending(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Upload is no longer pending"})
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, data)
}

func (s *Server) DeleteMedia(c *gin.Context) {
	cred := credentialFrom(c)
	if err := s.media.For(cred).Delete(c.Request.Context(), cred, c.Param("id")); err != nil {
		s.fail(c, err, "Failed to delete file")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) RefreshMedia(c *gin.Context) {
	cred := credentialFrom(c)
	lib := s.media.For(cred)
	if err := lib.Refresh(c.Request.Context(), cred); err != nil {
		s.fail(c, err, "Failed to list media")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": lib.Items()})
}

// DismissFailed drops a failed upload from the table.
func (s *Server) DismissFailed(c *gin.Context) {
	if !s.media.For(credentialFrom(c)).Dismiss(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No failed upload with that id"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "dismissed"})
}
