package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"site-cms/pkg/apiclient"
	"site-cms/pkg/listing"
	"site-cms/pkg/models"
	"site-cms/pkg/sections"
	"site-cms/pkg/services"
	"site-cms/pkg/site"
)

const (
	resourcePages   = "pages"
	resourceModules = "modules"
	pagerDelta      = 2
)

type listResponse struct {
	Items        interface{}        `json:"items"`
	Page         listing.PageInfo   `json:"page"`
	VisiblePages []listing.PageLink `json:"visiblePages"`
	Sort         string             `json:"sort,omitempty"`
	Dir          listing.Direction  `json:"dir"`
}

func paged[T any](items []T, q listing.Query) listResponse {
	page, info := listing.Paginate(items, q.Page, q.PerPage)
	return listResponse{
		Items:        page,
		Page:         info,
		VisiblePages: listing.VisiblePages(info.Page, info.TotalPages, pagerDelta),
		Sort:         q.SortBy,
		Dir:          q.Direction,
	}
}

// contentRow is a list row with its status badge resolved.
type contentRow struct {
	models.ContentItem
	Badge models.Badge `json:"badge"`
}

type pageRow struct {
	models.PageItem
	Badge models.Badge `json:"badge"`
}

func contentFields(item models.ContentItem) []string {
	return append([]string{item.Title, item.Slug, item.Excerpt, item.Author}, item.Tags...)
}

func sortContent(items []models.ContentItem, q listing.Query) []models.ContentItem {
	var cmp listing.Comparator[models.ContentItem]
	switch strings.ToLower(q.SortBy) {
	case "title":
		cmp = listing.ByString(func(i models.ContentItem) string { return i.Title })
	case "status":
		cmp = listing.ByString(func(i models.ContentItem) string { return string(i.Status) })
	default:
		cmp = listing.ByTime(func(i models.ContentItem) time.Time {
			if i.PublishedAt != nil {
				return *i.PublishedAt
			}
			return i.UpdatedAt
		})
	}
	return listing.Sort(items, cmp, q.Direction)
}

func (s *Server) ListContent(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred := credentialFrom(c)
		res := s.client.Content(kind)
		items, err := services.Cached(s.cache, string(kind), cred.Token, func() ([]models.ContentItem, error) {
			return res.List(c.Request.Context(), cred)
		})
		if err != nil {
			s.fail(c, err, "Failed to fetch "+string(kind))
			return
		}

		q := listing.ParseQuery(c.Request.URL.Query())
		filtered := listing.Filter(items, q.Search, contentFields,
			listing.Equals(q.Status, func(i models.ContentItem) string { return string(i.Status) }))
		sorted := sortContent(filtered, q)

		rows := make([]contentRow, len(sorted))
		for i, item := range sorted {
			rows[i] = contentRow{ContentItem: item, Badge: models.BadgeFor(item.Status)}
		}
		c.JSON(http.StatusOK, paged(rows, q))
	}
}

func (s *Server) GetContent(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		item, err := s.client.Content(kind).Get(c.Request.Context(), credentialFrom(c), c.Param("id"))
		if err != nil {
			s.fail(c, err, "Failed to fetch "+kind.Singular())
			return
		}
		c.JSON(http.StatusOK, contentRow{ContentItem: item, Badge: models.BadgeFor(item.Status)})
	}
}

// bindContent reads an item from the body, fills the derivable defaults and
// validates it.
func bindContent(c *gin.Context) (models.ContentItem, error) {
	var item models.ContentItem
	if err := c.ShouldBindJSON(&item); err != nil {
		return item, badRequest("Invalid JSON")
	}
	if item.Slug == "" && item.Title != "" {
		if slug, err := models.SlugFrom(item.Title); err == nil {
			item.Slug = slug
		}
	}
	if item.Status == "" {
		item.Status = models.StatusDraft
	}
	return item, item.Validate()
}

func (s *Server) CreateContent(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		item, err := bindContent(c)
		if err != nil {
			s.fail(c, err, "Invalid "+kind.Singular())
			return
		}
		created, err := s.client.Content(kind).Create(c.Request.Context(), credentialFrom(c), item)
		if err != nil {
			s.fail(c, err, "Failed to create "+kind.Singular())
			return
		}
		s.cache.Invalidate(string(kind))
		c.JSON(http.StatusCreated, created)
	}
}

func (s *Server) UpdateContent(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		item, err := bindContent(c)
		if err != nil {
			s.fail(c, err, "Invalid "+kind.Singular())
			return
		}
		item.ID = c.Param("id")
		updated, err := s.client.Content(kind).Update(c.Request.Context(), credentialFrom(c), item.ID, item)
		if err != nil {
			s.fail(c, err, "Failed to save "+kind.Singular())
			return
		}
		s.cache.Invalidate(string(kind))
		c.JSON(http.StatusOK, updated)
	}
}

func (s *Server) DeleteContent(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.client.Content(kind).Delete(c.Request.Context(), credentialFrom(c), c.Param("id")); err != nil {
			s.fail(c, err, "Failed to delete "+kind.Singular())
			return
		}
		s.cache.Invalidate(string(kind))
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	}
}

// ContentMarkdown downloads an item as a markdown file with front matter.
func (s *Server) ContentMarkdown(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		format := c.DefaultQuery("format", services.FormatYAML)
		if format != services.FormatYAML && format != services.FormatTOML && format != services.FormatJSON {
			s.fail(c, badRequest("format must be yaml, toml or json"), "")
			return
		}
		item, err := s.client.Content(kind).Get(c.Request.Context(), credentialFrom(c), c.Param("id"))
		if err != nil {
			s.fail(c, err, "Failed to fetch "+kind.Singular())
			return
		}
		out, err := services.MarkdownFromItem(item, format)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to construct file content: " + err.Error()})
			return
		}
		name := item.Slug
		if name == "" {
			name = item.ID
		}
		c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name + ".md"}))
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", out)
	}
}

func (s *Server) ContentPreview(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		item, err := s.client.Content(kind).Get(c.Request.Context(), credentialFrom(c), c.Param("id"))
		if err != nil {
			s.fail(c, err, "Failed to fetch "+kind.Singular())
			return
		}
		var buf bytes.Buffer
		if err := s.renderer.RenderArticle(&buf, item); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render preview"})
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
	}
}

// --- pages ---

func (s *Server) ListPages(c *gin.Context) {
	cred := credentialFrom(c)
	items, err := services.Cached(s.cache, resourcePages, cred.Token, func() ([]models.PageItem, error) {
		return s.client.ListPages(c.Request.Context(), cred)
	})
	if err != nil {
		s.fail(c, err, "Failed to fetch pages")
		return
	}

	q := listing.ParseQuery(c.Request.URL.Query())
	filtered := listing.Filter(items, q.Search,
		func(p models.PageItem) []string { return []string{p.Title, p.Slug} },
		listing.Equals(q.Status, func(p models.PageItem) string { return string(p.Status) }))

	var cmp listing.Comparator[models.PageItem]
	if strings.EqualFold(q.SortBy, "title") {
		cmp = listing.ByString(func(p models.PageItem) string { return p.Title })
	} else {
		cmp = listing.ByTime(func(p models.PageItem) time.Time { return p.UpdatedAt })
	}
	sorted := listing.Sort(filtered, cmp, q.Direction)
	rows := make([]pageRow, len(sorted))
	for i, page := range sorted {
		rows[i] = pageRow{PageItem: page, Badge: models.BadgeFor(page.Status)}
	}
	c.JSON(http.StatusOK, paged(rows, q))
}

func (s *Server) GetPage(c *gin.Context) {
	page, err := s.client.GetPage(c.Request.Context(), credentialFrom(c), c.Param("id"))
	if err != nil {
		s.fail(c, err, "Failed to fetch page")
		return
	}
	c.JSON(http.StatusOK, page)
}

func bindPage(c *gin.Context) (models.PageItem, error) {
	var page models.PageItem
	if err := c.ShouldBindJSON(&page); err != nil {
		return page, badRequest("Invalid JSON")
	}
	if page.Slug == "" && page.Title != "" {
		if slug, err := models.SlugFrom(page.Title); err == nil {
			page.Slug = slug
		}
	}
	if page.Status == "" {
		page.Status = models.StatusDraft
	}
	return page, page.Validate()
}

func (s *Server) CreatePage(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		s.fail(c, err, "Invalid page")
		return
	}
	created, err := s.client.CreatePage(c.Request.Context(), credentialFrom(c), page)
	if err != nil {
		s.fail(c, err, "Failed to create page")
		return
	}
	s.cache.Invalidate(resourcePages)
	c.JSON(http.StatusCreated, created)
}

func (s *Server) UpdatePage(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		s.fail(c, err, "Invalid page")
		return
	}
	page.ID = c.Param("id")
	updated, err := s.client.UpdatePage(c.Request.Context(), credentialFrom(c), page.ID, page)
	if err != nil {
		s.fail(c, err, "Failed to save page")
		return
	}
	s.cache.Invalidate(resourcePages)
	c.JSON(http.StatusOK, updated)
}

func (s *Server) DeletePage(c *gin.Context) {
	if err := s.client.DeletePage(c.Request.Context(), credentialFrom(c), c.Param("id")); err != nil {
		s.fail(c, err, "Failed to delete page")
		return
	}
	s.cache.Invalidate(resourcePages)
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// --- modules ---

// moduleRequest is what the module editor submits. Content may be a JSON
// object or the raw text of the editor.
type moduleRequest struct {
	Type    string          `json:"type"`
	Title   string          `json:"title"`
	Status  models.Status   `json:"status"`
	Version int             `json:"version"`
	Content json.RawMessage `json:"content"`
}

func (r moduleRequest) module() (models.Module, error) {
	if strings.TrimSpace(r.Type) == "" {
		return models.Module{}, badRequest("Module type is required")
	}
	content, err := sections.Normalize(r.Content)
	if err != nil {
		return models.Module{}, err
	}
	if err := sections.Validate(r.Type, content); err != nil {
		return models.Module{}, err
	}
	if r.Status != "" && !r.Status.Valid() {
		return models.Module{}, badRequest("Unknown status " + string(r.Status))
	}
	return models.Module{
		Type:    r.Type,
		Title:   r.Title,
		Status:  r.Status,
		Version: r.Version,
		Content: content,
	}, nil
}

func (s *Server) ListModules(c *gin.Context) {
	cred := credentialFrom(c)
	items, err := services.Cached(s.cache, resourceModules, cred.Token, func() ([]models.Module, error) {
		return s.client.ListModules(c.Request.Context(), cred)
	})
	if err != nil {
		s.fail(c, err, "Failed to fetch modules")
		return
	}
	q := listing.ParseQuery(c.Request.URL.Query())
	filtered := listing.Filter(items, q.Search,
		func(m models.Module) []string { return []string{m.Title, m.Type} },
		listing.Equals(q.Type, func(m models.Module) string { return m.Type }))
	sorted := listing.Sort(filtered, listing.ByString(func(m models.Module) string {
		if strings.EqualFold(q.SortBy, "type") {
			return m.Type
		}
		return m.Title
	}), q.Direction)
	c.JSON(http.StatusOK, paged(sorted, q))
}

func (s *Server) GetModule(c *gin.Context) {
	m, err := s.client.GetModule(c.Request.Context(), credentialFrom(c), c.Param("id"))
	if err != nil {
		s.fail(c, err, "Failed to fetch module")
		return
	}
	c.JSON(http.StatusOK, models.ModuleResponse{Module: m})
}

func (s *Server) CreateModule(c *gin.Context) {
	var req moduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, badRequest("Invalid JSON"), "")
		return
	}
	m, err := req.module()
	if err != nil {
		s.fail(c, err, "Invalid module")
		return
	}
	created, err := s.client.CreateModule(c.Request.Context(), credentialFrom(c), m)
	if err != nil {
		s.fail(c, err, "Failed to create module")
		return
	}
	s.cache.Invalidate(resourceModules)
	c.JSON(http.StatusCreated, models.ModuleResponse{Module: created})
}

// UpdateModule replaces a module. Content must match the schema of its type.
func (s *Server) UpdateModule(c *gin.Context) {
	var req moduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, badRequest("Invalid JSON"), "")
		return
	}
	m, err := req.module()
	if err != nil {
		s.fail(c, err, "Invalid module")
		return
	}
	m.ID = c.Param("id")
	updated, err := s.client.UpdateModule(c.Request.Context(), credentialFrom(c), m.ID, m)
	if err != nil {
		s.fail(c, err, "Failed to save module")
		return
	}
	s.cache.Invalidate(resourceModules)
	c.JSON(http.StatusOK, models.ModuleResponse{Module: updated})
}

func (s *Server) DeleteModule(c *gin.Context) {
	if err := s.client.DeleteModule(c.Request.Context(), credentialFrom(c), c.Param("id")); err != nil {
		s.fail(c, err, "Failed to delete module")
		return
	}
	s.cache.Invalidate(resourceModules)
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ValidateModule checks editor content without saving it. Schema problems
// are reported with 200 so the editor can show them inline.
func (s *Server) ValidateModule(c *gin.Context) {
	var req moduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, badRequest("Invalid JSON"), "")
		return
	}
	_, err := req.module()
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"valid": true, "types": sections.Types()})
		return
	}
	issues := []sections.Issue{{Message: apiclient.UserMessage(err, err.Error())}}
	var verr *sections.ValidationError
	if errors.As(err, &verr) {
		issues = verr.Issues
	}
	c.JSON(http.StatusOK, gin.H{"valid": false, "issues": issues, "types": sections.Types()})
}

// PreviewPage renders a CMS page with its modules as the public site would.
func (s *Server) PreviewPage(c *gin.Context) {
	cred := credentialFrom(c)
	ctx := c.Request.Context()
	item, err := s.client.GetPage(ctx, cred, c.Param("id"))
	if err != nil {
		s.fail(c, err, "Failed to fetch page")
		return
	}
	fetch := func(ctx context.Context, id string) (models.Module, error) {
		return s.client.GetModule(ctx, cred, id)
	}
	page, err := site.FromCMS(ctx, item, fetch, s.logger)
	if err != nil {
		s.fail(c, err, "Failed to build preview")
		return
	}
	s.renderPage(c, page, "", true)
}
