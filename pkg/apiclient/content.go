package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"site-cms/pkg/models"
)

// ContentResource is a blogs or stories collection under /admin.
type ContentResource struct {
	client *Client
	kind   models.Kind
}

func (c *Client) Content(kind models.Kind) *ContentResource {
	return &ContentResource{client: c, kind: kind}
}

func (c *Client) Blogs() *ContentResource   { return c.Content(models.KindBlogs) }
func (c *Client) Stories() *ContentResource { return c.Content(models.KindStories) }

func (r *ContentResource) Kind() models.Kind { return r.kind }

func (r *ContentResource) path(id string) string {
	if id == "" {
		return "/admin/" + string(r.kind)
	}
	return "/admin/" + string(r.kind) + "/" + url.PathEscape(id)
}

func (r *ContentResource) List(ctx context.Context, cred Credential) ([]models.ContentItem, error) {
	raw, err := r.client.doJSON(ctx, cred, string(r.kind), http.MethodGet, r.path(""), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.kind, err)
	}
	return decodeList[models.ContentItem](raw, string(r.kind))
}

func (r *ContentResource) Get(ctx context.Context, cred Credential, id string) (models.ContentItem, error) {
	raw, err := r.client.doJSON(ctx, cred, string(r.kind), http.MethodGet, r.path(id), nil, nil)
	if err != nil {
		return models.ContentItem{}, fmt.Errorf("get %s %s: %w", r.kind.Singular(), id, err)
	}
	return decodeOne[models.ContentItem](raw, r.kind.Singular())
}

func (r *ContentResource) Create(ctx context.Context, cred Credential, item models.ContentItem) (models.ContentItem, error) {
	raw, err := r.client.doJSON(ctx, cred, string(r.kind), http.MethodPost, r.path(""), nil, item)
	if err != nil {
		return models.ContentItem{}, fmt.Errorf("create %s: %w", r.kind.Singular(), err)
	}
	return decodeOne[models.ContentItem](raw, r.kind.Singular())
}

// Update replaces the whole record.
func (r *ContentResource) Update(ctx context.Context, cred Credential, id string, item models.ContentItem) (models.ContentItem, error) {
	raw, err := r.client.doJSON(ctx, cred, string(r.kind), http.MethodPut, r.path(id), nil, item)
	if err != nil {
		return models.ContentItem{}, fmt.Errorf("update %s %s: %w", r.kind.Singular(), id, err)
	}
	return decodeOne[models.ContentItem](raw, r.kind.Singular())
}

func (r *ContentResource) Delete(ctx context.Context, cred Credential, id string) error {
	if _, err := r.client.doJSON(ctx, cred, string(r.kind), http.MethodDelete, r.path(id), nil, nil); err != nil {
		return fmt.Errorf("delete %s %s: %w", r.kind.Singular(), id, err)
	}
	return nil
}
