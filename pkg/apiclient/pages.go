package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"site-cms/pkg/models"
)

const pagesPath = "/admin/pages"

func (c *Client) ListPages(ctx context.Context, cred Credential) ([]models.PageItem, error) {
	raw, err := c.doJSON(ctx, cred, "pages", http.MethodGet, pagesPath, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return decodeList[models.PageItem](raw, "pages")
}

func (c *Client) GetPage(ctx context.Context, cred Credential, id string) (models.PageItem, error) {
	raw, err := c.doJSON(ctx, cred, "pages", http.MethodGet, pagesPath+"/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return models.PageItem{}, fmt.Errorf("get page %s: %w", id, err)
	}
	return decodeOne[models.PageItem](raw, "page")
}

func (c *Client) CreatePage(ctx context.Context, cred Credential, page models.PageItem) (models.PageItem, error) {
	raw, err := c.doJSON(ctx, cred, "pages", http.MethodPost, pagesPath, nil, page)
	if err != nil {
		return models.PageItem{}, fmt.Errorf("create page: %w", err)
	}
	return decodeOne[models.PageItem](raw, "page")
}

func (c *Client) UpdatePage(ctx context.Context, cred Credential, id string, page models.PageItem) (models.PageItem, error) {
	raw, err := c.doJSON(ctx, cred, "pages", http.MethodPut, pagesPath+"/"+url.PathEscape(id), nil, page)
	if err != nil {
		return models.PageItem{}, fmt.Errorf("update page %s: %w", id, err)
	}
	return decodeOne[models.PageItem](raw, "page")
}

func (c *Client) DeletePage(ctx context.Context, cred Credential, id string) error {
	if _, err := c.doJSON(ctx, cred, "pages", http.MethodDelete, pagesPath+"/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete page %s: %w", id, err)
	}
	return nil
}
