package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"site-cms/pkg/models"
)

const modulesPath = "/admin/modules"

func (c *Client) ListModules(ctx context.Context, cred Credential) ([]models.Module, error) {
	raw, err := c.doJSON(ctx, cred, "modules", http.MethodGet, modulesPath, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	return decodeList[models.Module](raw, "modules")
}

func (c *Client) GetModule(ctx context.Context, cred Credential, id string) (models.Module, error) {
	raw, err := c.doJSON(ctx, cred, "modules", http.MethodGet, modulesPath+"/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return models.Module{}, fmt.Errorf("get module %s: %w", id, err)
	}
	return decodeOne[models.Module](raw, "module")
}

func (c *Client) CreateModule(ctx context.Context, cred Credential, m models.Module) (models.Module, error) {
	raw, err := c.doJSON(ctx, cred, "modules", http.MethodPost, modulesPath, nil, m)
	if err != nil {
		return models.Module{}, fmt.Errorf("create module: %w", err)
	}
	return decodeOne[models.Module](raw, "module")
}

func (c *Client) UpdateModule(ctx context.Context, cred Credential, id string, m models.Module) (models.Module, error) {
	raw, err := c.doJSON(ctx, cred, "modules", http.MethodPut, modulesPath+"/"+url.PathEscape(id), nil, m)
	if err != nil {
		return models.Module{}, fmt.Errorf("update module %s: %w", id, err)
	}
	return decodeOne[models.Module](raw, "module")
}

func (c *Client) DeleteModule(ctx context.Context, cred Credential, id string) error {
	if _, err := c.doJSON(ctx, cred, "modules", http.MethodDelete, modulesPath+"/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete module %s: %w", id, err)
	}
	return nil
}
