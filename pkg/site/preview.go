package site

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"site-cms/pkg/models"
	"site-cms/pkg/sections"
)

// ModuleFetcher loads one CMS module by id.
type ModuleFetcher func(ctx context.Context, id string) (models.Module, error)

// FromCMS builds a renderable page from a CMS page and its layout modules.
// Modules of an unknown type are skipped and logged. Any other failure,
// including content that does not match its schema, is returned.
func FromCMS(ctx context.Context, item models.PageItem, fetch ModuleFetcher, logger *zap.Logger) (*Page, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	page := &Page{Slug: item.Slug, Title: item.Title}
	for _, entry := range item.SortedLayout() {
		module, err := fetch(ctx, entry.ModuleID)
		if err != nil {
			return nil, err
		}
		content, err := sections.Decode(module.Type, module.Content)
		if errors.Is(err, sections.ErrUnknownModuleType) {
			logger.Warn("skipping module of unknown type",
				zap.String("page", item.ID),
				zap.String("module", entry.ModuleID),
				zap.String("type", module.Type))
			continue
		}
		if err != nil {
			return nil, err
		}
		page.Sections = append(page.Sections, content)
	}
	return page, nil
}
