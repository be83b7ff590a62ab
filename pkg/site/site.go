// Package site renders the marketing landing pages from typed sections.
package site

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"site-cms/pkg/models"
	"site-cms/pkg/sections"
)

const HomeSlug = "home"

// Page is a landing page whose sections have been decoded and validated.
type Page struct {
	Slug        string
	Title       string
	Description string
	Sections    []sections.Content
}

type Site struct {
	Name  string
	Nav   []models.NavLink
	pages map[string]*Page
	order []string
}

// Load reads a site definition. Files ending in .toml are TOML, everything
// else is YAML.
func Load(path string) (*Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read site config: %w", err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		format = "toml"
	}
	return Parse(data, format)
}

// Parse decodes every section up front, so a bad section fails at startup
// instead of on a page view.
func Parse(data []byte, format string) (*Site, error) {
	var cfg models.SiteConfig
	var err error
	if format == "toml" {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse site config: %w", err)
	}

	s := &Site{Name: cfg.Name, Nav: cfg.Nav, pages: make(map[string]*Page, len(cfg.Pages))}
	for _, lp := range cfg.Pages {
		slug := strings.Trim(strings.TrimSpace(lp.Slug), "/")
		if slug == "" {
			slug = HomeSlug
		}
		if _, dup := s.pages[slug]; dup {
			return nil, fmt.Errorf("page %q defined twice", slug)
		}
		page := &Page{Slug: slug, Title: lp.Title, Description: lp.Description}
		for i, sec := range lp.Sections {
			content, err := sections.DecodeMap(sec.Type, sec.Content)
			if err != nil {
				return nil, fmt.Errorf("page %q section %d: %w", slug, i, err)
			}
			page.Sections = append(page.Sections, content)
		}
		s.pages[slug] = page
		s.order = append(s.order, slug)
	}

	if len(s.Nav) == 0 {
		for _, slug := range s.order {
			p := s.pages[slug]
			s.Nav = append(s.Nav, models.NavLink{Label: p.Title, Href: PathFor(slug)})
		}
	}
	return s, nil
}

func (s *Site) Page(slug string) (*Page, bool) {
	slug = strings.Trim(slug, "/")
	if slug == "" {
		slug = HomeSlug
	}
	p, ok := s.pages[slug]
	return p, ok
}

// Slugs returns the page slugs in definition order.
func (s *Site) Slugs() []string {
	return append([]string(nil), s.order...)
}

// PathFor is the public URL of a page.
func PathFor(slug string) string {
	if slug == HomeSlug {
		return "/"
	}
	return "/" + slug
}
