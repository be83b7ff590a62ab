package services

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"site-cms/pkg/models"
)

// ItemFromMarkdown maps a markdown document with front matter to a content
// item. Items default to draft and get a slug derived from the title.
func ItemFromMarkdown(content []byte) (models.ContentItem, error) {
	fm, body, _, err := ParseFrontMatter(content)
	if err != nil {
		return models.ContentItem{}, err
	}

	item := models.ContentItem{
		Title:   stringField(fm, "title"),
		Slug:    stringField(fm, "slug"),
		Excerpt: firstString(fm, "excerpt", "description", "summary"),
		Author:  stringField(fm, "author"),
		Tags:    stringList(fm["tags"]),
		Status:  models.Status(strings.ToLower(stringField(fm, "status"))),
		Content: body,
	}
	if item.Status == "" {
		item.Status = models.StatusDraft
		if draft, ok := fm["draft"].(bool); ok && !draft {
			item.Status = models.StatusPublished
		}
	}
	if t, ok := timeField(fm, "publishedAt", "date"); ok {
		item.PublishedAt = &t
	}
	if item.Slug == "" && item.Title != "" {
		s, err := models.SlugFrom(item.Title)
		if err != nil {
			return item, fmt.Errorf("derive slug from %q: %w", item.Title, err)
		}
		item.Slug = s
	}
	return item, nil
}

// MarkdownFromItem writes a content item as a markdown document.
func MarkdownFromItem(item models.ContentItem, format string) ([]byte, error) {
	if format == "" {
		format = FormatYAML
	}
	fm := map[string]interface{}{
		"title":   item.Title,
		"slug":    item.Slug,
		"excerpt": item.Excerpt,
		"author":  item.Author,
		"status":  string(item.Status),
	}
	if len(item.Tags) > 0 {
		tags := make([]interface{}, len(item.Tags))
		for i, t := range item.Tags {
			tags[i] = t
		}
		fm["tags"] = tags
	}
	if item.PublishedAt != nil {
		fm["publishedAt"] = *item.PublishedAt
	}
	return ConstructFileContent(fm, item.Content, format)
}

// MarkdownFile is a content item read from disk.
type MarkdownFile struct {
	Path string
	Item models.ContentItem
}

// ReadMarkdownDir reads every .md file under dir, sorted by path.
func ReadMarkdownDir(dir string) ([]MarkdownFile, error) {
	var files []MarkdownFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		item, err := ItemFromMarkdown(content)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		rel, _ := filepath.Rel(dir, path)
		files = append(files, MarkdownFile{Path: filepath.ToSlash(rel), Item: item})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func stringField(fm map[string]interface{}, key string) string {
	switch v := fm[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func firstString(fm map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s := stringField(fm, k); s != "" {
			return s
		}
	}
	return ""
}

// stringList accepts a list or a comma separated string.
func stringList(value interface{}) []string {
	var out []string
	switch v := value.(type) {
	case []interface{}:
		for _, e := range v {
			if s := strings.TrimSpace(fmt.Sprint(e)); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

func timeField(fm map[string]interface{}, keys ...string) (time.Time, bool) {
	for _, k := range keys {
		switch v := fm[k].(type) {
		case time.Time:
			return v, true
		case toml.LocalDate:
			return v.AsTime(time.UTC), true
		case toml.LocalDateTime:
			return v.AsTime(time.UTC), true
		case string:
			for _, layout := range dateLayouts {
				if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
					return t, true
				}
			}
		}
	}
	return time.Time{}, false
}
