package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-cms/pkg/models"
)

func TestParseFrontMatterFormats(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		format string
		body   string
	}{
		{"yaml", "---\ntitle: Hello\ntags: [a, b]\n---\n\nBody text\n", FormatYAML, "Body text"},
		{"yaml crlf", "---\r\ntitle: Hello\r\n---\r\nBody\r\n", FormatYAML, "Body"},
		{"toml", "+++\ntitle = \"Hello\"\n+++\nBody", FormatTOML, "Body"},
		{"json", `{"title": "Hello", "body": "Body"}`, FormatJSON, "Body"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fm, body, format, err := ParseFrontMatter([]byte(tc.input))
			require.NoError(t, err)
			assert.Equal(t, tc.format, format)
			assert.Equal(t, tc.body, body)
			assert.Equal(t, "Hello", fm["title"])
		})
	}

	_, _, _, err := ParseFrontMatter([]byte("# just markdown"))
	assert.Error(t, err)
	_, _, _, err = ParseFrontMatter([]byte("---\ntitle: never closed\n"))
	assert.Error(t, err)
}

func TestConstructFileContentRoundTrip(t *testing.T) {
	fm := map[string]interface{}{"title": "Hello", "tags": []interface{}{"a"}, "empty": ""}
	for _, format := range []string{FormatYAML, FormatTOML, FormatJSON} {
		out, err := ConstructFileContent(fm, "Body", format)
		require.NoError(t, err, format)

		parsed, body, gotFormat, err := ParseFrontMatter(out)
		require.NoError(t, err, format)
		assert.Equal(t, format, gotFormat)
		assert.Equal(t, "Body", body)
		assert.Equal(t, "Hello", parsed["title"])
		assert.NotContains(t, parsed, "empty")
	}

	_, err := ConstructFileContent(fm, "", "xml")
	assert.Error(t, err)
}

func TestItemFromMarkdown(t *testing.T) {
	doc := strings.Join([]string{
		"---",
		"title: Announcing the partner ecosystem",
		"description: Short summary",
		"author: Ops Team",
		"tags: ecosystem, partners",
		`date: "2026-02-03"`,
		"draft: false",
		"---",
		"",
		"## Why now",
	}, "\n")

	item, err := ItemFromMarkdown([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "Announcing the partner ecosystem", item.Title)
	assert.Equal(t, "Short summary", item.Excerpt)
	assert.Equal(t, []string{"ecosystem", "partners"}, item.Tags)
	assert.Equal(t, models.StatusPublished, item.Status)
	require.NotNil(t, item.PublishedAt)
	assert.Equal(t, time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC), *item.PublishedAt)
	assert.Equal(t, "## Why now", item.Content)
	assert.NotEmpty(t, item.Slug)
	assert.NoError(t, item.Validate())
}

func TestItemFromMarkdownDefaultsToDraft(t *testing.T) {
	item, err := ItemFromMarkdown([]byte("+++\ntitle = \"Story\"\nslug = \"story\"\ntags = [\"x\"]\n+++\nText"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, item.Status)
	assert.Equal(t, "story", item.Slug)
	assert.Equal(t, []string{"x"}, item.Tags)
}

func TestMarkdownFromItem(t *testing.T) {
	published := time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)
	item := models.ContentItem{
		Title: "Hello", Slug: "hello", Status: models.StatusScheduled,
		Tags: []string{"a", "b"}, PublishedAt: &published, Content: "Body",
	}
	out, err := MarkdownFromItem(item, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "---\n"))

	back, err := ItemFromMarkdown(out)
	require.NoError(t, err)
	assert.Equal(t, item.Title, back.Title)
	assert.Equal(t, item.Slug, back.Slug)
	assert.Equal(t, item.Status, back.Status)
	assert.Equal(t, item.Tags, back.Tags)
	assert.Equal(t, item.Content, back.Content)
	require.NotNil(t, back.PublishedAt)
	assert.True(t, published.Equal(*back.PublishedAt))
}

func TestReadMarkdownDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir+"/b.md", "---\ntitle: B\n---\nb")
	writeFile(t, dir+"/nested/a.md", "---\ntitle: A\n---\na")
	writeFile(t, dir+"/notes.txt", "ignored")

	files, err := ReadMarkdownDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "b.md", files[0].Path)
	assert.Equal(t, "nested/a.md", files[1].Path)
	assert.Equal(t, "A", files[1].Item.Title)
}
