package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-cms/pkg/apiclient"
	"site-cms/pkg/models"
	"site-cms/pkg/services"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestExportBackupWritesFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/backup/export", r.URL.Path)
		assert.Equal(t, "Bearer t0k", r.Header.Get("Authorization"))
		w.Header().Set("Content-Disposition", `attachment; filename="../../etc/site.tar.gz"`)
		_, _ = io.WriteString(w, "archive-bytes")
	}))
	defer srv.Close()

	client, err := apiclient.New(srv.URL)
	require.NoError(t, err)

	dir := t.TempDir()
	t.Chdir(dir)

	path, n, err := exportBackup(context.Background(), client, apiclient.Credential{Token: "t0k"}, apiclient.FormatArchive, "")
	require.NoError(t, err)
	assert.Equal(t, "site.tar.gz", path)
	assert.Equal(t, int64(len("archive-bytes")), n)
	data, err := os.ReadFile(filepath.Join(dir, "site.tar.gz"))
	require.NoError(t, err)
	assert.Equal(t, "archive-bytes", string(data))
}

func TestImportMarkdownCreatesDrafts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "---\ntitle: First Post\ndraft: false\n---\nHello")
	writeFile(t, filepath.Join(dir, "nested", "b.md"), "+++\ntitle = \"Second Post\"\n+++\nWorld")
	writeFile(t, filepath.Join(dir, "c.md"), "---\nauthor: nobody\n---\nno title")

	var created []models.ContentItem
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/stories", r.URL.Path)
		var item models.ContentItem
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&item)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		created = append(created, item)
		item.ID = "id-" + item.Slug
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"story": item})
	}))
	defer srv.Close()

	client, err := apiclient.New(srv.URL)
	require.NoError(t, err)
	files, err := services.ReadMarkdownDir(dir)
	require.NoError(t, err)

	var out bytes.Buffer
	err = importMarkdown(context.Background(), &out, client.Stories(), apiclient.Credential{Token: "x"}, files)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3")

	require.Len(t, created, 2)
	for _, item := range created {
		assert.Equal(t, models.StatusDraft, item.Status)
	}
	assert.Equal(t, "first-post", created[0].Slug)
	assert.Contains(t, out.String(), "created nested/b.md as id-second-post")
	assert.Contains(t, out.String(), "skip c.md")
}

func TestImportMarkdownDryRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "---\ntitle: Only One\n---\nbody")

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"import-markdown", "--kind", "blogs", "--dry-run", dir})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "ok   a.md (only-one)")

	cmd = NewRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetArgs([]string{"import-markdown", "--kind", "pages", dir})
	assert.Error(t, cmd.Execute())
}

func TestCommandsRequireToken(t *testing.T) {
	t.Setenv("CMS_TOKEN", "")
	_, err := credential("")
	assert.Error(t, err)

	t.Setenv("CMS_TOKEN", "from-env")
	cred, err := credential("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cred.Token)
}
