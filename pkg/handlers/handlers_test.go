package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-cms/pkg/apiclient"
	"site-cms/pkg/services"
	"site-cms/pkg/site"
)

const testSite = `
name: Test Co
pages:
  - slug: home
    title: Home
    sections:
      - type: hero
        content: {heading: Welcome home}
  - slug: careers
    title: Careers
    sections:
      - type: careers
        content: {heading: Jobs}
`

// fakeAPI records the calls the app makes to the CMS REST API.
type fakeAPI struct {
	mu       sync.Mutex
	calls    map[string]int
	bodies   map[string][]byte
	auth     []string
	handlers map[string]http.HandlerFunc
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		calls:    map[string]int{},
		bodies:   map[string][]byte{},
		handlers: map[string]http.HandlerFunc{},
	}
}

func (f *fakeAPI) on(method, path string, h http.HandlerFunc) {
	f.handlers[method+" "+path] = h
}

func (f *fakeAPI) count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method+" "+path]
}

func (f *fakeAPI) body(method, path string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[method+" "+path]
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api")
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))

	f.mu.Lock()
	f.calls[key]++
	f.bodies[key] = body
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	h := f.handlers[key]
	f.mu.Unlock()

	if h == nil {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"not found"}`)
		return
	}
	h(w, r)
}

func jsonReply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

type testEnv struct {
	api    *fakeAPI
	server *Server
	router *gin.Engine
}

func setup(t *testing.T, maxUpload int64) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	api := newFakeAPI()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client, err := apiclient.New(srv.URL + "/api")
	require.NoError(t, err)
	s, err := site.Parse([]byte(testSite), "yaml")
	require.NoError(t, err)
	renderer, err := site.NewRenderer(nil)
	require.NoError(t, err)

	server := NewServer(Deps{
		Client:        client,
		Site:          s,
		Renderer:      renderer,
		Cache:         services.NewListCache(time.Minute),
		Media:         services.NewLibraryPool(client, maxUpload, time.Millisecond, nil),
		Registry:      prometheus.NewRegistry(),
		UploadTimeout: 5 * time.Second,
	})
	t.Cleanup(server.Close)

	store := cookie.NewStore([]byte("test-secret"))
	return &testEnv{api: api, server: server, router: server.Router("site-cms", store)}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.AddCookie(&http.Cookie{Name: "token", Value: "abc"})
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) doJSON(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return e.do(t, method, path, r, "application/json")
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestAPIRequiresCredential(t *testing.T) {
	env := setup(t, 0)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/blogs", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", decode(t, w)["error"])

	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

const blogList = `{"blogs":[
 {"_id":"1","title":"Go tips","slug":"go-tips","status":"published","updatedAt":"2026-01-03T00:00:00Z"},
 {"_id":"2","title":"Going remote","slug":"going-remote","status":"draft","updatedAt":"2026-01-02T00:00:00Z"},
 {"_id":"3","title":"Rust notes","slug":"rust-notes","status":"published","updatedAt":"2026-01-01T00:00:00Z"}
]}`

func TestListBlogsFiltersSortsAndBadges(t *testing.T) {
	env := setup(t, 0)
	env.api.on(http.MethodGet, "/admin/blogs", jsonReply(http.StatusOK, blogList))

	w := env.doJSON(t, http.MethodGet, "/api/blogs?q=GO&sort=title&dir=asc", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	items := out["items"].([]interface{})
	require.Len(t, items, 2)
	first := items[0].(map[string]interface{})
	assert.Equal(t, "Go tips", first["title"])
	assert.Equal(t, map[string]interface{}{"label": "Published", "variant": "success"}, first["badge"])
	second := items[1].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"label": "Draft", "variant": "draft"}, second["badge"])

	w = env.doJSON(t, http.MethodGet, "/api/blogs?status=published", "")
	out = decode(t, w)
	assert.Len(t, out["items"], 2)
	assert.Equal(t, float64(2), out["page"].(map[string]interface{})["total"])

	// the second and third requests were served from the list cache
	assert.Equal(t, 1, env.api.count(http.MethodGet, "/admin/blogs"))
	assert.Contains(t, env.api.auth, "Bearer abc")
}

func TestListPagesCarriesBadges(t *testing.T) {
	env := setup(t, 0)
	env.api.on(http.MethodGet, "/admin/pages", jsonReply(http.StatusOK, `{"pages":[
 {"_id":"p1","title":"Home","slug":"home","status":"published","layout":[]},
 {"_id":"p2","title":"About","slug":"about","status":"scheduled","layout":[]}
]}`))

	w := env.doJSON(t, http.MethodGet, "/api/pages?sort=title&dir=asc", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	items := decode(t, w)["items"].([]interface{})
	require.Len(t, items, 2)
	about := items[0].(map[string]interface{})
	assert.Equal(t, "About", about["title"])
	assert.Equal(t, map[string]interface{}{"label": "Scheduled", "variant": "draft"}, about["badge"])
	home := items[1].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"label": "Published", "variant": "success"}, home["badge"])
	assert.NotContains(t, home, "createdAt")
}

func TestAdminScriptEscapesAPIValues(t *testing.T) {
	script, err := os.ReadFile("../../static/admin.js")
	require.NoError(t, err)
	js := string(script)
	assert.Contains(t, js, "const esc = ")
	assert.Contains(t, js, "esc(item[key])")
	assert.Contains(t, js, "esc(badge.label)")
	assert.NotContains(t, js, "${item.badge.label}")
	assert.NotContains(t, js, "return item[key] || ''")
}

func TestCreateBlogValidatesAndInvalidatesCache(t *testing.T) {
	env := setup(t, 0)
	env.api.on(http.MethodGet, "/admin/blogs", jsonReply(http.StatusOK, blogList))
	env.api.on(http.MethodPost, "/admin/blogs", jsonReply(http.StatusCreated, `{"blog":{"_id":"9","title":"Hello World","slug":"hello-world","status":"draft"}}`))

	env.doJSON(t, http.MethodGet, "/api/blogs", "")

	w := env.doJSON(t, http.MethodPost, "/api/blogs", `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["fields"], "title")
	assert.Zero(t, env.api.count(http.MethodPost, "/admin/blogs"))

	w = env.doJSON(t, http.MethodPost, "/api/blogs", `{"title":"Hello World"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal(env.api.body(http.MethodPost, "/admin/blogs"), &sent))
	assert.Equal(t, "hello-world", sent["slug"])
	assert.Equal(t, "draft", sent["status"])

	env.doJSON(t, http.MethodGet, "/api/blogs", "")
	assert.Equal(t, 2, env.api.count(http.MethodGet, "/admin/blogs"))
}

func TestRejectedTokenEndsSession(t *testing.T) {
	env := setup(t, 0)
	env.api.on(http.MethodGet, "/admin/stories", jsonReply(http.StatusForbidden, `{"error":{"message":"jwt expired"}}`))

	w := env.doJSON(t, http.MethodGet, "/api/stories", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var cleared bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "token" && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)
}

func TestAPIErrorsPassThrough(t *testing.T) {
	env := setup(t, 0)
	env.api.on(http.MethodDelete, "/admin/pages/p1", jsonReply(http.StatusConflict, `{"message":"Page is in use"}`))
	env.api.on(http.MethodGet, "/admin/pages/p2", jsonReply(http.StatusInternalServerError, `oops`))

	w := env.doJSON(t, http.MethodDelete, "/api/pages/p1", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Page is in use", decode(t, w)["error"])

	w = env.doJSON(t, http.MethodGet, "/api/pages/p2", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = env.doJSON(t, http.MethodGet, "/api/pages/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateModuleValidatesContent(t *testing.T) {
	env := setup(t, 0)
	env.api.on(http.MethodPut, "/admin/modules/m1", jsonReply(http.StatusOK, `{"module":{"_id":"m1","type":"hero","content":{"heading":"Hi"}}}`))

	w := env.doJSON(t, http.MethodPut, "/api/modules/m1", `{"type":"hero","content":"{\"subheading\":\"no heading\"}"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decode(t, w)["issues"])

	w = env.doJSON(t, http.MethodPut, "/api/modules/m1", `{"type":"marquee","content":{}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.doJSON(t, http.MethodPut, "/api/modules/m1", `{"type":"hero","title":"Top","content":"{ \"heading\": \"Hi\" }"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var sent map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(env.api.body(http.MethodPut, "/admin/modules/m1"), &sent))
	assert.JSONEq(t, `{"heading":"Hi"}`, string(sent["content"]))
	assert.Equal(t, 1, env.api.count(http.MethodPut, "/admin/modules/m1"))
}

func TestValidateModule(t *testing.T) {
	env := setup(t, 0)

	w := env.doJSON(t, http.MethodPost, "/api/modules/validate", `{"type":"richtext","content":{"markdown":"# hi"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["valid"])

	w = env.doJSON(t, http.MethodPost, "/api/modules/validate", `{"type":"richtext","content":"not json"}`)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.Equal(t, false, out["valid"])
	assert.NotEmpty(t, out["issues"])
}

func multipartBody(t *testing.T, field string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, _ = io.WriteString(part, content)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadMediaConfirms(t *testing.T) {
	env := setup(t, 0)
	env.api.on(http.MethodGet, "/admin/uploads/media", jsonReply(http.StatusOK, `{"media":[{"id":"old","name":"old.png","type":"image/png"}]}`))
	env.api.on(http.MethodPost, "/admin/uploads/media", jsonReply(http.StatusCreated, `{"file":{"id":"new","name":"logo.png","src":"/uploads/logo.png","type":"image/png"}}`))

	require.Equal(t, http.StatusOK, env.doJSON(t, http.MethodGet, "/api/media", "").Code)

	body, ct := multipartBody(t, "file", map[string]string{"logo.png": "png-bytes"})
	w := env.do(t, http.MethodPost, "/api/media", body, ct)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	placeholders := decode(t, w)["items"].([]interface{})
	require.Len(t, placeholders, 1)
	assert.Equal(t, "pending", placeholders[0].(map[string]interface{})["state"])

	env.server.Wait()

	out := decode(t, env.doJSON(t, http.MethodGet, "/api/media?sort=name&dir=asc", ""))
	items := out["items"].([]interface{})
	require.Len(t, items, 2)
	var ids []string
	for _, it := range items {
		m := it.(map[string]interface{})
		ids = append(ids, m["id"].(string))
		assert.Equal(t, "confirmed", m["state"])
	}
	assert.ElementsMatch(t, []string{"new", "old"}, ids)
	assert.Equal(t, "", out["error"])
}

func TestUploadMediaFailureIsReported(t *testing.T) {
	env := setup(t, 0)
	env.api.on(http.MethodGet, "/admin/uploads/media", jsonReply(http.StatusOK, `[]`))
	env.api.on(http.MethodPost, "/admin/uploads/media/multi", jsonReply(http.StatusInternalServerError, `{"message":"Disk full"}`))

	body, ct := multipartBody(t, "files", map[string]string{"a.pdf": "a", "b.pdf": "b"})
	w := env.do(t, http.MethodPost, "/api/media", body, ct)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	env.server.Wait()

	out := decode(t, env.doJSON(t, http.MethodGet, "/api/media", ""))
	assert.Empty(t, out["items"])
	assert.Equal(t, "Disk full", out["error"])
	failed := out["failed"].([]interface{})
	require.Len(t, failed, 2)

	id := failed[0].(map[string]interface{})["id"].(string)
	assert.Equal(t, http.StatusOK, env.doJSON(t, http.MethodDelete, "/api/media/failed/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, env.doJSON(t, http.MethodDelete, "/api/media/failed/"+id, "").Code)
}

func TestUploadMediaTooLarge(t *testing.T) {
	env := setup(t, 4)

	body, ct := multipartBody(t, "file", map[string]string{"big.mov": "0123456789"})
	w := env.do(t, http.MethodPost, "/api/media", body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, decode(t, w)["error"], "big.mov")
	assert.Zero(t, env.api.count(http.MethodPost, "/admin/uploads/media"))
}

func TestBackupExportStreams(t *testing.T) {
	env := setup(t, 0)
	payload := "{\"type\":\"blog\"}\n{\"type\":\"page\"}\n"
	env.api.on(http.MethodGet, "/admin/backup/export", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ndjson", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Header().Set("Content-Disposition", `attachment; filename="site.ndjson"`)
		_, _ = io.WriteString(w, payload)
	})

	w := env.doJSON(t, http.MethodGet, "/api/backup/export?format=ndjson", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, payload, w.Body.String())
	assert.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "site.ndjson")

	w = env.doJSON(t, http.MethodGet, "/api/backup/export?format=zip", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBackupImport(t *testing.T) {
	env := setup(t, 0)
	env.api.on(http.MethodPost, "/admin/backup/import", jsonReply(http.StatusOK, `{"imported":3}`))

	body, ct := multipartBody(t, "file", map[string]string{"site.ndjson": "{}\n"})
	w := env.do(t, http.MethodPost, "/api/backup/import", body, ct)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"imported":3}`, w.Body.String())
}

func TestSitePages(t *testing.T) {
	env := setup(t, 0)

	w := env.do(t, http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Welcome home")

	w = env.do(t, http.MethodGet, "/careers", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `aria-current="page">Careers`)

	w = env.do(t, http.MethodGet, "/nowhere", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPreviewPage(t *testing.T) {
	env := setup(t, 0)
	env.api.on(http.MethodGet, "/admin/pages/p1", jsonReply(http.StatusOK,
		`{"page":{"_id":"p1","title":"Launch","slug":"launch","status":"draft","layout":[{"moduleId":"m2","order":1},{"moduleId":"m1","order":0}]}}`))
	env.api.on(http.MethodGet, "/admin/modules/m1", jsonReply(http.StatusOK, `{"module":{"_id":"m1","type":"hero","content":{"heading":"Launch day"}}}`))
	env.api.on(http.MethodGet, "/admin/modules/m2", jsonReply(http.StatusOK, `{"module":{"_id":"m2","type":"unknown","content":{}}}`))

	w := env.do(t, http.MethodGet, "/admin/preview/pages/p1", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Launch day")
	assert.Contains(t, w.Body.String(), "preview-banner")
}

func TestContentMarkdownAndPreview(t *testing.T) {
	env := setup(t, 0)
	env.api.on(http.MethodGet, "/admin/stories/s1", jsonReply(http.StatusOK,
		`{"story":{"_id":"s1","title":"Origin","slug":"origin","status":"published","content":"Once **upon** a time"}}`))

	w := env.do(t, http.MethodGet, "/api/stories/s1/markdown", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "origin.md")
	assert.True(t, strings.HasPrefix(w.Body.String(), "---\n"))
	assert.Contains(t, w.Body.String(), "title: Origin")

	w = env.do(t, http.MethodGet, "/api/stories/s1/preview", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<strong>upon</strong>")
}

func TestTokenLogin(t *testing.T) {
	env := setup(t, 0)
	env.api.on(http.MethodGet, "/admin/pages", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			jsonReply(http.StatusUnauthorized, `{"error":"invalid token"}`)(w, r)
			return
		}
		jsonReply(http.StatusOK, `[]`)(w, r)
	})

	login := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login/token", strings.NewReader(`{"token":"`+token+`"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusBadRequest, login("").Code)
	assert.Equal(t, http.StatusUnauthorized, login("bad").Code)

	w := login("good")
	require.Equal(t, http.StatusOK, w.Code)
	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "site-cms" {
			session = c
		}
	}
	require.NotNil(t, session)

	req := httptest.NewRequest(http.MethodGet, "/api/pages", nil)
	req.AddCookie(session)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	env := setup(t, 0)
	env.do(t, http.MethodGet, "/", nil, "")

	w := env.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["pages"])

	w = env.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "site_cms_http_requests_total")
}
