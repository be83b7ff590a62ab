// Package handlers is the HTTP surface of the app: the public landing pages,
// the admin login flow and the admin JSON API that fronts the CMS REST API.
package handlers

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"site-cms/pkg/apiclient"
	"site-cms/pkg/services"
	"site-cms/pkg/site"
)

// Deps are the collaborators of a Server. Client, Site and Renderer are
// required.
type Deps struct {
	Client   *apiclient.Client
	Site     *site.Site
	Renderer *site.Renderer
	Cache    *services.ListCache
	Media    *services.LibraryPool
	OAuth    *oauth2.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry

	UploadTimeout time.Duration
	// TemplatesGlob and StaticDir are the admin templates and the public
	// assets on disk. Empty values skip them.
	TemplatesGlob string
	StaticDir     string
}

type Server struct {
	client   *apiclient.Client
	site     *site.Site
	renderer *site.Renderer
	cache    *services.ListCache
	media    *services.LibraryPool
	oauth    *oauth2.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *HTTPMetrics

	uploadTimeout time.Duration
	templatesGlob string
	staticDir     string

	uploads sync.WaitGroup
}

func NewServer(d Deps) *Server {
	s := &Server{
		client:        d.Client,
		site:          d.Site,
		renderer:      d.Renderer,
		cache:         d.Cache,
		media:         d.Media,
		oauth:         d.OAuth,
		logger:        d.Logger,
		registry:      d.Registry,
		uploadTimeout: d.UploadTimeout,
		templatesGlob: d.TemplatesGlob,
		staticDir:     d.StaticDir,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.media == nil {
		s.media = services.NewLibraryPool(d.Client, 0, time.Second, s.logger)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	if s.uploadTimeout <= 0 {
		s.uploadTimeout = 5 * time.Minute
	}
	s.metrics = NewHTTPMetrics(s.registry)
	return s
}

// Wait blocks until background uploads have finished.
func (s *Server) Wait() {
	s.uploads.Wait()
}

// Close waits for uploads and stops scheduled media refreshes.
func (s *Server) Close() {
	s.Wait()
	s.media.Close()
}
