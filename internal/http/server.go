package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"tweetcompare/internal/cache"
	"tweetcompare/internal/core"
	"tweetcompare/internal/log"
	"tweetcompare/internal/metrics"
	"tweetcompare/internal/middleware/ratelimit"
	"tweetcompare/internal/middleware/security"
	"tweetcompare/internal/middleware/trace"
	"tweetcompare/internal/services"
	appweb "tweetcompare/web"
)

// Comparer is the comparison API the handlers render.
type Comparer interface {
	Compare(ctx context.Context, req core.ComparisonRequest) (services.Comparison, error)
	DefaultRequest() core.ComparisonRequest
	Years() []int
	Keywords() []string
	PostCount() int
}

// cacheStatser is implemented by comparers with a result cache.
type cacheStatser interface {
	CacheStats() cache.Stats
}

// Options configures NewServer. Templates and Static default to the
// embedded web assets. RateLimit is the number of comparison requests a
// client may make per minute; 0 disables limiting.
type Options struct {
	Addr      string
	Service   Comparer
	Metrics   *metrics.Metrics
	Logger    *log.Logger
	Title     string
	RateLimit int
	Templates fs.FS
	Static    fs.FS
}

type Server struct {
	http.Server
	templates *template.Template
	svc       Comparer
	metrics   *metrics.Metrics
	logger    *log.Logger
	title     string
	started   time.Time
	limiter   *ratelimit.Limiter

	shutdownOnce sync.Once
}

// routes are the metric labels of the registered paths.
var routes = map[string]bool{
	"/":               true,
	"/ui/comparison":  true,
	"/api/comparison": true,
	"/api/years":      true,
	"/healthz":        true,
	"/readyz":         true,
	"/metrics":        true,
}

func passThrough(next http.Handler) http.Handler { return next }

func routeLabel(r *http.Request) string {
	p := r.URL.Path
	switch {
	case routes[p]:
		return p
	case strings.HasPrefix(p, "/static/"):
		return "/static/"
	default:
		return "other"
	}
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	title := opts.Title
	if title == "" {
		title = "Tweet Comparison"
	}

	mux := http.NewServeMux()
	s := &Server{
		svc:     opts.Service,
		metrics: opts.Metrics,
		logger:  logger.WithComponent(log.ComponentHTTP),
		title:   title,
		started: time.Now(),
	}

	templatesFS := opts.Templates
	if templatesFS == nil {
		templatesFS = appweb.TemplatesFS
	}
	t, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates",
			log.FieldComponent, log.ComponentTemplate,
			log.FieldError, err.Error())
	}
	s.templates = t

	staticFS := opts.Static
	if staticFS == nil {
		if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
			staticFS = sub
		} else {
			s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err.Error())
		}
	}
	if staticFS != nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	}

	limitHTML, limitJSON := passThrough, passThrough
	if opts.RateLimit > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimit})
		limitHTML = s.limiter.Middleware(extractClientIP, func(w http.ResponseWriter, r *http.Request) {
			ErrorResponse(http.StatusTooManyRequests, "Too many requests, please slow down").Write(w)
		})
		limitJSON = s.limiter.Middleware(extractClientIP, func(w http.ResponseWriter, r *http.Request) {
			writeJSONError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
		})
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("GET /ui/comparison", limitHTML(http.HandlerFunc(s.handleComparisonPartial)))
	mux.Handle("GET /api/comparison", limitJSON(security.NoStore(http.HandlerFunc(s.handleComparisonAPI))))
	mux.Handle("GET /api/years", security.NoStore(http.HandlerFunc(s.handleYears)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(trace.Options{
		ExtractIP: extractClientIP,
		RouteOf:   routeLabel,
		Logger:    logger,
		Metrics:   opts.Metrics,
	})

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           tracer.Middleware(headers.Middleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server. Only the first call has an
// effect.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
