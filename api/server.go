package api

import (
	"context"
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"terminal-messenger/observability"
	"terminal-messenger/render"
	"terminal-messenger/runtime/workers"
	"terminal-messenger/services"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed public
var publicFS embed.FS

type ProcessStatsProvider interface {
	Snapshot() (workers.ProcessStats, bool)
}

type Options struct {
	// PublicURL prefixes share links. Empty means scheme and host of the request.
	PublicURL string
	// CLIAgents are user agent fragments identifying command-line clients.
	CLIAgents []string
	Gatherer  prometheus.Gatherer
	Process   ProcessStatsProvider
}

type Server struct {
	echo      *echo.Echo
	log       *slog.Logger
	service   services.IMessageService
	renderer  render.Renderer
	metrics   *observability.Metrics
	templates *template.Template
	public    fs.FS
	options   Options
	startedAt time.Time
}

func NewServer(
	log *slog.Logger,
	service services.IMessageService,
	renderer render.Renderer,
	metrics *observability.Metrics,
	options Options,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		log:       log,
		service:   service,
		renderer:  renderer,
		metrics:   metrics,
		templates: template.Must(template.ParseFS(templateFS, "templates/*.html")),
		options:   options,
		startedAt: time.Now(),
	}
	s.options.CLIAgents = lowerAll(options.CLIAgents)
	s.public, _ = fs.Sub(publicFS, "public")

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(s.instrument)
	e.Use(s.requestLogger())

	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/health", s.health)
	s.echo.GET("/metrics", s.prometheusHandler())
	s.echo.GET("/api/themes", s.listThemes)
	s.echo.POST("/api/messages", s.createMessage)
	s.echo.POST("/api/send", s.createMessage)

	s.echo.FileFS("/", "index.html", s.public)
	s.echo.FileFS("/script.js", "script.js", s.public)
	s.echo.FileFS("/style.css", "style.css", s.public)

	// A trailing param matches the rest of the path, slashes included, so
	// "/:id" also receives every deeper path. viewMessage hands those to the
	// front end.
	s.echo.GET("/:id", s.viewMessage)
}

// ServeHTTP exposes the router, mainly for tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) Start(address string) error {
	s.log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
	return s.echo.Start(address)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) prometheusHandler() echo.HandlerFunc {
	gatherer := s.options.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}

// isCLIClient matches the user agent against the configured fragments,
// ignoring case: "curl/8.4.0" and "HTTPie/3.2" are both command-line clients.
func (s *Server) isCLIClient(userAgent string) bool {
	userAgent = strings.ToLower(userAgent)
	for _, agent := range s.options.CLIAgents {
		if strings.Contains(userAgent, agent) {
			return true
		}
	}
	return false
}

func lowerAll(values []string) []string {
	lowered := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			lowered = append(lowered, v)
		}
	}
	return lowered
}
