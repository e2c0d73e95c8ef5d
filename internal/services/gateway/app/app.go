package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/LeonardoBeccarini/agro_advisor/internal/model/entities"
	"github.com/LeonardoBeccarini/agro_advisor/pkg/rabbitmq"
	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

type Config struct {
	AdvisorBaseURL string
	CropPath       string
	FertilizerPath string
	HistoryBaseURL string
	HistoryPath    string
	HTTPTimeout    time.Duration
	Retries        int
	Breaker        BreakerSettings

	SessionKey    []byte
	SessionTTL    time.Duration
	MaxSessions   int
	SecureCookies bool
	CORSOrigins   []string

	Catalog   entities.Catalog
	Logger    *slog.Logger
	Publisher rabbitmq.IPublisher // nil disables events
	Readiness map[string]ReadinessProbe
}

type Gateway struct {
	cfg        Config
	logger     *slog.Logger
	metrics    *Metrics
	crop       *Upstream
	fertilizer *Upstream
	history    *Upstream
	sessions   *Sessions
	workspaces *WorkspaceStore
	events     *EventSink
	render     *Renderer
}

func NewGateway(cfg Config) (*Gateway, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 5 * time.Second
	}
	if cfg.CropPath == "" {
		cfg.CropPath = "/recommend_crop"
	}
	if cfg.FertilizerPath == "" {
		cfg.FertilizerPath = "/recommend_fertilizer"
	}
	if cfg.HistoryPath == "" {
		cfg.HistoryPath = "/history/recent?limit=10"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	if len(cfg.SessionKey) == 0 {
		cfg.SessionKey = securecookie.GenerateRandomKey(32)
		cfg.Logger.Warn("SESSION_KEY not set, sessions will not survive a restart")
	}
	if len(cfg.Catalog.SoilTypes) == 0 && len(cfg.Catalog.CropTypes) == 0 {
		cfg.Catalog = entities.DefaultCatalog()
	}

	render, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	m := NewMetrics()
	// Un breaker per ciascun upstream
	cb := NewBreaker("advisor-crop", cfg.Breaker, cfg.Logger, m)
	fb := NewBreaker("advisor-fertilizer", cfg.Breaker, cfg.Logger, m)
	hb := NewBreaker("history", cfg.Breaker, cfg.Logger, m)

	g := &Gateway{
		cfg:        cfg,
		logger:     cfg.Logger,
		metrics:    m,
		crop:       NewUpstream("advisor-crop", cfg.AdvisorBaseURL, cfg.CropPath, cfg.HTTPTimeout, cb, cfg.Retries, m),
		fertilizer: NewUpstream("advisor-fertilizer", cfg.AdvisorBaseURL, cfg.FertilizerPath, cfg.HTTPTimeout, fb, cfg.Retries, m),
		history:    NewUpstream("history", cfg.HistoryBaseURL, cfg.HistoryPath, cfg.HTTPTimeout, hb, 0, m),
		sessions:   NewSessions(cfg.SessionKey, cfg.SessionTTL, cfg.SecureCookies),
		workspaces: NewWorkspaceStore(cfg.SessionTTL, cfg.MaxSessions),
		events:     NewEventSink(cfg.Publisher, cfg.Logger, m),
		render:     render,
	}
	if !g.crop.Configured() {
		return nil, fmt.Errorf("advisor base url: %w", ErrNotConfigured)
	}
	return g, nil
}

func (g *Gateway) Metrics() *Metrics { return g.metrics }

// Router wires every route. API routes get CORS when origins are configured.
func (g *Gateway) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(g.logRequests)

	r.HandleFunc("/", g.HandleIndex).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/ui/crop", g.HandleCropSubmit).Methods(http.MethodPost)
	r.HandleFunc("/ui/fertilizer", g.HandleFertilizerSubmit).Methods(http.MethodPost)
	r.HandleFunc("/chart.json", g.HandleChartJSON).Methods(http.MethodGet)

	r.Handle("/recommend_crop", g.api(g.HandleRecommendCrop)).Methods(http.MethodPost, http.MethodOptions)
	r.Handle("/recommend_fertilizer", g.api(g.HandleRecommendFertilizer)).Methods(http.MethodPost, http.MethodOptions)

	r.HandleFunc("/healthz", g.HandleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", g.HandleReadyz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(g.metrics.Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.PathPrefix("/static/").Handler(staticHandler())
	return r
}

func (g *Gateway) api(h http.HandlerFunc) http.Handler {
	if len(g.cfg.CORSOrigins) == 0 {
		return h
	}
	return cors.New(cors.Options{
		AllowedOrigins: g.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         600,
	}).Handler(h)
}
