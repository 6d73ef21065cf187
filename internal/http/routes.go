package http

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"telegram_miniapp/internal/config"
	"telegram_miniapp/internal/http/handlers"
	"telegram_miniapp/internal/http/middleware"
	"telegram_miniapp/internal/repository"
	"telegram_miniapp/internal/service"
	"telegram_miniapp/internal/theme"
	"telegram_miniapp/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
)

// Deps are the optional backing services. Nil fields disable the features
// that need them.
type Deps struct {
	DB    *pgxpool.Pool
	Redis *redis.Client
}

type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

// NewRouter builds the engine with the standard middleware chain.
func NewRouter(cfg *config.Config, deps Deps, version string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(), middleware.Metrics())
	r.Use(middleware.FrameHeaders(cfg.FrameAncestors), middleware.CORS(cfg.AllowedOrigin))
	RegisterRoutes(r, cfg, deps, version)
	return r
}

func RegisterRoutes(r *gin.Engine, cfg *config.Config, deps Deps, version string) {
	auth := service.NewTelegramAuthService(cfg.BotToken, cfg.InitDataExpiresIn)
	sessions := service.NewSessionCodec(cfg.SessionSecret, cfg.SessionMaxAge)
	chat := service.NewChatRelay(cfg.ChatUpstreamURL, cfg.ChatUpstreamTimeout)

	var users handlers.UserStore
	var audit *service.AuditService
	healthDeps := map[string]handlers.Pinger{"database": nil, "redis": nil}
	if deps.DB != nil {
		users = repository.NewUserRepository(deps.DB)
		audit = service.NewAuditService(repository.NewAuditRepository(deps.DB))
		healthDeps["database"] = deps.DB
	}
	if deps.Redis != nil {
		healthDeps["redis"] = redisPinger{client: deps.Redis}
	}

	h := handlers.NewHandler(auth, sessions, chat, users, handlers.HandlerConfig{
		BotUsername:       cfg.BotUsername,
		Production:        cfg.IsProduction(),
		InitDataMaxLength: cfg.InitDataMaxLength,
	})
	h.Audit = audit
	healthHandler := handlers.NewHealthHandler(healthDeps, version)

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(middleware.RedisRateLimit(deps.Redis, "api", cfg.APIRateLimit, cfg.APIRateWindow))

	authRL := middleware.RedisRateLimit(deps.Redis, "auth", cfg.AuthRateLimit, cfg.AuthRateWindow)
	api.POST("/telegram-auth", authRL, h.TelegramAuth)
	api.GET("/telegram-auth", h.TelegramAuthStatus)

	chatIdentity := middleware.Identity(middleware.IdentityOptions{
		Auth:      auth,
		Sessions:  sessions,
		Policy:    cfg.ChatAuthPolicy,
		BodyField: "initData",
		MaxLength: cfg.InitDataMaxLength,
	})
	api.POST("/chat", chatIdentity, middleware.UserRateLimit(deps.Redis, cfg.APIRateLimit, cfg.APIRateWindow), h.Chat)

	meIdentity := middleware.Identity(middleware.IdentityOptions{
		Auth:      auth,
		Sessions:  sessions,
		Policy:    config.AuthRequired,
		MaxLength: cfg.InitDataMaxLength,
	})
	api.GET("/me", meIdentity, h.Me)

	api.POST("/theme", h.Theme)

	if cfg.DevHost && !cfg.IsProduction() {
		registerDevHost(r, cfg)
	}

	registerStatic(r, cfg.WebDir)
}

// registerDevHost mounts the simulated Telegram client used for local work.
func registerDevHost(r *gin.Engine, cfg *config.Config) {
	hub := ws.NewHub(theme.Defaults, 640)

	dev := r.Group("/devhost")
	dev.GET("/ws", ws.HandleWS(hub, cfg.AllowedOrigin))
	dev.GET("", ws.HandleState(hub))
	dev.POST("/theme", ws.HandleTheme(hub))
	dev.POST("/viewport", ws.HandleViewport(hub))
	dev.POST("/press/:button", ws.HandlePress(hub))
}

// registerStatic serves the web client with an index.html fallback for
// client-side routes. Unknown /api paths stay JSON 404s. Paths containing
// ".." are answered 400 by http.ServeFile.
func registerStatic(r *gin.Engine, dir string) {
	index := filepath.Join(dir, "index.html")
	hasIndex := false
	if st, err := os.Stat(index); err == nil && !st.IsDir() {
		hasIndex = true
	}

	r.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/") || c.Request.Method != http.MethodGet {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		if file := filepath.Join(dir, filepath.Clean("/"+path)); file != dir {
			if st, err := os.Stat(file); err == nil && !st.IsDir() {
				c.File(file)
				return
			}
		}
		if hasIndex {
			c.File(index)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}
