package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"improbable-love/config"
	"improbable-love/internal/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

// Analyzer 执行故事分析，由 analysis.Service 实现
type Analyzer interface {
	Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.AnalyzeResponse, error)
	AnalyzeStory(ctx context.Context, input models.StoryInput) (*models.AnalyzeResponse, error)
}

// CitySearcher 执行城市查询，由 cities.Client 实现
type CitySearcher interface {
	Search(ctx context.Context, query string) ([]models.City, error)
}

// Dependencies 是服务器依赖的外部服务，全部在 main 中构造
type Dependencies struct {
	Analyzer Analyzer
	Cities   CitySearcher
}

// Server 是API服务器结构
type Server struct {
	config   *config.Config
	router   *gin.Engine
	http     *http.Server
	analyzer Analyzer
	cities   CitySearcher
	logger   *zap.Logger

	// ctx 在 Shutdown 时取消，用于关闭仍在运行的 websocket 会话
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer 创建一个新的API服务器
func NewServer(cfg *config.Config, deps Dependencies, logger *zap.Logger) *Server {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(ZapLogger(logger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	switch {
	case allowsAnyOrigin(cfg.Server.AllowedOrigins):
		corsConfig.AllowAllOrigins = true
	case len(cfg.Server.AllowedOrigins) > 0:
		corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	default:
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(BodyLimit(cfg.Server.MaxBodyBytes))

	// 指标中间件需要在注册业务路由之前挂载
	if cfg.Server.MetricsEnabled {
		p := ginprometheus.NewPrometheus("gin")
		p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
			if path := c.FullPath(); path != "" {
				return path
			}
			return "unmatched"
		}
		p.Use(router)
	}

	ctx, cancel := context.WithCancel(context.Background())
	server := &Server{
		config:   cfg,
		router:   router,
		analyzer: deps.Analyzer,
		cities:   deps.Cities,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}

	server.registerRoutes()

	server.http = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server
}

// registerRoutes 注册API路由
func (s *Server) registerRoutes() {
	s.router.GET("/health", s.healthHandler)
	s.router.HEAD("/health", s.healthHandler)

	api := s.router.Group("/api")
	{
		// 故事分析
		api.POST("/analyze", s.analyzeHandler)
		api.POST("/render", s.renderHandler)

		// 城市查询
		api.GET("/cities", s.citiesHandler)

		// 三步表单
		api.GET("/intake/methods", s.meetingMethodsHandler)
		api.POST("/intake/:action", s.intakeHandler)
	}

	ws := s.router.Group("/ws")
	{
		ws.GET("/record", s.recordSocketHandler)
		ws.GET("/cities", s.citiesSocketHandler)
	}
}

// Handler 返回路由，便于测试
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run 启动API服务器，Shutdown 后返回 nil
func (s *Server) Run() error {
	s.logger.Info("服务器正在监听", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 关闭 websocket 会话并优雅停止 HTTP 服务
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	return s.http.Shutdown(ctx)
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
