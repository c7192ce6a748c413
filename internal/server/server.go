package server

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/matthieukhl/orderpulse/internal/database"
	"github.com/matthieukhl/orderpulse/internal/errs"
	"github.com/matthieukhl/orderpulse/internal/ingest"
	"github.com/matthieukhl/orderpulse/internal/kpi"
	"github.com/matthieukhl/orderpulse/internal/pipeline"
)

// Deps are the components the HTTP layer triggers.
type Deps struct {
	DB      *database.DB
	Runner  *pipeline.Runner
	Loader  *ingest.Loader
	SQL     kpi.Engine
	Memory  kpi.Engine
	Log     *slog.Logger
	Origins []string
}

type Server struct {
	router  *gin.Engine
	deps    Deps
	engines map[string]kpi.Engine
}

// NewServer creates a new server instance
func NewServer(deps Deps) *Server {
	router := gin.Default()

	server := &Server{
		router: router,
		deps:   deps,
		engines: map[string]kpi.Engine{
			"db":     deps.SQL,
			"memory": deps.Memory,
		},
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	upload := s.router.Group("/upload")
	{
		upload.POST("/customers", s.upload(pipeline.Customers, ".csv"))
		upload.POST("/orders", s.upload(pipeline.Orders, ".xml"))
	}

	s.router.POST("/clean", s.clean)
	s.router.POST("/db/load", s.load)

	kpis := s.router.Group("/kpi/:source", s.engine)
	{
		kpis.GET("/repeat-customers", s.repeatCustomers)
		kpis.GET("/monthly-order-trends", s.monthlyOrderTrends)
		kpis.GET("/regional-revenue", s.regionalRevenue)
		kpis.GET("/top-customers", s.topCustomers)
	}

	api := s.router.Group("/api")
	{
		api.GET("/health", s.healthCheck)
	}
}

// upload saves the posted file verbatim. The upload's own extension picks
// the staging format; a file without one is stored as defaultExt.
func (s *Server) upload(entity pipeline.Entity, defaultExt string) gin.HandlerFunc {
	return func(c *gin.Context) {
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "multipart field 'file' is required"})
			return
		}

		ext := filepath.Ext(fh.Filename)
		if ext == "" {
			ext = defaultExt
		}

		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		defer f.Close()

		path, err := s.deps.Runner.Stage(entity, ext, f)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": filepath.Base(path) + " uploaded successfully"})
	}
}

// clean runs the cleaning pipeline. Its outcome is only logged, so the
// response does not carry the failure detail.
func (s *Server) clean(c *gin.Context) {
	ok := s.deps.Runner.Run()
	c.JSON(http.StatusOK, gin.H{"message": "Cleaning pipeline completed", "success": ok})
}

func (s *Server) load(c *gin.Context) {
	summary, err := s.deps.Loader.Run(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Data loaded into database successfully!",
		"status":  "success",
		"summary": summary,
	})
}

// engine resolves the :source path segment to a KPI engine.
func (s *Server) engine(c *gin.Context) {
	engine, ok := s.engines[c.Param("source")]
	if !ok || engine == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"detail": "unknown kpi source " + c.Param("source")})
		return
	}
	c.Set("engine", engine)
	c.Next()
}

func engineFrom(c *gin.Context) kpi.Engine {
	return c.MustGet("engine").(kpi.Engine)
}

func (s *Server) repeatCustomers(c *gin.Context) {
	rows, err := engineFrom(c).RepeatCustomers(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) monthlyOrderTrends(c *gin.Context) {
	rows, err := engineFrom(c).MonthlyOrderTrends(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) regionalRevenue(c *gin.Context) {
	rows, err := engineFrom(c).RegionalRevenue(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) topCustomers(c *gin.Context) {
	var params kpi.TopCustomersParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	// omitempty lets an explicit limit=0 through
	if _, set := c.GetQuery("limit"); set && params.Limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "limit must be at least 1"})
		return
	}

	rows, err := engineFrom(c).TopCustomers(c.Request.Context(), params)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// healthCheck endpoint for monitoring
func (s *Server) healthCheck(c *gin.Context) {
	if err := s.deps.DB.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"error":  "database connection failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "orderpulse",
	})
}

// StatusFor maps an error kind to the response code callers act on.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrDataNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrConnectivity):
		return http.StatusServiceUnavailable
	case errors.Is(err, errs.ErrSchema), errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	s.deps.Log.Error("request failed", "path", c.FullPath(), "status", status, "error", err)

	body := gin.H{"detail": err.Error()}
	var e *errs.Error
	if errors.As(err, &e) && e.Remedy != "" {
		body["remedy"] = e.Remedy
	}
	c.JSON(status, body)
}

// Handler returns the router, behind CORS when origins are configured.
func (s *Server) Handler() http.Handler {
	if len(s.deps.Origins) == 0 {
		return s.router
	}
	return cors.New(cors.Options{
		AllowedOrigins:   s.deps.Origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	}).Handler(s.router)
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv.ListenAndServe()
}
