package backend

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"regportal/internal/auth"
	"regportal/internal/domain"
	"regportal/internal/httpmiddleware"
)

// Options configures the server.
type Options struct {
	JWTIssuer       string
	JWTSigningKey   string
	AccessTTL       time.Duration
	RateLimitPerMin int
	AllowedOrigins  []string
	BcryptCost      int
	Gatherer        prometheus.Gatherer
	// Health reports dependency health for /healthz.
	Health func(ctx context.Context) map[string]bool
}

// Server serves the registration API.
type Server struct {
	store  Store
	photos PhotoStore
	opts   Options
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewServer builds a server over store and photos.
func NewServer(store Store, photos PhotoStore, opts Options, log logrus.FieldLogger) *Server {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{store: store, photos: photos, opts: opts, log: log, now: time.Now}
}

// Router wires every route with the standard middleware chain.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.opts.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: !allowsAll(s.opts.AllowedOrigins),
		MaxAge:           24 * time.Hour,
	}))
	r.Use(httpmiddleware.SecurityHeaders())
	if s.opts.RateLimitPerMin > 0 {
		r.Use(httpmiddleware.NewTokenBucket(s.opts.RateLimitPerMin, s.opts.RateLimitPerMin).GinMiddleware())
	}

	gatherer := s.opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	r.GET("/healthz", s.healthz)

	api := r.Group("/api")
	api.POST("/students/register", s.registerStudent)
	api.POST("/students/status", s.studentStatus)
	api.GET("/students", s.listStudents)
	api.POST("/admin/login", s.login)

	admin := api.Group("", auth.AdminAuth(s.opts.JWTSigningKey, s.opts.JWTIssuer))
	admin.POST("/students/upload-photo",
		auth.RequireRole(string(domain.RoleSuperAdmin), string(domain.RolePhotoAdmin)), s.uploadPhoto)
	admin.PUT("/students/:id/status", s.updateStatus)

	verify := admin.Group("", auth.RequireRole(string(domain.RoleSuperAdmin), string(domain.RoleDepartmentAdmin)))
	verify.GET("/students/department/:department/pending-verification", s.pendingVerification)
	verify.GET("/students/:id/documents", s.documents)
	verify.PUT("/students/:id/documents", s.saveDocuments)
	verify.POST("/students/bulk-verify-documents", s.bulkVerify)

	super := admin.Group("/admins", auth.RequireRole(string(domain.RoleSuperAdmin)))
	super.GET("", s.listAdmins)
	super.GET("/stats", s.adminStats)
	super.POST("", s.createAdmin)
	super.DELETE("/:id", s.deleteAdmin)

	return r
}

func allowsAll(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

func (s *Server) healthz(c *gin.Context) {
	body := gin.H{"status": "ok"}
	status := http.StatusOK
	if s.opts.Health != nil {
		for name, ok := range s.opts.Health(c.Request.Context()) {
			body[name] = ok
			if !ok {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
		}
	}
	c.JSON(status, body)
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

// EnsureAdmin creates a super admin with email when no account has it yet.
func (s *Server) EnsureAdmin(ctx context.Context, name, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.store.AdminByEmail(ctx, email); err == nil {
		return nil
	}
	_, err := s.createAdminRecord(ctx, domain.NewAdmin{
		Name:      name,
		Email:     email,
		Password:  password,
		Role:      domain.RoleSuperAdmin,
		CreatedBy: "bootstrap",
	})
	if err == nil {
		s.log.WithField("email", email).Info("bootstrap super admin created")
	}
	return err
}
