// Package rest exposes the BugSheriff services over HTTP+JSON using gin.
package rest

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/bugsheriff/internal/logging"
	"github.com/dmitrijs2005/bugsheriff/internal/server/config"
	"github.com/dmitrijs2005/bugsheriff/internal/server/models"
	"github.com/dmitrijs2005/bugsheriff/internal/server/services"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

// UserService is the identity API used by the handlers and the auth guard.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, username, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	ResetPassword(ctx context.Context, in services.ResetPasswordInput) error
	UpdateProfile(ctx context.Context, username string, upd services.ProfileUpdate) error
	GetProfile(ctx context.Context, username string) (*models.User, error)
	Resolve(ctx context.Context, username string) (*models.User, error)
}

type ProgramService interface {
	List(ctx context.Context, caller *models.User) ([]*models.Program, error)
	Create(ctx context.Context, in services.ProgramInput) (*models.Program, error)
	Update(ctx context.Context, id int64, in services.ProgramInput) (*models.Program, error)
	Delete(ctx context.Context, id int64) error
}

type ReportService interface {
	Upload(ctx context.Context, caller *models.User, programID int64, file *services.UploadFile) (*models.Report, error)
	ListMine(ctx context.Context, caller *models.User) ([]*models.Report, error)
	ListAll(ctx context.Context) ([]*models.Report, error)
	Update(ctx context.Context, id int64, upd services.ReportUpdate) (*models.Report, error)
	FetchOwn(ctx context.Context, caller *models.User, filename string) (io.ReadCloser, error)
	FetchAdmin(ctx context.Context, filename string) (io.ReadCloser, error)
}

type HTTPServer struct {
	address       string
	users         UserService
	programs      ProgramService
	reports       ReportService
	logger        logging.Logger
	jwtSecret     []byte
	maxUploadSize int64
	corsOrigins   []string
	engine        *gin.Engine
}

func NewHTTPServer(cfg *config.Config, l logging.Logger, us UserService, ps ProgramService, rs ReportService) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)

	s := &HTTPServer{
		address:       cfg.EndpointAddrHTTP,
		users:         us,
		programs:      ps,
		reports:       rs,
		logger:        l.With("module", "http_server"),
		jwtSecret:     []byte(cfg.SecretKey),
		maxUploadSize: cfg.MaxUploadSize,
		corsOrigins:   cfg.CORSAllowOrigins,
	}
	s.engine = s.routes()
	return s
}

// Handler returns the configured router.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

func (s *HTTPServer) routes() *gin.Engine {
	r := gin.New()
	r.Use(s.recovery(), s.requestID(), s.requestLogger(), s.cors())

	r.GET("/health", s.health)

	r.POST("/register", s.register)
	r.POST("/login", s.login)
	r.POST("/refresh-token", s.refreshToken)
	r.POST("/reset-password", s.resetPassword)

	authed := r.Group("/", s.authGuard())
	authed.PUT("/update-user", s.updateUser)
	authed.GET("/user-details", s.userDetails)
	authed.GET("/programs", s.listPrograms)
	authed.POST("/upload", s.bodyLimit(), s.uploadReport)
	authed.GET("/reports", s.listMyReports)
	authed.GET("/uploads/:filename", s.fetchOwnFile)

	admin := r.Group("/admin", s.authGuard(), s.adminGuard())
	admin.GET("/getreports", s.listAllReports)
	admin.PUT("/report/:id", s.updateReport)
	admin.POST("/newprogram", s.createProgram)
	admin.PUT("/program/:id", s.updateProgram)
	admin.DELETE("/program/:id", s.deleteProgram)
	admin.GET("/uploads/:filename", s.fetchAnyFile)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *HTTPServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
