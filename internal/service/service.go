// Package service is the REST API of the address book.
package service

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"gitlab.com/dirk.krummacker/address-book/internal/auth"
	"gitlab.com/dirk.krummacker/address-book/internal/config"
	"gitlab.com/dirk.krummacker/address-book/internal/contacts"
	"gitlab.com/dirk.krummacker/address-book/internal/events"
	"gitlab.com/dirk.krummacker/address-book/internal/metrics"
	"gitlab.com/dirk.krummacker/address-book/internal/store"
)

// rateLimitCleanupInterval is how often idle rate limit buckets are dropped.
const rateLimitCleanupInterval = 5 * time.Minute

// Options holds the collaborators of the server that are not built from the database.
// Zero values are replaced by working defaults.
type Options struct {
	Logger    *slog.Logger
	Registry  *prometheus.Registry
	UserCache *auth.UserCache
	Publisher events.Publisher
	Passwords *auth.PasswordService
	// Confirmations delivers email confirmation tokens. They are logged by default.
	Confirmations auth.ConfirmationSender
	Clock         func() time.Time
}

// Server holds everything the HTTP handlers need.
type Server struct {
	cfg       *config.Config
	db        *sqlx.DB
	store     *store.Contacts
	contacts  *contacts.Service
	accounts  *auth.Accounts
	resolver  *auth.Resolver
	metrics   *metrics.Collector
	registry  *prometheus.Registry
	logger    *slog.Logger
	generalRL *RateLimiter
	meRL      *RateLimiter
}

// SetupServer wraps the sql database with sqlx, prepares all statements and builds the
// services on top of it. The database argument can be a real database for production use
// or a mock database within unit tests.
func SetupServer(sqlDB *sql.DB, cfg *config.Config, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NopPublisher{}
	}
	if opts.Passwords == nil {
		opts.Passwords = auth.NewPasswordService()
	}
	if opts.Confirmations == nil {
		opts.Confirmations = auth.LogSender{Logger: opts.Logger}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	db := sqlx.NewDb(sqlDB, "mysql")
	contactStore, err := store.NewContacts(db)
	if err != nil {
		return nil, err
	}
	users := store.NewUsers(db)
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL)
	if err != nil {
		return nil, err
	}
	collector := metrics.NewCollector(opts.Registry)
	generalRL := NewRateLimiter("general", cfg.Server.RateLimitPerMinute, rateLimitCleanupInterval)
	meRL := NewRateLimiter("me", cfg.Server.RateLimitMePerMinute, rateLimitCleanupInterval)
	collector.ObserveRateLimitClients(generalRL.name, generalRL.Len)
	collector.ObserveRateLimitClients(meRL.name, meRL.Len)

	return &Server{
		cfg:   cfg,
		db:    db,
		store: contactStore,
		contacts: contacts.NewService(contactStore,
			contacts.WithClock(opts.Clock),
			contacts.WithLocation(location),
			contacts.WithPublisher(opts.Publisher),
			contacts.WithMetrics(collector),
			contacts.WithLogger(opts.Logger),
		),
		accounts:  auth.NewAccounts(users, opts.Passwords, tokens, auth.WithConfirmationSender(opts.Confirmations)),
		resolver:  auth.NewResolver(tokens, users, opts.UserCache, opts.Logger),
		metrics:   collector,
		registry:  opts.Registry,
		logger:    opts.Logger,
		generalRL: generalRL,
		meRL:      meRL,
	}, nil
}

// Close stops the rate limiters and releases the prepared statements. The database itself
// is closed by its owner.
func (s *Server) Close() error {
	s.generalRL.Stop()
	s.meRL.Stop()
	return s.store.Close()
}

// SetupHttpRouter initializes the REST API router and registers all endpoints.
func (s *Server) SetupHttpRouter() *gin.Engine {
	router := gin.New()
	router.Use(withLogger(s.logger))
	if s.cfg.RequestLogging() {
		router.Use(requestLogger())
	} else {
		s.logger.Info("Turning off HTTP request logging.")
	}
	router.Use(recovery(), s.recordMetrics(), cors.New(s.corsConfig()))

	router.GET("/metrics", gin.WrapH(metrics.Handler(s.registry)))

	api := router.Group("/api", s.generalRL.Middleware(byClientIP))
	api.GET("/healthchecker", s.healthchecker)
	api.POST("/auth/signup", s.signup)
	api.POST("/auth/login", s.login)
	api.GET("/auth/confirmed_email/:token", s.confirmEmail)

	protected := api.Group("", s.authenticate())
	protected.GET("/users/me", s.meRL.Middleware(byCaller), s.me)
	protected.GET("/contacts", s.listContacts)
	protected.GET("/contacts/search", s.searchContacts)
	protected.POST("/contacts/birthdays", s.upcomingBirthdays)
	protected.POST("/contacts", s.createContact)
	protected.GET("/contacts/:id", s.findContactByID)
	protected.PUT("/contacts/:id", s.updateContactByID)
	protected.DELETE("/contacts/:id", s.deleteContactByID)
	return router
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	origins := s.cfg.Server.CORSOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

// healthchecker answers whether the database can be reached.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/healthchecker
func (s *Server) healthchecker(c *gin.Context) {
	if err := s.db.PingContext(c.Request.Context()); err != nil {
		abortWithError(c, fmt.Errorf("database ping: %w", err))
		return
	}
	var one int
	if err := s.db.GetContext(c.Request.Context(), &one, "SELECT 1"); err != nil || one != 1 {
		abortWithError(c, errors.Join(errors.New("database is not configured correctly"), err))
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"message": "Welcome to the address book!"})
}
