// Package mockapi is an in-memory stand-in for the storytelling backend. It
// serves the same routes and JSON shapes under /api/v1 and is used by
// cmd/mockbackend and by the backend client tests.
package mockapi

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// APIPrefix is the route prefix of every API endpoint
const APIPrefix = "/api/v1"

// Config configures the mock backend
type Config struct {
	Env            string
	AllowedOrigins []string
	// Latency is added before every story generation and choice response
	Latency time.Duration
	// SeedEmail and SeedPassword create a parent account with two children
	SeedEmail    string
	SeedPassword string
}

// DefaultConfig returns a development configuration with a seeded account
func DefaultConfig() Config {
	return Config{
		Env:            "development",
		AllowedOrigins: []string{"http://localhost:3000"},
		SeedEmail:      "parent@example.com",
		SeedPassword:   "storytime123",
	}
}

type user struct {
	ID       int
	Email    string
	Name     string
	Password string
	Created  time.Time
	Active   bool
}

type child struct {
	ID                 int
	ParentID           int
	Name               string
	Age                int
	LanguagePreference string
	ReadingLevel       string
	Interests          []string
	StoriesCompleted   int
	ReadingTime        int
	Active             bool
}

type story struct {
	ID            int
	Title         string
	Paragraphs    []string
	Language      string
	Difficulty    string
	Theme         string
	Choices       []choice
	TotalChapters int
	Created       time.Time
}

type choice struct {
	ID          int
	Text        string
	Description string
}

type session struct {
	ID             int
	ChildID        int
	StoryID        int
	CurrentChapter int
	Completed      bool
	Completion     int
	WordsRead      int
	Choices        int
	Started        time.Time
	LastAccessed   time.Time
}

// Server holds the mock backend state
type Server struct {
	cfg    Config
	logger *zap.Logger
	router *gin.Engine

	mu            sync.Mutex
	nextID        int
	users         map[int]*user
	children      map[int]*child
	stories       map[int]*story
	sessions      map[int]*session
	accessTokens  map[string]int
	refreshTokens map[string]int
	resetTokens   map[string]int
	failures      map[string][]int
}

// NewServer creates a mock backend. logger may be nil.
func NewServer(cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:           cfg,
		logger:        logger,
		nextID:        1,
		users:         make(map[int]*user),
		children:      make(map[int]*child),
		stories:       make(map[int]*story),
		sessions:      make(map[int]*session),
		accessTokens:  make(map[string]int),
		refreshTokens: make(map[string]int),
		resetTokens:   make(map[string]int),
		failures:      make(map[string][]int),
	}
	if cfg.SeedEmail != "" {
		s.seed()
	}
	s.router = s.newRouter()
	return s
}

// Handler returns the HTTP handler serving the mock API
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) newRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if s.cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(ginZapLogger(s.logger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(s.cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = s.cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Session-ID", "X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))
	router.Use(s.injectFailures())

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "version": "mock", "environment": s.cfg.Env})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	api := router.Group(APIPrefix)
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", s.register)
		authGroup.POST("/login", s.login)
		authGroup.POST("/refresh", s.refresh)
		authGroup.POST("/logout", s.logout)
		authGroup.POST("/forgot-password", s.forgotPassword)
		authGroup.POST("/reset-password", s.resetPassword)
	}

	protected := api.Group("")
	protected.Use(s.authMiddleware())
	{
		protected.GET("/children/", s.listChildren)
		protected.POST("/children/", s.createChild)
		protected.GET("/children/:id", s.getChild)
		protected.PUT("/children/:id", s.updateChild)
		protected.DELETE("/children/:id", s.deleteChild)
		protected.GET("/children/:id/dashboard", s.childDashboard)
		protected.GET("/analytics/dashboard", s.parentDashboard)
		protected.GET("/analytics/child/:id/progress", s.progressReport)

		protected.GET("/stories/", s.listStories)
		protected.POST("/stories/generate", s.generateStory)
		protected.GET("/stories/:id", s.getStory)
		protected.GET("/stories/recommendations/:id", s.recommendations)
		protected.POST("/stories/:id/check-safety", s.checkSafety)
		protected.POST("/stories/:id/sessions", s.startSession)
		protected.PUT("/stories/sessions/:id/progress", s.updateProgress)
		protected.POST("/stories/sessions/:id/choices", s.submitChoice)
	}

	return router
}

// ginZapLogger logs each request except health probes
func ginZapLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		if path == "/health" {
			return
		}

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", requestID),
		}
		if len(c.Errors) > 0 {
			log.Error("Request failed", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}
		log.Info("Request handled", fields...)
	}
}

// FailNext makes the next len(statuses) requests to path answer with the
// given statuses. path is relative to the API prefix, e.g. "/children/".
func (s *Server) FailNext(path string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := APIPrefix + path
	s.failures[key] = append(s.failures[key], statuses...)
}

func (s *Server) injectFailures() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		queue := s.failures[c.Request.URL.Path]
		var status int
		if len(queue) > 0 {
			status, s.failures[c.Request.URL.Path] = queue[0], queue[1:]
		}
		s.mu.Unlock()

		if status != 0 {
			c.AbortWithStatusJSON(status, gin.H{"detail": http.StatusText(status)})
			return
		}
		c.Next()
	}
}

// ExpireAccessTokens revokes every issued access token so the next request
// answers 401 until the client refreshes
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessTokens = make(map[string]int)
}

// ResetTokenFor returns the last reset token issued for email
func (s *Server) ResetTokenFor(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, id := range s.resetTokens {
		if u := s.users[id]; u != nil && strings.EqualFold(u.Email, email) {
			return token
		}
	}
	return ""
}

func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := s.bearerUser(c, s.accessTokens)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
			return
		}
		c.Set("user_id", userID)
		c.Next()
	}
}

func (s *Server) bearerUser(c *gin.Context, tokens map[string]int) (int, bool) {
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if header == "" || token == header {
		return 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := tokens[token]
	return id, ok
}

// allocID returns the next identifier; callers hold s.mu
func (s *Server) allocID() int {
	id := s.nextID
	s.nextID++
	return id
}

// issueTokens creates a token pair; callers hold s.mu
func (s *Server) issueTokens(userID int) gin.H {
	access := "access." + uuid.NewString()
	refresh := "refresh." + uuid.NewString()
	s.accessTokens[access] = userID
	s.refreshTokens[refresh] = userID
	return gin.H{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
		"expires_in":    1800,
	}
}

func (s *Server) seed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	parent := &user{ID: s.allocID(), Email: s.cfg.SeedEmail, Name: "Dana", Password: s.cfg.SeedPassword, Created: time.Now().UTC(), Active: true}
	s.users[parent.ID] = parent
	for _, c := range []child{
		{Name: "Noa", Age: 8, LanguagePreference: "hebrew", ReadingLevel: "beginner", Interests: []string{"animals", "fantasy"}},
		{Name: "Max", Age: 10, LanguagePreference: "english", ReadingLevel: "intermediate", Interests: []string{"adventure", "science"}},
	} {
		c := c
		c.ID = s.allocID()
		c.ParentID = parent.ID
		c.Active = true
		s.children[c.ID] = &c
	}
}

func pathID(c *gin.Context) (int, bool) {
	var id int
	if _, err := fmt.Sscanf(c.Param("id"), "%d", &id); err != nil || id <= 0 {
		c.JSON(http.StatusUnprocessableEntity, validationDetail("path", "id", "value is not a valid integer"))
		return 0, false
	}
	return id, true
}

func validationDetail(location, field, msg string) gin.H {
	return gin.H{"detail": []gin.H{{"loc": []string{location, field}, "msg": msg, "type": "value_error"}}}
}

func currentUser(c *gin.Context) int {
	return c.GetInt("user_id")
}
