// Package api exposes the local status and control surface: health,
// per-account status, manual close-all, and a websocket status stream.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"gridbot/logger"
	"gridbot/runner"
	"gridbot/store"
)

// Server HTTP API server
type Server struct {
	router     *gin.Engine
	runner     *runner.Runner
	journal    *store.Store
	jwtSecret  []byte
	adminUser  string
	adminPass  string
	httpServer *http.Server
	port       int
}

// NewServer creates the API server. journal may be nil.
func NewServer(r *runner.Runner, journal *store.Store, jwtSecret, adminUser, adminPass string, port int) *Server {
	// Set to Release mode (reduce log output)
	gin.SetMode(gin.ReleaseMode)

	router := gin.Default()
	router.Use(corsMiddleware())

	s := &Server{
		router:    router,
		runner:    r,
		journal:   journal,
		jwtSecret: []byte(jwtSecret),
		adminUser: adminUser,
		adminPass: adminPass,
		port:      port,
	}
	s.setupRoutes()
	return s
}

// corsMiddleware CORS middleware
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

// setupRoutes Setup routes
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.Any("/health", s.handleHealth)
		api.POST("/login", s.handleLogin)

		protected := api.Group("/", s.authMiddleware())
		{
			protected.GET("/status", s.handleStatus)
			protected.GET("/accounts/:login/trades", s.handleTrades)
			protected.GET("/accounts/:login/signals", s.handleSignals)
			protected.POST("/accounts/:login/close-all", s.handleCloseAll)
			protected.GET("/ws", s.handleWebSocket)
		}
	}
}

// authMiddleware validates the Bearer JWT
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := c.GetHeader("Authorization")
		if len(tokenStr) > 7 && tokenStr[:7] == "Bearer " {
			tokenStr = tokenStr[7:]
		} else if q := c.Query("token"); q != "" {
			// websocket clients cannot set headers from a browser
			tokenStr = q
		} else {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Username != s.adminUser || req.Password != s.adminPass {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": req.Username,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": signed})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"accounts": s.runner.Statuses()})
}

func (s *Server) handleTrades(c *gin.Context) {
	if s.journal == nil {
		c.JSON(http.StatusOK, gin.H{"trades": []interface{}{}})
		return
	}
	login, err := strconv.ParseInt(c.Param("login"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid login"})
		return
	}
	events, err := s.journal.Trade().Recent(login, 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": events})
}

func (s *Server) handleSignals(c *gin.Context) {
	if s.journal == nil {
		c.JSON(http.StatusOK, gin.H{"signals": []interface{}{}})
		return
	}
	login, err := strconv.ParseInt(c.Param("login"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid login"})
		return
	}
	recs, err := s.journal.Signal().Recent(login, 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": recs})
}

func (s *Server) handleCloseAll(c *gin.Context) {
	login, err := strconv.ParseInt(c.Param("login"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid login"})
		return
	}
	if err := s.runner.RequestCloseAll(login); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "queued"})
}

// Start runs the HTTP server (blocking)
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.router,
	}
	logger.Infof("🌐 API server listening on :%d", s.port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
