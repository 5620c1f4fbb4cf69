package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/msmithfl/painting-game-server/util"
	"github.com/msmithfl/painting-game-server/ws"
	"github.com/rs/cors"
)

type Server struct {
	config    *util.Config
	wsManager *ws.Manager
	router    *gin.Engine
	srv       *http.Server
}

func NewServer(config *util.Config) *Server {
	router := gin.Default()

	server := &Server{
		config:    config,
		wsManager: ws.NewManager(config),
		router:    router,
	}

	router.GET("/ws", server.wsManager.ServeWS)
	router.GET("/health", server.Health)
	router.GET("/rooms", server.ListRooms)
	router.GET("/rooms/:id/users", server.ListRoomUsers)

	if config.StaticDir != "" {
		router.NoRoute(gin.WrapH(http.FileServer(http.Dir(config.StaticDir))))
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	})

	server.srv = &http.Server{
		Addr:              fmt.Sprintf(":%v", config.Port),
		Handler:           corsHandler.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return server
}

// Handler returns the CORS-wrapped router.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start runs the session manager and serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.wsManager.Start()

	log.Printf("Server is running on port %v", s.config.Port)

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then stops the session manager, which
// closes every open websocket.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	s.wsManager.Stop()
	return err
}
