// Package admin exposes a read-only HTTP view of one robot's store.
package admin

import (
	"context"
	"errors"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/danmuck/swarmctl/internal/auth"
	"github.com/danmuck/swarmctl/internal/observability"
	"github.com/danmuck/swarmctl/internal/platform"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

type Config struct {
	Addr              string
	CorsOrigins       []string
	TotalRobotNumbers int
	// Token, when set, is required as a bearer token on /state routes.
	Token string
}

type Server struct {
	cfg     Config
	store   *platform.Platform
	router  *gin.Engine
	started time.Time
}

func New(store *platform.Platform, cfg Config) *Server {
	observability.RegisterMetrics()
	robot := strconv.Itoa(store.RobotID())
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestObserver(log.Logger, robot))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		cfg:     cfg,
		store:   store,
		router:  r,
		started: time.Now(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on cfg.Addr until ctx ends, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Int("robot", s.store.RobotID()).Msg("admin.Server.Serve listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

func (s *Server) registerRoutes() {
	r := s.router
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"robot_id":    s.store.RobotID(),
			"incarnation": observability.Incarnation,
			"uptime":      time.Since(s.started).String(),
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	state := r.Group("/state")
	if s.cfg.Token != "" {
		state.Use(auth.Middleware(auth.StaticToken{Token: s.cfg.Token}))
	}

	state.GET("/base", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"robot_id":     s.store.RobotID(),
			"robot_type":   s.store.RobotType(),
			"robot_status": s.store.RobotStatus(),
			"base":         s.store.RobotBase(),
		})
	})

	state.GET("/neighbors", func(c *gin.Context) {
		within := s.store.NeighborsWithin(s.store.NeighborDistance())
		c.JSON(http.StatusOK, gin.H{
			"neighbor_distance": s.store.NeighborDistance(),
			"neighbors":         s.store.Neighbors(),
			"within_distance":   slices.Sorted(maps.Keys(within)),
		})
	})

	state.GET("/swarms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"swarms": s.store.SwarmList()})
	})

	state.GET("/swarms/:id/members", func(c *gin.Context) {
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"swarm_id": id, "members": s.store.SwarmMembers(id)})
	})

	state.GET("/neighbor-swarms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"neighbor_swarms": s.store.NeighborSwarms()})
	})

	state.GET("/stigmergy", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ids": s.store.VirtualStigmergyIDs()})
	})

	state.GET("/stigmergy/:id", func(c *gin.Context) {
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		tuples, err := s.store.VirtualStigmergySnapshot(id)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, platform.ErrNamespaceNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "tuples": tuples})
	})

	state.GET("/barrier", func(c *gin.Context) {
		round, crossed := s.store.BarrierState()
		c.JSON(http.StatusOK, gin.H{
			"round":   round,
			"crossed": crossed,
			"members": s.store.BarrierMembers(),
			"total":   s.cfg.TotalRobotNumbers,
		})
	})
}

func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
