// Package debugapi is the operator-facing HTTP debug/metrics surface,
// grounded on internal/ghost/server.go's Appear/RegisterRoutes shape: a
// gin.Engine wrapped in cors and the observability request
// logger/metrics middleware, exposing health, prometheus metrics, and
// read-only JSON views of live session/PDR state (SPEC_FULL.md §2).
//
// This is a debug aid, not the out-of-scope object-publication surface
// (spec.md §1 Non-goals) — it never drives device state, only reports it.
package debugapi

import (
	"net/http"
	"time"

	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/openpldm/pldmd/internal/auth"
	"github.com/openpldm/pldmd/internal/control"
	"github.com/openpldm/pldmd/internal/node"
	"github.com/openpldm/pldmd/internal/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var _ node.Node = (*Server)(nil)

// DeviceView is one device's read-only JSON projection.
type DeviceView struct {
	TID          uint8  `json:"tid"`
	EID          uint8  `json:"eid"`
	LocationHint string `json:"locationHint,omitempty"`
	DeviceName   string `json:"deviceName,omitempty"`
	RecordCount  int    `json:"recordCount"`
	UpdateActive bool   `json:"updateActive"`
}

// Server is the debug/metrics HTTP surface for one pldmd process.
type Server struct {
	id         string
	addr       string
	controller *control.Controller
	startedAt  time.Time

	authValidator auth.Validator
	router        *gin.Engine
}

// New builds a debug/metrics surface over the session controller,
// mirroring internal/ghost/server.go's Appear wiring order: recovery,
// request logging, request metrics, then CORS.
func New(id, addr string, controller *control.Controller, corsOrigins []string) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(id))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	return &Server{
		id:         id,
		addr:       addr,
		controller: controller,
		startedAt:  time.Now(),
		router:     r,
	}
}

func (s *Server) NodeID() string          { return s.id }
func (s *Server) Kind() string            { return "pldmd" }
func (s *Server) HTTPRouter() *gin.Engine { return s.router }

// SetAuth requires a valid bearer token on every /devices* route. Left
// unset, those routes stay open — the default for a trusted management
// network (teacher: auth.StaticToken/auth.Validator).
func (s *Server) SetAuth(v auth.Validator) { s.authValidator = v }

func (s *Server) requireAuth(c *gin.Context) {
	if s.authValidator == nil {
		return
	}
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header || s.authValidator.Validate(token) != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
}

// RegisterRoutes wires /healthz, /metrics, and the read-only device
// views (SPEC_FULL.md §2).
func (s *Server) RegisterRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(s.startedAt).String(),
			"node":   s.id,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/devices", s.requireAuth, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"devices": s.deviceViews()})
	})

	s.router.GET("/devices/:tid", s.requireAuth, func(c *gin.Context) {
		tid, ok := parseTID(c.Param("tid"))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tid"})
			return
		}
		for _, d := range s.deviceViews() {
			if d.TID == tid {
				c.JSON(http.StatusOK, d)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
	})
}

// Serve registers routes and blocks, mirroring internal/ghost/server.go's
// Ghost.Serve.
func (s *Server) Serve() error {
	s.RegisterRoutes()
	return s.router.Run(s.addr)
}

func (s *Server) deviceViews() []DeviceView {
	summaries := s.controller.Devices()
	views := make([]DeviceView, 0, len(summaries))
	for _, d := range summaries {
		views = append(views, DeviceView{
			TID:          uint8(d.TID),
			EID:          uint8(d.EID),
			LocationHint: d.LocationHint,
			DeviceName:   d.DeviceName,
			RecordCount:  d.RecordCount,
			UpdateActive: d.UpdateActive,
		})
	}
	return views
}

func parseTID(raw string) (uint8, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var v int
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, false
		}
		v = v*10 + int(r-'0')
		if v > 255 {
			return 0, false
		}
	}
	return uint8(v), true
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
