// Package api is the optional HTTP control surface, grounded on
// dnsmgr_api.Dnsmgr_RequestHandler's do_GET/do_POST dispatch. It is a thin
// adapter over the Reconciler and DHCP Manager: every handler just calls
// straight through and marshals the result, per spec.md §6 describing this
// surface as "optional" and out of the reconciliation engine's core scope.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"dnsmgr/internal/api/auth"
	"dnsmgr/internal/config"
	"dnsmgr/internal/dhcp"
	"dnsmgr/internal/reconciler"
)

// response mirrors the original's `{errno, errmsg, data}` JSON envelope.
type response struct {
	Errno  int         `json:"errno"`
	Errmsg string      `json:"errmsg"`
	Data   interface{} `json:"data,omitempty"`
}

func ok(data interface{}) response { return response{Errno: 0, Data: data} }
func fail(err error) response      { return response{Errno: 1, Errmsg: err.Error()} }

// Server wires the Reconciler and DHCP Manager behind an authenticated,
// rate-limited echo router.
type Server struct {
	Reconciler *reconciler.Reconciler
	DHCP       *dhcp.Manager // nil if DHCP emission is disabled
	Auth       *auth.Authenticator
	Config     *config.API // nil means the control surface runs with defaults, no auth
}

// New builds a Server from cfg, constructing its Authenticator. cfg may be
// nil, matching an absent `api` block in the configuration file.
func New(rec *reconciler.Reconciler, dhcpMgr *dhcp.Manager, cfg *config.API) (*Server, error) {
	a, err := auth.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Server{Reconciler: rec, DHCP: dhcpMgr, Auth: a, Config: cfg}, nil
}

// Register mounts the control surface's routes on e.
func (s *Server) Register(e *echo.Echo) {
	rateLimitPerMin := 0
	if s.Config != nil {
		rateLimitPerMin = s.Config.RateLimitPerMin
	}
	limiter := middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(rateLimitPerSecond(rateLimitPerMin)),
			Burst:     5,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) { return c.RealIP(), nil },
	})

	g := e.Group("", s.Auth.Middleware())
	g.GET("/zones", s.handleZones)
	g.GET("/status", s.handleStatus)
	g.POST("/reload", s.handleReload, limiter)
	g.POST("/update", s.handleUpdate, limiter)
	g.POST("/update/dns", s.handleUpdateDNS, limiter)
	g.POST("/update/dhcp", s.handleUpdateDHCP, limiter)
}

func rateLimitPerSecond(perMinute int) float64 {
	if perMinute <= 0 {
		perMinute = 60
	}
	return float64(perMinute) / 60
}

func (s *Server) handleZones(c echo.Context) error {
	ctx := c.Request().Context()
	if _, err := s.Reconciler.Discover(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, fail(err))
	}
	return c.JSON(http.StatusOK, ok(s.Reconciler.Zones()))
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, ok(map[string]string{"status": "running"}))
}

func (s *Server) handleReload(c echo.Context) error {
	if err := s.Reconciler.Restart(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, fail(err))
	}
	return c.JSON(http.StatusOK, ok(nil))
}

func (s *Server) handleUpdateDNS(c echo.Context) error {
	if err := s.updateDNS(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, fail(err))
	}
	return c.JSON(http.StatusOK, ok(nil))
}

func (s *Server) handleUpdateDHCP(c echo.Context) error {
	ctx := c.Request().Context()
	if err := s.updateDHCP(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, fail(err))
	}
	return c.JSON(http.StatusOK, ok(nil))
}

func (s *Server) handleUpdate(c echo.Context) error {
	ctx := c.Request().Context()
	if err := s.updateDNS(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, fail(err))
	}
	if err := s.updateDHCP(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, fail(err))
	}
	return c.JSON(http.StatusOK, ok(nil))
}

func (s *Server) updateDNS(ctx context.Context) error {
	set, err := s.Reconciler.LoadRecords()
	if err != nil {
		return err
	}
	return s.Reconciler.UpdateDNS(ctx, set)
}

func (s *Server) updateDHCP(ctx context.Context) error {
	if s.DHCP == nil {
		return nil
	}
	set, err := s.Reconciler.LoadRecords()
	if err != nil {
		return err
	}
	return s.DHCP.Update(ctx, set.All())
}
