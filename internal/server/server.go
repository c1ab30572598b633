package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shinyyama/campusconnect/internal/auth"
	"github.com/shinyyama/campusconnect/internal/errs"
	"github.com/shinyyama/campusconnect/internal/handler"
	"github.com/shinyyama/campusconnect/internal/metrics"
	appmw "github.com/shinyyama/campusconnect/internal/middleware"
	"github.com/shinyyama/campusconnect/internal/realtime"
	"github.com/shinyyama/campusconnect/internal/reqctx"
	"github.com/shinyyama/campusconnect/internal/service"
)

// Deps is everything the HTTP surface needs. Directory and Metrics may be nil.
type Deps struct {
	Log            *slog.Logger
	Metrics        *metrics.Metrics
	Verifier       auth.Verifier
	Directory      auth.Directory
	Gateway        *realtime.Gateway
	Conversations  service.ConversationService
	Notifications  service.NotificationService
	Announcements  service.AnnouncementService
	Unread         service.UnreadService
	AllowedOrigins []string
	InternalToken  string
	// Ready reports store health for /healthz.
	Ready func(ctx context.Context) error
}

type Server struct {
	e   *echo.Echo
	log *slog.Logger
}

func New(d Deps, sha, buildTime string) *Server {
	log := d.Log.With("component", "http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(log)
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(propagateRequestID)
	e.Use(requestLogger(log))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc:  originAllowed(d.AllowedOrigins),
	}))

	convHandler := handler.NewConversationHandler(d.Conversations, d.Unread)
	notifHandler := handler.NewNotificationHandler(d.Notifications, d.Unread)
	annHandler := handler.NewAnnouncementHandler(d.Announcements)
	authMw := appmw.NewAuthMiddleware(d.Verifier)

	e.GET("/healthz", func(c echo.Context) error {
		body := map[string]string{
			"ok":         "true",
			"git_sha":    sha,
			"build_time": buildTime,
		}
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				body["ok"] = "false"
				return c.JSON(http.StatusServiceUnavailable, body)
			}
		}
		return c.JSON(http.StatusOK, body)
	})
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}
	if d.Gateway != nil {
		e.GET("/ws", d.Gateway.Handle)
	}

	api := e.Group("/api")
	api.POST("/internal/notifications", notifHandler.Intake, appmw.RequireInternal(d.InternalToken))

	user := api.Group("", authMw.RequireAuth)
	user.GET("/conversations", convHandler.List)
	user.GET("/conversations/with/:userId", convHandler.StartWith)
	user.GET("/conversations/:id", convHandler.Get)
	user.GET("/conversations/:id/messages", convHandler.ListMessages)
	user.PUT("/conversations/:id/read", convHandler.MarkRead)
	user.POST("/messages", convHandler.SendMessage)
	user.GET("/messages/unread-count", convHandler.UnreadCount)

	user.GET("/notifications", notifHandler.List)
	user.GET("/notifications/unread-count", notifHandler.UnreadCount)
	user.PUT("/notifications/read-all", notifHandler.MarkAllRead)
	user.PUT("/notifications/:id/read", notifHandler.MarkRead)
	user.DELETE("/notifications/:id", notifHandler.Delete)
	user.GET("/unread", notifHandler.Summary)

	user.GET("/announcements", annHandler.List)
	user.POST("/announcements", annHandler.Create)
	user.GET("/announcements/:id", annHandler.Get)
	user.PUT("/announcements/:id/read", annHandler.MarkRead)

	if d.Directory != nil {
		api.GET("/users/:uid/public", handler.NewUserHandler(d.Directory).GetPublic)
	}

	return &Server{e: e, log: log}
}

func (s *Server) Start(addr string) error {
	s.log.Info("listening", "addr", addr)
	err := s.e.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// Handler exposes the router for httptest.
func (s *Server) Handler() http.Handler {
	return s.e
}

func propagateRequestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if rid := c.Response().Header().Get(echo.HeaderXRequestID); rid != "" {
			c.SetRequest(c.Request().WithContext(reqctx.WithRID(c.Request().Context(), rid)))
		}
		return next(c)
	}
}

func requestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURIPath:  true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			lvl := slog.LevelInfo
			switch {
			case v.Status >= 500:
				lvl = slog.LevelError
			case v.Status >= 400:
				lvl = slog.LevelWarn
			}
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("path", v.URIPath),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("err", v.Error.Error()))
			}
			reqctx.Logger(c.Request().Context(), log).LogAttrs(c.Request().Context(), lvl, "http request", attrs...)
			return nil
		},
	})
}

// errorHandler renders every error in the {"error":{"code","message"}} shape.
func errorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := errs.ToHTTP(err)
		body := handler.NewErrorResponse(errs.Code(err), errs.Message(err))

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			body = handler.NewErrorResponse(codeForStatus(he.Code), fmt.Sprint(he.Message))
		}
		if status >= 500 {
			reqctx.Logger(c.Request().Context(), log).Error("request failed", "err", err)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Debug("write error response", "err", err)
		}
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusTooManyRequests:
		return "too_many_requests"
	}
	if status >= 500 {
		return "internal_error"
	}
	return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}

// originAllowed accepts the configured origins; with none configured it
// falls back to local development hosts.
func originAllowed(allowed []string) func(string) (bool, error) {
	return func(origin string) (bool, error) {
		u, err := url.Parse(origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return false, nil
		}
		if len(allowed) == 0 {
			host := u.Hostname()
			return host == "localhost" || host == "127.0.0.1", nil
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(strings.TrimSuffix(a, "/"), u.Scheme+"://"+u.Host) {
				return true, nil
			}
		}
		return false, nil
	}
}
