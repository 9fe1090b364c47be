package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"SweepLab/internal/domain/models"
	"SweepLab/internal/domain/service"
	apimetrics "SweepLab/internal/service/metrics"
	xhttp "SweepLab/pkg/http"
	xlogger "SweepLab/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// SweepsEchoHandler exposes sweep jobs over HTTP.
type SweepsEchoHandler struct {
	logger *xlogger.Logger
	jobs   service.SweepJobs
}

func NewSweepsEchoHandler(logger *xlogger.Logger, jobs service.SweepJobs) *SweepsEchoHandler {
	return &SweepsEchoHandler{logger: logger, jobs: jobs}
}

func (h *SweepsEchoHandler) RegisterRoutes(root *echo.Group) {
	g := root.Group("/api/sweeps")
	g.POST("", h.Submit)
	g.GET("/:id", h.Status)
	g.GET("/:id/results", h.Results)
	g.DELETE("/:id", h.Cancel)
	g.GET("/:id/stream", h.Stream)
}

// ResultsQuery pages through a job's results.
type ResultsQuery struct {
	Offset int `query:"offset" validate:"gte=0"`
	Limit  int `query:"limit" default:"1000" validate:"gte=1,lte=100000"`
}

func (h *SweepsEchoHandler) Submit(c echo.Context) error {
	defer observe("submit", time.Now())
	req := &models.SweepRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		apimetrics.APIErrors.WithLabelValues("submit").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}
	id, err := h.jobs.Submit(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "submit", err)
	}
	view, err := h.jobs.Get(id)
	if err != nil {
		return h.fail(c, "submit", err)
	}
	return xhttp.AcceptedResponse(c, "/api/sweeps/"+id, view)
}

func (h *SweepsEchoHandler) Status(c echo.Context) error {
	defer observe("status", time.Now())
	view, err := h.jobs.Get(c.Param("id"))
	if err != nil {
		return h.fail(c, "status", err)
	}
	return xhttp.SuccessResponse(c, view)
}

func (h *SweepsEchoHandler) Results(c echo.Context) error {
	defer observe("results", time.Now())
	q := &ResultsQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, q); verr != nil {
		apimetrics.APIErrors.WithLabelValues("results").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}
	results, err := h.jobs.Results(c.Param("id"))
	if err != nil {
		return h.fail(c, "results", err)
	}
	lo := min(q.Offset, len(results))
	hi := min(lo+q.Limit, len(results))
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=300")
	return xhttp.PageResponse(c, xhttp.NewPage(results[lo:hi], int64(len(results)), lo, q.Limit))
}

func (h *SweepsEchoHandler) Cancel(c echo.Context) error {
	defer observe("cancel", time.Now())
	id := c.Param("id")
	if err := h.jobs.Cancel(id); err != nil {
		return h.fail(c, "cancel", err)
	}
	view, err := h.jobs.Get(id)
	if err != nil {
		return h.fail(c, "cancel", err)
	}
	return xhttp.AcceptedResponse(c, "", view)
}

// Stream upgrades to a websocket and pushes a JobView at every progress
// stride, then a final view, then a close frame.
func (h *SweepsEchoHandler) Stream(c echo.Context) error {
	id := c.Param("id")
	updates, unsubscribe, err := h.jobs.Subscribe(id)
	if err != nil {
		return h.fail(c, "stream", err)
	}
	defer unsubscribe()

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.String("run_id", id), xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	// The read loop only exists to observe pongs and the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case view, ok := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished"))
				return nil
			}
			if err := conn.WriteJSON(view); err != nil {
				h.logger.Debug("websocket write failed", xlogger.String("run_id", id), xlogger.Error(err))
				return nil
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-gone:
			return nil
		}
	}
}

func (h *SweepsEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	apimetrics.APIErrors.WithLabelValues(endpoint).Inc()
	appErr := mapError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error("sweep api error", xlogger.String("endpoint", endpoint), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func mapError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, models.ErrJobNotFound):
		return xhttp.NotFoundError("sweep job not found").WithError(err)
	case errors.Is(err, models.ErrInvalidRequest):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrJobNotFinished):
		return xhttp.ConflictError("sweep job has not finished").WithError(err).WithRetryAfter(5 * time.Second)
	case errors.Is(err, context.Canceled):
		return xhttp.ConflictError("sweep job was cancelled").WithError(err)
	case errors.Is(err, models.ErrSweepInProgress):
		return xhttp.ConflictError(err.Error()).WithError(err).WithRetryAfter(30 * time.Second)
	case errors.Is(err, models.ErrNoResults), errors.Is(err, models.ErrEmptySeries):
		return xhttp.UnprocessableError(err.Error()).WithError(err)
	default:
		return xhttp.InternalError(err.Error()).WithError(err)
	}
}

func observe(endpoint string, start time.Time) {
	apimetrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
