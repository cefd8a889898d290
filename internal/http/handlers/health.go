package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/speakup/internal/observability"
)

// PingFunc reports whether a dependency is reachable.
type PingFunc func(ctx context.Context) error

// MailHealth is implemented by the protected mail sender.
type MailHealth interface {
	State() string
	Stats() observability.MailStatsSnapshot
}

type HealthHandler struct {
	checks       map[string]PingFunc
	mail         MailHealth
	timeout      time.Duration
	shuttingDown atomic.Bool
}

// create a new instance of the health handler
func NewHealthHandler(checks map[string]PingFunc, mail MailHealth) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		mail:    mail,
		timeout: time.Second,
	}
}

// MarkShuttingDown makes readiness fail so load balancers drain the instance.
func (h *HealthHandler) MarkShuttingDown() {
	h.shuttingDown.Store(true)
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.shuttingDown.Load() {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
		return
	}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))

	for _, name := range names {
		pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
		err := h.checks[name](pingCtx)
		cancel()

		if err != nil {
			status = http.StatusServiceUnavailable
			results[name] = "down"
			continue
		}
		results[name] = "up"
	}

	body := gin.H{"checks": results}
	if status == http.StatusOK {
		body["status"] = "ready"
	} else {
		body["status"] = "not_ready"
	}

	// an open mail circuit degrades registration but the API keeps serving
	if h.mail != nil {
		body["mail"] = gin.H{
			"circuit": h.mail.State(),
			"stats":   h.mail.Stats(),
		}
	}

	ctx.JSON(status, body)
}
