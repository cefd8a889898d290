package notifications

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/geocoder89/speakup/internal/observability"
)

var ErrCircuitOpen = errors.New("circuit breaker open")

type breakerState string

const (
	stateClosed   breakerState = "closed"
	stateOpen     breakerState = "open"
	stateHalfOpen breakerState = "half_open"
)

type ProtectedSenderConfig struct {
	Timeout          time.Duration // hard timeout per send
	FailureThreshold int           // consecutive failures to open circuit
	Cooldown         time.Duration // how long to stay open before half-open
	HalfOpenMaxCalls int           // allow N trial calls in half-open
}

// ProtectedSender bounds each send with a timeout and stops calling a failing
// provider until the cooldown has passed.
type ProtectedSender struct {
	inner Sender
	cfg   ProtectedSenderConfig
	stats *observability.MailStats
	now   func() time.Time

	mu    sync.Mutex
	state breakerState

	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    int
}

func NewProtectedSender(inner Sender, cfg ProtectedSenderConfig, stats *observability.MailStats) *ProtectedSender {
	//defaults
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}
	if stats == nil {
		stats = observability.NewMailStats()
	}

	return &ProtectedSender{
		inner: inner,
		cfg:   cfg,
		stats: stats,
		now:   time.Now,
		state: stateClosed,
	}
}

func (p *ProtectedSender) Send(ctx context.Context, email Email) error {
	// fail-fast gate
	if !p.allowRequest() {
		p.stats.IncRejected()
		return ErrCircuitOpen
	}

	sendCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	start := p.now()
	err := p.inner.Send(sendCtx, email)
	p.stats.ObserveDuration(p.now().Sub(start))

	if err != nil {
		p.stats.IncFailed()
	} else {
		p.stats.IncSent()
	}

	p.afterRequest(err)

	return err
}

// State reports the breaker state for health output.
func (p *ProtectedSender) State() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return string(p.state)
}

func (p *ProtectedSender) Stats() observability.MailStatsSnapshot {
	return p.stats.Snapshot()
}

func (p *ProtectedSender) allowRequest() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case stateClosed:
		return true
	case stateOpen:
		if p.now().Sub(p.openedAt) < p.cfg.Cooldown {
			return false
		}
		p.state = stateHalfOpen
		p.halfOpenInFlight = 1
		return true
	case stateHalfOpen:
		if p.halfOpenInFlight >= p.cfg.HalfOpenMaxCalls {
			return false
		}
		p.halfOpenInFlight++
		return true
	default:
		return true
	}
}

func (p *ProtectedSender) afterRequest(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// half-open call just finished
	if p.state == stateHalfOpen && p.halfOpenInFlight > 0 {
		p.halfOpenInFlight--
	}

	if err == nil {
		p.consecutiveFailures = 0
		p.state = stateClosed
		return
	}

	p.consecutiveFailures++

	// if half-open failed, reopen immediately
	if p.state == stateHalfOpen {
		p.state = stateOpen
		p.openedAt = p.now()
		return
	}

	if p.consecutiveFailures >= p.cfg.FailureThreshold {
		p.state = stateOpen
		p.openedAt = p.now()
	}
}
