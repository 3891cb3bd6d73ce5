package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// NotificationRetrier lo implementa OrderService de cada tenant.
type NotificationRetrier interface {
	Tenant() string
	RetryNotifications(ctx context.Context) (sent, failed int, err error)
}

// Sweeper reintenta confirmaciones pendientes a lo sumo una vez por intervalo.
// Lo dispara el tráfico entrante (Trigger); no hay scheduler propio.
type Sweeper struct {
	targets  []NotificationRetrier
	interval time.Duration
	timeout  time.Duration

	lastRun atomic.Int64 // unix nanos del último disparo
	running atomic.Bool
	wg      sync.WaitGroup

	now func() time.Time
}

func NewSweeper(interval, timeout time.Duration, targets ...NotificationRetrier) *Sweeper {
	if timeout <= 0 {
		timeout = interval
	}
	return &Sweeper{targets: targets, interval: interval, timeout: timeout, now: time.Now}
}

// Add registra tenants; sólo antes de empezar a servir.
func (s *Sweeper) Add(targets ...NotificationRetrier) {
	s.targets = append(s.targets, targets...)
}

// Trigger lanza un barrido en segundo plano si pasó el intervalo. El CAS
// sobre lastRun garantiza que entre requests concurrentes gane uno solo.
func (s *Sweeper) Trigger() bool {
	now := s.now().UnixNano()
	last := s.lastRun.Load()
	if last != 0 && now-last < int64(s.interval) {
		return false
	}
	if s.running.Load() {
		return false
	}
	if !s.lastRun.CompareAndSwap(last, now) {
		return false
	}
	// el anterior todavía corre
	if !s.running.CompareAndSwap(false, true) {
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.Run(ctx)
	}()
	return true
}

// Run barre todos los tenants en forma sincrónica.
func (s *Sweeper) Run(ctx context.Context) {
	for _, t := range s.targets {
		sent, failed, err := t.RetryNotifications(ctx)
		if err != nil {
			log.Error().Err(err).Str("tenant", t.Tenant()).Msg("barrido de notificaciones interrumpido")
			continue
		}
		if sent+failed > 0 {
			log.Info().Str("tenant", t.Tenant()).Int("sent", sent).Int("failed", failed).Msg("barrido de notificaciones")
		}
	}
}

// Wait espera al barrido en curso (shutdown).
func (s *Sweeper) Wait() {
	s.wg.Wait()
}
