package app

import "time"

// Ticker is the part of time.Ticker the countdown needs; tests substitute a manual one.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker wraps time.NewTicker.
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// countdown is the cancellable scheduled task owned by a running session.
// Every arm gets a new generation so a tick that was already in flight when
// the countdown was cancelled is recognised as stale and dropped.
type countdown struct {
	gen    uint64
	ticker Ticker
	stop   chan struct{}
}

func startCountdown(gen uint64, ticker Ticker, fire func(gen uint64)) *countdown {
	c := &countdown{
		gen:    gen,
		ticker: ticker,
		stop:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C():
				fire(gen)
			}
		}
	}()
	return c
}

// cancel never blocks; it may be called while the session lock is held.
func (c *countdown) cancel() {
	close(c.stop)
	c.ticker.Stop()
}
