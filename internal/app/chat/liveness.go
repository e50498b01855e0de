package chat

import (
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"dmchat/internal/pkg/clock"
)

const (
	// DefaultPingInterval is the delay between a pong (or admission) and the next probe.
	DefaultPingInterval = 5 * time.Second

	// DefaultPongTimeout is how long a probe may go unanswered.
	DefaultPongTimeout = 1 * time.Second
)

// State is the liveness state of a connection.
type State int

const (
	StateAlive State = iota
	StateProbing
	StateDead
)

func (s State) String() string {
	switch s {
	case StateAlive:
		return "alive"
	case StateProbing:
		return "probing"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// Monitor drives the ping/pong state machine of one connection.
//
// Each probe increments a generation counter that travels as the ping payload.
// A pong only counts when it carries the current generation and the monitor is
// still probing, so a pong racing the timeout can never revive a dead connection.
type Monitor struct {
	mu sync.Mutex

	clock    clock.Clock
	interval time.Duration
	timeout  time.Duration

	ping   func(payload []byte) error
	onDead func()

	state      State
	gen        uint64
	started    bool
	timer      clock.Timer
	lastPongAt time.Time

	logger zerolog.Logger
}

// NewMonitor returns a monitor that probes with ping and calls onDead once on timeout.
func NewMonitor(clk clock.Clock, interval, timeout time.Duration, ping func([]byte) error, onDead func(), logger zerolog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultPingInterval
	}
	if timeout <= 0 {
		timeout = DefaultPongTimeout
	}

	return &Monitor{
		clock:      clk,
		interval:   interval,
		timeout:    timeout,
		ping:       ping,
		onDead:     onDead,
		state:      StateAlive,
		lastPongAt: clk.Now(),
		logger:     logger,
	}
}

// Start schedules the first probe. Subsequent calls are no-ops.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started || m.state == StateDead {
		return
	}
	m.started = true
	m.timer = m.clock.AfterFunc(m.interval, m.probe)
}

func (m *Monitor) probe() {
	m.mu.Lock()
	if m.state != StateAlive {
		m.mu.Unlock()
		return
	}

	m.gen++
	gen := m.gen
	m.state = StateProbing
	m.timer = m.clock.AfterFunc(m.timeout, func() { m.expire(gen) })
	m.mu.Unlock()

	if err := m.ping([]byte(strconv.FormatUint(gen, 10))); err != nil {
		m.logger.Info().Err(err).Msg("Ping write failed")
		m.expire(gen)
	}
}

func (m *Monitor) expire(gen uint64) {
	m.mu.Lock()
	if m.state != StateProbing || m.gen != gen {
		m.mu.Unlock()
		return
	}

	m.state = StateDead
	if m.timer != nil {
		m.timer.Stop()
	}
	m.mu.Unlock()

	m.logger.Info().Uint64("generation", gen).Msg("Pong timeout, connection is dead")
	m.onDead()
}

// Pong records a pong for generation gen. It returns false for stale or
// unsolicited pongs, which change nothing.
func (m *Monitor) Pong(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateProbing || gen != m.gen {
		return false
	}

	if m.timer != nil {
		m.timer.Stop()
	}
	m.state = StateAlive
	m.lastPongAt = m.clock.Now()
	m.timer = m.clock.AfterFunc(m.interval, m.probe)

	return true
}

// Stop cancels all timers and makes the monitor terminal without calling onDead.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateDead {
		return
	}
	m.state = StateDead
	if m.timer != nil {
		m.timer.Stop()
	}
}

// State returns the current state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Generation returns the generation of the latest probe.
func (m *Monitor) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// LastPongAt returns when the last valid pong arrived, or the creation time.
func (m *Monitor) LastPongAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPongAt
}
