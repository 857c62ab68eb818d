// Package diagnostics provides async audit logging of decide() outcomes,
// for forensic and compliance use. Grounded on the reference cartography project's
// internal/authz/audit.go: a buffered-channel async logger, a uuid per
// event, sampling for high-volume allow events, and always-log for
// denials.
package diagnostics

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/polkitgo/internal/logging"
)

// Event records one decide() call for audit purposes.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	ActionID  string    `json:"action_id"`
	UID       uint32    `json:"uid"`
	PID       int32     `json:"pid"`
	Result    string    `json:"result"`
	OneShot   bool      `json:"one_shot"`
	Duration  time.Duration `json:"duration_ns"`
}

// LoggerConfig configures the audit logger's buffering and sampling.
type LoggerConfig struct {
	Enabled       bool
	LogYes        bool
	LogNonYes     bool
	SampleRateYes float64 // fraction of Yes decisions logged; 1.0 logs all
	BufferSize    int
}

// DefaultLoggerConfig returns production-sensible defaults: log
// everything, no sampling.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Enabled:       true,
		LogYes:        true,
		LogNonYes:     true,
		SampleRateYes: 1.0,
		BufferSize:    1000,
	}
}

// Logger is the async audit event sink. Construct with NewLogger.
type Logger struct {
	config   LoggerConfig
	events   chan Event
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewLogger constructs and starts a Logger.
func NewLogger(config LoggerConfig) *Logger {
	if config.BufferSize <= 0 {
		config.BufferSize = 1000
	}
	if config.SampleRateYes <= 0 {
		config.SampleRateYes = 1.0
	}
	if config.SampleRateYes > 1.0 {
		config.SampleRateYes = 1.0
	}

	l := &Logger{
		config:   config,
		events:   make(chan Event, config.BufferSize),
		stopChan: make(chan struct{}),
	}
	if config.Enabled {
		l.wg.Add(1)
		go l.run()
	}
	return l
}

// LogDecision records a decide() outcome asynchronously and
// non-blockingly; the event is dropped (with a warning) if the buffer
// is full.
func (l *Logger) LogDecision(actionID string, uid uint32, pid int32, result string, oneShot bool, duration time.Duration) {
	if l == nil || !l.config.Enabled {
		return
	}

	isYes := result == "yes"
	if isYes {
		if !l.config.LogYes {
			return
		}
		if l.config.SampleRateYes < 1.0 {
			id := uuid.New()
			if float64(id[0])/256 >= l.config.SampleRateYes {
				return
			}
		}
	} else if !l.config.LogNonYes {
		return
	}

	event := Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		ActionID:  actionID,
		UID:       uid,
		PID:       pid,
		Result:    result,
		OneShot:   oneShot,
		Duration:  duration,
	}

	select {
	case l.events <- event:
	default:
		logging.Warn().Str("action_id", actionID).Uint32("uid", uid).Msg("audit log buffer full, event dropped")
	}
}

func (l *Logger) run() {
	defer l.wg.Done()
	for {
		select {
		case <-l.stopChan:
			l.drain()
			return
		case e := <-l.events:
			l.write(e)
		}
	}
}

func (l *Logger) drain() {
	for {
		select {
		case e := <-l.events:
			l.write(e)
		default:
			return
		}
	}
}

func (l *Logger) write(e Event) {
	logEvent := logging.Info().
		Str("event_type", "decision").
		Str("audit_id", e.ID).
		Time("audit_timestamp", e.Timestamp).
		Str("action_id", e.ActionID).
		Uint32("uid", e.UID).
		Int32("pid", e.PID).
		Str("result", e.Result).
		Bool("one_shot", e.OneShot).
		Dur("duration", e.Duration)

	if e.Result == "no" {
		logEvent.Msg("authorization denied")
		return
	}
	logEvent.Msg("authorization decided")
}

// Close stops the logger and flushes any buffered events.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()
}
