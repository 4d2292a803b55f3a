package ups

// Input is everything the engine sees for one poll. Reading is nil
// when the sample was rejected; AC status is read independently of the
// fuel gauge, so it stays meaningful even when Reading is nil.
type Input struct {
	AC      ACStatus
	Reading *Reading
}

// Decision is the engine's observable output for one poll. Shutdown is
// the only actionable field; the rest are reason flags and edges the
// caller uses for logging.
type Decision struct {
	// Shutdown is true when the critical condition has been confirmed
	// the configured number of times. Act on it exactly once.
	Shutdown bool

	// CapacityLow and VoltageLow say which threshold tripped this
	// poll. Capacity takes priority when both are under.
	CapacityLow bool
	VoltageLow  bool

	// ACLostEdge fires on the first poll of an AC loss streak,
	// ACRestoredEdge on the poll that ends one. Both fire at most once
	// per transition so callers can log proportionally to changes.
	ACLostEdge     bool
	ACRestoredEdge bool

	// Streak counters after this poll's update, for status rendering.
	ACLossStreak   int
	CriticalStreak int
}

// Engine is the debounce state machine. It owns the two consecutive
// observation counters and nothing else; it never fails and never
// performs I/O. State always starts at zero on process start, a
// restart deliberately forgets any in-progress confirmation.
type Engine struct {
	cfg            Config
	acLossStreak   int
	criticalStreak int
}

// NewEngine returns an engine with both streaks at zero. cfg must have
// passed Validate.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Step advances the state machine by one poll.
//
// A nil reading can never confirm a critical condition, but AC loss
// tracking runs on its own branch regardless of sensor validity: a
// glitching fuel gauge must not hide a dying battery forever, and must
// equally not shut the host down on garbage.
func (e *Engine) Step(in Input) Decision {
	var d Decision

	if in.Reading == nil {
		e.criticalStreak = 0
	}

	switch in.AC {
	case ACOffline:
		e.acLossStreak++
		d.ACLostEdge = e.acLossStreak == 1
	case ACOnline:
		// Power is back, stand down: an in-progress critical
		// confirmation is cancelled too.
		d.ACRestoredEdge = e.acLossStreak > 0
		e.acLossStreak = 0
		e.criticalStreak = 0
	default:
		// AC sensing disabled. The shutdown path is unreachable in
		// this mode.
		e.acLossStreak = 0
		e.criticalStreak = 0
	}

	trip := false
	if in.AC == ACOffline && e.acLossStreak >= e.cfg.ACLossConfirmations && in.Reading != nil {
		if in.Reading.Capacity < e.cfg.MinCapacityShutdown {
			trip = true
			d.CapacityLow = true
		} else if in.Reading.Voltage < e.cfg.MinVoltageShutdown {
			trip = true
			d.VoltageLow = true
		}
	}
	if trip {
		e.criticalStreak++
	} else {
		e.criticalStreak = 0
	}

	d.Shutdown = e.criticalStreak >= e.cfg.ShutdownConfirmations
	d.ACLossStreak = e.acLossStreak
	d.CriticalStreak = e.criticalStreak
	return d
}

// Reset zeroes both streaks. Called after a shutdown has been issued
// so the cooldown window does not immediately re-trigger.
func (e *Engine) Reset() {
	e.acLossStreak = 0
	e.criticalStreak = 0
}
