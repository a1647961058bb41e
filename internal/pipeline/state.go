package pipeline

import (
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/xlsx2parquet/pkg/errors"
)

// State is a stage of a conversion run
type State string

const (
	StateIdle         State = "idle"
	StateReading      State = "reading"
	StateAccumulating State = "accumulating"
	StateAssembling   State = "assembling"
	StateWriting      State = "writing"
	StateSucceeded    State = "succeeded"
	StateFailed       State = "failed"
)

// rank orders the forward progression of a run. Failed has no rank: it is
// reachable from every non-terminal state.
var rank = map[State]int{
	StateIdle:         0,
	StateReading:      1,
	StateAccumulating: 2,
	StateAssembling:   3,
	StateWriting:      4,
	StateSucceeded:    5,
}

// IsTerminal reports whether no transition leaves s
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Transition is one recorded state change
type Transition struct {
	From      State     `json:"from"`
	To        State     `json:"to"`
	At        time.Time `json:"at"`
	ErrorType string    `json:"error_type,omitempty"`
}

// stateMachine enforces that a run only moves forward. A stage may be
// skipped (the stream strategy never assembles) but never revisited.
type stateMachine struct {
	state   State
	history []Transition
	logger  *zap.Logger
}

func newStateMachine(logger *zap.Logger) *stateMachine {
	return &stateMachine{state: StateIdle, logger: logger}
}

func (m *stateMachine) current() State { return m.state }

// advance moves to the forward state to
func (m *stateMachine) advance(to State) error {
	if m.state.IsTerminal() {
		return errors.Newf(errors.ErrorTypeInternal, "run already %s", m.state)
	}
	next, ok := rank[to]
	if !ok || next <= rank[m.state] {
		return errors.Newf(errors.ErrorTypeInternal, "invalid transition %s -> %s", m.state, to)
	}
	m.record(to, "")
	return nil
}

// fail moves to Failed with err's type. It is a no-op once terminal.
func (m *stateMachine) fail(err error) {
	if m.state.IsTerminal() {
		return
	}
	m.record(StateFailed, string(errors.TypeOf(err)))
}

func (m *stateMachine) record(to State, errType string) {
	t := Transition{From: m.state, To: to, At: time.Now(), ErrorType: errType}
	m.history = append(m.history, t)
	m.state = to

	fields := []zap.Field{zap.String("from", string(t.From)), zap.String("to", string(t.To))}
	if errType != "" {
		fields = append(fields, zap.String("error_type", errType))
	}
	m.logger.Debug("state transition", fields...)
}
