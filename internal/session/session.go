// Package session persists research runs as an append-only event log in
// SQLite. A session's state is never stored directly: it is rebuilt by
// replaying the log, which is what makes interrupted runs resumable.
package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"scry/internal/research"
)

// Workflow phases, in order.
const (
	PhasePlanning  = "planning"
	PhaseCritique  = "critique"
	PhaseSearching = "searching"
	PhaseSynthesis = "synthesis"
	PhaseDone      = "done"
)

// Event types appended by the orchestrator.
const (
	EventSessionStarted   = "session_started"
	EventPlanCreated      = "plan_created"
	EventPlanCritiqued    = "plan_critiqued"
	EventPlanApproved     = "plan_approved"
	EventTaskCompleted    = "task_completed"
	EventSynthesisStarted = "synthesis_started"
	EventReportCreated    = "report_created"
	EventSessionDone      = "session_done"
)

// Event is one row of the session log.
type Event struct {
	Seq       int64           `json:"seq"`
	SessionID string          `json:"session_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Event payloads.
type (
	StartedPayload struct {
		Topic string `json:"topic"`
		Depth string `json:"depth"`
	}

	PlanPayload struct {
		Plan research.Plan `json:"plan"`
	}

	CritiquePayload struct {
		Round    int     `json:"round"`
		Score    float64 `json:"score"`
		Approved bool    `json:"approved"`
	}

	TaskPayload struct {
		Finding research.TaskFinding `json:"finding"`
	}

	ReportPayload struct {
		Report research.Report `json:"report"`
		Path   string          `json:"path,omitempty"`
	}
)

// DeterministicID derives the session ID from a user-chosen name, so
// running with the same --session name resumes the same session.
func DeterministicID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(name)).String()
}

// NewID returns a random session ID for unnamed runs.
func NewID() string {
	return uuid.NewString()
}

// State is a session's current position in the workflow, rebuilt from its
// event log.
type State struct {
	ID             string
	Topic          string
	Depth          string
	Phase          string
	Plan           *research.Plan
	CritiqueRounds int
	Findings       map[string]research.TaskFinding
	Report         *research.Report
	ReportPath     string
	StartedAt      time.Time
	UpdatedAt      time.Time
}

// Replay folds an ordered event log into a State. It is a pure function of
// the log: replaying the same events always yields the same state.
func Replay(events []Event) (*State, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("session: no events to replay")
	}

	st := &State{
		ID:       events[0].SessionID,
		Phase:    PhasePlanning,
		Findings: make(map[string]research.TaskFinding),
	}

	for _, ev := range events {
		if ev.SessionID != st.ID {
			return nil, fmt.Errorf("session: event %d belongs to session %s, replaying %s", ev.Seq, ev.SessionID, st.ID)
		}
		if st.StartedAt.IsZero() {
			st.StartedAt = ev.CreatedAt
		}
		st.UpdatedAt = ev.CreatedAt

		switch ev.Type {
		case EventSessionStarted:
			var p StartedPayload
			if err := decode(ev, &p); err != nil {
				return nil, err
			}
			st.Topic = p.Topic
			st.Depth = p.Depth
			st.Phase = PhasePlanning

		case EventPlanCreated:
			var p PlanPayload
			if err := decode(ev, &p); err != nil {
				return nil, err
			}
			plan := p.Plan
			st.Plan = &plan
			st.Phase = PhaseCritique

		case EventPlanCritiqued:
			var p CritiquePayload
			if err := decode(ev, &p); err != nil {
				return nil, err
			}
			st.CritiqueRounds = p.Round + 1
			st.Phase = PhaseCritique

		case EventPlanApproved:
			var p PlanPayload
			if err := decode(ev, &p); err != nil {
				return nil, err
			}
			plan := p.Plan
			st.Plan = &plan
			st.Phase = PhaseSearching

		case EventTaskCompleted:
			var p TaskPayload
			if err := decode(ev, &p); err != nil {
				return nil, err
			}
			st.Findings[p.Finding.TaskID] = p.Finding
			if st.Plan != nil {
				for i := range st.Plan.Tasks {
					if st.Plan.Tasks[i].ID == p.Finding.TaskID {
						st.Plan.Tasks[i].Status = research.StatusDone
					}
				}
			}
			st.Phase = PhaseSearching

		case EventSynthesisStarted:
			st.Phase = PhaseSynthesis

		case EventReportCreated:
			var p ReportPayload
			if err := decode(ev, &p); err != nil {
				return nil, err
			}
			report := p.Report
			st.Report = &report
			st.ReportPath = p.Path
			st.Phase = PhaseSynthesis

		case EventSessionDone:
			st.Phase = PhaseDone

		default:
			// Unknown events are skipped so old logs stay replayable
			// after the schema grows.
		}
	}
	return st, nil
}

func decode(ev Event, out any) error {
	if err := json.Unmarshal(ev.Payload, out); err != nil {
		return fmt.Errorf("session: decode %s event %d: %w", ev.Type, ev.Seq, err)
	}
	return nil
}
