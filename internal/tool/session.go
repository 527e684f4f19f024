// Package tool implements the interactive draw and measure tools on top of
// a viewport. The construction rules live in Session, a pure value that
// the tools drive from pointer events.
package tool

import "github.com/jobrunner/geodraw/internal/domain"

// Outcome reports what an event did to a session.
type Outcome int

// Session outcomes.
const (
	OutcomeNone Outcome = iota
	OutcomeAppended
	OutcomeCompleted
)

var outcomeNames = map[Outcome]string{
	OutcomeNone:      "none",
	OutcomeAppended:  "appended",
	OutcomeCompleted: "completed",
}

// String returns the outcome name.
func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return "unknown"
}

// Session is the in-progress construction of one shape. Transitions return
// a new session and never alias the receiver's vertex slice.
type Session struct {
	Kind     domain.Kind
	Vertices []domain.WorldPosition
	Cursor   *domain.WorldPosition
}

// NewSession starts an empty session for kind.
func NewSession(kind domain.Kind) Session {
	return Session{Kind: kind}
}

// Click accepts a vertex.
func (s Session) Click(pos domain.WorldPosition) (Session, Outcome) {
	next := s.with(pos)
	switch s.Kind {
	case domain.KindPoint:
		return next, OutcomeCompleted
	case domain.KindCircle, domain.KindRectangle:
		if len(s.Vertices) == 0 {
			return next, OutcomeAppended
		}
		if s.Kind == domain.KindCircle && pos == s.Vertices[0] {
			// a circle needs a radius
			return s, OutcomeNone
		}
		// the anchor stays, the second click replaces any earlier edge
		next.Vertices = []domain.WorldPosition{s.Vertices[0], pos}
		return next, OutcomeCompleted
	default:
		return next, OutcomeAppended
	}
}

// DoubleClick completes a polygon or line that has enough vertices. The
// position only moves the cursor; it is not appended.
func (s Session) DoubleClick(pos domain.WorldPosition) (Session, Outcome) {
	s = s.Move(pos)
	return s.Finish()
}

// Move records the cursor position.
func (s Session) Move(pos domain.WorldPosition) Session {
	s.Cursor = &pos
	return s
}

// Finish completes a multi-vertex session when it has enough vertices.
func (s Session) Finish() (Session, Outcome) {
	switch s.Kind {
	case domain.KindLine, domain.KindPolygon:
		if s.CanComplete() {
			return s, OutcomeCompleted
		}
	}
	return s, OutcomeNone
}

// Cancel empties the session, keeping the kind.
func (s Session) Cancel() Session {
	return NewSession(s.Kind)
}

// Reset is Cancel under the name used after a completion.
func (s Session) Reset() Session {
	return s.Cancel()
}

// CanComplete reports whether the vertices satisfy the kind minimum.
func (s Session) CanComplete() bool {
	return s.Kind.Valid() && len(s.Vertices) >= s.Kind.MinVertices()
}

// AwaitingSecond reports whether a circle or rectangle has its anchor and
// waits for the second click.
func (s Session) AwaitingSecond() bool {
	return (s.Kind == domain.KindCircle || s.Kind == domain.KindRectangle) && len(s.Vertices) == 1
}

// Last returns the most recent vertex.
func (s Session) Last() (domain.WorldPosition, bool) {
	if len(s.Vertices) == 0 {
		return domain.WorldPosition{}, false
	}
	return s.Vertices[len(s.Vertices)-1], true
}

func (s Session) with(pos domain.WorldPosition) Session {
	vs := make([]domain.WorldPosition, len(s.Vertices), len(s.Vertices)+1)
	copy(vs, s.Vertices)
	s.Vertices = append(vs, pos)
	return s
}
