package domain

import "time"

// TicketClass enumerates the iTop ticket classes the report reads.
type TicketClass string

const (
	TicketClassUserRequest TicketClass = "UserRequest"
	TicketClassIncident    TicketClass = "Incident"
	TicketClassChange      TicketClass = "Change"
	TicketClassProblem     TicketClass = "Problem"
)

// ReportedClasses lists the classes that take part in statistics, in display order.
var ReportedClasses = []TicketClass{TicketClassUserRequest, TicketClassIncident, TicketClassChange}

// Label returns the human readable class name.
func (c TicketClass) Label() string {
	switch c {
	case TicketClassUserRequest:
		return "Service request"
	case TicketClassIncident:
		return "Incident"
	case TicketClassChange:
		return "Change"
	case TicketClassProblem:
		return "Problem"
	}
	return string(c)
}

// Rank orders classes for tables: requests, incidents, changes, anything else.
func (c TicketClass) Rank() int {
	for i, rc := range ReportedClasses {
		if rc == c {
			return i
		}
	}
	return len(ReportedClasses)
}

// HasSLA reports whether tickets of the class carry response/resolution SLA markers.
func (c TicketClass) HasSLA() bool {
	return c == TicketClassUserRequest || c == TicketClassIncident
}

// TicketStatus is the iTop lifecycle state of a ticket.
type TicketStatus string

const (
	TicketStatusNew      TicketStatus = "new"
	TicketStatusAssigned TicketStatus = "assigned"
	TicketStatusResolved TicketStatus = "resolved"
	TicketStatusClosed   TicketStatus = "closed"
)

// IsNew reports whether the ticket is still in intake.
func (s TicketStatus) IsNew() bool { return s == TicketStatusNew }

// Resolved reports membership of the resolved bucket (resolved or closed).
func (s TicketStatus) Resolved() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// Closed reports membership of the closed bucket.
func (s TicketStatus) Closed() bool { return s == TicketStatusClosed }

// Unresolved reports membership of the unresolved bucket: any working state.
func (s TicketStatus) Unresolved() bool {
	return !s.IsNew() && !s.Resolved()
}

// SLAMarkers carries the SLA timestamps and flags of a request or incident.
// Flags, deadlines and overruns are the ones of the configured SLA threshold.
type SLAMarkers struct {
	ResponseStarted    *time.Time
	ResponseStopped    *time.Time
	ResolutionStopped  *time.Time
	AssignmentDate     *time.Time
	ResolutionDate     *time.Time
	ResponseDeadline   *time.Time
	ResolutionDeadline *time.Time
	ResponsePassed     bool
	ResolutionPassed   bool
	ResponseOverrun    *int64
	ResolutionOverrun  *int64
}

// Breached reports whether either SLA flag is set.
func (m SLAMarkers) Breached() bool {
	return m.ResponsePassed || m.ResolutionPassed
}

// TicketRecord is one ticket row as read from the ticket store, names already resolved.
type TicketRecord struct {
	ID         int64
	Ref        string
	Title      string
	Class      TicketClass
	Status     TicketStatus
	StartDate  time.Time
	EndDate    *time.Time
	LastUpdate *time.Time
	Team       string
	Agent      string
	Caller     string
	Service    string
	SubService string
	SLA        SLAMarkers
}

// InScope applies the exclusion rules shared by every rollup.
func (t TicketRecord) InScope(p Period) bool {
	return t.Class != TicketClassProblem && !t.Status.IsNew() && p.Contains(t.StartDate)
}

// Month returns the grouping key of the ticket: the calendar month of its start date.
func (t TicketRecord) Month() string {
	return t.StartDate.Format(MonthLayout)
}

// ResponseSeconds is the time between response start and stop, if both are known.
// Changes have no response phase.
func (t TicketRecord) ResponseSeconds() (int64, bool) {
	if !t.Class.HasSLA() {
		return 0, false
	}
	return secondsBetween(t.SLA.ResponseStarted, t.SLA.ResponseStopped)
}

// ResolutionSeconds is response stop to resolution stop for requests and incidents,
// ticket start to ticket end for changes.
func (t TicketRecord) ResolutionSeconds() (int64, bool) {
	if t.Class == TicketClassChange {
		start := t.StartDate
		return secondsBetween(&start, t.EndDate)
	}
	return secondsBetween(t.SLA.ResponseStopped, t.SLA.ResolutionStopped)
}

func secondsBetween(from, to *time.Time) (int64, bool) {
	if from == nil || to == nil {
		return 0, false
	}
	return int64(to.Sub(*from) / time.Second), true
}
