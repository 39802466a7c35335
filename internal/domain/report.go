package domain

import "time"

// TicketSummary counts in-scope tickets per class.
type TicketSummary struct {
	Total     int `json:"total"`
	Requests  int `json:"requests"`
	Incidents int `json:"incidents"`
	Changes   int `json:"changes"`
}

// StatusBreakdown splits the tickets of one class into status buckets.
// Total always equals Resolved + Unresolved, and Closed never exceeds Resolved.
type StatusBreakdown struct {
	Class      TicketClass `json:"class"`
	Total      int         `json:"total"`
	Resolved   int         `json:"resolved"`
	Closed     int         `json:"closed"`
	Unresolved int         `json:"unresolved"`
}

// Empty reports a period without activity for the class.
func (b StatusBreakdown) Empty() bool { return b.Total == 0 }

// ResolvedRate is resolved over total.
func (b StatusBreakdown) ResolvedRate() Rate { return NewRate(b.Resolved, b.Total) }

// ClosedOfResolvedRate is closed over resolved.
func (b StatusBreakdown) ClosedOfResolvedRate() Rate { return NewRate(b.Closed, b.Resolved) }

// UnresolvedRate is unresolved over total.
func (b StatusBreakdown) UnresolvedRate() Rate { return NewRate(b.Unresolved, b.Total) }

// ClosedRate is closed over total, used for changes.
func (b StatusBreakdown) ClosedRate() Rate { return NewRate(b.Closed, b.Total) }

// ResolvedOfClosedRate is resolved over closed, used for changes.
func (b StatusBreakdown) ResolvedOfClosedRate() Rate { return NewRate(b.Resolved, b.Closed) }

// GroupTimeStat is one (month, group, class) row of the team or agent rollup.
type GroupTimeStat struct {
	Month         string      `json:"month"`
	Group         string      `json:"group"`
	Class         TicketClass `json:"class"`
	Count         int         `json:"count"`
	Resolved      int         `json:"resolved"`
	Unresolved    int         `json:"unresolved"`
	Overdue       int         `json:"overdue"`
	AvgResponse   Minutes     `json:"avg_response"`
	AvgResolution Minutes     `json:"avg_resolution"`
	MaxResponse   Minutes     `json:"max_response"`
	MaxResolution Minutes     `json:"max_resolution"`
}

// ResolutionRate is (count - unresolved) over count.
func (g GroupTimeStat) ResolutionRate() Rate { return NewRate(g.Count-g.Unresolved, g.Count) }

// TimelinessRate is (count - overdue) over count.
func (g GroupTimeStat) TimelinessRate() Rate { return NewRate(g.Count-g.Overdue, g.Count) }

// UnresolvedTicket is a row of the unresolved ticket listing.
type UnresolvedTicket struct {
	Ref       string       `json:"ref"`
	Title     string       `json:"title"`
	Class     TicketClass  `json:"class"`
	StartDate time.Time    `json:"start_date"`
	Status    TicketStatus `json:"status"`
	Requester string       `json:"requester"`
	Team      string       `json:"team"`
	Agent     string       `json:"agent"`
}

// OverdueTicket is a row of the SLA breach listing, one per ticket.
type OverdueTicket struct {
	Ref                string       `json:"ref"`
	Title              string       `json:"title"`
	Class              TicketClass  `json:"class"`
	Status             TicketStatus `json:"status"`
	StartDate          time.Time    `json:"start_date"`
	LastUpdate         *time.Time   `json:"last_update,omitempty"`
	ResponseOverrun    Minutes      `json:"response_overrun"`
	ResolutionOverrun  Minutes      `json:"resolution_overrun"`
	Requester          string       `json:"requester"`
	Team               string       `json:"team"`
	Agent              string       `json:"agent"`
	AssignmentDate     *time.Time   `json:"assignment_date,omitempty"`
	ResolutionDate     *time.Time   `json:"resolution_date,omitempty"`
	ResponseDeadline   *time.Time   `json:"response_deadline,omitempty"`
	ResolutionDeadline *time.Time   `json:"resolution_deadline,omitempty"`
	ResponseTime       Minutes      `json:"response_time"`
	ResolutionTime     Minutes      `json:"resolution_time"`
}

// KPITotalLabel labels the synthetic row aggregating every month of a KPI table.
const KPITotalLabel = "Total"

// KPICell holds the counts of one (month, service) pair.
type KPICell struct {
	Total    int `json:"total"`
	Resolved int `json:"resolved"`
}

// Rate is resolved over total.
func (c KPICell) Rate() Rate { return NewRate(c.Resolved, c.Total) }

// KPIRow is one month, or the Total row, of a KPI pivot.
// Cells is keyed by resolved service name; absent keys mean no tickets.
type KPIRow struct {
	Month    string             `json:"month"`
	Cells    map[string]KPICell `json:"cells"`
	Total    int                `json:"total"`
	Resolved int                `json:"resolved"`
}

// Cell returns the counts for a service, zero when the service had no tickets.
func (r KPIRow) Cell(service string) KPICell { return r.Cells[service] }

// KPITotal is the ticket-weighted resolution rate across all services of the row.
func (r KPIRow) KPITotal() Rate { return NewRate(r.Resolved, r.Total) }

// KPITable is the per-service KPI pivot of one partition.
// Services holds the discovered service names in column order, unclassified excluded.
type KPITable struct {
	Partition ServicePartition `json:"partition"`
	Services  []string         `json:"services"`
	Rows      []KPIRow         `json:"rows"`
}

// Empty reports a table without month rows.
func (t KPITable) Empty() bool { return len(t.MonthRows()) == 0 }

// MonthRows returns the rows without the synthetic Total row.
func (t KPITable) MonthRows() []KPIRow {
	rows := make([]KPIRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		if r.Month != KPITotalLabel {
			rows = append(rows, r)
		}
	}
	return rows
}

// Columns returns the projected column names of the pivot.
func (t KPITable) Columns() []string {
	cols := make([]string, 0, len(t.Services)+5)
	cols = append(cols, "Month")
	cols = append(cols, t.Services...)
	return append(cols, Unclassified, "KPI_total", "total_count", "resolved_count")
}

// Section wraps one rollup so that a failed query only affects its own part of the report.
type Section[T any] struct {
	Data  T      `json:"data"`
	Error string `json:"error,omitempty"`
}

// Available reports whether the rollup was computed.
func (s Section[T]) Available() bool { return s.Error == "" }

// Report is every rollup of one invocation. Both renderers read from the same value.
type Report struct {
	ID           string                      `json:"id"`
	Period       Period                      `json:"period"`
	GeneratedAt  time.Time                   `json:"generated_at"`
	SLAThreshold SLAThreshold                `json:"sla_threshold"`
	Summary      TicketSummary               `json:"summary"`
	Requests     Section[StatusBreakdown]    `json:"requests"`
	Incidents    Section[StatusBreakdown]    `json:"incidents"`
	Changes      Section[StatusBreakdown]    `json:"changes"`
	Teams        Section[[]GroupTimeStat]    `json:"teams"`
	Agents       Section[[]GroupTimeStat]    `json:"agents"`
	Unresolved   Section[[]UnresolvedTicket] `json:"unresolved"`
	Overdue      Section[[]OverdueTicket]    `json:"overdue"`
	InfraKPI     Section[KPITable]           `json:"infra_kpi"`
	AppKPI       Section[KPITable]           `json:"app_kpi"`
}

// FailedSections lists the names of sections whose rollup could not be computed.
func (r *Report) FailedSections() []string {
	var failed []string
	check := func(name string, ok bool) {
		if !ok {
			failed = append(failed, name)
		}
	}
	check("requests", r.Requests.Available())
	check("incidents", r.Incidents.Available())
	check("changes", r.Changes.Available())
	check("teams", r.Teams.Available())
	check("agents", r.Agents.Available())
	check("unresolved", r.Unresolved.Available())
	check("overdue", r.Overdue.Available())
	check("infra_kpi", r.InfraKPI.Available())
	check("app_kpi", r.AppKPI.Available())
	return failed
}
