package render

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spec-kit/itop-report/internal/domain"
)

// Chart colors shared by both renderers.
const (
	ColorResolved   = "#00b8a9"
	ColorUnresolved = "#f6416c"
	ColorClosed     = "#f8f3d4"
	ColorTrend      = "#ffa500"
)

var seriesPalette = []string{"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd", "#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf"}

// Y axis of every rate chart.
const (
	RateAxisMax  = 105.0
	RateAxisStep = 10.0
)

const timeLayout = "2006-01-02 15:04"

// View is the presentation-neutral form of a report. The interactive page and the
// document are both drawn from it, so they cannot disagree on a number.
type View struct {
	ReportID    string    `json:"report_id"`
	Title       string    `json:"title"`
	PeriodLabel string    `json:"period_label"`
	Headline    string    `json:"headline"`
	GeneratedAt string    `json:"generated_at"`
	Sections    []Section `json:"sections"`
}

// Section is one heading with its narrative, placeholder, charts and table.
type Section struct {
	Heading    string     `json:"heading"`
	Level      int        `json:"level"`
	Paragraphs []string   `json:"paragraphs,omitempty"`
	Notice     string     `json:"notice,omitempty"`
	Pie        *PieChart  `json:"pie,omitempty"`
	Table      *Table     `json:"table,omitempty"`
	Line       *LineChart `json:"line,omitempty"`
}

// Slice is one pie segment.
type Slice struct {
	Label string `json:"label"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

// PieChart is a status distribution.
type PieChart struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Slices []Slice `json:"slices"`
}

// Total sums every slice.
func (p PieChart) Total() int {
	total := 0
	for _, s := range p.Slices {
		total += s.Value
	}
	return total
}

// Series is one line of a line chart. A nil value is a gap.
type Series struct {
	Name   string     `json:"name"`
	Color  string     `json:"color"`
	Values []*float64 `json:"values"`
	Labels []string   `json:"labels"`
}

// LineChart is a rate trend across months.
type LineChart struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	XLabel     string   `json:"x_label"`
	YLabel     string   `json:"y_label"`
	Categories []string `json:"categories"`
	Series     []Series `json:"series"`
}

// Table is a header row plus body rows of preformatted cells.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

type viewBuilder struct {
	charts int
}

func (b *viewBuilder) chartID() string {
	b.charts++
	return "chart-" + strconv.Itoa(b.charts)
}

// BuildView lays out a report.
func BuildView(report *domain.Report) View {
	b := &viewBuilder{}
	p := report.Period
	v := View{
		ReportID:    report.ID,
		Title:       "iTop Operations Service Report",
		PeriodLabel: "Service period: " + p.Label(),
		GeneratedAt: report.GeneratedAt.Format(timeLayout),
	}
	if p.Start.Format(domain.MonthLayout) == p.LastDay().Format(domain.MonthLayout) {
		v.Headline = fmt.Sprintf("In %s iTop received %d tickets; handling by ticket type is as follows:", p.Label(), report.Summary.Total)
	} else {
		v.Headline = fmt.Sprintf("From %s to %s iTop received %d tickets; handling by ticket type is as follows:",
			p.Start.Format(domain.MonthLayout), p.LastDay().Format(domain.MonthLayout), report.Summary.Total)
	}

	v.Sections = append(v.Sections,
		Section{Heading: "1. Statistics by ticket type", Level: 1},
		b.breakdownSection("1) Service requests", domain.TicketClassUserRequest, report.Requests),
		b.breakdownSection("2) Incidents", domain.TicketClassIncident, report.Incidents),
		b.breakdownSection("3) Changes", domain.TicketClassChange, report.Changes),
		b.teamSection(report.Teams),
		groupSection("3. Statistics by engineer", "Engineer", "engineer", report.Agents),
		unresolvedSection(report.Unresolved),
		overdueSection(report.Overdue, report.SLAThreshold),
		b.kpiSection("6. "+domain.PartitionInfra.Title(), report.InfraKPI),
		b.kpiSection("7. "+domain.PartitionApp.Title(), report.AppKPI),
	)
	return v
}

type classWording struct {
	noun        string
	plural      string
	received    string
	empty       string
	unavailable string
	pieTitle    string
}

var wordings = map[domain.TicketClass]classWording{
	domain.TicketClassUserRequest: {
		noun: "service request", plural: "service requests", received: "received",
		empty:       "No service requests were received in this period.",
		unavailable: "Unable to retrieve service request statistics.",
		pieTitle:    "Service request status distribution",
	},
	domain.TicketClassIncident: {
		noun: "incident", plural: "incidents", received: "raised",
		empty:       "No incidents occurred in this period.",
		unavailable: "Unable to retrieve incident statistics.",
		pieTitle:    "Incident status distribution",
	},
	domain.TicketClassChange: {
		noun: "change", plural: "changes", received: "raised",
		empty:       "No changes occurred in this period.",
		unavailable: "Unable to retrieve change statistics.",
		pieTitle:    "Change status distribution",
	},
}

func (b *viewBuilder) breakdownSection(heading string, class domain.TicketClass, section domain.Section[domain.StatusBreakdown]) Section {
	s := Section{Heading: heading, Level: 2}
	w := wordings[class]
	if !section.Available() {
		s.Notice = w.unavailable
		return s
	}
	bd := section.Data
	if bd.Empty() {
		s.Notice = w.empty
		return s
	}

	if class == domain.TicketClassChange {
		s.Paragraphs = []string{
			fmt.Sprintf("In this period %d %s were %s; %d were closed, about %s.",
				bd.Total, w.plural, w.received, bd.Closed, bd.ClosedRate()),
			fmt.Sprintf("Of the closed %s, %d were carried out successfully, about %s.",
				w.plural, bd.Resolved, bd.ResolvedOfClosedRate()),
		}
		s.Pie = &PieChart{ID: b.chartID(), Title: w.pieTitle, Slices: []Slice{
			{Label: "Resolved", Value: bd.Resolved, Color: ColorResolved},
			{Label: "Unresolved", Value: bd.Total - bd.Resolved, Color: ColorUnresolved},
		}}
		return s
	}

	s.Paragraphs = []string{
		fmt.Sprintf("In this period %d %s were %s, of which %d were resolved, about %s.",
			bd.Total, w.plural, w.received, bd.Resolved, bd.ResolvedRate()),
		fmt.Sprintf("Of the resolved %s, %d were closed on time, about %s.",
			w.plural, bd.Closed, bd.ClosedOfResolvedRate()),
		fmt.Sprintf("%d %s remain unresolved, about %s.",
			bd.Unresolved, w.plural, bd.UnresolvedRate()),
	}
	s.Pie = &PieChart{ID: b.chartID(), Title: w.pieTitle, Slices: []Slice{
		{Label: "Resolved", Value: bd.Resolved, Color: ColorResolved},
		{Label: "Unresolved", Value: bd.Unresolved, Color: ColorUnresolved},
		{Label: "Closed", Value: bd.Closed, Color: ColorClosed},
	}}
	return s
}

func groupSection(heading, groupColumn, noun string, section domain.Section[[]domain.GroupTimeStat]) Section {
	s := Section{Heading: heading, Level: 1}
	if !section.Available() {
		s.Notice = fmt.Sprintf("Unable to retrieve %s statistics.", noun)
		return s
	}
	s.Table = &Table{Columns: []string{
		"Month", groupColumn, "Type", "Tickets", "Resolved", "Unresolved", "Overdue",
		"Resolution rate", "Timeliness rate",
		"Avg response (min)", "Avg resolution (min)", "Max response (min)", "Max resolution (min)",
	}, Rows: [][]string{}}
	for _, g := range section.Data {
		s.Table.Rows = append(s.Table.Rows, []string{
			g.Month, g.Group, g.Class.Label(),
			strconv.Itoa(g.Count), strconv.Itoa(g.Resolved), strconv.Itoa(g.Unresolved), strconv.Itoa(g.Overdue),
			g.ResolutionRate().String(), g.TimelinessRate().String(),
			g.AvgResponse.String(), g.AvgResolution.String(), g.MaxResponse.String(), g.MaxResolution.String(),
		})
	}
	if len(s.Table.Rows) == 0 {
		s.Notice = "No tickets in this period."
	}
	return s
}

func (b *viewBuilder) teamSection(section domain.Section[[]domain.GroupTimeStat]) Section {
	s := groupSection("2. Statistics by handling team", "Team", "team", section)
	if !section.Available() {
		return s
	}
	s.Line = b.teamTrend(section.Data)
	return s
}

// teamTrend plots the monthly service request resolution rate per team, only when the
// team rollup spans more than one month.
func (b *viewBuilder) teamTrend(stats []domain.GroupTimeStat) *LineChart {
	allMonths := map[string]bool{}
	for _, g := range stats {
		allMonths[g.Month] = true
	}
	if len(allMonths) < 2 {
		return nil
	}

	months := map[string]bool{}
	byTeam := map[string]map[string]domain.Rate{}
	for _, g := range stats {
		if g.Class != domain.TicketClassUserRequest {
			continue
		}
		months[g.Month] = true
		if byTeam[g.Group] == nil {
			byTeam[g.Group] = map[string]domain.Rate{}
		}
		byTeam[g.Group][g.Month] = g.ResolutionRate()
	}
	if len(byTeam) == 0 {
		return nil
	}

	chart := &LineChart{
		ID:         b.chartID(),
		Title:      "Monthly service request resolution rate by team",
		XLabel:     "Month",
		YLabel:     "Resolution rate (%)",
		Categories: sortedKeys(months),
	}
	for i, team := range sortedKeys(byTeam) {
		series := Series{Name: team, Color: seriesPalette[i%len(seriesPalette)]}
		for _, m := range chart.Categories {
			rate, ok := byTeam[team][m]
			series.Values = append(series.Values, ratePoint(rate, ok))
			series.Labels = append(series.Labels, rateLabel(rate, ok))
		}
		chart.Series = append(chart.Series, series)
	}
	return chart
}

func unresolvedSection(section domain.Section[[]domain.UnresolvedTicket]) Section {
	s := Section{Heading: "4. Unresolved tickets", Level: 1}
	if !section.Available() {
		s.Notice = "Unable to retrieve unresolved tickets."
		return s
	}
	s.Table = &Table{Columns: []string{"Ref", "Title", "Type", "Start date", "Status", "Requester", "Team", "Agent"}, Rows: [][]string{}}
	for _, u := range section.Data {
		s.Table.Rows = append(s.Table.Rows, []string{
			u.Ref, u.Title, u.Class.Label(), u.StartDate.Format(timeLayout), string(u.Status), u.Requester, u.Team, u.Agent,
		})
	}
	if len(s.Table.Rows) == 0 {
		s.Notice = "Every ticket of this period is resolved."
	}
	return s
}

func overdueSection(section domain.Section[[]domain.OverdueTicket], threshold domain.SLAThreshold) Section {
	s := Section{Heading: fmt.Sprintf("5. Tickets breaching SLA (%d%% threshold)", threshold.Percent()), Level: 1}
	if !section.Available() {
		s.Notice = "Unable to retrieve SLA breaches."
		return s
	}
	s.Table = &Table{Columns: []string{
		"Ref", "Title", "Status", "Start date", "Last update",
		"Response overrun (min)", "Resolution overrun (min)", "Requester", "Team", "Agent",
		"Assigned", "Resolved", "Response deadline", "Resolution deadline",
		"Response (min)", "Resolution (min)",
	}, Rows: [][]string{}}
	for _, o := range section.Data {
		s.Table.Rows = append(s.Table.Rows, []string{
			o.Ref, o.Title, string(o.Status), o.StartDate.Format(timeLayout), formatTime(o.LastUpdate),
			o.ResponseOverrun.String(), o.ResolutionOverrun.String(), o.Requester, o.Team, o.Agent,
			formatTime(o.AssignmentDate), formatTime(o.ResolutionDate), formatTime(o.ResponseDeadline), formatTime(o.ResolutionDeadline),
			o.ResponseTime.String(), o.ResolutionTime.String(),
		})
	}
	if len(s.Table.Rows) == 0 {
		s.Notice = "No ticket breached its SLA in this period."
	}
	return s
}

func (b *viewBuilder) kpiSection(heading string, section domain.Section[domain.KPITable]) Section {
	s := Section{Heading: heading, Level: 1}
	if !section.Available() {
		s.Notice = "Unable to retrieve KPI statistics."
		return s
	}
	table := section.Data
	s.Table = &Table{Columns: table.Columns(), Rows: [][]string{}}
	for _, r := range table.Rows {
		row := []string{r.Month}
		for _, svc := range table.Services {
			row = append(row, r.Cell(svc).Rate().String())
		}
		row = append(row,
			r.Cell(domain.Unclassified).Rate().String(),
			r.KPITotal().String(),
			strconv.Itoa(r.Total),
			strconv.Itoa(r.Resolved),
		)
		s.Table.Rows = append(s.Table.Rows, row)
	}
	monthRows := table.MonthRows()
	if len(monthRows) == 0 {
		s.Notice = "No requests or incidents in this period."
		return s
	}

	chart := &LineChart{
		ID:     b.chartID(),
		Title:  "Monthly KPI_total trend",
		XLabel: "Month",
		YLabel: "KPI_total (%)",
	}
	series := Series{Name: "KPI_total", Color: ColorTrend}
	for _, r := range monthRows {
		chart.Categories = append(chart.Categories, r.Month)
		rate := r.KPITotal()
		series.Values = append(series.Values, ratePoint(rate, true))
		series.Labels = append(series.Labels, rateLabel(rate, true))
	}
	chart.Series = []Series{series}
	s.Line = chart
	return s
}

func ratePoint(rate domain.Rate, present bool) *float64 {
	if !present {
		return nil
	}
	pct, ok := rate.Percent()
	if !ok {
		return nil
	}
	return &pct
}

func rateLabel(rate domain.Rate, present bool) string {
	if !present {
		return ""
	}
	return rate.String()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeLayout)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
