package render

import (
	"bytes"
	"fmt"
	"html"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/itop-report/internal/domain"
	apperrors "github.com/spec-kit/itop-report/pkg/util"
)

func at(month time.Month, d int) time.Time {
	return time.Date(2024, month, d, 9, 30, 0, 0, time.UTC)
}

func minutes(v float64) domain.Minutes { return domain.Minutes{Value: v, Valid: true} }

func emptyReport() *domain.Report {
	return &domain.Report{
		ID:           "r-empty",
		Period:       domain.Period{Start: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		GeneratedAt:  at(6, 1),
		SLAThreshold: domain.SLAThresholdStrict,
		Requests:     domain.Section[domain.StatusBreakdown]{Data: domain.StatusBreakdown{Class: domain.TicketClassUserRequest}},
		Incidents:    domain.Section[domain.StatusBreakdown]{Data: domain.StatusBreakdown{Class: domain.TicketClassIncident}},
		Changes:      domain.Section[domain.StatusBreakdown]{Data: domain.StatusBreakdown{Class: domain.TicketClassChange}},
		Teams:        domain.Section[[]domain.GroupTimeStat]{Data: []domain.GroupTimeStat{}},
		Agents:       domain.Section[[]domain.GroupTimeStat]{Data: []domain.GroupTimeStat{}},
		Unresolved:   domain.Section[[]domain.UnresolvedTicket]{Data: []domain.UnresolvedTicket{}},
		Overdue:      domain.Section[[]domain.OverdueTicket]{Data: []domain.OverdueTicket{}},
		InfraKPI:     domain.Section[domain.KPITable]{Data: domain.KPITable{Partition: domain.PartitionInfra, Services: []string{}}},
		AppKPI:       domain.Section[domain.KPITable]{Data: domain.KPITable{Partition: domain.PartitionApp, Services: []string{}}},
	}
}

func sampleReport() *domain.Report {
	r := emptyReport()
	r.ID = "r-sample"
	r.Period = domain.Period{
		Start: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	r.Summary = domain.TicketSummary{Total: 14, Requests: 10, Incidents: 1, Changes: 3}
	r.Requests.Data = domain.StatusBreakdown{Class: domain.TicketClassUserRequest, Total: 10, Resolved: 8, Closed: 6, Unresolved: 2}
	r.Incidents.Data = domain.StatusBreakdown{Class: domain.TicketClassIncident, Total: 1, Resolved: 1, Closed: 1}
	r.Changes.Data = domain.StatusBreakdown{Class: domain.TicketClassChange, Total: 3, Resolved: 2, Closed: 2, Unresolved: 1}
	r.Teams.Data = []domain.GroupTimeStat{
		{Month: "2024-05", Group: "Service Desk", Class: domain.TicketClassUserRequest, Count: 6, Resolved: 5, Unresolved: 1, Overdue: 1,
			AvgResponse: minutes(1.5), AvgResolution: minutes(15), MaxResponse: minutes(2), MaxResolution: minutes(20)},
		{Month: "2024-04", Group: "Service Desk", Class: domain.TicketClassUserRequest, Count: 4, Resolved: 3, Unresolved: 1,
			AvgResponse: minutes(3.25), AvgResolution: minutes(42.5), MaxResponse: minutes(4), MaxResolution: minutes(61)},
		{Month: "2024-04", Group: "Ops", Class: domain.TicketClassChange, Count: 3, Resolved: 2, Unresolved: 1},
	}
	r.Agents.Data = []domain.GroupTimeStat{
		{Month: "2024-05", Group: "Doe Jane", Class: domain.TicketClassUserRequest, Count: 6, Resolved: 5, Unresolved: 1,
			AvgResponse: minutes(1.5), AvgResolution: minutes(15), MaxResponse: minutes(2), MaxResolution: minutes(20)},
	}
	r.Unresolved.Data = []domain.UnresolvedTicket{
		{Ref: "R-000101", Title: "Printer offline", Class: domain.TicketClassUserRequest, StartDate: at(5, 3),
			Status: domain.TicketStatusAssigned, Requester: "Roe Rick", Team: "Service Desk", Agent: "Doe Jane"},
	}
	deadline := at(5, 4)
	r.Overdue.Data = []domain.OverdueTicket{
		{Ref: "I-000007", Title: "Core switch down", Class: domain.TicketClassIncident, Status: domain.TicketStatusClosed,
			StartDate: at(5, 3), ResolutionOverrun: minutes(37.25), ResolutionDeadline: &deadline, ResolutionTime: minutes(1477.25),
			Team: "Network", Agent: "Doe Jane"},
	}
	r.InfraKPI.Data = domain.KPITable{
		Partition: domain.PartitionInfra,
		Services:  []string{"Network"},
		Rows: []domain.KPIRow{
			{Month: "2024-04", Cells: map[string]domain.KPICell{"Network": {Total: 3, Resolved: 2}}, Total: 3, Resolved: 2},
			{Month: "2024-05", Cells: map[string]domain.KPICell{"Network": {Total: 4, Resolved: 3}, domain.Unclassified: {Total: 1}}, Total: 5, Resolved: 3},
			{Month: domain.KPITotalLabel, Cells: map[string]domain.KPICell{"Network": {Total: 7, Resolved: 5}, domain.Unclassified: {Total: 1}}, Total: 8, Resolved: 5},
		},
	}
	return r
}

func sectionByHeading(t *testing.T, v View, prefix string) Section {
	t.Helper()
	for _, s := range v.Sections {
		if strings.HasPrefix(s.Heading, prefix) {
			return s
		}
	}
	t.Fatalf("section %q not found", prefix)
	return Section{}
}

func renderPDF(t *testing.T, v View) []byte {
	t.Helper()
	doc, err := NewPDFRenderer(PDFOptions{DisableCompression: true}).Render(v)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(doc, []byte("%PDF-")))
	return doc
}

func renderHTML(t *testing.T, v View) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, HTML(&buf, v, PageOptions{DocumentURL: "/reports/r/document"}))
	return buf.String()
}

func TestBuildView_Narrative(t *testing.T) {
	v := BuildView(sampleReport())

	assert.Equal(t, "Service period: 2024-04 to 2024-05", v.PeriodLabel)
	assert.Contains(t, v.Headline, "From 2024-04 to 2024-05 iTop received 14 tickets")

	requests := sectionByHeading(t, v, "1) Service requests")
	require.Len(t, requests.Paragraphs, 3)
	assert.Contains(t, requests.Paragraphs[0], "10 service requests were received, of which 8 were resolved, about 80.00%")
	assert.Contains(t, requests.Paragraphs[1], "6 were closed on time, about 75.00%")
	assert.Contains(t, requests.Paragraphs[2], "2 service requests remain unresolved, about 20.00%")
	require.NotNil(t, requests.Pie)
	assert.Equal(t, []Slice{
		{Label: "Resolved", Value: 8, Color: ColorResolved},
		{Label: "Unresolved", Value: 2, Color: ColorUnresolved},
		{Label: "Closed", Value: 6, Color: ColorClosed},
	}, requests.Pie.Slices)

	changes := sectionByHeading(t, v, "3) Changes")
	assert.Contains(t, changes.Paragraphs[0], "2 were closed, about 66.67%")
	assert.Contains(t, changes.Paragraphs[1], "2 were carried out successfully, about 100.00%")
	require.NotNil(t, changes.Pie)
	assert.Equal(t, 1, changes.Pie.Slices[1].Value, "unresolved slice is total minus resolved")
}

func TestBuildView_TeamTrendNeedsSeveralMonths(t *testing.T) {
	v := BuildView(sampleReport())
	teams := sectionByHeading(t, v, "2.")
	require.NotNil(t, teams.Line)
	assert.Equal(t, []string{"2024-04", "2024-05"}, teams.Line.Categories)
	require.Len(t, teams.Line.Series, 1, "only service request rows feed the trend")
	assert.Equal(t, "Service Desk", teams.Line.Series[0].Name)
	assert.Equal(t, []string{"75.00%", "83.33%"}, teams.Line.Series[0].Labels)

	single := sampleReport()
	single.Teams.Data = single.Teams.Data[:1]
	teams = sectionByHeading(t, BuildView(single), "2.")
	assert.Nil(t, teams.Line)
}

func TestBuildView_KPITable(t *testing.T) {
	v := BuildView(sampleReport())
	infra := sectionByHeading(t, v, "6.")
	require.NotNil(t, infra.Table)
	assert.Equal(t, []string{"Month", "Network", domain.Unclassified, "KPI_total", "total_count", "resolved_count"}, infra.Table.Columns)
	assert.Equal(t, []string{"2024-05", "75.00%", "0.00%", "60.00%", "5", "3"}, infra.Table.Rows[1])
	assert.Equal(t, []string{"2024-04", "66.67%", domain.NotAvailable, "66.67%", "3", "2"}, infra.Table.Rows[0])
	require.NotNil(t, infra.Line)
	assert.Equal(t, []string{"2024-04", "2024-05"}, infra.Line.Categories, "the Total row is not plotted")
	assert.Equal(t, ColorTrend, infra.Line.Series[0].Color)

	app := sectionByHeading(t, v, "7.")
	assert.Nil(t, app.Line)
	assert.NotEmpty(t, app.Notice)
}

func TestBuildView_EmptyPeriod(t *testing.T) {
	v := BuildView(emptyReport())

	assert.Contains(t, v.Headline, "In 2024-05 iTop received 0 tickets")
	assert.Equal(t, "No service requests were received in this period.", sectionByHeading(t, v, "1) Service").Notice)
	assert.Equal(t, "No incidents occurred in this period.", sectionByHeading(t, v, "2) Incidents").Notice)
	assert.Equal(t, "No changes occurred in this period.", sectionByHeading(t, v, "3) Changes").Notice)
	for _, s := range v.Sections {
		assert.Nil(t, s.Pie, s.Heading)
		assert.Nil(t, s.Line, s.Heading)
	}

	page := renderHTML(t, v)
	assert.NotContains(t, page, "<canvas")
	assert.Contains(t, page, "No changes occurred in this period.")

	doc := renderPDF(t, v)
	assert.True(t, bytes.Contains(doc, []byte("No incidents occurred in this period.")))
}

func TestBuildView_FailedSectionsShowPlaceholder(t *testing.T) {
	r := sampleReport()
	r.Incidents = domain.Section[domain.StatusBreakdown]{Error: "unable to retrieve incidents"}
	r.AppKPI = domain.Section[domain.KPITable]{Error: "unable to retrieve app_kpi"}

	v := BuildView(r)
	incidents := sectionByHeading(t, v, "2) Incidents")
	assert.Equal(t, "Unable to retrieve incident statistics.", incidents.Notice)
	assert.Nil(t, incidents.Pie)
	assert.Equal(t, "Unable to retrieve KPI statistics.", sectionByHeading(t, v, "7.").Notice)
	assert.NotNil(t, sectionByHeading(t, v, "1) Service").Pie, "other sections still render")
}

var numberPattern = regexp.MustCompile(`\d+\.\d{2}%?`)

func TestRenderers_ShowTheSameNumbers(t *testing.T) {
	v := BuildView(sampleReport())
	page := html.UnescapeString(renderHTML(t, v))
	doc := string(renderPDF(t, v))

	var numbers []string
	for _, s := range v.Sections {
		for _, p := range s.Paragraphs {
			numbers = append(numbers, numberPattern.FindAllString(p, -1)...)
		}
		if s.Table != nil {
			for _, row := range s.Table.Rows {
				for _, cell := range row {
					numbers = append(numbers, numberPattern.FindAllString(cell, -1)...)
				}
			}
		}
	}
	require.NotEmpty(t, numbers)
	for _, n := range numbers {
		assert.Contains(t, page, n, "html")
		assert.Contains(t, doc, n, "pdf")
	}
}

func TestPDF_LongTableRepeatsHeader(t *testing.T) {
	r := sampleReport()
	for i := 0; i < 120; i++ {
		r.Unresolved.Data = append(r.Unresolved.Data, domain.UnresolvedTicket{
			Ref:       fmt.Sprintf("R-%06d", i),
			Title:     "A long ticket title that has to wrap inside its narrow table column",
			Class:     domain.TicketClassUserRequest,
			StartDate: at(5, 2),
			Status:    domain.TicketStatusAssigned,
		})
	}

	doc := renderPDF(t, BuildView(r))
	assert.Greater(t, bytes.Count(doc, []byte("(Requester)Tj")), 3, "header repeated after page breaks")
	assert.True(t, bytes.Contains(doc, []byte("(Page 2)Tj")))
}

func TestPDF_MissingFont(t *testing.T) {
	renderer := NewPDFRenderer(PDFOptions{FontPath: filepath.Join(t.TempDir(), "simkai.ttf")})

	_, err := renderer.Render(BuildView(sampleReport()))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeRenderFailure))
	assert.Equal(t, FontHint, apperrors.Hint(err))
}

func TestHTML_ChartsAndDownloadLink(t *testing.T) {
	page := renderHTML(t, BuildView(sampleReport()))

	assert.Contains(t, page, `href="/reports/r/document"`)
	assert.Equal(t, 5, strings.Count(page, "<canvas"), "three pies, the team trend and the infra KPI trend")
	assert.Contains(t, page, ColorResolved)
	assert.Contains(t, page, "Printer offline")
}

func TestWrap(t *testing.T) {
	doc, err := NewPDFRenderer(PDFOptions{}).newDocument("t")
	require.NoError(t, err)
	doc.pdf.AddPage()
	doc.pdf.SetFont(doc.family, "", 8)

	lines := doc.wrap("alpha beta gamma delta", doc.pdf.GetStringWidth("gamma delta")+1)
	assert.Equal(t, []string{"alpha beta", "gamma delta"}, lines)

	lines = doc.wrap("abcdefghijklmnopqrstuvwxyz", 20)
	assert.Greater(t, len(lines), 1)
	assert.Equal(t, "abcdefghijklmnopqrstuvwxyz", strings.Join(lines, ""))

	assert.Equal(t, []string{""}, doc.wrap("", 20))
}
