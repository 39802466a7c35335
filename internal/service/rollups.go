package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/spec-kit/itop-report/internal/domain"
	"github.com/spec-kit/itop-report/internal/repository"
)

// inScope loads the tickets of the given classes and applies the exclusions shared by every rollup.
func inScope(ctx context.Context, src repository.TicketRepository, period domain.Period, classes ...domain.TicketClass) ([]domain.TicketRecord, error) {
	records, err := src.Tickets(ctx, period, classes...)
	if err != nil {
		return nil, err
	}
	wanted := make(map[domain.TicketClass]bool, len(classes))
	for _, c := range classes {
		wanted[c] = true
	}
	result := make([]domain.TicketRecord, 0, len(records))
	for _, r := range records {
		if !r.InScope(period) {
			continue
		}
		if len(wanted) > 0 && !wanted[r.Class] {
			continue
		}
		result = append(result, r)
	}
	return result, nil
}

// TicketSummary counts in-scope tickets per class.
func TicketSummary(ctx context.Context, src repository.TicketRepository, period domain.Period) (domain.TicketSummary, error) {
	records, err := inScope(ctx, src, period, domain.ReportedClasses...)
	if err != nil {
		return domain.TicketSummary{}, fmt.Errorf("ticket summary: %w", err)
	}
	var summary domain.TicketSummary
	for _, r := range records {
		switch r.Class {
		case domain.TicketClassUserRequest:
			summary.Requests++
		case domain.TicketClassIncident:
			summary.Incidents++
		case domain.TicketClassChange:
			summary.Changes++
		default:
			continue
		}
		summary.Total++
	}
	return summary, nil
}

// StatusBreakdown splits the in-scope tickets of one class into status buckets.
func StatusBreakdown(ctx context.Context, src repository.TicketRepository, period domain.Period, class domain.TicketClass) (domain.StatusBreakdown, error) {
	records, err := inScope(ctx, src, period, class)
	if err != nil {
		return domain.StatusBreakdown{Class: class}, fmt.Errorf("%s status breakdown: %w", class, err)
	}
	return breakdown(class, records), nil
}

func breakdown(class domain.TicketClass, records []domain.TicketRecord) domain.StatusBreakdown {
	b := domain.StatusBreakdown{Class: class}
	for _, r := range records {
		if r.Class != class {
			continue
		}
		b.Total++
		switch {
		case r.Status.Resolved():
			b.Resolved++
			if r.Status.Closed() {
				b.Closed++
			}
		case r.Status.Unresolved():
			b.Unresolved++
		}
	}
	return b
}

// TeamTimeStats groups tickets by (month, team, class). Tickets without a team are skipped.
func TeamTimeStats(ctx context.Context, src repository.TicketRepository, period domain.Period) ([]domain.GroupTimeStat, error) {
	records, err := inScope(ctx, src, period, domain.ReportedClasses...)
	if err != nil {
		return nil, fmt.Errorf("team time stats: %w", err)
	}
	return groupTimeStats(records, func(r domain.TicketRecord) string { return r.Team }), nil
}

// AgentTimeStats groups tickets by (month, agent, class). Unassigned tickets are skipped.
func AgentTimeStats(ctx context.Context, src repository.TicketRepository, period domain.Period) ([]domain.GroupTimeStat, error) {
	records, err := inScope(ctx, src, period, domain.ReportedClasses...)
	if err != nil {
		return nil, fmt.Errorf("agent time stats: %w", err)
	}
	return groupTimeStats(records, func(r domain.TicketRecord) string { return r.Agent }), nil
}

type groupKey struct {
	month string
	group string
	class domain.TicketClass
}

type durationAcc struct {
	sum   int64
	n     int
	max   int64
	valid bool
}

func (a *durationAcc) add(seconds int64, ok bool) {
	if !ok {
		return
	}
	if !a.valid || seconds > a.max {
		a.max = seconds
	}
	a.sum += seconds
	a.n++
	a.valid = true
}

func (a durationAcc) avg() domain.Minutes {
	if a.n == 0 {
		return domain.Minutes{}
	}
	return domain.MinutesFromSeconds(float64(a.sum) / float64(a.n))
}

func (a durationAcc) maximum() domain.Minutes {
	if !a.valid {
		return domain.Minutes{}
	}
	return domain.MinutesFromSeconds(float64(a.max))
}

type groupAcc struct {
	stat       domain.GroupTimeStat
	response   durationAcc
	resolution durationAcc
}

func groupTimeStats(records []domain.TicketRecord, groupOf func(domain.TicketRecord) string) []domain.GroupTimeStat {
	groups := map[groupKey]*groupAcc{}
	for _, r := range records {
		name := groupOf(r)
		if name == "" {
			continue
		}
		key := groupKey{month: r.Month(), group: name, class: r.Class}
		acc, ok := groups[key]
		if !ok {
			acc = &groupAcc{stat: domain.GroupTimeStat{Month: key.month, Group: name, Class: r.Class}}
			groups[key] = acc
		}
		acc.stat.Count++
		if r.Status.Resolved() {
			acc.stat.Resolved++
		}
		if r.Status.Unresolved() {
			acc.stat.Unresolved++
		}
		if r.Class.HasSLA() && r.SLA.Breached() {
			acc.stat.Overdue++
		}
		acc.response.add(r.ResponseSeconds())
		acc.resolution.add(r.ResolutionSeconds())
	}

	stats := make([]domain.GroupTimeStat, 0, len(groups))
	for _, acc := range groups {
		s := acc.stat
		s.AvgResponse = acc.response.avg()
		s.MaxResponse = acc.response.maximum()
		s.AvgResolution = acc.resolution.avg()
		s.MaxResolution = acc.resolution.maximum()
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool {
		a, b := stats[i], stats[j]
		if a.Month != b.Month {
			return a.Month > b.Month
		}
		if a.Class.Rank() != b.Class.Rank() {
			return a.Class.Rank() < b.Class.Rank()
		}
		return a.Group < b.Group
	})
	return stats
}

// UnresolvedTicketList lists every ticket in the unresolved bucket, oldest first.
func UnresolvedTicketList(ctx context.Context, src repository.TicketRepository, period domain.Period) ([]domain.UnresolvedTicket, error) {
	records, err := inScope(ctx, src, period, domain.ReportedClasses...)
	if err != nil {
		return nil, fmt.Errorf("unresolved tickets: %w", err)
	}
	sortByStart(records)

	result := []domain.UnresolvedTicket{}
	for _, r := range records {
		if !r.Status.Unresolved() {
			continue
		}
		result = append(result, domain.UnresolvedTicket{
			Ref:       r.Ref,
			Title:     r.Title,
			Class:     r.Class,
			StartDate: r.StartDate,
			Status:    r.Status,
			Requester: r.Caller,
			Team:      r.Team,
			Agent:     r.Agent,
		})
	}
	return result, nil
}

// OverdueTicketList lists every request or incident with a breached SLA flag, one row per ticket.
func OverdueTicketList(ctx context.Context, src repository.TicketRepository, period domain.Period) ([]domain.OverdueTicket, error) {
	records, err := inScope(ctx, src, period, domain.TicketClassUserRequest, domain.TicketClassIncident)
	if err != nil {
		return nil, fmt.Errorf("overdue tickets: %w", err)
	}
	sortByStart(records)

	result := []domain.OverdueTicket{}
	for _, r := range records {
		if !r.SLA.Breached() {
			continue
		}
		row := domain.OverdueTicket{
			Ref:                r.Ref,
			Title:              r.Title,
			Class:              r.Class,
			Status:             r.Status,
			StartDate:          r.StartDate,
			LastUpdate:         r.LastUpdate,
			ResponseOverrun:    overrunMinutes(r.SLA.ResponseOverrun),
			ResolutionOverrun:  overrunMinutes(r.SLA.ResolutionOverrun),
			Requester:          r.Caller,
			Team:               r.Team,
			Agent:              r.Agent,
			AssignmentDate:     r.SLA.AssignmentDate,
			ResolutionDate:     r.SLA.ResolutionDate,
			ResponseDeadline:   r.SLA.ResponseDeadline,
			ResolutionDeadline: r.SLA.ResolutionDeadline,
		}
		if sec, ok := r.ResponseSeconds(); ok {
			row.ResponseTime = domain.MinutesFromSeconds(float64(sec))
		}
		if sec, ok := r.ResolutionSeconds(); ok {
			row.ResolutionTime = domain.MinutesFromSeconds(float64(sec))
		}
		result = append(result, row)
	}
	return result, nil
}

func overrunMinutes(seconds *int64) domain.Minutes {
	if seconds == nil {
		return domain.Minutes{}
	}
	return domain.MinutesFromSeconds(float64(*seconds))
}

func sortByStart(records []domain.TicketRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.Before(b.StartDate)
		}
		return a.Ref < b.Ref
	})
}
