package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spec-kit/itop-report/internal/domain"
)

// fakeSource is an in-memory ticket store. Like the SQL implementation it drops status new
// and filters by class, but it leaves the period filter to the caller.
type fakeSource struct {
	mu         sync.Mutex
	records    []domain.TicketRecord
	classErr   map[domain.TicketClass]error
	refsErr    error
	// hang makes a query for exactly this class wait for its context to end.
	hang       domain.TicketClass
	ticketCall int
	refsCall   int
}

func newFakeSource(records ...domain.TicketRecord) *fakeSource {
	return &fakeSource{records: records, classErr: map[domain.TicketClass]error{}}
}

func (f *fakeSource) Tickets(ctx context.Context, period domain.Period, classes ...domain.TicketClass) ([]domain.TicketRecord, error) {
	f.mu.Lock()
	f.ticketCall++
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(classes) == 1 && classes[0] == f.hang {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Second):
			return nil, nil
		}
	}
	for _, c := range classes {
		if err := f.classErr[c]; err != nil {
			return nil, err
		}
	}
	wanted := map[domain.TicketClass]bool{}
	for _, c := range classes {
		wanted[c] = true
	}
	var out []domain.TicketRecord
	for _, r := range f.records {
		if r.Status.IsNew() || !wanted[r.Class] {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeSource) ServiceRefs(ctx context.Context, period domain.Period) ([]domain.ServiceRef, error) {
	f.mu.Lock()
	f.refsCall++
	f.mu.Unlock()
	if f.refsErr != nil {
		return nil, f.refsErr
	}
	var out []domain.ServiceRef
	for _, r := range f.records {
		if !r.Class.HasSLA() || !r.InScope(period) {
			continue
		}
		out = append(out, r.ServiceRef())
	}
	return out, nil
}

var seq int

type ticketOpt func(*domain.TicketRecord)

func ticket(class domain.TicketClass, status domain.TicketStatus, start time.Time, opts ...ticketOpt) domain.TicketRecord {
	seq++
	r := domain.TicketRecord{
		ID:        int64(seq),
		Ref:       fmt.Sprintf("T-%06d", seq),
		Title:     fmt.Sprintf("ticket %d", seq),
		Class:     class,
		Status:    status,
		StartDate: start,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func withTeam(team string) ticketOpt  { return func(r *domain.TicketRecord) { r.Team = team } }
func withAgent(agent string) ticketOpt { return func(r *domain.TicketRecord) { r.Agent = agent } }

func withService(service, sub string) ticketOpt {
	return func(r *domain.TicketRecord) {
		r.Service = service
		r.SubService = sub
	}
}

func withBreach(response, resolution bool) ticketOpt {
	return func(r *domain.TicketRecord) {
		r.SLA.ResponsePassed = response
		r.SLA.ResolutionPassed = resolution
	}
}

// withTimes sets response and resolution phases, in seconds from the ticket start.
func withTimes(response, resolution int) ticketOpt {
	return func(r *domain.TicketRecord) {
		started := r.StartDate
		stopped := started.Add(time.Duration(response) * time.Second)
		resolved := stopped.Add(time.Duration(resolution) * time.Second)
		r.SLA.ResponseStarted = &started
		r.SLA.ResponseStopped = &stopped
		r.SLA.ResolutionStopped = &resolved
		end := started.Add(time.Duration(resolution) * time.Second)
		r.EndDate = &end
	}
}

func day(month time.Month, d int) time.Time {
	return time.Date(2024, month, d, 10, 0, 0, 0, time.UTC)
}

func mayPeriod() domain.Period {
	return domain.Period{Start: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
}

func quarterPeriod() domain.Period {
	return domain.Period{Start: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)}
}
