package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/itop-report/internal/domain"
)

// DB defines the database operations used by the repositories.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TicketRepository is the read-only data source of the report.
// Both queries restrict to start_date in [period.Start, period.End) and skip tickets in status new.
type TicketRepository interface {
	Tickets(ctx context.Context, period domain.Period, classes ...domain.TicketClass) ([]domain.TicketRecord, error)
	ServiceRefs(ctx context.Context, period domain.Period) ([]domain.ServiceRef, error)
}

// slaColumns maps a threshold to the iTop column infix (tto_100_passed, ttr_75_deadline, ...).
var slaColumns = map[domain.SLAThreshold]string{
	domain.SLAThresholdStrict:  "100",
	domain.SLAThresholdLenient: "75",
}

type ticketRepository struct {
	db        DB
	threshold domain.SLAThreshold
}

// NewTicketRepository instantiates repository reading SLA markers for the given threshold.
func NewTicketRepository(db DB, threshold domain.SLAThreshold) TicketRepository {
	if _, ok := slaColumns[threshold]; !ok {
		threshold = domain.SLAThresholdStrict
	}
	return &ticketRepository{db: db, threshold: threshold}
}

const ticketsQuery = `
        WITH details AS (
            SELECT tr.id, 'UserRequest' AS class, tr.status, tr.service_id, tr.servicesubcategory_id,
                   tr.tto_started, tr.tto_stopped, tr.ttr_stopped, tr.assignment_date, tr.resolution_date,
                   tr.tto_%[1]s_deadline AS tto_deadline, tr.ttr_%[1]s_deadline AS ttr_deadline,
                   COALESCE(tr.tto_%[1]s_passed, 0) = 1 AS tto_passed, COALESCE(tr.ttr_%[1]s_passed, 0) = 1 AS ttr_passed,
                   tr.tto_%[1]s_overrun AS tto_overrun, tr.ttr_%[1]s_overrun AS ttr_overrun
            FROM ticket_request tr
            UNION ALL
            SELECT ti.id, 'Incident', ti.status, ti.service_id, ti.servicesubcategory_id,
                   ti.tto_started, ti.tto_stopped, ti.ttr_stopped, ti.assignment_date, ti.resolution_date,
                   ti.tto_%[1]s_deadline, ti.ttr_%[1]s_deadline,
                   COALESCE(ti.tto_%[1]s_passed, 0) = 1, COALESCE(ti.ttr_%[1]s_passed, 0) = 1,
                   ti.tto_%[1]s_overrun, ti.ttr_%[1]s_overrun
            FROM ticket_incident ti
            UNION ALL
            SELECT cg.id, 'Change', cg.status, NULL::bigint, NULL::bigint,
                   NULL::timestamp, NULL::timestamp, NULL::timestamp, NULL::timestamp, NULL::timestamp,
                   NULL::timestamp, NULL::timestamp,
                   FALSE, FALSE,
                   NULL::bigint, NULL::bigint
            FROM "change" cg
        )
        SELECT t.id, COALESCE(t.ref, ''), COALESCE(t.title, ''), d.class, d.status,
               t.start_date, t.end_date, t.last_update,
               COALESCE(tm.name, ''),
               CASE WHEN ac.id IS NULL THEN '' ELSE CONCAT(COALESCE(ac.name, ''), ' ', COALESCE(ap.first_name, '')) END,
               CASE WHEN cc.id IS NULL THEN '' ELSE CONCAT(COALESCE(cc.name, ''), ' ', COALESCE(cp.first_name, '')) END,
               COALESCE(s.name, ''), COALESCE(sc.name, ''),
               d.tto_started, d.tto_stopped, d.ttr_stopped, d.assignment_date, d.resolution_date,
               d.tto_deadline, d.ttr_deadline, d.tto_passed, d.ttr_passed, d.tto_overrun, d.ttr_overrun
        FROM ticket t
        JOIN details d ON d.id = t.id
        LEFT JOIN contact tm ON tm.id = t.team_id AND tm.finalclass = 'Team'
        LEFT JOIN person ap ON ap.id = t.agent_id
        LEFT JOIN contact ac ON ac.id = ap.id
        LEFT JOIN person cp ON cp.id = t.caller_id
        LEFT JOIN contact cc ON cc.id = cp.id
        LEFT JOIN service s ON s.id = d.service_id
        LEFT JOIN servicesubcategory sc ON sc.id = d.servicesubcategory_id
        WHERE t.start_date >= $1 AND t.start_date < $2
          AND d.status <> 'new'
          AND d.class = ANY($3)
        ORDER BY t.start_date, t.ref`

func (r *ticketRepository) Tickets(ctx context.Context, period domain.Period, classes ...domain.TicketClass) ([]domain.TicketRecord, error) {
	if len(classes) == 0 {
		classes = domain.ReportedClasses
	}
	names := make([]string, len(classes))
	for i, c := range classes {
		names[i] = string(c)
	}

	query := fmt.Sprintf(ticketsQuery, slaColumns[r.threshold])
	rows, err := r.db.Query(ctx, query, period.Start, period.End, names)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	defer rows.Close()

	records, err := scanTickets(rows)
	if err != nil {
		return nil, fmt.Errorf("scan tickets: %w", err)
	}
	return records, nil
}

const serviceRefsQuery = `
        SELECT DISTINCT COALESCE(s.name, ''), COALESCE(sc.name, '')
        FROM ticket t
        JOIN (
            SELECT id, status, service_id, servicesubcategory_id FROM ticket_request
            UNION ALL
            SELECT id, status, service_id, servicesubcategory_id FROM ticket_incident
        ) d ON d.id = t.id
        LEFT JOIN service s ON s.id = d.service_id
        LEFT JOIN servicesubcategory sc ON sc.id = d.servicesubcategory_id
        WHERE t.start_date >= $1 AND t.start_date < $2
          AND d.status <> 'new'`

func (r *ticketRepository) ServiceRefs(ctx context.Context, period domain.Period) ([]domain.ServiceRef, error) {
	rows, err := r.db.Query(ctx, serviceRefsQuery, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("query service refs: %w", err)
	}
	defer rows.Close()

	refs := []domain.ServiceRef{}
	for rows.Next() {
		var ref domain.ServiceRef
		if err := rows.Scan(&ref.Service, &ref.SubService); err != nil {
			return nil, fmt.Errorf("scan service ref: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate service refs: %w", err)
	}
	return refs, nil
}

func scanTickets(rows pgx.Rows) ([]domain.TicketRecord, error) {
	result := []domain.TicketRecord{}
	for rows.Next() {
		var (
			ticket        domain.TicketRecord
			class, status string
			start         time.Time
		)
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Ref,
			&ticket.Title,
			&class,
			&status,
			&start,
			&ticket.EndDate,
			&ticket.LastUpdate,
			&ticket.Team,
			&ticket.Agent,
			&ticket.Caller,
			&ticket.Service,
			&ticket.SubService,
			&ticket.SLA.ResponseStarted,
			&ticket.SLA.ResponseStopped,
			&ticket.SLA.ResolutionStopped,
			&ticket.SLA.AssignmentDate,
			&ticket.SLA.ResolutionDate,
			&ticket.SLA.ResponseDeadline,
			&ticket.SLA.ResolutionDeadline,
			&ticket.SLA.ResponsePassed,
			&ticket.SLA.ResolutionPassed,
			&ticket.SLA.ResponseOverrun,
			&ticket.SLA.ResolutionOverrun,
		); err != nil {
			return nil, err
		}
		ticket.Class = domain.TicketClass(class)
		ticket.Status = domain.TicketStatus(status)
		ticket.StartDate = start
		result = append(result, ticket)
	}
	return result, rows.Err()
}
