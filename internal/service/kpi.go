package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/spec-kit/itop-report/internal/domain"
	"github.com/spec-kit/itop-report/internal/repository"
)

// KPITable builds the per-service resolution pivot of one partition in two passes:
// the service columns are discovered from the period's data first, then tickets are
// pivoted into (month, service) cells keyed by the discovered names.
func KPITable(ctx context.Context, src repository.TicketRepository, period domain.Period, partition domain.ServicePartition, appService string) (domain.KPITable, error) {
	refs, err := src.ServiceRefs(ctx, period)
	if err != nil {
		return emptyKPITable(partition), fmt.Errorf("%s service discovery: %w", partition, err)
	}
	services := discoverServices(refs, partition, appService)

	records, err := inScope(ctx, src, period, domain.TicketClassUserRequest, domain.TicketClassIncident)
	if err != nil {
		return emptyKPITable(partition), fmt.Errorf("%s kpi pivot: %w", partition, err)
	}
	return pivotKPI(records, services, partition, appService), nil
}

// InfraKPITable is the KPI pivot of every service except the application service.
func InfraKPITable(ctx context.Context, src repository.TicketRepository, period domain.Period, appService string) (domain.KPITable, error) {
	return KPITable(ctx, src, period, domain.PartitionInfra, appService)
}

// AppKPITable is the KPI pivot of the application service.
func AppKPITable(ctx context.Context, src repository.TicketRepository, period domain.Period, appService string) (domain.KPITable, error) {
	return KPITable(ctx, src, period, domain.PartitionApp, appService)
}

func emptyKPITable(partition domain.ServicePartition) domain.KPITable {
	return domain.KPITable{Partition: partition, Services: []string{}, Rows: []domain.KPIRow{}}
}

// discoverServices returns the sorted distinct resolved names of the partition.
// unclassified is left out: it is always a column.
func discoverServices(refs []domain.ServiceRef, partition domain.ServicePartition, appService string) []string {
	seen := map[string]bool{}
	services := []string{}
	for _, ref := range refs {
		if !partition.Includes(ref, appService) {
			continue
		}
		name := ref.Name()
		if name == domain.Unclassified || seen[name] {
			continue
		}
		seen[name] = true
		services = append(services, name)
	}
	sort.Strings(services)
	return services
}

func pivotKPI(records []domain.TicketRecord, services []string, partition domain.ServicePartition, appService string) domain.KPITable {
	table := emptyKPITable(partition)
	table.Services = services

	known := make(map[string]bool, len(services))
	for _, s := range services {
		known[s] = true
	}

	months := map[string]*domain.KPIRow{}
	total := &domain.KPIRow{Month: domain.KPITotalLabel, Cells: map[string]domain.KPICell{}}
	for _, r := range records {
		ref := r.ServiceRef()
		if !partition.Includes(ref, appService) {
			continue
		}
		name := ref.Name()
		if !known[name] {
			name = domain.Unclassified
		}
		resolved := !r.Status.Unresolved() && !r.SLA.ResolutionPassed

		month := r.Month()
		row, ok := months[month]
		if !ok {
			row = &domain.KPIRow{Month: month, Cells: map[string]domain.KPICell{}}
			months[month] = row
		}
		addToRow(row, name, resolved)
		addToRow(total, name, resolved)
	}

	if len(months) == 0 {
		return table
	}
	keys := make([]string, 0, len(months))
	for m := range months {
		keys = append(keys, m)
	}
	sort.Strings(keys)
	for _, m := range keys {
		table.Rows = append(table.Rows, *months[m])
	}
	table.Rows = append(table.Rows, *total)
	return table
}

func addToRow(row *domain.KPIRow, service string, resolved bool) {
	cell := row.Cells[service]
	cell.Total++
	row.Total++
	if resolved {
		cell.Resolved++
		row.Resolved++
	}
	row.Cells[service] = cell
}
