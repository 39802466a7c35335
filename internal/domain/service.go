package domain

// Unclassified names the bucket of tickets without a resolvable service.
const Unclassified = "unclassified"

// DefaultApplicationService is the service split into its own KPI table.
const DefaultApplicationService = "Application"

// ServiceRef is a (service, sub-service) pair referenced by a ticket.
// Empty strings mean the reference could not be resolved.
type ServiceRef struct {
	Service    string
	SubService string
}

// Name resolves the KPI column name: sub-service, else service, else unclassified.
func (r ServiceRef) Name() string {
	switch {
	case r.SubService != "":
		return r.SubService
	case r.Service != "":
		return r.Service
	}
	return Unclassified
}

// ServiceRef returns the service reference of a ticket.
func (t TicketRecord) ServiceRef() ServiceRef {
	return ServiceRef{Service: t.Service, SubService: t.SubService}
}

// ServicePartition splits KPI reporting between application and infrastructure services.
type ServicePartition string

const (
	PartitionInfra ServicePartition = "infra"
	PartitionApp   ServicePartition = "app"
)

// Title returns the section title of the partition's KPI table.
func (p ServicePartition) Title() string {
	if p == PartitionApp {
		return "Application KPI"
	}
	return "Infra KPI"
}

// Includes reports whether ref belongs to the partition, given the application service name.
// Tickets without a service count as infrastructure.
func (p ServicePartition) Includes(ref ServiceRef, appService string) bool {
	isApp := appService != "" && ref.Service == appService
	if p == PartitionApp {
		return isApp
	}
	return !isApp
}

// SLAThreshold selects which SLA breach flags the report reads.
type SLAThreshold string

const (
	// SLAThresholdStrict reads the flags raised at 100% of the deadline.
	SLAThresholdStrict SLAThreshold = "strict"
	// SLAThresholdLenient reads the flags raised at 75% of the deadline.
	SLAThresholdLenient SLAThreshold = "lenient"
)

// Percent returns the deadline percentage the threshold stands for.
func (t SLAThreshold) Percent() int {
	if t == SLAThresholdLenient {
		return 75
	}
	return 100
}

// Valid reports whether t is a known threshold.
func (t SLAThreshold) Valid() bool {
	return t == SLAThresholdStrict || t == SLAThresholdLenient
}
