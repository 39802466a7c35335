package events

import (
	"time"

	"github.com/spec-kit/itop-report/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventReportGenerated  EventType = "report_generated"
	EventDocumentExported EventType = "document_exported"
	EventDocumentFailed   EventType = "document_failed"
)

// Actor identifies the surface that triggered an event.
type Actor struct {
	Type string `json:"type"`
}

var (
	ActorHTTP = Actor{Type: "http"}
	ActorCLI  = Actor{Type: "cli"}
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ReportID  string      `json:"report_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ReportGeneratedPayload payload.
type ReportGeneratedPayload struct {
	Period         domain.Period `json:"period"`
	TotalTickets   int           `json:"total_tickets"`
	FailedSections []string      `json:"failed_sections,omitempty"`
}

// DocumentExportedPayload payload. Document holds the rendered PDF bytes.
type DocumentExportedPayload struct {
	Period   domain.Period `json:"period"`
	FileName string        `json:"file_name"`
	Size     int           `json:"size"`
	Document []byte        `json:"-"`
}

// DocumentFailedPayload payload.
type DocumentFailedPayload struct {
	Reason string `json:"reason"`
	Hint   string `json:"hint,omitempty"`
}
