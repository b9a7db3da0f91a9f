package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "Open"
	TicketStatusClosed TicketStatus = "Closed"
)

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "Low"
	TicketPriorityMedium TicketPriority = "Medium"
	TicketPriorityHigh   TicketPriority = "High"
)

// Ticket is the aggregate for support requests. IDs are assigned by the
// store in creation order. The only permitted mutation is the status
// transition Open -> Closed; Closed is terminal.
type Ticket struct {
	ID          int64
	Subject     string
	Description string
	Priority    TicketPriority
	Status      TicketStatus
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ParsePriority normalizes a submitted priority value. The empty string and
// unknown values are reported separately so callers can distinguish a
// missing field from a bad one.
func ParsePriority(value string) (TicketPriority, bool) {
	switch value {
	case "Low", "low", "LOW":
		return TicketPriorityLow, true
	case "Medium", "medium", "MEDIUM":
		return TicketPriorityMedium, true
	case "High", "high", "HIGH":
		return TicketPriorityHigh, true
	}
	return "", false
}
