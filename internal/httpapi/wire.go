package httpapi

import (
	"time"

	"github.com/zaypaihtet/queue-system/internal/models"
)

// queueEntry is the camelCase shape the dashboard consumes. All list
// endpoints go through this mapping so the wire format stays in one
// place.
type queueEntry struct {
	ID            string   `json:"id"`
	QueueNumber   string   `json:"queueNumber"`
	CustomerName  string   `json:"customerName"`
	Phone         string   `json:"phone"`
	PartySize     int      `json:"partySize"`
	QueueType     string   `json:"queueType"`
	Status        string   `json:"status"`
	Timestamp     string   `json:"timestamp"`
	EstimatedWait int      `json:"estimatedWait"`
	AIPowered     bool     `json:"aiPowered"`
	Confidence    *int     `json:"confidence"`
	AIFactors     []string `json:"aiFactors"`
}

func toQueueEntry(c models.Customer) queueEntry {
	factors := c.AIFactors
	if factors == nil {
		factors = []string{}
	}
	return queueEntry{
		ID:            c.ID,
		QueueNumber:   c.QueueNumber,
		CustomerName:  c.Name,
		Phone:         c.Phone,
		PartySize:     c.PartySize,
		QueueType:     c.ServiceType,
		Status:        c.Status,
		Timestamp:     c.CreatedAt.Format(time.RFC3339),
		EstimatedWait: c.EstimatedWait,
		AIPowered:     c.AIPowered,
		Confidence:    c.Confidence,
		AIFactors:     factors,
	}
}

func toQueueEntries(customers []models.Customer) []queueEntry {
	entries := make([]queueEntry, 0, len(customers))
	for _, c := range customers {
		entries = append(entries, toQueueEntry(c))
	}
	return entries
}

// statusLookupResponse backs the customer-facing status page.
type statusLookupResponse struct {
	QueueNumber   string `json:"queueNumber"`
	CustomerName  string `json:"customerName"`
	PartySize     int    `json:"partySize"`
	QueueType     string `json:"queueType"`
	Status        string `json:"status"`
	EstimatedWait int    `json:"estimatedWait"`
	Position      int    `json:"position"`
	Timestamp     string `json:"timestamp"`
}
