package models

import "time"

type Customer struct {
	ID            string    `json:"id"`
	QueueNumber   string    `json:"queue_number"`
	Name          string    `json:"customer_name"`
	Phone         string    `json:"phone"`
	PartySize     int       `json:"party_size"`
	ServiceType   string    `json:"queue_type"`
	Status        string    `json:"status"`
	EstimatedWait int       `json:"estimated_wait"`
	Confidence    *int      `json:"confidence,omitempty"`
	AIPowered     bool      `json:"ai_powered"`
	AIFactors     []string  `json:"ai_factors,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

const (
	StatusWaiting = "Waiting"
	StatusSeated  = "Seated"
	StatusDone    = "Done"
)

const (
	ServiceTable    = "Table"
	ServiceTakeaway = "Takeaway"
)
