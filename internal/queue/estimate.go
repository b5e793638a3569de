package queue

import "github.com/zaypaihtet/queue-system/internal/models"

// Per-service base wait and per-customer increment, in minutes.
const (
	tableBaseWait    = 15
	tablePerCustomer = 8

	takeawayBaseWait    = 10
	takeawayPerCustomer = 3

	// MinWait is the floor applied to every estimate.
	MinWait = 5

	largePartyThreshold = 4
	largePartySurcharge = 5
)

func serviceRates(serviceType string) (base, perCustomer int) {
	if serviceType == models.ServiceTable {
		return tableBaseWait, tablePerCustomer
	}
	return takeawayBaseWait, takeawayPerCustomer
}

// Recalculate maps every waiting customer to a fresh estimate. The input
// must be the full Waiting list ordered by creation time; customers are
// partitioned by service type with relative order preserved, and each
// gets base + position*increment for its 0-based position within its
// partition. Recalculation never reapplies the large-party surcharge;
// that adjustment exists only in the creation-time quote.
func Recalculate(waiting []models.Customer) map[string]int {
	estimates := make(map[string]int, len(waiting))
	positions := make(map[string]int)
	for _, customer := range waiting {
		base, perCustomer := serviceRates(customer.ServiceType)
		position := positions[customer.ServiceType]
		positions[customer.ServiceType] = position + 1

		estimate := base + position*perCustomer
		if estimate < MinWait {
			estimate = MinWait
		}
		estimates[customer.ID] = estimate
	}
	return estimates
}

// QuoteNewCustomer estimates the wait for a customer about to join the
// queue, given how many same-service-type customers are already waiting.
// Parties larger than four get a flat surcharge.
func QuoteNewCustomer(serviceType string, customersAhead, partySize int) int {
	base, perCustomer := serviceRates(serviceType)
	estimate := base + customersAhead*perCustomer
	if partySize > largePartyThreshold {
		estimate += largePartySurcharge
	}
	if estimate < MinWait {
		estimate = MinWait
	}
	return estimate
}
