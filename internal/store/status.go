package store

import "github.com/zaypaihtet/queue-system/internal/models"

var statusRank = map[string]int{
	models.StatusWaiting: 0,
	models.StatusSeated:  1,
	models.StatusDone:    2,
}

// ValidStatus reports whether the value is one of the known statuses.
func ValidStatus(status string) bool {
	_, ok := statusRank[status]
	return ok
}

// ValidServiceType reports whether the value is a known service type.
func ValidServiceType(serviceType string) bool {
	return serviceType == models.ServiceTable || serviceType == models.ServiceTakeaway
}

// ForwardTransition reports whether a status change moves the record
// forward through the Waiting -> Seated -> Done lifecycle. The status
// endpoint still accepts backward writes; callers use this to flag
// them.
func ForwardTransition(from, to string) bool {
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}
