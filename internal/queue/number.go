package queue

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zaypaihtet/queue-system/internal/models"
)

const queueNumberPad = 3

// Prefix returns the display-number prefix for a service type.
func Prefix(serviceType string) string {
	if serviceType == models.ServiceTable {
		return "T"
	}
	return "K"
}

// NextQueueNumber computes the next display number for the given service
// type from the set of numbers already issued. The sequence is max
// existing + 1, so numbers are monotonic and never reused even after
// deletions. Callers must serialize this computation with the insert
// that follows it. Past 999 the number widens rather than wrapping.
func NextQueueNumber(serviceType string, existing []string) string {
	prefix := Prefix(serviceType)
	max := 0
	for _, number := range existing {
		if !strings.HasPrefix(number, prefix) {
			continue
		}
		seq, err := strconv.Atoi(number[len(prefix):])
		if err != nil {
			continue
		}
		if seq > max {
			max = seq
		}
	}
	return fmt.Sprintf("%s%0*d", prefix, queueNumberPad, max+1)
}
