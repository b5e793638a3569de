package queue

import (
	"testing"

	"github.com/zaypaihtet/queue-system/internal/models"
)

func TestNextQueueNumber(t *testing.T) {
	cases := []struct {
		name        string
		serviceType string
		existing    []string
		want        string
	}{
		{"first table number", models.ServiceTable, nil, "T001"},
		{"first takeaway number", models.ServiceTakeaway, nil, "K001"},
		{"increments past max", models.ServiceTable, []string{"T001", "T002"}, "T003"},
		{"ignores other prefix", models.ServiceTable, []string{"K005"}, "T001"},
		{"gap after deletion is not reused", models.ServiceTable, []string{"T001", "T007"}, "T008"},
		{"unordered input", models.ServiceTakeaway, []string{"K012", "K003", "K009"}, "K013"},
		{"ignores malformed suffix", models.ServiceTable, []string{"Txyz", "T004"}, "T005"},
		{"widens past three digits", models.ServiceTable, []string{"T999"}, "T1000"},
		{"widened numbers keep counting", models.ServiceTable, []string{"T999", "T1000"}, "T1001"},
	}

	for _, tt := range cases {
		if got := NextQueueNumber(tt.serviceType, tt.existing); got != tt.want {
			t.Fatalf("%s: NextQueueNumber=%q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestNextQueueNumberSequenceIsContiguous(t *testing.T) {
	var issued []string
	for i := 0; i < 25; i++ {
		number := NextQueueNumber(models.ServiceTable, issued)
		issued = append(issued, number)
	}
	seen := map[string]bool{}
	for i, number := range issued {
		if seen[number] {
			t.Fatalf("duplicate number %q", number)
		}
		seen[number] = true
		want := NextQueueNumber(models.ServiceTable, issued[:i])
		if number != want {
			t.Fatalf("position %d issued %q, want %q", i, number, want)
		}
	}
}
