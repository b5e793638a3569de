package analytics

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/zaypaihtet/queue-system/internal/models"
)

func waitingCustomer(serviceType string, wait int, createdAt time.Time) models.Customer {
	return models.Customer{
		Status:        models.StatusWaiting,
		ServiceType:   serviceType,
		EstimatedWait: wait,
		CreatedAt:     createdAt,
	}
}

func TestComputeStats(t *testing.T) {
	now := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)

	customers := []models.Customer{
		waitingCustomer(models.ServiceTable, 15, now.Add(-time.Hour)),
		waitingCustomer(models.ServiceTakeaway, 10, now.Add(-30*time.Minute)),
		{Status: models.StatusSeated, CreatedAt: now.Add(-2 * time.Hour)},
		{Status: models.StatusDone, CreatedAt: yesterday},
	}

	stats := ComputeStats(customers, now)
	if stats.Total != 4 {
		t.Fatalf("total = %d, want 4", stats.Total)
	}
	if stats.WaitingCount != 2 || stats.SeatedCount != 1 || stats.DoneCount != 1 {
		t.Fatalf("counts = %d/%d/%d, want 2/1/1",
			stats.WaitingCount, stats.SeatedCount, stats.DoneCount)
	}
	if stats.AvgWaitTime != 12.5 {
		t.Fatalf("avg wait = %v, want 12.5", stats.AvgWaitTime)
	}
	if stats.TodayTotal != 3 {
		t.Fatalf("today total = %d, want 3", stats.TodayTotal)
	}
}

func TestStatsJSONIncludesTotal(t *testing.T) {
	now := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	customers := []models.Customer{
		waitingCustomer(models.ServiceTable, 15, now.Add(-time.Hour)),
		{Status: models.StatusSeated, CreatedAt: now.Add(-2 * time.Hour)},
	}

	raw, err := json.Marshal(ComputeStats(customers, now))
	if err != nil {
		t.Fatalf("marshal stats: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	total, ok := fields["total"]
	if !ok {
		t.Fatalf("stats payload missing total: %s", raw)
	}
	if total != float64(2) {
		t.Fatalf("total = %v, want 2", total)
	}
}

func TestComputeStatsEmptyQueue(t *testing.T) {
	stats := ComputeStats(nil, time.Now())
	if stats.AvgWaitTime != 0 {
		t.Fatalf("avg wait on empty queue = %v, want 0", stats.AvgWaitTime)
	}
	if stats.WaitingCount != 0 || stats.TodayTotal != 0 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
}

func TestComputeStatsUsesLocalDate(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	// 23:30 UTC on May 31 is already June 1 in UTC+8.
	created := time.Date(2025, 5, 31, 23, 30, 0, 0, time.UTC)
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, loc)

	stats := ComputeStats([]models.Customer{
		waitingCustomer(models.ServiceTable, 15, created),
	}, now)
	if stats.TodayTotal != 1 {
		t.Fatalf("today total = %d, want 1", stats.TodayTotal)
	}
}

func TestBuildDailySnapshot(t *testing.T) {
	now := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)

	customers := []models.Customer{
		waitingCustomer(models.ServiceTable, 15, time.Date(2025, 6, 1, 12, 10, 0, 0, time.UTC)),
		waitingCustomer(models.ServiceTable, 23, time.Date(2025, 6, 1, 12, 40, 0, 0, time.UTC)),
		waitingCustomer(models.ServiceTakeaway, 10, time.Date(2025, 6, 1, 19, 5, 0, 0, time.UTC)),
		// Yesterday, excluded from the histogram.
		{Status: models.StatusDone, CreatedAt: time.Date(2025, 5, 31, 12, 0, 0, 0, time.UTC)},
	}

	snapshot := BuildDailySnapshot(customers, now)
	if snapshot.Date != "2025-06-01" {
		t.Fatalf("date = %q", snapshot.Date)
	}
	if snapshot.TotalCustomers != 3 {
		t.Fatalf("total = %d, want 3", snapshot.TotalCustomers)
	}
	if len(snapshot.HourlyData) != 24 {
		t.Fatalf("hourly buckets = %d, want 24", len(snapshot.HourlyData))
	}
	if snapshot.HourlyData[12] != 2 || snapshot.HourlyData[19] != 1 {
		t.Fatalf("histogram = %v", snapshot.HourlyData)
	}
	if snapshot.PeakHour != "12:00 PM" {
		t.Fatalf("peak hour = %q, want 12:00 PM", snapshot.PeakHour)
	}
	if snapshot.EfficiencyScore != 70 {
		t.Fatalf("efficiency = %d, want 70", snapshot.EfficiencyScore)
	}
	if snapshot.AvgWaitTime != 16 {
		t.Fatalf("avg wait = %v, want 16", snapshot.AvgWaitTime)
	}
}

func TestBuildDailySnapshotEmptyDayDefaultsToNoon(t *testing.T) {
	snapshot := BuildDailySnapshot(nil, time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	if snapshot.PeakHour != "12:00 PM" {
		t.Fatalf("peak hour = %q, want 12:00 PM", snapshot.PeakHour)
	}
	if snapshot.EfficiencyScore != 85 {
		t.Fatalf("efficiency = %d, want 85", snapshot.EfficiencyScore)
	}
}

func TestHourLabel(t *testing.T) {
	cases := []struct {
		hour int
		want string
	}{
		{0, "12:00 AM"},
		{1, "1:00 AM"},
		{11, "11:00 AM"},
		{12, "12:00 PM"},
		{13, "1:00 PM"},
		{19, "7:00 PM"},
		{23, "11:00 PM"},
	}
	for _, tc := range cases {
		if got := HourLabel(tc.hour); got != tc.want {
			t.Errorf("HourLabel(%d) = %q, want %q", tc.hour, got, tc.want)
		}
	}
}

func TestQueueInsights(t *testing.T) {
	build := func(waiting int) []models.Customer {
		customers := make([]models.Customer, waiting)
		for i := range customers {
			customers[i].Status = models.StatusWaiting
		}
		return customers
	}

	cases := []struct {
		name           string
		waiting        int
		wantAvg        int
		wantEfficiency int
		wantBottleneck string
	}{
		{"quiet", 1, 15, 80, "Normal operations"},
		{"moderate", 3, 25, 70, "Normal operations"},
		{"busy", 5, 25, 60, "High queue volume"},
		{"slammed", 8, 35, 60, "High queue volume"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			insights := QueueInsights(build(tc.waiting))
			if insights.AvgWaitTime != tc.wantAvg {
				t.Errorf("avg wait = %d, want %d", insights.AvgWaitTime, tc.wantAvg)
			}
			if insights.EfficiencyScore != tc.wantEfficiency {
				t.Errorf("efficiency = %d, want %d", insights.EfficiencyScore, tc.wantEfficiency)
			}
			if insights.Bottlenecks[0] != tc.wantBottleneck {
				t.Errorf("bottleneck = %q, want %q", insights.Bottlenecks[0], tc.wantBottleneck)
			}
		})
	}
}
