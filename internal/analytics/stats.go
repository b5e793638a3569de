// Package analytics aggregates queue statistics and daily snapshots
// from the current customer list. All functions are pure so the HTTP
// layer can call them on whatever snapshot it already loaded.
package analytics

import (
	"fmt"
	"time"

	"github.com/zaypaihtet/queue-system/internal/models"
)

// Stats is the real-time queue statistics payload.
type Stats struct {
	Total        int     `json:"total"`
	WaitingCount int     `json:"waiting_count"`
	SeatedCount  int     `json:"seated_count"`
	DoneCount    int     `json:"done_count"`
	AvgWaitTime  float64 `json:"avg_wait_time"`
	TodayTotal   int     `json:"today_total"`
}

// Insights is a deterministic queue-efficiency report.
type Insights struct {
	EfficiencyScore    int      `json:"efficiency_score"`
	AvgWaitTime        int      `json:"avg_wait_time"`
	Bottlenecks        []string `json:"bottlenecks"`
	Suggestions        []string `json:"suggestions"`
	PeakHourPrediction string   `json:"peak_hour_prediction"`
}

// ComputeStats derives live statistics from the full customer list.
// Average wait covers only Waiting customers and is 0 when none are
// waiting. Today's total counts arrivals on now's calendar date in
// now's location.
func ComputeStats(customers []models.Customer, now time.Time) Stats {
	var stats Stats
	var waitSum int
	stats.Total = len(customers)
	today := now.Format("2006-01-02")
	for _, c := range customers {
		switch c.Status {
		case models.StatusWaiting:
			stats.WaitingCount++
			waitSum += c.EstimatedWait
		case models.StatusSeated:
			stats.SeatedCount++
		case models.StatusDone:
			stats.DoneCount++
		}
		if c.CreatedAt.In(now.Location()).Format("2006-01-02") == today {
			stats.TodayTotal++
		}
	}
	if stats.WaitingCount > 0 {
		stats.AvgWaitTime = float64(waitSum) / float64(stats.WaitingCount)
	}
	return stats
}

// BuildDailySnapshot summarizes today's arrivals into a persistable
// snapshot: a 24-bucket arrival histogram, the busiest hour, and a
// coarse efficiency score driven by how many parties are waiting.
func BuildDailySnapshot(customers []models.Customer, now time.Time) models.DailySnapshot {
	stats := ComputeStats(customers, now)
	today := now.Format("2006-01-02")

	hourly := make([]int, 24)
	for _, c := range customers {
		local := c.CreatedAt.In(now.Location())
		if local.Format("2006-01-02") == today {
			hourly[local.Hour()]++
		}
	}

	peakHour := 12
	peakCount := 0
	for hour, count := range hourly {
		if count > peakCount {
			peakHour = hour
			peakCount = count
		}
	}

	return models.DailySnapshot{
		Date:            today,
		TotalCustomers:  stats.TodayTotal,
		AvgWaitTime:     stats.AvgWaitTime,
		PeakHour:        HourLabel(peakHour),
		EfficiencyScore: efficiencyScore(stats.WaitingCount),
		HourlyData:      hourly,
	}
}

// QueueInsights produces the efficiency report without any external
// calls, keyed off the current waiting volume.
func QueueInsights(customers []models.Customer) Insights {
	var waiting int
	for _, c := range customers {
		if c.Status == models.StatusWaiting {
			waiting++
		}
	}

	avgWait := 15
	switch {
	case waiting >= 6:
		avgWait = 35
	case waiting >= 3:
		avgWait = 25
	}

	insights := Insights{
		EfficiencyScore:    efficiencyScore(waiting),
		AvgWaitTime:        avgWait,
		Bottlenecks:        []string{"Normal operations"},
		Suggestions:        []string{"Continue monitoring"},
		PeakHourPrediction: "Standard service patterns",
	}
	if waiting >= 5 {
		insights.Bottlenecks = []string{"High queue volume"}
		insights.Suggestions = []string{"Consider additional staff"}
	}
	return insights
}

// HourLabel renders a 0-23 hour as a 12-hour clock label, e.g.
// 0 -> "12:00 AM", 19 -> "7:00 PM".
func HourLabel(hour int) string {
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	display := hour % 12
	if display == 0 {
		display = 12
	}
	return fmt.Sprintf("%d:00 %s", display, suffix)
}

// 85 minus 5 per waiting party, clamped to [60, 90].
func efficiencyScore(waiting int) int {
	score := 85 - waiting*5
	if score < 60 {
		return 60
	}
	if score > 90 {
		return 90
	}
	return score
}
