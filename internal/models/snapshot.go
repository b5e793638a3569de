package models

import "time"

// DailySnapshot holds one day's aggregate queue figures. It is written
// wholesale by the analytics refresh and read back by the dashboard.
type DailySnapshot struct {
	Date            string    `json:"date"`
	TotalCustomers  int       `json:"total_customers"`
	AvgWaitTime     float64   `json:"avg_wait_time"`
	PeakHour        string    `json:"peak_hour"`
	EfficiencyScore int       `json:"efficiency_score"`
	HourlyData      []int     `json:"hourly_data"`
	CreatedAt       time.Time `json:"created_at"`
}
