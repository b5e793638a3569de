package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zaypaihtet/queue-system/internal/analytics"
	"github.com/zaypaihtet/queue-system/internal/metrics"
	"github.com/zaypaihtet/queue-system/internal/models"
	"github.com/zaypaihtet/queue-system/internal/predictor"
	"github.com/zaypaihtet/queue-system/internal/store"
)

type Handler struct {
	store     store.CustomerStore
	predictor predictor.Predictor
	log       *slog.Logger
	metrics   *metrics.Metrics
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewHandler(customers store.CustomerStore, p predictor.Predictor, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		store:     customers,
		predictor: p,
		log:       log,
		metrics:   m,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/queue", h.handleQueue)
	mux.HandleFunc("/api/queue/stats", h.handleQueueStats)
	mux.HandleFunc("/api/customers", h.handleCustomers)
	mux.HandleFunc("/api/customers/search", h.handleSearch)
	mux.HandleFunc("/api/customers/", h.handleCustomerByID)
	mux.HandleFunc("/api/customer/status/", h.handleStatusLookup)
	mux.HandleFunc("/api/analytics", h.handleAnalytics)
	mux.HandleFunc("/api/analytics/refresh", h.handleAnalyticsRefresh)
	mux.HandleFunc("/api/predict-wait-time", h.handlePredictWaitTime)
	mux.HandleFunc("/api/queue-insights", h.handleQueueInsights)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	customers, err := h.store.ListCustomers(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, toQueueEntries(customers))
}

type createCustomerRequest struct {
	CustomerName string `json:"customer_name"`
	Phone        string `json:"phone"`
	PartySize    int    `json:"party_size"`
	QueueType    string `json:"queue_type"`
}

type createCustomerResponse struct {
	Success     bool                 `json:"success"`
	CustomerID  string               `json:"customer_id"`
	QueueNumber string               `json:"queue_number"`
	Prediction  predictor.Prediction `json:"prediction"`
}

func (h *Handler) handleCustomers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req createCustomerRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.Phone = strings.TrimSpace(req.Phone)
	req.QueueType = strings.TrimSpace(req.QueueType)

	if req.CustomerName == "" || req.Phone == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "customer_name and phone are required")
		return
	}
	if req.PartySize <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "party_size must be a positive integer")
		return
	}
	if !store.ValidServiceType(req.QueueType) {
		writeError(w, http.StatusBadRequest, "invalid_request", "queue_type must be Table or Takeaway")
		return
	}

	confidence := 90
	factors := []string{
		"Real-time calculation based on current queue position",
		req.QueueType + " service pattern",
		"Automatically updates when queue changes",
	}
	customer, err := h.store.CreateCustomer(r.Context(), store.CreateCustomerInput{
		Name:        req.CustomerName,
		Phone:       req.Phone,
		PartySize:   req.PartySize,
		ServiceType: req.QueueType,
		Confidence:  &confidence,
		AIPowered:   false,
		AIFactors:   factors,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	h.metrics.CustomersJoined.WithLabelValues(customer.ServiceType).Inc()
	h.recalculate(r, "customer_added")

	writeJSON(w, http.StatusOK, createCustomerResponse{
		Success:     true,
		CustomerID:  customer.ID,
		QueueNumber: customer.QueueNumber,
		Prediction: predictor.Prediction{
			EstimatedWait: customer.EstimatedWait,
			Confidence:    confidence,
			Factors:       factors,
			AIPowered:     false,
		},
	})
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if term == "" {
		writeJSON(w, http.StatusOK, []queueEntry{})
		return
	}

	customers, err := h.store.SearchCustomers(r.Context(), term)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, toQueueEntries(customers))
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func (h *Handler) handleCustomerByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/customers/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleDeleteCustomer(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "status":
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleUpdateStatus(w, r, parts[0])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request, customerID string) {
	var req updateStatusRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	if !store.ValidStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "invalid_status", "status must be Waiting, Seated, or Done")
		return
	}

	current, err := h.store.GetCustomer(r.Context(), customerID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	// Moving back to an earlier stage is allowed (staff undo a mistake)
	// but worth an audit trail.
	if current.Status != req.Status && !store.ForwardTransition(current.Status, req.Status) {
		h.log.Warn("backward status transition",
			"customer_id", customerID, "from", current.Status, "to", req.Status)
	}

	if err := h.store.UpdateStatus(r.Context(), customerID, req.Status); err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	h.recalculate(r, "status_changed_to_"+req.Status)
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *Handler) handleDeleteCustomer(w http.ResponseWriter, r *http.Request, customerID string) {
	if err := h.store.DeleteCustomer(r.Context(), customerID); err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	h.recalculate(r, "customer_removed")
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *Handler) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	customers, err := h.store.ListCustomers(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, analytics.ComputeStats(customers, time.Now()))
}

func (h *Handler) handleStatusLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	queueNumber := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/customer/status/"), "/")
	if queueNumber == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	customer, err := h.store.GetCustomerByQueueNumber(r.Context(), queueNumber)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	// Position is the index in the arrival-ordered waiting list across
	// both service types; 0 for anyone no longer waiting.
	position := 0
	if customer.Status == models.StatusWaiting {
		waiting, err := h.store.ListByStatus(r.Context(), models.StatusWaiting)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		for i, c := range waiting {
			if c.ID == customer.ID {
				position = i
				break
			}
		}
	}

	writeJSON(w, http.StatusOK, statusLookupResponse{
		QueueNumber:   customer.QueueNumber,
		CustomerName:  customer.Name,
		PartySize:     customer.PartySize,
		QueueType:     customer.ServiceType,
		Status:        customer.Status,
		EstimatedWait: customer.EstimatedWait,
		Position:      position,
		Timestamp:     customer.CreatedAt.Format(time.RFC3339),
	})
}

type analyticsResponse struct {
	TodayCustomers  int     `json:"today_customers"`
	AverageWaitTime float64 `json:"average_wait_time"`
	PeakHour        string  `json:"peak_hour"`
	QueueEfficiency int     `json:"queue_efficiency"`
	HourlyData      []int   `json:"hourly_data"`
	WaitTimeData    []int   `json:"wait_time_data"`
}

func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	customers, err := h.store.ListCustomers(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	now := time.Now()
	stats := analytics.ComputeStats(customers, now)

	resp := analyticsResponse{
		TodayCustomers:  stats.TodayTotal,
		AverageWaitTime: stats.AvgWaitTime,
		PeakHour:        "12:00 PM",
		QueueEfficiency: 85,
		HourlyData:      []int{5, 8, 12, 18, 25, 30, 35, 42, 38, 28, 15, 10},
		WaitTimeData:    []int{15, 20, 18, 22, 16, 19, 21, 17, 14, 25, 23, 18},
	}
	snapshot, found, err := h.store.GetDailySnapshot(r.Context(), now.Format("2006-01-02"))
	if err != nil {
		h.log.Warn("daily snapshot load failed", "error", err)
	} else if found {
		resp.PeakHour = snapshot.PeakHour
		resp.QueueEfficiency = snapshot.EfficiencyScore
		resp.HourlyData = snapshot.HourlyData
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleAnalyticsRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	customers, err := h.store.ListCustomers(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	snapshot := analytics.BuildDailySnapshot(customers, time.Now())
	if err := h.store.UpsertDailySnapshot(r.Context(), snapshot); err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

type predictRequest struct {
	QueueData    json.RawMessage `json:"queue_data"`
	CustomerData struct {
		CustomerID string `json:"customer_id"`
		PartySize  int    `json:"party_size"`
		QueueType  string `json:"queue_type"`
	} `json:"customer_data"`
}

func (h *Handler) handlePredictWaitTime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	if req.CustomerData.QueueType == "" {
		req.CustomerData.QueueType = models.ServiceTable
	}
	if req.CustomerData.PartySize <= 0 {
		req.CustomerData.PartySize = 2
	}

	// The client may post its own snapshot of the queue but the store is
	// authoritative.
	queue, err := h.store.ListCustomers(r.Context())
	if err != nil {
		h.log.Warn("queue load for prediction failed", "error", err)
		queue = nil
	}

	prediction := h.predictor.PredictWait(r.Context(), queue, predictor.CustomerContext{
		PartySize:   req.CustomerData.PartySize,
		ServiceType: req.CustomerData.QueueType,
	})
	source := "fallback"
	if prediction.AIPowered {
		source = "ai"
	}
	h.metrics.Predictions.WithLabelValues(source).Inc()

	// When the caller names a customer, persist the prediction on their
	// record so the dashboard shows it until the next recalculation.
	if id := strings.TrimSpace(req.CustomerData.CustomerID); id != "" {
		confidence := prediction.Confidence
		if err := h.store.UpdateWaitFields(r.Context(), id, store.WaitFieldsInput{
			EstimatedWait: prediction.EstimatedWait,
			Confidence:    &confidence,
			AIPowered:     prediction.AIPowered,
			AIFactors:     prediction.Factors,
		}); err != nil {
			h.log.Warn("prediction persist failed", "customer_id", id, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, prediction)
}

func (h *Handler) handleQueueInsights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	customers, err := h.store.ListCustomers(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, analytics.QueueInsights(customers))
}

// recalculate runs a full wait-time pass after a queue mutation. The
// mutation already committed, so a failed pass is logged and counted
// but never surfaces to the caller.
func (h *Handler) recalculate(r *http.Request, reason string) {
	updated, err := h.store.RecalculateEstimates(r.Context())
	if err != nil {
		h.metrics.RecalcFailures.Inc()
		h.log.Warn("wait time recalculation failed", "reason", reason, "error", err)
		return
	}
	h.metrics.RecalcPasses.Inc()
	h.metrics.RecalcUpdated.Add(float64(updated))
	h.log.Debug("wait times recalculated", "reason", reason, "updated", updated)
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrCustomerNotFound):
		return http.StatusNotFound, "customer_not_found", "customer not found"
	case errors.Is(err, store.ErrInvalidStatus):
		return http.StatusBadRequest, "invalid_status", "status must be Waiting, Seated, or Done"
	case errors.Is(err, store.ErrInvalidServiceType):
		return http.StatusBadRequest, "invalid_queue_type", "queue_type must be Table or Takeaway"
	case errors.Is(err, store.ErrQueueNumberConflict):
		return http.StatusConflict, "queue_number_conflict", "queue number already assigned"
	case errors.Is(err, store.ErrStoreBusy):
		return http.StatusServiceUnavailable, "store_busy", "store is busy, retry shortly"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
