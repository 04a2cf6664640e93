package api

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/flextraff/atcs/internal/connectivity"
	"github.com/flextraff/atcs/internal/controller"
	"github.com/flextraff/atcs/internal/db"
	"github.com/flextraff/atcs/internal/httputil"
	"github.com/flextraff/atcs/internal/timing"
	"github.com/flextraff/atcs/internal/version"
)

// junctionIDParam extracts and parses the junction_id query parameter.
func junctionIDParam(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("junction_id")
	if raw == "" {
		return 0, fmt.Errorf("junction_id query parameter is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("junction_id must be a positive integer")
	}
	return id, nil
}

// lookupController resolves a controller or writes a 404.
func (s *Server) lookupController(w http.ResponseWriter, junctionID int64) (*controller.Controller, bool) {
	ctrl, ok := s.registry.Get(junctionID)
	if !ok {
		httputil.NotFound(w, fmt.Sprintf("junction %d is not monitored", junctionID))
		return nil, false
	}
	return ctrl, true
}

type healthJunction struct {
	JunctionID int64  `json:"junction_id"`
	IsOnline   bool   `json:"is_online"`
	Mode       string `json:"mode"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	dbOK := s.db.Healthy(r.Context())
	junctions := make([]healthJunction, 0)
	for _, id := range s.registry.IDs() {
		ctrl, ok := s.registry.Get(id)
		if !ok {
			continue
		}
		snap := ctrl.ConnectivitySnapshot()
		mode := string(timing.ModeFallback)
		if snap.Online {
			mode = string(timing.ModeAdaptive)
		}
		junctions = append(junctions, healthJunction{JunctionID: id, IsOnline: snap.Online, Mode: mode})
	}

	status := "healthy"
	code := http.StatusOK
	if !dbOK {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, code, map[string]interface{}{
		"status":             status,
		"version":            version.String(),
		"database_connected": dbOK,
		"junctions":          junctions,
	})
}

type calculateRequest struct {
	JunctionID int64 `json:"junction_id"`
	LaneCounts []int `json:"lane_counts"`
}

type planResponse struct {
	JunctionID     int64       `json:"junction_id"`
	GreenTimes     []float64   `json:"green_times"`
	YellowTime     float64     `json:"yellow_time"`
	TotalCycleTime float64     `json:"total_cycle_time"`
	Mode           timing.Mode `json:"mode"`
	ComputedAt     time.Time   `json:"computed_at"`
}

func toPlanResponse(junctionID int64, plan timing.TimingPlan) planResponse {
	rounded := plan.Rounded()
	return planResponse{
		JunctionID:     junctionID,
		GreenTimes:     rounded.GreenTimes,
		YellowTime:     rounded.YellowTime,
		TotalCycleTime: rounded.TotalCycleTime,
		Mode:           rounded.Mode,
		ComputedAt:     rounded.ComputedAt,
	}
}

// calculateTiming computes the current plan for a junction from
// caller-supplied lane counts and records the resulting cycle. The
// computation itself cannot fail: bad input or lost connectivity
// yields a fallback plan, tagged as such.
func (s *Server) calculateTiming(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req calculateRequest
	if err := httputil.DecodeJSONBody(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	ctrl, ok := s.lookupController(w, req.JunctionID)
	if !ok {
		return
	}

	start := time.Now()
	plan := ctrl.ComputePlan(timing.Observations(req.LaneCounts))
	calcMicros := time.Since(start).Microseconds()

	s.recordCycle(req.JunctionID, req.LaneCounts, plan, calcMicros)
	httputil.WriteJSONOK(w, toPlanResponse(req.JunctionID, plan))
}

// recordCycle persists a served plan. Persistence is best-effort: a
// storage fault must not turn a valid plan into an API error.
func (s *Server) recordCycle(junctionID int64, laneCounts []int, plan timing.TimingPlan, calcMicros int64) {
	rounded := plan.Rounded()
	total := 0
	for _, c := range laneCounts {
		total += c
	}
	rec := &db.CycleRecord{
		JunctionID:     junctionID,
		Mode:           string(plan.Mode),
		LaneCounts:     laneCounts,
		GreenTimes:     rounded.GreenTimes,
		YellowTime:     rounded.YellowTime,
		TotalCycleTime: rounded.TotalCycleTime,
		TotalVehicles:  total,
		CalcMicros:     calcMicros,
		ComputedAt:     plan.ComputedAt,
	}
	if err := s.db.RecordCycle(rec); err != nil {
		log.Printf("failed to record cycle for junction %d: %v", junctionID, err)
	}
}

type detectionRequest struct {
	JunctionID  int64  `json:"junction_id"`
	LaneNumber  int    `json:"lane_number"`
	TagID       string `json:"tag_id"`
	VehicleType string `json:"vehicle_type"`
}

func (s *Server) logDetection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req detectionRequest
	if err := httputil.DecodeJSONBody(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.JunctionID < 1 {
		httputil.BadRequest(w, "junction_id must be a positive integer")
		return
	}
	if err := s.db.RecordDetection(req.JunctionID, req.LaneNumber, req.TagID, req.VehicleType); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"status":      "logged",
		"junction_id": req.JunctionID,
		"lane_number": req.LaneNumber,
	})
}

func (s *Server) listJunctions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	junctions, err := s.db.ListJunctions()
	if err != nil {
		httputil.InternalServerError(w, "failed to list junctions")
		return
	}
	if junctions == nil {
		junctions = []db.Junction{}
	}
	httputil.WriteJSONOK(w, map[string]interface{}{"junctions": junctions})
}

// statusWindow is the detection lookback used for the status endpoint.
const statusWindow = 5 * time.Minute

func (s *Server) junctionStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	id, err := junctionIDParam(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	junction, err := s.db.GetJunction(id)
	if err != nil {
		httputil.InternalServerError(w, "failed to load junction")
		return
	}
	if junction == nil {
		httputil.NotFound(w, fmt.Sprintf("junction %d not found", id))
		return
	}

	laneCounts, err := s.db.LaneCountsSince(id, junction.LaneCount, statusWindow)
	if err != nil {
		httputil.InternalServerError(w, "failed to count detections")
		return
	}
	latest, err := s.db.LatestCycle(id)
	if err != nil {
		httputil.InternalServerError(w, "failed to load latest cycle")
		return
	}
	today, err := s.db.DetectionCountByDay(id, time.Now().UTC())
	if err != nil {
		httputil.InternalServerError(w, "failed to count today's detections")
		return
	}

	resp := map[string]interface{}{
		"junction":             junction,
		"current_lane_counts":  laneCounts,
		"latest_cycle":         latest,
		"total_vehicles_today": today,
	}
	if ctrl, ok := s.registry.Get(id); ok {
		resp["connectivity"] = ctrl.ConnectivitySnapshot()
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) liveTiming(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	id, err := junctionIDParam(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	ctrl, ok := s.lookupController(w, id)
	if !ok {
		return
	}

	window := statusWindow
	if raw := r.URL.Query().Get("window_minutes"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes < 1 || minutes > 120 {
			httputil.BadRequest(w, "window_minutes must be between 1 and 120")
			return
		}
		window = time.Duration(minutes) * time.Minute
	}

	laneCounts, err := s.db.LaneCountsSince(id, ctrl.Config().LaneCount, window)
	if err != nil {
		httputil.InternalServerError(w, "failed to count detections")
		return
	}

	plan := ctrl.ComputePlan(timing.Observations(laneCounts))
	resp := toPlanResponse(id, plan)
	httputil.WriteJSONOK(w, map[string]interface{}{
		"junction_id":         id,
		"current_lane_counts": laneCounts,
		"window_minutes":      int(window / time.Minute),
		"plan":                resp,
	})
}

func (s *Server) junctionHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	id, err := junctionIDParam(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 500 {
			httputil.BadRequest(w, "limit must be between 1 and 500")
			return
		}
	}

	cycles, err := s.db.RecentCycles(id, limit)
	if err != nil {
		httputil.InternalServerError(w, "failed to load cycles")
		return
	}
	detections, err := s.db.RecentDetections(id, limit*2)
	if err != nil {
		httputil.InternalServerError(w, "failed to load detections")
		return
	}
	if cycles == nil {
		cycles = []db.CycleRecord{}
	}
	if detections == nil {
		detections = []db.Detection{}
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"junction_id":       id,
		"recent_cycles":     cycles,
		"recent_detections": detections,
	})
}

type junctionDaySummary struct {
	JunctionID    int64  `json:"junction_id"`
	JunctionName  string `json:"junction_name"`
	TotalVehicles int    `json:"total_vehicles"`
	Date          string `json:"date"`
}

// dailySummary aggregates per-junction vehicle totals for one day
// across all junctions. The date query parameter is YYYY-MM-DD and
// defaults to today (UTC).
func (s *Server) dailySummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	day := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httputil.BadRequest(w, "date must be formatted YYYY-MM-DD")
			return
		}
		day = parsed
	}

	junctions, err := s.db.ListJunctions()
	if err != nil {
		httputil.InternalServerError(w, "failed to list junctions")
		return
	}

	dateStr := day.Format("2006-01-02")
	summaries := make([]junctionDaySummary, 0, len(junctions))
	grandTotal := 0
	for _, j := range junctions {
		count, err := s.db.DetectionCountByDay(j.ID, day)
		if err != nil {
			httputil.InternalServerError(w, "failed to count detections")
			return
		}
		grandTotal += count
		summaries = append(summaries, junctionDaySummary{
			JunctionID:    j.ID,
			JunctionName:  j.Name,
			TotalVehicles: count,
			Date:          dateStr,
		})
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"date":               dateStr,
		"junction_summaries": summaries,
		"total_vehicles":     grandTotal,
	})
}

func (s *Server) connectivitySnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	id, err := junctionIDParam(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	ctrl, ok := s.lookupController(w, id)
	if !ok {
		return
	}

	snap := ctrl.ConnectivitySnapshot()
	httputil.WriteJSONOK(w, struct {
		JunctionID int64 `json:"junction_id"`
		connectivity.State
	}{JunctionID: id, State: snap})
}
