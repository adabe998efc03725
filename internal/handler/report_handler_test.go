package handler

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestGenerateReportEndpointIdempotent(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	w := performJSON(t, api.CreateHabit, http.MethodPost, "/api/habits", map[string]string{"name": "晨跑"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("failed to create habit: status %d", w.Code)
	}

	w = performJSON(t, api.GenerateReport, http.MethodPost, "/api/reports/generate", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	first := decodeBody(t, w)

	w = performJSON(t, api.GenerateReport, http.MethodPost, "/api/reports/generate", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 on repeat, got %d", w.Code)
	}
	second := decodeBody(t, w)

	if first["id"] != second["id"] {
		t.Fatalf("expected same report on repeat generation, got %v and %v", first["id"], second["id"])
	}
	if first["week_start"] != second["week_start"] {
		t.Fatalf("expected stable week_start, got %v and %v", first["week_start"], second["week_start"])
	}

	data, ok := first["report_data"].(map[string]any)
	if !ok {
		t.Fatalf("expected report_data object, got %v", first["report_data"])
	}
	if _, ok := data["habit_reports"].([]any); !ok {
		t.Fatalf("expected habit_reports list, got %v", data)
	}
}

func TestGenerateReportWithoutHabits(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	w := performJSON(t, api.GenerateReport, http.MethodPost, "/api/reports/generate", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestLatestAndListReportEndpoints(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	w := performJSON(t, api.GetLatestReport, http.MethodGet, "/api/reports/latest", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 with no reports, got %d", w.Code)
	}

	if w := performJSON(t, api.CreateHabit, http.MethodPost, "/api/habits", map[string]string{"name": "阅读"}, nil); w.Code != http.StatusCreated {
		t.Fatalf("failed to create habit: status %d", w.Code)
	}
	if w := performJSON(t, api.GenerateReport, http.MethodPost, "/api/reports/generate", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("failed to generate report: status %d", w.Code)
	}

	w = performJSON(t, api.GetLatestReport, http.MethodGet, "/api/reports/latest", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	latest := decodeBody(t, w)
	if latest["total_habits"].(float64) != 1 {
		t.Fatalf("expected 1 habit in latest report, got %v", latest["total_habits"])
	}

	w = performJSON(t, api.ListReports, http.MethodGet, "/api/reports", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var reports []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &reports); err != nil {
		t.Fatalf("failed to decode reports: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
}

func TestDashboardEndpoint(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	w := performJSON(t, api.GetDashboard, http.MethodGet, "/api/dashboard", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	body := decodeBody(t, w)

	if body["total_habits"].(float64) != 0 {
		t.Fatalf("expected empty dashboard, got %v", body["total_habits"])
	}
	if _, ok := body["overall_health"].(map[string]any); !ok {
		t.Fatal("expected overall_health record")
	}
	if _, ok := body["date"].(string); !ok {
		t.Fatal("expected date string")
	}
}
