package main

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/waterflow/internal/hydraulics"
)

const scenarioBody = `{"title":"Lot 14","tower_height":10,"tank_height":2,"supply_pipe_length":50,"fitting_count":2,"house_pipe_length":20}`

func TestHandlePressure_StoresSnapshot(t *testing.T) {
	s := newTestServer(t)
	s.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.FixedZone("x", -5*3600)) }

	rec := postJSON(t, s, "/api/pressure", scenarioBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	var got calculation
	decodeBody(t, rec, &got)
	if _, err := uuid.Parse(got.ID); err != nil {
		t.Fatalf("id %q is not a uuid: %v", got.ID, err)
	}
	if got.CreatedAt != "2025-03-04 10:06:07" {
		t.Fatalf("created_at=%q, want UTC timestamp", got.CreatedAt)
	}
	if got.Title != "Lot 14" {
		t.Fatalf("title=%q", got.Title)
	}
	if got.PressureKPa != "94.2" {
		t.Fatalf("pressure_kpa=%q, want 94.2", got.PressureKPa)
	}
	if math.Abs(got.Result.Totals.Pressure-94.240078) > 1e-4 {
		t.Fatalf("pressure=%v, want ~94.240078", got.Result.Totals.Pressure)
	}
	if got.System != hydraulics.DefaultSystem() {
		t.Fatalf("system=%+v, want default", got.System)
	}
	if got.Input.FittingCount != 2 || got.Input.HousePipeLength != 20 {
		t.Fatalf("input=%+v", got.Input)
	}

	if n := countRows(t, s.db, "calculations"); n != 1 {
		t.Fatalf("calculations rows=%d, want 1", n)
	}
}

func TestHandlePressure_UsesCatalogueMaterials(t *testing.T) {
	s := newTestServer(t)

	body := `{"tower_height":10,"tank_height":2,"supply_pipe_length":50,"fitting_count":2,"house_pipe_length":20,"supply_material_id":2,"household_material_id":1}`
	rec := postJSON(t, s, "/api/pressure", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	var got calculation
	decodeBody(t, rec, &got)
	if got.System.Supply != hydraulics.HDPESDR11 || got.System.Household != hydraulics.PVCSchedule80 {
		t.Fatalf("system=%+v, want swapped materials", got.System)
	}

	want, err := hydraulics.Calculate(got.Input, got.System)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if got.Result != want {
		t.Fatalf("result=%+v, want %+v", got.Result, want)
	}
}

func TestHandlePressure_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "malformed json", body: `{"tower_height":`, want: http.StatusBadRequest},
		{name: "unknown field", body: `{"tower":10}`, want: http.StatusBadRequest},
		{name: "fractional fittings", body: `{"tower_height":10,"fitting_count":1.5}`, want: http.StatusBadRequest},
		{name: "negative length", body: `{"tower_height":10,"tank_height":2,"supply_pipe_length":-5,"fitting_count":2,"house_pipe_length":20}`, want: http.StatusBadRequest},
		{name: "negative fittings", body: `{"tower_height":10,"tank_height":2,"supply_pipe_length":5,"fitting_count":-2,"house_pipe_length":20}`, want: http.StatusBadRequest},
		{name: "unknown material", body: `{"tower_height":10,"supply_material_id":99}`, want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			rec := postJSON(t, s, "/api/pressure", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status=%d, want %d body=%s", rec.Code, tt.want, rec.Body.String())
			}

			var resp errorResponse
			decodeBody(t, rec, &resp)
			if resp.Error == "" {
				t.Fatalf("expected error message")
			}
			if n := countRows(t, s.db, "calculations"); n != 0 {
				t.Fatalf("calculations rows=%d, want 0", n)
			}
		})
	}
}

func TestHandlePressure_InactiveMaterialNotFound(t *testing.T) {
	s := newTestServer(t)
	if _, err := s.db.Exec(`UPDATE pipe_materials SET active = FALSE WHERE id = 2`); err != nil {
		t.Fatalf("deactivate material: %v", err)
	}

	rec := postJSON(t, s, "/api/pressure", `{"tower_height":10,"household_material_id":2}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404 body=%s", rec.Code, rec.Body.String())
	}
	if got := s.metrics.Count("invalid"); got != 1 {
		t.Fatalf("invalid count=%d, want 1", got)
	}
}

func TestHandlePressure_UnknownMaterialCountedInvalid(t *testing.T) {
	s := newTestServer(t)

	postJSON(t, s, "/api/pressure", `{"tower_height":10,"supply_material_id":99}`)

	rec := serve(t, s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`waterflow_calculations_total{outcome="ok"} 0`,
		`waterflow_calculations_total{outcome="invalid"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestHandlePressure_DomainErrorUnprocessable(t *testing.T) {
	s := newTestServer(t)

	sys := hydraulics.DefaultSystem()
	sys.Supply.Velocity = 0
	s.setSystem(sys)

	rec := postJSON(t, s, "/api/pressure", scenarioBody)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d, want 422 body=%s", rec.Code, rec.Body.String())
	}
	if got := s.metrics.Count("domain"); got != 1 {
		t.Fatalf("domain count=%d, want 1", got)
	}
}

func TestListCalculations_OrdersByDateDescAndFilters(t *testing.T) {
	s := newTestServer(t)

	storeCalculation(t, s, "2024-01-01 10:00:00", "Primera casa", 90.5)
	storeCalculation(t, s, "2024-01-03 12:00:00", "Tercera finca", 70.25)
	storeCalculation(t, s, "2024-01-02 11:00:00", "Segunda casa", 80)

	items, err := s.listCalculations(context.Background(), "")
	if err != nil {
		t.Fatalf("listCalculations: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 calculations, got %d", len(items))
	}
	if items[0].Title != "Tercera finca" || items[1].Title != "Segunda casa" || items[2].Title != "Primera casa" {
		t.Fatalf("calculations are not sorted desc by created_at: %+v", items)
	}
	if items[0].Pressure != 70.25 || items[1].Pressure != 80 || items[2].Pressure != 90.5 {
		t.Fatalf("unexpected pressures: %+v", items)
	}

	rec := serve(t, s, httptest.NewRequest(http.MethodGet, "/api/calculations?q=casa", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var filtered []calculationListItem
	decodeBody(t, rec, &filtered)
	if len(filtered) != 2 || filtered[0].Title != "Segunda casa" {
		t.Fatalf("filtered=%+v, want the two casa entries", filtered)
	}
}

func TestListCalculations_EmptyIsArray(t *testing.T) {
	s := newTestServer(t)
	rec := serve(t, s, httptest.NewRequest(http.MethodGet, "/api/calculations", nil))
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestCalculationDetail_ReturnsStoredSnapshot(t *testing.T) {
	s := newTestServer(t)

	rec := postJSON(t, s, "/api/pressure", scenarioBody)
	var created calculation
	decodeBody(t, rec, &created)

	// Later system changes must not alter stored results.
	sys := hydraulics.DefaultSystem()
	sys.Household.FrictionFactor = 0
	s.setSystem(sys)

	rec = serve(t, s, httptest.NewRequest(http.MethodGet, "/api/calculations/"+created.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var got calculation
	decodeBody(t, rec, &got)
	if got != created {
		t.Fatalf("detail=%+v\nwant %+v", got, created)
	}
}

func TestCalculationDetail_NotFoundAndInvalidID(t *testing.T) {
	s := newTestServer(t)

	rec := serve(t, s, httptest.NewRequest(http.MethodGet, "/api/calculations/"+uuid.NewString(), nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing id status=%d, want 404", rec.Code)
	}

	rec = serve(t, s, httptest.NewRequest(http.MethodGet, "/api/calculations/not-a-uuid", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid id status=%d, want 400", rec.Code)
	}

	if _, err := s.getCalculation(context.Background(), uuid.NewString()); !errors.Is(err, errCalculationNotFound) {
		t.Fatalf("getCalculation err=%v, want errCalculationNotFound", err)
	}
}

func TestCalculationText_RendersReport(t *testing.T) {
	s := newTestServer(t)

	rec := postJSON(t, s, "/api/pressure", scenarioBody)
	var created calculation
	decodeBody(t, rec, &created)

	rec = serve(t, s, httptest.NewRequest(http.MethodGet, "/api/calculations/"+created.ID+"/text", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content-type=%q", ct)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"Lot 14",
		"- Supply pipe length: 50 m",
		"- Elevation gain: 107.7 kPa",
		"Pressure at house: 94.2 kilopascals",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("report missing %q:\n%s", want, body)
		}
	}
}

func storeCalculation(t *testing.T, s *server, createdAt, title string, pressure float64) {
	t.Helper()

	calc := calculation{
		ID:        uuid.NewString(),
		CreatedAt: createdAt,
		Title:     title,
		Input:     hydraulics.Input{TowerHeight: 10, TankHeight: 2},
		System:    hydraulics.DefaultSystem(),
		Result:    hydraulics.Result{Totals: hydraulics.Totals{Pressure: pressure}},
	}
	if err := s.saveCalculation(context.Background(), calc); err != nil {
		t.Fatalf("saveCalculation: %v", err)
	}
}
