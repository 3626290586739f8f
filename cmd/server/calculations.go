package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Simplici0/waterflow/internal/hydraulics"
	"github.com/Simplici0/waterflow/internal/metrics"
	"github.com/Simplici0/waterflow/internal/report"
)

const createdAtLayout = "2006-01-02 15:04:05"

var errCalculationNotFound = errors.New("calculation not found")

type pressureRequest struct {
	hydraulics.Input
	Title               string `json:"title"`
	SupplyMaterialID    int64  `json:"supply_material_id"`
	HouseholdMaterialID int64  `json:"household_material_id"`
}

type calculation struct {
	ID          string            `json:"id"`
	CreatedAt   string            `json:"created_at"`
	Title       string            `json:"title"`
	Input       hydraulics.Input  `json:"input"`
	System      hydraulics.System `json:"system"`
	Result      hydraulics.Result `json:"result"`
	PressureKPa string            `json:"pressure_kpa"`
}

type calculationListItem struct {
	ID        string  `json:"id"`
	CreatedAt string  `json:"created_at"`
	Title     string  `json:"title"`
	Pressure  float64 `json:"pressure"`
}

func (s *server) handlePressure(w http.ResponseWriter, r *http.Request) {
	var req pressureRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.metrics.Observe(metrics.OutcomeInvalid, 0)
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	sys, err := s.resolveSystem(r.Context(), req)
	if err != nil {
		if errors.Is(err, errMaterialNotFound) {
			s.metrics.Observe(metrics.OutcomeInvalid, 0)
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("resolve system", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load materials")
		return
	}

	result, err := hydraulics.Calculate(req.Input, sys)
	switch {
	case errors.Is(err, hydraulics.ErrInvalidInput):
		s.metrics.Observe(metrics.OutcomeInvalid, 0)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, hydraulics.ErrDomain):
		s.metrics.Observe(metrics.OutcomeDomain, 0)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		s.logger.Error("calculate pressure", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to calculate pressure")
		return
	}
	s.metrics.Observe(metrics.OutcomeOK, result.Totals.Pressure)

	calc := calculation{
		ID:          uuid.NewString(),
		CreatedAt:   s.now().UTC().Format(createdAtLayout),
		Title:       strings.TrimSpace(req.Title),
		Input:       req.Input,
		System:      sys,
		Result:      result,
		PressureKPa: report.FormatKPa(result.Totals.Pressure),
	}
	if err := s.saveCalculation(r.Context(), calc); err != nil {
		s.logger.Error("save calculation", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to save calculation")
		return
	}

	s.logger.Info("pressure calculated", "id", calc.ID, "pressure_kpa", calc.PressureKPa,
		"supply", sys.Supply.Name, "household", sys.Household.Name)
	writeJSON(w, http.StatusCreated, calc)
}

// resolveSystem starts from the active system and swaps in catalogue
// materials when the request names them.
func (s *server) resolveSystem(ctx context.Context, req pressureRequest) (hydraulics.System, error) {
	sys := s.currentSystem()

	if req.SupplyMaterialID > 0 {
		m, err := s.getActiveMaterial(ctx, req.SupplyMaterialID)
		if err != nil {
			return hydraulics.System{}, err
		}
		sys.Supply = m.pipeMaterial()
	}
	if req.HouseholdMaterialID > 0 {
		m, err := s.getActiveMaterial(ctx, req.HouseholdMaterialID)
		if err != nil {
			return hydraulics.System{}, err
		}
		sys.Household = m.pipeMaterial()
	}

	return sys, nil
}

func (s *server) handleCalculationsList(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	items, err := s.listCalculations(r.Context(), query)
	if err != nil {
		s.logger.Error("list calculations", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load calculations")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *server) handleCalculationDetail(w http.ResponseWriter, r *http.Request) {
	calc, ok := s.loadCalculation(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, calc)
}

func (s *server) handleCalculationText(w http.ResponseWriter, r *http.Request) {
	calc, ok := s.loadCalculation(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(report.Text(calc.Title, calc.Input, calc.Result)))
}

func (s *server) loadCalculation(w http.ResponseWriter, r *http.Request) (calculation, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid calculation id")
		return calculation{}, false
	}

	calc, err := s.getCalculation(r.Context(), id)
	if errors.Is(err, errCalculationNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return calculation{}, false
	}
	if err != nil {
		s.logger.Error("get calculation", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load calculation")
		return calculation{}, false
	}
	return calc, true
}

func (s *server) saveCalculation(ctx context.Context, calc calculation) error {
	inputJSON, err := json.Marshal(calc.Input)
	if err != nil {
		return fmt.Errorf("encode input: %w", err)
	}
	systemJSON, err := json.Marshal(calc.System)
	if err != nil {
		return fmt.Errorf("encode system: %w", err)
	}
	breakdownJSON, err := json.Marshal(calc.Result.Breakdown)
	if err != nil {
		return fmt.Errorf("encode breakdown: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO calculations (id, created_at, title, input_json, system_json, breakdown_json, pressure_kpa)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, calc.ID, calc.CreatedAt, calc.Title, string(inputJSON), string(systemJSON), string(breakdownJSON), calc.Result.Totals.Pressure)
	if err != nil {
		return fmt.Errorf("insert calculation: %w", err)
	}
	return nil
}

// getCalculation returns the stored snapshot without recalculating it.
func (s *server) getCalculation(ctx context.Context, id string) (calculation, error) {
	var (
		calc          calculation
		inputJSON     string
		systemJSON    string
		breakdownJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, COALESCE(title, ''), input_json, system_json, breakdown_json, pressure_kpa
		FROM calculations
		WHERE id = ?
	`, id).Scan(&calc.ID, &calc.CreatedAt, &calc.Title, &inputJSON, &systemJSON, &breakdownJSON, &calc.Result.Totals.Pressure)
	if errors.Is(err, sql.ErrNoRows) {
		return calculation{}, errCalculationNotFound
	}
	if err != nil {
		return calculation{}, fmt.Errorf("query calculation: %w", err)
	}

	if err := json.Unmarshal([]byte(inputJSON), &calc.Input); err != nil {
		return calculation{}, fmt.Errorf("decode input: %w", err)
	}
	if err := json.Unmarshal([]byte(systemJSON), &calc.System); err != nil {
		return calculation{}, fmt.Errorf("decode system: %w", err)
	}
	if err := json.Unmarshal([]byte(breakdownJSON), &calc.Result.Breakdown); err != nil {
		return calculation{}, fmt.Errorf("decode breakdown: %w", err)
	}
	calc.PressureKPa = report.FormatKPa(calc.Result.Totals.Pressure)

	return calc, nil
}

func (s *server) listCalculations(ctx context.Context, query string) ([]calculationListItem, error) {
	search := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, COALESCE(title, ''), pressure_kpa
		FROM calculations
		WHERE (? = '' OR COALESCE(title, '') LIKE ?)
		ORDER BY datetime(created_at) DESC, rowid DESC
	`, query, search)
	if err != nil {
		return nil, fmt.Errorf("query calculations: %w", err)
	}
	defer rows.Close()

	items := make([]calculationListItem, 0)
	for rows.Next() {
		var item calculationListItem
		if err := rows.Scan(&item.ID, &item.CreatedAt, &item.Title, &item.Pressure); err != nil {
			return nil, fmt.Errorf("scan calculation: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calculations: %w", err)
	}

	return items, nil
}
