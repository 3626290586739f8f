package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/waterflow/internal/hydraulics"
)

var errMaterialNotFound = errors.New("pipe material not found")

type material struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	InnerDiameter  float64 `json:"inner_diameter"`
	FrictionFactor float64 `json:"friction_factor"`
	Velocity       float64 `json:"velocity"`
	Notes          string  `json:"notes"`
	Active         bool    `json:"active"`
}

func (m material) pipeMaterial() hydraulics.PipeMaterial {
	return hydraulics.PipeMaterial{
		Name:           m.Name,
		InnerDiameter:  m.InnerDiameter,
		FrictionFactor: m.FrictionFactor,
		Velocity:       m.Velocity,
	}
}

func (s *server) handleMaterialsList(w http.ResponseWriter, r *http.Request) {
	materials, err := s.listMaterials(r.Context())
	if err != nil {
		s.logger.Error("list materials", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load materials")
		return
	}
	writeJSON(w, http.StatusOK, materials)
}

func (s *server) handleMaterialsCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	m, err := parseMaterialForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.db.ExecContext(r.Context(), `
		INSERT INTO pipe_materials (name, inner_diameter, friction_factor, velocity, notes, active)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.Name, m.InnerDiameter, m.FrictionFactor, m.Velocity, m.Notes, m.Active)
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, fmt.Sprintf("material %q already exists", m.Name))
			return
		}
		s.logger.Error("create material", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create material")
		return
	}

	m.ID, err = res.LastInsertId()
	if err != nil {
		s.logger.Error("read material id", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create material")
		return
	}

	s.logger.Info("material created", "id", m.ID, "name", m.Name)
	writeJSON(w, http.StatusCreated, m)
}

func (s *server) handleMaterialsUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid material id")
		return
	}

	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	m, err := parseMaterialForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m.ID = id

	result, err := s.db.ExecContext(r.Context(), `
		UPDATE pipe_materials
		SET
			name = ?,
			inner_diameter = ?,
			friction_factor = ?,
			velocity = ?,
			notes = ?,
			active = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, m.Name, m.InnerDiameter, m.FrictionFactor, m.Velocity, m.Notes, m.Active, id)
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, fmt.Sprintf("material %q already exists", m.Name))
			return
		}
		s.logger.Error("update material", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to update material")
		return
	}

	affected, err := result.RowsAffected()
	if err != nil {
		s.logger.Error("update material", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to update material")
		return
	}
	if affected == 0 {
		writeError(w, http.StatusNotFound, errMaterialNotFound.Error())
		return
	}

	writeJSON(w, http.StatusOK, m)
}

func parseMaterialForm(r *http.Request) (material, error) {
	m := material{
		Name:   strings.TrimSpace(r.FormValue("name")),
		Notes:  strings.TrimSpace(r.FormValue("notes")),
		Active: r.FormValue("active") != "0",
	}

	if m.Name == "" {
		return m, fmt.Errorf("name is required")
	}

	var err error
	if m.InnerDiameter, err = parsePositiveFloat(r.FormValue("inner_diameter"), "inner_diameter"); err != nil {
		return m, err
	}
	if m.FrictionFactor, err = parseNonNegativeFloat(r.FormValue("friction_factor"), "friction_factor"); err != nil {
		return m, err
	}
	if m.Velocity, err = parsePositiveFloat(r.FormValue("velocity"), "velocity"); err != nil {
		return m, err
	}

	return m, nil
}

func (s *server) listMaterials(ctx context.Context) ([]material, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, inner_diameter, friction_factor, velocity, COALESCE(notes, ''), active
		FROM pipe_materials
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query materials: %w", err)
	}
	defer rows.Close()

	materials := make([]material, 0)
	for rows.Next() {
		var m material
		if err := rows.Scan(&m.ID, &m.Name, &m.InnerDiameter, &m.FrictionFactor, &m.Velocity, &m.Notes, &m.Active); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		materials = append(materials, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate materials: %w", err)
	}

	return materials, nil
}

// getActiveMaterial returns errMaterialNotFound for unknown or inactive ids.
func (s *server) getActiveMaterial(ctx context.Context, id int64) (material, error) {
	var m material
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, inner_diameter, friction_factor, velocity, COALESCE(notes, ''), active
		FROM pipe_materials
		WHERE id = ? AND active = TRUE
	`, id).Scan(&m.ID, &m.Name, &m.InnerDiameter, &m.FrictionFactor, &m.Velocity, &m.Notes, &m.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return material{}, fmt.Errorf("%w: id %d", errMaterialNotFound, id)
	}
	if err != nil {
		return material{}, fmt.Errorf("query material %d: %w", id, err)
	}
	return m, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
