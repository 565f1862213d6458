package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Unit é a unidade de medida de um material.
type Unit string

// Conjunto fechado de unidades aceitas no almoxarifado da cozinha.
const (
	UnitUnit     Unit = "unit"
	UnitKilogram Unit = "kg"
	UnitLiter    Unit = "liter"
	UnitPackage  Unit = "package"
	UnitBox      Unit = "box"
	UnitRoll     Unit = "roll"
	UnitGallon   Unit = "gallon"
)

// Valid informa se a unidade pertence ao conjunto aceito.
func (u Unit) Valid() bool {
	switch u {
	case UnitUnit, UnitKilogram, UnitLiter, UnitPackage, UnitBox, UnitRoll, UnitGallon:
		return true
	}
	return false
}

// MaterialStatus é o estado operacional de um material ou equipamento.
type MaterialStatus string

const (
	StatusAvailable        MaterialStatus = "available"
	StatusUnderMaintenance MaterialStatus = "under-maintenance"
	StatusDecommissioned   MaterialStatus = "decommissioned" // terminal
)

// Valid informa se o status é conhecido.
func (s MaterialStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusUnderMaintenance, StatusDecommissioned:
		return true
	}
	return false
}

// AcceptsMovements indica se entradas e saídas são permitidas neste status.
func (s MaterialStatus) AcceptsMovements() bool {
	return s == StatusAvailable
}

// CanTransitionTo aplica a máquina de estados:
// available <-> under-maintenance, ambos -> decommissioned, sem saída de decommissioned.
func (s MaterialStatus) CanTransitionTo(next MaterialStatus) bool {
	switch s {
	case StatusAvailable:
		return next == StatusUnderMaintenance || next == StatusDecommissioned
	case StatusUnderMaintenance:
		return next == StatusAvailable || next == StatusDecommissioned
	}
	return false
}

// Material representa um item rastreável do estoque (insumo ou equipamento).
type Material struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Category     string          `json:"category,omitempty"`
	Location     string          `json:"location,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         Unit            `json:"unit"`
	MinimumStock decimal.Decimal `json:"minimum_stock"`
	Status       MaterialStatus  `json:"status"`
	LastMovement MovementKind    `json:"last_movement,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// BelowMinimum indica se o material atingiu o estoque mínimo configurado.
// Materiais sem mínimo (zero) nunca são considerados abaixo.
func (m Material) BelowMinimum() bool {
	return m.MinimumStock.IsPositive() && m.Quantity.LessThanOrEqual(m.MinimumStock)
}

// MaterialFilter define os critérios opcionais de listagem. Campos vazios não filtram.
type MaterialFilter struct {
	Name         string         // substring, sem diferenciar maiúsculas
	Category     string         // igualdade, sem diferenciar maiúsculas
	Status       MaterialStatus // igualdade
	Search       string         // substring no ID ou no nome
	BelowMinimum bool
}

// Matches avalia o filtro em memória. Os backends SQL usam a mesma semântica.
func (f MaterialFilter) Matches(m Material) bool {
	if f.Name != "" && !containsFold(m.Name, f.Name) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(m.Category, f.Category) {
		return false
	}
	if f.Status != "" && m.Status != f.Status {
		return false
	}
	if f.Search != "" && !containsFold(m.ID, f.Search) && !containsFold(m.Name, f.Search) {
		return false
	}
	if f.BelowMinimum && !m.BelowMinimum() {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
