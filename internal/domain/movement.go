package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind distingue entradas de saídas.
type MovementKind string

const (
	MovementEntry MovementKind = "entry"
	MovementExit  MovementKind = "exit"
)

// Valid informa se o tipo de movimento é conhecido.
func (k MovementKind) Valid() bool {
	return k == MovementEntry || k == MovementExit
}

// Movement é o registro imutável de uma entrada ou saída (trilha de auditoria).
// Depois de gravado nunca é alterado nem removido.
type Movement struct {
	ID                int64           `json:"id"`
	MaterialID        string          `json:"material_id"`
	Kind              MovementKind    `json:"kind"`
	Quantity          decimal.Decimal `json:"quantity"`
	PreviousQuantity  decimal.Decimal `json:"previous_quantity"`
	ResultingQuantity decimal.Decimal `json:"resulting_quantity"`
	Timestamp         time.Time       `json:"timestamp"`
	UserID            string          `json:"user_id"`
	Notes             string          `json:"notes,omitempty"`
	RecordedAt        time.Time       `json:"recorded_at"`
}

// MovementFilter restringe a listagem de movimentos. From e To são inclusivos.
type MovementFilter struct {
	MaterialID string
	Kind       MovementKind
	From       *time.Time
	To         *time.Time
}

// Matches avalia o filtro para um movimento.
func (f MovementFilter) Matches(mv Movement) bool {
	if f.MaterialID != "" && mv.MaterialID != f.MaterialID {
		return false
	}
	if f.Kind != "" && mv.Kind != f.Kind {
		return false
	}
	if f.From != nil && mv.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && mv.Timestamp.After(*f.To) {
		return false
	}
	return true
}

// MovementRequest é o payload de uma entrada ou saída.
// Name, Unit, Description, Category e Location só são usados quando a entrada cria o material.
type MovementRequest struct {
	MaterialID  string          `json:"material_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Date        time.Time       `json:"date"`
	UserID      string          `json:"user_id"`
	Notes       string          `json:"notes,omitempty"`
	Name        string          `json:"name,omitempty"`
	Unit        Unit            `json:"unit,omitempty"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Location    string          `json:"location,omitempty"`
}

// StockChange é o resultado de uma movimentação: o material já atualizado e o movimento gravado.
type StockChange struct {
	Material Material `json:"material"`
	Movement Movement `json:"movement"`
}
