package sqliterepo

import (
	"time"

	"github.com/shopspring/decimal"

	"siam/internal/domain"
)

// materialRecord é o mapeamento gorm da tabela materials.
// Os timestamps são controlados pela camada de negócio, não pelo gorm.
type materialRecord struct {
	ID           string          `gorm:"primaryKey;size:64"`
	Name         string          `gorm:"not null;size:255;index"`
	Description  string          `gorm:"size:1000"`
	Category     string          `gorm:"size:100;index"`
	Location     string          `gorm:"size:100"`
	Quantity     decimal.Decimal `gorm:"type:numeric;not null"`
	Unit         string          `gorm:"size:16;not null"`
	MinimumStock decimal.Decimal `gorm:"type:numeric;not null"`
	Status       string          `gorm:"size:32;not null;index"`
	LastMovement string          `gorm:"size:16"`
	CreatedAt    time.Time       `gorm:"autoCreateTime:false"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime:false"`
}

func (materialRecord) TableName() string { return "materials" }

// movementRecord é o mapeamento gorm da tabela movements (somente inserção).
type movementRecord struct {
	ID                int64           `gorm:"primaryKey;autoIncrement"`
	MaterialID        string          `gorm:"size:64;not null;index:idx_movements_material_occurred,priority:1"`
	Kind              string          `gorm:"size:16;not null"`
	Quantity          decimal.Decimal `gorm:"type:numeric;not null"`
	PreviousQuantity  decimal.Decimal `gorm:"type:numeric;not null"`
	ResultingQuantity decimal.Decimal `gorm:"type:numeric;not null"`
	OccurredAt        time.Time       `gorm:"not null;index:idx_movements_material_occurred,priority:2"`
	UserID            string          `gorm:"size:64;not null"`
	Notes             string          `gorm:"size:1000"`
	RecordedAt        time.Time       `gorm:"autoCreateTime:false;not null"`
}

func (movementRecord) TableName() string { return "movements" }

func toMaterialRecord(m domain.Material) materialRecord {
	return materialRecord{
		ID:           m.ID,
		Name:         m.Name,
		Description:  m.Description,
		Category:     m.Category,
		Location:     m.Location,
		Quantity:     m.Quantity,
		Unit:         string(m.Unit),
		MinimumStock: m.MinimumStock,
		Status:       string(m.Status),
		LastMovement: string(m.LastMovement),
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

func (r materialRecord) toDomain() domain.Material {
	return domain.Material{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		Category:     r.Category,
		Location:     r.Location,
		Quantity:     r.Quantity,
		Unit:         domain.Unit(r.Unit),
		MinimumStock: r.MinimumStock,
		Status:       domain.MaterialStatus(r.Status),
		LastMovement: domain.MovementKind(r.LastMovement),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func toMovementRecord(mv domain.Movement) movementRecord {
	return movementRecord{
		MaterialID:        mv.MaterialID,
		Kind:              string(mv.Kind),
		Quantity:          mv.Quantity,
		PreviousQuantity:  mv.PreviousQuantity,
		ResultingQuantity: mv.ResultingQuantity,
		OccurredAt:        mv.Timestamp.UTC(),
		UserID:            mv.UserID,
		Notes:             mv.Notes,
		RecordedAt:        mv.RecordedAt.UTC(),
	}
}

func (r movementRecord) toDomain() domain.Movement {
	return domain.Movement{
		ID:                r.ID,
		MaterialID:        r.MaterialID,
		Kind:              domain.MovementKind(r.Kind),
		Quantity:          r.Quantity,
		PreviousQuantity:  r.PreviousQuantity,
		ResultingQuantity: r.ResultingQuantity,
		Timestamp:         r.OccurredAt,
		UserID:            r.UserID,
		Notes:             r.Notes,
		RecordedAt:        r.RecordedAt,
	}
}
