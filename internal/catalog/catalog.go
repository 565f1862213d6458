// Package catalog lê catálogos de materiais em YAML e os importa pelo serviço de inventário.
package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"siam/internal/domain"
	apperror "siam/internal/errors"
	"siam/internal/pkg/logger"
)

// Item é um material do catálogo com o estoque de abertura opcional.
type Item struct {
	Material     domain.Material
	OpeningStock decimal.Decimal
}

type document struct {
	Materials []itemDoc `yaml:"materials"`
}

// Quantidades vêm como texto para não passar por float.
type itemDoc struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	Category     string `yaml:"category"`
	Location     string `yaml:"location"`
	Unit         string `yaml:"unit"`
	MinimumStock string `yaml:"minimum_stock"`
	OpeningStock string `yaml:"opening_stock"`
}

// LoadFile abre e decodifica um catálogo YAML.
func LoadFile(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: abrir %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodifica o catálogo e valida unidades, quantidades e IDs duplicados.
func Load(r io.Reader) ([]Item, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("catalog: YAML inválido: %w", err)
	}

	seen := make(map[string]bool, len(doc.Materials))
	items := make([]Item, 0, len(doc.Materials))
	for i, d := range doc.Materials {
		item, err := d.toItem()
		if err != nil {
			return nil, fmt.Errorf("catalog: item %d (%s): %w", i+1, d.ID, err)
		}
		if seen[item.Material.ID] {
			return nil, fmt.Errorf("catalog: item %d: ID %s duplicado", i+1, item.Material.ID)
		}
		seen[item.Material.ID] = true
		items = append(items, item)
	}
	return items, nil
}

func (d itemDoc) toItem() (Item, error) {
	m := domain.Material{
		ID:          strings.TrimSpace(d.ID),
		Name:        strings.TrimSpace(d.Name),
		Description: d.Description,
		Category:    d.Category,
		Location:    d.Location,
		Unit:        domain.Unit(strings.ToLower(strings.TrimSpace(d.Unit))),
		Status:      domain.StatusAvailable,
	}
	if m.ID == "" {
		return Item{}, fmt.Errorf("id obrigatório")
	}
	if m.Unit == "" {
		m.Unit = domain.UnitUnit
	}
	if !m.Unit.Valid() {
		return Item{}, fmt.Errorf("unidade %q desconhecida", d.Unit)
	}

	var err error
	if m.MinimumStock, err = parseQuantity(d.MinimumStock); err != nil {
		return Item{}, fmt.Errorf("minimum_stock: %w", err)
	}
	opening, err := parseQuantity(d.OpeningStock)
	if err != nil {
		return Item{}, fmt.Errorf("opening_stock: %w", err)
	}
	return Item{Material: m, OpeningStock: opening}, nil
}

func parseQuantity(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	q, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q não é um número", s)
	}
	if q.IsNegative() {
		return decimal.Zero, fmt.Errorf("%q é negativo", s)
	}
	if !q.Equal(q.Truncate(2)) {
		return decimal.Zero, fmt.Errorf("%q tem mais de duas casas decimais", s)
	}
	return q, nil
}

// Inventory é o subconjunto do serviço de inventário usado na importação.
type Inventory interface {
	CreateMaterial(ctx context.Context, m domain.Material) (domain.Material, error)
	RegisterEntry(ctx context.Context, req domain.MovementRequest) (domain.StockChange, error)
	ListMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.Movement, error)
}

// Result resume uma importação.
type Result struct {
	Created  int
	Skipped  int // já existiam (com movimentos, ou sem estoque de abertura)
	Entries  int // entradas de estoque de abertura
	Failures []error
}

// Importer cadastra os itens do catálogo e registra o estoque de abertura como entrada.
type Importer struct {
	inventory Inventory
	logger    logger.Logger
	userID    string
	now       func() time.Time
}

// NewImporter cria o importador; userID assina as entradas de abertura.
func NewImporter(inventory Inventory, userID string, logger logger.Logger) *Importer {
	return &Importer{inventory: inventory, userID: userID, logger: logger, now: time.Now}
}

// Import processa todos os itens. Um item já cadastrado só recebe o estoque de
// abertura se ainda não tiver nenhum movimento, assim uma importação interrompida
// pode ser repetida sem duplicar entradas. Erros por item são acumulados e não
// interrompem a importação.
func (imp *Importer) Import(ctx context.Context, items []Item, dryRun bool) Result {
	var res Result
	for _, item := range items {
		if dryRun {
			imp.logger.Info("[dry-run] material seria importado.", map[string]interface{}{
				"material_id":   item.Material.ID,
				"opening_stock": item.OpeningStock.String(),
			})
			res.Created++
			continue
		}

		_, err := imp.inventory.CreateMaterial(ctx, item.Material)
		switch {
		case err == nil:
			res.Created++
		case isConflict(err):
			pending, checkErr := imp.awaitsOpeningStock(ctx, item)
			if checkErr != nil {
				res.Failures = append(res.Failures, fmt.Errorf("%s: %w", item.Material.ID, checkErr))
				continue
			}
			if !pending {
				imp.logger.Debug("Material já cadastrado; ignorado.", map[string]interface{}{"material_id": item.Material.ID})
				res.Skipped++
				continue
			}
			imp.logger.Info("Material já cadastrado sem movimentos; aplicando estoque de abertura.", map[string]interface{}{"material_id": item.Material.ID})
		default:
			res.Failures = append(res.Failures, fmt.Errorf("%s: %w", item.Material.ID, err))
			continue
		}

		if !item.OpeningStock.IsPositive() {
			continue
		}
		if _, err := imp.inventory.RegisterEntry(ctx, domain.MovementRequest{
			MaterialID: item.Material.ID,
			Quantity:   item.OpeningStock,
			Date:       imp.now(),
			UserID:     imp.userID,
			Notes:      "estoque de abertura (importação de catálogo)",
		}); err != nil {
			res.Failures = append(res.Failures, fmt.Errorf("%s: estoque de abertura: %w", item.Material.ID, err))
			continue
		}
		res.Entries++
	}

	imp.logger.Info("Importação de catálogo concluída.", map[string]interface{}{
		"created":  res.Created,
		"skipped":  res.Skipped,
		"entries":  res.Entries,
		"failures": len(res.Failures),
		"dry_run":  dryRun,
	})
	return res
}

func isConflict(err error) bool {
	appErr, ok := apperror.AsAppError(err)
	return ok && appErr.Category() == "CONFLICT"
}

// awaitsOpeningStock diz se um material já cadastrado ainda deve receber o
// estoque de abertura do catálogo.
func (imp *Importer) awaitsOpeningStock(ctx context.Context, item Item) (bool, error) {
	if !item.OpeningStock.IsPositive() {
		return false, nil
	}
	movements, err := imp.inventory.ListMovements(ctx, domain.MovementFilter{MaterialID: item.Material.ID})
	if err != nil {
		return false, err
	}
	return len(movements) == 0, nil
}
