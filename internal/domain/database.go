package domain

import "context"

// Database é o contrato de armazenamento que todo backend deve cumprir.
// A camada de negócio depende apenas desta interface; os backends são intercambiáveis.
type Database interface {
	// GetMaterial retorna NotFoundError para IDs desconhecidos.
	GetMaterial(ctx context.Context, id string) (Material, error)
	// SaveMaterial insere ou substitui o material com o mesmo ID.
	SaveMaterial(ctx context.Context, m Material) error
	ListMaterials(ctx context.Context, filter MaterialFilter) ([]Material, error)
	// RecordMovement acrescenta um movimento, atribuindo ID e RecordedAt.
	// Falha com StorageError se o material referenciado não existir.
	RecordMovement(ctx context.Context, mv Movement) (Movement, error)
	// ListMovements retorna os movimentos em ordem crescente de Timestamp.
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
	// Atomically executa fn numa visão transacional. Se fn retornar erro,
	// nada do que foi escrito através de tx é mantido.
	Atomically(ctx context.Context, fn func(tx Database) error) error
}
