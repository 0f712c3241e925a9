package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/estudio123455-hue/Tugood-tugo/reservations"
)

var ErrNotFound = errors.New("catalog: recurso no encontrado")

// Filter acota el listado público de recursos.
type Filter struct {
	OwnerID    string
	Kind       reservations.ResourceKind
	OnlyActive bool
	Limit      int
	Offset     int
}

// Repository define la persistencia del catálogo. El catálogo crea recursos
// y edita sus datos comerciales; la capacidad restante es territorio
// exclusivo del núcleo de reservas.
type Repository interface {
	CreateResource(ctx context.Context, r *reservations.Resource) error
	GetResource(ctx context.Context, id string) (*reservations.Resource, error)
	ListResources(ctx context.Context, f Filter) ([]reservations.Resource, error)
	UpdateDetails(ctx context.Context, r *reservations.Resource) error
	CloseResource(ctx context.Context, id, ownerID string) (*reservations.Resource, error)
}

// PostgresRepository implementa Repository usando PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository crea una nueva instancia de PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const resourceColumns = `id, comercio_id, tipo, titulo, COALESCE(descripcion, ''),
	cantidad, cantidad_disponible, precio_descuento, COALESCE(precio_original, 0),
	activo, cerrado_por_comercio, ventana_inicio, ventana_fin, created_at, updated_at`

// CreateResource inserta un recurso nuevo con toda su capacidad disponible.
func (r *PostgresRepository) CreateResource(ctx context.Context, res *reservations.Resource) error {
	query := `
		INSERT INTO recursos (id, comercio_id, tipo, titulo, descripcion,
			cantidad, cantidad_disponible, precio_descuento, precio_original,
			activo, cerrado_por_comercio, ventana_inicio, ventana_fin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.Exec(ctx, query,
		res.ID, res.OwnerID, res.Kind, res.Titulo, res.Descripcion,
		res.TotalCapacity, res.RemainingCapacity, res.UnitPrice, res.OriginalPrice,
		res.Active, res.ClosedByOwner, res.WindowStart, res.WindowEnd,
		res.CreatedAt, res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert resource: %w", err)
	}
	return nil
}

// GetResource busca un recurso por id.
func (r *PostgresRepository) GetResource(ctx context.Context, id string) (*reservations.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM recursos WHERE id = $1`

	res, err := scanResource(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	return res, nil
}

// ListResources lista recursos ordenados por ventana de recogida.
func (r *PostgresRepository) ListResources(ctx context.Context, f Filter) ([]reservations.Resource, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	query := `
		SELECT ` + resourceColumns + `
		FROM recursos
		WHERE ($1 = '' OR comercio_id = $1)
		  AND ($2 = '' OR tipo = $2)
		  AND (NOT $3 OR activo)
		ORDER BY ventana_inicio, created_at
		LIMIT $4 OFFSET $5
	`

	rows, err := r.db.Query(ctx, query, f.OwnerID, string(f.Kind), f.OnlyActive, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	var out []reservations.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

// UpdateDetails escribe los datos comerciales editables del recurso. La
// capacidad total y la restante quedan fuera a propósito.
func (r *PostgresRepository) UpdateDetails(ctx context.Context, res *reservations.Resource) error {
	query := `
		UPDATE recursos
		SET titulo = $1,
		    descripcion = $2,
		    precio_descuento = $3,
		    precio_original = $4,
		    ventana_inicio = $5,
		    ventana_fin = $6,
		    updated_at = NOW()
		WHERE id = $7 AND comercio_id = $8
	`

	tag, err := r.db.Exec(ctx, query,
		res.Titulo, res.Descripcion, res.UnitPrice, res.OriginalPrice,
		res.WindowStart, res.WindowEnd, res.ID, res.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to update resource: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CloseResource desactiva el recurso por decisión del comercio. El cierre
// manual no se revierte al liberarse capacidad.
func (r *PostgresRepository) CloseResource(ctx context.Context, id, ownerID string) (*reservations.Resource, error) {
	query := `
		UPDATE recursos
		SET activo = FALSE,
		    cerrado_por_comercio = TRUE,
		    updated_at = NOW()
		WHERE id = $1 AND comercio_id = $2
		RETURNING ` + resourceColumns

	res, err := scanResource(r.db.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to close resource: %w", err)
	}
	return res, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (*reservations.Resource, error) {
	var res reservations.Resource
	err := row.Scan(
		&res.ID, &res.OwnerID, &res.Kind, &res.Titulo, &res.Descripcion,
		&res.TotalCapacity, &res.RemainingCapacity, &res.UnitPrice, &res.OriginalPrice,
		&res.Active, &res.ClosedByOwner, &res.WindowStart, &res.WindowEnd,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
