package reservations

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Tx abstrae la transacción de base de datos para poder probar el servicio
// sin un Postgres real.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Repository define las operaciones de persistencia del núcleo de reservas.
// Las lecturas ForUpdate deben bloquear la fila hasta el commit o rollback.
type Repository interface {
	BeginTx(ctx context.Context) (Tx, error)

	GetResourceForUpdate(ctx context.Context, tx Tx, resourceID string) (*Resource, error)
	SaveResource(ctx context.Context, tx Tx, r *Resource) error

	CreateReservation(ctx context.Context, tx Tx, rv *Reservation) error
	GetReservationForUpdate(ctx context.Context, tx Tx, reservationID string) (*Reservation, error)
	UpdateReservationStatus(ctx context.Context, tx Tx, reservationID string, to Status) error

	MovementExists(ctx context.Context, tx Tx, reservationID, movType string) (bool, error)
	RecordMovement(ctx context.Context, tx Tx, mv *CapacityMovement) error

	GetReservation(ctx context.Context, reservationID string) (*Reservation, error)
	ListByRequester(ctx context.Context, requesterID string, status Status, limit, offset int) ([]Reservation, error)
	ListByOwner(ctx context.Context, ownerID string, status Status, limit, offset int) ([]Reservation, error)
	StatsByRequester(ctx context.Context, requesterID string) (*RequesterStats, error)
}

// PostgresRepository implementa Repository usando PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository crea una nueva instancia de PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// PostgresTx implementa la interfaz Tx.
type PostgresTx struct {
	tx pgx.Tx
}

func (t *PostgresTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return mapConflict(err)
	}
	return nil
}

func (t *PostgresTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// BeginTx inicia una nueva transacción.
func (r *PostgresRepository) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &PostgresTx{tx: tx}, nil
}

const resourceColumns = `id, comercio_id, tipo, titulo, COALESCE(descripcion, ''),
	cantidad, cantidad_disponible, precio_descuento, COALESCE(precio_original, 0),
	activo, cerrado_por_comercio, ventana_inicio, ventana_fin, created_at, updated_at`

// GetResourceForUpdate obtiene el recurso con lock pesimista (FOR UPDATE).
func (r *PostgresRepository) GetResourceForUpdate(ctx context.Context, tx Tx, resourceID string) (*Resource, error) {
	pgTx := tx.(*PostgresTx).tx

	query := `
		SELECT ` + resourceColumns + `
		FROM recursos
		WHERE id = $1
		FOR UPDATE
	`

	res, err := scanResource(pgTx.QueryRow(ctx, query, resourceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("failed to get resource with lock: %w", err)
	}
	return res, nil
}

// SaveResource persiste capacidad restante y estado de actividad del recurso.
func (r *PostgresRepository) SaveResource(ctx context.Context, tx Tx, res *Resource) error {
	pgTx := tx.(*PostgresTx).tx

	query := `
		UPDATE recursos
		SET cantidad_disponible = $1,
		    activo = $2,
		    cerrado_por_comercio = $3,
		    updated_at = NOW()
		WHERE id = $4
	`

	tag, err := pgTx.Exec(ctx, query, res.RemainingCapacity, res.Active, res.ClosedByOwner, res.ID)
	if err != nil {
		return fmt.Errorf("failed to save resource: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrResourceNotFound
	}
	return nil
}

const reservationColumns = `id, recurso_id, usuario_id, cantidad, precio_unitario,
	total, estado, codigo_qr, COALESCE(notas, ''), created_at, updated_at`

// CreateReservation inserta la reserva dentro de la transacción en curso.
func (r *PostgresRepository) CreateReservation(ctx context.Context, tx Tx, rv *Reservation) error {
	pgTx := tx.(*PostgresTx).tx

	query := `
		INSERT INTO pedidos (id, recurso_id, usuario_id, cantidad, precio_unitario,
			total, estado, codigo_qr, notas, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := pgTx.Exec(ctx, query,
		rv.ID, rv.ResourceID, rv.RequesterID, rv.Quantity, rv.UnitPriceAtReservation,
		rv.Total, rv.Status, rv.PickupCode, rv.Notas, rv.CreatedAt, rv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert reservation: %w", err)
	}
	return nil
}

// GetReservationForUpdate obtiene la reserva con lock pesimista.
func (r *PostgresRepository) GetReservationForUpdate(ctx context.Context, tx Tx, reservationID string) (*Reservation, error) {
	pgTx := tx.(*PostgresTx).tx

	query := `
		SELECT ` + reservationColumns + `
		FROM pedidos
		WHERE id = $1
		FOR UPDATE
	`

	rv, err := scanReservation(pgTx.QueryRow(ctx, query, reservationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to get reservation with lock: %w", err)
	}
	return rv, nil
}

// UpdateReservationStatus escribe el nuevo estado de la reserva.
func (r *PostgresRepository) UpdateReservationStatus(ctx context.Context, tx Tx, reservationID string, to Status) error {
	pgTx := tx.(*PostgresTx).tx

	query := `
		UPDATE pedidos
		SET estado = $1,
		    updated_at = NOW()
		WHERE id = $2
	`

	tag, err := pgTx.Exec(ctx, query, to, reservationID)
	if err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReservationNotFound
	}
	return nil
}

// MovementExists verifica si ya existe un movimiento para la reserva y tipo
// indicados; es la llave de idempotencia de las compensaciones.
func (r *PostgresRepository) MovementExists(ctx context.Context, tx Tx, reservationID, movType string) (bool, error) {
	pgTx := tx.(*PostgresTx).tx

	query := `
		SELECT EXISTS(
			SELECT 1 FROM movimientos_capacidad
			WHERE pedido_id = $1 AND tipo = $2
		)
	`

	var exists bool
	if err := pgTx.QueryRow(ctx, query, reservationID, movType).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check movement: %w", err)
	}
	return exists, nil
}

// RecordMovement inserta el registro de movimiento de capacidad.
func (r *PostgresRepository) RecordMovement(ctx context.Context, tx Tx, mv *CapacityMovement) error {
	pgTx := tx.(*PostgresTx).tx

	query := `
		INSERT INTO movimientos_capacidad (id, recurso_id, pedido_id, cantidad, tipo, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := pgTx.Exec(ctx, query, mv.ID, mv.ResourceID, mv.ReservationID, mv.Change, mv.Type, mv.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert movement record: %w", err)
	}
	return nil
}

// GetReservation busca una reserva por id fuera de transacción.
func (r *PostgresRepository) GetReservation(ctx context.Context, reservationID string) (*Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM pedidos
		WHERE id = $1
	`

	rv, err := scanReservation(r.db.QueryRow(ctx, query, reservationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return rv, nil
}

// ListByRequester lista los pedidos de un usuario, opcionalmente filtrados
// por estado, del más reciente al más antiguo.
func (r *PostgresRepository) ListByRequester(ctx context.Context, requesterID string, status Status, limit, offset int) ([]Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM pedidos
		WHERE usuario_id = $1 AND ($2 = '' OR estado = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	return r.queryReservations(ctx, query, requesterID, string(status), limit, offset)
}

// ListByOwner lista los pedidos recibidos por los recursos de un comercio.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string, status Status, limit, offset int) ([]Reservation, error) {
	query := `
		SELECT p.id, p.recurso_id, p.usuario_id, p.cantidad, p.precio_unitario,
			p.total, p.estado, p.codigo_qr, COALESCE(p.notas, ''), p.created_at, p.updated_at
		FROM pedidos p
		JOIN recursos rc ON p.recurso_id = rc.id
		WHERE rc.comercio_id = $1 AND ($2 = '' OR p.estado = $2)
		ORDER BY p.created_at DESC
		LIMIT $3 OFFSET $4
	`
	return r.queryReservations(ctx, query, ownerID, string(status), limit, offset)
}

// StatsByRequester calcula las estadísticas de pedidos de un usuario.
func (r *PostgresRepository) StatsByRequester(ctx context.Context, requesterID string) (*RequesterStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(CASE WHEN estado = 'entregado' THEN 1 END),
			COUNT(CASE WHEN estado = 'cancelado' THEN 1 END),
			COALESCE(SUM(CASE WHEN estado = 'entregado' THEN total ELSE 0 END), 0),
			COALESCE(AVG(CASE WHEN estado = 'entregado' THEN total ELSE NULL END), 0)
		FROM pedidos
		WHERE usuario_id = $1
	`

	var stats RequesterStats
	err := r.db.QueryRow(ctx, query, requesterID).Scan(
		&stats.TotalPedidos,
		&stats.PedidosCompletados,
		&stats.PedidosCancelados,
		&stats.TotalAhorrado,
		&stats.PromedioPorPedido,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get requester stats: %w", err)
	}
	return &stats, nil
}

func (r *PostgresRepository) queryReservations(ctx context.Context, query string, args ...any) ([]Reservation, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		rv, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		out = append(out, *rv)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (*Resource, error) {
	var res Resource
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

func scanReservation(row rowScanner) (*Reservation, error) {
	var rv Reservation
	err := row.Scan(
		&rv.ID, &rv.ResourceID, &rv.RequesterID, &rv.Quantity, &rv.UnitPriceAtReservation,
		&rv.Total, &rv.Status, &rv.PickupCode, &rv.Notas, &rv.CreatedAt, &rv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

// mapConflict traduce los abortos por serialización o deadlock de Postgres a
// ErrTransactionConflict para que el llamador decida reintentar.
func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return fmt.Errorf("%w: %s", ErrTransactionConflict, pgErr.Message)
	}
	return fmt.Errorf("failed to commit transaction: %w", err)
}
