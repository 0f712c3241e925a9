package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrPaymentNotFound = errors.New("payments: pago no encontrado")

// HistoryFilter acota el historial de pagos de un usuario.
type HistoryFilter struct {
	RequesterID string
	Metodo      string
	Estado      string
	Limit       int
	Offset      int
}

// Repository define la persistencia de pagos.
type Repository interface {
	CreatePayment(ctx context.Context, p *Payment) error
	GetPayment(ctx context.Context, id string) (*Payment, error)
	GetByReservation(ctx context.Context, reservationID string) (*Payment, error)
	UpdateStatus(ctx context.Context, id, estado string) error
	History(ctx context.Context, f HistoryFilter) ([]Payment, error)
	GlobalStats(ctx context.Context, desde, hasta time.Time) (*Stats, error)
}

// PostgresRepository implementa Repository usando PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository crea una nueva instancia de PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const paymentColumns = `id, pedido_id, metodo, monto, estado, COALESCE(referencia_externa, ''), fecha_pago`

// CreatePayment inserta el registro de pago.
func (r *PostgresRepository) CreatePayment(ctx context.Context, p *Payment) error {
	query := `
		INSERT INTO pagos (id, pedido_id, metodo, monto, estado, referencia_externa, fecha_pago)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		p.ID, p.ReservationID, p.Metodo, p.Monto, p.Estado, p.ReferenciaExterna, p.FechaPago)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// GetPayment busca un pago por id.
func (r *PostgresRepository) GetPayment(ctx context.Context, id string) (*Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM pagos WHERE id = $1`
	return r.queryOne(ctx, query, id)
}

// GetByReservation busca el pago asociado a un pedido.
func (r *PostgresRepository) GetByReservation(ctx context.Context, reservationID string) (*Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM pagos WHERE pedido_id = $1`
	return r.queryOne(ctx, query, reservationID)
}

// UpdateStatus escribe el nuevo estado del pago.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id, estado string) error {
	tag, err := r.db.Exec(ctx, `UPDATE pagos SET estado = $1 WHERE id = $2`, estado, id)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

// History lista los pagos de un usuario del más reciente al más antiguo.
func (r *PostgresRepository) History(ctx context.Context, f HistoryFilter) ([]Payment, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	query := `
		SELECT pa.id, pa.pedido_id, pa.metodo, pa.monto, pa.estado,
			COALESCE(pa.referencia_externa, ''), pa.fecha_pago
		FROM pagos pa
		JOIN pedidos pe ON pa.pedido_id = pe.id
		WHERE pe.usuario_id = $1
		  AND ($2 = '' OR pa.metodo = $2)
		  AND ($3 = '' OR pa.estado = $3)
		ORDER BY pa.fecha_pago DESC
		LIMIT $4 OFFSET $5
	`

	rows, err := r.db.Query(ctx, query, f.RequesterID, f.Metodo, f.Estado, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.ReservationID, &p.Metodo, &p.Monto, &p.Estado,
			&p.ReferenciaExterna, &p.FechaPago); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GlobalStats calcula las estadísticas de pagos dentro del rango dado.
func (r *PostgresRepository) GlobalStats(ctx context.Context, desde, hasta time.Time) (*Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(monto), 0),
			COALESCE(AVG(monto), 0),
			COUNT(CASE WHEN estado = 'completado' THEN 1 END),
			COUNT(CASE WHEN estado = 'fallido' THEN 1 END),
			COUNT(CASE WHEN estado = 'reembolsado' THEN 1 END)
		FROM pagos
		WHERE ($1::timestamptz IS NULL OR fecha_pago >= $1)
		  AND ($2::timestamptz IS NULL OR fecha_pago <= $2)
	`

	var s Stats
	err := r.db.QueryRow(ctx, query, nullable(desde), nullable(hasta)).Scan(
		&s.TotalPagos, &s.MontoTotal, &s.MontoPromedio,
		&s.PagosExitosos, &s.PagosFallidos, &s.Reembolsos)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment stats: %w", err)
	}
	return &s, nil
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, args ...any) (*Payment, error) {
	var p Payment
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&p.ID, &p.ReservationID, &p.Metodo, &p.Monto, &p.Estado,
		&p.ReferenciaExterna, &p.FechaPago)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &p, nil
}

func nullable(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
