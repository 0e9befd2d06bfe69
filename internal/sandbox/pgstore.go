package sandbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore keeps sandbox state in PostgreSQL so a long-lived sandbox
// deployment survives restarts. The schema is created on connect.
type PGStore struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS sandbox_charges (
	id              TEXT PRIMARY KEY,
	status          TEXT NOT NULL,
	amount          BIGINT NOT NULL,
	currency        TEXT NOT NULL,
	captured_amount BIGINT NOT NULL DEFAULT 0,
	refunded_amount BIGINT NOT NULL DEFAULT 0,
	card_last4      TEXT NOT NULL DEFAULT '',
	customer_id     TEXT NOT NULL DEFAULT '',
	order_id        TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS sandbox_customers (
	id          TEXT PRIMARY KEY,
	card_number TEXT NOT NULL,
	card_month  INT NOT NULL,
	card_year   INT NOT NULL,
	card_cvc    TEXT NOT NULL DEFAULT '',
	email       TEXT NOT NULL DEFAULT '',
	deleted     BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS sandbox_refunds (
	id         TEXT PRIMARY KEY,
	charge_id  TEXT NOT NULL REFERENCES sandbox_charges(id),
	amount     BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`

func ConnectPG(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

func (s *PGStore) Close() {
	s.pool.Close()
}

func (s *PGStore) CreateCharge(ctx context.Context, c *Charge) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sandbox_charges
		 (id, status, amount, currency, captured_amount, refunded_amount, card_last4, customer_id, order_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.Status, c.Amount, c.Currency, c.CapturedAmount, c.RefundedAmount,
		c.CardLast4, c.CustomerID, c.OrderID, c.CreatedAt,
	)
	return err
}

func (s *PGStore) GetCharge(ctx context.Context, id string) (*Charge, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, status, amount, currency, captured_amount, refunded_amount, card_last4, customer_id, order_id, created_at
		 FROM sandbox_charges WHERE id = $1`, id)
	var c Charge
	err := row.Scan(&c.ID, &c.Status, &c.Amount, &c.Currency, &c.CapturedAmount,
		&c.RefundedAmount, &c.CardLast4, &c.CustomerID, &c.OrderID, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrChargeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PGStore) UpdateCharge(ctx context.Context, c *Charge) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sandbox_charges
		 SET status = $2, captured_amount = $3, refunded_amount = $4
		 WHERE id = $1`,
		c.ID, c.Status, c.CapturedAmount, c.RefundedAmount,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrChargeNotFound
	}
	return nil
}

func (s *PGStore) CreateCustomer(ctx context.Context, c *Customer) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sandbox_customers
		 (id, card_number, card_month, card_year, card_cvc, email, deleted, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.CardNumber, c.CardMonth, c.CardYear, c.CardCVC, c.Email, c.Deleted, c.CreatedAt,
	)
	return err
}

func (s *PGStore) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, card_number, card_month, card_year, card_cvc, email, deleted, created_at
		 FROM sandbox_customers WHERE id = $1`, id)
	var c Customer
	err := row.Scan(&c.ID, &c.CardNumber, &c.CardMonth, &c.CardYear, &c.CardCVC,
		&c.Email, &c.Deleted, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PGStore) UpdateCustomer(ctx context.Context, c *Customer) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sandbox_customers SET deleted = $2 WHERE id = $1`,
		c.ID, c.Deleted,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

func (s *PGStore) CreateRefund(ctx context.Context, r *Refund) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sandbox_refunds (id, charge_id, amount, created_at)
		 VALUES ($1, $2, $3, $4)`,
		r.ID, r.ChargeID, r.Amount, r.CreatedAt,
	)
	return err
}
