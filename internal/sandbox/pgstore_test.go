package sandbox_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fimlabs/paygate/internal/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPGStore(t *testing.T) *sandbox.PGStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed store test in short mode")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(context.Background())) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%d/testdb?sslmode=disable", host, port.Int())
	store, err := sandbox.ConnectPG(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func TestPGStoreCharges(t *testing.T) {
	store := setupPGStore(t)
	ctx := context.Background()

	charge := &sandbox.Charge{
		ID:        "ch_pg_1",
		Status:    sandbox.StatusAuthorized,
		Amount:    1000,
		Currency:  "usd",
		CardLast4: "4242",
		OrderID:   "order-1",
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.CreateCharge(ctx, charge))

	got, err := store.GetCharge(ctx, "ch_pg_1")
	require.NoError(t, err)
	assert.Equal(t, sandbox.StatusAuthorized, got.Status)
	assert.Equal(t, int64(1000), got.Amount)
	assert.Equal(t, "4242", got.CardLast4)

	got.Status = sandbox.StatusCaptured
	got.CapturedAmount = 700
	require.NoError(t, store.UpdateCharge(ctx, got))

	got, err = store.GetCharge(ctx, "ch_pg_1")
	require.NoError(t, err)
	assert.Equal(t, sandbox.StatusCaptured, got.Status)
	assert.Equal(t, int64(700), got.CapturedAmount)

	t.Run("missing charge", func(t *testing.T) {
		_, err := store.GetCharge(ctx, "ch_nope")
		assert.ErrorIs(t, err, sandbox.ErrChargeNotFound)

		err = store.UpdateCharge(ctx, &sandbox.Charge{ID: "ch_nope"})
		assert.ErrorIs(t, err, sandbox.ErrChargeNotFound)
	})

	t.Run("refund rows reference the charge", func(t *testing.T) {
		refund := &sandbox.Refund{
			ID:        "re_pg_1",
			ChargeID:  "ch_pg_1",
			Amount:    700,
			CreatedAt: time.Now(),
		}
		assert.NoError(t, store.CreateRefund(ctx, refund))
	})
}

func TestPGStoreCustomers(t *testing.T) {
	store := setupPGStore(t)
	ctx := context.Background()

	customer := &sandbox.Customer{
		ID:         "cus_pg_1",
		CardNumber: "4242424242424242",
		CardMonth:  9,
		CardYear:   time.Now().Year() + 1,
		CardCVC:    "123",
		Email:      "jim@example.com",
		CreatedAt:  time.Now(),
	}
	require.NoError(t, store.CreateCustomer(ctx, customer))

	got, err := store.GetCustomer(ctx, "cus_pg_1")
	require.NoError(t, err)
	assert.Equal(t, "4242424242424242", got.CardNumber)
	assert.False(t, got.Deleted)

	got.Deleted = true
	require.NoError(t, store.UpdateCustomer(ctx, got))

	got, err = store.GetCustomer(ctx, "cus_pg_1")
	require.NoError(t, err)
	assert.True(t, got.Deleted)

	_, err = store.GetCustomer(ctx, "cus_nope")
	assert.ErrorIs(t, err, sandbox.ErrCustomerNotFound)
}
