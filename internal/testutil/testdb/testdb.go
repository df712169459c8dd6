//go:build integration

// Package testdb starts a throwaway Postgres container with the schema applied.
package testdb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/yigit/classjournal/internal/app/migrations"
)

type DBHandle struct {
	Pool *pgxpool.Pool
	stop func(context.Context) error
}

func (h *DBHandle) Close() {
	if h.Pool != nil {
		h.Pool.Close()
	}
	if h.stop != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.stop(ctx)
	}
}

// Start runs postgres, waits until it accepts connections and applies the migrations
func Start(ctx context.Context) (*DBHandle, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	pg, err := postgres.RunContainer(ctx,
		tc.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("classjournal"),
		postgres.WithUsername("classjournal"),
		postgres.WithPassword("classjournal"),
		tc.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	uri, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pg.Terminate(ctx)
		return nil, err
	}

	pool, err := pgxpool.New(ctx, uri)
	if err != nil {
		_ = pg.Terminate(ctx)
		return nil, err
	}

	if err := migrations.NewMigrator(pool, zerolog.Nop()).Up(ctx); err != nil {
		pool.Close()
		_ = pg.Terminate(ctx)
		return nil, err
	}

	return &DBHandle{Pool: pool, stop: pg.Terminate}, nil
}

// New starts a database for one test and closes it on cleanup
func New(t *testing.T) *pgxpool.Pool {
	t.Helper()
	h, err := Start(context.Background())
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(h.Close)
	return h.Pool
}
