package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests are skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("pfledger"),
		tcpostgres.WithUsername("pfledger"),
		tcpostgres.WithPassword("pfledger"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestPostgresStore(t *testing.T) {
	dsn := startPostgres(t)

	s, err := NewPostgresStore(context.Background(), PostgresConfig{URL: dsn}, quietLogger)
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestPostgresStoreSharedAcrossPools(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	first, err := NewPostgresStore(ctx, PostgresConfig{URL: dsn}, quietLogger)
	require.NoError(t, err)
	defer first.Close()
	second, err := NewPostgresStore(ctx, PostgresConfig{URL: dsn}, quietLogger)
	require.NoError(t, err, "schema creation must be idempotent")
	defer second.Close()

	p := NewPersister(first, DefaultKey, quietLogger)
	l := sampleLedger(t)
	require.NoError(t, p.Save(ctx, l))

	got, err := NewPersister(second, DefaultKey, quietLogger).Load(ctx)
	require.NoError(t, err)
	assertLedgerEqual(t, l, got)
}

func TestPostgresStoreBadURL(t *testing.T) {
	_, err := NewPostgresStore(context.Background(), PostgresConfig{URL: "postgres://%zz"}, quietLogger)
	assert.Error(t, err)
}
