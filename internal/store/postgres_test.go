package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postgresDSN skips the test unless a Postgres instance is configured.
func postgresDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("ROWKIT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ROWKIT_TEST_POSTGRES_DSN not set")
	}
	return dsn
}

func TestPostgres_RoundTrip(t *testing.T) {
	ctx := context.Background()
	p, err := OpenPostgres(ctx, postgresDSN(t))
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, DialectPostgres, p.Dialect())

	_, err = p.Exec(ctx, "DROP TABLE IF EXISTS widgets")
	require.NoError(t, err)
	_, err = p.Exec(ctx, "DELETE FROM rowkit_schemas WHERE entity = $1", widgetSchema.Name)
	require.NoError(t, err)

	res, err := Migrate(ctx, p, widgetSchema)
	require.NoError(t, err)
	assert.True(t, res.Created)

	rows, err := p.Query(ctx, "INSERT INTO widgets (name, active) VALUES ($1, $2) RETURNING id AS widget_id", "bolt", true)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	id, ok := rows[0].Get("widget_id")
	require.True(t, ok)
	assert.IsType(t, int64(0), id)

	n, err := QueryCount(ctx, p, "SELECT COUNT(*) FROM widgets WHERE name = $1", "bolt")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = QueryOne(ctx, p, "SELECT id FROM widgets WHERE name = $1", "nut")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenPostgres_BadDSN(t *testing.T) {
	_, err := OpenPostgres(context.Background(), "postgres://%zz")
	assert.Error(t, err)
}
