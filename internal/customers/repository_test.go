package customers

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type recordingExecer struct {
	statements []string
}

func (r *recordingExecer) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	r.statements = append(r.statements, sql)
	return pgconn.CommandTag{}, nil
}

// A pull refresh must only ever upsert. Deleting mirrored rows would break
// the foreign key from recorded sales and churn the ids older sales join on.
func TestPullRefreshOnlyUpserts(t *testing.T) {
	rec := &recordingExecer{}
	remote := []Customer{
		{CustomerName: "Aisha", Mobile: "96550001122"},
		{CustomerName: "Omar", Mobile: "96550003344"},
	}

	require.NoError(t, upsertSynced(context.Background(), rec, remote))
	require.Len(t, rec.statements, len(remote))
	for _, stmt := range rec.statements {
		require.True(t, strings.HasPrefix(strings.TrimSpace(stmt), "INSERT INTO customers"))
		require.Contains(t, stmt, "ON CONFLICT (mobile) DO UPDATE")
	}
}
