package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// The till layer scans session rows into non-pointer amount fields; the
// columns behind them must never be nullable or an open row would fail to
// scan.
func TestSessionColumnsCarryDefaults(t *testing.T) {
	stmt := createStatementFor(t, "pos_sessions")
	require.Regexp(t, `cash_amount\s+NUMERIC\(12,3\) NOT NULL DEFAULT 0`, stmt)
	require.Regexp(t, `knet_amount\s+NUMERIC\(12,3\) NOT NULL DEFAULT 0`, stmt)
	require.Regexp(t, `profile\s+TEXT NOT NULL DEFAULT ''`, stmt)
}

func createStatementFor(t *testing.T, table string) string {
	t.Helper()
	for _, stmt := range schemaStatements {
		if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS "+table+" ") {
			return stmt
		}
	}
	t.Fatalf("no create statement for table %s", table)
	return ""
}
