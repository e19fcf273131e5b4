package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCreateTableWithOptions(t *testing.T) {
	require := require.New(t)
	stmt, err := Parse("CREATE TABLE events (id INT PRIMARY KEY, name TEXT) WITH (connector = 'datagen');")
	require.NoError(err)
	ct, ok := stmt.(CreateTable)
	require.True(ok)
	require.Equal("events", ct.Name)
	require.Len(ct.Columns, 2)
	require.True(ct.Columns[0].Primary)
	require.False(ct.Columns[0].Nullable)
	require.True(ct.Columns[1].Nullable)
	require.Equal("datagen", ct.Options["connector"])
}

func TestParseDropTableIfExists(t *testing.T) {
	require := require.New(t)
	stmt, err := Parse("DROP TABLE IF EXISTS widgets")
	require.NoError(err)
	dt, ok := stmt.(DropTable)
	require.True(ok)
	require.True(dt.IfExists)
	require.Equal("widgets", dt.Name)
}

func TestParseInsertWithExplicitColumns(t *testing.T) {
	require := require.New(t)
	stmt, err := Parse("INSERT INTO widgets (id, name) VALUES (1, 'a'), (2, 'b');")
	require.NoError(err)
	ins, ok := stmt.(Insert)
	require.True(ok)
	require.Equal([]string{"id", "name"}, ins.Columns)
	require.Len(ins.Values, 2)
	require.Equal(IntLit{Value: 1}, ins.Values[0][0])
	require.Equal(StringLit{Value: "a"}, ins.Values[0][1])
}

func TestParseInsertSelect(t *testing.T) {
	require := require.New(t)
	stmt, err := Parse("insert into snk select a from src;")
	require.NoError(err)
	ins, ok := stmt.(Insert)
	require.True(ok)
	require.Equal("snk", ins.Table)
	require.Nil(ins.Values)
	require.NotNil(ins.Query)
	require.Equal("src", ins.Query.From)
	require.Len(ins.Query.Projection, 1)
	require.Equal(Identifier{Name: "a"}, ins.Query.Projection[0].Expr)
}

func TestParseSelectStarFromWhereGroupOrderLimit(t *testing.T) {
	require := require.New(t)
	stmt, err := Parse("SELECT COUNT(*), status FROM events WHERE status = 'ok' GROUP BY status ORDER BY status DESC LIMIT 10 OFFSET 5;")
	require.NoError(err)
	sel, ok := stmt.(Select)
	require.True(ok)
	require.Len(sel.Projection, 2)
	require.Equal("events", sel.From)
	require.NotNil(sel.Where)
	require.Len(sel.GroupBy, 1)
	require.Len(sel.OrderBy, 1)
	require.True(sel.OrderBy[0].Desc)
	require.Equal(IntLit{Value: 10}, sel.Limit)
	require.Equal(IntLit{Value: 5}, sel.Offset)

	fc, ok := sel.Projection[0].Expr.(FuncCall)
	require.True(ok)
	require.Equal("COUNT", fc.Name)
	require.True(fc.Star)
}

func TestParseExprPrecedence(t *testing.T) {
	require := require.New(t)
	stmt, err := Parse("SELECT a FROM t WHERE a = 1 AND b = 2 OR c = 3;")
	require.NoError(err)
	sel := stmt.(Select)
	// OR binds loosest: (a=1 AND b=2) OR (c=3)
	top, ok := sel.Where.(BinaryExpr)
	require.True(ok)
	require.Equal("OR", top.Op)
	left, ok := top.Left.(BinaryExpr)
	require.True(ok)
	require.Equal("AND", left.Op)
}

func TestParseKillJobAndShowJobsIntercepted(t *testing.T) {
	require := require.New(t)

	stmt, err := Parse("kill job 3fa85f64-5717-4562-b3fc-2c963f66afa6;")
	require.NoError(err)
	kj, ok := stmt.(KillJob)
	require.True(ok)
	require.Equal("3fa85f64-5717-4562-b3fc-2c963f66afa6", kj.JobID)

	stmt, err = Parse("show jobs;")
	require.NoError(err)
	_, ok = stmt.(ShowJobs)
	require.True(ok)
}

func TestParseRejectsTrailingGarbage(t *testing.T) {
	_, err := Parse("SELECT a FROM t; garbage")
	require.Error(t, err)
}

func TestParseRejectsUnterminatedString(t *testing.T) {
	_, err := Parse("SELECT 'unterminated FROM t")
	require.Error(t, err)
}
