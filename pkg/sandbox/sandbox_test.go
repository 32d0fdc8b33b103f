package sandbox

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcvidal/datapilot/pkg/frame"
)

func playersFrame(t *testing.T) *frame.Frame {
	t.Helper()
	f, err := frame.New(
		[]string{"player_name", "team", "position", "points", "average"},
		[][]frame.Value{
			{"Bellingham", "Real Madrid", "MID", 120.0, 8.5},
			{"Lewandowski", "Barcelona", "FWD", 98.0, 6.1},
			{"Griezmann", "Atletico", "FWD", 110.0, 7.2},
			{"Vinicius", "Real Madrid", "FWD", 110.0, 7.9},
			{"Courtois", "Real Madrid", "GK", 80.0, 5.0},
		},
	)
	require.NoError(t, err)
	return f
}

func snippet(body string) string {
	return "import pandas as pd\ndf = df_in.copy()\n" + body
}

func TestRunSortAndHead(t *testing.T) {
	e := NewExecutor()
	out, err := e.Run(snippet("df_out = df.sort_values('average', ascending=False).head(2)"), playersFrame(t))
	require.NoError(t, err)

	require.Equal(t, 2, out.NumRows())
	names, _ := out.Column("player_name")
	assert.Equal(t, []frame.Value{"Bellingham", "Vinicius"}, names)
}

func TestRunFilterEquality(t *testing.T) {
	e := NewExecutor()
	out, err := e.Run(snippet("df = df[df['team'] == 'Real Madrid']\ndf_out = df"), playersFrame(t))
	require.NoError(t, err)
	assert.Equal(t, 3, out.NumRows())
}

func TestRunCombinedMask(t *testing.T) {
	e := NewExecutor()
	code := snippet("df = df[(df['team'] == 'Real Madrid') & (df['points'] >= 100)]\ndf_out = df")
	out, err := e.Run(code, playersFrame(t))
	require.NoError(t, err)

	names, _ := out.Column("player_name")
	assert.Equal(t, []frame.Value{"Bellingham", "Vinicius"}, names)
}

func TestRunOrMask(t *testing.T) {
	e := NewExecutor()
	code := snippet("df_out = df[(df['position'] == 'GK') | (df['position'] == 'MID')]")
	out, err := e.Run(code, playersFrame(t))
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumRows())
}

func TestRunColumnSelection(t *testing.T) {
	e := NewExecutor()
	out, err := e.Run(snippet("df_out = df[['player_name', 'average']]"), playersFrame(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"player_name", "average"}, out.Columns())
	assert.Equal(t, 5, out.NumRows())
}

func TestRunAggregateComparison(t *testing.T) {
	e := NewExecutor()
	// Players scoring the column maximum.
	code := snippet("df_out = df[df['points'] >= df['points'].max()]")
	out, err := e.Run(code, playersFrame(t))
	require.NoError(t, err)

	require.Equal(t, 1, out.NumRows())
	names, _ := out.Column("player_name")
	assert.Equal(t, []frame.Value{"Bellingham"}, names)
}

func TestRunLenAndBuiltins(t *testing.T) {
	e := NewExecutor()
	out, err := e.Run(snippet("df_out = df.head(len(df))"), playersFrame(t))
	require.NoError(t, err)
	assert.Equal(t, 5, out.NumRows())

	out, err = e.Run(snippet("df_out = df.head(round(2.4))"), playersFrame(t))
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumRows())
}

func TestRunDoesNotMutateInput(t *testing.T) {
	e := NewExecutor()
	in := playersFrame(t)
	_, err := e.Run(snippet("df = df.sort_values('points')\ndf_out = df.head(1)"), in)
	require.NoError(t, err)

	names, _ := in.Column("player_name")
	assert.Equal(t, frame.Value("Bellingham"), names[0])
}

func TestRunScalarOutputFails(t *testing.T) {
	e := NewExecutor()
	_, err := e.Run(snippet("df_out = 5"), playersFrame(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse error")
}

func TestRunRejectsInvalidContract(t *testing.T) {
	e := NewExecutor()
	_, err := e.Run("import os\ndf_out = df", playersFrame(t))
	require.Error(t, err)
	var cv *ContractViolation
	assert.ErrorAs(t, err, &cv)
}

func TestRunNilInput(t *testing.T) {
	e := NewExecutor()
	_, err := e.Run(validSnippet, nil)
	assert.ErrorIs(t, err, ErrNilInput)
}

func TestRunUnknownName(t *testing.T) {
	e := NewExecutor()
	_, err := e.Run(snippet("df_out = mystery.head(1)"), playersFrame(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown name")
}

func TestRunUnsupportedMethodFailsClosed(t *testing.T) {
	e := NewExecutor()
	_, err := e.Run(snippet("df_out = df.pipe(print)"), playersFrame(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported method")
}

func TestRunMisalignedMask(t *testing.T) {
	e := NewExecutor()
	code := snippet("top = df.head(2)\ndf_out = df[top['points'] > 100]")
	_, err := e.Run(code, playersFrame(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "align")
}

func TestRunNoneComparison(t *testing.T) {
	f := frame.FromRecords([]map[string]frame.Value{
		{"name": "a", "points": 10.0},
		{"name": "b", "points": nil},
	})
	e := NewExecutor()
	out, err := e.Run(snippet("df_out = df[df['points'] != None]"), f)
	require.NoError(t, err)
	assert.Equal(t, 1, out.NumRows())
}

func TestRunLargeFrame(t *testing.T) {
	records := make([]map[string]frame.Value, 500)
	for i := range records {
		records[i] = map[string]frame.Value{"id": float64(i), "v": float64(i % 7)}
	}
	f := frame.FromRecords(records)

	e := NewExecutor()
	out, err := e.Run(snippet("df_out = df[df['v'] == 3].sort_values('id', ascending=False).head(10)"), f)
	require.NoError(t, err)
	require.Equal(t, 10, out.NumRows())
	ids, _ := out.Column("id")
	assert.Equal(t, frame.Value(497.0), ids[0])
}

func TestRunRejectsNegativeHeadAndTail(t *testing.T) {
	e := NewExecutor()
	_, err := e.Run(snippet("df_out = df.head(-2)"), playersFrame(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative row count")

	_, err = e.Run(snippet("df_out = df.tail(-1)"), playersFrame(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative row count")
}

func TestRunRejectsMalformedNumberLiteral(t *testing.T) {
	e := NewExecutor()
	_, err := e.Run(snippet("df_out = df[df['points'] > 10.5.5]"), playersFrame(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad number literal")
}

func TestRunErrorMentionsLine(t *testing.T) {
	e := NewExecutor()
	_, err := e.Run(snippet("df_out = df.sort_values('missing')"), playersFrame(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown column")
}

func ExampleExecutor_Run() {
	f, _ := frame.New([]string{"n"}, [][]frame.Value{{3.0}, {1.0}, {2.0}})
	out, _ := NewExecutor().Run(
		"import pandas as pd\ndf = df_in.copy()\ndf_out = df.sort_values('n').head(2)",
		f,
	)
	fmt.Println(out)
	// Output: Frame[2 rows x 1 cols]
}
