package planner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcvidal/datapilot/pkg/frame"
)

func TestNormalizeFrame(t *testing.T) {
	f, err := frame.New([]string{"name", "points"}, [][]frame.Value{
		{"Haaland", 212.0},
		{"Salah", 211.0},
	})
	require.NoError(t, err)

	n := NewNormalizer()
	obs, art := n.Normalize("load_player_snapshot", f)

	assert.Equal(t, StatusOK, obs.Status)
	assert.Equal(t, KindDataFrame, obs.Kind)
	assert.Equal(t, []int{2, 2}, obs.Shape)

	require.NotNil(t, art)
	assert.Equal(t, []string{"name", "points"}, art.Columns)
	assert.Len(t, art.Preview, 2)

	// The artifact holds its own copy, not the frame the tool returned.
	assert.NotSame(t, f, art.Frame)
	assert.Equal(t, 2, art.Frame.NumRows())
	names, err := art.Frame.Column("name")
	require.NoError(t, err)
	assert.Equal(t, []frame.Value{"Haaland", "Salah"}, names)
}

func TestNormalizePreviewIsBounded(t *testing.T) {
	rows := make([][]frame.Value, 100)
	for i := range rows {
		rows[i] = []frame.Value{float64(i)}
	}
	f, err := frame.New([]string{"v"}, rows)
	require.NoError(t, err)

	_, art := NewNormalizer().Normalize("load_player_snapshot", f)
	assert.Len(t, art.Preview, previewRows)
	assert.Equal(t, 100, art.Frame.NumRows(), "the artifact keeps the full dataset")
}

func TestNormalizeText(t *testing.T) {
	obs, art := NewNormalizer().Normalize("describe", "hello world")
	assert.Equal(t, KindText, obs.Kind)
	assert.Equal(t, 11, obs.Length)
	assert.Equal(t, "hello world", art.Text)
	assert.False(t, art.Truncated)
}

func TestNormalizeTextTruncation(t *testing.T) {
	long := strings.Repeat("x", maxTextArtifact+100)
	obs, art := NewNormalizer().Normalize("describe", long)

	assert.Equal(t, maxTextArtifact+100, obs.Length, "observation reports the true length")
	assert.Len(t, art.Text, maxTextArtifact)
	assert.True(t, art.Truncated)
}

func TestNormalizeScalars(t *testing.T) {
	n := NewNormalizer()

	obs, art := n.Normalize("count", 42)
	assert.Equal(t, KindScalar, obs.Kind)
	assert.Equal(t, 42, obs.Value)
	assert.Equal(t, 42, art.Value)

	obs, _ = n.Normalize("ratio", 0.5)
	assert.Equal(t, 0.5, obs.Value)

	obs, _ = n.Normalize("flag", true)
	assert.Equal(t, true, obs.Value)

	obs, art = n.Normalize("nothing", nil)
	assert.Equal(t, KindScalar, obs.Kind)
	assert.Nil(t, obs.Value)
	require.NotNil(t, art)
}

func TestNormalizeStructured(t *testing.T) {
	n := NewNormalizer()

	obs, art := n.Normalize("lookup", map[string]interface{}{"a": 1, "b": 2})
	assert.Equal(t, KindJSON, obs.Kind)
	assert.Equal(t, 2, obs.Count)
	assert.NotNil(t, art.Raw)

	obs, _ = n.Normalize("list", []string{"x", "y", "z"})
	assert.Equal(t, KindJSON, obs.Kind)
	assert.Equal(t, 3, obs.Count)
}

func TestNormalizeUnknownFallback(t *testing.T) {
	type opaque struct{ v int }

	obs, art := NewNormalizer().Normalize("weird", opaque{v: 7})
	assert.Equal(t, StatusOK, obs.Status)
	assert.Equal(t, KindUnknown, obs.Kind)
	assert.NotEmpty(t, art.Text)
}

func TestNormalizeOverrideWins(t *testing.T) {
	n := NewNormalizer()
	n.RegisterOverride("nl_to_code", CodeOverride())

	raw := map[string]interface{}{"code": "df_out = df_in.copy()"}
	obs, art := n.Normalize("nl_to_code", raw)

	assert.Equal(t, "nl_to_code", obs.Tool)
	assert.Equal(t, StatusOK, obs.Status)
	assert.Equal(t, KindCode, obs.Kind)
	assert.Equal(t, len("df_out = df_in.copy()"), obs.Length)
	assert.Equal(t, "df_out = df_in.copy()", art.Code)
}

func TestCodeOverrideMissingField(t *testing.T) {
	obs, art := CodeOverride()(map[string]interface{}{"note": "no code here"})
	assert.Equal(t, KindCode, obs.Kind)
	assert.Zero(t, obs.Length)
	assert.Empty(t, art.Code)
}
