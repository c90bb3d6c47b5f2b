package steps

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/countonsheep/internal/core"
)

type unitMap map[string]*core.Unit

func (m unitMap) Lookup(name string) (*core.Unit, bool) {
	u, ok := m[name]
	return u, ok
}

// runYAML binds a YAML manifest and executes it against the given table.
func runYAML(t *testing.T, manifest string, header []string, rows [][]string) (*core.Table, error) {
	t.Helper()

	m, err := core.ParseManifest("test.yaml", core.FormatYAML, []byte(manifest))
	require.NoError(t, err)
	u := core.BuildUnit("test", m)
	require.NoError(t, u.Err)

	in, err := core.NewTable(header, rows)
	require.NoError(t, err)
	return core.Execute(context.Background(), unitMap{"test": u}, "test", in)
}

func mustTable(t *testing.T, header []string, rows [][]string) *core.Table {
	t.Helper()
	tbl, err := core.NewTable(header, rows)
	require.NoError(t, err)
	return tbl
}

func TestSwapColumns(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		header   []string
		rows     [][]string
		want     *core.Table
		wantErr  bool
	}{
		{
			name:     "swaps first two columns",
			manifest: "steps: [{name: swap_columns}]",
			header:   []string{"A", "B", "C"},
			rows:     [][]string{{"1", "2", "3"}},
			want:     mustTable(t, []string{"B", "A", "C"}, [][]string{{"2", "1", "3"}}),
		},
		{
			name:     "single column passes through",
			manifest: "steps: [{name: swap_columns}]",
			header:   []string{"A"},
			rows:     [][]string{{"1"}, {"2"}},
			want:     mustTable(t, []string{"A"}, [][]string{{"1"}, {"2"}}),
		},
		{
			name:     "explicit positions",
			manifest: "steps: [{name: swap_columns, args: {first: 0, second: 2}}]",
			header:   []string{"A", "B", "C"},
			rows:     [][]string{{"1", "2", "3"}},
			want:     mustTable(t, []string{"C", "B", "A"}, [][]string{{"3", "2", "1"}}),
		},
		{
			name:     "explicit position out of range",
			manifest: "steps: [{name: swap_columns, args: {second: 5}}]",
			header:   []string{"A", "B"},
			rows:     [][]string{{"1", "2"}},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := runYAML(t, tt.manifest, tt.header, tt.rows)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrUnitRuntime)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("table mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSwapPreservesRowsAndColumnSet(t *testing.T) {
	header := []string{"id", "name", "email", "age"}
	rows := [][]string{
		{"1", "ann", "a@example.com", "30"},
		{"2", "bob", "b@example.com", "41"},
		{"3", "cy", "c@example.com", "25"},
	}

	got, err := runYAML(t, "steps: [{name: swap_columns}]", header, rows)
	require.NoError(t, err)

	assert.Equal(t, len(rows), got.NumRows())
	assert.ElementsMatch(t, header, got.Names())
	assert.Equal(t, []string{"name", "id", "email", "age"}, got.Names())
	for i, row := range rows {
		assert.Equal(t, []string{row[1], row[0], row[2], row[3]}, got.Row(i))
	}
}

func TestColumnSteps(t *testing.T) {
	header := []string{"A", "B", "C"}
	rows := [][]string{{"1", "2", "3"}, {"4", "5", "6"}}

	t.Run("select", func(t *testing.T) {
		got, err := runYAML(t, "steps: [{name: select_columns, args: {columns: [C, A]}}]", header, rows)
		require.NoError(t, err)
		assert.Equal(t, []string{"C", "A"}, got.Names())
		assert.Equal(t, []string{"6", "4"}, got.Row(1))
	})

	t.Run("drop", func(t *testing.T) {
		got, err := runYAML(t, "steps: [{name: drop_columns, args: {columns: B}}]", header, rows)
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "C"}, got.Names())
	})

	t.Run("drop missing fails", func(t *testing.T) {
		_, err := runYAML(t, "steps: [{name: drop_columns, args: {columns: Z}}]", header, rows)
		assert.ErrorIs(t, err, core.ErrUnitRuntime)
	})

	t.Run("drop missing allowed", func(t *testing.T) {
		got, err := runYAML(t, "steps: [{name: drop_columns, args: {columns: [Z, A], missing_ok: true}}]", header, rows)
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "C"}, got.Names())
	})

	t.Run("rename", func(t *testing.T) {
		got, err := runYAML(t, "steps: [{name: rename_column, args: {from: B, to: Beta}}]", header, rows)
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "Beta", "C"}, got.Names())
	})
}

func TestRowSteps(t *testing.T) {
	header := []string{"name", "status"}
	rows := [][]string{
		{" ann ", "active"},
		{"bob", "Inactive"},
		{"cy", "ACTIVE"},
		{"bob", "Inactive"},
	}

	t.Run("trim", func(t *testing.T) {
		got, err := runYAML(t, "steps: [{name: trim_space, args: {columns: [name]}}]", header, rows)
		require.NoError(t, err)
		assert.Equal(t, "ann", got.Columns[0].Values[0])
	})

	t.Run("filter equals ignore case", func(t *testing.T) {
		got, err := runYAML(t, "steps: [{name: filter_rows, args: {column: status, equals: active, ignore_case: true}}]", header, rows)
		require.NoError(t, err)
		assert.Equal(t, []string{" ann ", "cy"}, got.Columns[0].Values)
	})

	t.Run("filter not equals", func(t *testing.T) {
		got, err := runYAML(t, "steps: [{name: filter_rows, args: {column: status, not_equals: Inactive}}]", header, rows)
		require.NoError(t, err)
		assert.Equal(t, 2, got.NumRows())
	})

	t.Run("dedupe", func(t *testing.T) {
		got, err := runYAML(t, "steps: [{name: dedupe_rows}]", header, rows)
		require.NoError(t, err)
		assert.Equal(t, 3, got.NumRows())
	})
}

func TestFilterRowsRejectsAmbiguousArgs(t *testing.T) {
	def, ok := core.LookupStep("filter_rows")
	require.True(t, ok)

	_, err := def.Factory(core.Args{"column": "a"})
	assert.Error(t, err)
	_, err = def.Factory(core.Args{"column": "a", "equals": "x", "not_equals": "y"})
	assert.Error(t, err)
	_, err = def.Factory(core.Args{"column": "a", "equals": "x", "bogus": 1})
	assert.Error(t, err)
}

func TestNormalizeSteps(t *testing.T) {
	header := []string{"date", "amount", "flag", "state"}
	rows := [][]string{
		{"1/15/2024", "$1,234.50", "yes", "new york"},
		{"2024-02-01", "(12.00)", "N", "ca"},
		{"", "", "", "Atlantis"},
	}

	got, err := runYAML(t, `
steps:
  - name: normalize_dates
    args: {columns: [date]}
  - name: normalize_numbers
    args: {columns: [amount]}
  - name: normalize_bools
    args: {columns: [flag], "true": Y, "false": N}
  - name: normalize_us_states
    args: {columns: [state]}
`, header, rows)
	require.NoError(t, err)

	want := mustTable(t, header, [][]string{
		{"2024-01-15", "1234.50", "Y", "NY"},
		{"2024-02-01", "-12.00", "N", "CA"},
		{"", "", "", "Atlantis"},
	})
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeStrict(t *testing.T) {
	_, err := runYAML(t, "steps: [{name: normalize_numbers, args: {strict: true}}]",
		[]string{"amount"}, [][]string{{"12"}, {"twelve"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnitRuntime))
	assert.Contains(t, err.Error(), `invalid number "twelve"`)
}

func TestParseDate_TwoDigitYear(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	got, ok := ParseDate("1/2/30", now)
	require.True(t, ok)
	assert.Equal(t, 2030, got.Year())

	got, ok = ParseDate("1/2/75", now)
	require.True(t, ok)
	assert.Equal(t, 1975, got.Year())

	_, ok = ParseDate("not a date", now)
	assert.False(t, ok)
}

func TestCleanCell(t *testing.T) {
	tests := map[string]string{
		`="00123"`: "00123",
		`=42`:      "42",
		` "x" `:    "x",
		"plain":    "plain",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanCell(in), "CleanCell(%q)", in)
	}
}
