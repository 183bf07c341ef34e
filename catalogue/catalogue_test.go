package catalogue

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/lacvalidate/dataset"
	"github.com/liamcoop/lacvalidate/executor"
	"github.com/liamcoop/lacvalidate/rules"
)

func table(t *testing.T, columns []string, rows ...[]any) *dataset.Table {
	t.Helper()
	tbl, err := dataset.NewTable(columns, rows)
	require.NoError(t, err)
	return tbl
}

func submission(t *testing.T) *dataset.Bundle {
	t.Helper()
	header := table(t, []string{"CHILD", "SEX", "DOB", "ETHNIC"},
		[]any{"1", "1", "01/05/2010", "WBRI"},
		[]any{"2", "3", "not a date", "WHIR"},
		[]any{"3", "2", "12/12/2012", "XXXX"},
	)
	episodes := table(t, []string{"CHILD", "DECOM", "DEC", "RNE", "REC", "LS"},
		[]any{"1", "01/01/2022", nil, "S", nil, "C2"},
		[]any{"2", "01/06/2023", "01/05/2023", "Q", "E11", "C2"},
		[]any{"3", "01/09/2023", nil, "S", nil, "C2"},
	)
	oc2 := table(t, []string{"CHILD", "CONVICTED"},
		[]any{"1", "0"},
		[]any{"3", "0"},
		[]any{"9", "1"},
	)
	return dataset.NewBundle(
		map[string]*dataset.Table{Header: header, Episodes: episodes, OC2: oc2},
		dataset.Metadata{
			CollectionStart: time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
			CollectionEnd:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
			Authority:       "201",
		},
	)
}

func TestCatalogueYears(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)
	assert.Equal(t, []int{2023, 2024}, m.Years())

	r2023, err := m.Registry(2023)
	require.NoError(t, err)
	assert.Equal(t, []string{"1008", "101", "102", "103", "202"}, r2023.Codes())

	r2024, err := m.Registry(2024)
	require.NoError(t, err)
	assert.Equal(t, []string{"1008", "101", "103", "202", "205"}, r2024.Codes())
}

func TestCatalogueEndToEnd2023(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)
	reg, err := m.Registry(2023)
	require.NoError(t, err)

	report, err := executor.New().Run(context.Background(), reg, submission(t))
	require.NoError(t, err)

	assert.Empty(t, report.Failures)
	assert.Equal(t, rules.Outcome{Header: {1}}, report.Rules["101"])
	assert.Equal(t, rules.Outcome{Header: {1}}, report.Rules["102"])
	assert.Equal(t, rules.Outcome{Header: {1, 2}}, report.Rules["103"])
	assert.Equal(t, rules.Outcome{Episodes: {1}}, report.Rules["202"])
	assert.Equal(t, rules.Outcome{OC2: {1, 2}}, report.Rules["1008"])

	assert.Equal(t, []int{1, 2}, report.Tables[Header])
	assert.Equal(t, []int{1}, report.Tables[Episodes])
	assert.Equal(t, []int{1, 2}, report.Tables[OC2])
}

func TestCatalogueEndToEnd2024(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)
	reg, err := m.Registry(2024)
	require.NoError(t, err)

	report, err := executor.New().Run(context.Background(), reg, submission(t))
	require.NoError(t, err)

	assert.Empty(t, report.Failures)
	assert.NotContains(t, report.Rules, "102")
	assert.Equal(t, rules.Outcome{Header: {2}}, report.Rules["103"], "WHIR is valid from 2024")
	assert.Equal(t, rules.Outcome{Episodes: {1}}, report.Rules["205"])
}

func TestCatalogueMissingTablesAreNotApplicable(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)
	reg, err := m.Registry(2023)
	require.NoError(t, err)

	full := submission(t)
	header, _ := full.Table(Header)
	b := dataset.NewBundle(map[string]*dataset.Table{Header: header}, full.Metadata())

	report, err := executor.New().Run(context.Background(), reg, b)
	require.NoError(t, err)

	assert.Empty(t, report.Failures)
	assert.Contains(t, report.NotApplicable, "202")
	assert.Contains(t, report.NotApplicable, "1008")
	assert.Empty(t, report.Rules["202"])
}

func TestRule1008DoesNotModifyOC2(t *testing.T) {
	b := submission(t)
	oc2, _ := b.Table(OC2)

	_, err := rule1008().Predicate(context.Background(), b)
	require.NoError(t, err)
	assert.False(t, oc2.HasColumn(ContinuousColumn))
}

func TestMerge(t *testing.T) {
	def := func(code, msg string) rules.RuleDefinition {
		return rules.RuleDefinition{
			Code:    code,
			Message: msg,
			Predicate: func(ctx context.Context, b *dataset.Bundle) (rules.Outcome, error) {
				return nil, nil
			},
		}
	}
	base := []rules.YearDelta{
		rules.NewYearDelta(2023, []string{"9"}, def("1", "base"), def("2", "base")),
	}
	overlay := []rules.YearDelta{
		rules.NewYearDelta(2025, nil, def("5", "new year")),
		rules.NewYearDelta(2023, []string{"2"}, def("1", "overlay"), def("9", "readded")),
	}

	merged := Merge(base, overlay)
	require.Len(t, merged, 2)
	assert.Equal(t, 2023, merged[0].Year)
	assert.Equal(t, 2025, merged[1].Year)

	y := merged[0]
	assert.Equal(t, "overlay", y.AddedOrModified["1"].Message)
	assert.Contains(t, y.AddedOrModified, "9")
	assert.NotContains(t, y.AddedOrModified, "2")
	assert.Equal(t, []string{"2"}, y.Deleted)

	assert.Len(t, base[0].AddedOrModified, 2, "base is not modified")
}

func TestDecode(t *testing.T) {
	doc := `
years:
  - year: 2024
    deleted: ["101"]
    rules:
      - code: "510"
        message: "Legal status V2 is not allowed."
        table: Episodes
        expression: 'has(row.LS) && row.LS == "V2"'
        affected_fields: [LS]
`
	deltas, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, []string{"101"}, deltas[0].Deleted)

	m, err := NewManager(deltas...)
	require.NoError(t, err)
	reg, err := m.Registry(2024)
	require.NoError(t, err)
	assert.True(t, reg.Has("510"))
	assert.False(t, reg.Has("101"))

	eps := table(t, []string{"CHILD", "LS"}, []any{"1", "C2"}, []any{"2", "V2"})
	b := dataset.NewBundle(map[string]*dataset.Table{Episodes: eps}, dataset.Metadata{})
	d, _ := reg.Get("510")
	out, err := d.Predicate(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, rules.Outcome{Episodes: {1}}, out)
}

func TestDecodeRejectsBadExpression(t *testing.T) {
	doc := `
years:
  - year: 2024
    rules:
      - code: "510"
        table: Episodes
        expression: 'row.LS =='
`
	_, err := Decode(strings.NewReader(doc))
	assert.ErrorIs(t, err, rules.ErrInvalidRuleDefinition)
}

func TestDecodeEmpty(t *testing.T) {
	deltas, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, deltas)
}
