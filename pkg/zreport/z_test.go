package zreport

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type remapTable map[string][2]any

func (m remapTable) Remap(account string) (string, int, bool) {
	r, ok := m[account]
	if !ok {
		return "", 0, false
	}
	return r[0].(string), r[1].(int), true
}

func entry(t *testing.T, sheet, z, build string, sales, debet [][]any) Entry {
	t.Helper()
	raw := map[string]any{
		"sheetid":   sheet,
		"z":         z,
		"date":      "Tirsdag 14.03.2017",
		"builddate": build,
		"type":      "Escape",
		"sales":     sales,
		"debet":     debet,
	}
	data, err := json.Marshal(raw)
	require.NoError(t, err)

	var e Entry
	require.NoError(t, json.Unmarshal(data, &e))
	return e
}

func TestNewZ(t *testing.T) {
	e := entry(t, "s1", "123", "15.03.2017 02:13",
		[][]any{{"25-K-3000-40013", "Bar", "125"}},
		[][]any{{"D-1900-40013", "Kort", "125"}},
	)

	z, err := NewZ(e, 4, nil)
	require.NoError(t, err)

	assert.Equal(t, "Z123", z.ZNr())
	assert.Equal(t, "20170314", z.Date)
	assert.Equal(t, 3, z.Period)
	assert.Equal(t, "20170315 0213", z.BuildTime)
	assert.Equal(t, 4, z.JSONIndex)
	assert.False(t, z.Legacy)
	assert.Len(t, z.Lines(), 2)
	assert.True(t, z.Validate())
	assert.NoError(t, z.Check())
	assert.Equal(t, "125", z.TotalSales().String())
}

func TestNewZNumericFields(t *testing.T) {
	data := `{"sheetid": 17, "z": 88, "date": "Fredag 01.12.2017", "builddate": "01.12.2017 23:59",
		"sales": [["K-3000-40013", "Bar", 10.5]], "debet": [["D-1900-40013", "Kort", "10.5"]]}`

	var e Entry
	require.NoError(t, json.Unmarshal([]byte(data), &e))

	z, err := NewZ(e, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "17", z.SheetID)
	assert.Equal(t, "Z88", z.ZNr())
	assert.True(t, z.Validate())
}

func TestZNrNonNumeric(t *testing.T) {
	z := &Z{RawZ: "Ekstra"}
	assert.Equal(t, "Ekstra", z.ZNr())
}

func TestNewZParseErrorAbortsReport(t *testing.T) {
	e := entry(t, "s1", "5", "15.03.2017 02:13",
		[][]any{{"K-3000-40013", "ok", "1"}, {"bogus", "bad", "1"}},
		nil,
	)

	_, err := NewZ(e, 0, nil)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "Z5", pe.ZNr)
	assert.Equal(t, 2, pe.Line)
}

func TestNewZInvalidDate(t *testing.T) {
	e := entry(t, "s1", "5", "", nil, nil)
	e.Date = "i går"

	_, err := NewZ(e, 0, nil)
	assert.Error(t, err)
}

func TestLegacyDetectionIsWholeReport(t *testing.T) {
	remap := remapTable{"3014": {"3000", 40013}}

	t.Run("all lines without project are remapped", func(t *testing.T) {
		e := entry(t, "s1", "1", "", [][]any{{"K-3014-25", "Bar", "100"}}, [][]any{{"D-1900", "Kort", "100"}})

		z, err := NewZ(e, 0, remap)
		require.NoError(t, err)
		assert.True(t, z.Legacy)
		assert.Equal(t, "3000", z.Sales[0].Account)
		assert.Equal(t, 40013, z.Sales[0].Project)
		// accounts without a rule keep their number
		assert.Equal(t, "1900", z.Debet[0].Account)
	})

	t.Run("one line with project disables remapping", func(t *testing.T) {
		e := entry(t, "s1", "1", "", [][]any{{"K-3014-25", "Bar", "100"}}, [][]any{{"D-1900-40013", "Kort", "100"}})

		z, err := NewZ(e, 0, remap)
		require.NoError(t, err)
		assert.False(t, z.Legacy)
		assert.Equal(t, "3014", z.Sales[0].Account)
		assert.Equal(t, 0, z.Sales[0].Project)
	})
}

func TestValidateExactBalance(t *testing.T) {
	build := func(amounts [3]string) *Z {
		e := entry(t, "s1", "1", "",
			[][]any{{"K-3000-40013", "Bar", amounts[0]}, {"25-K-3001-40013", "Mat", amounts[1]}},
			[][]any{{"D-1900-40013", "Kort", amounts[2]}},
		)
		z, err := NewZ(e, 0, nil)
		require.NoError(t, err)
		return z
	}

	balanced := [3]string{"99.99", "0.01", "100"}
	require.True(t, build(balanced).Validate())

	perturbed := [3]string{"100.00", "0.02", "100.01"}
	for i := 0; i < 3; i++ {
		amounts := balanced
		amounts[i] = perturbed[i]

		z := build(amounts)
		assert.False(t, z.Validate(), "line %d perturbed", i)

		var ve *ValidationError
		require.True(t, errors.As(z.Check(), &ve))
		assert.Equal(t, "0.01", ve.Sum.Abs().String())
	}
}

// Cent amounts that do not add up exactly in binary floating point still
// balance, and the VAT split does not take part in the check.
func TestValidateRoundingProneVATSplit(t *testing.T) {
	e := entry(t, "s1", "1", "",
		[][]any{
			{"25-K-3000-40013", "Øl", "0.1"},
			{"15-K-3020-40013", "Mat", "0.2"},
			{"25-K-3000-40013", "Snacks", "33.33"},
		},
		[][]any{{"D-1900-40013", "Kort", "33.63"}},
	)

	z, err := NewZ(e, 0, nil)
	require.NoError(t, err)
	assert.True(t, z.Validate())

	netto := z.Sales[0].NettoPositive.Add(z.Sales[1].NettoPositive).Add(z.Sales[2].NettoPositive)
	assert.Equal(t, "26.91", netto.String())
}

func TestGarbageAmountUnbalancesReport(t *testing.T) {
	e := entry(t, "s1", "1", "",
		[][]any{{"K-3000-40013", "Bar", "1oo"}},
		[][]any{{"D-1900-40013", "Kort", "100"}},
	)

	z, err := NewZ(e, 0, nil)
	require.NoError(t, err)
	assert.True(t, z.Sales[0].Amount.IsZero())
	assert.False(t, z.Validate())
}

func TestDeviation(t *testing.T) {
	e := entry(t, "s1", "1", "",
		[][]any{{"K-3000-40013", "Bar", "100"}},
		[][]any{{"D-1900-40013", "Kort", "95"}, {"D-1909-40013", "Avvik", "5"}, {"D-1909-40013", "Avvik 2", "7"}},
	)
	z, err := NewZ(e, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, "5", z.Deviation("1909").String())
	assert.True(t, z.Deviation("8995").IsZero())
}

func TestZGroupOrdersNewestFirst(t *testing.T) {
	g := &ZGroup{ID: "s1"}
	for _, build := range []string{"14.03.2017 23:00", "15.03.2017 01:00", "14.03.2017 23:30"} {
		z, err := NewZ(entry(t, "s1", "1", build, nil, nil), 0, nil)
		require.NoError(t, err)
		g.add(z)
	}

	require.Len(t, g.Zs, 3)
	assert.Equal(t, "20170315 0100", g.Zs[0].BuildTime)
	assert.Equal(t, "20170314 2330", g.Zs[1].BuildTime)
	assert.Equal(t, "20170314 2300", g.Zs[2].BuildTime)
	assert.Equal(t, "s1", g.Zs[0].GroupID)
	assert.False(t, g.IsSelected())

	g.Zs[1].Selected = true
	assert.True(t, g.IsSelected())
}
