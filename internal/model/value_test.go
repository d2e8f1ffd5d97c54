package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_MissingIsNotZero(t *testing.T) {
	m := Missing()
	assert.True(t, m.IsMissing())
	_, ok := m.Float()
	assert.False(t, ok)

	z := Of(0)
	assert.False(t, z.IsMissing())
	assert.NotEqual(t, m, z)
}

func TestValue_NonFiniteIsMissing(t *testing.T) {
	assert.True(t, Of(math.NaN()).IsMissing())
	assert.True(t, Of(math.Inf(1)).IsMissing())
	assert.True(t, Of(math.Inf(-1)).IsMissing())
}

func TestValue_Arithmetic(t *testing.T) {
	tests := []struct {
		name string
		got  Value
		want Value
	}{
		{"add", Of(2).Add(Of(3)), Of(5)},
		{"add missing", Of(2).Add(Missing()), Missing()},
		{"sub", Of(2).Sub(Of(3)), Of(-1)},
		{"sub missing", Missing().Sub(Of(3)), Missing()},
		{"mul", Of(2).Mul(Of(3)), Of(6)},
		{"div", Of(3).Div(Of(2)), Of(1.5)},
		{"div by zero", Of(3).Div(Of(0)), Missing()},
		{"div by missing", Of(3).Div(Missing()), Missing()},
		{"scale", Of(3).Scale(2), Of(6)},
		{"scale missing", Missing().Scale(2), Missing()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestValue_Or(t *testing.T) {
	assert.Equal(t, 7.0, Missing().Or(7))
	assert.Equal(t, 1.0, Of(1).Or(7))
}

func TestValue_JSON(t *testing.T) {
	type doc struct {
		A Value `json:"a"`
		B Value `json:"b"`
	}
	b, err := json.Marshal(doc{A: Of(1.25), B: Missing()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1.25,"b":null}`, string(b))

	var got doc
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, Of(1.25), got.A)
	assert.True(t, got.B.IsMissing())
}

func TestFactTable_RowAndIDs(t *testing.T) {
	ft := &FactTable{
		Items: []FactRow{
			{Level: LevelItem, ID: "B2", Window: WindowCurrent},
			{Level: LevelItem, ID: "B1", Window: WindowCurrent},
			{Level: LevelItem, ID: "B1", Window: WindowPriorYear},
		},
		Queries: []FactRow{{Level: LevelQuery, ID: "shoes", Window: WindowCurrent}},
	}
	ft.Index()

	assert.Equal(t, []Identifier{"B1", "B2"}, ft.IDs(LevelItem))
	require.NotNil(t, ft.Row(LevelItem, "B1", WindowPriorYear))
	assert.Nil(t, ft.Row(LevelItem, "B2", WindowPriorYear))
	assert.Equal(t, Identifier("shoes"), ft.Row(LevelQuery, "shoes", WindowCurrent).ID)
}

func TestFactRow_GetMissing(t *testing.T) {
	var nilRow *FactRow
	assert.True(t, nilRow.Get("x").IsMissing())

	r := &FactRow{Fields: map[string]Value{"x": Of(0)}, Sources: []ReportType{ReportInventory}}
	assert.Equal(t, Of(0), r.Get("x"))
	assert.True(t, r.Get("y").IsMissing())
	assert.True(t, r.HasSource(ReportInventory))
	assert.False(t, r.HasSource(ReportPPC))
}

func TestPeriod_Days(t *testing.T) {
	p := Period{Start: mustDay("2026-01-01"), End: mustDay("2026-01-31")}
	assert.Equal(t, 31, p.Days())
	assert.Equal(t, 0, Period{Start: mustDay("2026-02-01"), End: mustDay("2026-01-01")}.Days())
}
