package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fraztahir/adsellix-audit/internal/model"
)

func child(id, parent string, revenue, units float64) model.ItemResult {
	return model.ItemResult{
		ID:      model.Identifier(id),
		Parent:  model.Identifier(parent),
		Metrics: qm(map[string]float64{"net_revenue": revenue, "units": units}),
	}
}

func TestFamilies_HeroesAndRollup(t *testing.T) {
	items := []model.ItemResult{
		child("C1", "P1", 500, 20),
		child("C2", "P1", 2000, 80),
		child("C3", "P1", 1200, 40),
		child("C4", "P1", 0, 0),
		child("C5", "P2", 300, 10),
		{ID: "S1", Metrics: qm(map[string]float64{"net_revenue": 9000})},
		{ID: "C6", Parent: "P2", Metrics: model.Metrics{}},
	}

	fams := Families(items, 2)
	require.Len(t, fams, 2)

	p1 := fams[0]
	assert.Equal(t, model.Identifier("P1"), p1.Parent)
	assert.Equal(t, []model.Identifier{"C2", "C3", "C1", "C4"}, p1.Children)
	assert.Equal(t, []model.Identifier{"C2", "C3"}, p1.Heroes)
	assert.Equal(t, model.Of(3700), p1.Revenue)
	assert.Equal(t, model.Of(140), p1.Units)

	p2 := fams[1]
	assert.Equal(t, []model.Identifier{"C5", "C6"}, p2.Children)
	assert.Equal(t, []model.Identifier{"C5"}, p2.Heroes, "a child without revenue is never a hero")
	assert.Equal(t, model.Of(300), p2.Revenue)

	heroes := map[model.Identifier]bool{}
	for _, it := range items {
		heroes[it.ID] = it.Hero
	}
	assert.Equal(t, map[model.Identifier]bool{
		"C1": false, "C2": true, "C3": true, "C4": false, "C5": true, "S1": false, "C6": false,
	}, heroes)
}

func TestFamilies_NoParents(t *testing.T) {
	items := []model.ItemResult{{ID: "S1", Metrics: qm(map[string]float64{"net_revenue": 10})}}
	assert.Empty(t, Families(items, 3))
	assert.False(t, items[0].Hero)
}

func TestFamilies_RevenueMissingForAllChildren(t *testing.T) {
	items := []model.ItemResult{{ID: "C1", Parent: "P1", Metrics: model.Metrics{}}}
	fams := Families(items, 3)
	require.Len(t, fams, 1)
	assert.True(t, fams[0].Revenue.IsMissing())
	assert.True(t, fams[0].Units.IsMissing())
	assert.Empty(t, fams[0].Heroes)
}
