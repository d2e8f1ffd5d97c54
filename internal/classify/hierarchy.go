package classify

import (
	"sort"

	"github.com/Fraztahir/adsellix-audit/internal/derive"
	"github.com/Fraztahir/adsellix-audit/internal/model"
)

// Families groups items by parent ASIN, rolls up their revenue and units,
// and marks the top heroCount children of each parent by net revenue as
// heroes. Items without a parent stay ungrouped. Children are listed in
// revenue order; a child with missing or non-positive revenue is never a
// hero.
func Families(items []model.ItemResult, heroCount int) []model.Family {
	byParent := make(map[model.Identifier][]int)
	var parents []model.Identifier
	for i, it := range items {
		if it.Parent == "" {
			continue
		}
		if _, ok := byParent[it.Parent]; !ok {
			parents = append(parents, it.Parent)
		}
		byParent[it.Parent] = append(byParent[it.Parent], i)
	}
	sort.Slice(parents, func(i, j int) bool { return parents[i] < parents[j] })

	out := make([]model.Family, 0, len(parents))
	for _, p := range parents {
		idx := byParent[p]
		sort.SliceStable(idx, func(a, b int) bool {
			x, y := items[idx[a]], items[idx[b]]
			rx, okx := x.Metrics.Get(derive.MetricNetRevenue).Float()
			ry, oky := y.Metrics.Get(derive.MetricNetRevenue).Float()
			if okx != oky {
				return okx
			}
			if rx != ry {
				return rx > ry
			}
			return x.ID < y.ID
		})

		f := model.Family{Parent: p, Revenue: model.Missing(), Units: model.Missing()}
		for rank, i := range idx {
			it := &items[i]
			f.Children = append(f.Children, it.ID)
			rev := it.Metrics.Get(derive.MetricNetRevenue)
			f.Revenue = sumPresent(f.Revenue, rev)
			f.Units = sumPresent(f.Units, it.Metrics.Get(derive.MetricUnits))
			if rank < heroCount && rev.Positive() {
				it.Hero = true
				f.Heroes = append(f.Heroes, it.ID)
			}
		}
		out = append(out, f)
	}
	return out
}

// sumPresent adds v to acc, treating a missing acc as zero and skipping a
// missing v.
func sumPresent(acc, v model.Value) model.Value {
	if v.IsMissing() {
		return acc
	}
	if acc.IsMissing() {
		return v
	}
	return acc.Add(v)
}
