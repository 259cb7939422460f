package domain

import (
	"sort"

	"github.com/aristath/holistic-planner/internal/evaluation"
)

// OtherGroup collects countries and industries with no group mapping
const OtherGroup = "OTHER"

// GroupGap is the difference between target and current allocation of one group
type GroupGap struct {
	Group   string  `json:"group"`
	Current float64 `json:"current"`
	Target  float64 `json:"target"`
	Gap     float64 `json:"gap"` // target - current
}

// CountryGroup maps a country to its allocation group. Without a mapping
// table the country is its own group.
func (ctx *OpportunityContext) CountryGroup(country string) string {
	if len(ctx.CountryToGroup) == 0 {
		if country == "" {
			return OtherGroup
		}
		return country
	}
	if group, ok := ctx.CountryToGroup[country]; ok {
		return group
	}
	return OtherGroup
}

// IndustryGroups maps a (possibly comma-separated) industry to its groups
func (ctx *OpportunityContext) IndustryGroups(industry string) []string {
	industries := evaluation.SplitIndustries(industry)
	groups := make([]string, 0, len(industries))
	for _, ind := range industries {
		if len(ctx.IndustryToGroup) == 0 {
			groups = append(groups, ind)
			continue
		}
		if group, ok := ctx.IndustryToGroup[ind]; ok {
			groups = append(groups, group)
		} else {
			groups = append(groups, OtherGroup)
		}
	}
	return groups
}

// positionMeta returns the country and industry of a held position,
// falling back to the universe entry.
func (ctx *OpportunityContext) positionMeta(pos EnrichedPosition) (string, string) {
	country, industry := pos.Country, pos.Industry
	if sec, ok := ctx.Security(pos.Symbol); ok {
		if country == "" {
			country = sec.Country
		}
		if industry == "" {
			industry = sec.Industry
		}
	}
	return country, industry
}

// CountryGroupAllocations returns the current portfolio fraction per country group
func (ctx *OpportunityContext) CountryGroupAllocations() map[string]float64 {
	allocations := make(map[string]float64)
	if ctx.TotalPortfolioValueEUR <= 0 {
		return allocations
	}
	for _, pos := range ctx.Positions {
		country, _ := ctx.positionMeta(pos)
		allocations[ctx.CountryGroup(country)] += pos.MarketValueEUR / ctx.TotalPortfolioValueEUR
	}
	return allocations
}

// IndustryGroupAllocations returns the current portfolio fraction per industry
// group. A position with several industries splits its value evenly.
func (ctx *OpportunityContext) IndustryGroupAllocations() map[string]float64 {
	allocations := make(map[string]float64)
	if ctx.TotalPortfolioValueEUR <= 0 {
		return allocations
	}
	for _, pos := range ctx.Positions {
		_, industry := ctx.positionMeta(pos)
		groups := ctx.IndustryGroups(industry)
		if len(groups) == 0 {
			continue
		}
		share := pos.MarketValueEUR / ctx.TotalPortfolioValueEUR / float64(len(groups))
		for _, group := range groups {
			allocations[group] += share
		}
	}
	return allocations
}

// CountryGroupGaps returns target-minus-current per country group, largest
// absolute gap first. Groups present on only one side count as 0 on the other.
func (ctx *OpportunityContext) CountryGroupGaps() []GroupGap {
	return groupGaps(ctx.CountryWeights, ctx.CountryGroupAllocations())
}

// IndustryGroupGaps is CountryGroupGaps for industry groups
func (ctx *OpportunityContext) IndustryGroupGaps() []GroupGap {
	return groupGaps(ctx.IndustryWeights, ctx.IndustryGroupAllocations())
}

func groupGaps(targets, current map[string]float64) []GroupGap {
	groups := make(map[string]struct{}, len(targets)+len(current))
	for g := range targets {
		groups[g] = struct{}{}
	}
	for g := range current {
		groups[g] = struct{}{}
	}

	gaps := make([]GroupGap, 0, len(groups))
	for g := range groups {
		gaps = append(gaps, GroupGap{
			Group:   g,
			Current: current[g],
			Target:  targets[g],
			Gap:     targets[g] - current[g],
		})
	}
	sort.Slice(gaps, func(i, j int) bool {
		ai, aj := abs(gaps[i].Gap), abs(gaps[j].Gap)
		if ai != aj {
			return ai > aj
		}
		return gaps[i].Group < gaps[j].Group
	})
	return gaps
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
