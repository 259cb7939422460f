package sequences

import (
	"sort"

	"github.com/aristath/holistic-planner/internal/evaluation"
	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// SelectTopCandidates returns the first maxCount candidates.
func SelectTopCandidates(candidates []domain.ActionCandidate, maxCount int) []domain.ActionCandidate {
	if maxCount <= 0 || len(candidates) == 0 {
		return nil
	}
	if len(candidates) > maxCount {
		candidates = candidates[:maxCount]
	}
	return append([]domain.ActionCandidate(nil), candidates...)
}

// SelectDiverseOpportunities picks up to maxCount candidates spread across
// clusters (country, else industry, else symbol prefix). Each cluster gets a
// quota of max(1, maxCount/clusters), clusters with the larger priority sum
// first; the remainder is filled by priority. The selection is then ranked by
//
//	(1-w)·priority/100 + w·1/(1 + 0.5·sameCluster)
//
// where sameCluster counts the other selected candidates in the same cluster.
// candidates are expected sorted by priority, highest first.
func SelectDiverseOpportunities(
	candidates []domain.ActionCandidate,
	maxCount int,
	ctx *domain.OpportunityContext,
	diversityWeight float64,
) []domain.ActionCandidate {
	if maxCount <= 0 || len(candidates) == 0 {
		return nil
	}
	if len(candidates) <= maxCount {
		return append([]domain.ActionCandidate(nil), candidates...)
	}

	type cluster struct {
		key     string
		members []int
		total   float64
	}
	var clusters []*cluster
	byKey := make(map[string]*cluster)
	keys := make([]string, len(candidates))

	for i, c := range candidates {
		key := clusterKey(c.Symbol, ctx)
		keys[i] = key
		cl, ok := byKey[key]
		if !ok {
			cl = &cluster{key: key}
			byKey[key] = cl
			clusters = append(clusters, cl)
		}
		cl.members = append(cl.members, i)
		cl.total += c.Priority
	}

	sort.SliceStable(clusters, func(i, j int) bool { return clusters[i].total > clusters[j].total })

	quota := maxCount / len(clusters)
	if quota < 1 {
		quota = 1
	}

	taken := make(map[int]bool, maxCount)
	var selected []int
	for _, cl := range clusters {
		for n, idx := range cl.members {
			if n >= quota {
				break
			}
			selected = append(selected, idx)
			taken[idx] = true
		}
		if len(selected) >= maxCount {
			break
		}
	}

	if len(selected) < maxCount {
		var remaining []int
		for i := range candidates {
			if !taken[i] {
				remaining = append(remaining, i)
			}
		}
		sort.SliceStable(remaining, func(a, b int) bool {
			return candidates[remaining[a]].Priority > candidates[remaining[b]].Priority
		})
		for _, idx := range remaining {
			if len(selected) >= maxCount {
				break
			}
			selected = append(selected, idx)
		}
	}

	clusterSize := make(map[string]int)
	for _, idx := range selected {
		clusterSize[keys[idx]]++
	}
	score := func(idx int) float64 {
		priority := candidates[idx].Priority
		if priority < 0 {
			priority = 0
		}
		sameCluster := float64(clusterSize[keys[idx]] - 1)
		bonus := 1.0 / (1.0 + sameCluster*0.5)
		return (1.0-diversityWeight)*priority/100.0 + diversityWeight*bonus
	}
	sort.SliceStable(selected, func(a, b int) bool { return score(selected[a]) > score(selected[b]) })

	if len(selected) > maxCount {
		selected = selected[:maxCount]
	}
	result := make([]domain.ActionCandidate, len(selected))
	for i, idx := range selected {
		result[i] = candidates[idx]
	}
	return result
}

func clusterKey(symbol string, ctx *domain.OpportunityContext) string {
	if ctx != nil {
		if sec, ok := ctx.Security(symbol); ok {
			if sec.Country != "" {
				return "COUNTRY:" + sec.Country
			}
			if industries := evaluation.SplitIndustries(sec.Industry); len(industries) > 0 {
				return "INDUSTRY:" + industries[0]
			}
		}
	}
	prefix := symbol
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	return "SYMBOL:" + prefix
}

// selectCandidates applies per-category selection to every category
func selectCandidates(
	opportunities domain.OpportunitiesByCategory,
	ctx *domain.OpportunityContext,
	config *domain.PlannerConfiguration,
) domain.OpportunitiesByCategory {
	selected := make(domain.OpportunitiesByCategory, len(opportunities))
	for _, category := range domain.AllOpportunityCategories {
		candidates := opportunities[category]
		if len(candidates) == 0 {
			continue
		}
		if config.EnableDiverseSelection {
			selected[category] = SelectDiverseOpportunities(candidates, config.MaxOpportunitiesPerCategory, ctx, config.DiversityWeight)
		} else {
			selected[category] = SelectTopCandidates(candidates, config.MaxOpportunitiesPerCategory)
		}
	}
	return selected
}
