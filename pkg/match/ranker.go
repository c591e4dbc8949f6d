package match

import "sort"

// CombineScores fills FinalScore for every result:
// final = (1 - geoWeightEff) * semantic + geoWeightEff * geoSimilarity.
// When geography is disabled the semantic similarity is carried over
// verbatim. Pure function: no I/O, inputs beyond the slice are read-only.
func CombineScores(results []RankedOpportunity, geoWeightEff float64, geoEnabled bool) {
	for i := range results {
		if !geoEnabled {
			results[i].FinalScore = results[i].SemanticSimilarity
			continue
		}
		results[i].FinalScore = (1-geoWeightEff)*results[i].SemanticSimilarity +
			geoWeightEff*results[i].GeoSimilarity
	}
}

// SortByFinalScore orders results by final score descending. The sort is
// stable: candidates with equal scores keep their retrieval order. Rank
// fields are assigned afterwards, starting at 1.
func SortByFinalScore(results []RankedOpportunity) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FinalScore > results[j].FinalScore
	})
	for i := range results {
		results[i].Rank = i + 1
	}
}
