package rag

import (
	"math"

	"fundbridge-gpt/internal/vectorstore"
)

// maxMarginalRelevance picks up to k of the candidate embeddings, trading
// similarity to the query against similarity to already picked ones.
// lambda 1 ranks by relevance only, lambda 0 by diversity only.
// Returns indexes into embeddings in selection order.
func maxMarginalRelevance(query []float32, embeddings [][]float32, k int, lambda float32) []int {
	k = min(k, len(embeddings))
	if k <= 0 {
		return nil
	}

	toQuery := make([]float32, len(embeddings))
	best := 0
	for i, e := range embeddings {
		toQuery[i] = vectorstore.Cosine(query, e)
		if toQuery[i] > toQuery[best] {
			best = i
		}
	}

	picked := []int{best}
	taken := map[int]bool{best: true}
	for len(picked) < k {
		bestScore := float32(math.Inf(-1))
		next := -1
		for i, e := range embeddings {
			if taken[i] {
				continue
			}
			redundancy := float32(math.Inf(-1))
			for _, j := range picked {
				redundancy = max(redundancy, vectorstore.Cosine(e, embeddings[j]))
			}
			score := lambda*toQuery[i] - (1-lambda)*redundancy
			if score > bestScore {
				bestScore = score
				next = i
			}
		}
		picked = append(picked, next)
		taken[next] = true
	}
	return picked
}
