package analytics

import (
	"sort"

	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
)

// buildCoPurchaseGraph implements §4.4's co-purchase graph: for each product
// A, count co-occurrences with product B across orders containing A, then
// compute lift(A,B) = P(A,B)/(P(A)P(B)), keeping the top-k edges meeting the
// minLift/minCoOccurrenceCount thresholds.
func (e *Engine) buildCoPurchaseGraph(records []model.PurchaseRecord) map[string][]model.CoPurchase {
	productsByOrder := make(map[string]map[string]bool)
	for _, r := range records {
		id := r.Identity(Normalize)
		if productsByOrder[r.OrderID] == nil {
			productsByOrder[r.OrderID] = make(map[string]bool)
		}
		productsByOrder[r.OrderID][id] = true
	}

	totalOrders := len(productsByOrder)
	if totalOrders == 0 {
		return nil
	}

	orderCount := make(map[string]int) // P(X) numerator
	coOccurrence := make(map[string]map[string]int)

	for _, products := range productsByOrder {
		for a := range products {
			orderCount[a]++
		}
		for a := range products {
			for b := range products {
				if a == b {
					continue
				}
				if coOccurrence[a] == nil {
					coOccurrence[a] = make(map[string]int)
				}
				coOccurrence[a][b]++
			}
		}
	}

	out := make(map[string][]model.CoPurchase)
	for a, edges := range coOccurrence {
		pa := float64(orderCount[a]) / float64(totalOrders)

		var candidates []model.CoPurchase
		for b, count := range edges {
			if count < e.cfg.MinCoOccurrenceCount {
				continue
			}
			pb := float64(orderCount[b]) / float64(totalOrders)
			pab := float64(count) / float64(totalOrders)
			if pa == 0 || pb == 0 {
				continue
			}
			lift := pab / (pa * pb)
			if lift < e.cfg.MinLift {
				continue
			}
			candidates = append(candidates, model.CoPurchase{
				ProductID:    b,
				CoOccurrence: count,
				Lift:         lift,
			})
		}

		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].Lift != candidates[j].Lift {
				return candidates[i].Lift > candidates[j].Lift
			}
			return candidates[i].ProductID < candidates[j].ProductID
		})
		out[a] = candidates
	}

	return out
}

// Bundle is a set of products where every pair meets the lift/co-occurrence
// threshold — §4.4's bundle detection.
type Bundle struct {
	Products []string
}

// DetectBundles aggregates products into bundles: starting from the
// co-purchase graph, it greedily grows cliques where every pairwise edge
// clears the configured thresholds.
func (e *Engine) DetectBundles(records []model.PurchaseRecord) []Bundle {
	graph := e.buildCoPurchaseGraph(records)

	edgeOK := func(a, b string) bool {
		for _, c := range graph[a] {
			if c.ProductID == b {
				return true
			}
		}
		return false
	}

	products := make([]string, 0, len(graph))
	for p := range graph {
		products = append(products, p)
	}
	sort.Strings(products)

	visited := make(map[string]bool)
	var bundles []Bundle

	for _, seed := range products {
		if visited[seed] {
			continue
		}
		clique := []string{seed}
		for _, candidate := range products {
			if candidate == seed || visited[candidate] {
				continue
			}
			if !edgeOK(seed, candidate) || !edgeOK(candidate, seed) {
				continue
			}
			formsClique := true
			for _, member := range clique {
				if member == candidate {
					continue
				}
				if !edgeOK(member, candidate) || !edgeOK(candidate, member) {
					formsClique = false
					break
				}
			}
			if formsClique {
				clique = append(clique, candidate)
			}
		}
		if len(clique) > 1 {
			for _, m := range clique {
				visited[m] = true
			}
			bundles = append(bundles, Bundle{Products: clique})
		}
	}

	return bundles
}
