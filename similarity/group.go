package similarity

import (
	"sort"
	"strings"
)

// GroupSeparator joins member keys into a group key.
const GroupSeparator = "|"

// DefaultThreshold is used when no threshold is configured.
const DefaultThreshold = 0.8

// GroupKey returns the stable identity of a group: members sorted
// lexicographically and joined with GroupSeparator.
func GroupKey(members []string) string {
	sorted := append([]string(nil), members...)
	sort.Strings(sorted)
	return strings.Join(sorted, GroupSeparator)
}

// Group is a set of keys that are pairwise similar.
type Group struct {
	Key     string   `json:"key"`
	Members []string `json:"members"`
	// Score is the lowest pairwise similarity inside the group.
	Score float64 `json:"score"`
}

// Engine groups keys whose pairwise similarity reaches Threshold.
type Engine struct {
	Metric    Metric
	Threshold float64
}

// NewEngine returns an engine, falling back to Levenshtein and
// DefaultThreshold for zero values.
func NewEngine(m Metric, threshold float64) *Engine {
	if m == nil {
		m = Levenshtein
	}
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Engine{Metric: m, Threshold: threshold}
}

// Groups returns all groups of two or more keys. Input order does not
// matter: keys are deduplicated and sorted first, and seeds are visited
// in that order. A key joins a group only if it is similar to every
// member already in it.
func (e *Engine) Groups(keys []string) []Group {
	uniq := dedupe(keys)
	n := len(uniq)

	cache := make(map[[2]int]float64)
	score := func(i, j int) float64 {
		if i > j {
			i, j = j, i
		}
		k := [2]int{i, j}
		if s, ok := cache[k]; ok {
			return s
		}
		s := e.Metric(uniq[i], uniq[j])
		cache[k] = s
		return s
	}

	grouped := make([]bool, n)
	var groups []Group

	for seed := 0; seed < n; seed++ {
		if grouped[seed] {
			continue
		}

		type candidate struct {
			idx   int
			score float64
		}
		var cands []candidate
		for j := seed + 1; j < n; j++ {
			if grouped[j] {
				continue
			}
			if s := score(seed, j); s >= e.Threshold {
				cands = append(cands, candidate{j, s})
			}
		}
		if len(cands) == 0 {
			continue
		}
		sort.SliceStable(cands, func(a, b int) bool {
			return cands[a].score > cands[b].score
		})

		members := []int{seed}
		minScore := 1.0
		for _, c := range cands {
			ok := true
			lowest := c.score
			for _, m := range members[1:] {
				s := score(m, c.idx)
				if s < e.Threshold {
					ok = false
					break
				}
				lowest = min(lowest, s)
			}
			if !ok {
				continue
			}
			members = append(members, c.idx)
			minScore = min(minScore, lowest)
		}
		if len(members) < 2 {
			continue
		}

		g := Group{Score: minScore}
		for _, m := range members {
			grouped[m] = true
			g.Members = append(g.Members, uniq[m])
		}
		sort.Strings(g.Members)
		g.Key = strings.Join(g.Members, GroupSeparator)
		groups = append(groups, g)
	}

	return groups
}

func dedupe(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
