package retrieval

import "strings"

// DefaultDelta is the score bonus for liked and penalty for disliked titles
const DefaultDelta = 0.05

// Preferences is the read side of a user's like/dislike history
type Preferences struct {
	Liked    []string
	Disliked []string
}

// Personalize adjusts scores in place by matching titles case-insensitively
// against prefs, then re-sorts once after every adjustment. Scores are not
// clamped, so a strong dislike can push a relevant title below a weak match.
func Personalize(candidates []Candidate, prefs Preferences, delta float64) {
	liked := titleSet(prefs.Liked)
	disliked := titleSet(prefs.Disliked)

	for i := range candidates {
		t := strings.ToLower(candidates[i].Title)
		if liked[t] {
			candidates[i].Score += delta
		}
		if disliked[t] {
			candidates[i].Score -= delta
		}
	}

	SortByScore(candidates)
}

func titleSet(titles []string) map[string]bool {
	set := make(map[string]bool, len(titles))
	for _, t := range titles {
		set[strings.ToLower(strings.TrimSpace(t))] = true
	}
	return set
}
