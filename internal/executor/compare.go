package executor

import "strings"

// materiallyDiffers reports whether two model answers disagree enough to
// surface a correction. Containment after normalization counts as agreement;
// otherwise token-overlap (Jaccard) below 0.5 is a material difference. The
// heuristic is deterministic so speculative and ensemble outcomes are
// reproducible in tests.
func materiallyDiffers(a, b string) bool {
	na, nb := normalize(a), normalize(b)
	if na == "" || nb == "" {
		return na != nb
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return false
	}

	setA := tokenSet(na)
	setB := tokenSet(nb)
	inter := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return false
	}
	return float64(inter)/float64(union) < 0.5
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		out[tok] = struct{}{}
	}
	return out
}

// excerpt truncates s for inclusion in a status annotation.
func excerpt(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
