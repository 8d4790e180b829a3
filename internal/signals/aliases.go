package signals

import "strings"

// abbreviations maps a substring commonly found in a signal's name to
// the short forms operators use for it, grounded on the reference
// registry's own hardcoded alias table rather than a similarity metric.
var abbreviations = []struct {
	pattern string
	aliases []string
}{
	{"current", []string{"i", "cur", "amp"}},
	{"bias", []string{"u", "voltage", "v"}},
	{"frequency shift", []string{"df", "freq shift", "dfreq"}},
	{"amplitude", []string{"amp"}},
	{"phase", []string{"ph"}},
	{"position", []string{"pos"}},
	{"temperature", []string{"temp"}},
	{"counter", []string{"cnt"}},
}

// generateSignalAliases expands name into the set of short forms a
// user might type for it: every abbreviation whose pattern appears in
// name, plus a word-removal abbreviation (drop common filler words),
// plus an initials form for multi-word names.
func generateSignalAliases(name string) []string {
	name = normalize(name)
	aliases := map[string]bool{}

	for _, entry := range abbreviations {
		if strings.Contains(name, entry.pattern) {
			for _, a := range entry.aliases {
				aliases[a] = true
			}
		}
	}

	words := strings.Fields(name)
	if len(words) > 1 {
		var initials strings.Builder
		for _, w := range words {
			if len(w) > 0 {
				initials.WriteByte(w[0])
			}
		}
		aliases[initials.String()] = true

		filtered := filterFillerWords(words)
		if len(filtered) > 0 && len(filtered) != len(words) {
			aliases[strings.Join(filtered, " ")] = true
		}
	}

	out := make([]string, 0, len(aliases))
	for a := range aliases {
		out = append(out, a)
	}
	return out
}

var fillerWords = map[string]bool{
	"the": true, "of": true, "signal": true, "value": true, "sensor": true,
}

func filterFillerWords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if !fillerWords[w] {
			out = append(out, w)
		}
	}
	return out
}
