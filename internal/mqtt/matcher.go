package mqtt

import "strings"

// Pattern is a compiled topic filter. Filters use the usual hierarchy
// wildcards: "+" matches exactly one non-empty level, a trailing "#" matches
// the parent level and everything below it. Compiling once up front keeps the
// per-message dispatch
// to a slice walk instead of re-splitting the filter on every publish.
type Pattern struct {
	raw    string
	levels []string
}

func CompilePattern(filter string) Pattern {
	return Pattern{raw: filter, levels: strings.Split(filter, "/")}
}

func (p Pattern) String() string { return p.raw }

// Matches reports whether the concrete topic satisfies the filter.
func (p Pattern) Matches(topic string) bool {
	parts := strings.Split(topic, "/")
	for i, level := range p.levels {
		if level == "#" {
			// "#" also matches the parent level itself, so "parking/#"
			// covers the bare "parking" topic.
			return true
		}
		if i >= len(parts) {
			return false
		}
		if level == "+" {
			if parts[i] == "" {
				return false
			}
			continue
		}
		if level != parts[i] {
			return false
		}
	}
	return len(parts) == len(p.levels)
}

// MatchTopic is the one-shot form used where a compiled Pattern is not worth
// keeping around.
func MatchTopic(filter, topic string) bool {
	return CompilePattern(filter).Matches(topic)
}
