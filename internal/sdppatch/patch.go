// Package sdppatch rewrites received SDP answers before they are applied.
//
// Some signaling endpoints answer with an H264 profile-level-id that the
// local stack rejects (42001f, constrained baseline without the constraint
// flags). The default rule rewrites it to 42e01f. The rules are
// configurable because the need for them depends on the endpoint.
package sdppatch

import (
	"fmt"
	"strings"
)

// Rule replaces every occurrence of From with To.
type Rule struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Rules are applied in order.
type Rules []Rule

// Default returns the H264 profile fix used when nothing is configured.
func Default() Rules {
	return Rules{{From: "42001f", To: "42e01f"}}
}

// Apply returns sdp with every rule applied. Rules with an empty From are skipped.
func (r Rules) Apply(sdp string) string {
	for _, rule := range r {
		if rule.From == "" {
			continue
		}
		sdp = strings.ReplaceAll(sdp, rule.From, rule.To)
	}
	return sdp
}

func (r Rules) String() string {
	if len(r) == 0 {
		return "none"
	}
	parts := make([]string, len(r))
	for i, rule := range r {
		parts[i] = rule.From + "=" + rule.To
	}
	return strings.Join(parts, ",")
}

// ParseRules parses "from=to[,from=to...]". "none" or an empty string yields no rules.
func ParseRules(s string) (Rules, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return nil, nil
	}

	var rules Rules
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		from, to, ok := strings.Cut(part, "=")
		if !ok || from == "" {
			return nil, fmt.Errorf("invalid sdp patch rule %q, want from=to", part)
		}
		rules = append(rules, Rule{From: from, To: to})
	}
	return rules, nil
}
