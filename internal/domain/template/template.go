// Package template renders {{token}} placeholders in email subjects and bodies.
//
// Substitution is literal: no escaping, no conditionals, no loops. Placeholders
// without a supplied value are left untouched.
package template

import (
	"regexp"
	"sort"
	"strings"
)

var placeholder = regexp.MustCompile(`\{\{([A-Za-z_][A-Za-z0-9_]*)\}\}`)

// Render replaces every {{key}} in tmpl with vars[key].
func Render(tmpl string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(tmpl, "{{") {
		return tmpl
	}
	pairs := make([]string, 0, len(vars)*2)
	// Sorted so the replacer is deterministic for overlapping keys.
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pairs = append(pairs, "{{"+k+"}}", vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// Variables returns the distinct placeholder names in order of first appearance
// across all inputs.
func Variables(inputs ...string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, in := range inputs {
		for _, m := range placeholder.FindAllStringSubmatch(in, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				out = append(out, m[1])
			}
		}
	}
	return out
}

// Missing lists placeholders in tmpl that vars does not cover.
func Missing(tmpl string, vars map[string]string) []string {
	var out []string
	for _, name := range Variables(tmpl) {
		if _, ok := vars[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}
