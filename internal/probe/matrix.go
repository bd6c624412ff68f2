package probe

import (
	"sort"
	"strings"

	"github.com/MOYARU/crawlprobe/internal/crawler"
)

// NeutralValue fills parameters that have no declared default.
const NeutralValue = "test"

// Case is one request of a payload matrix: Param carries Payload and every
// other parameter holds its baseline value.
type Case struct {
	Form    crawler.Form
	Param   string
	Payload string
	Params  map[string]string
}

// Baseline is the all-neutral parameter map used for control requests.
func Baseline(form crawler.Form) map[string]string {
	params := make(map[string]string, len(form.Inputs))
	for _, name := range form.Inputs {
		if v, ok := form.Default(name); ok {
			params[name] = v
			continue
		}
		params[name] = NeutralValue
	}
	return params
}

// Placement says how a payload is combined with a parameter's baseline.
type Placement int

const (
	// Replace sends the payload as the whole value.
	Replace Placement = iota
	// Append sends the baseline value followed by the payload.
	Append
)

// BuildMatrix expands a form into one Case per targetable parameter and
// payload, in TargetParams order. Anti-CSRF token fields keep their value and
// are never targeted.
func BuildMatrix(form crawler.Form, payloads []string, placement Placement) []Case {
	base := Baseline(form)
	var cases []Case
	for _, param := range TargetParams(form) {
		for _, payload := range payloads {
			value := payload
			if placement == Append {
				value = base[param] + payload
			}
			cases = append(cases, Case{Form: form, Param: param, Payload: payload, Params: withValue(base, param, value)})
		}
	}
	return cases
}

// ByParam groups matrix cases by their target parameter, keeping payload
// order within each group.
func ByParam(cases []Case) map[string][]Case {
	out := make(map[string][]Case)
	for _, c := range cases {
		out[c.Param] = append(out[c.Param], c)
	}
	return out
}

func withValue(base map[string]string, param, value string) map[string]string {
	params := make(map[string]string, len(base))
	for k, v := range base {
		params[k] = v
	}
	params[param] = value
	return params
}

// TargetParams lists the parameters worth probing, highest risk first.
func TargetParams(form crawler.Form) []string {
	keys := make([]string, 0, len(form.Inputs))
	for _, name := range form.Inputs {
		if isProtectedField(name) {
			continue
		}
		keys = append(keys, name)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return paramRiskScore(keys[i]) > paramRiskScore(keys[j])
	})
	return keys
}

func isProtectedField(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "csrf") || strings.Contains(n, "xsrf") ||
		n == "__requestverificationtoken" || n == "authenticity_token" || n == "_token"
}

func paramRiskScore(name string) int {
	n := strings.ToLower(strings.TrimSpace(name))
	score := 1
	switch {
	case strings.Contains(n, "id"), strings.Contains(n, "user"), strings.Contains(n, "account"):
		score += 7
	case strings.Contains(n, "search"), strings.Contains(n, "query"), strings.Contains(n, "keyword"), n == "q":
		score += 5
	case strings.Contains(n, "file"), strings.Contains(n, "path"), strings.Contains(n, "doc"):
		score += 5
	default:
		if len(n) <= 2 {
			score += 2
		}
	}
	return score
}
