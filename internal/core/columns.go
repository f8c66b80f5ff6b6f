package core

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

type (
	// RoleRule reports whether a column name belongs to Role.
	// Names are passed upper-cased and trimmed.
	RoleRule struct {
		Role  Role
		match func(upper string) bool
		desc  string
	}

	// Classifier maps column names to roles. Rules are tried in order and
	// the first match wins; unmatched columns are RolePlain.
	Classifier struct {
		rules []RoleRule
	}

	// DisplayHint tells a grid editor how to format a column.
	DisplayHint struct {
		Kind   string   `json:"kind"`
		Format string   `json:"format,omitempty"`
		Step   float64  `json:"step,omitempty"`
		Min    *float64 `json:"min,omitempty"`
		Max    *float64 `json:"max,omitempty"`
	}
)

// KeywordRule matches when the name contains any keyword (case-insensitive).
func KeywordRule(role Role, keywords ...string) RoleRule {
	upper := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToUpper(strings.TrimSpace(k)); k != "" {
			upper = append(upper, k)
		}
	}
	return RoleRule{
		Role: role,
		desc: strings.Join(upper, "|"),
		match: func(name string) bool {
			for _, k := range upper {
				if strings.Contains(name, k) {
					return true
				}
			}
			return false
		},
	}
}

// ExprRule compiles a boolean expr-lang expression evaluated with `name`
// bound to the upper-cased column name, e.g. `name contains "BIAYA"`.
func ExprRule(role Role, expression string) (RoleRule, error) {
	program, err := expr.Compile(expression, expr.Env(map[string]any{"name": ""}), expr.AsBool())
	if err != nil {
		return RoleRule{}, fmt.Errorf("compile role rule %q: %w", expression, err)
	}
	return RoleRule{
		Role:  role,
		desc:  expression,
		match: func(name string) bool { return runBool(program, name) },
	}, nil
}

func runBool(program *vm.Program, name string) bool {
	out, err := expr.Run(program, map[string]any{"name": name})
	if err != nil {
		return false
	}
	b, _ := out.(bool)
	return b
}

func (r RoleRule) String() string { return string(r.Role) + ":" + r.desc }

// DefaultRules returns the keyword rules used by the budget sheets. Amount
// keywords take precedence over percentage keywords.
func DefaultRules() []RoleRule {
	return []RoleRule{
		KeywordRule(RoleAmount, "RP", "ANGGARAN", "HPS", "NILAI"),
		KeywordRule(RolePercentage, "%", "PERSEN", "PERSENTASE"),
		KeywordRule(RoleDate, "TGL", "TANGGAL"),
	}
}

func NewClassifier(rules ...RoleRule) *Classifier {
	return &Classifier{rules: rules}
}

// DefaultClassifier classifies with extra rules ahead of DefaultRules.
func DefaultClassifier(extra ...RoleRule) *Classifier {
	return NewClassifier(append(append([]RoleRule(nil), extra...), DefaultRules()...)...)
}

func (c *Classifier) Classify(name string) Role {
	if c == nil {
		return RolePlain
	}
	upper := strings.ToUpper(strings.TrimSpace(name))
	for _, r := range c.rules {
		if r.match != nil && r.match(upper) {
			return r.Role
		}
	}
	return RolePlain
}

// ParseRoleRules parses "role=expression;role=expression" into expr rules.
func ParseRoleRules(rules string) ([]RoleRule, error) {
	var out []RoleRule
	for _, part := range strings.Split(rules, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		role, expression, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid role rule %q: want role=expression", part)
		}
		r := Role(strings.ToLower(strings.TrimSpace(role)))
		if !r.IsValid() {
			return nil, fmt.Errorf("invalid role %q in rule %q", role, part)
		}
		rule, err := ExprRule(r, strings.TrimSpace(expression))
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, nil
}

func (r Role) IsValid() bool {
	switch r {
	case RolePlain, RoleAmount, RolePercentage, RoleDate:
		return true
	default:
		return false
	}
}

// Hint returns the grid display hint for the role.
func (r Role) Hint() DisplayHint {
	switch r {
	case RoleAmount:
		return DisplayHint{Kind: "currency", Format: "Rp %d", Step: 1000}
	case RolePercentage:
		lo, hi := 0.0, 100.0
		return DisplayHint{Kind: "percentage", Format: "%.2f%%", Step: 0.01, Min: &lo, Max: &hi}
	case RoleDate:
		return DisplayHint{Kind: "date"}
	default:
		return DisplayHint{Kind: "text"}
	}
}
