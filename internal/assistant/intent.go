package assistant

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type IntentTag string

const (
	IntentSupplierSearch     IntentTag = "supplier_search"
	IntentSupplierComparison IntentTag = "supplier_comparison"
	IntentRFQCreate          IntentTag = "rfq_create"
	IntentContractRenewal    IntentTag = "contract_renewal"
	IntentResearchRequest    IntentTag = "research_request"
	IntentModuleRequest      IntentTag = "module_request"
	IntentFallback           IntentTag = "fallback"
)

// AllIntents lists every tag in declaration order.
var AllIntents = []IntentTag{
	IntentSupplierSearch,
	IntentSupplierComparison,
	IntentRFQCreate,
	IntentContractRenewal,
	IntentResearchRequest,
	IntentModuleRequest,
	IntentFallback,
}

var ErrUnknownTag = errors.New("unknown intent tag")

// ParseIntentTag validates s against the fixed enumeration.
func ParseIntentTag(s string) (IntentTag, error) {
	t := IntentTag(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllIntents {
		if t == known {
			return t, nil
		}
	}
	return IntentFallback, fmt.Errorf("%w: %q", ErrUnknownTag, s)
}

// IsSupplierTag reports whether t is one of the supplier intents.
func (t IntentTag) IsSupplierTag() bool {
	return t == IntentSupplierSearch || t == IntentSupplierComparison
}

// Rule matches when the text contains any Keywords entry and, if Requires
// is non-empty, any Requires entry as well.
type Rule struct {
	Tag      IntentTag `yaml:"tag"`
	Keywords []string  `yaml:"keywords"`
	Requires []string  `yaml:"requires,omitempty"`
}

func (r Rule) matches(m string) bool {
	if !containsAny(m, r.Keywords) {
		return false
	}
	return len(r.Requires) == 0 || containsAny(m, r.Requires)
}

// RuleSet is an ordered rule table. First match wins.
type RuleSet []Rule

// DefaultRules is the built-in table. Supplier rules come first so any
// mention of a supplier or vendor lands on a supplier intent.
var DefaultRules = RuleSet{
	{
		Tag:      IntentSupplierComparison,
		Keywords: []string{"supplier", "vendor"},
		Requires: []string{"compare", "comparison", "versus", " vs ", "side by side"},
	},
	{
		Tag:      IntentSupplierSearch,
		Keywords: []string{"supplier", "vendor", "manufacturer", "distributor"},
	},
	{
		Tag:      IntentContractRenewal,
		Keywords: []string{"renew contract", "contract renewal", "renew the contract", "renewal"},
	},
	{
		Tag:      IntentRFQCreate,
		Keywords: []string{"rfq", "request for quote", "request for quotation", "quotation", "tender"},
	},
	{
		Tag:      IntentResearchRequest,
		Keywords: []string{"research", "market price", "price trend", "look up", "alternatives", "shortage"},
	},
	{
		Tag:      IntentModuleRequest,
		Keywords: []string{"dashboard", "compliance", "inventory", "stock", "report", "categor", "analytics"},
	},
}

// Classify runs text through the table. Unmatched input is IntentFallback.
func (rs RuleSet) Classify(text string) IntentTag {
	m := strings.ToLower(strings.TrimSpace(text))
	if m == "" {
		return IntentFallback
	}
	for _, r := range rs {
		if r.matches(m) {
			return r.Tag
		}
	}
	return IntentFallback
}

// Classify uses DefaultRules.
func Classify(text string) IntentTag {
	return DefaultRules.Classify(text)
}

// Validate checks tags and keyword lists. Keywords are lowercased in place.
func (rs RuleSet) Validate() error {
	if len(rs) == 0 {
		return errors.New("rule table is empty")
	}
	for i := range rs {
		if _, err := ParseIntentTag(string(rs[i].Tag)); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
		if rs[i].Tag == IntentFallback {
			return fmt.Errorf("rule %d: fallback is the default and cannot be matched", i)
		}
		if len(rs[i].Keywords) == 0 {
			return fmt.Errorf("rule %d (%s): no keywords", i, rs[i].Tag)
		}
		for j, k := range rs[i].Keywords {
			if strings.TrimSpace(k) == "" {
				return fmt.Errorf("rule %d (%s): empty keyword", i, rs[i].Tag)
			}
			rs[i].Keywords[j] = strings.ToLower(k)
		}
		for j, k := range rs[i].Requires {
			rs[i].Requires[j] = strings.ToLower(k)
		}
	}
	return nil
}

type ruleFile struct {
	Rules RuleSet `yaml:"rules"`
}

// LoadRules reads a YAML rule table. An empty path returns DefaultRules.
func LoadRules(path string) (RuleSet, error) {
	if path == "" {
		return DefaultRules, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	var f ruleFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if err := f.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules %s: %w", path, err)
	}
	return f.Rules, nil
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
