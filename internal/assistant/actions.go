package assistant

import (
	"errors"
	"strings"
	"time"
)

type InvokeKind string

const (
	InvokeNavigate InvokeKind = "navigate"
	InvokePrompt   InvokeKind = "prompt"
)

// Invocation is what happens when a suggestion is clicked: a route change or
// a canned follow-up prompt fed back into the classifier.
type Invocation struct {
	Kind   InvokeKind `json:"kind"`
	Target string     `json:"target"`
}

type ActionSuggestion struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	ActionLabel string     `json:"actionLabel"`
	Invoke      Invocation `json:"invoke"`
	Category    string     `json:"category"`
}

// CustomAction is a user-created panel entry made from dropped text.
type CustomAction struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

var ErrEmptyDrop = errors.New("dropped content is empty")

type actionTemplate struct {
	key, title, description, icon, label, category string
	invoke                                         Invocation
}

func navigate(path string) Invocation { return Invocation{Kind: InvokeNavigate, Target: path} }
func prompt(text string) Invocation   { return Invocation{Kind: InvokePrompt, Target: text} }

var actionTemplates = map[IntentTag][]actionTemplate{
	IntentSupplierSearch: {
		{"compare", "Compare top suppliers", "Side-by-side view of ratings, lead times and pricing", "scale", "Compare", "suppliers", prompt("Compare the top suppliers")},
		{"rfq", "Start an RFQ", "Draft a request for quotation for these suppliers", "file-plus", "Create RFQ", "sourcing", prompt("Create an RFQ")},
		{"directory", "Open supplier directory", "Browse every supplier with filters", "users", "Open", "navigation", navigate("/suppliers")},
	},
	IntentSupplierComparison: {
		{"rfq", "Request quotes from shortlist", "Send an RFQ to the compared suppliers", "send", "Create RFQ", "sourcing", prompt("Create an RFQ")},
		{"compliance", "Check compliance status", "Review GMP certificates and audit dates", "shield-check", "Review", "compliance", prompt("Show compliance dashboard")},
		{"directory", "Open supplier directory", "Browse every supplier with filters", "users", "Open", "navigation", navigate("/suppliers")},
	},
	IntentRFQCreate: {
		{"suppliers", "Find GMP suppliers", "List suppliers who can respond to this RFQ", "search", "Search", "suppliers", prompt("Show top GMP suppliers")},
		{"methods", "Procurement methods", "Choose between open tender, RFQ and direct purchase", "git-branch", "Open", "navigation", navigate("/procurement-methods")},
		{"live", "Live deals", "Track open RFQs and bids", "activity", "Open", "navigation", navigate("/live-deals")},
	},
	IntentContractRenewal: {
		{"contracts", "Open contracts", "See active and expiring contracts", "file-text", "Open", "navigation", navigate("/contracts")},
		{"research", "Market price check", "Compare current terms with market prices", "trending-up", "Research", "research", prompt("Research market price trends")},
	},
	IntentResearchRequest: {
		{"suppliers", "Find alternative suppliers", "Suppliers covering the researched category", "search", "Search", "suppliers", prompt("Show top suppliers")},
		{"reports", "Spend reports", "Open procurement performance reports", "bar-chart", "Open", "navigation", navigate("/reports")},
		{"quantification", "Update quantification", "Adjust forecasts with the new market data", "calculator", "Open", "navigation", navigate("/quantification")},
	},
	IntentModuleRequest: {
		{"reports", "Full reports", "Open the reports workspace", "bar-chart", "Open", "navigation", navigate("/reports")},
		{"inventory", "Inventory workspace", "Manage stock levels and reorder points", "package", "Open", "navigation", navigate("/inventory")},
		{"qa", "Quality assurance", "Review quality incidents and audits", "clipboard-check", "Open", "navigation", navigate("/quality-assurance")},
	},
	IntentFallback: {
		{"suppliers", "Find suppliers", "Search the supplier directory", "search", "Ask", "suppliers", prompt("Show top suppliers")},
		{"rfq", "Create an RFQ", "Start a guided request for quotation", "file-plus", "Ask", "sourcing", prompt("Create an RFQ")},
		{"inventory", "Check inventory", "See stock levels and shortages", "package", "Ask", "inventory", prompt("Show inventory dashboard")},
		{"research", "Market research", "Get market intelligence on a product", "book-open", "Ask", "research", prompt("Research market price trends")},
	},
}

// ComputeActions returns the suggestion list for tag. The result is built
// fresh from static templates on each call, in template order.
func ComputeActions(tag IntentTag) []ActionSuggestion {
	tpls, ok := actionTemplates[tag]
	if !ok {
		tpls = actionTemplates[IntentFallback]
		tag = IntentFallback
	}
	out := make([]ActionSuggestion, 0, len(tpls))
	for _, t := range tpls {
		out = append(out, ActionSuggestion{
			ID:          string(tag) + "." + t.key,
			Title:       t.title,
			Description: t.description,
			Icon:        t.icon,
			ActionLabel: t.label,
			Invoke:      t.invoke,
			Category:    t.category,
		})
	}
	return out
}

// Panel is the action preview panel: computed suggestions followed by the
// user's custom actions. The two lists are never merged.
type Panel struct {
	Tag     IntentTag          `json:"tag"`
	Actions []ActionSuggestion `json:"actions"`
	Custom  []CustomAction     `json:"custom"`
}

// AppendCustom adds one custom action built from dropped text. When limit is
// positive the oldest custom actions are evicted beyond it.
func AppendCustom(list []CustomAction, content, id string, now time.Time, limit int) ([]CustomAction, CustomAction, error) {
	if strings.TrimSpace(content) == "" {
		return list, CustomAction{}, ErrEmptyDrop
	}
	ca := CustomAction{ID: id, Content: content, CreatedAt: now}
	out := make([]CustomAction, 0, len(list)+1)
	out = append(out, list...)
	out = append(out, ca)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, ca, nil
}
