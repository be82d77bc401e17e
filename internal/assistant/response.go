package assistant

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"procura-backend/internal/catalog"
	"procura-backend/internal/modules"
)

// QuickAction is an inline reply button rendered under an agent message.
type QuickAction struct {
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
}

// ModuleRequest asks the client to embed a dashboard module.
type ModuleRequest struct {
	Type modules.Type   `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

type Payload struct {
	Suppliers     []catalog.Supplier        `json:"suppliers,omitempty"`
	QuickActions  []QuickAction             `json:"quickActions,omitempty"`
	Research      []catalog.ResearchFinding `json:"research,omitempty"`
	ModuleRequest *ModuleRequest            `json:"moduleRequest,omitempty"`
}

type Response struct {
	Message string   `json:"message"`
	Payload *Payload `json:"payload,omitempty"`
}

const fallbackMessage = "I can help with supplier searches and comparisons, RFQs, contract renewals, market research, and dashboards for compliance, inventory, categories or reports. Try \"show top GMP suppliers\" or \"create an RFQ\"."

// Generator produces canned replies from the catalog.
type Generator struct {
	cat *catalog.Catalog
}

func NewGenerator(cat *catalog.Catalog) *Generator {
	return &Generator{cat: cat}
}

// Generate builds the reply for tag. A non-nil ctx means a flow is active:
// the input is consumed by the pending step and tag is ignored. The second
// return is the context for the next turn.
func (g *Generator) Generate(tag IntentTag, text string, ctx *ConversationContext, now time.Time) (Response, *ConversationContext) {
	if ctx != nil {
		if IsEscape(text) {
			return Response{Message: "Okay, I've cancelled that. What would you like to do next?"}, nil
		}
		next, msg := Advance(ctx, text, now)
		if next == nil && ctx.Flow == FlowContractRenewal {
			msg += g.counterparty(ctx.Fields[FieldContract])
		}
		return Response{Message: msg}, next
	}
	if ft, ok := FlowForIntent(tag); ok {
		next, msg := StartFlow(ft, text, now)
		if ft == FlowContractRenewal {
			msg += g.renewalCandidates()
		}
		return Response{Message: msg}, next
	}

	m := strings.ToLower(text)
	switch tag {
	case IntentSupplierSearch:
		return g.supplierSearch(m), nil
	case IntentSupplierComparison:
		return g.supplierComparison(m), nil
	case IntentResearchRequest:
		return g.research(m), nil
	case IntentModuleRequest:
		return g.module(m), nil
	}
	return Response{
		Message: fallbackMessage,
		Payload: &Payload{QuickActions: []QuickAction{
			{Label: "Top suppliers", Prompt: "Show top suppliers"},
			{Label: "Create RFQ", Prompt: "Create an RFQ"},
			{Label: "Compliance", Prompt: "Show compliance dashboard"},
		}},
	}, nil
}

func (g *Generator) supplierName(id string) string {
	if s, ok := g.cat.SupplierByID(id); ok {
		return s.Name
	}
	return id
}

// renewalCandidates lists contracts due for renewal after the opening question.
func (g *Generator) renewalCandidates() string {
	due := g.cat.RenewalCandidates()
	if len(due) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(" Contracts due for renewal:")
	for i, ct := range due {
		if i > 0 {
			b.WriteString(";")
		}
		fmt.Fprintf(&b, " %s (%s, %s, %s on %s)", ct.Title, ct.ID, g.supplierName(ct.SupplierID), ct.Status, ct.EndsOn)
	}
	b.WriteString(".")
	return b.String()
}

// counterparty names the supplier behind the contract the user picked.
func (g *Generator) counterparty(ref string) string {
	ct, ok := g.cat.FindContract(ref)
	if !ok {
		return ""
	}
	return fmt.Sprintf(" Counterparty: %s (%s, ends %s).", g.supplierName(ct.SupplierID), ct.ID, ct.EndsOn)
}

func (g *Generator) supplierSearch(m string) Response {
	f := catalog.SupplierFilter{GMPOnly: strings.Contains(m, "gmp")}
	if cat, ok := g.cat.MatchCategory(m); ok {
		f.Category = cat
	}
	if strings.Contains(m, "top") || strings.Contains(m, "best") {
		f.Limit = 3
	}
	list := g.cat.FilterSuppliers(f)

	var b strings.Builder
	switch {
	case len(list) == 0:
		b.WriteString("I couldn't find suppliers matching that request.")
	case f.Limit > 0:
		fmt.Fprintf(&b, "Here are the top %d suppliers", len(list))
	default:
		fmt.Fprintf(&b, "I found %d suppliers", len(list))
	}
	if len(list) > 0 {
		if f.Category != "" {
			fmt.Fprintf(&b, " for %s", f.Category)
		}
		if f.GMPOnly {
			b.WriteString(" with GMP certification")
		}
		b.WriteString(", ranked by rating.")
	}

	p := &Payload{
		Suppliers: list,
		QuickActions: []QuickAction{
			{Label: "Compare suppliers", Prompt: "Compare the top suppliers"},
			{Label: "Request quotes", Prompt: "Create an RFQ"},
		},
	}
	if f.GMPOnly {
		p.ModuleRequest = &ModuleRequest{Type: modules.TypeSuppliers, Data: map[string]any{modules.FlagFilteredByGMP: true}}
	}
	return Response{Message: b.String(), Payload: p}
}

func (g *Generator) supplierComparison(m string) Response {
	f := catalog.SupplierFilter{Limit: 3, GMPOnly: strings.Contains(m, "gmp")}
	if cat, ok := g.cat.MatchCategory(m); ok {
		f.Category = cat
	}
	list := g.cat.FilterSuppliers(f)
	if len(list) < 2 {
		return Response{
			Message: "I need at least two matching suppliers to run a comparison. Try widening the search.",
			Payload: &Payload{Suppliers: list},
		}
	}
	var b strings.Builder
	b.WriteString("Comparison: ")
	for i, s := range list {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s (rating %.1f, %d-day lead time, on-time %.0f%%, price index %.2f)",
			s.Name, s.Rating, s.LeadTimeDays, s.OnTimeRate*100, s.PriceIndex)
	}
	cheapest := list[0]
	for _, s := range list[1:] {
		if s.PriceIndex < cheapest.PriceIndex {
			cheapest = s
		}
	}
	fmt.Fprintf(&b, ". %s leads on rating; %s offers the lowest price.", list[0].Name, cheapest.Name)
	return Response{
		Message: b.String(),
		Payload: &Payload{
			Suppliers:    list,
			QuickActions: []QuickAction{{Label: "Request quotes", Prompt: "Create an RFQ"}},
		},
	}
}

func (g *Generator) research(m string) Response {
	topic := ""
	for _, f := range g.cat.Research {
		if f.Topic != "general" && strings.Contains(m, f.Topic) {
			topic = f.Topic
			break
		}
	}
	findings := g.cat.ResearchFor(topic)
	msg := fmt.Sprintf("I reviewed current market intelligence and found %d relevant finding(s)", len(findings))
	if topic != "" {
		msg += " on " + topic
	}
	msg += "."
	return Response{
		Message: msg,
		Payload: &Payload{
			Research:     findings,
			QuickActions: []QuickAction{{Label: "Find alternative suppliers", Prompt: "Show top suppliers"}},
		},
	}
}

// moduleKeywords picks the dashboard for a module request, first match wins.
var moduleKeywords = []struct {
	typ      modules.Type
	keywords []string
}{
	{modules.TypeCompliance, []string{"compliance", "audit"}},
	{modules.TypeReports, []string{"report", "analytics", "spend"}},
	{modules.TypeInventory, []string{"inventory", "stock"}},
	{modules.TypeCategories, []string{"categor"}},
}

func (g *Generator) module(m string) Response {
	typ := modules.TypeReports
	for _, mk := range moduleKeywords {
		if containsAny(m, mk.keywords) {
			typ = mk.typ
			break
		}
	}
	data := map[string]any{}
	if strings.Contains(m, "gmp") {
		data[modules.FlagFilteredByGMP] = true
	}
	if hasWord(m, "critical") || hasWord(m, "low") {
		data[modules.FlagCategoryFilter] = true
	}
	return Response{
		Message: fmt.Sprintf("Here is the %s dashboard.", typ),
		Payload: &Payload{ModuleRequest: &ModuleRequest{Type: typ, Data: data}},
	}
}

// hasWord reports whether w appears in m as a whole word.
func hasWord(m, w string) bool {
	for _, f := range strings.FieldsFunc(m, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }) {
		if f == w {
			return true
		}
	}
	return false
}
