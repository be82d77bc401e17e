package assistant

import (
	"fmt"
	"strings"
	"time"
)

// FlowType names a scripted multi-turn dialogue.
type FlowType string

// FieldKey names a value collected by a flow step.
type FieldKey string

const (
	FlowRFQ             FlowType = "rfq"
	FlowContractRenewal FlowType = "contract_renewal"
)

const (
	FieldRequest  FieldKey = "request"
	FieldQuantity FieldKey = "quantity"
	FieldTimeline FieldKey = "timeline"
	FieldSpecs    FieldKey = "specs"
	FieldContract FieldKey = "contract"
	FieldTerm     FieldKey = "term"
)

// FlowStep is one scripted question and the field its answer fills.
type FlowStep struct {
	Name     string
	Field    FieldKey
	Question string
}

type flowDef struct {
	Intro   string
	Steps   []FlowStep
	Summary func(fields map[FieldKey]string) string
}

var flows = map[FlowType]flowDef{
	FlowRFQ: {
		Intro: "Let's put together a request for quotation.",
		Steps: []FlowStep{
			{Name: "ask_quantity", Field: FieldQuantity, Question: "What quantity do you need?"},
			{Name: "ask_timeline", Field: FieldTimeline, Question: "What is your delivery timeline?"},
			{Name: "ask_specs", Field: FieldSpecs, Question: "Any specifications or quality requirements (dosage form, pack size, certifications)?"},
		},
		Summary: func(f map[FieldKey]string) string {
			return fmt.Sprintf("RFQ draft ready. Quantity: %s. Timeline: %s. Specifications: %s. I'll share it with matching GMP-certified suppliers once you confirm.",
				f[FieldQuantity], f[FieldTimeline], f[FieldSpecs])
		},
	},
	FlowContractRenewal: {
		Intro: "Let's prepare a contract renewal.",
		Steps: []FlowStep{
			{Name: "ask_contract", Field: FieldContract, Question: "Which contract should be renewed?"},
			{Name: "ask_term", Field: FieldTerm, Question: "What renewal term are you targeting?"},
		},
		Summary: func(f map[FieldKey]string) string {
			return fmt.Sprintf("Renewal request drafted for %s with a term of %s. Legal and finance will be notified for review.",
				f[FieldContract], f[FieldTerm])
		},
	},
}

// ConversationContext tracks progress through a scripted flow. Step is the
// 1-based index of the step whose question is pending.
type ConversationContext struct {
	Flow      FlowType            `json:"flow"`
	Step      int                 `json:"step"`
	Fields    map[FieldKey]string `json:"fields"`
	StartedAt time.Time           `json:"startedAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// Clone returns a deep copy so callers never share the field map.
func (c *ConversationContext) Clone() *ConversationContext {
	if c == nil {
		return nil
	}
	out := *c
	out.Fields = make(map[FieldKey]string, len(c.Fields))
	for k, v := range c.Fields {
		out.Fields[k] = v
	}
	return &out
}

// CurrentStep returns the pending step.
func (c *ConversationContext) CurrentStep() (FlowStep, bool) {
	def, ok := flows[c.Flow]
	if !ok || c.Step < 1 || c.Step > len(def.Steps) {
		return FlowStep{}, false
	}
	return def.Steps[c.Step-1], true
}

// TotalSteps is the number of questions in the flow.
func (c *ConversationContext) TotalSteps() int {
	return len(flows[c.Flow].Steps)
}

// StartFlow opens flow ft at step 1 and returns the context with the opening
// message.
func StartFlow(ft FlowType, request string, now time.Time) (*ConversationContext, string) {
	def := flows[ft]
	ctx := &ConversationContext{
		Flow:      ft,
		Step:      1,
		Fields:    map[FieldKey]string{FieldRequest: request},
		StartedAt: now,
		UpdatedAt: now,
	}
	return ctx, def.Intro + " " + def.Steps[0].Question
}

// Advance records input into the pending step's field. It returns the next
// context (nil once the flow is complete) and the reply. Input is stored
// verbatim; whitespace-only input re-asks the pending question.
func Advance(c *ConversationContext, input string, now time.Time) (*ConversationContext, string) {
	step, ok := c.CurrentStep()
	if !ok {
		return nil, "That conversation has expired. What would you like to do next?"
	}
	if strings.TrimSpace(input) == "" {
		return c.Clone(), step.Question
	}
	next := c.Clone()
	next.Fields[step.Field] = input
	next.UpdatedAt = now
	def := flows[c.Flow]
	if next.Step >= len(def.Steps) {
		return nil, def.Summary(next.Fields)
	}
	next.Step++
	return next, def.Steps[next.Step-1].Question
}

var escapePhrases = []string{"cancel", "stop", "never mind", "nevermind", "start over"}

// IsEscape reports whether input abandons the active flow.
func IsEscape(input string) bool {
	m := strings.ToLower(strings.TrimSpace(input))
	for _, p := range escapePhrases {
		if m == p {
			return true
		}
	}
	return false
}

// FlowForIntent maps intents that open a scripted flow.
func FlowForIntent(tag IntentTag) (FlowType, bool) {
	switch tag {
	case IntentRFQCreate:
		return FlowRFQ, true
	case IntentContractRenewal:
		return FlowContractRenewal, true
	}
	return "", false
}
