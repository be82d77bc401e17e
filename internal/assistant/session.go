package assistant

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"procura-backend/internal/catalog"
	"procura-backend/internal/logging"
)

type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// Message is one chat turn entry. Messages are never edited after creation.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Intent    IntentTag `json:"intent,omitempty"`
	Payload   *Payload  `json:"payload,omitempty"`
}

// Session is the whole conversation aggregate. Engine.Apply and Engine.Drop
// are its only transitions.
type Session struct {
	ID        string               `json:"id"`
	Messages  []Message            `json:"messages"`
	Context   *ConversationContext `json:"context,omitempty"`
	LastTag   IntentTag            `json:"lastTag,omitempty"`
	Custom    []CustomAction       `json:"custom"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// NewSession returns an empty session with id.
func NewSession(id string) Session {
	return Session{ID: id, LastTag: IntentFallback}
}

// Clone deep-copies slices and the active context.
func (s Session) Clone() Session {
	out := s
	out.Messages = append([]Message(nil), s.Messages...)
	out.Custom = append([]CustomAction(nil), s.Custom...)
	out.Context = s.Context.Clone()
	return out
}

// Turn is the outcome of one dispatch.
type Turn struct {
	Tag      IntentTag            `json:"tag"`
	User     Message              `json:"user"`
	Reply    Message              `json:"reply"`
	Response Response             `json:"response"`
	Actions  []ActionSuggestion   `json:"actions"`
	Context  *ConversationContext `json:"context,omitempty"`
}

// IntentAssist can rescue input the keyword table leaves on fallback.
type IntentAssist interface {
	Classify(ctx context.Context, text string) (IntentTag, error)
}

type EngineOptions struct {
	Rules         RuleSet
	Catalog       *catalog.Catalog
	Assist        IntentAssist
	MaxMessages   int
	MaxCustom     int
	ThinkDelay    time.Duration
	ResearchDelay time.Duration
	Now           func() time.Time
	NewID         func() string
}

// Engine wires the classifier, generator and action composer together.
type Engine struct {
	rules         RuleSet
	gen           *Generator
	assist        IntentAssist
	maxMessages   int
	maxCustom     int
	thinkDelay    time.Duration
	researchDelay time.Duration
	now           func() time.Time
	newID         func() string
}

func NewEngine(opts EngineOptions) *Engine {
	e := &Engine{
		rules:         opts.Rules,
		assist:        opts.Assist,
		maxMessages:   opts.MaxMessages,
		maxCustom:     opts.MaxCustom,
		thinkDelay:    opts.ThinkDelay,
		researchDelay: opts.ResearchDelay,
		now:           opts.Now,
		newID:         opts.NewID,
	}
	if e.rules == nil {
		e.rules = DefaultRules
	}
	cat := opts.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	e.gen = NewGenerator(cat)
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = func() string { return uuid.NewString() }
	}
	return e
}

// Classify runs the keyword table, then the assist for fallback input.
func (e *Engine) Classify(ctx context.Context, text string) IntentTag {
	tag := e.rules.Classify(text)
	if tag != IntentFallback || e.assist == nil {
		return tag
	}
	assisted, err := e.assist.Classify(ctx, text)
	if err != nil {
		logging.AppLogger.Warn("intent assist failed", zap.Error(err))
		return IntentFallback
	}
	return assisted
}

func flowIntent(ft FlowType) IntentTag {
	switch ft {
	case FlowRFQ:
		return IntentRFQCreate
	case FlowContractRenewal:
		return IntentContractRenewal
	}
	return IntentFallback
}

// Decide computes the outcome of one user input against s without changing
// it. While a flow is active the input goes to the flow and is not
// classified.
func (e *Engine) Decide(ctx context.Context, s Session, text string) Turn {
	now := e.now()
	var tag IntentTag
	if s.Context != nil {
		tag = flowIntent(s.Context.Flow)
	} else {
		tag = e.Classify(ctx, text)
	}
	resp, nextCtx := e.gen.Generate(tag, text, s.Context, now)
	return Turn{
		Tag:      tag,
		User:     Message{ID: e.newID(), Content: text, Sender: SenderUser, Timestamp: now, Intent: tag},
		Reply:    Message{ID: e.newID(), Content: resp.Message, Sender: SenderAgent, Timestamp: now, Intent: tag, Payload: resp.Payload},
		Response: resp,
		Actions:  ComputeActions(tag),
		Context:  nextCtx,
	}
}

// Apply returns s with the turn's messages appended and its flow context
// installed.
func (e *Engine) Apply(s Session, t Turn) Session {
	next := s.Clone()
	next.Messages = append(next.Messages, t.User, t.Reply)
	if e.maxMessages > 0 && len(next.Messages) > e.maxMessages {
		next.Messages = next.Messages[len(next.Messages)-e.maxMessages:]
	}
	next.Context = t.Context.Clone()
	next.LastTag = t.Tag
	next.UpdatedAt = t.Reply.Timestamp
	return next
}

// Dispatch is Decide followed by Apply.
func (e *Engine) Dispatch(ctx context.Context, s Session, text string) (Session, Turn) {
	t := e.Decide(ctx, s, text)
	return e.Apply(s, t), t
}

// Drop appends a custom action made from dropped text.
func (e *Engine) Drop(s Session, content string) (Session, CustomAction, error) {
	list, ca, err := AppendCustom(s.Custom, content, e.newID(), e.now(), e.maxCustom)
	if err != nil {
		return s, CustomAction{}, err
	}
	next := s.Clone()
	next.Custom = list
	next.UpdatedAt = ca.CreatedAt
	return next, ca, nil
}

// Panel returns the action preview panel for s.
func (e *Engine) Panel(s Session) Panel {
	tag := s.LastTag
	if tag == "" {
		tag = IntentFallback
	}
	return Panel{Tag: tag, Actions: ComputeActions(tag), Custom: append([]CustomAction(nil), s.Custom...)}
}

// DelayFor is the simulated processing time for a turn. Research lookups
// take longer than ordinary replies.
func (e *Engine) DelayFor(t Turn) time.Duration {
	if p := t.Response.Payload; p != nil && len(p.Research) > 0 {
		return e.researchDelay
	}
	return e.thinkDelay
}
