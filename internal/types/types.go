package types

import (
	"procura-backend/internal/assistant"
	"procura-backend/internal/modules"
)

type ChatRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message"`
}

type ChatResponse struct {
	SessionID string                       `json:"sessionId"`
	Reply     string                       `json:"reply"`
	Message   assistant.Message            `json:"message"`
	Intent    *IntentResponse              `json:"intent,omitempty"`
	Actions   []assistant.ActionSuggestion `json:"actions"`
	Module    *modules.Module              `json:"module,omitempty"`
	Flow      *FlowStatus                  `json:"flow,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// IntentResponse tells the frontend which intent handled the message and
// carries its structured payload.
type IntentResponse struct {
	Type    string             `json:"type"`
	Payload *assistant.Payload `json:"payload,omitempty"`
}

// FlowStatus describes an active scripted flow.
type FlowStatus struct {
	Flow       string `json:"flow"`
	Step       int    `json:"step"`
	TotalSteps int    `json:"totalSteps"`
	StepName   string `json:"stepName"`
	Status     string `json:"status"` // NEEDS_INFO while questions remain
}

type DropRequest struct {
	Content string `json:"content"`
}

type ClassifyRequest struct {
	Message string `json:"message"`
}

type ClassifyResponse struct {
	Intent string `json:"intent"`
}

type HistoryResponse struct {
	SessionID string              `json:"sessionId"`
	Messages  []assistant.Message `json:"messages"`
	Flow      *FlowStatus         `json:"flow,omitempty"`
}

// WSEvent is a server frame on the chat websocket.
type WSEvent struct {
	Event string        `json:"event"` // thinking | reply | cancelled | error
	Chat  *ChatResponse `json:"chat,omitempty"`
	Error string        `json:"error,omitempty"`
}

// NewFlowStatus converts an active context; nil when no flow is active.
func NewFlowStatus(c *assistant.ConversationContext) *FlowStatus {
	if c == nil {
		return nil
	}
	fs := &FlowStatus{Flow: string(c.Flow), Step: c.Step, TotalSteps: c.TotalSteps(), Status: "NEEDS_INFO"}
	if step, ok := c.CurrentStep(); ok {
		fs.StepName = step.Name
	}
	return fs
}
