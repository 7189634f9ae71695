package models

// Message is one conversational turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Roles accepted in history. Anything else is treated as user.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatRequest is the /api/chat envelope.
type ChatRequest struct {
	Message      string                 `json:"message"`
	ProposalSpec map[string]interface{} `json:"proposalSpec"`
	History      []Message              `json:"history"`
	Memory       map[string]interface{} `json:"memory,omitempty"`
	UserID       string                 `json:"userId,omitempty"`
	Lang         string                 `json:"lang,omitempty"`
}

// ChatResponse always carries a well-formed proposal document.
type ChatResponse struct {
	Reply        string                 `json:"reply"`
	ProposalSpec map[string]interface{} `json:"proposalSpec"`
	Actions      []Action               `json:"actions"`
	Memory       map[string]interface{} `json:"memory,omitempty"`
}

// Action is a suggested follow-up such as {"type":"preview"} or {"type":"upgrade"}.
type Action map[string]interface{}

// StyleRequest is the /api/style envelope.
type StyleRequest struct {
	UserText      string                 `json:"userText"`
	CurrentDesign map[string]interface{} `json:"currentDesign"`
	Lang          string                 `json:"lang,omitempty"`
	UserID        string                 `json:"userId,omitempty"`
}

// StyleResponse returns the model diff and the design it produces once merged.
// Reply is only set when the style could not be interpreted.
type StyleResponse struct {
	DesignSpecDiff map[string]interface{} `json:"designSpecDiff"`
	DesignSpec     map[string]interface{} `json:"designSpec"`
	Reply          string                 `json:"reply,omitempty"`
}
