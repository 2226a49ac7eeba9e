package actions

// Wire types for the action surface. These are consumed by arbitrary
// third-party wallet clients, so the shapes stay stable and every response
// is a valid payload even on failure.

// LinkType values used by linked actions.
const (
	LinkTypePost     = "post"
	LinkTypeMessage  = "message"
	LinkTypeExternal = "external-link"
)

// ActionResponse is the discovery/result payload: what the caller can do
// next, or why they cannot do anything.
type ActionResponse struct {
	Icon        string        `json:"icon"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Label       string        `json:"label"`
	Disabled    bool          `json:"disabled,omitempty"`
	Links       *ActionLinks  `json:"links,omitempty"`
	Error       *ActionError  `json:"error,omitempty"`
}

// ActionLinks groups the follow-up links of a response.
type ActionLinks struct {
	Actions []LinkedAction `json:"actions"`
}

// LinkedAction is one actionable follow-up.
type LinkedAction struct {
	Type       string            `json:"type"`
	Href       string            `json:"href"`
	Label      string            `json:"label"`
	Parameters []ActionParameter `json:"parameters,omitempty"`
}

// ActionParameter describes a caller-supplied input substituted into the
// href template.
type ActionParameter struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Type     string `json:"type,omitempty"`
	Required bool   `json:"required,omitempty"`
}

// ActionError carries the human-facing failure message.
type ActionError struct {
	Message string `json:"message"`
}

// TransactionResponse returns an unsigned transaction for external signing
// plus where to go once it is signed.
type TransactionResponse struct {
	Transaction string   `json:"transaction"`
	Message     string   `json:"message,omitempty"`
	Links       *TxLinks `json:"links,omitempty"`
}

// TxLinks chains a transaction response to the next hop.
type TxLinks struct {
	Next    *NextAction    `json:"next,omitempty"`
	Actions []LinkedAction `json:"actions,omitempty"`
}

// NextAction points at the endpoint that continues the flow.
type NextAction struct {
	Type string `json:"type"`
	Href string `json:"href"`
}

// CompletedResponse is the terminal payload: a confirmation or an external
// redirect back into the app.
type CompletedResponse struct {
	Type         string `json:"type"`
	Title        string `json:"title,omitempty"`
	Description  string `json:"description,omitempty"`
	ExternalLink string `json:"externalLink,omitempty"`
}
