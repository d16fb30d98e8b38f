package types //nolint:revive // package name is intentional

// Response is the unified provider output. Provider and Model record which
// backend actually answered, which may differ from the chain's first entry.
type Response struct {
	ID           string  `json:"id"`
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	Content      string  `json:"content"`
	FinishReason string  `json:"finish_reason,omitempty"`
	Usage        *Usage  `json:"usage,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
	Created      int64   `json:"created"`
}

// Usage contains token usage statistics for the request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Reported returns true when the provider included a confidence score.
// Zero means the provider did not report one.
func (r *Response) Reported() bool {
	return r != nil && r.Confidence > 0
}
