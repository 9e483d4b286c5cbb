package response

// Result is what every stage of the chat pipeline hands back.
// Success=false means a degraded path produced Text; Text is always safe to show.
type Result struct {
	Text    string `json:"text"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// OK wraps a reply produced by a primary path
func OK(text string) Result {
	return Result{Text: text, Success: true}
}

// Degraded wraps a fallback reply together with the reason the primary path was skipped
func Degraded(text, reason string) Result {
	return Result{Text: text, Success: false, Error: reason}
}
