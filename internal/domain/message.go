package domain

// Action is a labeled inline action attached to an outbound message. Data
// carries a structured token of the form "entity:action:id" that comes back
// through the callback path.
type Action struct {
	Label string
	Data  string
}

// Outbound is a transport-agnostic reply: text, optional one-tap reply
// choices and optional inline actions. An Outbound with empty Text means
// "no reply".
type Outbound struct {
	Text    string
	Choices []string
	Actions []Action
}

// Empty reports whether the message carries nothing to send.
func (o Outbound) Empty() bool {
	return o.Text == "" && len(o.Choices) == 0 && len(o.Actions) == 0
}
