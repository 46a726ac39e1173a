package domain

// Turn is one completed exchange: the user's query and the final answer.
type Turn struct {
	Query  Query  `json:"query"`
	Answer string `json:"answer"`
}

// ConversationState holds prior turns for context continuity. Append-only
// with oldest-first eviction once the window is exceeded. Single writer per
// session; the owning session mutates it only after an answer is composed.
type ConversationState struct {
	turns  []Turn
	window int
}

// NewConversationState creates a state bounded to window turns.
// A window below 1 falls back to 1.
func NewConversationState(window int) *ConversationState {
	if window < 1 {
		window = 1
	}
	return &ConversationState{window: window}
}

// Append adds a completed turn, evicting the oldest when over capacity.
func (c *ConversationState) Append(t Turn) {
	c.turns = append(c.turns, t)
	if len(c.turns) > c.window {
		c.turns = c.turns[len(c.turns)-c.window:]
	}
}

// Recent returns up to n turns, oldest first.
func (c *ConversationState) Recent(n int) []Turn {
	if n <= 0 || len(c.turns) == 0 {
		return nil
	}
	if n > len(c.turns) {
		n = len(c.turns)
	}
	out := make([]Turn, n)
	copy(out, c.turns[len(c.turns)-n:])
	return out
}

// Len returns the number of retained turns.
func (c *ConversationState) Len() int {
	return len(c.turns)
}
