package conversation

import "sync"

// MaxTurns is the hard upper bound on retained turns per conversation.
const MaxTurns = 10

type Role string

const (
	RoleUser   Role = "user"
	RoleSystem Role = "system"
)

type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Context is a bounded FIFO log of turns. Oldest turns are evicted first.
type Context struct {
	mu    sync.Mutex
	limit int
	turns []Turn
}

// NewContext returns an empty context holding at most limit turns.
// Limits outside 1..MaxTurns fall back to MaxTurns.
func NewContext(limit int) *Context {
	if limit <= 0 || limit > MaxTurns {
		limit = MaxTurns
	}
	return &Context{limit: limit}
}

func (c *Context) Append(turns ...Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns = append(c.turns, turns...)
	if overflow := len(c.turns) - c.limit; overflow > 0 {
		trimmed := make([]Turn, c.limit)
		copy(trimmed, c.turns[overflow:])
		c.turns = trimmed
	}
}

func (c *Context) Turns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

func (c *Context) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

func (c *Context) Limit() int {
	return c.limit
}

func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
}
