package memory

// DefaultCapacity is the number of user utterances kept for the remote model.
const DefaultCapacity = 4

// Context is the capped, ordered list of recent user utterances of one
// conversation. It is not safe for concurrent use; callers serialize
// access per session.
type Context struct {
	entries  []string
	capacity int
}

// NewContext creates a context holding at most capacity entries, seeded
// with the newest of entries. A non-positive capacity uses DefaultCapacity.
func NewContext(capacity int, entries ...string) *Context {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Context{
		entries:  make([]string, 0, capacity),
		capacity: capacity,
	}
	for _, e := range entries {
		c.Append(e)
	}
	return c
}

// Append adds an utterance, dropping the oldest entries past capacity.
func (c *Context) Append(entry string) {
	c.entries = append(c.entries, entry)
	if len(c.entries) > c.capacity {
		c.entries = append(c.entries[:0], c.entries[len(c.entries)-c.capacity:]...)
	}
}

// Recent returns a copy of the newest n entries, oldest first.
func (c *Context) Recent(n int) []string {
	if n <= 0 || n > len(c.entries) {
		n = len(c.entries)
	}
	out := make([]string, n)
	copy(out, c.entries[len(c.entries)-n:])
	return out
}

// Entries returns a copy of all entries, oldest first.
func (c *Context) Entries() []string {
	return c.Recent(len(c.entries))
}

// Len returns the number of entries held.
func (c *Context) Len() int {
	return len(c.entries)
}

// Capacity returns the maximum number of entries held.
func (c *Context) Capacity() int {
	return c.capacity
}
