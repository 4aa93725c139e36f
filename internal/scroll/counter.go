package scroll

import "sync"

// Counter is an in-memory PageCounter.
type Counter struct {
	mu sync.Mutex
	n  int
}

func NewCounter() *Counter {
	return &Counter{n: 1}
}

func (c *Counter) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.n < 1 {
		return 1
	}
	return c.n
}

func (c *Counter) SetPage(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = n
}
