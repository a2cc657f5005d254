// Package settings keeps the lab profile shared by every page and the
// rules of the settings form.
package settings

import (
	"context"
	"sync"

	"labdesk/internal/models"
)

type Fetcher interface {
	GetSettings(ctx context.Context) (*models.Settings, error)
}

// Cache holds the last known settings and fans updates out to subscribers.
// Subscribers only ever see the latest value; a slow reader skips
// intermediate ones.
type Cache struct {
	mu   sync.RWMutex
	cur  *models.Settings
	subs map[int]chan models.Settings
	next int
}

func NewCache() *Cache {
	return &Cache{subs: make(map[int]chan models.Settings)}
}

func (c *Cache) Get() (models.Settings, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cur == nil {
		return models.Settings{}, false
	}
	return *c.cur, true
}

// Load returns the cached settings, fetching and publishing them on a miss.
func (c *Cache) Load(ctx context.Context, f Fetcher) (models.Settings, error) {
	if s, ok := c.Get(); ok {
		return s, nil
	}
	s, err := f.GetSettings(ctx)
	if err != nil {
		return models.Settings{}, err
	}
	c.Publish(*s)
	return *s, nil
}

func (c *Cache) Publish(s models.Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = &s
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

// Subscribe returns a channel of updates and a func that ends the
// subscription and closes the channel.
func (c *Cache) Subscribe() (<-chan models.Settings, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.next
	c.next++
	ch := make(chan models.Settings, 1)
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subs, id)
			close(ch)
		})
	}
}
