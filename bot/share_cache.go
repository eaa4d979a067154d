package bot

import "sync"

// shareCache remembers the last copyable share message sent to each user so
// it can be deleted when they navigate away or request a fresh one. Entries
// are ephemeral; losing them on restart only leaves a stale message behind.
type shareCache struct {
	mu       sync.Mutex
	messages map[int64]int
}

func newShareCache() *shareCache {
	return &shareCache{messages: make(map[int64]int)}
}

// Put stores the message ID for a user, returning the previous one and
// whether it existed
func (c *shareCache) Put(telegramID int64, messageID int) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, ok := c.messages[telegramID]
	c.messages[telegramID] = messageID
	return prev, ok
}

// Take removes and returns the cached message ID for a user
func (c *shareCache) Take(telegramID int64) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.messages[telegramID]
	if ok {
		delete(c.messages, telegramID)
	}
	return id, ok
}
