package rbac

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// userCache caches the decision-relevant user record so repeated
// permission checks within a request burst do not refetch the row.
// Entries expire on TTL; role changes also invalidate explicitly.
type userCache struct {
	cache *lru.LRU[string, *User]
}

const defaultUserCacheSize = 4096

// newUserCache creates a user cache with the given TTL. A zero TTL
// disables caching entirely.
func newUserCache(ttl time.Duration) *userCache {
	if ttl <= 0 {
		return &userCache{}
	}
	return &userCache{
		cache: lru.NewLRU[string, *User](defaultUserCacheSize, nil, ttl),
	}
}

func (c *userCache) get(userID string) (*User, bool) {
	if c.cache == nil {
		return nil, false
	}
	return c.cache.Get(userID)
}

func (c *userCache) set(user *User) {
	if c.cache == nil || user == nil {
		return
	}
	c.cache.Add(user.ID, user)
}

func (c *userCache) invalidate(userID string) {
	if c.cache == nil {
		return
	}
	c.cache.Remove(userID)
}
