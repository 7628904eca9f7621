package data

import (
	"container/list"
	"sync"
	"time"

	"github.com/tOgg1/streampanel/internal/models"
)

type timedEntry[T any] struct {
	value   T
	expires time.Time
	ok      bool
}

func (e timedEntry[T]) fresh(now time.Time) bool {
	return e.ok && now.Before(e.expires)
}

// postCache is an LRU of posts keyed by ID.
type postCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[string]*list.Element
}

type postCacheEntry struct {
	key  string
	post models.Post
}

func newPostCache(capacity int) *postCache {
	if capacity <= 0 {
		capacity = defaultPostCacheSize
	}
	return &postCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element, capacity),
	}
}

func (c *postCache) get(key string) (models.Post, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return models.Post{}, false
	}
	c.order.MoveToFront(elem)
	return clonePost(elem.Value.(*postCacheEntry).post), true
}

func (c *postCache) put(post models.Post) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[post.ID]; ok {
		elem.Value.(*postCacheEntry).post = clonePost(post)
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&postCacheEntry{key: post.ID, post: clonePost(post)})
	c.entries[post.ID] = elem

	for c.order.Len() > c.capacity {
		last := c.order.Back()
		if last == nil {
			break
		}
		c.order.Remove(last)
		delete(c.entries, last.Value.(*postCacheEntry).key)
	}
}

func (c *postCache) remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.order.Remove(elem)
		delete(c.entries, key)
	}
}

func (c *postCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func clonePost(post models.Post) models.Post {
	out := post
	if post.CodeBlocks != nil {
		out.CodeBlocks = append([]models.CodeBlock(nil), post.CodeBlocks...)
	}
	if post.MentionedUserIDs != nil {
		out.MentionedUserIDs = append([]string(nil), post.MentionedUserIDs...)
	}
	return out
}
