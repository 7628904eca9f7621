// Package threading groups the posts of a stream into threads for display.
package threading

import (
	"sort"
	"strings"
	"time"

	"github.com/tOgg1/streampanel/internal/models"
)

type Thread struct {
	Root         *models.Post   // post with no parent (or whose parent is not loaded)
	Replies      []*models.Post // replies in seq order
	Participants []string       // unique author IDs, root author first
	LastActivity time.Time      // most recent post timestamp
}

// ReplyCount is the number of live replies.
func (t *Thread) ReplyCount() int {
	if t == nil {
		return 0
	}
	return len(t.Replies)
}

// Posts returns the root followed by its replies.
func (t *Thread) Posts() []*models.Post {
	if t == nil || t.Root == nil {
		return nil
	}
	out := make([]*models.Post, 0, len(t.Replies)+1)
	out = append(out, t.Root)
	return append(out, t.Replies...)
}

// BuildThreads groups live posts by thread root, ordered by the root's seq.
func BuildThreads(posts []models.Post) []*Thread {
	index := indexPosts(posts)
	byRoot := make(map[string]*Thread, len(index))
	roots := make([]*models.Post, 0, len(index))

	ordered := sortedPosts(index)
	for _, post := range ordered {
		root := resolveRoot(index, post)
		th := byRoot[root.ID]
		if th == nil {
			th = &Thread{Root: root}
			byRoot[root.ID] = th
			roots = append(roots, root)
		}
		if post != root {
			th.Replies = append(th.Replies, post)
		}
	}

	sort.SliceStable(roots, func(i, j int) bool {
		return postLess(roots[i], roots[j])
	})

	threads := make([]*Thread, 0, len(roots))
	for _, root := range roots {
		th := byRoot[root.ID]
		finishThread(th)
		threads = append(threads, th)
	}
	return threads
}

// BuildThread reconstructs the thread containing postID. Nil when the post
// is unknown or deactivated.
func BuildThread(posts []models.Post, postID string) *Thread {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return nil
	}
	index := indexPosts(posts)
	start := index[postID]
	if start == nil {
		return nil
	}
	root := resolveRoot(index, start)
	th := &Thread{Root: root}
	for _, post := range sortedPosts(index) {
		if post != root && resolveRoot(index, post) == root {
			th.Replies = append(th.Replies, post)
		}
	}
	finishThread(th)
	return th
}

// ReplyCounts maps each root post ID with replies to its live reply count.
func ReplyCounts(posts []models.Post) map[string]int {
	counts := make(map[string]int)
	for _, th := range BuildThreads(posts) {
		if n := th.ReplyCount(); n > 0 {
			counts[th.Root.ID] = n
		}
	}
	return counts
}

func indexPosts(posts []models.Post) map[string]*models.Post {
	index := make(map[string]*models.Post, len(posts))
	for i := range posts {
		post := posts[i]
		if strings.TrimSpace(post.ID) == "" || post.Deactivated {
			continue
		}
		clone := post
		index[post.ID] = &clone
	}
	return index
}

func sortedPosts(index map[string]*models.Post) []*models.Post {
	ordered := make([]*models.Post, 0, len(index))
	for _, post := range index {
		ordered = append(ordered, post)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return postLess(ordered[i], ordered[j])
	})
	return ordered
}

// resolveRoot follows parent links to the top-most loaded post, stopping on cycles.
func resolveRoot(index map[string]*models.Post, post *models.Post) *models.Post {
	root := post
	seen := make(map[string]struct{}, 4)
	for {
		seen[root.ID] = struct{}{}
		parentID := strings.TrimSpace(root.ParentPostID)
		if parentID == "" || parentID == root.ID {
			return root
		}
		parent := index[parentID]
		if parent == nil {
			return root
		}
		if _, ok := seen[parent.ID]; ok {
			return earliest(index, seen)
		}
		root = parent
	}
}

// earliest picks a deterministic root for a parent cycle.
func earliest(index map[string]*models.Post, ids map[string]struct{}) *models.Post {
	var out *models.Post
	for id := range ids {
		post := index[id]
		if out == nil || postLess(post, out) {
			out = post
		}
	}
	return out
}

func finishThread(th *Thread) {
	seen := make(map[string]struct{}, 8)
	th.Participants = th.Participants[:0]
	th.LastActivity = time.Time{}
	for _, post := range th.Posts() {
		author := strings.TrimSpace(post.AuthorID)
		if author != "" {
			if _, ok := seen[author]; !ok {
				seen[author] = struct{}{}
				th.Participants = append(th.Participants, author)
			}
		}
		if post.CreatedAt.After(th.LastActivity) {
			th.LastActivity = post.CreatedAt
		}
	}
}

func postLess(a, b *models.Post) bool {
	if a.SeqNum != b.SeqNum {
		return a.SeqNum < b.SeqNum
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
