// Package collection holds the in-memory working copy of the study-group
// set. It mirrors the persistence store one-for-one: any code path that
// mutates the store must mutate the collection within the same logical
// operation, and set-equality of ids between the two is the central
// invariant of the server.
package collection

import (
	"fmt"
	"sync"
	"time"

	"github.com/exemee/Laba8-server/pkg/group"
)

// CompareMode selects the strict comparison used by FilterOwnedComparing.
type CompareMode int

const (
	// CompareGreater selects groups strictly greater than the candidate.
	CompareGreater CompareMode = iota
	// CompareLower selects groups strictly lower than the candidate.
	CompareLower
)

// Collection is an insertion-ordered map of id to group, safe for
// concurrent use from both execution pools. A single RWMutex guards the
// whole structure; contention is low because every verb touches the
// collection only briefly.
type Collection struct {
	mu       sync.RWMutex
	byID     map[int]*group.Group
	order    []int
	modified time.Time
	created  time.Time
}

// New creates an empty collection.
func New() *Collection {
	now := time.Now()
	return &Collection{
		byID:     make(map[int]*group.Group),
		modified: now,
		created:  now,
	}
}

// Hydrate replaces the contents with the given groups, preserving their
// order. Called once at startup with the store's LoadGroups result.
func (c *Collection) Hydrate(groups []*group.Group) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.byID = make(map[int]*group.Group, len(groups))
	c.order = c.order[:0]
	for _, g := range groups {
		c.byID[g.ID] = g.Clone()
		c.order = append(c.order, g.ID)
	}
	c.modified = time.Now()
}

// Add appends a group. The group must already carry its store-assigned id.
func (c *Collection) Add(g *group.Group) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byID[g.ID]; ok {
		// Mirror already has this id; replace in place to stay consistent.
		c.byID[g.ID] = g.Clone()
		c.modified = time.Now()
		return
	}
	c.byID[g.ID] = g.Clone()
	c.order = append(c.order, g.ID)
	c.modified = time.Now()
}

// Update replaces the group stored under id, preserving its position.
// Returns false when the id is not present.
func (c *Collection) Update(g *group.Group, id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byID[id]; !ok {
		return false
	}
	updated := g.Clone()
	updated.ID = id
	c.byID[id] = updated
	c.modified = time.Now()
	return true
}

// RemoveByID removes the group stored under id. Returns false when the
// id is not present.
func (c *Collection) RemoveByID(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byID[id]; !ok {
		return false
	}
	delete(c.byID, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.modified = time.Now()
	return true
}

// Exists reports whether id is present.
func (c *Collection) Exists(id int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.byID[id]
	return ok
}

// Size returns the number of groups.
func (c *Collection) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.byID)
}

// Snapshot returns the groups in insertion order. The returned slice and
// its elements are copies; callers may mutate them freely.
func (c *Collection) Snapshot() []*group.Group {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*group.Group, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id].Clone())
	}
	return out
}

// Head returns the first group in insertion order, or nil when empty.
func (c *Collection) Head() *group.Group {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.order) == 0 {
		return nil
	}
	return c.byID[c.order[0]].Clone()
}

// Info describes the collection for the INFO verb.
func (c *Collection) Info() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return fmt.Sprintf("type: ordered study group collection, size: %d, created: %s, last modified: %s",
		len(c.byID),
		c.created.Format(time.RFC3339),
		c.modified.Format(time.RFC3339))
}

// MinBySemester returns the group whose semester ranks lowest in the
// enum ordering, or nil when empty. Ties resolve to the earliest
// inserted group.
func (c *Collection) MinBySemester() *group.Group {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var min *group.Group
	for _, id := range c.order {
		g := c.byID[id]
		if min == nil || g.Semester.Rank() < min.Semester.Rank() {
			min = g
		}
	}
	if min == nil {
		return nil
	}
	return min.Clone()
}

// MaxByGroupAdmin returns the group whose admin name sorts highest, or
// nil when empty. Ties resolve to the earliest inserted group.
func (c *Collection) MaxByGroupAdmin() *group.Group {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var max *group.Group
	for _, id := range c.order {
		g := c.byID[id]
		if max == nil || g.GroupAdmin.Name > max.GroupAdmin.Name {
			max = g
		}
	}
	if max == nil {
		return nil
	}
	return max.Clone()
}

// CountByGroupAdmin counts groups whose admin equals p by value.
func (c *Collection) CountByGroupAdmin(p group.Person) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count := 0
	for _, g := range c.byID {
		if g.GroupAdmin.Equal(p) {
			count++
		}
	}
	return count
}

// FilterOwnedComparing intersects the owned id set with the groups that
// compare strictly greater (or lower) than candidate on the students
// count. Ties belong to neither subset. The result preserves insertion
// order. The scan is taken as of call time; no snapshot isolation is
// provided across a multi-step verb.
func (c *Collection) FilterOwnedComparing(owned []int, candidate *group.Group, mode CompareMode) []int {
	ownedSet := make(map[int]struct{}, len(owned))
	for _, id := range owned {
		ownedSet[id] = struct{}{}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var ids []int
	for _, id := range c.order {
		if _, ok := ownedSet[id]; !ok {
			continue
		}
		cmp := c.byID[id].CompareTo(candidate)
		if (mode == CompareGreater && cmp > 0) || (mode == CompareLower && cmp < 0) {
			ids = append(ids, id)
		}
	}
	return ids
}
