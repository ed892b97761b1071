// Package position keeps the per-queue waiting line ordered by priority
// tier and arrival, and answers rank queries against it.
//
// A Line is not safe for concurrent use. The queue engine owns one Line per
// queue and serializes access to it with the queue lock.
package position

import (
	"slices"
	"time"
)

// Key orders sessions in a line: lower tier index first, then earlier
// arrival, then lower sequence number.
type Key struct {
	Tier       int
	EnqueuedAt time.Time
	Seq        uint64
}

// Compare returns -1, 0 or +1 like cmp.Compare.
func (k Key) Compare(o Key) int {
	switch {
	case k.Tier != o.Tier:
		if k.Tier < o.Tier {
			return -1
		}
		return 1
	case !k.EnqueuedAt.Equal(o.EnqueuedAt):
		if k.EnqueuedAt.Before(o.EnqueuedAt) {
			return -1
		}
		return 1
	case k.Seq != o.Seq:
		if k.Seq < o.Seq {
			return -1
		}
		return 1
	}
	return 0
}

type slot struct {
	key Key
	id  string
}

// Line is an ordered set of session ids.
type Line struct {
	slots []slot
	keys  map[string]Key
}

// NewLine returns an empty line.
func NewLine() *Line {
	return &Line{keys: make(map[string]Key)}
}

// Len returns the number of sessions in the line.
func (l *Line) Len() int { return len(l.slots) }

// Insert places id at the position given by key and returns its 1-based
// rank. Inserting an id that is already present moves it to the new key.
func (l *Line) Insert(id string, key Key) int {
	if _, ok := l.keys[id]; ok {
		l.Remove(id)
	}
	i, _ := l.search(key)
	l.slots = slices.Insert(l.slots, i, slot{key: key, id: id})
	l.keys[id] = key
	return i + 1
}

// Remove deletes id and returns the rank it held.
func (l *Line) Remove(id string) (int, bool) {
	key, ok := l.keys[id]
	if !ok {
		return 0, false
	}
	i, found := l.search(key)
	if !found {
		return 0, false
	}
	l.slots = slices.Delete(l.slots, i, i+1)
	delete(l.keys, id)
	return i + 1, true
}

// Rank returns the 1-based rank of id in O(log n).
func (l *Line) Rank(id string) (int, bool) {
	key, ok := l.keys[id]
	if !ok {
		return 0, false
	}
	i, found := l.search(key)
	if !found {
		return 0, false
	}
	return i + 1, true
}

// Head returns up to n ids from the front of the line.
func (l *Line) Head(n int) []string {
	if n > len(l.slots) {
		n = len(l.slots)
	}
	if n <= 0 {
		return nil
	}
	out := make([]string, n)
	for i := range n {
		out[i] = l.slots[i].id
	}
	return out
}

// IDs returns every id in rank order.
func (l *Line) IDs() []string {
	return l.Head(len(l.slots))
}

func (l *Line) search(key Key) (int, bool) {
	return slices.BinarySearchFunc(l.slots, key, func(s slot, k Key) int {
		return s.key.Compare(k)
	})
}
