// Mgmt
// Copyright (C) 2013-2024+ James Shubin and the project contributors
// Written by James Shubin <james@shubin.ca> and the project contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package behavior implements an ordered, replayable batch of deferred
// callbacks. A queue holds verbs (plain functions) and nested queues, and
// invoking it replays both kinds in their original insertion order. Queues
// may be marked single execution, in which case they forget their contents
// after each invocation. This is how a single model change fires a coherent,
// ordered set of view updates exactly once.
package behavior

import (
	"fmt"

	"github.com/purpleidea/propsheet/util"
)

// ErrStaleToken is returned when a token does not refer to a live slot of the
// queue it was given to.
const ErrStaleToken = util.Error("stale or unknown token")

// Token is an opaque handle to a slot in a queue. It stays valid across other
// insertions and removals, and is never reused for a different slot because
// each slot carries a generation counter.
type Token struct {
	index      int
	generation uint64
}

// IsZero returns true if this is the zero token which never refers to a slot.
func (obj Token) IsZero() bool {
	return obj.generation == 0
}

// String returns a debugging representation of the token.
func (obj Token) String() string {
	return fmt.Sprintf("token(%d/%d)", obj.index, obj.generation)
}

// slot is either a verb or a nested queue.
type slot struct {
	generation uint64 // zero when free
	verb       func()
	queue      *Queue
}

func (obj *slot) live() bool { return obj.generation != 0 }

// Queue is an ordered list of verbs and nested queues. It is not thread-safe,
// it belongs to the goroutine which runs the event loop.
type Queue struct {
	single bool

	slots []slot // arena, addressed by token index
	free  []int  // indexes of free slots
	order []int  // live slot indexes in insertion order

	generation uint64 // last generation handed out
}

// New builds an empty queue. If single is true, the queue clears itself after
// each invocation.
func New(single bool) *Queue {
	return &Queue{
		single: single,
	}
}

// Single returns true if this is a single execution queue.
func (obj *Queue) Single() bool {
	return obj.single
}

// Len returns the number of live slots in this queue. Nested queues count as
// one slot each.
func (obj *Queue) Len() int {
	return len(obj.order)
}

// Empty returns true if the queue has no slots.
func (obj *Queue) Empty() bool {
	return len(obj.order) == 0
}

// Insert appends a verb to the queue.
func (obj *Queue) Insert(verb func()) Token {
	if verb == nil {
		panic("behavior: nil verb")
	}
	return obj.add(slot{verb: verb})
}

// InsertQueue appends a new empty nested queue and returns it along with the
// token of its slot.
func (obj *Queue) InsertQueue(single bool) (*Queue, Token) {
	q := New(single)
	return q, obj.add(slot{queue: q})
}

// Attach appends an existing queue as a nested queue. The same queue may be
// attached in more than one place. Attaching a queue to itself would recurse
// forever, and so it panics.
func (obj *Queue) Attach(q *Queue) Token {
	if q == nil {
		panic("behavior: nil queue")
	}
	if q == obj {
		panic("behavior: queue attached to itself")
	}
	return obj.add(slot{queue: q})
}

func (obj *Queue) add(s slot) Token {
	obj.generation++
	s.generation = obj.generation

	var index int
	if l := len(obj.free); l > 0 {
		index = obj.free[l-1]
		obj.free = obj.free[:l-1]
		obj.slots[index] = s
	} else {
		index = len(obj.slots)
		obj.slots = append(obj.slots, s)
	}
	obj.order = append(obj.order, index)

	return Token{index: index, generation: s.generation}
}

// Disconnect removes the slot referred to by the token. The token is invalid
// afterwards and a second disconnect returns ErrStaleToken.
func (obj *Queue) Disconnect(token Token) error {
	if token.IsZero() || token.index < 0 || token.index >= len(obj.slots) {
		return ErrStaleToken
	}
	if s := obj.slots[token.index]; !s.live() || s.generation != token.generation {
		return ErrStaleToken
	}
	obj.release(token.index)
	for i, index := range obj.order { // low cardinality, a scan is fine
		if index == token.index {
			obj.order = append(obj.order[:i], obj.order[i+1:]...)
			break
		}
	}
	return nil
}

func (obj *Queue) release(index int) {
	obj.slots[index] = slot{}
	obj.free = append(obj.free, index)
}

// Clear removes every slot. All outstanding tokens become stale.
func (obj *Queue) Clear() {
	for _, index := range obj.order {
		obj.release(index)
	}
	obj.order = nil
}

// Invoke runs every verb and nested queue once, in insertion order. Slots
// which are disconnected by a verb during the walk are skipped if they have
// not run yet. Slots which are added during the walk run on the next call. A
// single execution queue removes the slots which it walked once it is done,
// and so anything added during the walk survives.
func (obj *Queue) Invoke() {
	type entry struct {
		index      int
		generation uint64
	}
	snapshot := make([]entry, 0, len(obj.order))
	for _, index := range obj.order {
		snapshot = append(snapshot, entry{index, obj.slots[index].generation})
	}

	for _, x := range snapshot {
		s := obj.slots[x.index]
		if s.generation != x.generation { // removed during the walk
			continue
		}
		if s.verb != nil {
			s.verb()
			continue
		}
		s.queue.Invoke()
	}

	if !obj.single {
		return
	}
	for _, x := range snapshot {
		// ignore the error, a verb may have disconnected it already
		_ = obj.Disconnect(Token{index: x.index, generation: x.generation})
	}
}
