package graph

import (
	"sync"

	"github.com/arborlabs/arbor/internal/core/ident"
)

// slot holds one pooled object. Slots are recycled through the free list;
// IDs never are.
type slot[T any] struct {
	id      ident.ID
	obj     T
	live    bool
	pending bool
}

// Pool is a slot-based object pool with deferred destruction. Destroyed
// objects stay resident until EndFrame so borrowed pointers remain valid for
// the rest of the frame. All methods take the pool's internal lock and are
// safe for concurrent use.
type Pool[T any] struct {
	mu      sync.Mutex
	slots   []slot[T]
	index   map[ident.ID]int
	free    []int
	pending []int
}

// NewPool returns an empty pool.
func NewPool[T any]() *Pool[T] {
	return &Pool[T]{index: make(map[ident.ID]int)}
}

// Create stores obj under a fresh random ID.
func (p *Pool[T]) Create(obj T) (ident.ID, error) {
	id := ident.NewID()
	if err := p.CreateWithID(id, obj); err != nil {
		return ident.NilID, err
	}
	return id, nil
}

// CreateWithID stores obj under an explicit ID.
func (p *Pool[T]) CreateWithID(id ident.ID, obj T) error {
	if id.IsNil() {
		return NewError(CodeInvalidArgument, "pool: nil id")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.index[id]; exists {
		return NewError(CodeAlreadyExists, "pool: id already in use")
	}
	idx := p.allocSlotLocked()
	p.slots[idx] = slot[T]{id: id, obj: obj, live: true}
	p.index[id] = idx
	return nil
}

func (p *Pool[T]) allocSlotLocked() int {
	if n := len(p.free); n > 0 {
		idx := p.free[n-1]
		p.free = p.free[:n-1]
		return idx
	}
	p.slots = append(p.slots, slot[T]{})
	return len(p.slots) - 1
}

// Borrowed returns the live object for id. Objects pending destruction still
// resolve until the end-of-frame flush.
func (p *Pool[T]) Borrowed(id ident.ID) (T, bool) {
	var zero T
	p.mu.Lock()
	defer p.mu.Unlock()
	idx, ok := p.index[id]
	if !ok || !p.slots[idx].live {
		return zero, false
	}
	return p.slots[idx].obj, true
}

// Contains reports whether id maps to a live object.
func (p *Pool[T]) Contains(id ident.ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx, ok := p.index[id]
	return ok && p.slots[idx].live
}

// IsPendingDestroy reports whether id has been queued for destruction.
func (p *Pool[T]) IsPendingDestroy(id ident.ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx, ok := p.index[id]
	return ok && p.slots[idx].pending
}

// DestroyLater marks id for destruction at the next EndFrame. Marking twice
// is a no-op.
func (p *Pool[T]) DestroyLater(id ident.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx, ok := p.index[id]
	if !ok || !p.slots[idx].live {
		return NewError(CodeNotFound, "pool: unknown id")
	}
	if p.slots[idx].pending {
		return nil
	}
	p.slots[idx].pending = true
	p.pending = append(p.pending, idx)
	return nil
}

// EndFrame releases every slot queued by DestroyLater before this call.
// Freed IDs stop resolving; freed slots return to the free list for reuse.
func (p *Pool[T]) EndFrame() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, idx := range p.pending {
		s := &p.slots[idx]
		if !s.pending {
			continue
		}
		delete(p.index, s.id)
		*s = slot[T]{}
		p.free = append(p.free, idx)
	}
	p.pending = p.pending[:0]
}

// ForEach visits every live object that is not pending destruction. The
// callback runs under the pool lock and must not call back into the pool.
func (p *Pool[T]) ForEach(fn func(ident.ID, T)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.slots {
		s := &p.slots[i]
		if s.live && !s.pending {
			fn(s.id, s.obj)
		}
	}
}

// ForEachAll visits every live object, including those pending destruction.
// Same locking contract as ForEach.
func (p *Pool[T]) ForEachAll(fn func(ident.ID, T)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.slots {
		s := &p.slots[i]
		if s.live {
			fn(s.id, s.obj)
		}
	}
}

// Len returns the number of live objects, including pending ones.
func (p *Pool[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.index)
}

// Clear releases everything immediately, bypassing the deferred queue.
func (p *Pool[T]) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.slots = nil
	p.free = nil
	p.pending = nil
	p.index = make(map[ident.ID]int)
}
