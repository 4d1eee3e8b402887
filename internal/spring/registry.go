package spring

// Handle identifies one registration. Zero is never issued.
type Handle uint64

// registry keeps registrations in insertion order with O(1) removal.
// Removed handles stay in order until the next walk compacts them.
type registry[T any] struct {
	next    Handle
	entries map[Handle]T
	order   []Handle
}

func (r *registry[T]) add(v T) Handle {
	if r.entries == nil {
		r.entries = make(map[Handle]T)
	}
	if len(r.order) > 2*len(r.entries)+8 {
		r.compact()
	}
	r.next++
	h := r.next
	r.entries[h] = v
	r.order = append(r.order, h)
	return h
}

func (r *registry[T]) remove(h Handle) bool {
	if _, ok := r.entries[h]; !ok {
		return false
	}
	delete(r.entries, h)
	return true
}

func (r *registry[T]) len() int {
	return len(r.entries)
}

// each visits the entries registered when the walk starts. An entry removed
// during the walk is skipped; one added during the walk waits for the next.
func (r *registry[T]) each(fn func(Handle, T)) {
	if len(r.entries) == 0 {
		r.order = r.order[:0]
		return
	}
	r.compact()
	snapshot := make([]Handle, len(r.order))
	copy(snapshot, r.order)
	for _, h := range snapshot {
		v, ok := r.entries[h]
		if !ok {
			continue
		}
		fn(h, v)
	}
}

func (r *registry[T]) compact() {
	if len(r.order) == len(r.entries) {
		return
	}
	kept := r.order[:0]
	for _, h := range r.order {
		if _, ok := r.entries[h]; ok {
			kept = append(kept, h)
		}
	}
	r.order = kept
}
