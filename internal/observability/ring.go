package observability

// ring is a fixed capacity buffer that overwrites its oldest entry. Not safe for concurrent use.
type ring struct {
	items []Event
	start int
	size  int
}

func newRing(capacity int) *ring {
	return &ring{items: make([]Event, capacity)}
}

func (r *ring) push(e Event) {
	if r.size < len(r.items) {
		r.items[(r.start+r.size)%len(r.items)] = e
		r.size++
		return
	}
	r.items[r.start] = e
	r.start = (r.start + 1) % len(r.items)
}

// last copies the newest n entries, oldest first.
func (r *ring) last(n int) []Event {
	if n <= 0 || n > r.size {
		n = r.size
	}
	out := make([]Event, n)
	offset := r.size - n
	for i := 0; i < n; i++ {
		out[i] = r.items[(r.start+offset+i)%len(r.items)]
	}
	return out
}
