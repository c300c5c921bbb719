package cellgrid

// Pool is a node allocator backing many PoolLists. Freed nodes are reused so
// lists that grow and shrink with streaming do not churn the heap.
type Pool[T any] struct {
	nodes []poolNode[T]
	free  int32
	used  int
}

type poolNode[T any] struct {
	value T
	next  int32
}

func NewPool[T any]() *Pool[T] {
	return &Pool[T]{}
}

// Used returns the number of nodes currently held by lists.
func (p *Pool[T]) Used() int {
	return p.used
}

// Cap returns the number of nodes allocated by the pool.
func (p *Pool[T]) Cap() int {
	return len(p.nodes)
}

// Node references are 1-based so the zero value of a list is empty.
func (p *Pool[T]) alloc(v T, next int32) int32 {
	p.used++
	if p.free != 0 {
		ref := p.free
		n := &p.nodes[ref-1]
		p.free = n.next
		n.value = v
		n.next = next
		return ref
	}

	p.nodes = append(p.nodes, poolNode[T]{value: v, next: next})
	return int32(len(p.nodes))
}

func (p *Pool[T]) release(ref int32) int32 {
	p.used--
	n := &p.nodes[ref-1]
	next := n.next

	var zero T
	n.value = zero
	n.next = p.free
	p.free = ref
	return next
}

// PoolList is a singly linked list whose nodes live in a Pool. The same pool
// must be passed to every call on a list.
type PoolList[T any] struct {
	head int32
	len  int
}

func (l *PoolList[T]) Len() int {
	return l.len
}

// Push adds v at the front of the list.
func (l *PoolList[T]) Push(p *Pool[T], v T) {
	l.head = p.alloc(v, l.head)
	l.len++
}

// Remove deletes the first value matching and reports whether one was found.
func (l *PoolList[T]) Remove(p *Pool[T], match func(T) bool) bool {
	prev := int32(0)
	for ref := l.head; ref != 0; ref = p.nodes[ref-1].next {
		if !match(p.nodes[ref-1].value) {
			prev = ref
			continue
		}

		next := p.release(ref)
		if prev == 0 {
			l.head = next
		} else {
			p.nodes[prev-1].next = next
		}
		l.len--
		return true
	}
	return false
}

// ForEach calls f for every value, most recently pushed first.
func (l *PoolList[T]) ForEach(p *Pool[T], f func(T)) {
	for ref := l.head; ref != 0; ref = p.nodes[ref-1].next {
		f(p.nodes[ref-1].value)
	}
}

// Update calls f with a pointer to every value, most recently pushed first.
func (l *PoolList[T]) Update(p *Pool[T], f func(*T)) {
	for ref := l.head; ref != 0; ref = p.nodes[ref-1].next {
		f(&p.nodes[ref-1].value)
	}
}

// Values returns a copy of the list values.
func (l *PoolList[T]) Values(p *Pool[T]) []T {
	values := make([]T, 0, l.len)
	l.ForEach(p, func(v T) {
		values = append(values, v)
	})
	return values
}

// Clear gives every node back to the pool.
func (l *PoolList[T]) Clear(p *Pool[T]) {
	for ref := l.head; ref != 0; {
		ref = p.release(ref)
	}
	l.head = 0
	l.len = 0
}

// Pools holds the node pools of the dynamic per-slot data. A Pools may be
// shared by several grids.
type Pools struct {
	Connections *Pool[VertexConnection]
	Volumes     *Pool[EdgeLockVolume]
}

func NewPools() *Pools {
	return &Pools{
		Connections: NewPool[VertexConnection](),
		Volumes:     NewPool[EdgeLockVolume](),
	}
}
