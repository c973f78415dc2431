package cache

// lruList is an intrusive doubly linked list with a sentinel root.
// Front is most recently used.
type lruList[K any] struct {
	root lruNode[K]
	len  int
}

type lruNode[K any] struct {
	prev, next *lruNode[K]
	key        K
}

func (l *lruList[K]) init() {
	l.root.prev = &l.root
	l.root.next = &l.root
	l.len = 0
}

func (l *lruList[K]) pushFront(key K) *lruNode[K] {
	n := &lruNode[K]{key: key}
	l.insertAfter(n, &l.root)
	return n
}

func (l *lruList[K]) insertAfter(n, at *lruNode[K]) {
	n.prev = at
	n.next = at.next
	n.prev.next = n
	n.next.prev = n
	l.len++
}

func (l *lruList[K]) moveToFront(n *lruNode[K]) {
	if l.root.next == n {
		return
	}
	l.unlink(n)
	l.insertAfter(n, &l.root)
}

func (l *lruList[K]) remove(n *lruNode[K]) {
	l.unlink(n)
}

func (l *lruList[K]) unlink(n *lruNode[K]) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev = nil
	n.next = nil
	l.len--
}

// removeOldest unlinks and returns the back of the list.
func (l *lruList[K]) removeOldest() (K, bool) {
	if l.len == 0 {
		var zero K
		return zero, false
	}
	n := l.root.prev
	l.unlink(n)
	return n.key, true
}
