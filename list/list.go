package list

// Node is an element of a List. A node is owned by exactly one list and
// becomes detached (Prev/Next nil) once removed.
type Node[T any] struct {
	Prev  *Node[T]
	Next  *Node[T]
	Value T

	list *List[T]
}

// List is a doubly linked list that keeps insertion order.
type List[T any] struct {
	Head   *Node[T]
	Tail   *Node[T]
	Length int
}

func New[T any]() *List[T] {
	return &List[T]{}
}

// Empty the list
func (l *List[T]) Empty() {
	current := l.Head
	for current != nil {
		next := current.Next
		current.Prev, current.Next, current.list = nil, nil, nil
		current = next
	}
	l.Head, l.Tail = nil, nil
	l.Length = 0
}

// PushHead adds value in front of the list and returns its node.
func (l *List[T]) PushHead(value T) *Node[T] {
	node := &Node[T]{Value: value, list: l}
	if l.Head == nil {
		l.Head, l.Tail = node, node
	} else {
		node.Next, l.Head.Prev, l.Head = l.Head, node, node
	}
	l.Length++
	return node
}

// PushTail adds value at the end of the list and returns its node.
func (l *List[T]) PushTail(value T) *Node[T] {
	node := &Node[T]{Value: value, list: l}
	if l.Tail == nil {
		l.Head, l.Tail = node, node
	} else {
		node.Prev, l.Tail.Next, l.Tail = l.Tail, node, node
	}
	l.Length++
	return node
}

// Remove unlinks node and returns the node that followed it, so a traversal
// can continue from the removal point. Removing a node that does not belong
// to l is a no-op returning nil.
func (l *List[T]) Remove(node *Node[T]) *Node[T] {
	if node == nil || node.list != l {
		return nil
	}
	next := node.Next
	if node.Prev != nil {
		node.Prev.Next = node.Next
	} else {
		l.Head = node.Next
	}
	if node.Next != nil {
		node.Next.Prev = node.Prev
	} else {
		l.Tail = node.Prev
	}
	node.Next, node.Prev, node.list = nil, nil, nil
	l.Length--
	return next
}

// Len ...
func (l *List[T]) Len() int {
	return l.Length
}

// Each calls fn for every value from head to tail until fn returns false.
func (l *List[T]) Each(fn func(T) bool) {
	for node := l.Head; node != nil; node = node.Next {
		if !fn(node.Value) {
			return
		}
	}
}
