// Package list implements a minimal singly-linked list threaded through its
// elements.
//
// Elements embed a Link and expose it through a ListLink method, so an element
// can be a member of at most one list at a time and moving it between lists
// never allocates.
package list

// Link is the linkage embedded in every list element.
type Link[T any] struct {
	next   *T
	linked bool
}

// Element is implemented by pointer types that embed a Link to themselves.
type Element[T any] interface {
	*T
	ListLink() *Link[T]
}

// List is a singly-linked list of elements. The zero value is an empty list.
// It is not safe for concurrent use.
type List[T any, P Element[T]] struct {
	head P
}

// Head returns the first element or nil if the list is empty.
func (l *List[T, P]) Head() P {
	return l.head
}

// Empty reports whether the list has no elements.
func (l *List[T, P]) Empty() bool {
	return l.head == nil
}

// Len returns the number of elements. This requires walking the list.
func (l *List[T, P]) Len() int {
	n := 0
	for e := l.head; e != nil; e = next[T, P](e) {
		n++
	}
	return n
}

// Add appends e at the tail of the list.
//
// It panics if e is still a member of a list, this one included.
func (l *List[T, P]) Add(e P) {
	if e == nil {
		return
	}
	link := e.ListLink()
	if link.linked {
		panic("list: element is already linked into a list")
	}
	link.linked = true
	if l.head == nil {
		l.head = e
		return
	}
	tail := l.head
	for n := next[T, P](tail); n != nil; n = next[T, P](tail) {
		tail = n
	}
	tail.ListLink().next = (*T)(e)
}

// Remove unlinks e by identity. It reports whether e was found; removing an
// absent element is a no-op.
func (l *List[T, P]) Remove(e P) bool {
	if e == nil || l.head == nil {
		return false
	}
	if l.head == e {
		l.head = next[T, P](e)
		*e.ListLink() = Link[T]{}
		return true
	}
	for prev := l.head; prev != nil; prev = next[T, P](prev) {
		if n := next[T, P](prev); n == e {
			prev.ListLink().next = e.ListLink().next
			*e.ListLink() = Link[T]{}
			return true
		}
	}
	return false
}

// Contains reports whether e is a member of the list.
func (l *List[T, P]) Contains(e P) bool {
	for c := l.head; c != nil; c = next[T, P](c) {
		if c == e {
			return true
		}
	}
	return false
}

// Walk calls fn for every element in insertion order until fn returns false.
//
// The successor of each element is read before fn runs, so fn may remove the
// current element (from this list, or move it into another one).
func (l *List[T, P]) Walk(fn func(e P) bool) {
	for e := l.head; e != nil; {
		n := next[T, P](e)
		if !fn(e) {
			return
		}
		e = n
	}
}

func next[T any, P Element[T]](e P) P {
	return P(e.ListLink().next)
}
