// Package deque provides a slice-backed FIFO queue.
package deque

// Deque is a slice-backed queue. Elements are appended at the end and popped
// from the front. The zero value is an empty deque.
type Deque[Elem any] struct {
	el []Elem
	// left is the position of the front element in el.
	// left >= len(el) implies the deque is empty.
	left int
}

// Len returns the number of elements in the deque.
func (d Deque[Elem]) Len() int {
	return len(d.el) - d.left
}

// Append adds elements to the end of the deque.
// Space consumed by popped elements is reclaimed once it makes up at least
// half of the backing slice.
func (d Deque[Elem]) Append(ee ...Elem) Deque[Elem] {
	if d.left > 0 && d.left >= len(d.el)/2 {
		n := copy(d.el, d.el[d.left:])
		clear(d.el[n:])
		d.el = d.el[:n]
		d.left = 0
	}
	d.el = append(d.el, ee...)
	return d
}

// PopFront removes the front element of the deque.
// ok is false if the deque is empty.
func (d Deque[Elem]) PopFront() (e Elem, r Deque[Elem], ok bool) {
	if d.left >= len(d.el) {
		return e, d, false
	}
	e = d.el[d.left]
	// Clear the slot so that the deque doesn't keep the element alive.
	var zero Elem
	d.el[d.left] = zero
	d.left++
	if d.left == len(d.el) {
		d = d.Reset()
	}
	return e, d, true
}

// Reset removes all elements from the deque, keeping its memory.
func (d Deque[Elem]) Reset() Deque[Elem] {
	clear(d.el)
	d.el = d.el[:0]
	d.left = 0
	return d
}

// Slice returns a view into the deque's memory, front first.
func (d Deque[Elem]) Slice() []Elem {
	return d.el[d.left:]
}
