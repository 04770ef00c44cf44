package scanner

import "strings"

// exprWalk follows the text the way an expression reader would from some
// '{': it knows the quote state and a brace depth, and holds every opened
// '{' still waiting for its '}', keyed by the depth it must return to.
//
// Two walks in the same quote state read the rest of the text identically,
// so they are folded into one. At most one walk exists per quote state,
// which bounds the work per byte.
type exprWalk struct {
	quote   byte
	escaped bool
	depth   int
	open    map[int][]int
	pending int
}

// matchExpressions returns, for every '{' in text, the offset just past the
// '}' that closes the expression it opens, or 0 if it never closes. Braces
// inside string literals do not count and \ escapes the next byte inside a
// literal.
func matchExpressions(text string) []int {
	first := strings.IndexByte(text, '{')
	if first < 0 {
		return nil
	}

	ends := make([]int, len(text))
	var walks []*exprWalk
	for i := first; i < len(text); i++ {
		if len(walks) == 0 {
			next := strings.IndexByte(text[i:], '{')
			if next < 0 {
				break
			}
			i += next
		}

		c := text[i]
		if c == '{' && !hasPlainWalk(walks) {
			walks = append(walks, &exprWalk{open: make(map[int][]int)})
		}
		for _, w := range walks {
			w.step(c, i, ends)
		}
		walks = foldWalks(walks)
	}
	return ends
}

func hasPlainWalk(walks []*exprWalk) bool {
	for _, w := range walks {
		if w.quote == 0 {
			return true
		}
	}
	return false
}

func (w *exprWalk) step(c byte, i int, ends []int) {
	if w.quote != 0 {
		switch {
		case w.escaped:
			w.escaped = false
		case c == '\\':
			w.escaped = true
		case c == w.quote:
			w.quote = 0
		}
		return
	}

	switch c {
	case '"', '\'', '`':
		w.quote = c
	case '{':
		w.open[w.depth] = append(w.open[w.depth], i)
		w.pending++
		w.depth++
	case '}':
		w.depth--
		if offsets, ok := w.open[w.depth]; ok {
			for _, o := range offsets {
				ends[o] = i + 1
			}
			w.pending -= len(offsets)
			delete(w.open, w.depth)
		}
	}
}

// foldWalks drops walks with nothing pending and merges walks that reached
// the same quote state.
func foldWalks(walks []*exprWalk) []*exprWalk {
	kept := walks[:0]
	for _, w := range walks {
		if w.pending == 0 {
			continue
		}
		merged := false
		for _, k := range kept {
			if k.quote == w.quote && k.escaped == w.escaped {
				k.absorb(w)
				merged = true
				break
			}
		}
		if !merged {
			kept = append(kept, w)
		}
	}
	return kept
}

// absorb moves the pending braces of o into w, translating their depths
// into w's frame. The larger map is kept.
func (w *exprWalk) absorb(o *exprWalk) {
	if o.pending > w.pending {
		w.depth, o.depth = o.depth, w.depth
		w.open, o.open = o.open, w.open
		w.pending, o.pending = o.pending, w.pending
	}
	shift := w.depth - o.depth
	for d, offsets := range o.open {
		w.open[d+shift] = append(w.open[d+shift], offsets...)
	}
	w.pending += o.pending
}
