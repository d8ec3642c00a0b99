package service

import "github.com/example/content-platform/services/comments/internal/cursor"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// clampPageSize maps a requested size into [1, MaxPageSize]; zero or
// negative means DefaultPageSize.
func clampPageSize(n int) int {
	switch {
	case n <= 0:
		return DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	default:
		return n
	}
}

// edgeCursors decides which neighbouring pages exist. Going forward (or
// from the start) there is a next page only if the store reported more
// rows, and a previous page whenever a cursor brought us here. Going
// backward the roles swap: there is a previous page only if more rows
// remain, and the page we came from is always next.
func edgeCursors(pos cursor.Position, hadCursor, hasMore bool, firstKey, lastKey string) (next, prev *cursor.Position) {
	backward := hadCursor && pos.Dir == cursor.Prev
	if !backward {
		if hasMore {
			next = &cursor.Position{Key: lastKey, Dir: cursor.Next}
		}
		if hadCursor {
			prev = &cursor.Position{Key: firstKey, Dir: cursor.Prev}
		}
		return next, prev
	}
	if hasMore {
		prev = &cursor.Position{Key: firstKey, Dir: cursor.Prev}
	}
	next = &cursor.Position{Key: lastKey, Dir: cursor.Next}
	return next, prev
}
