// Package tree rebuilds comment forests from path-ordered rows.
package tree

import (
	"time"

	"github.com/example/content-platform/services/comments/internal/store"
)

// Node is one comment with its replies.
type Node struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Text       string    `json:"text"`
	ParentID   *int64    `json:"parent_id"`
	CreatedAt  time.Time `json:"created_at"`
	Tombstoned bool      `json:"-"`
	Children   []*Node   `json:"children"`
}

// Build links rows into a forest in one pass. Rows must be in ascending
// path order, so every parent precedes its children; children keep the
// order they arrive in.
//
// A row whose parent is not among rows becomes a root of the returned
// forest. On a page boundary that makes the first visible descendant of
// a cut-off branch a page-local root.
func Build(rows []store.Comment) []*Node {
	forest := make([]*Node, 0)
	byID := make(map[int64]*Node, len(rows))

	for _, c := range rows {
		n := FromComment(c)
		byID[c.ID] = n

		if c.ParentID != nil {
			if parent, ok := byID[*c.ParentID]; ok {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		forest = append(forest, n)
	}
	return forest
}

// FromComment returns c as a node without replies. Children is never
// nil so it encodes as [].
func FromComment(c store.Comment) *Node {
	return &Node{
		ID:         c.ID,
		UserID:     c.UserID,
		Text:       c.Text,
		ParentID:   c.ParentID,
		CreatedAt:  c.CreatedAt,
		Tombstoned: c.Tombstoned,
		Children:   make([]*Node, 0),
	}
}

// Walk visits every node in pre-order with its depth, roots at depth 0.
func Walk(forest []*Node, fn func(n *Node, depth int)) {
	var visit func(nodes []*Node, depth int)
	visit = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			fn(n, depth)
			visit(n.Children, depth+1)
		}
	}
	visit(forest, 0)
}

func Count(forest []*Node) int {
	n := 0
	Walk(forest, func(*Node, int) { n++ })
	return n
}
