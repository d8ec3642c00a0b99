// Package pathcodec encodes materialized comment paths.
//
// A path is the ancestor chain of a comment, root first, each id written
// as a fixed-width zero-padded decimal segment and joined with ".".
// Because "." (0x2E) sorts below "0"-"9", byte order of paths is
// depth-first pre-order with siblings in id order.
package pathcodec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	SegmentWidth = 6
	Separator    = "."
	// MaxSegment is the largest id that fits in one segment.
	MaxSegment = 999999
)

// ErrSegmentOverflow is returned for ids that do not fit a segment.
// Such ids are never truncated: a truncated segment would break ordering.
var ErrSegmentOverflow = errors.New("path segment overflow")

// EncodeSegment zero-pads id to SegmentWidth digits.
func EncodeSegment(id int64) (string, error) {
	if id < 1 || id > MaxSegment {
		return "", fmt.Errorf("%w: id %d", ErrSegmentOverflow, id)
	}
	s := strconv.FormatInt(id, 10)
	return strings.Repeat("0", SegmentWidth-len(s)) + s, nil
}

// AppendChild returns the path of childID under parentPath. An empty
// parentPath yields a root path.
func AppendChild(parentPath string, childID int64) (string, error) {
	seg, err := EncodeSegment(childID)
	if err != nil {
		return "", err
	}
	if parentPath == "" {
		return seg, nil
	}
	return parentPath + Separator + seg, nil
}

// Depth is the number of segments in path; a root comment has depth 1.
func Depth(path string) int {
	if path == "" {
		return 0
	}
	return strings.Count(path, Separator) + 1
}

// IsAncestor reports whether ancestor is a strict prefix of path on a
// segment boundary.
func IsAncestor(ancestor, path string) bool {
	return ancestor != "" && strings.HasPrefix(path, ancestor+Separator)
}
