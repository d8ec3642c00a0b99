// Package cursor encodes opaque, tamper-evident pagination tokens.
//
// A token carries a sort key, a direction and the scope it was issued
// for (an entity's thread or an entity listing). Tokens that fail to
// decode, fail verification or belong to another scope are treated as
// absent, so a bad cursor restarts pagination instead of failing.
package cursor

import (
	"encoding/json"

	"github.com/example/content-platform/internal/platform/signing"
)

type Direction string

const (
	Next Direction = "next"
	Prev Direction = "prev"
)

// Position is the decoded form of a cursor.
type Position struct {
	Key string    `json:"k"`
	Dir Direction `json:"d"`
}

type payload struct {
	Scope string    `json:"s"`
	Key   string    `json:"k"`
	Dir   Direction `json:"d"`
}

type Codec struct {
	signer *signing.Signer
}

func NewCodec(secret string) *Codec {
	return &Codec{signer: signing.New(secret)}
}

// Encode seals pos for scope.
func (c *Codec) Encode(scope string, pos Position) string {
	b, _ := json.Marshal(payload{Scope: scope, Key: pos.Key, Dir: pos.Dir})
	return c.signer.Seal(b)
}

// Decode returns the position in raw, or false when raw is empty, invalid
// or issued for a different scope.
func (c *Codec) Decode(scope, raw string) (Position, bool) {
	if raw == "" {
		return Position{}, false
	}
	b, err := c.signer.Open(raw)
	if err != nil {
		return Position{}, false
	}
	var p payload
	if err := json.Unmarshal(b, &p); err != nil {
		return Position{}, false
	}
	if p.Scope != scope || p.Key == "" || (p.Dir != Next && p.Dir != Prev) {
		return Position{}, false
	}
	return Position{Key: p.Key, Dir: p.Dir}, true
}
