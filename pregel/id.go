package pregel

import (
	"crypto/sha1" // #nosec G505 -- content addressing, not signing
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// taskID derives a task's identity from the checkpoint it belongs to and the
// parts that place it within the superstep. The digest is SHA-1 over the
// checkpoint id's 16 raw bytes followed by the UTF-8 concatenation of the
// parts, laid out in the canonical 8-4-4-4-12 UUID grouping. The version and
// variant nibbles are whatever the digest produced; the layout, not UUID
// semantics, is the contract, and re-derivation must reproduce it exactly.
func taskID(namespace uuid.UUID, parts ...string) string {
	h := sha1.New() // #nosec G401 -- content addressing, not signing
	h.Write(namespace[:])
	for _, p := range parts {
		h.Write([]byte(p))
	}
	digest := hex.EncodeToString(h.Sum(nil))
	return fmt.Sprintf("%s-%s-%s-%s-%s",
		digest[:8], digest[8:12], digest[12:16], digest[16:20], digest[20:32])
}

// checkpointNamespace joins a parent namespace with a node name, or returns
// the name alone at the root.
func checkpointNamespace(parentNS, name string) string {
	if parentNS == "" {
		return name
	}
	return parentNS + NSSep + name
}

// tupleString renders a path prefix the way task ids encode nested paths:
// scalars in their canonical decimal or literal form, sequences as
// parenthesized comma-separated lists, recursively.
func tupleString(v any) string {
	switch t := v.(type) {
	case PathPrefix:
		elems := make([]string, len(t))
		for i, e := range t {
			elems[i] = tupleString(e)
		}
		return "(" + strings.Join(elems, ", ") + ")"
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}
