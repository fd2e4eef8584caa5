package domain

import (
	"slices"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ContentHash fingerprints the user-visible content of a node: fields,
// deletion and order value. Two nodes with equal hashes need no push.
func ContentHash(kind Kind, fields map[string]string, deletedAt *time.Time, orderValue int64) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(string(kind))
	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		_, _ = d.WriteString("\x00" + k + "\x01" + fields[k])
	}
	if deletedAt != nil {
		_, _ = d.WriteString("\x00deleted")
	}
	_, _ = d.WriteString("\x00" + strconv.FormatInt(orderValue, 10))
	return d.Sum64()
}

// Hash fingerprints the node's content.
func (n *Node) Hash() uint64 {
	return ContentHash(n.Kind, n.Fields, n.DeletedAt, n.OrderValue)
}

// Hash fingerprints the snapshot root's content.
func (s *Snapshot) Hash() uint64 {
	return ContentHash(s.Kind, s.Fields, s.DeletedAt, s.OrderValue)
}
