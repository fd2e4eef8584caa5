package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind is returned when a node kind is not part of the hierarchy.
var ErrUnknownKind = errors.New("unknown node kind")

type Kind string

const (
	KindUser         Kind = "user"
	KindResume       Kind = "resume"
	KindOrganization Kind = "organization"
	KindRole         Kind = "role"
	KindAchievement  Kind = "achievement"
)

// Hierarchy is the fixed chain of node kinds, root first.
var Hierarchy = []Kind{KindUser, KindResume, KindOrganization, KindRole, KindAchievement}

func kindIndex(k Kind) int {
	for i, h := range Hierarchy {
		if h == k {
			return i
		}
	}
	return -1
}

// ParseKind resolves a kind name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if kindIndex(k) < 0 {
		return "", fmt.Errorf("%w: %q (valid: %s)", ErrUnknownKind, s, kindNames())
	}
	return k, nil
}

// Valid reports whether k is part of the hierarchy.
func (k Kind) Valid() bool {
	return kindIndex(k) >= 0
}

// ParentKind returns the kind above k. ok is false at the root or for
// unknown kinds.
func ParentKind(k Kind) (Kind, bool) {
	i := kindIndex(k)
	if i <= 0 {
		return "", false
	}
	return Hierarchy[i-1], true
}

// ChildKind returns the kind below k. ok is false at the leaf or for
// unknown kinds.
func ChildKind(k Kind) (Kind, bool) {
	i := kindIndex(k)
	if i < 0 || i == len(Hierarchy)-1 {
		return "", false
	}
	return Hierarchy[i+1], true
}

// IsLeaf reports whether k has no child kind.
func (k Kind) IsLeaf() bool {
	_, ok := ChildKind(k)
	return !ok
}

// Ordered reports whether siblings of this kind carry a meaningful order
// value. Everything below a resume can be dragged.
func (k Kind) Ordered() bool {
	return kindIndex(k) > kindIndex(KindResume)
}

// Depth returns the position of k in the hierarchy, or -1.
func (k Kind) Depth() int {
	return kindIndex(k)
}

func kindNames() string {
	names := make([]string, len(Hierarchy))
	for i, k := range Hierarchy {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
