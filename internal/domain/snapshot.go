package domain

import "time"

// Snapshot is the nested, serialisable form of a subtree. It is what the
// client pushes, what the server returns and what is persisted locally.
type Snapshot struct {
	ClientID     string            `json:"clientId"`
	ID           string            `json:"id,omitempty"`
	ParentID     string            `json:"parentId,omitempty"`
	Kind         Kind              `json:"kind"`
	Fields       map[string]string `json:"fields,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	LastModified time.Time         `json:"lastModified"`
	DeletedAt    *time.Time        `json:"deletedAt,omitempty"`
	Disposition  Disposition       `json:"disposition,omitempty"`
	OrderValue   int64             `json:"orderValue"`
	Draft        map[string]string `json:"draft,omitempty"`
	Reordered    bool              `json:"reordered,omitempty"`
	Children     []*Snapshot       `json:"children,omitempty"`
}

// Count returns the number of nodes in the subtree, root included.
func (s *Snapshot) Count() int {
	if s == nil {
		return 0
	}
	n := 1
	for _, c := range s.Children {
		n += c.Count()
	}
	return n
}

// MaxLastModified returns the latest LastModified in the subtree.
func (s *Snapshot) MaxLastModified() time.Time {
	if s == nil {
		return time.Time{}
	}
	latest := s.LastModified
	for _, c := range s.Children {
		if t := c.MaxLastModified(); t.After(latest) {
			latest = t
		}
	}
	return latest
}
