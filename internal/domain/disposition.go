package domain

// Disposition tracks a node's sync state relative to the server.
type Disposition string

const (
	DispositionNew      Disposition = "new"
	DispositionModified Disposition = "modified"
	DispositionSynced   Disposition = "synced"
)

// ValidDispositions is the canonical set of accepted disposition strings.
var ValidDispositions = map[string]bool{
	"new": true, "modified": true, "synced": true,
}

// Dirty reports whether a node in this disposition has something to push.
func (d Disposition) Dirty() bool {
	return d != DispositionSynced
}
