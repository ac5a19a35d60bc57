package domain

// Collection names a top-level keyed collection in the remote store.
type Collection string

const (
	Projects Collection = "projects"
	Tasks    Collection = "tasks"
	Team     Collection = "team"
)

// Collections lists every collection the service reads and writes.
var Collections = []Collection{Projects, Tasks, Team}

// Valid reports whether c is one of the known collections.
func (c Collection) Valid() bool {
	switch c {
	case Projects, Tasks, Team:
		return true
	}
	return false
}
