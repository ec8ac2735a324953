package store

// Index stores descriptors. Implementations must be safe for concurrent use.
type Index interface {
	// List returns every descriptor ordered by date.
	List() ([]Descriptor, error)
	Get(id string) (Descriptor, bool, error)
	Put(d Descriptor) error
	Delete(id string) error
	Close() error
}

// Index backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)
