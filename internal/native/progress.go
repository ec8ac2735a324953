package native

import "fmt"

// ProgressTag identifies the long-running engine operation a progress event belongs to.
type ProgressTag int

const (
	ProgressUnknown ProgressTag = iota
	ProgressInit
	ProgressLoad
	ProgressSave
	ProgressIngest
	ProgressAttachAdapter
	ProgressDetachAdapter
)

var progressTagNames = [...]string{
	ProgressUnknown:       "unknown",
	ProgressInit:          "init",
	ProgressLoad:          "load",
	ProgressSave:          "save",
	ProgressIngest:        "ingest",
	ProgressAttachAdapter: "attach-adapter",
	ProgressDetachAdapter: "detach-adapter",
}

func (t ProgressTag) String() string {
	if !t.Valid() {
		return fmt.Sprintf("ProgressTag(%d)", int(t))
	}
	return progressTagNames[t]
}

// Valid reports whether t is one of the declared tags.
func (t ProgressTag) Valid() bool { return t >= ProgressUnknown && t <= ProgressDetachAdapter }

// ParseProgressTag maps a tag name back to its value. Unknown names are rejected.
func ParseProgressTag(s string) (ProgressTag, error) {
	for i, name := range progressTagNames {
		if name == s {
			return ProgressTag(i), nil
		}
	}
	return ProgressUnknown, fmt.Errorf("unknown progress tag %q", s)
}
