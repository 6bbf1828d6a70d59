package object

import (
	"fmt"
	"strings"
)

const sqlExt = ".sql"

// InvalidPathError reports a repository path that cannot be mapped to an
// object identity.
type InvalidPathError struct {
	Path   string
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid object path %q: %s", e.Path, e.Reason)
}

// Path returns the repository path for o: <type>/<schema>/<name>.sql.
// The type segment is lower-cased; schema and name are kept verbatim.
func (o DBObject) Path() string {
	return fmt.Sprintf("%s/%s/%s%s", o.Type, o.Schema, o.Name, sqlExt)
}

// FromPath maps a repository path back to a DBObject carrying definition.
// The path must end in .sql and hold at least three /-separated segments; the
// trailing three are read as <type>/<schema>/<name>.sql, so callers may pass
// paths carrying extra leading segments (e.g. a per-database prefix).
func FromPath(path, definition string) (DBObject, error) {
	if !strings.HasSuffix(path, sqlExt) {
		return DBObject{}, &InvalidPathError{Path: path, Reason: "missing .sql extension"}
	}

	parts := strings.Split(path, "/")
	if len(parts) < 3 {
		return DBObject{}, &InvalidPathError{Path: path, Reason: "want <type>/<schema>/<name>.sql"}
	}

	typeToken := parts[len(parts)-3]
	schema := parts[len(parts)-2]
	name := strings.TrimSuffix(parts[len(parts)-1], sqlExt)

	typ, ok := ParseType(typeToken)
	if !ok {
		return DBObject{}, &InvalidPathError{Path: path, Reason: fmt.Sprintf("unknown object type %q", typeToken)}
	}
	if schema == "" || name == "" {
		return DBObject{}, &InvalidPathError{Path: path, Reason: "empty schema or name segment"}
	}

	return DBObject{Schema: schema, Name: name, Type: typ, Definition: definition}, nil
}
