package object

import "strings"

// Type is the kind of a database schema object.
type Type string

const (
	Table     Type = "table"
	Procedure Type = "procedure"
	Trigger   Type = "trigger"
	Function  Type = "function"
	View      Type = "view"
	UserType  Type = "type"
	Synonym   Type = "synonym"
	Sequence  Type = "sequence"
)

// ApplyOrder is the fixed order in which object definitions are applied to a
// database. It is a declared constant, not a computed dependency graph: objects
// that tend to be referenced (tables, types) come before objects that tend to
// reference them (views, routines, triggers).
var ApplyOrder = []Type{Table, UserType, Synonym, Sequence, View, Function, Procedure, Trigger}

var applyRank = func() map[Type]int {
	m := make(map[Type]int, len(ApplyOrder))
	for i, t := range ApplyOrder {
		m[t] = i
	}
	return m
}()

// Rank returns the position of t in ApplyOrder. Unknown types sort last.
func (t Type) Rank() int {
	if r, ok := applyRank[t]; ok {
		return r
	}
	return len(ApplyOrder)
}

// ParseType matches a type token case-insensitively against the known kinds.
func ParseType(token string) (Type, bool) {
	t := Type(strings.ToLower(token))
	if _, ok := applyRank[t]; ok {
		return t, true
	}
	return "", false
}

// DBObject is a named schema entity read from a live database.
type DBObject struct {
	Schema     string
	Name       string
	Type       Type
	Definition string
}

// Identity is the key under which an object is compared: (schema, name, type).
// Definitions never participate in identity.
type Identity struct {
	Schema string
	Name   string
	Type   Type
}

func (o DBObject) Identity() Identity {
	return Identity{Schema: o.Schema, Name: o.Name, Type: o.Type}
}

func (id Identity) String() string {
	return string(id.Type) + "/" + id.Schema + "/" + id.Name
}

// RepoObject is the file-based representation of a DBObject in the
// version-controlled tree.
type RepoObject struct {
	Path       string
	Definition string
}
