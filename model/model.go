package model

import "strings"

// Action is the kind of edit a change request asks for.
type Action string

const (
	ActionAdd     Action = "ADD"
	ActionReplace Action = "REPLACE"
	ActionDelete  Action = "DELETE"
)

// ParseAction normalizes an action string. The second return value is false
// when the string is not one of ADD, REPLACE or DELETE.
func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	switch a {
	case ActionAdd, ActionReplace, ActionDelete:
		return a, true
	}
	return a, false
}

// NeedsMarkers reports whether the action addresses an existing block.
func (a Action) NeedsMarkers() bool {
	return a == ActionReplace || a == ActionDelete
}

// DefaultContextLines is used when a request does not specify a context count.
const DefaultContextLines = 3

// EditRequest is a parsed change request.
type EditRequest struct {
	TargetPath    string
	Action        Action
	MarkerStart   string
	MarkerEnd     string
	ContextLines  int
	BlockID       string
	Reason        string
	ProposedBlock string
	// ValidationErrors is non-empty when the request is unusable.
	ValidationErrors []string
}

// Valid reports whether the request passed validation.
func (r EditRequest) Valid() bool {
	return len(r.ValidationErrors) == 0
}

// BlockRange is an inclusive, zero-based line range. (-1,-1) means not found.
type BlockRange struct {
	Start int
	End   int
}

// NoRange is the sentinel for a block that was not found.
var NoRange = BlockRange{Start: -1, End: -1}

// Valid reports whether the range points at real lines.
func (r BlockRange) Valid() bool {
	return r.Start >= 0 && r.End >= r.Start
}

// Tag classifies an opcode.
type Tag string

const (
	TagEqual   Tag = "equal"
	TagReplace Tag = "replace"
	TagDelete  Tag = "delete"
	TagInsert  Tag = "insert"
)

// HunkKey identifies an opcode by its half-open ranges on both sides.
type HunkKey struct {
	R1, R2 int // current side
	L1, L2 int // proposed side
}

// Opcode is one segment of the gap-free partition of both line sequences.
type Opcode struct {
	Tag Tag
	HunkKey
}

// Hunk is a non-equal opcode decorated for review.
type Hunk struct {
	Tag     Tag
	Key     HunkKey
	Added   int
	Removed int
	Preview string
}

// KeySet is a set of selected hunk keys.
type KeySet map[HunkKey]struct{}

// NewKeySet builds a set from the given keys.
func NewKeySet(keys ...HunkKey) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports whether k is selected.
func (s KeySet) Has(k HunkKey) bool {
	_, ok := s[k]
	return ok
}

// EntityKind is the kind of a structural region.
type EntityKind string

const (
	KindImports    EntityKind = "import-block"
	KindFunction   EntityKind = "function"
	KindClass      EntityKind = "class"
	KindMethod     EntityKind = "method"
	KindEntrypoint EntityKind = "entrypoint"
)

// Entity is a structural region of a source file. Lines are 1-based and
// inclusive. Children holds methods and is only set for classes.
type Entity struct {
	Kind      EntityKind
	Name      string
	StartLine int
	EndLine   int
	Children  []Entity
}

// Summary holds the results of an operation for display.
type Summary struct {
	Created  []string
	Modified []string
	Failed   []string
	Warnings []string
	Message  string
	// Commit is the hash of the commit recording the change, if any.
	Commit string
}
