package eve

import "time"

// Value is any scalar a quad's V slot can hold. Like the teacher's own
// boost::variant-style interface{} use, this module leans on Go's dynamic
// typing rather than a sum type — the valid shapes are documented, not
// enforced by the compiler.
//
// Valid shapes: string, int64, float64, bool, time.Time, []byte, Id (an
// entity reference), Attribute (a value that happens to be a symbol).
type Value interface{}

// Reference marks a Value that is an entity reference, i.e. another
// quad's E slot used as a value — the reference-following idiom EAVN
// stores are built around.
type Reference = Id

func String(s string) Value        { return s }
func Int(i int64) Value            { return i }
func Float(f float64) Value        { return f }
func Bool(b bool) Value            { return b }
func Time(t time.Time) Value       { return t }
func Bytes(b []byte) Value         { return b }
func Ref(id Id) Value              { return Reference(id) }
func AttrValue(a Attribute) Value  { return a }

// IsMintedID reports whether v is an Id (or pointer to one) — the
// registry-defined predicate spec.md §6 calls for when distinguishing raw
// scalars from minted identifiers in a persisted dump.
func IsMintedID(v Value) bool {
	switch v.(type) {
	case Id, *Id:
		return true
	default:
		return false
	}
}
