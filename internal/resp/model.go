package resp

const (
	TypeSimpleString = '+'
	TypeError        = '-'
	TypeInteger      = ':'
	TypeBulkString   = '$'
	TypeArray        = '*'

	// TypeMulti groups several replies produced by one command.
	// It never appears on the wire: the Encoder writes every element as its own top-level reply
	TypeMulti = 1
)

// Value is a tagged union of every reply and request shape. Type selects which field is meaningful
type Value struct {
	String  []byte // SimpleString, Error, BulkString
	Array   []Value
	Integer int64 // Integer
	Type    byte
	IsNull  bool // For nil BulkString and nil Array
}

// Text returns the string payload of a SimpleString, Error or BulkString value
func (v Value) Text() string {
	return string(v.String)
}

// IsError reports whether the value is an error reply
func (v Value) IsError() bool {
	return v.Type == TypeError
}
