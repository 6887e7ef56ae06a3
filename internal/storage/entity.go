package storage

// DataType names the table a key lives in
type DataType byte

const (
	TypeNone DataType = iota
	TypeString
	TypeList
	TypeSet
	TypeHash
)

// String returns the name reported by the TYPE command
func (t DataType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeList:
		return "list"
	case TypeSet:
		return "set"
	case TypeHash:
		return "hash"
	default:
		return "none"
	}
}
