package resp

import (
	"bytes"
)

// SerializeCommand uses a standard Encoder to convert the command to bytes
func SerializeCommand(cmd string, args ...string) ([]byte, error) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	elements := make([]Value, 0, 1+len(args))
	elements = append(elements, MakeBulkString(cmd))
	for _, arg := range args {
		elements = append(elements, MakeBulkString(arg))
	}

	if err := enc.Write(MakeArray(elements)); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
