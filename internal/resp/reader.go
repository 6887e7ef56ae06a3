package resp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

const (
	// maxBulkSize is the largest bulk string a client may send (512MB, same as Redis)
	maxBulkSize = 512 * 1024 * 1024

	// maxArraySize is the largest number of elements in a request array
	maxArraySize = 1024 * 1024

	// maxInlineSize caps an inline command and any header line (64KB, same as Redis)
	maxInlineSize = 64 * 1024

	// bulkPrealloc is the most a bulk string reserves before its payload actually arrives
	bulkPrealloc = 64 * 1024
)

var (
	ErrInvalidEnding = errors.New("invalid line ending")
	ErrProtocol      = errors.New("protocol error")
	ErrUnknownType   = errors.New("unknown value type")
)

// Decoder reads RESP values from a stream
type Decoder struct {
	rd *bufio.Reader
}

// NewDecoder initializes a Decoder with a buffered reader
func NewDecoder(rd io.Reader) *Decoder {
	return &Decoder{rd: bufio.NewReader(rd)}
}

// Read decodes the next value. A line that does not start with a RESP type byte is treated as an
// inline command and returned as an array of bulk strings
func (d *Decoder) Read() (Value, error) {
	_type, err := d.rd.ReadByte()
	if err != nil {
		return Value{}, err
	}

	switch _type {
	case TypeSimpleString, TypeError:
		line, err := d.readLine()
		if err != nil {
			return Value{}, err
		}
		return Value{Type: _type, String: line}, nil

	case TypeInteger:
		line, err := d.readLine()
		if err != nil {
			return Value{}, err
		}
		num, err := parseInteger(line)
		if err != nil {
			return Value{}, err
		}
		return MakeInteger(num), nil

	case TypeBulkString:
		return d.readBulkString()

	case TypeArray:
		return d.readArray()
	}

	if err := d.rd.UnreadByte(); err != nil {
		return Value{}, err
	}
	return d.readInline()
}

// readLine reads up to CRLF and returns the line without the terminator
func (d *Decoder) readLine() ([]byte, error) {
	line, err := d.readLimitedLine()
	if err != nil {
		return nil, err
	}

	if len(line) < 2 || line[len(line)-2] != '\r' {
		return nil, ErrInvalidEnding
	}

	return line[:len(line)-2], nil
}

func (d *Decoder) readBulkString() (Value, error) {
	line, err := d.readLine()
	if err != nil {
		return Value{}, err
	}

	length, err := parseInteger(line)
	if err != nil {
		return Value{}, fmt.Errorf("%w: invalid bulk length", ErrProtocol)
	}

	if length == -1 {
		return MakeNilBulkString(), nil
	}

	if length < 0 || length > maxBulkSize {
		return Value{}, fmt.Errorf("%w: invalid bulk length", ErrProtocol)
	}

	// the buffer grows with the data received, not with the length the client announced
	var buf bytes.Buffer
	buf.Grow(int(min(length, bulkPrealloc)))
	if _, err := io.CopyN(&buf, d.rd, length); err != nil {
		if errors.Is(err, io.EOF) {
			return Value{}, io.ErrUnexpectedEOF
		}
		return Value{}, err
	}

	var crlf [2]byte
	if _, err := io.ReadFull(d.rd, crlf[:]); err != nil {
		return Value{}, err
	}
	if crlf[0] != '\r' || crlf[1] != '\n' {
		return Value{}, ErrInvalidEnding
	}

	return Value{Type: TypeBulkString, String: buf.Bytes()}, nil
}

func (d *Decoder) readArray() (Value, error) {
	line, err := d.readLine()
	if err != nil {
		return Value{}, err
	}

	count, err := parseInteger(line)
	if err != nil {
		return Value{}, fmt.Errorf("%w: invalid multibulk length", ErrProtocol)
	}

	if count == -1 {
		return Value{Type: TypeArray, IsNull: true}, nil
	}

	if count < 0 || count > maxArraySize {
		return Value{}, fmt.Errorf("%w: invalid multibulk length", ErrProtocol)
	}

	items := make([]Value, 0, count)
	for i := int64(0); i < count; i++ {
		item, err := d.Read()
		if err != nil {
			return Value{}, err
		}
		items = append(items, item)
	}

	return MakeArray(items), nil
}

// readInline parses the telnet-style form: "SET key value\r\n"
func (d *Decoder) readInline() (Value, error) {
	line, err := d.readLimitedLine()
	if err != nil {
		return Value{}, err
	}

	fields := bytes.Fields(line)
	items := make([]Value, len(fields))
	for i, f := range fields {
		items[i] = Value{Type: TypeBulkString, String: f}
	}

	return MakeArray(items), nil
}

// readLimitedLine reads through the next '\n', failing once the line grows past maxInlineSize
func (d *Decoder) readLimitedLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := d.rd.ReadSlice('\n')
		line = append(line, chunk...)
		if len(line) > maxInlineSize {
			return nil, fmt.Errorf("%w: too big inline request", ErrProtocol)
		}
		if err == nil {
			return line, nil
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return nil, err
		}
	}
}

func parseInteger(line []byte) (int64, error) {
	if len(line) == 0 {
		return 0, fmt.Errorf("%w: empty integer", ErrProtocol)
	}

	num, err := strconv.ParseInt(string(line), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrProtocol, err)
	}

	return num, nil
}
