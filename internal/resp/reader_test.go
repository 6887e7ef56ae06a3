package resp_test

import (
	"errors"
	"io"
	"runtime"
	"strconv"
	"strings"
	"testing"

	"github.com/eternalApril/redismock/internal/resp"
)

func TestReadInt(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr error
	}{
		{
			name:    "Valid positive",
			input:   ":1000\r\n",
			want:    1000,
			wantErr: nil,
		},
		{
			name:    "Valid positive with +",
			input:   ":+1230\r\n",
			want:    1230,
			wantErr: nil,
		},
		{
			name:    "Valid negative",
			input:   ":-15\r\n",
			want:    -15,
			wantErr: nil,
		},
		{
			name:    "Valid zero",
			input:   ":0\r\n",
			want:    0,
			wantErr: nil,
		},
		{
			name:    "Invalid ending",
			input:   ":1000\n",
			want:    0,
			wantErr: resp.ErrInvalidEnding,
		},
		{
			name:    "Not a number",
			input:   ":abc\r\n",
			want:    0,
			wantErr: resp.ErrProtocol,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := resp.NewDecoder(strings.NewReader(tt.input))

			val, err := r.Read()

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Read() expected error %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Errorf("Read() unexpected error %v", err)
			}

			if val.Type != resp.TypeInteger {
				t.Errorf("Read() type = %v, want %v", val.Type, resp.TypeInteger)
			}

			if val.Integer != tt.want {
				t.Errorf("Read() num = %v, want %v", val.Integer, tt.want)
			}
		})
	}
}

func TestReadCommand(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "Array of bulk strings",
			input: "*3\r\n$3\r\nSET\r\n$3\r\nkey\r\n$5\r\nvalue\r\n",
			want:  []string{"SET", "key", "value"},
		},
		{
			name:  "Bulk string with CRLF inside",
			input: "*2\r\n$4\r\nECHO\r\n$4\r\na\r\nb\r\n",
			want:  []string{"ECHO", "a\r\nb"},
		},
		{
			name:  "Empty bulk string",
			input: "*2\r\n$3\r\nGET\r\n$0\r\n\r\n",
			want:  []string{"GET", ""},
		},
		{
			name:  "Inline command",
			input: "PING hello\r\n",
			want:  []string{"PING", "hello"},
		},
		{
			name:  "Inline command with extra spaces",
			input: "  get   k \n",
			want:  []string{"get", "k"},
		},
		{
			name:  "Empty array",
			input: "*0\r\n",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := resp.NewDecoder(strings.NewReader(tt.input))

			val, err := r.Read()
			if err != nil {
				t.Fatalf("Read() unexpected error %v", err)
			}

			if val.Type != resp.TypeArray {
				t.Fatalf("Read() type = %c, want array", val.Type)
			}

			if len(val.Array) != len(tt.want) {
				t.Fatalf("Read() got %d elements, want %d", len(val.Array), len(tt.want))
			}

			for i, w := range tt.want {
				if got := val.Array[i].Text(); got != w {
					t.Errorf("element %d = %q, want %q", i, got, w)
				}
			}
		})
	}
}

func TestReadNulls(t *testing.T) {
	r := resp.NewDecoder(strings.NewReader("$-1\r\n*-1\r\n"))

	bulk, err := r.Read()
	if err != nil {
		t.Fatalf("Read() unexpected error %v", err)
	}
	if bulk.Type != resp.TypeBulkString || !bulk.IsNull {
		t.Errorf("expected nil bulk string, got %+v", bulk)
	}

	arr, err := r.Read()
	if err != nil {
		t.Fatalf("Read() unexpected error %v", err)
	}
	if arr.Type != resp.TypeArray || !arr.IsNull {
		t.Errorf("expected nil array, got %+v", arr)
	}

	if _, err = r.Read(); err != io.EOF {
		t.Errorf("expected EOF after last value, got %v", err)
	}
}

func TestReadMalformed(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"Negative bulk length", "$-5\r\n", resp.ErrProtocol},
		{"Bad bulk terminator", "$3\r\nabcXY", resp.ErrInvalidEnding},
		{"Bad array length", "*x\r\n", resp.ErrProtocol},
		{"Too large array", "*99999999\r\n", resp.ErrProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := resp.NewDecoder(strings.NewReader(tt.input))
			_, err := r.Read()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Read() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestReadOversizedLines(t *testing.T) {
	long := strings.Repeat("a", 70*1024)

	tests := []struct {
		name  string
		input string
	}{
		{"Inline command", "SET k " + long + "\r\n"},
		{"Inline command without newline", long},
		{"Array header", "*" + long + "\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resp.NewDecoder(strings.NewReader(tt.input)).Read()
			if !errors.Is(err, resp.ErrProtocol) {
				t.Errorf("Read() error = %v, want %v", err, resp.ErrProtocol)
			}
		})
	}
}

func TestReadLargeBulkString(t *testing.T) {
	payload := strings.Repeat("x", 300*1024)
	input := "*2\r\n$4\r\nECHO\r\n$" + strconv.Itoa(len(payload)) + "\r\n" + payload + "\r\n"

	val, err := resp.NewDecoder(strings.NewReader(input)).Read()
	if err != nil {
		t.Fatalf("Read() unexpected error %v", err)
	}
	if got := val.Array[1].Text(); got != payload {
		t.Errorf("payload length = %d, want %d", len(got), len(payload))
	}
}

func TestReadBulkAllocatesByReceivedData(t *testing.T) {
	// announces ~500MB and then sends three bytes
	input := "$500000000\r\nabc"

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)

	_, err := resp.NewDecoder(strings.NewReader(input)).Read()

	runtime.ReadMemStats(&after)

	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Read() error = %v, want %v", err, io.ErrUnexpectedEOF)
	}
	if allocated := after.TotalAlloc - before.TotalAlloc; allocated > 16<<20 {
		t.Errorf("decoder allocated %d bytes for a 3-byte payload", allocated)
	}
}

func TestSerializeCommandRoundTrip(t *testing.T) {
	payload, err := resp.SerializeCommand("HSET", "user", "name", "ann")
	if err != nil {
		t.Fatalf("SerializeCommand() failed: %v", err)
	}

	want := "*4\r\n$4\r\nHSET\r\n$4\r\nuser\r\n$4\r\nname\r\n$3\r\nann\r\n"
	if string(payload) != want {
		t.Fatalf("SerializeCommand() = %q, want %q", payload, want)
	}

	val, err := resp.NewDecoder(strings.NewReader(string(payload))).Read()
	if err != nil {
		t.Fatalf("Read() unexpected error %v", err)
	}
	if len(val.Array) != 4 || val.Array[3].Text() != "ann" {
		t.Errorf("decoded command mismatch: %+v", val)
	}
}
