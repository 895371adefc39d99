package pipeline

import "fmt"

// DataKind tags the shape of a PipelineData value; stages declare an
// input/output DataKind and the executor checks adjacent compatibility.
type DataKind int

const (
	Empty DataKind = iota
	Bytes
	Text
	Rows
	KeyValue
	Stream
	Any // wildcard: compatible with everything, used by generic stages
)

func (k DataKind) String() string {
	switch k {
	case Empty:
		return "empty"
	case Bytes:
		return "bytes"
	case Text:
		return "text"
	case Rows:
		return "rows"
	case KeyValue:
		return "key_value"
	case Stream:
		return "stream"
	case Any:
		return "any"
	default:
		return "unknown"
	}
}

// Data is a value flowing between stages.
type Data struct {
	Kind    DataKind
	Bytes   []byte
	Text    string
	Rows    [][]string
	KV      map[string]string
	Handle  interface{} // opaque Stream handle
}

// EmptyData is the initial token sent to the first stage of a pipeline.
func EmptyData() Data { return Data{Kind: Empty} }

func TextData(s string) Data { return Data{Kind: Text, Text: s} }

func BytesData(b []byte) Data { return Data{Kind: Bytes, Bytes: b} }

// compatible reports whether `have` may be fed into a stage declaring
// `want` as its input type. Any is a wildcard on either side.
func compatible(have, want DataKind) bool {
	if have == Any || want == Any {
		return true
	}
	return have == want
}

func (d Data) String() string {
	switch d.Kind {
	case Text:
		return d.Text
	case Bytes:
		return fmt.Sprintf("<%d bytes>", len(d.Bytes))
	case Rows:
		return fmt.Sprintf("<%d rows>", len(d.Rows))
	case KeyValue:
		return fmt.Sprintf("<%d keys>", len(d.KV))
	case Stream:
		return "<stream>"
	default:
		return "<empty>"
	}
}
