package render

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/tempestlab/hl/record"
)

// JSONFormatter writes each record back out as a single JSON object,
// preserving the parsed field order and duplicate keys per §3's Record
// invariants — encoding/json's map-based marshaling would silently
// collapse duplicates and reorder keys, so this builds the object text
// by hand, field by field, the same way parse/json.go builds the
// opposite direction.
//
// Grounded on tylermac92-logpipe's formatter.JSONFormatter (Pretty-gated
// json.Marshal/MarshalIndent) for the Pretty toggle, adapted to a
// hand-rolled encoder because the input here is an ordered field list,
// not a Go map.
type JSONFormatter struct {
	Pretty bool
}

// Format writes rec as a JSON object line to w. sem is accepted to
// satisfy Formatter but unused: the JSON view renders every field as-is.
func (f JSONFormatter) Format(w io.Writer, rec record.Record, sem record.Semantic) error {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range rec.Fields {
		if i > 0 {
			buf.WriteByte(',')
			if f.Pretty {
				buf.WriteByte('\n')
				buf.WriteString("  ")
			}
		} else if f.Pretty && len(rec.Fields) > 0 {
			buf.WriteByte('\n')
			buf.WriteString("  ")
		}
		keyJSON, err := json.Marshal(field.KeyString())
		if err != nil {
			return err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		if f.Pretty {
			buf.WriteByte(' ')
		}
		if err := writeValue(&buf, field.Value); err != nil {
			return err
		}
	}
	if f.Pretty && len(rec.Fields) > 0 {
		buf.WriteByte('\n')
	}
	buf.WriteByte('}')
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

// writeValue appends v's JSON representation to buf. Strings go through
// json.Marshal for correct escaping (lazily unescaping first if needed);
// numbers/bools/raw composites pass their source span through unchanged
// since it is already valid JSON text.
func writeValue(buf *bytes.Buffer, v record.Value) error {
	switch v.Kind {
	case record.KindString:
		encoded, err := json.Marshal(v.String())
		if err != nil {
			return err
		}
		buf.Write(encoded)
	case record.KindInt, record.KindFloat, record.KindBool:
		buf.Write(v.Raw)
	case record.KindNull:
		buf.WriteString("null")
	case record.KindRawObject, record.KindRawArray:
		buf.Write(v.Raw)
	default:
		buf.WriteString("null")
	}
	return nil
}
