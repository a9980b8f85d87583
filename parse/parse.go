package parse

import "github.com/tempestlab/hl/record"

// Format pins a specific parser instead of the auto-detecting chain,
// matching the --format flag (§6.1).
type Format uint8

const (
	FormatAuto Format = iota
	FormatJSON
	FormatLogfmt
)

// Record parses raw record bytes per format. FormatAuto tries JSON, then
// logfmt, falling back to a raw record (§4.D) rather than erroring — an
// unparseable line is not a Parsing-kind failure at the pipeline level,
// it's a degraded record that still flows through for concatenation
// output.
func Record(raw []byte, format Format) record.Record {
	switch format {
	case FormatJSON:
		if rec, err := JSON(raw); err == nil {
			return rec
		}
		return rawRecord(raw)
	case FormatLogfmt:
		if rec, err := Logfmt(raw); err == nil {
			return rec
		}
		return rawRecord(raw)
	default:
		if LooksLikeJSONObject(raw) {
			if rec, err := JSON(raw); err == nil {
				return rec
			}
		}
		if rec, err := Logfmt(raw); err == nil {
			return rec
		}
		return rawRecord(raw)
	}
}

func rawRecord(raw []byte) record.Record {
	return record.Record{Source: raw, Format: record.FormatRaw}
}
