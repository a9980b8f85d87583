package record

// Semantic is the lightweight, optional view into a Record's predefined
// fields (§3 "Semantic view"). Each index is -1 when absent; absence is
// meaningful and never defaulted away. Semantic is produced by
// semantic.Extractor and consumed by the query/filter layer and the
// renderer so neither has to re-scan Fields by name.
type Semantic struct {
	TimestampIdx int
	LevelIdx     int
	MessageIdx   int
	LoggerIdx    int
	CallerIdx    int

	// Resolved lazily once a consumer actually asks for them, since not
	// every pipeline mode needs a parsed timestamp (e.g. plain
	// concatenation mode never calls Timestamp()).
	timestamp     Timestamp
	timestampOK   bool
	timestampDone bool
	level         Level
	levelDone     bool
}

// NewSemantic returns a Semantic with every handle absent.
func NewSemantic() Semantic {
	return Semantic{TimestampIdx: -1, LevelIdx: -1, MessageIdx: -1, LoggerIdx: -1, CallerIdx: -1}
}

func (s Semantic) HasTimestamp() bool { return s.TimestampIdx >= 0 }
func (s Semantic) HasLevel() bool     { return s.LevelIdx >= 0 }
func (s Semantic) HasMessage() bool   { return s.MessageIdx >= 0 }
func (s Semantic) HasLogger() bool    { return s.LoggerIdx >= 0 }
func (s Semantic) HasCaller() bool    { return s.CallerIdx >= 0 }

// MessageValue, LoggerValue, CallerValue return the raw field Value for
// the corresponding predefined field, or the zero Value if absent.
func (s Semantic) field(rec Record, idx int) Value {
	if idx < 0 || idx >= len(rec.Fields) {
		return Value{}
	}
	return rec.Fields[idx].Value
}

func (s Semantic) MessageValue(rec Record) Value { return s.field(rec, s.MessageIdx) }
func (s Semantic) LoggerValue(rec Record) Value  { return s.field(rec, s.LoggerIdx) }
func (s Semantic) CallerValue(rec Record) Value  { return s.field(rec, s.CallerIdx) }

// Timestamp resolves and memoizes the record's timestamp field through
// parseTS (normally tstamp.Parse bound to the configured unit, injected
// here to avoid an import cycle between record and tstamp). ok is false
// when the field is absent or fails to parse; repeated calls after the
// first return the cached result without re-parsing, since a single
// record is evaluated against level/window/query in sequence and each
// stage would otherwise reparse the same timestamp.
func (s *Semantic) Timestamp(rec Record, parseTS func(raw string) (Timestamp, error)) (Timestamp, bool) {
	if s.timestampDone {
		return s.timestamp, s.timestampOK
	}
	s.timestampDone = true
	if !s.HasTimestamp() {
		return NoTimestamp, false
	}
	ts, err := parseTS(s.field(rec, s.TimestampIdx).String())
	if err != nil {
		return NoTimestamp, false
	}
	s.timestamp, s.timestampOK = ts, true
	return ts, true
}

// Level resolves and memoizes the record's level field against table. A
// record with no recognized level (absent field or unmapped spelling)
// resolves to LevelAbsent.
func (s *Semantic) Level(rec Record, table LevelTable) Level {
	if s.levelDone {
		return s.level
	}
	s.levelDone = true
	if !s.HasLevel() {
		s.level = LevelAbsent
		return s.level
	}
	s.level = table.Lookup(s.field(rec, s.LevelIdx).String())
	return s.level
}
