// Package render implements the text formatter half of the "thick glue"
// output collaborators SPEC_FULL.md §6 describes: it turns a parsed
// record plus its resolved Semantic view into the
// `<time> [LEVEL] message key=value...` line shape.
//
// Grounded on tylermac92-logpipe's formatter.TextFormatter — the one
// complete example repo that implements this exact rendering shape —
// generalized from its map[string]interface{} log entry to our
// record.Record/record.Semantic pair, and from its fixed canonical-key
// set to the already-resolved Semantic handles so field lookup doesn't
// happen twice.
package render

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/tempestlab/hl/record"
	"github.com/tempestlab/hl/theme"
)

// Formatter writes one record to w.
type Formatter interface {
	Format(w io.Writer, rec record.Record, sem record.Semantic) error
}

// DefaultFormatter renders the "<time> [LEVEL] message key=value..." text
// shape, matching teacher cli.go's --compact/--plain flag duality: Color
// off is the --plain rendering, Color on is the default terminal one.
type DefaultFormatter struct {
	Color bool
	Theme theme.Theme
}

// Format writes a colorized-or-plain text line for rec to w.
func (f DefaultFormatter) Format(w io.Writer, rec record.Record, sem record.Semantic) error {
	th := f.Theme
	if th.Name == "" {
		th = theme.Default()
	}

	timeStr := f.formatTimestamp(rec, sem, th)
	levelStr := f.formatLevel(rec, sem, th)
	message := ""
	if sem.HasMessage() {
		message = sem.MessageValue(rec).String()
	}

	extras := f.extraFields(rec, sem)
	extraStr := ""
	if len(extras) > 0 {
		joined := strings.Join(extras, " ")
		if f.Color {
			extraStr = " " + th.Field + joined + theme.Reset
		} else {
			extraStr = " " + joined
		}
	}

	_, err := fmt.Fprintf(w, "%s %s %s%s\n", timeStr, levelStr, message, extraStr)
	return err
}

func (f DefaultFormatter) formatTimestamp(rec record.Record, sem record.Semantic, th theme.Theme) string {
	if !sem.HasTimestamp() {
		blank := "        "
		if f.Color {
			return th.Timestamp + blank + theme.Reset
		}
		return blank
	}
	raw := rec.Fields[sem.TimestampIdx].Value.String()
	out := raw
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		out = t.UTC().Format("15:04:05")
	}
	if f.Color {
		return th.Timestamp + out + theme.Reset
	}
	return out
}

func (f DefaultFormatter) formatLevel(rec record.Record, sem record.Semantic, th theme.Theme) string {
	lvl := record.LevelAbsent
	label := "absent"
	if sem.HasLevel() {
		label = strings.ToUpper(rec.Fields[sem.LevelIdx].Value.String())
		lvl = record.DefaultLevelTable().Lookup(strings.ToLower(label))
	}
	if !f.Color {
		return fmt.Sprintf("[%-5s]", label)
	}
	return th.ColorFor(lvl) + theme.Bold + fmt.Sprintf("[%-5s]", label) + theme.Reset
}

// extraFields renders every field not already claimed by a Semantic
// handle as "key=value", sorted alphabetically for stable output.
func (f DefaultFormatter) extraFields(rec record.Record, sem record.Semantic) []string {
	claimed := map[int]bool{
		sem.TimestampIdx: true,
		sem.LevelIdx:     true,
		sem.MessageIdx:   true,
		sem.LoggerIdx:    true,
		sem.CallerIdx:    true,
	}
	type kv struct{ k, v string }
	var pairs []kv
	for i, field := range rec.Fields {
		if claimed[i] {
			continue
		}
		pairs = append(pairs, kv{k: field.KeyString(), v: field.Value.String()})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].k < pairs[j].k })

	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.k + "=" + p.v
	}
	return out
}
