package encoding

import (
	"fmt"
	"strings"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
)

// encodeMarkdown renders a pipe table, preceded by a metadata list when
// requested. Pipes and newlines inside cells are escaped so rows stay intact.
func encodeMarkdown(rs domain.RowSet, opts Options) ([]byte, error) {
	fields := fieldOrder(rs, opts)
	var b strings.Builder
	b.WriteString("# Data Export\n\n")

	if opts.IncludeMetadata {
		for _, pair := range metadataPairs(opts.Meta) {
			fmt.Fprintf(&b, "- **%s**: %s\n", pair[0], mdEscape(pair[1]))
		}
		b.WriteString("\n")
	}

	if len(fields) == 0 {
		return []byte(b.String()), nil
	}

	b.WriteString("|")
	for _, f := range fields {
		b.WriteString(" ")
		b.WriteString(mdEscape(f))
		b.WriteString(" |")
	}
	b.WriteString("\n|")
	for range fields {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, cells := range projectRows(rs, fields) {
		b.WriteString("|")
		for _, v := range cells {
			b.WriteString(" ")
			b.WriteString(mdEscape(v))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}
	return []byte(b.String()), nil
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
