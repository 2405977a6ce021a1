package encoding

import (
	"fmt"
	"html"
	"strings"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
)

// encodeHTML renders a standalone page with a single data table. All dynamic
// text passes through html.EscapeString.
func encodeHTML(rs domain.RowSet, opts Options) ([]byte, error) {
	fields := fieldOrder(rs, opts)
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n<title>Data Export</title>\n")
	b.WriteString("<style>table{border-collapse:collapse}th,td{border:1px solid #ccc;padding:4px 8px;text-align:left}th{background:#f0f0f0}</style>\n")
	b.WriteString("</head>\n<body>\n<h1>Data Export</h1>\n")

	if opts.IncludeMetadata {
		b.WriteString("<dl class=\"metadata\">\n")
		for _, pair := range metadataPairs(opts.Meta) {
			fmt.Fprintf(&b, "<dt>%s</dt><dd>%s</dd>\n",
				html.EscapeString(pair[0]), html.EscapeString(pair[1]))
		}
		b.WriteString("</dl>\n")
	}

	b.WriteString("<table>\n<thead>\n<tr>")
	for _, f := range fields {
		b.WriteString("<th>")
		b.WriteString(html.EscapeString(f))
		b.WriteString("</th>")
	}
	b.WriteString("</tr>\n</thead>\n<tbody>\n")
	for _, cells := range projectRows(rs, fields) {
		b.WriteString("<tr>")
		for _, v := range cells {
			b.WriteString("<td>")
			b.WriteString(html.EscapeString(v))
			b.WriteString("</td>")
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</tbody>\n</table>\n</body>\n</html>\n")
	return []byte(b.String()), nil
}
