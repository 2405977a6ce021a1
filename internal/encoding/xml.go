package encoding

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
)

// encodeXML builds the document by hand so element names can come from column
// names. Names are sanitised to valid XML identifiers; values go through
// xml.EscapeText.
func encodeXML(rs domain.RowSet, opts Options) ([]byte, error) {
	fields := fieldOrder(rs, opts)
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString("<export>\n")

	if opts.IncludeMetadata {
		buf.WriteString("  <metadata>\n")
		for _, pair := range metadataPairs(opts.Meta) {
			name, value := pair[0], pair[1]
			if strings.HasPrefix(name, "filter.") {
				continue
			}
			writeElement(&buf, "    ", xmlName(name), value)
		}
		if len(opts.Meta.Filters) > 0 {
			buf.WriteString("    <filters>\n")
			for _, pair := range metadataPairs(opts.Meta) {
				if key, ok := strings.CutPrefix(pair[0], "filter."); ok {
					writeElement(&buf, "      ", xmlName(key), pair[1])
				}
			}
			buf.WriteString("    </filters>\n")
		}
		buf.WriteString("  </metadata>\n")
	}

	buf.WriteString("  <data>\n")
	for i, cells := range projectRows(rs, fields) {
		fmt.Fprintf(&buf, "    <record id=\"%d\">\n", i+1)
		for j, f := range fields {
			writeElement(&buf, "      ", xmlName(f), cells[j])
		}
		buf.WriteString("    </record>\n")
	}
	buf.WriteString("  </data>\n")
	buf.WriteString("</export>\n")
	return buf.Bytes(), nil
}

func writeElement(buf *bytes.Buffer, indent, name, value string) {
	buf.WriteString(indent)
	buf.WriteByte('<')
	buf.WriteString(name)
	buf.WriteByte('>')
	_ = xml.EscapeText(buf, []byte(value))
	buf.WriteString("</")
	buf.WriteString(name)
	buf.WriteString(">\n")
}

// xmlName maps an arbitrary column name onto a valid XML element name.
func xmlName(s string) string {
	if s == "" {
		return "field"
	}
	var b strings.Builder
	for i, r := range s {
		valid := r == '_' || r == '-' || r == '.' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(i > 0 && r >= '0' && r <= '9')
		if valid {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	name := b.String()
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}
