package dataset

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ReadXML flattens a tag-structured document into a table: every child of the
// root element is a row, and its attributes and child elements are columns.
// Columns appear in first-seen order.
//
//	<orders>
//	  <order><order_id>O1</order_id><sku_id>S1</sku_id></order>
//	</orders>
func ReadXML(r io.Reader) (*Table, error) {
	dec := xml.NewDecoder(r)

	var (
		columns []string
		seen    = map[string]bool{}
		records []map[string]string
		current map[string]string
		field   string
		text    strings.Builder
		depth   int
	)

	addColumn := func(name string) {
		if !seen[name] {
			seen[name] = true
			columns = append(columns, name)
		}
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read xml: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case 2:
				current = map[string]string{}
				for _, attr := range el.Attr {
					addColumn(attr.Name.Local)
					current[attr.Name.Local] = attr.Value
				}
			case 3:
				field = el.Name.Local
				text.Reset()
			}
		case xml.CharData:
			if depth == 3 {
				text.Write(el)
			}
		case xml.EndElement:
			switch depth {
			case 3:
				addColumn(field)
				current[field] = strings.TrimSpace(text.String())
			case 2:
				records = append(records, current)
				current = nil
			}
			depth--
		}
	}

	t := NewTable(columns)
	for _, rec := range records {
		t.AppendRecord(rec)
	}
	return t, nil
}
