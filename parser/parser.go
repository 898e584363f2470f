// Package parser extracts vessel records from CGMIX SOAP response bodies.
package parser

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/aluiziolira/go-scrape-vessels/models"
)

// vesselIDField is the column the endpoint uses for the primary key.
const vesselIDField = "VesselId"

// datasetDepth is how many element levels below the envelope root the row
// set lives. A response shallower than this carries no data.
const datasetDepth = 4

// Records parses a raw SOAP response body into zero or more records, each
// tagged with vesselID when the row itself carries no usable id. Malformed
// or empty responses yield nil; this function never fails past its boundary.
func Records(body []byte, vesselID int64) []models.Record {
	doc, err := xmlquery.Parse(bytes.NewReader(unescape(body)))
	if err != nil {
		return nil
	}

	rowSet := firstElement(doc)
	for i := 0; i < datasetDepth; i++ {
		if rowSet == nil {
			return nil
		}
		rowSet = firstElement(rowSet)
	}
	if rowSet == nil {
		return nil
	}

	var records []models.Record
	for row := firstElement(rowSet); row != nil; row = nextElement(row) {
		fields := make(map[string]string)
		for field := firstElement(row); field != nil; field = nextElement(field) {
			fields[field.Data] = field.InnerText()
		}
		if len(fields) == 0 {
			continue
		}

		id := vesselID
		if raw, ok := fields[vesselIDField]; ok {
			if parsed, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
				id = parsed
			}
		}
		delete(fields, vesselIDField)
		records = append(records, models.Record{VesselID: id, Fields: fields})
	}
	return records
}

// unescape undoes the endpoint's habit of entity-escaping the inner result
// document inside the SOAP envelope.
func unescape(body []byte) []byte {
	body = bytes.ReplaceAll(body, []byte("&lt;"), []byte("<"))
	return bytes.ReplaceAll(body, []byte("&gt;"), []byte(">"))
}

func firstElement(n *xmlquery.Node) *xmlquery.Node {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return child
		}
	}
	return nil
}

func nextElement(n *xmlquery.Node) *xmlquery.Node {
	for sibling := n.NextSibling; sibling != nil; sibling = sibling.NextSibling {
		if sibling.Type == xmlquery.ElementNode {
			return sibling
		}
	}
	return nil
}
