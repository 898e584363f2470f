package scraper

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aluiziolira/go-scrape-vessels/models"
)

// Method describes one SOAP operation: the SOAPAction header value and the
// request envelope template, with a %d placeholder for the vessel id.
type Method struct {
	Action string `json:"action"`
	Body   string `json:"body"`
}

const soapNamespace = "https://cgmix.uscg.mil/xml/"

func envelope(operation, params string) string {
	return `<?xml version="1.0" encoding="utf-8"?>` +
		`<soap:Envelope xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"` +
		` xmlns:xsd="http://www.w3.org/2001/XMLSchema"` +
		` xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">` +
		`<soap:Body><` + operation + ` xmlns="` + soapNamespace + `">` +
		params +
		`</` + operation + `></soap:Body></soap:Envelope>`
}

// DefaultMethods returns the built-in CGMIX PSIX method table. The summary
// operation carries the extra search parameters the endpoint requires even
// when querying by id alone.
func DefaultMethods() map[models.Category]Method {
	return map[models.Category]Method{
		models.CategorySummary: {
			Action: soapNamespace + "getVesselSummaryXMLString",
			Body: envelope("getVesselSummaryXMLString",
				`<VesselID>%d</VesselID><VesselName></VesselName><CallSign></CallSign>`+
					`<VIN></VIN><HIN></HIN><Flag></Flag><Service></Service><BuildYear></BuildYear>`),
		},
		models.CategoryParticulars: {
			Action: soapNamespace + "getVesselParticularsXMLString",
			Body:   envelope("getVesselParticularsXMLString", `<VesselID>%d</VesselID>`),
		},
		models.CategoryDimensions: {
			Action: soapNamespace + "getVesselDimensionsXMLString",
			Body:   envelope("getVesselDimensionsXMLString", `<VesselID>%d</VesselID>`),
		},
		models.CategoryTonnage: {
			Action: soapNamespace + "getVesselTonnageXMLString",
			Body:   envelope("getVesselTonnageXMLString", `<VesselID>%d</VesselID>`),
		},
	}
}

// methodsFile mirrors the consts JSON the scrape was originally driven by:
// an endpoint URL plus per-category method templates.
type methodsFile struct {
	URL        string                     `json:"url"`
	XMLMethods map[models.Category]Method `json:"xmlMethods"`
}

// LoadMethods reads a method table override from a JSON file. Categories
// absent from the file keep their built-in defaults. The returned URL is
// empty when the file does not set one.
func LoadMethods(path string) (string, map[models.Category]Method, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("read methods file: %w", err)
	}
	var parsed methodsFile
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", nil, fmt.Errorf("parse methods file %s: %w", path, err)
	}

	methods := DefaultMethods()
	for cat, m := range parsed.XMLMethods {
		if m.Body == "" {
			return "", nil, fmt.Errorf("methods file %s: category %s has no body template", path, cat)
		}
		methods[cat] = m
	}
	return parsed.URL, methods, nil
}
