package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/aluiziolira/go-scrape-vessels/config"
	"github.com/aluiziolira/go-scrape-vessels/models"
)

const testEndpoint = "http://cgmix.test/xml/PSIXData.asmx"

var vesselIDPattern = regexp.MustCompile(`<VesselID>(\d+)</VesselID>`)

func successBody(id int64) string {
	return `<?xml version="1.0" encoding="utf-8"?>` +
		`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">` +
		`<soap:Body><Response><Result><NewDataSet>` +
		fmt.Sprintf(`<Table><VesselId>%d</VesselId><Flag>US</Flag></Table>`, id) +
		`</NewDataSet></Result></Response></soap:Body></soap:Envelope>`
}

func emptyBody() string {
	return `<?xml version="1.0" encoding="utf-8"?>` +
		`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">` +
		`<soap:Body><Response><Result><NewDataSet></NewDataSet></Result></Response></soap:Body></soap:Envelope>`
}

// soapResponder answers per posted vessel id: ids in fail get a 500, ids in
// empty get a well-formed response with no rows, everything else succeeds.
func soapResponder(fail, empty map[int64]bool) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			return httpmock.NewStringResponse(400, ""), nil
		}
		match := vesselIDPattern.FindSubmatch(raw)
		if match == nil {
			return httpmock.NewStringResponse(400, ""), nil
		}
		id, _ := strconv.ParseInt(string(match[1]), 10, 64)

		switch {
		case fail[id]:
			return httpmock.NewStringResponse(500, "boom"), nil
		case empty[id]:
			return httpmock.NewStringResponse(200, emptyBody()), nil
		default:
			return httpmock.NewStringResponse(200, successBody(id)), nil
		}
	}
}

func newTestClient(t *testing.T, responder httpmock.Responder) *Client {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.EndpointURL = testEndpoint
	cfg.Parallelism = 4
	cfg.Timeout = 5 * time.Second

	client, err := NewClient(cfg, NewMetrics())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("POST", testEndpoint, responder)
	client.collector.WithTransport(transport)
	return client
}

func recordIDs(records []models.Record) map[int64]int {
	out := make(map[int64]int)
	for _, rec := range records {
		out[rec.VesselID]++
	}
	return out
}

func TestFetchBatchSplitsSuccessesAndAbsences(t *testing.T) {
	fail := map[int64]bool{2: true, 5: true}
	client := newTestClient(t, soapResponder(fail, nil))

	batch := []int64{1, 2, 3, 4, 5, 6}
	res, err := client.FetchBatch(context.Background(), models.CategoryDimensions, batch)
	if err != nil {
		t.Fatalf("FetchBatch: %v", err)
	}

	if got := len(res.Records); got != len(batch)-len(fail) {
		t.Fatalf("len(Records) = %d, want %d", got, len(batch)-len(fail))
	}
	ids := recordIDs(res.Records)
	for id := range fail {
		if _, ok := ids[id]; ok {
			t.Fatalf("failed id %d should not appear in records", id)
		}
	}

	if len(res.Failed) != 2 || res.Failed[0] != 2 || res.Failed[1] != 5 {
		t.Fatalf("Failed = %v, want [2 5]", res.Failed)
	}
	if res.AllFailed() {
		t.Fatalf("AllFailed() = true for a partially successful batch")
	}
}

func TestFetchBatchEmptyResponseIsAbsence(t *testing.T) {
	client := newTestClient(t, soapResponder(nil, map[int64]bool{3: true}))

	res, err := client.FetchBatch(context.Background(), models.CategoryTonnage, []int64{3, 4})
	if err != nil {
		t.Fatalf("FetchBatch: %v", err)
	}
	if len(res.Failed) != 1 || res.Failed[0] != 3 {
		t.Fatalf("Failed = %v, want [3]", res.Failed)
	}
	if len(res.Records) != 1 || res.Records[0].VesselID != 4 {
		t.Fatalf("Records = %v, want a single record for id 4", res.Records)
	}
}

func TestFetchBatchWholeBatchFailure(t *testing.T) {
	client := newTestClient(t, httpmock.NewStringResponder(503, "down"))

	batch := []int64{10, 11, 12}
	res, err := client.FetchBatch(context.Background(), models.CategoryParticulars, batch)
	if err != nil {
		t.Fatalf("FetchBatch: %v", err)
	}
	if !res.AllFailed() {
		t.Fatalf("AllFailed() = false, want true")
	}
	if len(res.Failed) != len(batch) {
		t.Fatalf("len(Failed) = %d, want %d", len(res.Failed), len(batch))
	}
}

func TestFetchBatchAlwaysCoversEveryID(t *testing.T) {
	// Mixed outcomes: server errors, empty result sets, successes.
	client := newTestClient(t, soapResponder(map[int64]bool{2: true}, map[int64]bool{4: true}))

	batch := []int64{1, 2, 3, 4, 5}
	res, err := client.FetchBatch(context.Background(), models.CategoryDimensions, batch)
	if err != nil {
		t.Fatalf("FetchBatch: %v", err)
	}
	covered := len(recordIDs(res.Records)) + len(res.Failed)
	if covered != len(batch) {
		t.Fatalf("outcomes cover %d ids, want %d", covered, len(batch))
	}
}

func TestNewClientRejectsUnknownConfiguredCategory(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.EndpointURL = testEndpoint
	// A typo must fail at construction, not partway through a run.
	cfg.Categories = []models.Category{models.CategoryDimensions, models.Category("tonage")}

	if _, err := NewClient(cfg, NewMetrics()); err == nil {
		t.Fatalf("NewClient should reject a category with no SOAP method")
	}
}

func TestFetchBatchUnknownCategory(t *testing.T) {
	client := newTestClient(t, soapResponder(nil, nil))
	if _, err := client.FetchBatch(context.Background(), models.Category("deficiencies"), []int64{1}); err == nil {
		t.Fatalf("FetchBatch should fail for a category with no SOAP method")
	}
}

func TestFetchBatchCancelledContext(t *testing.T) {
	client := newTestClient(t, soapResponder(nil, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.FetchBatch(ctx, models.CategoryDimensions, []int64{1, 2}); err == nil {
		t.Fatalf("FetchBatch should surface context cancellation")
	}
}
