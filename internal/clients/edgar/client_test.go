package edgar

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bvanryn/specula/internal/ratelimit"
)

const legacyInfotable = `<?xml version="1.0" encoding="UTF-8"?>
<informationTable xmlns="http://www.sec.gov/edgar/document/thirteenf/informationtable">
  <infoTable>
    <nameOfIssuer>APPLE INC</nameOfIssuer>
    <titleOfClass>COM</titleOfClass>
    <cusip>037833100</cusip>
    <value>174300</value>
    <shrsOrPrnAmt>
      <sshPrnamt>915560382</sshPrnamt>
      <sshPrnamtType>SH</sshPrnamtType>
    </shrsOrPrnAmt>
  </infoTable>
  <infoTable>
    <nameOfIssuer>BANK AMER CORP</nameOfIssuer>
    <titleOfClass>COM</titleOfClass>
    <cusip>060505104</cusip>
    <value>29500</value>
    <shrsOrPrnAmt>
      <sshPrnamt>1032852006</sshPrnamt>
      <sshPrnamtType>SH</sshPrnamtType>
    </shrsOrPrnAmt>
  </infoTable>
</informationTable>`

const namespacedInfotable = `<?xml version="1.0" encoding="UTF-8"?>
<ns1:informationTable xmlns:ns1="http://www.sec.gov/edgar/document/thirteenf/informationtable">
  <ns1:infoTable>
    <ns1:nameOfIssuer>COCA COLA CO</ns1:nameOfIssuer>
    <ns1:cusip>191216100</ns1:cusip>
    <ns1:value>23800</ns1:value>
    <ns1:shrsOrPrnAmt>
      <ns1:sshPrnamt>400000000</ns1:sshPrnamt>
      <ns1:sshPrnamtType>SH</ns1:sshPrnamtType>
    </ns1:shrsOrPrnAmt>
  </ns1:infoTable>
</ns1:informationTable>`

func TestParseInfotable_Legacy(t *testing.T) {
	holdings, err := ParseInfotable([]byte(legacyInfotable))
	require.NoError(t, err)
	require.Len(t, holdings, 2)

	assert.Equal(t, "037833100", holdings[0].CUSIP)
	assert.Equal(t, "APPLE INC", holdings[0].CompanyName)
	assert.Equal(t, 174300.0, holdings[0].Value)
	assert.Equal(t, 915560382.0, holdings[0].Shares)
}

func TestParseInfotable_Namespaced(t *testing.T) {
	holdings, err := ParseInfotable([]byte(namespacedInfotable))
	require.NoError(t, err)
	require.Len(t, holdings, 1)

	assert.Equal(t, "191216100", holdings[0].CUSIP)
	assert.Equal(t, "COCA COLA CO", holdings[0].CompanyName)
	assert.Equal(t, 23800.0, holdings[0].Value)
	assert.Equal(t, 400000000.0, holdings[0].Shares)
}

func TestParseInfotable_Malformed(t *testing.T) {
	_, err := ParseInfotable([]byte("<informationTable><infoTable>"))
	assert.Error(t, err)
}

func TestParseInfotable_SkipsEmptyCUSIP(t *testing.T) {
	doc := `<informationTable><infoTable><nameOfIssuer>X</nameOfIssuer><cusip></cusip><value>1</value></infoTable></informationTable>`
	holdings, err := ParseInfotable([]byte(doc))
	require.NoError(t, err)
	assert.Empty(t, holdings)
}

func TestMapCUSIPToTicker(t *testing.T) {
	assert.Equal(t, "AAPL", MapCUSIPToTicker("037833100", ""))
	assert.Equal(t, "BAC", MapCUSIPToTicker("99999Z999", "BANK AMER CORP"))
	assert.Equal(t, "KO", MapCUSIPToTicker("", "Coca Cola Co"))
	assert.Equal(t, "", MapCUSIPToTicker("99999Z999", "OBSCURE MICROCAP LLC"))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient("test@example.com",
		WithSubmissionsURL(server.URL),
		WithArchivesURL(server.URL),
		WithRateLimiter(ratelimit.New(0)),
	)
}

const submissionsBody = `{
	"cik": 1067983,
	"name": "BERKSHIRE HATHAWAY INC",
	"filings": {
		"recent": {
			"accessionNumber": ["0000950123-24-008740", "0000950123-24-001518", "0000950123-23-011029"],
			"filingDate": ["2024-08-14", "2024-02-14", "2023-11-14"],
			"reportDate": ["2024-06-30", "2023-12-31", "2023-09-30"],
			"form": ["13F-HR", "13F-HR", "10-K"],
			"primaryDocument": ["primary_doc.xml", "primary_doc.xml", "brk10k.htm"]
		}
	}
}`

func TestCompanyFilings(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/submissions/CIK0001067983.json", r.URL.Path)
		assert.Contains(t, r.Header.Get("User-Agent"), "test@example.com")
		fmt.Fprint(w, submissionsBody)
	})

	filings, err := c.CompanyFilings(context.Background(), "1067983")
	require.NoError(t, err)
	require.Len(t, filings, 3)
	assert.Equal(t, "0000950123-24-008740", filings[0].AccessionNumber)
	assert.Equal(t, "000095012324008740", filings[0].AccessionPath)
	assert.Equal(t, "13F-HR", filings[0].Form)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), filings[0].ReportDate)
}

func TestLatest13F_FiltersAndOrders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, submissionsBody)
	})

	filings, err := c.Latest13F(context.Background(), "1067983", 2)
	require.NoError(t, err)
	require.Len(t, filings, 2)

	// Only 13F-HR rows survive, newest report first
	assert.Equal(t, "13F-HR", filings[0].Form)
	assert.True(t, filings[0].ReportDate.After(filings[1].ReportDate))
}

func TestFilingDetail_DiscoversInfotable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Archives/edgar/data/1067983/000095012324008740/index.json":
			fmt.Fprint(w, `{"directory": {"item": [
				{"name": "primary_doc.xml", "type": "text.gif"},
				{"name": "form13fInfoTable.xml", "type": "text.gif"},
				{"name": "report.pdf", "type": "text.gif"}
			]}}`)
		case "/Archives/edgar/data/1067983/000095012324008740/form13fInfoTable.xml":
			fmt.Fprint(w, legacyInfotable)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	holdings, filename, err := c.FilingDetail(context.Background(), "1067983", "0000950123-24-008740")
	require.NoError(t, err)
	assert.Equal(t, "form13fInfoTable.xml", filename)
	require.Len(t, holdings, 2)
	assert.Equal(t, "APPLE INC", holdings[0].CompanyName)
}

func TestFilingDetail_FallbackFilename(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Archives/edgar/data/42/0001/index.json":
			fmt.Fprint(w, `{"directory": {"item": [{"name": "primary_doc.xml"}]}}`)
		case "/Archives/edgar/data/42/0001/infotable.xml":
			fmt.Fprint(w, namespacedInfotable)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	holdings, filename, err := c.FilingDetail(context.Background(), "42", "0001")
	require.NoError(t, err)
	assert.Equal(t, "infotable.xml", filename)
	require.Len(t, holdings, 1)
}
