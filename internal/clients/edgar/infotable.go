package edgar

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bvanryn/specula/internal/models"
)

// Filers produce two infotable dialects: legacy documents with bare tags
// and modern ones with namespace prefixes (ns1:infoTable). Stripping the
// declarations and prefixes up front lets one decoder handle both.
var (
	xmlnsDeclRe  = regexp.MustCompile(`\s+xmlns(?::[A-Za-z0-9_-]+)?="[^"]*"`)
	nsPrefixRe   = regexp.MustCompile(`<(/?)[A-Za-z0-9_-]+:`)
	xmlHeaderRe  = regexp.MustCompile(`<\?xml[^?]*\?>`)
	xmlCommentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
)

type infoTableDoc struct {
	XMLName xml.Name       `xml:"informationTable"`
	Entries []infoTableRow `xml:"infoTable"`
}

type infoTableRow struct {
	NameOfIssuer string `xml:"nameOfIssuer"`
	CUSIP        string `xml:"cusip"`
	Value        string `xml:"value"`
	ShrsOrPrnAmt struct {
		SshPrnamt string `xml:"sshPrnamt"`
	} `xml:"shrsOrPrnAmt"`
}

// ParseInfotable extracts the holdings from a 13F infotable XML document.
// Values are kept in thousands of USD, as filed.
func ParseInfotable(data []byte) ([]models.Raw13FHolding, error) {
	text := string(data)
	text = xmlHeaderRe.ReplaceAllString(text, "")
	text = xmlCommentRe.ReplaceAllString(text, "")
	text = xmlnsDeclRe.ReplaceAllString(text, "")
	text = nsPrefixRe.ReplaceAllString(text, "<$1")

	var doc infoTableDoc
	if err := xml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("malformed infotable XML: %w", err)
	}

	holdings := make([]models.Raw13FHolding, 0, len(doc.Entries))
	for _, row := range doc.Entries {
		cusip := strings.TrimSpace(row.CUSIP)
		if cusip == "" {
			continue
		}
		holdings = append(holdings, models.Raw13FHolding{
			CUSIP:       cusip,
			CompanyName: strings.TrimSpace(row.NameOfIssuer),
			Value:       parseNumber(row.Value),
			Shares:      parseNumber(row.ShrsOrPrnAmt.SshPrnamt),
		})
	}
	return holdings, nil
}

// parseNumber reads a filed numeric field, tolerating thousands
// separators and surrounding whitespace.
func parseNumber(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
