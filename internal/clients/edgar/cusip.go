package edgar

import (
	"strings"
)

// cusipTable maps well-known CUSIPs straight to tickers. The static
// table covers the large caps that dominate tracked 13F portfolios;
// everything else falls through to the company-name hints.
var cusipTable = map[string]string{
	"037833100": "AAPL",
	"594918104": "MSFT",
	"02079K305": "GOOGL",
	"02079K107": "GOOG",
	"023135106": "AMZN",
	"67066G104": "NVDA",
	"30303M102": "META",
	"88160R101": "TSLA",
	"084670702": "BRK-B",
	"478160104": "JNJ",
	"46625H100": "JPM",
	"92826C839": "V",
	"57636Q104": "MA",
	"742718109": "PG",
	"931142103": "WMT",
	"191216100": "KO",
	"713448108": "PEP",
	"00206R102": "T",
	"92343V104": "VZ",
	"17275R102": "CSCO",
	"458140100": "INTC",
	"007903107": "AMD",
	"097023105": "BA",
	"254687106": "DIS",
	"64110L106": "NFLX",
	"437076102": "HD",
	"580135101": "MCD",
	"060505104": "BAC",
	"172967424": "C",
	"38141G104": "GS",
	"369604301": "GE",
	"91324P102": "UNH",
	"532457108": "LLY",
	"58933Y105": "MRK",
	"717081103": "PFE",
	"00287Y109": "ABBV",
	"880770102": "TSM",
	"68389X105": "ORCL",
	"79466L302": "CRM",
	"00724F101": "ADBE",
	"447891105": "HUM",
	"166764100": "CVX",
	"30231G102": "XOM",
	"02209S103": "ALLY",
	"025816109": "AXP",
	"603822104": "MCO",
	"404119109": "HPQ",
	"12514G108": "CE",
	"448579102": "HSY",
	"500754106": "KHC",
	"609207105": "MDLZ",
	"863667101": "STZ",
	"20030N101": "CMCSA",
	"874054109": "TSN",
}

// nameHints maps uppercased issuer-name fragments to tickers, used when
// the CUSIP is not in the static table.
var nameHints = []struct {
	fragment string
	ticker   string
}{
	{"APPLE", "AAPL"},
	{"MICROSOFT", "MSFT"},
	{"ALPHABET", "GOOGL"},
	{"AMAZON", "AMZN"},
	{"NVIDIA", "NVDA"},
	{"META PLATFORMS", "META"},
	{"TESLA", "TSLA"},
	{"BERKSHIRE", "BRK-B"},
	{"JPMORGAN", "JPM"},
	{"JOHNSON & JOHNSON", "JNJ"},
	{"COCA COLA", "KO"},
	{"COCA-COLA", "KO"},
	{"PEPSICO", "PEP"},
	{"WALMART", "WMT"},
	{"WAL-MART", "WMT"},
	{"PROCTER & GAMBLE", "PG"},
	{"BANK OF AMER", "BAC"},
	{"BANK AMER", "BAC"},
	{"WELLS FARGO", "WFC"},
	{"GOLDMAN SACHS", "GS"},
	{"AMERICAN EXPRESS", "AXP"},
	{"UNITEDHEALTH", "UNH"},
	{"ELI LILLY", "LLY"},
	{"EXXON", "XOM"},
	{"CHEVRON", "CVX"},
	{"NETFLIX", "NFLX"},
	{"WALT DISNEY", "DIS"},
	{"DISNEY", "DIS"},
	{"ORACLE", "ORCL"},
	{"SALESFORCE", "CRM"},
	{"ADOBE", "ADBE"},
	{"INTEL", "INTC"},
	{"ADVANCED MICRO", "AMD"},
	{"CISCO", "CSCO"},
	{"TAIWAN SEMICONDUCTOR", "TSM"},
	{"OCCIDENTAL", "OXY"},
	{"KRAFT HEINZ", "KHC"},
	{"MOODY", "MCO"},
	{"VISA", "V"},
	{"MASTERCARD", "MA"},
}

// MapCUSIPToTicker resolves a CUSIP to a ticker symbol: static table
// first, then substring hints on the uppercased company name. Returns ""
// when the security cannot be resolved.
func MapCUSIPToTicker(cusip, companyName string) string {
	if ticker, ok := cusipTable[strings.TrimSpace(cusip)]; ok {
		return ticker
	}

	name := strings.ToUpper(companyName)
	for _, hint := range nameHints {
		if strings.Contains(name, hint.fragment) {
			return hint.ticker
		}
	}
	return ""
}
