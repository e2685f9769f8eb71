package hpack

// staticTable is the 61-entry table fixed by RFC 7541 Appendix A.
// Indices below are 1-based on the wire; staticTable[0] corresponds to
// wire index 1. Reproduced from the literal tables independently
// carried by oksusucode-http2 and jakegut-goh2 (cross-checked).
var staticTable = [61]HeaderField{
	{Name: ":authority"},
	{Name: ":method", Value: "GET"},
	{Name: ":method", Value: "POST"},
	{Name: ":path", Value: "/"},
	{Name: ":path", Value: "/index.html"},
	{Name: ":scheme", Value: "http"},
	{Name: ":scheme", Value: "https"},
	{Name: ":status", Value: "200"},
	{Name: ":status", Value: "204"},
	{Name: ":status", Value: "206"},
	{Name: ":status", Value: "304"},
	{Name: ":status", Value: "400"},
	{Name: ":status", Value: "404"},
	{Name: ":status", Value: "500"},
	{Name: "accept-charset"},
	{Name: "accept-encoding", Value: "gzip, deflate"},
	{Name: "accept-language"},
	{Name: "accept-ranges"},
	{Name: "accept"},
	{Name: "access-control-allow-origin"},
	{Name: "age"},
	{Name: "allow"},
	{Name: "authorization"},
	{Name: "cache-control"},
	{Name: "content-disposition"},
	{Name: "content-encoding"},
	{Name: "content-language"},
	{Name: "content-length"},
	{Name: "content-location"},
	{Name: "content-range"},
	{Name: "content-type"},
	{Name: "cookie"},
	{Name: "date"},
	{Name: "etag"},
	{Name: "expect"},
	{Name: "expires"},
	{Name: "from"},
	{Name: "host"},
	{Name: "if-match"},
	{Name: "if-modified-since"},
	{Name: "if-none-match"},
	{Name: "if-range"},
	{Name: "if-unmodified-since"},
	{Name: "last-modified"},
	{Name: "link"},
	{Name: "location"},
	{Name: "max-forwards"},
	{Name: "proxy-authenticate"},
	{Name: "proxy-authorization"},
	{Name: "range"},
	{Name: "referer"},
	{Name: "refresh"},
	{Name: "retry-after"},
	{Name: "server"},
	{Name: "set-cookie"},
	{Name: "strict-transport-security"},
	{Name: "transfer-encoding"},
	{Name: "user-agent"},
	{Name: "vary"},
	{Name: "via"},
	{Name: "www-authenticate"},
}

// staticNameIndex maps a header name to the smallest 1-based static
// index that carries it. The encoder does not consult it: its "name
// matched, value didn't" case (RFC 7541 §4.2 "name reference") is
// served by staticLookup.
var staticNameIndex = make(map[string]int, len(staticTable))

func init() {
	for i := len(staticTable) - 1; i >= 0; i-- {
		staticNameIndex[staticTable[i].Name] = i + 1
	}
}

// staticLookup returns the 1-based index of an exact (name, value)
// match in the static table, and exact=true. If no exact match exists but
// the name does, it returns the smallest name-only index with
// exact=false.
func staticLookup(name, value string) (index int, exact bool) {
	for i, f := range staticTable {
		if f.Name != name {
			continue
		}
		if f.Value == value {
			return i + 1, true
		}
		if index == 0 {
			index = i + 1
		}
	}
	return index, false
}

func staticGet(index int) (HeaderField, bool) {
	if index < 1 || index > len(staticTable) {
		return HeaderField{}, false
	}
	return staticTable[index-1], true
}
