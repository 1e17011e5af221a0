package airports

// builtin maps a normalized city name to its airports, busiest first.
var builtin = map[string][]string{
	"amsterdam":     {"AMS"},
	"atlanta":       {"ATL"},
	"austin":        {"AUS"},
	"barcelona":     {"BCN"},
	"berlin":        {"BER"},
	"boston":        {"BOS"},
	"chicago":       {"ORD", "MDW"},
	"dallas":        {"DFW", "DAL"},
	"denver":        {"DEN"},
	"houston":       {"IAH", "HOU"},
	"las vegas":     {"LAS"},
	"lisbon":        {"LIS"},
	"london":        {"LHR", "LGW", "LCY"},
	"los angeles":   {"LAX"},
	"miami":         {"MIA"},
	"nashville":     {"BNA"},
	"new york":      {"JFK", "LGA", "EWR"},
	"new york city": {"JFK", "LGA", "EWR"},
	"nyc":           {"JFK", "LGA", "EWR"},
	"orlando":       {"MCO"},
	"paris":         {"CDG", "ORY"},
	"philadelphia":  {"PHL"},
	"phoenix":       {"PHX"},
	"portland":      {"PDX"},
	"san diego":     {"SAN"},
	"san francisco": {"SFO"},
	"san jose":      {"SJC"},
	"seattle":       {"SEA"},
	"singapore":     {"SIN"},
	"tokyo":         {"HND", "NRT"},
	"toronto":       {"YYZ"},
	"washington":    {"IAD", "DCA"},
	"washington dc": {"IAD", "DCA"},
}

// knownCodes lets callers pass an IATA code where a city is expected.
var knownCodes = func() map[string]bool {
	out := make(map[string]bool)
	for _, codes := range builtin {
		for _, c := range codes {
			out[c] = true
		}
	}
	return out
}()
