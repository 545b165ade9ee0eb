package domain

// Countries maps ISO country codes to display names for the feed API.
var Countries = map[string]string{
	"US": "United States",
	"GB": "United Kingdom",
	"CA": "Canada",
	"AU": "Australia",
	"DE": "Germany",
	"FR": "France",
	"IT": "Italy",
	"ES": "Spain",
	"NL": "Netherlands",
	"SE": "Sweden",
	"NO": "Norway",
	"PL": "Poland",
	"CH": "Switzerland",
	"IE": "Ireland",
	"IN": "India",
	"NP": "Nepal",
	"PK": "Pakistan",
	"BD": "Bangladesh",
	"CN": "China",
	"JP": "Japan",
	"KR": "South Korea",
	"TW": "Taiwan",
	"SG": "Singapore",
	"TH": "Thailand",
	"ID": "Indonesia",
	"PH": "Philippines",
	"VN": "Vietnam",
	"AE": "United Arab Emirates",
	"SA": "Saudi Arabia",
	"IL": "Israel",
	"TR": "Turkey",
	"MX": "Mexico",
	"BR": "Brazil",
	"AR": "Argentina",
	"CO": "Colombia",
	"CL": "Chile",
	"ZA": "South Africa",
	"NG": "Nigeria",
	"KE": "Kenya",
	"EG": "Egypt",
	"NZ": "New Zealand",
}

// Categories lists every category the pipeline ingests and serves.
var Categories = []string{
	"general",
	"world",
	"politics",
	"economy",
	"business",
	"finance",
	"technology",
	"science",
	"space",
	"cybersecurity",
	"startups",
	"crypto",
	"gaming",
	"ai",
	"health",
	"education",
	"environment",
	"sports",
	"entertainment",
	"energy",
	"defense",
	"media",
	"weather",
}

// ValidCategory reports whether c is a known category tag.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if known == c {
			return true
		}
	}
	return false
}
