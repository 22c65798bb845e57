// Package streams holds the stream catalog and the membership rules that
// decide which streams a department member is subscribed or invited to.
package streams

import (
	"strings"

	"deptbot/internal/model"
)

// CoreCourseStreams are auto-added for first-year members.
var CoreCourseStreams = []model.StreamTag{
	"course/ECON 410-1",
	"course/ECON 411-1",
	"course/ECON 480-1",
}

// fieldStreams maps a directory research-field name to its stream tag name.
var fieldStreams = map[string]string{
	"applied microeconomics":     "appliedmicro",
	"development":                "development",
	"econometrics":               "metrics",
	"economic history":           "history",
	"environmental":              "environmental",
	"finance":                    "finance",
	"health":                     "health",
	"industrial organization":    "io",
	"labor":                      "labor",
	"macroeconomics":             "macro",
	"microeconomic theory":       "microtheory",
	"political economy":          "political",
	"economics of organizations": "organizational",
	"public economics":           "public",
}

// CalendarStreams routes calendar ids of the department event feed to
// the streams their events are posted in. A calendar can feed several
// streams: the applied seminar calendar serves the health, labor and
// public fields alike.
var CalendarStreams = map[int][]model.StreamTag{
	3178: {"general"},
	3561: {"general"},
	3559: {"general"},
	4355: {"field/appliedmicro"},
	4247: {"field/development"},
	3557: {"field/development"},
	4559: {"field/health", "field/labor", "field/public"},
	4389: {"field/history"},
	3556: {"field/history"},
	4483: {"field/io"},
	3555: {"field/io"},
	3558: {"field/macro"},
	3554: {"field/macro"},
	3553: {"field/metrics"},
}

// SearchTerm is one (facet, term) query against the working-paper API.
type SearchTerm struct {
	Facet string
	Term  string
}

// PaperSearchTerms lists for every field stream the search terms whose
// results are digested into it.
var PaperSearchTerms = map[model.StreamTag][]SearchTerm{
	"field/development": {
		{"programs", "Development Economics"},
		{"topics", "Development and Growth"},
		{"topics", "Development"},
	},
	"field/finance": {
		{"programs", "Asset Pricing"},
		{"programs", "Corporate Finance"},
		{"groups", "Behavioral Finance"},
		{"groups", "Household Finance"},
		{"topics", "Financial Markets"},
		{"topics", "Financial Institutions"},
		{"topics", "Corporate Finance"},
		{"topics", "Behavioral Finance"},
		{"topics", "Portfolio Selection and Asset Pricing"},
	},
	"field/health": {
		{"programs", "Economics of Health"},
		{"topics", "Health"},
	},
	"field/history": {
		{"programs", "Development of the American Economy"},
		{"topics", "Macroeconomic History"},
		{"topics", "Financial History"},
		{"topics", "Labor and Health History"},
		{"topics", "Other History"},
	},
	"field/io": {
		{"programs", "Industrial Organization"},
		{"topics", "Industrial Organization"},
		{"topics", "Market Structure and Firm Performance"},
		{"topics", "Firm Behavior"},
		{"topics", "Nonprofits"},
		{"topics", "Antitrust"},
		{"topics", "Regulatory Economics"},
		{"topics", "Industry Studies"},
	},
	"field/labor": {
		{"programs", "Labor Studies"},
		{"groups", "Personnel Economics"},
		{"topics", "Labor Economics"},
		{"topics", "Demography and Aging"},
		{"topics", "Labor Supply and Demand"},
		{"topics", "Labor Compensation"},
		{"topics", "Labor Market Structures"},
		{"topics", "Labor Relations"},
		{"topics", "Unemployment and Immigration"},
		{"topics", "Labor Discrimination"},
	},
	"field/macro": {
		{"programs", "International Finance and Macroeconomics"},
		{"programs", "Monetary Economics"},
		{"programs", "Economic Fluctuations and Growth"},
		{"topics", "Macroeconomics"},
		{"topics", "Macroeconomic Models"},
		{"topics", "Consumption and Investment"},
		{"topics", "Business Cycles"},
		{"topics", "Money and Interest Rates"},
		{"topics", "Monetary Policy"},
		{"topics", "Fiscal Policy"},
	},
	"field/metrics": {
		{"topics", "Econometrics"},
		{"topics", "Estimation Methods"},
	},
	"field/microtheory": {
		{"groups", "Market Design"},
	},
	"field/organizational": {
		{"groups", "Organizational Economics"},
	},
	"field/political": {
		{"programs", "Political Economy"},
		{"programs", "Law and Economics"},
		{"topics", "Law and Economics"},
	},
	"field/public": {
		{"programs", "Public Economics"},
		{"groups", "Economics of Crime"},
		{"topics", "Public Economics"},
		{"topics", "Taxation"},
		{"topics", "Public Goods"},
		{"topics", "National Fiscal Issues"},
		{"topics", "Subnational Fiscal Issues"},
	},
}

// FieldStream maps a directory field name to its stream tag. Directory
// entries often carry qualifiers ("Labor, especially ..."), so a known
// field matching as a prefix is accepted too.
func FieldStream(field string) (model.StreamTag, bool) {
	key := strings.ToLower(strings.TrimSpace(field))
	if tag, ok := fieldStreams[key]; ok {
		return model.StreamTag("field/" + tag), true
	}
	for name, tag := range fieldStreams {
		if strings.HasPrefix(key, name) {
			return model.StreamTag("field/" + tag), true
		}
	}
	return "", false
}
