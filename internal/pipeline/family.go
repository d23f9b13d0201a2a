package pipeline

import (
	"strings"

	"github.com/sqlchat/sqlchat/internal/present"
)

var familyKeywords = []struct {
	family   string
	keywords []string
}{
	{family: present.FamilyHistogram, keywords: []string{"distribution", "histogram", "frequency"}},
	{family: present.FamilyLine, keywords: []string{"trend", "over time", "per month", "monthly", "per year", "yearly", "daily", "timeline"}},
	{family: present.FamilyPie, keywords: []string{"share", "percentage", "proportion", "breakdown", "pie"}},
	{family: present.FamilyScatter, keywords: []string{"versus", " vs ", "correlation", "relationship", "scatter"}},
}

// SuggestFamily picks a chart family from wording in the question. Bar is the
// default.
func SuggestFamily(question string) string {
	lower := " " + strings.ToLower(question) + " "
	for _, candidate := range familyKeywords {
		for _, keyword := range candidate.keywords {
			if strings.Contains(lower, keyword) {
				return candidate.family
			}
		}
	}
	return present.FamilyBar
}
