package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/papyrus-lab/papyrus/pkg/common"
)

// PublicationType is the entity type citation scoring applies to.
const PublicationType = "publication"

// Research integrity bands for a batch's aggregate citation quality.
const (
	IntegrityExcellent        = "excellent"
	IntegrityGood             = "good"
	IntegrityNeedsImprovement = "needs_improvement"
)

var doiPattern = regexp.MustCompile(`^10\.\d+/\S+$`)

// completeness weights per citation field. Authors carry the same weight as
// the title; one or two authors earn a reduced share, three or more the
// full share.
const (
	weightTitle   = 0.25
	weightAuthors = 0.25
	weightJournal = 0.20
	weightYear    = 0.15
	weightDOI     = 0.15

	completenessBlend = 0.6
	credibilityBlend  = 0.4
)

// AssessCitationQuality scores a publication entity's citation completeness
// and credibility. Entities of other types receive a zero report with a
// warning rather than an error.
func AssessCitationQuality(entity common.Entity) common.CitationQualityReport {
	report := common.CitationQualityReport{
		MissingFields:   []string{},
		Warnings:        []string{},
		Recommendations: []string{},
	}

	if !strings.EqualFold(entity.Type, PublicationType) {
		report.Warnings = append(report.Warnings, fmt.Sprintf("entity %q is not a publication", entity.Name))
		return report
	}

	title := propString(entity.Properties, "title")
	if title == "" {
		title = strings.TrimSpace(entity.Name)
	}
	authors := propAuthors(entity.Properties)
	journal := propString(entity.Properties, "journal")
	year := propYear(entity.Properties)
	doi := propString(entity.Properties, "doi")

	completeness := 0.0
	if title != "" {
		completeness += weightTitle
	} else {
		report.MissingFields = append(report.MissingFields, "title")
	}
	switch {
	case len(authors) >= 3:
		completeness += weightAuthors
	case len(authors) >= 1:
		completeness += weightAuthors * 0.6
		report.Recommendations = append(report.Recommendations, "list all authors, at least three are preferred for attribution")
	default:
		report.MissingFields = append(report.MissingFields, "authors")
	}
	if journal != "" {
		completeness += weightJournal
	} else {
		report.MissingFields = append(report.MissingFields, "journal")
	}
	if year != 0 {
		completeness += weightYear
	} else {
		report.MissingFields = append(report.MissingFields, "year")
	}
	if doi != "" {
		completeness += weightDOI
	} else {
		report.MissingFields = append(report.MissingFields, "doi")
	}

	credibility := 1.0
	if year != 0 {
		if year < 1900 || year > time.Now().Year()+1 {
			credibility -= 0.3
			report.Warnings = append(report.Warnings, fmt.Sprintf("implausible publication year %d", year))
		}
	} else {
		credibility -= 0.2
	}
	if doi != "" {
		if !doiPattern.MatchString(doi) {
			credibility -= 0.3
			report.Warnings = append(report.Warnings, fmt.Sprintf("DOI %q does not match the 10.<registrant>/<suffix> format", doi))
		}
	} else {
		credibility -= 0.2
	}
	if credibility < 0 {
		credibility = 0
	}

	for _, field := range report.MissingFields {
		report.Recommendations = append(report.Recommendations, "add the "+field+" field to the publication metadata")
	}

	report.CompletenessScore = completeness
	report.CredibilityScore = credibility
	report.OverallScore = (completeness*completenessBlend + credibility*credibilityBlend) * 100
	report.CitationPreview = buildCitationPreview(title, authors, journal, year, doi)

	return report
}

// AssessBatchCitationQuality aggregates citation quality over every
// publication entity in a batch. A batch without publication entities is
// reported with missing_citation set rather than treated as an error.
func AssessBatchCitationQuality(entities []common.Entity) common.BatchCitationReport {
	var reports []common.CitationQualityReport
	for _, entity := range entities {
		if strings.EqualFold(entity.Type, PublicationType) {
			reports = append(reports, AssessCitationQuality(entity))
		}
	}

	if len(reports) == 0 {
		return common.BatchCitationReport{
			OverallQuality:  0.0,
			IntegrityStatus: IntegrityNeedsImprovement,
			MissingCitation: true,
		}
	}

	total := 0.0
	for _, r := range reports {
		total += r.OverallScore / 100
	}
	quality := total / float64(len(reports))

	status := IntegrityNeedsImprovement
	switch {
	case quality >= 0.9:
		status = IntegrityExcellent
	case quality >= 0.75:
		status = IntegrityGood
	}

	return common.BatchCitationReport{
		OverallQuality:  quality,
		IntegrityStatus: status,
		MissingCitation: false,
		Reports:         reports,
	}
}

func buildCitationPreview(title string, authors []string, journal string, year int, doi string) string {
	var parts []string
	if len(authors) > 0 {
		names := strings.Join(authors, ", ")
		if year != 0 {
			names = fmt.Sprintf("%s (%d)", names, year)
		}
		parts = append(parts, names)
	} else if year != 0 {
		parts = append(parts, fmt.Sprintf("(%d)", year))
	}
	if title != "" {
		parts = append(parts, title)
	}
	if journal != "" {
		parts = append(parts, journal)
	}
	if doi != "" {
		parts = append(parts, "doi:"+doi)
	}
	return strings.Join(parts, ". ")
}

func propString(properties map[string]any, key string) string {
	if properties == nil {
		return ""
	}
	if v, ok := properties[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// propYear accepts the year as an int, a float (JSON numbers decode as
// float64), or a numeric string.
func propYear(properties map[string]any) int {
	if properties == nil {
		return 0
	}
	switch v := properties["year"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if year, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return year
		}
	}
	return 0
}

// propAuthors accepts authors as a string slice, a slice of any, or a
// comma-separated string.
func propAuthors(properties map[string]any) []string {
	if properties == nil {
		return nil
	}

	var raw []string
	switch v := properties["authors"].(type) {
	case []string:
		raw = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case string:
		raw = strings.Split(v, ",")
	default:
		return nil
	}

	var authors []string
	for _, a := range raw {
		a = strings.TrimSpace(a)
		if a != "" {
			authors = append(authors, a)
		}
	}
	return authors
}
