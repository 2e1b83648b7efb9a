// Package validation provides data quality reporting and input validation for
// the drug registry service.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/giygas/drugregistry/interfaces"
	"github.com/giygas/drugregistry/registryparser/entities"
)

const (
	maxInputLength = 100
	maxPage        = 100000
)

// Pre-compiled regex patterns, compiled once at package initialization
var (
	// Input validation: letters (Polish diacritics included), digits and safe punctuation
	inputRegex = regexp.MustCompile(`^[\p{L}\p{N}\s\-\.\+',/%()]+$`)

	datasetKeyRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)

	// strings.Contains is faster than regex for these simple substring checks
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"eval(", "expression(", "@import",
		// SQL injection patterns
		"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
		"--", "/*", "*/",
		// Command injection patterns
		"; ", "| ", "& ", "`", "$(", "${",
		// Path traversal patterns
		"../", "..\\", "%2e%2e", "file://",
	}
)

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct{}

// NewDataValidator creates a new data validator
func NewDataValidator() interfaces.DataValidator {
	return &DataValidatorImpl{}
}

// ReportDataQuality generates a data quality report for a drug payload
func (v *DataValidatorImpl) ReportDataQuality(drugs []entities.Drug) *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{
		TotalDrugs:   len(drugs),
		DuplicateIDs: []string{},
	}

	seen := make(map[string]int, len(drugs))
	for _, d := range drugs {
		seen[d.ID]++
		if seen[d.ID] == 2 {
			report.DuplicateIDs = append(report.DuplicateIDs, d.ID)
		}

		if len(d.Packages) == 0 {
			report.DrugsWithoutPackages++
		}
		if d.ATCCode.Code == "" {
			report.DrugsWithoutATC++
		}
		if d.AdministrationRouteGroup == entities.RouteOther {
			report.DrugsWithUnknownRoute++
		}
		for _, p := range d.Packages {
			if strings.TrimSpace(p.EAN) == "" {
				report.PackagesWithoutEAN++
			}
		}
	}

	return report
}

// ValidateInput validates a free-text search query
func (v *DataValidatorImpl) ValidateInput(input string) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return fmt.Errorf("input cannot be empty")
	}

	if utf8.RuneCountInString(input) < 2 {
		return fmt.Errorf("input too short (min 2 characters)")
	}

	if utf8.RuneCountInString(input) > maxInputLength {
		return fmt.Errorf("input too long (max %d characters)", maxInputLength)
	}

	lower := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("input contains dangerous pattern")
		}
	}

	if !inputRegex.MatchString(input) {
		return fmt.Errorf("input contains invalid characters")
	}

	return nil
}

// ValidateDatasetKey validates a dataset key from a URL
func (v *DataValidatorImpl) ValidateDatasetKey(key string) error {
	if !datasetKeyRegex.MatchString(key) {
		return fmt.Errorf("invalid dataset key: %q", key)
	}
	return nil
}

// ValidatePage validates a 1-based page number
func (v *DataValidatorImpl) ValidatePage(input string) (int, error) {
	if input == "" {
		return 1, nil
	}

	page, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("page must be a number: %w", err)
	}

	if page < 1 || page > maxPage {
		return 0, fmt.Errorf("page must be between 1 and %d", maxPage)
	}

	return page, nil
}
