package registryparser

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/giygas/drugregistry/registryparser/entities"
)

const (
	// PackageFieldSeparator splits the sub-fields of one package record.
	PackageFieldSeparator = "¦"
	// PackageRecordSeparator splits package records inside the package column.
	PackageRecordSeparator = "\n"

	sizeFallbackLength = 50

	// flatCoPayment is the statutory lump-sum patient payment.
	flatCoPayment = 3.20
)

// sizeRule is one entry of the size cascade. Rules are evaluated in slice
// order and the first match wins.
type sizeRule struct {
	name    string
	pattern *regexp.Regexp
	format  func(m []string) string
}

func unitFormat(unit string) func(m []string) string {
	return func(m []string) string {
		return m[1] + " " + unit
	}
}

func matchedUnitFormat(m []string) string {
	return m[1] + " " + strings.ToLower(m[2])
}

var sizeRules = []sizeRule{
	{"tablets", regexp.MustCompile(`(?i)(\d+)\s*tabl\.?`), unitFormat("tabl.")},
	{"capsules", regexp.MustCompile(`(?i)(\d+)\s*kaps\.?`), unitFormat("kaps.")},
	{"ampoules", regexp.MustCompile(`(?i)(\d+)\s*amp\.?`), unitFormat("amp.")},
	{"vials", regexp.MustCompile(`(?i)(\d+)\s*fiol\.?`), unitFormat("fiol.")},
	{"sachets", regexp.MustCompile(`(?i)(\d+)\s*sasz\.?`), unitFormat("sasz.")},
	{"compound", regexp.MustCompile(`(?i)(\d+)\s*[x×]\s*(\d+(?:[.,]\d+)?)\s*(ml|mg|g|szt\.?|dawek)`), func(m []string) string {
		return m[1] + " x " + m[2] + " " + strings.ToLower(m[3])
	}},
	{"volume", regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(ml)\b`), matchedUnitFormat},
	{"mass", regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(kg|mg|g)\b`), matchedUnitFormat},
	{"dose", regexp.MustCompile(`(?i)(\d+)\s*(dawek|dawk[a-z]*|daw\.)`), matchedUnitFormat},
	{"pieces", regexp.MustCompile(`(?i)(\d+)\s*szt\.?`), unitFormat("szt.")},
	{"plasters", regexp.MustCompile(`(?i)(\d+)\s*plast[a-z]*\.?`), unitFormat("plast.")},
	{"suppositories", regexp.MustCompile(`(?i)(\d+)\s*czop[a-z]*\.?`), unitFormat("czop.")},
}

var bareNumberRegex = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// ExtractSize returns a best-effort quantity+unit string for a package
// description.
func ExtractSize(description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return ""
	}

	for _, rule := range sizeRules {
		if m := rule.pattern.FindStringSubmatch(description); m != nil {
			return rule.format(m)
		}
	}

	if n := bareNumberRegex.FindString(description); n != "" {
		return n
	}

	return truncateRunes(description, sizeFallbackLength)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// ParsePrescriptionType maps a raw prescription code onto the known categories,
// keeping unknown codes verbatim.
func ParsePrescriptionType(raw string) entities.PrescriptionType {
	code := strings.TrimSpace(raw)
	switch strings.ToLower(code) {
	case "rp":
		return entities.PrescriptionRp
	case "rpz":
		return entities.PrescriptionRpz
	case "rpw":
		return entities.PrescriptionRpw
	case "otc":
		return entities.PrescriptionOTC
	case "lz":
		return entities.PrescriptionLz
	}
	return entities.PrescriptionType(code)
}

// refundation is the outcome of the refundation cascade.
type refundation struct {
	status           entities.RefundationStatus
	percentage       *float64
	price            *float64
	refundationPrice *float64
	patientPayment   *float64
}

type refundationRule struct {
	name  string
	match func(text string, prescription entities.PrescriptionType) (refundation, bool)
}

var (
	freeRegex       = regexp.MustCompile(`100\s*%|bezpłatn|\bfree\b`)
	percentageRegex = regexp.MustCompile(`(\d{1,3}(?:[.,]\d+)?)\s*%`)
	currencyRegex   = regexp.MustCompile(`(\d+(?:[.,]\d{1,2})?)\s*(?:zł|pln)`)
	coPaymentRegex  = regexp.MustCompile(`ryczałt|ryczalt|\bflat\b`)
)

// refundationRules is evaluated in order over the lower-cased code and
// description. Only the fields of the first matching rule are populated.
var refundationRules = []refundationRule{
	{"free", func(text string, _ entities.PrescriptionType) (refundation, bool) {
		if !freeRegex.MatchString(text) {
			return refundation{}, false
		}
		return refundation{status: entities.RefundationRefunded, percentage: float64Ptr(100)}, true
	}},
	{"percentage", func(text string, _ entities.PrescriptionType) (refundation, bool) {
		m := percentageRegex.FindStringSubmatch(text)
		if m == nil {
			return refundation{}, false
		}
		pct, ok := parseDecimal(m[1])
		if !ok {
			return refundation{}, false
		}
		status := entities.RefundationPartial
		if pct >= 100 {
			status = entities.RefundationRefunded
		}
		return refundation{status: status, percentage: float64Ptr(pct)}, true
	}},
	{"currency", func(text string, _ entities.PrescriptionType) (refundation, bool) {
		matches := currencyRegex.FindAllStringSubmatch(text, 2)
		if len(matches) == 0 {
			return refundation{}, false
		}
		price, ok := parseDecimal(matches[0][1])
		if !ok {
			return refundation{}, false
		}
		r := refundation{status: entities.RefundationPartial, price: float64Ptr(price)}
		if len(matches) > 1 {
			if limit, ok := parseDecimal(matches[1][1]); ok {
				r.refundationPrice = float64Ptr(limit)
			}
		}
		return r, true
	}},
	{"co-payment", func(text string, _ entities.PrescriptionType) (refundation, bool) {
		if !coPaymentRegex.MatchString(text) {
			return refundation{}, false
		}
		return refundation{status: entities.RefundationPartial, patientPayment: float64Ptr(flatCoPayment)}, true
	}},
	{"prescription", func(_ string, prescription entities.PrescriptionType) (refundation, bool) {
		if prescription != entities.PrescriptionRpw && prescription != entities.PrescriptionRpz {
			return refundation{}, false
		}
		return refundation{status: entities.RefundationPartial}, true
	}},
}

func resolveRefundation(code, description string, prescription entities.PrescriptionType) refundation {
	text := strings.ToLower(strings.TrimSpace(code + " " + description))
	for _, rule := range refundationRules {
		if r, ok := rule.match(text, prescription); ok {
			return r
		}
	}
	return refundation{status: entities.RefundationNone}
}

// ParsePackages splits the package column into Package entities. Records with
// fewer than two sub-fields are skipped.
func ParsePackages(blob string) []entities.Package {
	var packages []entities.Package

	for record := range strings.SplitSeq(blob, PackageRecordSeparator) {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}

		fields := strings.Split(record, PackageFieldSeparator)
		if len(fields) < 2 {
			continue
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		pkg := entities.Package{
			EAN:              fields[0],
			PrescriptionType: ParsePrescriptionType(fields[1]),
		}
		if len(fields) > 2 {
			pkg.RegistrationNumber = fields[2]
		}
		if len(fields) > 3 {
			pkg.Description = strings.TrimSpace(strings.Join(fields[3:], " "))
		}

		pkg.Size = ExtractSize(pkg.Description)

		r := resolveRefundation(fields[1], pkg.Description, pkg.PrescriptionType)
		pkg.RefundationStatus = r.status
		pkg.Percentage = r.percentage
		pkg.Price = r.price
		pkg.RefundationPrice = r.refundationPrice
		pkg.PatientPayment = r.patientPayment

		packages = append(packages, pkg)
	}

	return packages
}

// parseDecimal parses numbers written with either a comma or a dot as decimal
// separator.
func parseDecimal(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func float64Ptr(v float64) *float64 {
	return &v
}
