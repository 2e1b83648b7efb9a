package registryparser

import "strings"

type indication struct {
	primary   string
	secondary string
}

// therapeuticIndications is keyed by ATC code or prefix. Lookups try the full
// code first, then progressively shorter prefixes down to the level-2 code.
var therapeuticIndications = map[string]indication{
	"A02BC": {"Gastroesophageal reflux disease", "Peptic ulcer"},
	"A10BA": {"Type 2 diabetes mellitus", ""},
	"A10":   {"Diabetes mellitus", ""},
	"B01AC": {"Prevention of thrombosis", "Secondary prevention of myocardial infarction"},
	"B01AF": {"Prevention of venous thromboembolism", "Stroke prevention in atrial fibrillation"},
	"C03":   {"Hypertension", "Oedema"},
	"C07":   {"Hypertension", "Angina pectoris"},
	"C08":   {"Hypertension", "Angina pectoris"},
	"C09":   {"Hypertension", "Heart failure"},
	"C10AA": {"Hypercholesterolaemia", "Prevention of cardiovascular events"},
	"C10":   {"Dyslipidaemia", ""},
	"H03AA": {"Hypothyroidism", ""},
	"J01":   {"Bacterial infections", ""},
	"J05":   {"Viral infections", ""},
	"M01A":  {"Pain and inflammation", "Rheumatic disorders"},
	"N02BE": {"Pain", "Fever"},
	"N02":   {"Pain", ""},
	"N03":   {"Epilepsy", ""},
	"N05":   {"Psychotic and anxiety disorders", "Sleep disorders"},
	"N06A":  {"Depression", "Anxiety disorders"},
	"R03":   {"Asthma", "Chronic obstructive pulmonary disease"},
	"R06":   {"Allergic rhinitis", "Urticaria"},
}

// LookupIndications returns "primary; secondary" for the most specific table
// entry matching the ATC code, or an empty string.
func LookupIndications(atcCode string) string {
	for n := len(atcCode); n >= 3; n-- {
		entry, ok := therapeuticIndications[atcCode[:n]]
		if !ok {
			continue
		}
		if entry.secondary == "" {
			return entry.primary
		}
		return strings.Join([]string{entry.primary, entry.secondary}, "; ")
	}
	return ""
}
