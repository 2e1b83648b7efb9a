package registryparser

import (
	"strings"

	"github.com/giygas/drugregistry/registryparser/entities"
)

// anatomicalGroups maps the first ATC character to its anatomical main group.
var anatomicalGroups = map[string]string{
	"A": "Alimentary tract and metabolism",
	"B": "Blood and blood forming organs",
	"C": "Cardiovascular system",
	"D": "Dermatologicals",
	"G": "Genito-urinary system and sex hormones",
	"H": "Systemic hormonal preparations, excluding sex hormones and insulins",
	"J": "Antiinfectives for systemic use",
	"L": "Antineoplastic and immunomodulating agents",
	"M": "Musculo-skeletal system",
	"N": "Nervous system",
	"P": "Antiparasitic products, insecticides and repellents",
	"R": "Respiratory system",
	"S": "Sensory organs",
	"V": "Various",
}

// therapeuticSubgroups maps three-character ATC prefixes to their therapeutic
// subgroup.
var therapeuticSubgroups = map[string]string{
	"A01": "Stomatological preparations",
	"A02": "Drugs for acid related disorders",
	"A03": "Drugs for functional gastrointestinal disorders",
	"A04": "Antiemetics and antinauseants",
	"A05": "Bile and liver therapy",
	"A06": "Drugs for constipation",
	"A07": "Antidiarrheals, intestinal antiinflammatory/antiinfective agents",
	"A08": "Antiobesity preparations, excluding diet products",
	"A09": "Digestives, including enzymes",
	"A10": "Drugs used in diabetes",
	"A11": "Vitamins",
	"A12": "Mineral supplements",
	"B01": "Antithrombotic agents",
	"B02": "Antihemorrhagics",
	"B03": "Antianemic preparations",
	"B05": "Blood substitutes and perfusion solutions",
	"C01": "Cardiac therapy",
	"C02": "Antihypertensives",
	"C03": "Diuretics",
	"C04": "Peripheral vasodilators",
	"C05": "Vasoprotectives",
	"C07": "Beta blocking agents",
	"C08": "Calcium channel blockers",
	"C09": "Agents acting on the renin-angiotensin system",
	"C10": "Lipid modifying agents",
	"D01": "Antifungals for dermatological use",
	"D02": "Emollients and protectives",
	"D06": "Antibiotics and chemotherapeutics for dermatological use",
	"D07": "Corticosteroids, dermatological preparations",
	"D08": "Antiseptics and disinfectants",
	"D10": "Anti-acne preparations",
	"G01": "Gynecological antiinfectives and antiseptics",
	"G02": "Other gynecologicals",
	"G03": "Sex hormones and modulators of the genital system",
	"G04": "Urologicals",
	"H01": "Pituitary and hypothalamic hormones and analogues",
	"H02": "Corticosteroids for systemic use",
	"H03": "Thyroid therapy",
	"J01": "Antibacterials for systemic use",
	"J02": "Antimycotics for systemic use",
	"J04": "Antimycobacterials",
	"J05": "Antivirals for systemic use",
	"J06": "Immune sera and immunoglobulins",
	"J07": "Vaccines",
	"L01": "Antineoplastic agents",
	"L02": "Endocrine therapy",
	"L03": "Immunostimulants",
	"L04": "Immunosuppressants",
	"M01": "Antiinflammatory and antirheumatic products",
	"M02": "Topical products for joint and muscular pain",
	"M03": "Muscle relaxants",
	"M04": "Antigout preparations",
	"M05": "Drugs for treatment of bone diseases",
	"N01": "Anesthetics",
	"N02": "Analgesics",
	"N03": "Antiepileptics",
	"N04": "Anti-parkinson drugs",
	"N05": "Psycholeptics",
	"N06": "Psychoanaleptics",
	"N07": "Other nervous system drugs",
	"P01": "Antiprotozoals",
	"P02": "Anthelmintics",
	"R01": "Nasal preparations",
	"R02": "Throat preparations",
	"R03": "Drugs for obstructive airway diseases",
	"R05": "Cough and cold preparations",
	"R06": "Antihistamines for systemic use",
	"S01": "Ophthalmologicals",
	"S02": "Otologicals",
	"V03": "All other therapeutic products",
	"V06": "General nutrients",
	"V08": "Contrast media",
}

// ClassifyATC decomposes an ATC code. Empty input yields an all-empty struct
// carrying only the description.
func ClassifyATC(code, description string) entities.ATCCode {
	code = strings.ToUpper(strings.Join(strings.Fields(code), ""))
	atc := entities.ATCCode{Code: code, Description: strings.TrimSpace(description)}
	if code == "" {
		return atc
	}

	atc.Level1 = anatomicalGroups[code[:1]]
	if len(code) >= 3 {
		atc.Level2 = therapeuticSubgroups[code[:3]]
	}
	if len(code) >= 4 {
		atc.Level3 = code[:4]
	}
	if len(code) >= 5 {
		atc.Level4 = code[:5]
	}
	if len(code) >= 7 {
		atc.Level5 = code
	}

	return atc
}
