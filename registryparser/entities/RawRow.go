package entities

// RawDrugRow is one drug feed row as decoded from the header-driven CSV,
// before any normalization. Tags are the canonical header labels.
type RawDrugRow struct {
	Identifier         string `csv:"Identifier" json:"identifier"`
	TradeName          string `csv:"Trade name" json:"tradeName"`
	CommonName         string `csv:"Common name" json:"commonName"`
	PreviousName       string `csv:"Previous name" json:"previousName"`
	Strength           string `csv:"Strength" json:"strength"`
	PharmaceuticalForm string `csv:"Pharmaceutical form" json:"pharmaceuticalForm"`
	PreparationType    string `csv:"Preparation type" json:"preparationType"`
	Route              string `csv:"Route of administration" json:"route"`
	ATCCode            string `csv:"ATC code" json:"atcCode"`
	ATCDescription     string `csv:"ATC description" json:"atcDescription"`
	RegistrationNumber string `csv:"Registration number" json:"registrationNumber"`
	Validity           string `csv:"Validity" json:"validity"`
	Manufacturer       string `csv:"Marketing authorisation holder" json:"manufacturer"`
	ActiveSubstance    string `csv:"Active substance" json:"activeSubstance"`
	Packages           string `csv:"Package" json:"packages"`
	Leaflet            string `csv:"Leaflet" json:"leaflet"`
	Characteristics    string `csv:"Characteristics" json:"characteristics"`
}

// RawClassificationRow is one row of the classification feed.
type RawClassificationRow struct {
	Code       string `csv:"Code" json:"code"`
	Name       string `csv:"Name" json:"name"`
	Category   string `csv:"Category" json:"category"`
	ParentCode string `csv:"Parent code" json:"parentCode"`
}
