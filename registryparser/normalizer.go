package registryparser

import (
	"strings"
	"time"

	"github.com/giygas/drugregistry/registryparser/entities"
	"github.com/google/uuid"
)

// drugIDNamespace seeds the UUIDv5 ids of rows without an identifier.
var drugIDNamespace = uuid.MustParse("6f1c8a2e-3d4b-5c6d-9e8f-0a1b2c3d4e5f")

// Normalizer turns raw feed rows into Drug entities.
type Normalizer struct {
	dataSource string
	now        func() time.Time
}

// NewNormalizer creates a normalizer tagging entities with dataSource. A nil
// clock defaults to time.Now.
func NewNormalizer(dataSource string, now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{dataSource: dataSource, now: now}
}

// Normalize builds the Drug for one row. It reports false when the row has no
// trade name and must be dropped.
func (n *Normalizer) Normalize(row entities.RawDrugRow) (entities.Drug, bool) {
	tradeName := strings.TrimSpace(row.TradeName)
	if tradeName == "" {
		return entities.Drug{}, false
	}

	now := n.now()
	atc := ClassifyATC(row.ATCCode, row.ATCDescription)
	substances := SplitSubstances(row.ActiveSubstance)
	manufacturer := strings.TrimSpace(row.Manufacturer)
	form := strings.TrimSpace(row.PharmaceuticalForm)
	commonName := strings.TrimSpace(row.CommonName)

	drug := entities.Drug{
		ID:                       drugID(row, tradeName),
		TradeName:                tradeName,
		CommonName:               commonName,
		PreviousName:             optionalString(row.PreviousName),
		Strength:                 strings.TrimSpace(row.Strength),
		PharmaceuticalForm:       form,
		PreparationType:          strings.TrimSpace(row.PreparationType),
		ATCCode:                  atc,
		AdministrationRoute:      strings.TrimSpace(row.Route),
		AdministrationRouteGroup: ClassifyRoute(row.Route),
		RegistrationNumber:       strings.TrimSpace(row.RegistrationNumber),
		RegistrationValidity:     strings.TrimSpace(row.Validity),
		Status:                   ClassifyStatus(row.Validity, now),
		Manufacturer:             manufacturer,
		Packages:                 ParsePackages(row.Packages),
		ActiveSubstances:         substances,
		SearchTerms:              BuildSearchTerms(tradeName, commonName, substances, atc.Code, manufacturer, form),
		TherapeuticGroup:         atc.Level2,
		Indications:              LookupIndications(atc.Code),
		LeafletURL:               SanitizeLink(row.Leaflet),
		CharacteristicsURL:       SanitizeLink(row.Characteristics),
		LastUpdated:              now,
		DataSource:               n.dataSource,
	}

	if drug.Packages == nil {
		drug.Packages = []entities.Package{}
	}

	return drug, true
}

func drugID(row entities.RawDrugRow, tradeName string) string {
	if id := strings.TrimSpace(row.Identifier); id != "" {
		return id
	}

	key := strings.Join([]string{
		strings.ToLower(tradeName),
		strings.ToLower(strings.TrimSpace(row.Strength)),
		strings.ToLower(strings.TrimSpace(row.PharmaceuticalForm)),
		strings.TrimSpace(row.RegistrationNumber),
	}, "|")
	return uuid.NewSHA1(drugIDNamespace, []byte(key)).String()
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
