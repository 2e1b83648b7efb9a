// Package entities holds the normalized registry model shared by the parser,
// the cache and the HTTP layer.
package entities

import "time"

// RouteGroup is the closed set of administration route classes.
type RouteGroup string

const (
	RouteOral       RouteGroup = "oral"
	RouteParenteral RouteGroup = "parenteral"
	RouteTopical    RouteGroup = "topical"
	RouteInhalation RouteGroup = "inhalation"
	RouteRectal     RouteGroup = "rectal"
	RouteVaginal    RouteGroup = "vaginal"
	RouteOphthalmic RouteGroup = "ophthalmic"
	RouteAuricular  RouteGroup = "auricular"
	RouteNasal      RouteGroup = "nasal"
	RouteOther      RouteGroup = "other"
)

// Status is the registration lifecycle state derived from the validity text.
type Status string

const (
	StatusActive    Status = "active"
	StatusWithdrawn Status = "withdrawn"
	StatusSuspended Status = "suspended"
	StatusExpired   Status = "expired"
)

// Drug is one normalized registry row.
type Drug struct {
	ID                       string     `json:"id"`
	TradeName                string     `json:"tradeName"`
	CommonName               string     `json:"commonName"`
	PreviousName             *string    `json:"previousName,omitempty"`
	Strength                 string     `json:"strength"`
	PharmaceuticalForm       string     `json:"pharmaceuticalForm"`
	PreparationType          string     `json:"preparationType"`
	ATCCode                  ATCCode    `json:"atcCode"`
	AdministrationRoute      string     `json:"administrationRoute"`
	AdministrationRouteGroup RouteGroup `json:"administrationRouteGroup"`
	RegistrationNumber       string     `json:"registrationNumber"`
	RegistrationValidity     string     `json:"registrationValidity"`
	Status                   Status     `json:"status"`
	Manufacturer             string     `json:"manufacturer"`
	Packages                 []Package  `json:"packages"`
	ActiveSubstances         []string   `json:"activeSubstances"`
	SearchTerms              []string   `json:"searchTerms"`
	TherapeuticGroup         string     `json:"therapeuticGroup"`
	Indications              string     `json:"indications,omitempty"`
	LeafletURL               *string    `json:"leafletUrl,omitempty"`
	CharacteristicsURL       *string    `json:"characteristicsUrl,omitempty"`
	LastUpdated              time.Time  `json:"lastUpdated"`
	DataSource               string     `json:"dataSource"`
}
