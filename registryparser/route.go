package registryparser

import (
	"strings"

	"github.com/giygas/drugregistry/registryparser/entities"
)

type routeRule struct {
	group    entities.RouteGroup
	keywords []string
}

// routeRules is tested in order; the first group with a matching keyword wins.
// Parenteral sits before topical so "podskórne" never reads as a skin route.
var routeRules = []routeRule{
	{entities.RouteOral, []string{"doustn", "podjęzyk", "dopoliczk", "oral", "sublingual", "buccal"}},
	{entities.RouteParenteral, []string{"dożyln", "domięśn", "podskórn", "pozajelit", "dostawow", "iniekc", "wstrzyk",
		"intraven", "intramusc", "subcutan", "parenteral", "injection", "infusion"}},
	{entities.RouteTopical, []string{"na skórę", "skórn", "zewnętrz", "miejscow", "topical", "cutaneous", "dermal", "transdermal"}},
	{entities.RouteInhalation, []string{"wziew", "inhal"}},
	{entities.RouteRectal, []string{"doodbytnic", "rectal"}},
	{entities.RouteVaginal, []string{"dopochwow", "vaginal"}},
	{entities.RouteOphthalmic, []string{"do oczu", "do oka", "dospojówk", "ocular", "ophthalm"}},
	{entities.RouteAuricular, []string{"do uszu", "do ucha", "auricular", "otic"}},
	{entities.RouteNasal, []string{"do nosa", "donosow", "nasal"}},
}

// ClassifyRoute maps a free-text administration route onto a RouteGroup.
func ClassifyRoute(route string) entities.RouteGroup {
	route = strings.ToLower(strings.TrimSpace(route))
	if route == "" {
		return entities.RouteOther
	}

	for _, rule := range routeRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(route, keyword) {
				return rule.group
			}
		}
	}

	return entities.RouteOther
}
