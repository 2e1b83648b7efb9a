package registryparser

import (
	"regexp"
	"strings"
	"time"

	"github.com/giygas/drugregistry/registryparser/entities"
)

type statusRule struct {
	status   entities.Status
	keywords []string
}

// statusRules checks negative lifecycle states first so that "nieaktywne" or
// "inactive" never match the active keywords.
var statusRules = []statusRule{
	{entities.StatusWithdrawn, []string{"wycofan", "skreślon", "withdrawn", "revoked"}},
	{entities.StatusSuspended, []string{"zawieszon", "wstrzyman", "suspended"}},
	{entities.StatusExpired, []string{"wygas", "nieaktywn", "inactive", "expired"}},
	{entities.StatusActive, []string{"bezterminow", "aktywn", "active", "unlimited"}},
}

var isoDateRegex = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// ClassifyStatus derives the registration status from the raw validity text,
// falling back to comparing an embedded ISO date against now.
func ClassifyStatus(validity string, now time.Time) entities.Status {
	text := strings.ToLower(strings.TrimSpace(validity))
	if text == "" {
		return entities.StatusActive
	}

	for _, rule := range statusRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(text, keyword) {
				return rule.status
			}
		}
	}

	if m := isoDateRegex.FindString(text); m != "" {
		if date, err := time.Parse(time.DateOnly, m); err == nil {
			// The registration is valid through the whole of its end date.
			if now.Before(date.AddDate(0, 0, 1)) {
				return entities.StatusActive
			}
			return entities.StatusExpired
		}
	}

	return entities.StatusActive
}
