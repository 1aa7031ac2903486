package render

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	descriptionPolicyOnce sync.Once
	descriptionPolicy     *bluemonday.Policy
)

// sanitizeDescription strips unsafe markup from schema descriptions before
// they are marked safe in templates. Descriptions often carry inline code
// and links authored by API teams, so a small allowlist stays enabled.
func sanitizeDescription(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	policy := descriptionSanitizer()
	return strings.TrimSpace(policy.Sanitize(trimmed))
}

func descriptionSanitizer() *bluemonday.Policy {
	descriptionPolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements("a", "code", "em", "strong", "br", "p", "ul", "ol", "li")
		policy.AllowAttrs("href").OnElements("a")
		policy.AllowURLSchemes("http", "https", "mailto")
		policy.RequireNoFollowOnLinks(true)
		descriptionPolicy = policy
	})
	return descriptionPolicy
}
