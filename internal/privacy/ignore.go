package privacy

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/hazyhaar/domreplay/dom"
)

// IgnorePolicy lists the elements omitted from the replay entirely (not
// replaced by a placeholder): scripts, script preloads, favicons and the
// tracking/SEO meta tags that have no visual effect.
type IgnorePolicy struct {
	Tags                 []string `yaml:"tags"`
	PreloadScripts       bool     `yaml:"preload_scripts"`
	LinkRels             []string `yaml:"link_rels"`
	MetaNames            []string `yaml:"meta_names"`
	MetaNamePatterns     []string `yaml:"meta_name_patterns"`
	MetaPropertyPatterns []string `yaml:"meta_property_patterns"`
	MetaRels             []string `yaml:"meta_rels"`
	MetaHTTPEquiv        bool     `yaml:"meta_http_equiv"`
}

// DefaultIgnorePolicy returns the built-in list.
func DefaultIgnorePolicy() IgnorePolicy {
	return IgnorePolicy{
		Tags:           []string{"script"},
		PreloadScripts: true,
		LinkRels:       []string{"shortcut icon", "icon"},
		MetaNames: []string{
			"application-name", "keywords", "description", "pinterest",
			"robots", "googlebot", "bingbot",
			"author", "generator", "framework", "publisher", "progid",
			"google-site-verification", "yandex-verification", "csrf-token",
			"p:domain_verify", "verify-v1", "verification", "shopify-checkout-api-token",
		},
		MetaNamePatterns:     []string{`^msapplication-tile(image|color)$`, `^(og|twitter):`},
		MetaPropertyPatterns: []string{`^(og|twitter|fb):`, `^article:`, `^product:`},
		MetaRels:             []string{"icon", "apple-touch-icon", "shortcut icon"},
		MetaHTTPEquiv:        true,
	}
}

type ignoreMatcher struct {
	policy        IgnorePolicy
	namePatterns  []*regexp.Regexp
	propPatterns  []*regexp.Regexp
	preloadScript *regexp.Regexp
}

func compileIgnore(p IgnorePolicy) (*ignoreMatcher, error) {
	m := &ignoreMatcher{policy: p, preloadScript: regexp.MustCompile(`(?i)preload|prefetch`)}
	for _, pat := range p.MetaNamePatterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("privacy: meta name pattern %q: %w", pat, err)
		}
		m.namePatterns = append(m.namePatterns, re)
	}
	for _, pat := range p.MetaPropertyPatterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("privacy: meta property pattern %q: %w", pat, err)
		}
		m.propPatterns = append(m.propPatterns, re)
	}
	return m, nil
}

func lowerAttr(n *dom.Node, name string) string {
	return strings.ToLower(n.GetAttribute(name))
}

func (m *ignoreMatcher) ignored(n *dom.Node) bool {
	tag := n.TagName()
	if slices.Contains(m.policy.Tags, tag) {
		return true
	}
	switch tag {
	case "link":
		rel := lowerAttr(n, "rel")
		if m.policy.PreloadScripts && m.preloadScript.MatchString(rel) && lowerAttr(n, "as") == "script" {
			return true
		}
		return slices.Contains(m.policy.LinkRels, rel)
	case "meta":
		name, rel, prop := lowerAttr(n, "name"), lowerAttr(n, "rel"), lowerAttr(n, "property")
		if m.policy.MetaHTTPEquiv && n.HasAttribute("http-equiv") {
			return true
		}
		if name != "" && slices.Contains(m.policy.MetaNames, name) {
			return true
		}
		if rel != "" && slices.Contains(m.policy.MetaRels, rel) {
			return true
		}
		for _, re := range m.namePatterns {
			if re.MatchString(name) {
				return true
			}
		}
		for _, re := range m.propPatterns {
			if re.MatchString(prop) {
				return true
			}
		}
	}
	return false
}
