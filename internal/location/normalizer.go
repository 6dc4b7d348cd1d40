// Package location canonicalizes free-form yard positions into typed location codes.
package location

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"yard-kpi-service/internal/domain"
)

var (
	gatePattern  = regexp.MustCompile(`^(?:GATE|PUERTA)[-_ ]?([0-9]+)$`)
	sitePattern  = regexp.MustCompile(`^(?:SITIO|SITE)[-_ ]?([A-Z0-9]+)$`)
	blockPattern = regexp.MustCompile(`^([A-Z]{1,2})0*([0-9]{1,2})$`)
)

// Options configures the normalization rules. Zero-value fields fall back to defaults.
type Options struct {
	// Prefixes are wrapper tokens stripped from the front of a raw code, tried in order.
	Prefixes []string
	// Aliases map verbose names to one canonical token.
	Aliases map[string]string
	// SpecialTokens are pseudo-locations that never take part in distance lookups.
	SpecialTokens []string
	// Yards maps a block letter group to its yard name.
	Yards map[string]string
}

func DefaultOptions() Options {
	return Options{
		Prefixes: []string{"Y-SAI-", "SAI-", "Y-"},
		Aliases: map[string]string{
			"SITIO SUR":     "SITIO-SUR",
			"SITIO_SUR":     "SITIO-SUR",
			"SOUTH SITE":    "SITIO-SUR",
			"SITE SOUTH":    "SITIO-SUR",
			"SITIO NORTE":   "SITIO-NORTE",
			"SITIO_NORTE":   "SITIO-NORTE",
			"NORTH SITE":    "SITIO-NORTE",
			"GATE IN":       "GATE-1",
			"PUERTA ACCESO": "GATE-1",
			"GATE OUT":      "GATE-2",
			"PUERTA SALIDA": "GATE-2",
		},
		SpecialTokens: []string{"GATE", "VESSEL", "RAMP", "M10", "Y-SAI-RAMP", "Y-SAI-M10", "RAIL", "CFS"},
		Yards: map[string]string{
			"C":             "costanera",
			"H":             "ohiggins",
			"T":             "tebas",
		},
	}
}

// Normalizer is immutable after construction and safe for concurrent use.
type Normalizer struct {
	prefixes []string
	aliases  map[string]string
	special  map[string]struct{}
	yards    map[string]string
}

func NewNormalizer(opts Options) *Normalizer {
	def := DefaultOptions()
	if opts.Prefixes == nil {
		opts.Prefixes = def.Prefixes
	}
	if opts.Aliases == nil {
		opts.Aliases = def.Aliases
	}
	if opts.SpecialTokens == nil {
		opts.SpecialTokens = def.SpecialTokens
	}
	if opts.Yards == nil {
		opts.Yards = def.Yards
	}

	n := &Normalizer{
		prefixes: make([]string, 0, len(opts.Prefixes)),
		aliases:  make(map[string]string, len(opts.Aliases)),
		special:  make(map[string]struct{}, len(opts.SpecialTokens)),
		yards:    make(map[string]string, len(opts.Yards)),
	}
	for _, p := range opts.Prefixes {
		if p = clean(p); p != "" {
			n.prefixes = append(n.prefixes, p)
		}
	}
	for k, v := range opts.Aliases {
		n.aliases[clean(k)] = clean(v)
	}
	for _, s := range opts.SpecialTokens {
		n.special[clean(s)] = struct{}{}
	}
	for k, v := range opts.Yards {
		n.yards[clean(k)] = v
	}
	return n
}

// clean uppercases, trims and collapses inner whitespace.
func clean(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

// Normalize never fails: unrecognized input comes back as an "other" code
// equal to the cleaned input, so lookups degrade to "not found".
func (n *Normalizer) Normalize(raw string) domain.LocationCode {
	s := clean(raw)
	if s == "" {
		return domain.LocationCode{Kind: domain.LocationOther}
	}

	if code, ok := n.match(s); ok {
		return code
	}

	for _, p := range n.prefixes {
		if rest, found := strings.CutPrefix(s, p); found && rest != "" {
			if code, ok := n.match(rest); ok {
				return code
			}
			// Decorations after the block code, e.g. row/tier suffixes.
			if code, ok := n.matchSegment(leadingSegment(rest)); ok {
				return code
			}
			break
		}
	}

	if code, ok := n.matchSegment(leadingSegment(s)); ok {
		return code
	}

	return domain.LocationCode{Code: s, Kind: domain.LocationOther}
}

func (n *Normalizer) match(s string) (domain.LocationCode, bool) {
	if _, ok := n.special[s]; ok {
		return domain.LocationCode{Code: s, Kind: domain.LocationSpecial}, true
	}
	if alias, ok := n.aliases[s]; ok {
		s = alias
	}
	if m := gatePattern.FindStringSubmatch(s); m != nil {
		num, _ := strconv.Atoi(m[1])
		return domain.LocationCode{Code: fmt.Sprintf("GATE-%d", num), Kind: domain.LocationGate}, true
	}
	if m := sitePattern.FindStringSubmatch(s); m != nil {
		return domain.LocationCode{Code: "SITIO-" + m[1], Kind: domain.LocationSite}, true
	}
	return n.matchBlock(s)
}

// matchSegment matches a decorated leading segment. Special tokens win over
// the block pattern, so M10-2 stays out of distance resolution.
func (n *Normalizer) matchSegment(seg string) (domain.LocationCode, bool) {
	if _, ok := n.special[seg]; ok {
		return domain.LocationCode{Code: seg, Kind: domain.LocationSpecial}, true
	}
	return n.matchBlock(seg)
}

func (n *Normalizer) matchBlock(s string) (domain.LocationCode, bool) {
	m := blockPattern.FindStringSubmatch(s)
	if m == nil {
		return domain.LocationCode{}, false
	}
	num, err := strconv.Atoi(m[2])
	if err != nil {
		return domain.LocationCode{}, false
	}
	return domain.LocationCode{
		Code: fmt.Sprintf("%s%d", m[1], num),
		Kind: domain.LocationBlock,
		Yard: n.yards[m[1][:1]],
	}, true
}

func leadingSegment(s string) string {
	if i := strings.IndexAny(s, "-_ /."); i >= 0 {
		return s[:i]
	}
	return s
}
