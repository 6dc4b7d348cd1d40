package domain

// Classification of a canonical location code.
type LocationKind string

const (
	LocationBlock   LocationKind = "block"
	LocationGate    LocationKind = "gate"
	LocationSite    LocationKind = "site"
	LocationSpecial LocationKind = "special"
	LocationOther   LocationKind = "other"
)

// Immutable canonical location identifier derived from a raw yard position.
// Yard is only set for block codes whose prefix letter maps to a known yard.
type LocationCode struct {
	Code string
	Kind LocationKind
	Yard string
}

// Physical reports whether the location can take part in ground-distance lookups.
func (l LocationCode) Physical() bool {
	return l.Kind != LocationSpecial && l.Code != ""
}

// Gate and site endpoints come from sources that list each pair once for both directions.
func (l LocationCode) Symmetric() bool {
	return l.Kind == LocationGate || l.Kind == LocationSite
}
