package identity

// AccountAlias maps an external platform handle directly to a local
// username. Aliases represent the site owners' own external accounts:
// content posted under these handles resolves straight to the user,
// with no persona involved.
//
// PrefixedKeywords marks a legacy account whose icon captions carry a
// category token before the real keyword ("f.1 mountains" for the
// keyword "mountains"); the resolver applies a suffix-matching
// fallback for those accounts only.
type AccountAlias struct {
	Handle           string `koanf:"handle" json:"handle"`
	Username         string `koanf:"username" json:"username"`
	PrefixedKeywords bool   `koanf:"prefixed_keywords" json:"prefixed_keywords"`
}

// DefaultAliases is the built-in alias table covering the historical
// accounts the archive was seeded from. Deployments extend it through
// the [[aliases]] config section rather than editing resolution code.
func DefaultAliases() []AccountAlias {
	return []AccountAlias{
		{Handle: "marrinikari", Username: "Marri"},
		{Handle: "peterxy", Username: "Pedro"},
		{Handle: "peterverse", Username: "Pedro"},
		{Handle: "wild_pegasus_appeared", Username: "Kappa", PrefixedKeywords: true},
	}
}

// AliasTable indexes account aliases by external handle
type AliasTable map[string]AccountAlias

// NewAliasTable builds a lookup table from an alias list. Later
// entries win on duplicate handles, so config entries override the
// built-in defaults.
func NewAliasTable(aliases []AccountAlias) AliasTable {
	t := make(AliasTable, len(aliases))
	for _, a := range aliases {
		t[a.Handle] = a
	}
	return t
}

// Lookup returns the alias for an external handle, if one is known
func (t AliasTable) Lookup(handle string) (AccountAlias, bool) {
	a, ok := t[handle]
	return a, ok
}
