// Package resolver maps business roles such as "bulk oil" or "empty 5L tin"
// to concrete catalog items.
package resolver

import (
	"strings"

	"oilmill/internal/domain/catalog"
)

// Role is a stable business code for an item the transition rules need.
type Role string

const (
	RoleGroundnuts       Role = "GROUNDNUTS"
	RolePeanuts          Role = "PEANUTS"
	RoleBulkOil          Role = "BULK_OIL"
	RoleOilcake          Role = "OILCAKE"
	RoleHusk             Role = "HUSK"
	RoleLabels           Role = "LABELS"
	RoleEmpty1LBottle    Role = "EMPTY_1L_BOTTLE"
	RoleEmpty5LTin       Role = "EMPTY_5L_TIN"
	RoleEmpty15LTin      Role = "EMPTY_15L_TIN"
	RoleFinished1LBottle Role = "FINISHED_1L_BOTTLE"
	RoleFinished5LTin    Role = "FINISHED_5L_TIN"
	RoleFinished15LTin   Role = "FINISHED_15L_TIN"
)

// Candidate is one name pattern tried for a role.
type Candidate struct {
	Text  string
	Exact bool // case-sensitive full name, otherwise case-insensitive substring
}

// matches reports whether name matches c. A substring match must not be
// preceded by a digit or a point, so "5l tin" does not match "15L Tin".
func (c Candidate) matches(name string) bool {
	if c.Exact {
		return name == c.Text
	}
	hay, needle := strings.ToLower(name), strings.ToLower(c.Text)
	for from := 0; ; {
		i := strings.Index(hay[from:], needle)
		if i < 0 {
			return false
		}
		at := from + i
		if at == 0 || !isNumeric(hay[at-1]) {
			return true
		}
		from = at + 1
	}
}

func isNumeric(b byte) bool {
	return b == '.' || (b >= '0' && b <= '9')
}

func (c Candidate) String() string {
	if c.Exact {
		return "=" + c.Text
	}
	return c.Text
}

// Definition is the name-matching fallback of a role.
type Definition struct {
	Role       Role
	Types      []catalog.ItemType
	Candidates []Candidate
	Aliases    []string
}

func contains(texts ...string) []Candidate {
	out := make([]Candidate, len(texts))
	for i, t := range texts {
		out[i] = Candidate{Text: t}
	}
	return out
}

func exactThen(exact string, texts ...string) []Candidate {
	return append([]Candidate{{Text: exact, Exact: true}}, contains(texts...)...)
}

var definitions = []Definition{
	{RoleGroundnuts, []catalog.ItemType{catalog.TypeRawMaterial}, contains("groundnut"), []string{"groundnuts", "groundnut"}},
	{RolePeanuts, []catalog.ItemType{catalog.TypeIntermediate}, contains("peanut"), []string{"peanuts", "peanut"}},
	{RoleBulkOil, []catalog.ItemType{catalog.TypeIntermediate}, contains("bulk oil", "oil"), []string{"bulk oil", "oil"}},
	{RoleOilcake, []catalog.ItemType{catalog.TypeByproduct}, contains("oilcake"), []string{"oilcake", "oil cake"}},
	{RoleHusk, []catalog.ItemType{catalog.TypeByproduct}, contains("husk"), []string{"husk"}},
	{RoleLabels, []catalog.ItemType{catalog.TypePackaging}, exactThen("Labels", "label"), []string{"labels", "label"}},
	{RoleEmpty1LBottle, []catalog.ItemType{catalog.TypePackaging}, contains("1l bottle", "empty 1l"), []string{"empty 1l bottle", "empty 1l"}},
	{RoleEmpty5LTin, []catalog.ItemType{catalog.TypePackaging}, contains("5l tin", "empty 5l"), []string{"empty 5l tin", "empty 5l"}},
	{RoleEmpty15LTin, []catalog.ItemType{catalog.TypePackaging}, contains("15l tin", "empty 15l"), []string{"empty 15l tin", "empty 15l"}},
	{RoleFinished1LBottle, []catalog.ItemType{catalog.TypeFinishedGood}, contains("1l bottle oil", "finished 1l"), []string{"1l bottle oil", "finished 1l"}},
	{RoleFinished5LTin, []catalog.ItemType{catalog.TypeFinishedGood}, exactThen("5L Tin Oil", "5l tin oil", "finished 5l"), []string{"5l tin oil", "finished 5l"}},
	{RoleFinished15LTin, []catalog.ItemType{catalog.TypeFinishedGood}, exactThen("15L Tin Oil", "15l tin oil", "finished 15l"), []string{"15l tin oil", "finished 15l"}},
}

var byRole = func() map[Role]Definition {
	m := make(map[Role]Definition, len(definitions))
	for _, d := range definitions {
		m[d.Role] = d
	}
	return m
}()

var byAlias = func() map[string]Role {
	m := make(map[string]Role)
	for _, d := range definitions {
		m[strings.ToLower(string(d.Role))] = d.Role
		for _, a := range d.Aliases {
			m[a] = d.Role
		}
	}
	return m
}()

// Roles returns every known role in declaration order.
func Roles() []Role {
	out := make([]Role, len(definitions))
	for i, d := range definitions {
		out[i] = d.Role
	}
	return out
}

// Lookup returns the definition of a role.
func Lookup(role Role) (Definition, bool) {
	d, ok := byRole[role]
	return d, ok
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := byRole[r]
	return ok
}

// RoleForHint maps a free-text hint ("Bulk Oil", "empty 5l tin") to a role.
func RoleForHint(hint string) (Role, bool) {
	r, ok := byAlias[strings.ToLower(strings.Join(strings.Fields(hint), " "))]
	return r, ok
}
