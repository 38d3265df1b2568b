package models

import "strings"

// Assembly is the congregation ("Versammlung") a user belongs to.
type Assembly string

// Known assemblies.
const (
	AssemblyBayreuthSued     Assembly = "bayreuth_sued"
	AssemblyBayreuthEnglisch Assembly = "bayreuth_englisch"
	AssemblyBayreuthRussisch Assembly = "bayreuth_russisch"
	AssemblyBayreuthWest     Assembly = "bayreuth_west"
	AssemblyBayreuthOst      Assembly = "bayreuth_ost"
)

var assemblyLabels = map[Assembly]string{
	AssemblyBayreuthSued:     "Bayreuth Süd",
	AssemblyBayreuthEnglisch: "Bayreuth Englisch",
	AssemblyBayreuthRussisch: "Bayreuth Russisch",
	AssemblyBayreuthWest:     "Bayreuth West",
	AssemblyBayreuthOst:      "Bayreuth Ost",
}

// Valid reports whether a is one of the known assemblies.
func (a Assembly) Valid() bool {
	_, ok := assemblyLabels[a]
	return ok
}

// Label returns the display label, or "" for unknown values.
func (a Assembly) Label() string {
	return assemblyLabels[a]
}

// UserFields are the fields of a user record ("Benutzerverwaltung").
type UserFields struct {
	Pioneer      Flag `json:"pionier,omitempty"`
	TeamupLink   Text `json:"teamup_link,omitempty"`
	StoreboxCode Text `json:"storebox_code,omitempty"`
	FirstName    Text `json:"vorname,omitempty"`
	LastName     Text `json:"nachname,omitempty"`
	Assembly     Text `json:"versammlung,omitempty"`
	Email        Text `json:"email,omitempty"`
	Phone        Text `json:"handynummer,omitempty"`
}

// DisplayName joins first and last name with a single space, dropping empty parts.
func (u UserFields) DisplayName() string {
	parts := make([]string, 0, 2)
	for _, p := range []Text{u.FirstName, u.LastName} {
		if s := strings.TrimSpace(string(p)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// AssemblyTag returns the assembly when it is a known value, otherwise "".
func (u UserFields) AssemblyTag() Assembly {
	a := Assembly(u.Assembly)
	if !a.Valid() {
		return ""
	}
	return a
}
