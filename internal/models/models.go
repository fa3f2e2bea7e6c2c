package models

// Role is a named slot on a card. Its conditions are evaluated with the
// candidate character as scope.
type Role struct {
	Name       string   `yaml:"name" json:"name"`
	Conditions []string `yaml:"conditions,omitempty" json:"conditions,omitempty"`
}

// EventCard is the template for a possible event.
type EventCard struct {
	Name       string   `yaml:"name" json:"name"`
	Conditions []string `yaml:"conditions,omitempty" json:"conditions,omitempty"` // scoped to the world
	Effects    []string `yaml:"effects,omitempty" json:"effects,omitempty"`       // scoped to the world, run in order
	NextCards  []string `yaml:"next,omitempty" json:"next,omitempty"`             // enqueued when the card is selected
	Roles      []Role   `yaml:"roles,omitempty" json:"roles,omitempty"`           // filled in declaration order
	Text       string   `yaml:"text,omitempty" json:"text,omitempty"`             // text/template over the Event
}

// Unconditional reports whether the card qualifies without any test.
func (c *EventCard) Unconditional() bool {
	return len(c.Conditions) == 0 && len(c.Roles) == 0
}

// CharacterDef describes a character before it joins the cast.
type CharacterDef struct {
	Name       string   `yaml:"name" json:"name"`
	Init       []string `yaml:"init,omitempty" json:"init,omitempty"` // effects run against the new character
	Attributes []string `yaml:"attributes,omitempty" json:"attributes,omitempty"`
	Inventory  []string `yaml:"inventory,omitempty" json:"inventory,omitempty"`
}

// Story is the content of one story file.
type Story struct {
	Title      string         `yaml:"title,omitempty" json:"title,omitempty"`
	Cards      []EventCard    `yaml:"cards,omitempty" json:"cards,omitempty"`
	Characters []CharacterDef `yaml:"characters,omitempty" json:"characters,omitempty"`
}

// RoleBinding records which character filled a role.
type RoleBinding struct {
	Role      string `yaml:"role" json:"role"`
	Character string `yaml:"character" json:"character"`
}

// Cause is a prior event weighted by how much it enabled the current one.
type Cause struct {
	EventID int     `yaml:"event" json:"event"`
	Weight  float64 `yaml:"weight" json:"weight"`
}

// Event is one committed simulation step. It is immutable once logged.
type Event struct {
	ID              int                `yaml:"id" json:"id"`
	CardName        string             `yaml:"card" json:"card"`
	Roles           []RoleBinding      `yaml:"roles,omitempty" json:"roles,omitempty"`
	Subject         string             `yaml:"subject,omitempty" json:"subject,omitempty"`
	Object          string             `yaml:"object,omitempty" json:"object,omitempty"`
	ValuesAffecting []string           `yaml:"values_affecting,omitempty" json:"values_affecting,omitempty"`
	ValuesModified  map[string]float64 `yaml:"values_modified,omitempty" json:"values_modified,omitempty"`
	CausingEvents   []Cause            `yaml:"causing_events,omitempty" json:"causing_events,omitempty"`
	Text            string             `yaml:"text,omitempty" json:"text,omitempty"`
}

// RoleMap returns the role snapshot as role-name -> character-name.
func (e *Event) RoleMap() map[string]string {
	m := make(map[string]string, len(e.Roles))
	for _, b := range e.Roles {
		m[b.Role] = b.Character
	}
	return m
}

// Touches reports whether the event modified path.
func (e *Event) Touches(path string) (float64, bool) {
	d, ok := e.ValuesModified[path]
	return d, ok
}
