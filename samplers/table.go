// Package samplers translates ComfyUI sampler identifiers to the names the
// Automatic1111 web UI uses, which is what most image hosts key on.
package samplers

import (
	"fmt"
)

// Entry maps one external sampler name to the ComfyUI identifiers that
// denote the same sampler.
type Entry struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
}

// Table is a read-only, ordered sampler name translation table.  Every alias
// belongs to exactly one entry, so reverse lookups are unambiguous.
type Table struct {
	entries []Entry
	byAlias map[string]string
}

// NewTable validates entries and builds a table.  An alias claimed by two
// entries, or an entry without a name, is an error.
func NewTable(entries []Entry) (*Table, error) {
	t := &Table{
		entries: make([]Entry, 0, len(entries)),
		byAlias: make(map[string]string),
	}
	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("sampler entry with aliases %v has no name", e.Aliases)
		}
		for _, a := range e.Aliases {
			if owner, dup := t.byAlias[a]; dup {
				return nil, fmt.Errorf("sampler alias %q claimed by both %q and %q", a, owner, e.Name)
			}
			t.byAlias[a] = e.Name
		}
		aliases := make([]string, len(e.Aliases))
		copy(aliases, e.Aliases)
		t.entries = append(t.entries, Entry{Name: e.Name, Aliases: aliases})
	}
	return t, nil
}

func MustNewTable(entries []Entry) *Table {
	t, err := NewTable(entries)
	if err != nil {
		panic(err)
	}
	return t
}

// ReverseLookup returns the name of the entry listing alias.
func (t *Table) ReverseLookup(alias string) (string, bool) {
	name, ok := t.byAlias[alias]
	return name, ok
}

// Remap translates a ComfyUI sampler name.  With the karras scheduler the
// combined "<sampler>_karras" identifier is tried first.  Names the table
// does not know are returned unchanged.
func (t *Table) Remap(samplerName, scheduler string) string {
	if scheduler == "karras" {
		if name, ok := t.ReverseLookup(samplerName + "_karras"); ok {
			return name
		}
	}
	if name, ok := t.ReverseLookup(samplerName); ok {
		return name
	}
	return samplerName
}

// Entries returns a copy of the table in order.
func (t *Table) Entries() []Entry {
	retv := make([]Entry, len(t.entries))
	for i, e := range t.entries {
		aliases := make([]string, len(e.Aliases))
		copy(aliases, e.Aliases)
		retv[i] = Entry{Name: e.Name, Aliases: aliases}
	}
	return retv
}

func (t *Table) Len() int {
	return len(t.entries)
}

// Default is the built in Automatic1111 <-> ComfyUI table.
var Default = MustNewTable([]Entry{
	{Name: "Euler a", Aliases: []string{"euler_ancestral"}},
	{Name: "Euler", Aliases: []string{"euler"}},
	{Name: "LMS", Aliases: []string{"lms"}},
	{Name: "Heun", Aliases: []string{"heun"}},
	{Name: "DPM2", Aliases: []string{"dpm_2"}},
	{Name: "DPM2 a", Aliases: []string{"dpm_2_ancestral"}},
	{Name: "DPM++ 2S a", Aliases: []string{"dpmpp_2s_ancestral"}},
	{Name: "DPM++ 2M", Aliases: []string{"dpmpp_2m"}},
	{Name: "DPM++ SDE", Aliases: []string{"dpmpp_sde", "dpmpp_sde_gpu"}},
	{Name: "DPM++ 2M SDE", Aliases: []string{"dpmpp_2m_sde", "dpmpp_2m_sde_gpu"}},
	{Name: "DPM++ 3M SDE", Aliases: []string{"dpmpp_3m_sde", "dpmpp_3m_sde_gpu"}},
	{Name: "DPM fast", Aliases: []string{"dpm_fast"}},
	{Name: "DPM adaptive", Aliases: []string{"dpm_adaptive"}},
	{Name: "LMS Karras", Aliases: []string{"lms_karras"}},
	{Name: "DPM2 Karras", Aliases: []string{"dpm_2_karras"}},
	{Name: "DPM2 a Karras", Aliases: []string{"dpm_2_ancestral_karras"}},
	{Name: "DPM++ 2S a Karras", Aliases: []string{"dpmpp_2s_ancestral_karras"}},
	{Name: "DPM++ 2M Karras", Aliases: []string{"dpmpp_2m_karras"}},
	{Name: "DPM++ SDE Karras", Aliases: []string{"dpmpp_sde_karras"}},
	{Name: "DPM++ 2M SDE Karras", Aliases: []string{"dpmpp_2m_sde_karras"}},
	{Name: "DPM++ 3M SDE Karras", Aliases: []string{"dpmpp_3m_sde_karras"}},
	{Name: "DDIM", Aliases: []string{"ddim"}},
	{Name: "PLMS", Aliases: []string{"plms"}},
	{Name: "UniPC", Aliases: []string{"uni_pc", "uni_pc_bh2"}},
	{Name: "LCM", Aliases: []string{"lcm"}},
})
