package camera

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Preset is one entry of the camera's PTZPresetList.
type Preset struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// ParsePresets extracts presets from a PTZPresetList document.
// Malformed input yields an empty list.
func ParsePresets(body string) []Preset {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(body); err != nil {
		return []Preset{}
	}

	elems := doc.FindElements("//PTZPreset")
	presets := make([]Preset, 0, len(elems))
	for _, el := range elems {
		idEl := el.SelectElement("id")
		if idEl == nil {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(idEl.Text()))
		if err != nil {
			continue
		}

		p := Preset{ID: id}
		if name := el.SelectElement("presetName"); name != nil {
			p.Name = strings.TrimSpace(name.Text())
		}
		if enabled := el.SelectElement("enabled"); enabled != nil {
			p.Enabled = strings.TrimSpace(enabled.Text()) == "true"
		}
		presets = append(presets, p)
	}
	return presets
}
