package loam

// TraitsMetadata is the frontmatter of one element class document.
// It uses "mapstructure" tags so loam decodes YAML keys directly.
type TraitsMetadata struct {
	Name       string `json:"name" mapstructure:"name"`
	PortCount  string `json:"port_count" mapstructure:"port_count"`
	Processing string `json:"processing" mapstructure:"processing"`
	FlowCode   string `json:"flow_code" mapstructure:"flow_code"`
	Flags      string `json:"flags" mapstructure:"flags"`
	Requires   string `json:"requires" mapstructure:"requires"`
	Provides   string `json:"provides" mapstructure:"provides"`
	Package    string `json:"package" mapstructure:"package"`

	// Doc overrides the document body as class documentation.
	Doc string `json:"doc" mapstructure:"doc"`
}
