package models

// DesignSpec is the typed view of proposalSpec.meta.style.designSpec.
// Fields the model adds outside the known contract are kept in Extra.
type DesignSpec struct {
	Palette     Palette                `json:"palette" mapstructure:"palette"`
	Radius      Radius                 `json:"radius" mapstructure:"radius"`
	Texture     Texture                `json:"texture" mapstructure:"texture"`
	Brand       Brand                  `json:"brand" mapstructure:"brand"`
	Typography  *Typography            `json:"typography,omitempty" mapstructure:"typography"`
	DecorLayers []DecorLayer           `json:"decor_layers,omitempty" mapstructure:"decor_layers"`
	Extra       map[string]interface{} `json:"-" mapstructure:",remain"`
}

type Palette struct {
	Primary   string                 `json:"primary" mapstructure:"primary" jsonschema:"pattern=^#[0-9a-fA-F]{6}$"`
	Secondary string                 `json:"secondary" mapstructure:"secondary" jsonschema:"pattern=^#[0-9a-fA-F]{6}$"`
	Surface   string                 `json:"surface" mapstructure:"surface" jsonschema:"pattern=^#[0-9a-fA-F]{6}$"`
	Ink       string                 `json:"ink" mapstructure:"ink" jsonschema:"pattern=^#[0-9a-fA-F]{6}$"`
	Muted     string                 `json:"muted" mapstructure:"muted" jsonschema:"pattern=^#[0-9a-fA-F]{6}$"`
	Stroke    string                 `json:"stroke" mapstructure:"stroke" jsonschema:"pattern=^#[0-9a-fA-F]{6}$"`
	AccentA   string                 `json:"accentA,omitempty" mapstructure:"accentA" jsonschema:"pattern=^#[0-9a-fA-F]{6}$"`
	AccentB   string                 `json:"accentB,omitempty" mapstructure:"accentB" jsonschema:"pattern=^#[0-9a-fA-F]{6}$"`
	Extra     map[string]interface{} `json:"-" mapstructure:",remain"`
}

// Radius values are pixels.
type Radius struct {
	Panel  float64                `json:"panel" mapstructure:"panel" jsonschema:"minimum=0,maximum=64"`
	Bubble float64                `json:"bubble" mapstructure:"bubble" jsonschema:"minimum=0,maximum=64"`
	Card   float64                `json:"card" mapstructure:"card" jsonschema:"minimum=0,maximum=64"`
	Extra  map[string]interface{} `json:"-" mapstructure:",remain"`
}

type Texture struct {
	Kind      string                 `json:"kind" mapstructure:"kind" jsonschema:"enum=none,enum=mesh,enum=blob"`
	Intensity float64                `json:"intensity" mapstructure:"intensity" jsonschema:"minimum=0,maximum=1"`
	Extra     map[string]interface{} `json:"-" mapstructure:",remain"`
}

type Brand struct {
	Company string                 `json:"company" mapstructure:"company"`
	Website string                 `json:"website" mapstructure:"website"`
	Contact string                 `json:"contact" mapstructure:"contact"`
	Extra   map[string]interface{} `json:"-" mapstructure:",remain"`
}

type Typography struct {
	Heading string `json:"heading,omitempty" mapstructure:"heading"`
	Body    string `json:"body,omitempty" mapstructure:"body"`
}

// DecorLayer is one decorative background layer emitted by the style endpoint.
type DecorLayer struct {
	Type     string                 `json:"type" mapstructure:"type" jsonschema:"enum=glow,enum=gradient_blob,enum=grid,enum=dots,enum=diagonal"`
	Position string                 `json:"position,omitempty" mapstructure:"position"`
	Opacity  float64                `json:"opacity,omitempty" mapstructure:"opacity" jsonschema:"minimum=0,maximum=1"`
	Extra    map[string]interface{} `json:"-" mapstructure:",remain"`
}

// Texture kinds understood by the renderer.
var TextureKinds = []string{"none", "mesh", "blob"}

// DecorLayerTypes understood by the renderer.
var DecorLayerTypes = []string{"glow", "gradient_blob", "grid", "dots", "diagonal"}
