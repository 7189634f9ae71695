package proposal

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"propoflash/internal/models"
)

// StyleGuard repairs the presentational tokens of a design spec.
type StyleGuard struct {
	MinContrast    float64
	MaxDecorLayers int
}

// DecodeDesignSpec reads a design spec map into the typed model.
func DecodeDesignSpec(m map[string]interface{}) (models.DesignSpec, error) {
	var spec models.DesignSpec
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &spec,
	})
	if err != nil {
		return spec, err
	}
	if err := dec.Decode(m); err != nil {
		return spec, fmt.Errorf("decode design spec: %w", err)
	}
	return spec, nil
}

// Sanitize returns a copy of design with invalid colors replaced by the
// matching default, ink made readable on surface, the texture kind and
// decor layer types restricted to known values and numeric tokens clamped.
// fixes names every field it had to change.
func (g StyleGuard) Sanitize(design, defaults map[string]interface{}) (out map[string]interface{}, fixes []string) {
	out = copyMap(design)
	if out == nil {
		out = copyMap(defaults)
	}
	if layers, ok := out["decor_layers"].([]interface{}); ok {
		objects := make([]interface{}, 0, len(layers))
		for _, l := range layers {
			if _, ok := l.(map[string]interface{}); ok {
				objects = append(objects, l)
			}
		}
		out["decor_layers"] = objects
	}
	fix := func(name string) { fixes = append(fixes, name) }
	dropUndecodable(out, defaults, fix)
	spec, err := DecodeDesignSpec(out)
	if err != nil {
		return out, append(fixes, "designSpec")
	}
	def, err := DecodeDesignSpec(defaults)
	if err != nil {
		return out, fixes
	}

	colors := []struct {
		name     string
		val      *string
		fallback string
		optional bool
	}{
		{"primary", &spec.Palette.Primary, def.Palette.Primary, false},
		{"secondary", &spec.Palette.Secondary, def.Palette.Secondary, false},
		{"surface", &spec.Palette.Surface, def.Palette.Surface, false},
		{"ink", &spec.Palette.Ink, def.Palette.Ink, false},
		{"muted", &spec.Palette.Muted, def.Palette.Muted, false},
		{"stroke", &spec.Palette.Stroke, def.Palette.Stroke, false},
		{"accentA", &spec.Palette.AccentA, def.Palette.AccentA, true},
		{"accentB", &spec.Palette.AccentB, def.Palette.AccentB, true},
	}
	palette, _ := out["palette"].(map[string]interface{})
	if palette == nil {
		palette = map[string]interface{}{}
		out["palette"] = palette
	}
	for _, c := range colors {
		if c.optional && *c.val == "" {
			continue
		}
		if hex, ok := NormalizeHex(*c.val); ok {
			*c.val = hex
		} else {
			*c.val = c.fallback
			fix("palette." + c.name)
		}
		palette[c.name] = *c.val
	}

	min := g.MinContrast
	if min <= 0 {
		min = MinContrast
	}
	if ink := ReadableInk(spec.Palette.Ink, spec.Palette.Surface, def.Palette.Ink, min); ink != spec.Palette.Ink {
		palette["ink"] = ink
		fix("palette.ink.contrast")
	}

	if !contains(models.TextureKinds, spec.Texture.Kind) {
		spec.Texture.Kind = "none"
		fix("texture.kind")
	}
	spec.Texture.Intensity = clamp(spec.Texture.Intensity, 0, 1)
	texture, _ := out["texture"].(map[string]interface{})
	if texture == nil {
		texture = map[string]interface{}{}
		out["texture"] = texture
	}
	texture["kind"] = spec.Texture.Kind
	texture["intensity"] = spec.Texture.Intensity

	radius, _ := out["radius"].(map[string]interface{})
	if radius == nil {
		radius = map[string]interface{}{}
		out["radius"] = radius
	}
	for name, v := range map[string]struct{ got, def float64 }{
		"panel":  {spec.Radius.Panel, def.Radius.Panel},
		"bubble": {spec.Radius.Bubble, def.Radius.Bubble},
		"card":   {spec.Radius.Card, def.Radius.Card},
	} {
		r := v.got
		if r < 0 {
			r = v.def
			fix("radius." + name)
		}
		radius[name] = clamp(r, 0, 64)
	}

	if layers, ok := out["decor_layers"].([]interface{}); ok {
		kept := layers[:0]
		for i, layer := range spec.DecorLayers {
			if g.MaxDecorLayers > 0 && len(kept) >= g.MaxDecorLayers {
				break
			}
			if !contains(models.DecorLayerTypes, layer.Type) {
				fix(fmt.Sprintf("decor_layers[%d]", i))
				continue
			}
			m := layers[i].(map[string]interface{})
			if _, ok := m["opacity"]; ok {
				m["opacity"] = clamp(layer.Opacity, 0, 1)
			}
			kept = append(kept, m)
		}
		out["decor_layers"] = kept
	}

	return out, fixes
}

// dropUndecodable repairs only the parts of design the typed model cannot
// read: a bad field falls back to its default or is removed, a bad decor
// layer is removed. Everything else is left as is.
func dropUndecodable(design, defaults map[string]interface{}, fix func(string)) {
	decodes := func(key string, v interface{}) bool {
		_, err := DecodeDesignSpec(map[string]interface{}{key: v})
		return err == nil
	}
	for _, key := range []string{"palette", "radius", "texture", "brand", "typography"} {
		v, ok := design[key]
		if !ok || v == nil || decodes(key, v) {
			continue
		}
		section, isMap := v.(map[string]interface{})
		defSection, _ := defaults[key].(map[string]interface{})
		if !isMap {
			if defSection != nil {
				design[key] = DeepCopy(defSection)
			} else {
				delete(design, key)
			}
			fix(key)
			continue
		}
		for field, fv := range section {
			if decodes(key, map[string]interface{}{field: fv}) {
				continue
			}
			if dv, ok := defSection[field]; ok {
				section[field] = DeepCopy(dv)
			} else {
				delete(section, field)
			}
			fix(key + "." + field)
		}
	}

	switch layers := design["decor_layers"].(type) {
	case nil:
	case []interface{}:
		kept := make([]interface{}, 0, len(layers))
		for i, l := range layers {
			if !decodes("decor_layers", []interface{}{l}) {
				fix(fmt.Sprintf("decor_layers[%d]", i))
				continue
			}
			kept = append(kept, l)
		}
		design["decor_layers"] = kept
	default:
		delete(design, "decor_layers")
		fix("decor_layers")
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
