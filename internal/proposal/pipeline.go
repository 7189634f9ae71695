package proposal

import "propoflash/internal/common/i18n"

// Report lists what the pipeline had to repair or could not validate.
type Report struct {
	Fixes      []string
	Violations []string
}

// Pipeline assembles complete documents from layered partial ones.
type Pipeline struct {
	Merger     Merger
	Normalizer *Normalizer
	Style      StyleGuard
	Proposal   *Conformance
	Design     *Conformance
}

// NewPipeline wires a pipeline with compiled conformance schemas.
func NewPipeline(merger Merger, normalizer *Normalizer, style StyleGuard) (*Pipeline, error) {
	proposalSchema, err := ProposalConformance()
	if err != nil {
		return nil, err
	}
	designSchema, err := DesignConformance()
	if err != nil {
		return nil, err
	}
	if normalizer == nil {
		normalizer = NewNormalizer(DefaultListCaps(), DefaultListCap)
	}
	return &Pipeline{
		Merger:     merger,
		Normalizer: normalizer,
		Style:      style,
		Proposal:   proposalSchema,
		Design:     designSchema,
	}, nil
}

// BuildProposal layers defaults, prior and extracted, then normalizes the
// result and repairs its style tokens. meta.lang comes from extracted when
// it carries a supported language and from lang otherwise.
func (p *Pipeline) BuildProposal(prior, extracted map[string]interface{}, lang string) (map[string]interface{}, Report) {
	defaults := DefaultProposal()
	merged := p.Merger.Merge(defaults, p.Normalizer.Prune(prior, defaults), p.Normalizer.Prune(extracted, defaults))
	doc := p.Normalizer.Normalize(merged, defaults)

	meta := doc["meta"].(map[string]interface{})
	meta["lang"] = documentLang(lang, extracted)

	style := meta["style"].(map[string]interface{})
	design, fixes := p.Style.Sanitize(DesignSpecOf(doc), DefaultDesignSpec())
	style["designSpec"] = design

	return doc, Report{Fixes: fixes, Violations: p.Proposal.Check(doc)}
}

func documentLang(lang string, sources ...map[string]interface{}) string {
	for _, src := range sources {
		meta, _ := src["meta"].(map[string]interface{})
		if l, _ := meta["lang"].(string); i18n.IsSupported(l) {
			return i18n.Normalize(l)
		}
	}
	return i18n.Normalize(lang)
}

// BuildDesign layers the default design, current and diff.
func (p *Pipeline) BuildDesign(current, diff map[string]interface{}) (map[string]interface{}, Report) {
	defaults := DefaultDesignSpec()
	merged := p.Merger.Merge(defaults, p.Normalizer.Prune(current, defaults), p.Normalizer.Prune(diff, defaults))
	design := p.Normalizer.Normalize(merged, defaults)
	design, fixes := p.Style.Sanitize(design, defaults)
	return design, Report{Fixes: fixes, Violations: p.Design.Check(design)}
}

// Envelope is the chat answer as recovered from the model.
type Envelope struct {
	Reply   string
	Spec    map[string]interface{}
	Actions []interface{}
}

// SplitEnvelope reads reply, proposalSpec and actions out of an extracted
// object. An object carrying meta but no proposalSpec is taken as the proposal
// itself. Actions without a string type are dropped.
func (p *Pipeline) SplitEnvelope(obj map[string]interface{}) Envelope {
	env := p.Normalizer.Normalize(obj, DefaultEnvelope())

	var out Envelope
	out.Reply, _ = env["reply"].(string)

	switch spec := obj["proposalSpec"].(type) {
	case map[string]interface{}:
		out.Spec = copyMap(spec)
	default:
		if _, ok := obj["meta"].(map[string]interface{}); ok {
			out.Spec = copyMap(obj)
			delete(out.Spec, "reply")
			delete(out.Spec, "actions")
			delete(out.Spec, "proposalSpec")
		}
	}

	out.Actions = []interface{}{}
	for _, a := range env["actions"].([]interface{}) {
		m, ok := a.(map[string]interface{})
		if !ok {
			continue
		}
		if t, _ := m["type"].(string); t == "" {
			continue
		}
		out.Actions = append(out.Actions, m)
	}
	return out
}
