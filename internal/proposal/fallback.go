package proposal

import "propoflash/internal/common/i18n"

// Fallback builds the answer used when nothing usable came back from the
// model: a localized reply for reason and a fresh copy of defaults tagged
// with lang. An empty reason means the generic apology.
func Fallback(lang string, defaults map[string]interface{}, reason i18n.Key) (string, map[string]interface{}) {
	lang = i18n.Normalize(lang)
	if reason == "" {
		reason = i18n.KeyFallbackReply
	}

	spec := copyMap(defaults)
	if spec == nil {
		spec = DefaultProposal()
	}
	meta, ok := spec["meta"].(map[string]interface{})
	if !ok {
		meta = map[string]interface{}{}
		spec["meta"] = meta
	}
	meta["lang"] = lang

	return i18n.T(lang, reason), spec
}
