package i18n

// Key identifies a user-facing string.
type Key string

const (
	KeyFallbackReply      Key = "fallback_reply"
	KeyMissingCredentials Key = "missing_credentials"
	KeyQuotaExceeded      Key = "quota_exceeded"
	KeyDefaultReply       Key = "default_reply"
	KeyStyleFallback      Key = "style_fallback"
)

var catalog = map[string]map[Key]string{
	French: {
		KeyFallbackReply:      "Je n’ai pas pu structurer la proposition cette fois-ci. Pouvez-vous préciser le besoin (périmètre, délai, budget) ?",
		KeyMissingCredentials: "Le service de rédaction n’est pas encore configuré. Votre proposition actuelle est conservée, réessayez plus tard.",
		KeyQuotaExceeded:      "Vous avez atteint la limite de votre offre pour ce mois-ci. Passez à l’offre supérieure pour continuer.",
		KeyDefaultReply:       "Voici la proposition mise à jour.",
		KeyStyleFallback:      "Je n’ai pas pu interpréter ce style, le design actuel est conservé.",
	},
	English: {
		KeyFallbackReply:      "I couldn’t structure the proposal this time. Could you give more detail (scope, deadline, budget)?",
		KeyMissingCredentials: "The writing service isn’t configured yet. Your current proposal is kept, please try again later.",
		KeyQuotaExceeded:      "You’ve reached your plan’s limit for this month. Upgrade to keep going.",
		KeyDefaultReply:       "Here is the updated proposal.",
		KeyStyleFallback:      "I couldn’t interpret that style, the current design is kept.",
	},
}

// T returns the string for key in lang, falling back to the default language.
func T(lang string, key Key) string {
	if s, ok := catalog[Normalize(lang)][key]; ok {
		return s
	}
	return catalog[Fallback][key]
}
