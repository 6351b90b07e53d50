package content

import "strings"

// Classifier assigns a topic category and an optional geographic focus to an
// item. It is a seam: the default keyword classifier can be swapped for an
// external service as long as the replacement stays deterministic, since
// diversity accounting depends on stable topic assignment.
type Classifier func(title, text string, lang Language) (topic string, geo string)

const TopicGeneral = "general"

// classifyOrder fixes iteration order so scoring ties break deterministically.
var classifyOrder = []string{
	"politics", "business", "technology", "science", "health", "sports", "culture",
}

var topicKeywords = map[Language]map[string][]string{
	LanguageEnglish: {
		"politics":   {"election", "government", "senate", "congress", "parliament", "minister", "president", "policy", "vote", "campaign", "legislation"},
		"business":   {"market", "economy", "stock", "investor", "revenue", "earnings", "inflation", "trade", "startup", "merger", "bank"},
		"technology": {"software", "startup", "apple", "google", "artificial intelligence", "chip", "internet", "cyber", "robot", "smartphone", "data"},
		"science":    {"research", "study", "scientist", "climate", "space", "nasa", "physics", "biology", "discovery", "experiment"},
		"health":     {"health", "hospital", "vaccine", "disease", "doctor", "patient", "drug", "medical", "virus", "treatment"},
		"sports":     {"match", "league", "championship", "tournament", "coach", "goal", "player", "olympic", "season", "team"},
		"culture":    {"film", "music", "festival", "artist", "museum", "book", "theater", "album", "exhibition", "celebrity"},
	},
	LanguageSpanish: {
		"politics":   {"elección", "elecciones", "gobierno", "senado", "congreso", "parlamento", "ministro", "presidente", "política", "votación", "campaña", "ley"},
		"business":   {"mercado", "economía", "bolsa", "inversor", "ingresos", "ganancias", "inflación", "comercio", "empresa", "fusión", "banco"},
		"technology": {"software", "tecnología", "inteligencia artificial", "chip", "internet", "ciberseguridad", "robot", "móvil", "datos", "aplicación"},
		"science":    {"investigación", "estudio", "científico", "clima", "espacio", "física", "biología", "descubrimiento", "experimento"},
		"health":     {"salud", "hospital", "vacuna", "enfermedad", "médico", "paciente", "medicamento", "virus", "tratamiento"},
		"sports":     {"partido", "liga", "campeonato", "torneo", "entrenador", "gol", "jugador", "olímpico", "temporada", "equipo"},
		"culture":    {"película", "música", "festival", "artista", "museo", "libro", "teatro", "álbum", "exposición"},
	},
}

var geoKeywords = map[Language]map[string][]string{
	LanguageEnglish: {
		"us":     {"united states", "washington", "white house", "u.s.", "american"},
		"uk":     {"united kingdom", "britain", "london", "british"},
		"europe": {"european union", "brussels", "eurozone", "europe"},
		"latam":  {"latin america", "mexico", "brazil", "argentina", "colombia"},
		"asia":   {"china", "japan", "india", "beijing", "tokyo"},
	},
	LanguageSpanish: {
		"spain":  {"españa", "madrid", "barcelona", "español"},
		"latam":  {"américa latina", "méxico", "argentina", "colombia", "chile", "perú"},
		"us":     {"estados unidos", "washington", "casa blanca"},
		"europe": {"unión europea", "bruselas", "europa"},
	},
}

var geoOrder = map[Language][]string{
	LanguageEnglish: {"us", "uk", "europe", "latam", "asia"},
	LanguageSpanish: {"spain", "latam", "us", "europe"},
}

// titleWeight makes title matches count more than body matches.
const titleWeight = 3

// KeywordClassifier returns the default deterministic keyword-table
// classifier for EN and ES.
func KeywordClassifier() Classifier {
	return func(title, text string, lang Language) (string, string) {
		keywords, ok := topicKeywords[lang]
		if !ok {
			return TopicGeneral, ""
		}

		loweredTitle := strings.ToLower(title)
		loweredText := strings.ToLower(text)

		bestTopic := TopicGeneral
		bestScore := 0
		for _, topic := range classifyOrder {
			score := 0
			for _, keyword := range keywords[topic] {
				score += titleWeight * strings.Count(loweredTitle, keyword)
				score += strings.Count(loweredText, keyword)
			}
			if score > bestScore {
				bestScore = score
				bestTopic = topic
			}
		}

		return bestTopic, classifyGeo(loweredTitle+" "+loweredText, lang)
	}
}

func classifyGeo(lowered string, lang Language) string {
	regions, ok := geoKeywords[lang]
	if !ok {
		return ""
	}

	bestGeo := ""
	bestScore := 0
	for _, geo := range geoOrder[lang] {
		score := 0
		for _, keyword := range regions[geo] {
			score += strings.Count(lowered, keyword)
		}
		if score > bestScore {
			bestScore = score
			bestGeo = geo
		}
	}

	return bestGeo
}
