package tagger

import "strings"

// Category maps a set of lowercase substring patterns to one tag.
// Patterns are tested in order; the first hit adds the tag and the rest of
// the category is skipped.
type Category struct {
	Tag      string
	Patterns []string
}

// Categories is the local concept table, in match order.
var Categories = []Category{
	{
		Tag: "philosophy",
		Patterns: []string{"philosophy", "philosophical", "wisdom", "truth", "meaning", "existence", "reality",
			"purpose of life", "human condition", "moral", "ethics", "virtue", "contemplat", "profound",
			"deeper understanding", "fundamental question", "nature of", "essence of", "universal principle",
			"timeless", "ancient wisdom", "enlighten", "conscious living"},
	},
	{
		Tag: "motivation",
		Patterns: []string{"motivation", "inspire", "dream", "goal", "ambition", "success", "achieve",
			"push yourself", "never give up", "persist", "determination", "drive", "passion",
			"overcome obstacles", "reach potential", "strive", "excellence", "breakthrough", "transform",
			"rise above", "inner strength", "willpower", "dedication"},
	},
	{
		Tag: "happiness",
		Patterns: []string{"happy", "joy", "smile", "positive", "optimism", "content", "cheerful", "fulfillment",
			"satisfaction", "bliss", "delight", "pleasure", "gratitude", "inner peace", "serenity", "radiant",
			"glow", "light up", "uplift", "celebrate", "appreciate", "thankful", "blessed", "flourish",
			"thrive", "well-being", "harmony", "balance", "laugh", "brightens"},
	},
	{
		Tag: "wisdom",
		Patterns: []string{"wisdom", "wise", "insight", "understanding", "knowledge", "learn", "life lesson",
			"experience taught", "realize", "discover", "revelation", "profound truth", "deep understanding",
			"perspective", "clarity", "awareness", "growth", "maturity", "reflection", "contemplate",
			"ponder", "epiphany"},
	},
	{
		Tag: "relationships",
		Patterns: []string{"relationship", "friend", "family", "love", "trust", "communication", "marriage",
			"connection", "bond", "intimacy", "companionship", "partnership", "loyalty", "understanding",
			"support", "care", "affection", "devotion", "commitment", "empathy", "compassion",
			"togetherness", "unity", "belonging", "acceptance"},
	},
	{
		Tag: "courage",
		Patterns: []string{"courage", "brave", "bold", "confident", "strength", "fearless", "face your fears",
			"take risks", "step outside comfort zone", "dare to", "overcome fear", "stand up", "resilience",
			"perseverance", "determination", "inner strength", "backbone", "grit", "tenacity", "fortitude",
			"valor"},
	},
	{
		Tag: "mindfulness",
		Patterns: []string{"mindful", "present", "awareness", "meditation", "conscious", "attention",
			"in the moment", "here and now", "pay attention", "observe", "notice", "breathe", "stillness",
			"quiet mind", "centered", "grounded", "focus", "presence", "being present", "mindful living",
			"inner calm"},
	},
	{
		Tag: "self-improvement",
		Patterns: []string{"improve", "better", "growth", "develop", "change", "habit", "skill",
			"personal development", "self-discovery", "transform", "evolve", "progress", "better version",
			"upgrade", "enhance", "refine", "polish", "cultivate", "discipline", "practice", "mastery",
			"potential", "becoming", "journey"},
	},
	{
		Tag: "creativity",
		Patterns: []string{"creative", "art", "design", "innovation", "imagination", "original", "inspire",
			"think outside the box", "new perspective", "innovative", "inventive", "artistic", "expressive",
			"unique", "novel", "fresh", "breakthrough", "vision", "create", "craft", "compose", "generate",
			"conceive"},
	},
	{
		Tag: "productivity",
		Patterns: []string{"productivity", "efficient", "time", "work", "focus", "organize", "system",
			"get things done", "optimize", "streamline", "effective", "results", "accomplish", "output",
			"performance", "workflow", "method", "strategy", "priority", "task", "goal-oriented",
			"systematic", "structured"},
	},
	{
		Tag: "learning",
		Patterns: []string{"learn", "education", "knowledge", "study", "understand", "skill", "teach",
			"acquire knowledge", "gain insight", "comprehend", "grasp", "absorb", "intellectual", "curiosity",
			"explore ideas", "mental growth", "scholarship", "enlightenment", "discovery", "research",
			"investigation", "inquiry"},
	},
	{
		Tag: "emotions",
		Patterns: []string{"emotion", "feel", "feeling", "mood", "sentiment", "emotional", "heart", "soul",
			"passion", "intensity", "deep feeling", "stirring", "moving", "touching", "powerful",
			"overwhelming", "surge", "waves of", "flood of", "rush of", "emotional response"},
	},
	{
		Tag: "spirituality",
		Patterns: []string{"spiritual", "soul", "faith", "belief", "meditation", "prayer", "divine",
			"higher power", "transcendent", "sacred", "holy", "blessed", "grace", "inner peace",
			"enlightenment", "awakening", "consciousness", "universe", "purpose", "calling", "devotion",
			"reverence", "worship", "sanctuary"},
	},
}

// MatchKeywords runs the local tier. It returns the tags of every category
// with at least one pattern in text, in table order, or nil.
func MatchKeywords(text string) []string {
	return matchCategories(text, Categories)
}

func matchCategories(text string, categories []Category) []string {
	lower := strings.ToLower(text)
	var found []string
	seen := make(map[string]bool, len(categories))

	for _, c := range categories {
		if seen[c.Tag] {
			continue
		}
		for _, p := range c.Patterns {
			if strings.Contains(lower, p) {
				found = append(found, c.Tag)
				seen[c.Tag] = true
				break
			}
		}
	}
	return found
}
