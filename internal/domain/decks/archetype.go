package decks

import (
	"sort"
	"strings"
)

const (
	TagBleed        = "Bleed"
	TagStealthBleed = "Stealth Bleed"
	TagCombat       = "Combat"
	TagVote         = "Vote"
	TagBlock        = "Block"
	TagWall         = "Wall"
	TagAlly         = "Ally"
	TagEquipment    = "Equipment"
)

var trackedDisciplines = []string{"dom", "pre", "aus", "cel", "pot", "pro"}

type composition struct {
	library     int
	combat      int
	bleed       int
	stealth     int
	political   int
	reaction    int
	ally        int
	equipment   int
	titleWeight float64
	disciplines map[string]int
}

func (c composition) ratio(n float64) float64 {
	return n / float64(c.library)
}

// TagArchetypes labels a deck from its card composition. The result is
// sorted and never nil; a deck without library cards gets no tags.
func TagArchetypes(cards []DeckCardEntry) []string {
	c := compose(cards)
	if c.library == 0 {
		return []string{}
	}

	tags := make(map[string]struct{})
	add := func(tag string) { tags[tag] = struct{}{} }
	disc := c.disciplines

	if c.ratio(float64(c.bleed)) > 0.15 || disc["dom"] > 10 || disc["pre"] > 10 {
		if c.stealth > 5 {
			add(TagStealthBleed)
		} else {
			add(TagBleed)
		}
	}
	if c.ratio(float64(c.combat)) > 0.20 || disc["pot"] > 10 || disc["cel"] > 10 || disc["pro"] > 10 {
		add(TagCombat)
	}
	if c.ratio(float64(c.political)+c.titleWeight) > 0.15 {
		add(TagVote)
	}
	if c.ratio(float64(c.reaction)) > 0.20 || disc["aus"] > 10 {
		add(TagBlock)
		if disc["aus"] > 15 {
			add(TagWall)
		}
	}
	if c.ratio(float64(c.ally)) > 0.10 {
		add(TagAlly)
	}
	if c.ratio(float64(c.equipment)) > 0.10 {
		add(TagEquipment)
	}

	out := make([]string, 0, len(tags))
	for tag := range tags {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

func compose(cards []DeckCardEntry) composition {
	c := composition{disciplines: make(map[string]int, len(trackedDisciplines))}
	for _, entry := range cards {
		qty := entry.Quantity
		if qty <= 0 {
			continue
		}
		card := entry.Card

		for _, code := range trackedDisciplines {
			if hasDiscipline(card.Disciplines, code) {
				c.disciplines[code] += qty
			}
		}

		if isCrypt(card.Types) {
			if strings.TrimSpace(card.Title) != "" {
				c.titleWeight += float64(qty) * 0.5
			}
			continue
		}

		c.library += qty
		text := strings.ToLower(card.Text)
		modifier := hasType(card.Types, "action modifier")

		if hasType(card.Types, "combat") || strings.Contains(text, "enter combat") || strings.Contains(text, "additional strike") {
			c.combat += qty
		}
		if (modifier && (strings.Contains(text, "bleed") || strings.Contains(text, "stealth"))) ||
			strings.Contains(text, "+1 bleed") || strings.Contains(text, "bleed at +") {
			c.bleed += qty
		}
		if modifier && strings.Contains(text, "stealth") {
			c.stealth += qty
		}
		if hasType(card.Types, "political action") {
			c.political += qty
		}
		if hasType(card.Types, "reaction") || strings.Contains(text, "intercept") || strings.Contains(text, "block") {
			c.reaction += qty
		}
		if hasType(card.Types, "ally") {
			c.ally += qty
		}
		if hasType(card.Types, "equipment") {
			c.equipment += qty
		}
	}
	return c
}

func isCrypt(types []string) bool {
	return hasType(types, "vampire") || hasType(types, "imbued")
}

func hasType(types []string, want string) bool {
	for _, t := range types {
		if strings.EqualFold(strings.TrimSpace(t), want) {
			return true
		}
	}
	return false
}

// hasDiscipline ignores case, so superior (upper-case) codes count the same
// as inferior ones.
func hasDiscipline(disciplines []string, code string) bool {
	for _, d := range disciplines {
		if strings.EqualFold(strings.TrimSpace(d), code) {
			return true
		}
	}
	return false
}
