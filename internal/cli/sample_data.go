package cli

import (
	"time"

	"ecoloquiz-service/internal/domain"
)

// Demo catalog used when no Postgres URL is configured and by the seed
// command. Content mirrors the production themes (recycling, water,
// energy) at a toy scale.

func sampleThemes() []domain.Theme {
	return []domain.Theme{
		{ID: "theme-recyclage", Name: "Recyclage"},
		{ID: "theme-eau", Name: "Eau"},
		{ID: "theme-energie", Name: "Énergie"},
	}
}

func sampleLevels() []domain.Level {
	return []domain.Level{
		{ID: "lvl-debutant", Name: "Débutant", Rank: 1, MinPoints: 0},
		{ID: "lvl-confirme", Name: "Confirmé", Rank: 2, MinPoints: 100},
		{ID: "lvl-expert", Name: "Expert", Rank: 3, MinPoints: 300},
	}
}

func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-recyclage-1": {
			ID:      "quiz-recyclage-1",
			ThemeID: "theme-recyclage",
			LevelID: "lvl-debutant",
			Questions: []domain.Question{
				{
					ID:   "q-verre",
					Text: "Le verre se recycle indéfiniment.",
					Type: domain.QuestionTypeTrueFalse,
					Options: []domain.Option{
						{ID: "o-vrai", Text: "Vrai", Correct: true},
						{ID: "o-faux", Text: "Faux", Correct: false},
					},
					Explanation: "Le verre peut être refondu sans perte de qualité.",
				},
				{
					ID:   "q-bacs",
					Text: "Que peut-on déposer dans le bac jaune ?",
					Type: domain.QuestionTypeQCM,
					Options: []domain.Option{
						{ID: "o-carton", Text: "Cartons", Correct: true},
						{ID: "o-bouteilles", Text: "Bouteilles plastiques", Correct: true},
						{ID: "o-piles", Text: "Piles", Correct: false},
					},
					Explanation: "Les piles suivent une filière dédiée.",
				},
			},
		},
		"quiz-eau-1": {
			ID:       "quiz-eau-1",
			ThemeID:  "theme-eau",
			LevelID:  "lvl-debutant",
			Position: 0,
			Questions: []domain.Question{
				{
					ID:   "q-douche",
					Text: "Une douche consomme moins d'eau qu'un bain.",
					Type: domain.QuestionTypeTrueFalse,
					Options: []domain.Option{
						{ID: "o-vrai", Text: "Vrai", Correct: true},
						{ID: "o-faux", Text: "Faux", Correct: false},
					},
				},
			},
		},
	}
}

func sampleGifts() []domain.Gift {
	until := time.Now().AddDate(1, 0, 0)
	return []domain.Gift{
		{
			ID:             "gift-gourde",
			Name:           "Gourde isotherme",
			Company:        "EcoloShop",
			Description:    "Gourde inox 500ml",
			TotalQuantity:  50,
			RemainingCount: 50,
			ValidUntil:     &until,
		},
		{
			ID:             "gift-composteur",
			Name:           "Composteur de balcon",
			Company:        "Vertical Garden",
			TotalQuantity:  10,
			RemainingCount: 10,
		},
	}
}
