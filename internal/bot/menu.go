package bot

import (
	"fmt"

	"github.com/magabrotheeeer/spesesmart/internal/models"
)

// MenuLabels — подписи кнопок главного меню.
type MenuLabels struct {
	Add    string
	Report string
	Info   string
}

var menus = map[models.Language]MenuLabels{
	models.LangIT: {Add: "📝 Aggiungi", Report: "📊 Resoconto", Info: "ℹ️ Info"},
	models.LangEN: {Add: "📝 Add", Report: "📊 Report", Info: "ℹ️ Info"},
	models.LangPL: {Add: "📝 Dodaj", Report: "📊 Raport", Info: "ℹ️ Info"},
}

// Menu возвращает подписи меню на языке lang (итальянский по умолчанию).
func Menu(lang models.Language) MenuLabels {
	if m, ok := menus[lang]; ok {
		return m
	}
	return menus[models.LangIT]
}

type action int

const (
	actionNone action = iota
	actionAdd
	actionReport
	actionInfo
)

// menuAction распознаёт нажатие кнопки меню на любом из языков.
func menuAction(text string) action {
	for _, m := range menus {
		switch text {
		case m.Add:
			return actionAdd
		case m.Report:
			return actionReport
		case m.Info:
			return actionInfo
		}
	}
	return actionNone
}

func addHint(lang models.Language) string {
	switch lang {
	case models.LangEN:
		return `📝 Write the expense or income, e.g. "12.50 lunch" or "salary 1500".`
	case models.LangPL:
		return `📝 Napisz wydatek lub przychód, np. "12.50 obiad" albo "pensja 1500".`
	default:
		return `📝 Scrivi la spesa o l'entrata, ad es. "12.50 pranzo" o "stipendio 1500".`
	}
}

func infoText(lang models.Language, chatID string) string {
	var text string
	switch lang {
	case models.LangEN:
		text = "ℹ️ Send an expense in plain words, or ask for a report (\"how much did I spend this week?\")."
	case models.LangPL:
		text = "ℹ️ Napisz wydatek zwykłymi słowami albo poproś o raport (\"ile wydałem w tym tygodniu?\")."
	default:
		text = "ℹ️ Scrivi una spesa a parole oppure chiedi un resoconto (\"quanto ho speso questa settimana?\")."
	}
	return fmt.Sprintf("%s\nChat ID: `%s`", text, chatID)
}
