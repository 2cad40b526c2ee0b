package advisor

import (
	"fmt"
	"strings"

	"fintrack/internal/core"
)

const (
	// ContextDays is the window of spending data given to the model.
	ContextDays    = 30
	MaxSuggestions = 5

	currency = "RSD"
)

const fallbackSuggestion = "Nastavite sa praćenjem troškova za detaljnije savete."

// Analysis is the parsed answer to an analysis prompt.
type Analysis struct {
	Analysis    string   `json:"analysis"`
	Suggestions []string `json:"suggestions"`
}

// BuildContext summarises per-category totals into the text block shared
// by every prompt.
func BuildContext(days int, totals []core.CategoryTotal) string {
	var income, expenses core.Money
	var incomeLines, expenseLines []string
	for _, t := range totals {
		line := fmt.Sprintf("- %s: %s %s (%d transakcija)", t.Name, t.Total, currency, t.Count)
		if t.IsIncome {
			income = income.Add(t.Total)
			incomeLines = append(incomeLines, line)
		} else {
			expenses = expenses.Add(t.Total)
			expenseLines = append(expenseLines, line)
		}
	}
	if len(incomeLines) == 0 {
		incomeLines = []string{"- Nema zabeleženih prihoda"}
	}
	if len(expenseLines) == 0 {
		expenseLines = []string{"- Nema zabeleženih rashoda"}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analiza troškova za poslednjih %d dana:\n\n", days)
	fmt.Fprintf(&b, "PRIHODI (ukupno: %s %s):\n%s\n\n", income, currency, strings.Join(incomeLines, "\n"))
	fmt.Fprintf(&b, "RASHODI (ukupno: %s %s):\n%s\n\n", expenses, currency, strings.Join(expenseLines, "\n"))
	fmt.Fprintf(&b, "BILANS: %s %s\n", income.Sub(expenses), currency)
	return b.String()
}

// AnalysisPrompt asks for a short analysis and a list of savings tips in a
// fixed format that ParseAnalysis understands.
func AnalysisPrompt(context string) string {
	return "Ti si finansijski savetnik. Analiziraj sledeće podatke o prihodima i rashodima korisnika " +
		"i pruži konkretne savete za uštedu na srpskom jeziku.\n\n" +
		context + "\n" +
		"Napiši:\n" +
		"1. Kratku analizu potrošnje (2-3 rečenice)\n" +
		"2. 3-5 konkretnih saveta za uštedu baziranih na podacima\n\n" +
		"Format odgovora:\n" +
		"ANALIZA:\n[tvoja analiza]\n\n" +
		"SAVETI:\n- [savet 1]\n- [savet 2]\n- [savet 3]\n"
}

// ChatPrompt wraps a user question with the spending context.
func ChatPrompt(context, message string) string {
	return "Ti si prijateljski finansijski savetnik. Korisnik ti postavlja pitanje o svojim finansijama. " +
		"Odgovori na srpskom jeziku, konkretno i korisno.\n\n" +
		"Kontekst o korisnikovim finansijama:\n" + context + "\n" +
		"Pitanje korisnika: " + message + "\n\n" +
		"Odgovori kratko i jasno (maksimalno 3-4 rečenice), pružajući praktične savete kada je moguće.\n"
}

var (
	analysisMarkers   = []string{"ANALIZA:", "ANALYSIS:"}
	suggestionMarkers = []string{"SAVETI:", "SUGGESTIONS:"}
)

// ParseAnalysis splits a model answer at its ANALIZA:/SAVETI: markers.
// Answers without the analysis marker are returned whole with a generic
// suggestion.
func ParseAnalysis(text string) Analysis {
	start, marker := indexAny(text, analysisMarkers)
	if start < 0 {
		return Analysis{
			Analysis:    strings.TrimSpace(text),
			Suggestions: []string{fallbackSuggestion},
		}
	}
	body := text[start+len(marker):]

	out := Analysis{Suggestions: []string{}}
	split, sMarker := indexAny(body, suggestionMarkers)
	if split < 0 {
		out.Analysis = strings.TrimSpace(body)
		return out
	}
	out.Analysis = strings.TrimSpace(body[:split])

	for _, line := range strings.Split(body[split+len(sMarker):], "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-•* ")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out.Suggestions = append(out.Suggestions, line)
		if len(out.Suggestions) == MaxSuggestions {
			break
		}
	}
	return out
}

func indexAny(s string, markers []string) (int, string) {
	for _, m := range markers {
		if i := strings.Index(s, m); i >= 0 {
			return i, m
		}
	}
	return -1, ""
}
