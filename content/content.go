// Package content supplies themed question+answer pairs for new games.
// Generation itself is an external concern; this file-cache provider reads
// the local questions.json that the generator maintains.
package content

import (
	"encoding/json"
	"math/rand"
	"os"
	"sort"

	"bazinga/logger"
)

// QA is one trivia question with its correct answer. The answer is kept
// short and casual on purpose so it blends in with player decoys.
type QA struct {
	QuestionText  string `json:"question_text"`
	CorrectAnswer string `json:"correct_answer"`
}

// Provider is the content collaborator contract. Questions may return fewer
// pairs than requested, or none at all; the caller decides how to surface
// that.
type Provider interface {
	Questions(theme string, numQuestions int, seen map[string]bool) ([]QA, error)
	Themes() []string
}

var defaultThemes = []string{"Weird History", "Movie Trivia", "Strange Science", "Pop Culture"}

// FileProvider serves questions from a JSON file keyed by theme.
type FileProvider struct {
	path string
}

func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

func (p *FileProvider) load() map[string][]QA {
	data, err := os.ReadFile(p.path)
	if err != nil {
		logger.Warnf("questions file %s not readable: %v", p.path, err)
		return map[string][]QA{}
	}

	var byTheme map[string][]QA
	if err := json.Unmarshal(data, &byTheme); err != nil {
		logger.Warnf("questions file %s has invalid JSON: %v", p.path, err)
		return map[string][]QA{}
	}
	return byTheme
}

// Questions returns up to numQuestions unseen pairs for the theme, picked
// uniformly at random.
func (p *FileProvider) Questions(theme string, numQuestions int, seen map[string]bool) ([]QA, error) {
	var unseen []QA
	for _, qa := range p.load()[theme] {
		if !seen[qa.QuestionText] {
			unseen = append(unseen, qa)
		}
	}

	if len(unseen) == 0 {
		logger.Warnf("no unseen questions available for theme %q", theme)
		return nil, nil
	}

	rand.Shuffle(len(unseen), func(i, j int) {
		unseen[i], unseen[j] = unseen[j], unseen[i]
	})
	if len(unseen) > numQuestions {
		unseen = unseen[:numQuestions]
	}
	return unseen, nil
}

// Themes merges the themes present in the file with the built-in defaults.
func (p *FileProvider) Themes() []string {
	themes := map[string]bool{}
	for _, t := range defaultThemes {
		themes[t] = true
	}
	for t := range p.load() {
		themes[t] = true
	}

	out := make([]string, 0, len(themes))
	for t := range themes {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
