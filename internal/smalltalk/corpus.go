// Package smalltalk answers free conversation that is not a weather request.
package smalltalk

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode"

	"github.com/agnivade/levenshtein"
	"gopkg.in/yaml.v3"
)

// DefaultResponse is returned when the corpus holds nothing to compare against.
const DefaultResponse = "I am sorry, but I do not understand."

//go:embed corpus.yaml
var builtin []byte

// document is the on-disk corpus layout: each conversation is a sequence of
// statements where every statement answers the one before it.
type document struct {
	Categories    []string   `yaml:"categories"`
	Conversations [][]string `yaml:"conversations"`
}

type pair struct {
	prompt   string // normalized
	response string
}

// Corpus picks the response whose prompt is closest to the input.
type Corpus struct {
	mu    sync.RWMutex
	pairs []pair
}

// New returns a corpus trained on the built-in conversations.
func New() (*Corpus, error) {
	c := &Corpus{}
	if err := c.Train(builtin); err != nil {
		return nil, fmt.Errorf("builtin corpus: %w", err)
	}
	return c, nil
}

// Train adds the conversations of a YAML corpus document.
func (c *Corpus) Train(data []byte) error {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse corpus: %w", err)
	}

	var added []pair
	for _, conv := range doc.Conversations {
		for i := 1; i < len(conv); i++ {
			prompt := normalize(conv[i-1])
			if prompt == "" || strings.TrimSpace(conv[i]) == "" {
				continue
			}
			added = append(added, pair{prompt: prompt, response: strings.TrimSpace(conv[i])})
		}
	}

	c.mu.Lock()
	c.pairs = append(c.pairs, added...)
	c.mu.Unlock()
	return nil
}

// TrainFile adds the conversations of the YAML corpus at path.
func (c *Corpus) TrainFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read corpus %s: %w", path, err)
	}
	return c.Train(data)
}

// Size reports the number of learned statement/response pairs.
func (c *Corpus) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pairs)
}

// Reply returns the response of the closest known statement. Confidence is the
// Levenshtein similarity ratio between the input and that statement.
func (c *Corpus) Reply(ctx context.Context, text string) (string, float64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	in := normalize(text)

	c.mu.RLock()
	defer c.mu.RUnlock()

	best, confidence := -1, 0.0
	for i, p := range c.pairs {
		if r := similarity(in, p.prompt); r > confidence {
			best, confidence = i, r
			if r == 1 {
				break
			}
		}
	}
	if best < 0 {
		return DefaultResponse, 0, nil
	}
	return c.pairs[best].response, confidence, nil
}

func similarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := max(la, lb)
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// normalize lower-cases text, drops punctuation and collapses whitespace.
func normalize(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
