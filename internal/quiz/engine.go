package quiz

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/ashureev/careerbot/internal/domain"
)

// ResultSize is the number of categories reported when an inventory completes.
const ResultSize = 2

// ErrProgressOutOfRange means a session points past the end of its bank.
var ErrProgressOutOfRange = errors.New("inventory progress out of range")

// Step is the outcome of answering one question.
type Step struct {
	State domain.InventoryState
	// Next is the question to ask, nil when Done.
	Next *Question
	Done bool
	// Top holds up to ResultSize categories, highest first, when Done.
	Top []string
}

// Engine advances inventory sessions through their banks.
type Engine struct {
	banks Banks
}

// NewEngine creates an engine over banks.
func NewEngine(banks Banks) *Engine {
	return &Engine{banks: banks}
}

// Bank returns the bank for kind.
func (e *Engine) Bank(kind domain.InventoryKind) (*Bank, error) {
	return e.banks.Get(kind)
}

// Start returns the entry state for kind and its first question.
func (e *Engine) Start(kind domain.InventoryKind) (domain.InventoryState, Question, error) {
	b, err := e.banks.Get(kind)
	if err != nil {
		return domain.InventoryState{}, Question{}, err
	}
	st := domain.InventoryState{Kind: kind, Progress: 0, Scores: map[string]int{}}
	return st, b.Questions[0], nil
}

// Answer records a yes/no answer to the question at st.Progress.
// st is not modified; the returned Step carries the new state.
func (e *Engine) Answer(st domain.InventoryState, yes bool) (Step, error) {
	b, err := e.banks.Get(st.Kind)
	if err != nil {
		return Step{}, err
	}
	if st.Progress < 0 || st.Progress >= b.Len() {
		return Step{}, fmt.Errorf("%w: %d of %d", ErrProgressOutOfRange, st.Progress, b.Len())
	}

	next := domain.InventoryState{
		Kind:     st.Kind,
		Progress: st.Progress,
		Scores:   make(map[string]int, len(st.Scores)+1),
	}
	maps.Copy(next.Scores, st.Scores)

	if yes {
		next.Scores[b.Questions[st.Progress].Category]++
	}
	next.Progress++

	if next.Progress < b.Len() {
		q := b.Questions[next.Progress]
		return Step{State: next, Next: &q}, nil
	}
	return Step{State: next, Done: true, Top: Top(b, next.Scores, ResultSize)}, nil
}

// Top ranks the categories of b by score, highest first, and returns at most n.
// Ties keep declaration order. Categories without points are left out.
func Top(b *Bank, scores map[string]int, n int) []string {
	type ranked struct {
		category string
		score    int
	}
	var rs []ranked
	for _, c := range b.Categories() {
		if s := scores[c]; s > 0 {
			rs = append(rs, ranked{category: c, score: s})
		}
	}
	slices.SortStableFunc(rs, func(a, b ranked) int {
		return cmp.Compare(b.score, a.score)
	})
	if len(rs) > n {
		rs = rs[:n]
	}
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.category)
	}
	return out
}
