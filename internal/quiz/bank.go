// Package quiz holds the question banks and the inventory scoring engine.
package quiz

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/ashureev/careerbot/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed banks.yaml
var defaultBanks []byte

// ErrUnknownInventory is returned for an inventory kind with no bank.
var ErrUnknownInventory = errors.New("unknown inventory")

// Question is one immutable yes/no prompt scored toward a category.
type Question struct {
	Category string `yaml:"category"`
	Prompt   string `yaml:"prompt"`
}

// Bank is an ordered question sequence.
type Bank struct {
	Kind      domain.InventoryKind `yaml:"-"`
	Title     string               `yaml:"title"`
	Questions []Question           `yaml:"questions"`
}

// Len returns the number of questions.
func (b *Bank) Len() int {
	return len(b.Questions)
}

// Categories returns the distinct categories in declaration order.
func (b *Bank) Categories() []string {
	seen := make(map[string]bool, len(b.Questions))
	var out []string
	for _, q := range b.Questions {
		if !seen[q.Category] {
			seen[q.Category] = true
			out = append(out, q.Category)
		}
	}
	return out
}

func (b *Bank) validate() error {
	if len(b.Questions) == 0 {
		return fmt.Errorf("%s bank has no questions", b.Kind)
	}
	for i, q := range b.Questions {
		if q.Category == "" {
			return fmt.Errorf("%s question %d: category is empty", b.Kind, i)
		}
		if q.Prompt == "" {
			return fmt.Errorf("%s question %d: prompt is empty", b.Kind, i)
		}
	}
	return nil
}

// Banks maps inventory kinds to their question banks.
type Banks map[domain.InventoryKind]*Bank

// Get returns the bank for kind.
func (bs Banks) Get(kind domain.InventoryKind) (*Bank, error) {
	b, ok := bs[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInventory, kind)
	}
	return b, nil
}

type bankFile struct {
	Personality *Bank `yaml:"personality"`
	Motivation  *Bank `yaml:"motivation"`
}

// ParseBanks decodes a YAML document holding both banks.
func ParseBanks(data []byte) (Banks, error) {
	var f bankFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode question banks: %w", err)
	}
	if f.Personality == nil || f.Motivation == nil {
		return nil, errors.New("question banks must define both personality and motivation")
	}
	f.Personality.Kind = domain.InventoryPersonality
	f.Motivation.Kind = domain.InventoryMotivation

	banks := Banks{
		domain.InventoryPersonality: f.Personality,
		domain.InventoryMotivation:  f.Motivation,
	}
	for _, b := range banks {
		if err := b.validate(); err != nil {
			return nil, err
		}
	}
	return banks, nil
}

// DefaultBanks returns the built-in banks.
func DefaultBanks() Banks {
	banks, err := ParseBanks(defaultBanks)
	if err != nil {
		panic("quiz: embedded banks are invalid: " + err.Error())
	}
	return banks
}

// LoadBanks reads banks from path, or returns the built-in ones when path is empty.
func LoadBanks(path string) (Banks, error) {
	if path == "" {
		return DefaultBanks(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question banks: %w", err)
	}
	return ParseBanks(data)
}
