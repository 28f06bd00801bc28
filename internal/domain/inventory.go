package domain

import (
	"fmt"
	"strings"
)

// InventoryKind selects one of the question banks.
type InventoryKind int

const (
	// InventoryPersonality is the RIASEC personality inventory.
	InventoryPersonality InventoryKind = iota + 1
	// InventoryMotivation is the career motivation anchors inventory.
	InventoryMotivation
)

// Keyword returns the word a user types to start the inventory.
func (k InventoryKind) Keyword() string {
	switch k {
	case InventoryPersonality:
		return "riasec"
	case InventoryMotivation:
		return "motivation"
	default:
		return ""
	}
}

func (k InventoryKind) String() string {
	switch k {
	case InventoryPersonality:
		return "personality"
	case InventoryMotivation:
		return "motivation"
	default:
		return fmt.Sprintf("InventoryKind(%d)", int(k))
	}
}

// ParseInventoryKind maps a bank name ("personality", "motivation") or a
// start keyword ("riasec") to its kind.
func ParseInventoryKind(s string) (InventoryKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "personality", "riasec":
		return InventoryPersonality, nil
	case "motivation":
		return InventoryMotivation, nil
	default:
		return 0, fmt.Errorf("unknown inventory %q", s)
	}
}

// MarshalText encodes the kind by its bank name.
func (k InventoryKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *InventoryKind) UnmarshalText(text []byte) error {
	parsed, err := ParseInventoryKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
