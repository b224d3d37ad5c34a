package sync

import (
	"errors"
	"fmt"

	"github.com/outreachcrm/crmsync/internal/schema"
)

// ErrUnknownModel reports a model name outside the configured set.
// This is a configuration error and aborts the run.
var ErrUnknownModel = errors.New("unknown model")

// Direction selects which way records flow.
type Direction string

const (
	DirectionToRemote   Direction = "to_remote"
	DirectionFromRemote Direction = "from_remote"
	DirectionBoth       Direction = "both"
)

// ParseDirection validates a direction argument.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionToRemote, DirectionFromRemote, DirectionBoth:
		return Direction(s), nil
	}
	return "", fmt.Errorf("unknown direction %q (want to_remote, from_remote or both)", s)
}

// Each expands "both" into its two concrete directions.
func (d Direction) Each() []Direction {
	if d == DirectionBoth {
		return []Direction{DirectionToRemote, DirectionFromRemote}
	}
	return []Direction{d}
}

// Strategy decides which side wins when a record exists on both stores.
type Strategy string

const (
	StrategyLocal  Strategy = "local"
	StrategyRemote Strategy = "remote"
	StrategySkip   Strategy = "skip"
)

// ParseStrategy validates a conflict-strategy argument.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyLocal, StrategyRemote, StrategySkip:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown conflict strategy %q (want local, remote or skip)", s)
}

// Overwrites reports whether an existing destination row is overwritten for
// the given direction. The winning side is the strategy's side: syncing
// to_remote only overwrites when local wins, from_remote only when remote
// wins. skip never overwrites.
func (s Strategy) Overwrites(d Direction) bool {
	switch s {
	case StrategyLocal:
		return d == DirectionToRemote
	case StrategyRemote:
		return d == DirectionFromRemote
	}
	return false
}

// Model is one syncable record shape: a base table plus an optional variant
// table sharing the base primary key.
type Model struct {
	Name    string
	Base    *schema.TableDefinition
	Variant *schema.TableDefinition
}

// Tables returns the model's tables in write order, base first, so a variant
// row is never created before its base row.
func (m Model) Tables() []*schema.TableDefinition {
	if m.Variant == nil {
		return []*schema.TableDefinition{m.Base}
	}
	return []*schema.TableDefinition{m.Base, m.Variant}
}

// ModelsFor resolves a model argument (person, church, contact or all)
// against the registry.
func ModelsFor(reg *schema.Registry, name string) ([]Model, error) {
	lookup := func(base, variant string) (Model, error) {
		b, ok := reg.Table(base)
		if !ok {
			return Model{}, fmt.Errorf("registry is missing table %s", base)
		}
		m := Model{Name: name, Base: b}
		if variant != "" {
			v, ok := reg.Table(variant)
			if !ok {
				return Model{}, fmt.Errorf("registry is missing table %s", variant)
			}
			m.Variant = v
		}
		return m, nil
	}

	switch name {
	case "person":
		m, err := lookup("contacts", "people")
		if err != nil {
			return nil, err
		}
		return []Model{m}, nil
	case "church":
		m, err := lookup("contacts", "churches")
		if err != nil {
			return nil, err
		}
		return []Model{m}, nil
	case "contact":
		m, err := lookup("contacts", "")
		if err != nil {
			return nil, err
		}
		return []Model{m}, nil
	case "all":
		var models []Model
		for _, n := range []string{"person", "church"} {
			ms, err := ModelsFor(reg, n)
			if err != nil {
				return nil, err
			}
			models = append(models, ms...)
		}
		return models, nil
	}
	return nil, fmt.Errorf("%w: %q (want person, church, contact or all)", ErrUnknownModel, name)
}
