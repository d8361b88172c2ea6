package conductor

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Command identifies one of the fixed report types. The set is closed;
// dispatch goes through a lookup table so adding a command without a
// predicate decision is a compile-time-visible omission in commandSpecs.
type Command int

const (
	// CommandFetch is the raw listing, no classification.
	CommandFetch Command = iota
	// CommandLights lists fully healthy runners (every manager online).
	CommandLights
	// CommandSwitch lists degraded runners (managers present, none online).
	CommandSwitch
	// CommandWorkers is the flattened manager-centric view.
	CommandWorkers
	// CommandFlames lists runners whose managers have all gone stale.
	CommandFlames
	// CommandEmpty lists runners with no managers at all.
	CommandEmpty
	// CommandRotate lists runners with more than one manager, a rotation
	// caught mid-flight.
	CommandRotate
)

// Commands holds every command in menu order.
var Commands = []Command{
	CommandFetch,
	CommandLights,
	CommandSwitch,
	CommandWorkers,
	CommandFlames,
	CommandEmpty,
	CommandRotate,
}

type commandSpec struct {
	name        string
	description string
	// predicate selects records after filtering; nil means keep everything.
	predicate func(*Classifier, EnrichedRunner) bool
}

var commandSpecs = map[Command]commandSpec{
	CommandFetch: {
		name:        "fetch",
		description: "List all runners",
	},
	CommandLights: {
		name:        "lights",
		description: "Health check: runners with every manager online",
		predicate:   (*Classifier).FullyHealthy,
	},
	CommandSwitch: {
		name:        "switch",
		description: "Runners whose managers are all offline",
		predicate:   (*Classifier).Degraded,
	},
	CommandWorkers: {
		name:        "workers",
		description: "Flattened view of every runner manager",
	},
	CommandFlames: {
		name:        "flames",
		description: "Runners not contacted within the stale threshold",
		predicate:   (*Classifier).Stale,
	},
	CommandEmpty: {
		name:        "empty",
		description: "Runners with no managers",
		predicate:   (*Classifier).Unmanaged,
	},
	CommandRotate: {
		name:        "rotate",
		description: "Runners with multiple managers (rotation in progress)",
		predicate:   (*Classifier).Rotating,
	},
}

func (c Command) String() string {
	if spec, ok := commandSpecs[c]; ok {
		return spec.name
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// MarshalJSON emits the command name so JSON output is self-describing.
func (c Command) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// Description returns the one-line help text for the command.
func (c Command) Description() string {
	return commandSpecs[c].description
}

// ParseCommand maps a command name to its Command value.
func ParseCommand(s string) (Command, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for cmd, spec := range commandSpecs {
		if spec.name == name {
			return cmd, nil
		}
	}
	return 0, fmt.Errorf("unknown command %q", s)
}
