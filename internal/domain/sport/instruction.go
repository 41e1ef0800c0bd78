package sport

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
)

// Instruction is the system prompt that tells a model how to coach one sport
// and which JSON shape to answer with.
type Instruction struct {
	Sport        entity.Sport
	SystemPrompt string
}

var instructions = map[entity.Sport]Instruction{
	entity.SportGolf: {Sport: entity.SportGolf, SystemPrompt: golfSystemPrompt},
}

// Lookup returns the instruction for s. Unknown sports are a configuration error.
func Lookup(s entity.Sport) (Instruction, error) {
	in, ok := instructions[s]
	if !ok {
		return Instruction{}, &entity.ConfigurationError{
			Msg: fmt.Sprintf("unknown sport %q (available: %s)", s, strings.Join(Names(), ", ")),
		}
	}
	return in, nil
}

// Names lists the registered sports in sorted order.
func Names() []string {
	out := make([]string, 0, len(instructions))
	for s := range instructions {
		out = append(out, string(s))
	}
	sort.Strings(out)
	return out
}
