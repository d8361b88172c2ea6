package conductor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	for _, cmd := range Commands {
		parsed, err := ParseCommand(cmd.String())
		require.NoError(t, err)
		assert.Equal(t, cmd, parsed)
	}

	parsed, err := ParseCommand("  LIGHTS ")
	require.NoError(t, err)
	assert.Equal(t, CommandLights, parsed)

	_, err = ParseCommand("explode")
	assert.Error(t, err)
}

func TestEveryCommandHasASpec(t *testing.T) {
	for _, cmd := range Commands {
		spec, ok := commandSpecs[cmd]
		require.True(t, ok, "command %v missing from dispatch table", cmd)
		assert.NotEmpty(t, spec.name)
		assert.NotEmpty(t, spec.description)
	}
	assert.Len(t, commandSpecs, len(Commands))
}
