package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFilterQuery(t *testing.T) {
	t.Run("empty query means no filters", func(t *testing.T) {
		assert.True(t, parseFilterQuery("").Empty())
		assert.True(t, parseFilterQuery("   ").Empty())
	})

	t.Run("bare words are tags", func(t *testing.T) {
		spec := parseFilterQuery("prod linux")
		assert.Equal(t, []string{"prod", "linux"}, spec.Tags)
	})

	t.Run("key value terms", func(t *testing.T) {
		spec := parseFilterQuery("tags=prod,linux version=17. status=online type=instance_type paused=true")
		assert.Equal(t, []string{"prod", "linux"}, spec.Tags)
		assert.Equal(t, "17.", spec.VersionPrefix)
		assert.Equal(t, "online", spec.Status)
		assert.Equal(t, "instance_type", spec.Type)
		if assert.NotNil(t, spec.Paused) {
			assert.True(t, *spec.Paused)
		}
	})

	t.Run("trailing comma in tag list is ignored", func(t *testing.T) {
		spec := parseFilterQuery("tags=prod,")
		assert.Equal(t, []string{"prod"}, spec.Tags)
	})
}
