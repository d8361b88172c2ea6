package cli

import (
	"github.com/spf13/cobra"

	"github.com/fleetops/igor/internal/conductor"
)

// filterFlags collects the client- and server-side filter options shared
// by every report command.
type filterFlags struct {
	tags          []string
	versionPrefix string
	status        string
	runnerType    string
	paused        bool
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.tags, "tags", nil, "Only runners carrying every listed tag")
	cmd.Flags().StringVar(&f.versionPrefix, "version-prefix", "", "Only runners whose version starts with this prefix")
	cmd.Flags().StringVar(&f.status, "status", "", "Server-side status filter (online|offline|stale|never_contacted)")
	cmd.Flags().StringVar(&f.runnerType, "type", "", "Server-side type filter (instance_type|group_type|project_type)")
	cmd.Flags().BoolVar(&f.paused, "paused", false, "Server-side paused filter")
}

// spec converts the parsed flags into a FilterSpec. The paused flag is a
// tri-state: absent means no filter at all.
func (f *filterFlags) spec(cmd *cobra.Command) conductor.FilterSpec {
	fs := conductor.FilterSpec{
		Tags:          f.tags,
		VersionPrefix: f.versionPrefix,
		Status:        f.status,
		Type:          f.runnerType,
	}
	if cmd.Flags().Changed("paused") {
		paused := f.paused
		fs.Paused = &paused
	}
	return fs
}
