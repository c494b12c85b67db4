package client

import (
	"github.com/spf13/cobra"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

// NewRoot constructs a root Cobra command for the SurgeCast client. It
// registers the watch, interests, filter, groups and symbols command groups.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "surgecast",
		Short: "SurgeCast client commands",
	}
	root.AddCommand(NewWatchCommand(baseURL))
	root.AddCommand(NewInterestsCommand(baseURL))
	root.AddCommand(NewFilterCommand(baseURL))
	root.AddCommand(NewGroupsCommand(baseURL))
	root.AddCommand(NewSymbolsCommand(baseURL))
	return root
}
