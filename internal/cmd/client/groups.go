package client

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

// NewGroupsCommand constructs the `groups` command group.
func NewGroupsCommand(baseURL BaseURLFunc) *cobra.Command {
	groupsCmd := &cobra.Command{Use: "groups", Short: "Interest group operations"}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List interest groups",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp map[string]any
			if err := doJSON(cmd.Context(), http.MethodGet, resolveBaseURL(baseURL)+"/v1/groups", nil, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	getCmd := &cobra.Command{
		Use:   "get [name]",
		Short: "Show a group's symbols",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u := resolveBaseURL(baseURL) + "/v1/groups/" + url.PathEscape(args[0])
			var resp map[string]any
			if err := doJSON(cmd.Context(), http.MethodGet, u, nil, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	setCmd := &cobra.Command{
		Use:   "set [name]",
		Short: "Set a group's symbol membership",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbols, _ := cmd.Flags().GetStringSlice("symbols")
			if len(symbols) == 0 {
				return fmt.Errorf("--symbols is required")
			}
			u := resolveBaseURL(baseURL) + "/v1/groups/" + url.PathEscape(args[0])
			return doJSON(cmd.Context(), http.MethodPut, u, map[string]any{"symbols": symbols}, nil)
		},
	}
	setCmd.Flags().StringSlice("symbols", nil, "Symbols in the group")

	groupsCmd.AddCommand(listCmd, getCmd, setCmd)
	return groupsCmd
}

// NewSymbolsCommand constructs the `symbols` command group for the upstream
// subscription.
func NewSymbolsCommand(baseURL BaseURLFunc) *cobra.Command {
	symbolsCmd := &cobra.Command{Use: "symbols", Short: "Upstream subscription operations"}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Show the active upstream symbol list",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp map[string]any
			if err := doJSON(cmd.Context(), http.MethodGet, resolveBaseURL(baseURL)+"/v1/symbols", nil, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Replace the upstream symbol list",
		RunE: func(cmd *cobra.Command, _ []string) error {
			symbols, _ := cmd.Flags().GetStringSlice("symbols")
			var resp map[string]any
			err := doJSON(cmd.Context(), http.MethodPut, resolveBaseURL(baseURL)+"/v1/symbols",
				map[string]any{"symbols": symbols}, &resp)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	setCmd.Flags().StringSlice("symbols", nil, "Symbols to subscribe upstream")

	coverageCmd := &cobra.Command{
		Use:   "coverage",
		Short: "Check coverage of required symbols",
		RunE: func(cmd *cobra.Command, _ []string) error {
			required, _ := cmd.Flags().GetStringSlice("required")
			var resp map[string]any
			err := doJSON(cmd.Context(), http.MethodPost, resolveBaseURL(baseURL)+"/v1/coverage",
				map[string]any{"required": required}, &resp)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	coverageCmd.Flags().StringSlice("required", nil, "Symbols that must be covered")

	symbolsCmd.AddCommand(listCmd, setCmd, coverageCmd)
	return symbolsCmd
}
