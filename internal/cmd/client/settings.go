package client

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

// NewInterestsCommand constructs the `interests` command group.
func NewInterestsCommand(baseURL BaseURLFunc) *cobra.Command {
	interestsCmd := &cobra.Command{Use: "interests", Short: "Interest selection operations"}

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Show a subscriber's interest selection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			subscriber, _ := cmd.Flags().GetString("subscriber")
			if subscriber == "" {
				return fmt.Errorf("--subscriber is required")
			}
			u := resolveBaseURL(baseURL) + "/v1/interests?subscriber=" + url.QueryEscape(subscriber)
			var sel map[string][]string
			if err := doJSON(cmd.Context(), http.MethodGet, u, nil, &sel); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), sel)
		},
	}
	getCmd.Flags().StringP("subscriber", "s", "", "Subscriber id")

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Set the interest groups for one category",
		RunE: func(cmd *cobra.Command, _ []string) error {
			subscriber, _ := cmd.Flags().GetString("subscriber")
			category, _ := cmd.Flags().GetString("category")
			groups, _ := cmd.Flags().GetStringSlice("groups")
			if subscriber == "" || category == "" {
				return fmt.Errorf("--subscriber and --category are required")
			}
			u := resolveBaseURL(baseURL) + "/v1/interests?subscriber=" + url.QueryEscape(subscriber)
			body := map[string]any{"category": category, "groups": groups}
			return doJSON(cmd.Context(), http.MethodPut, u, body, nil)
		},
	}
	setCmd.Flags().StringP("subscriber", "s", "", "Subscriber id")
	setCmd.Flags().StringP("category", "c", "", "Tracker category (market, highlow, trend, surge)")
	setCmd.Flags().StringSliceP("groups", "g", nil, "Interest group names")

	interestsCmd.AddCommand(getCmd, setCmd)
	return interestsCmd
}

// NewFilterCommand constructs the `filter` command group.
func NewFilterCommand(baseURL BaseURLFunc) *cobra.Command {
	filterCmd := &cobra.Command{Use: "filter", Short: "Filter criteria operations"}

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Show a subscriber's filter criteria",
		RunE: func(cmd *cobra.Command, _ []string) error {
			subscriber, _ := cmd.Flags().GetString("subscriber")
			if subscriber == "" {
				return fmt.Errorf("--subscriber is required")
			}
			u := resolveBaseURL(baseURL) + "/v1/filters?subscriber=" + url.QueryEscape(subscriber)
			var resp map[string]any
			if err := doJSON(cmd.Context(), http.MethodGet, u, nil, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	getCmd.Flags().StringP("subscriber", "s", "", "Subscriber id")

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Set a subscriber's filter criteria",
		RunE: func(cmd *cobra.Command, _ []string) error {
			subscriber, _ := cmd.Flags().GetString("subscriber")
			enabled, _ := cmd.Flags().GetBool("enabled")
			minCount, _ := cmd.Flags().GetInt("min-count")
			expression, _ := cmd.Flags().GetString("expression")
			if subscriber == "" {
				return fmt.Errorf("--subscriber is required")
			}
			u := resolveBaseURL(baseURL) + "/v1/filters?subscriber=" + url.QueryEscape(subscriber)
			body := map[string]any{
				"enabled":    enabled,
				"min_count":  minCount,
				"expression": expression,
			}
			return doJSON(cmd.Context(), http.MethodPut, u, body, nil)
		},
	}
	setCmd.Flags().StringP("subscriber", "s", "", "Subscriber id")
	setCmd.Flags().Bool("enabled", true, "Enable criteria filtering")
	setCmd.Flags().Int("min-count", 0, "Minimum carried count for high/low events (0 = server default)")
	setCmd.Flags().String("expression", "", "Optional CEL predicate, e.g. 'pct_change > 1.0'")

	filterCmd.AddCommand(getCmd, setCmd)
	return filterCmd
}
