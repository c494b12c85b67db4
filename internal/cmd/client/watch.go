package client

import (
	"bufio"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// NewWatchCommand constructs the `watch` command: it subscribes to the SSE
// stream and prints each emission payload as a line of JSON.
func NewWatchCommand(baseURL BaseURLFunc) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Subscribe to the emission stream and print payloads",
		RunE: func(cmd *cobra.Command, _ []string) error {
			subscriber, _ := cmd.Flags().GetString("subscriber")
			kinds, _ := cmd.Flags().GetStringSlice("events")

			u := resolveBaseURL(baseURL) + "/v1/subscribe"
			if subscriber != "" {
				u += "?subscriber=" + url.QueryEscape(subscriber)
			}
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, u, nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("subscribe: %s", resp.Status)
			}

			wanted := map[string]bool{}
			for _, k := range kinds {
				wanted[k] = true
			}

			out := cmd.OutOrStdout()
			sc := bufio.NewScanner(resp.Body)
			sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
			event := ""
			for sc.Scan() {
				line := sc.Text()
				switch {
				case strings.HasPrefix(line, "event: "):
					event = strings.TrimPrefix(line, "event: ")
				case strings.HasPrefix(line, "data: "):
					if len(wanted) == 0 || wanted[event] {
						fmt.Fprintln(out, strings.TrimPrefix(line, "data: "))
					}
				}
			}
			if err := sc.Err(); err != nil && cmd.Context().Err() == nil {
				return err
			}
			return nil
		},
	}
	watchCmd.Flags().StringP("subscriber", "s", "", "Subscriber id (generated when empty)")
	watchCmd.Flags().StringSlice("events", nil, "Event kinds to print (default all)")
	return watchCmd
}
