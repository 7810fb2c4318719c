package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/restclient/restclient/internal/api"
)

func newURLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "url",
		Short: "Build request URLs and query strings offline",
	}
	cmd.AddCommand(newURLJoinCmd())
	cmd.AddCommand(newURLQueryCmd())
	return cmd
}

func newURLJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <base> <path>",
		Short: "Join a base URL and a path with exactly one slash",
		Example: `  restclient url join https://api.example.com/ /v1/users
  # https://api.example.com/v1/users`,
		Args: cobra.ExactArgs(2),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			joined := api.JoinURL(args[0], args[1])
			if isJSON(cmd) {
				return printJSON(cmd, map[string]string{"url": joined})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), joined)
			return nil
		}),
	}
}

func newURLQueryCmd() *cobra.Command {
	var ordered bool

	cmd := &cobra.Command{
		Use:   "query <key=value>...",
		Short: "Render key=value pairs as an encoded query string",
		Long: `Render key=value pairs as an encoded query string.

By default pairs are grouped by key, keys are emitted in sorted order and a
repeated key becomes a list. With --ordered pairs are emitted exactly in the
order given and pairs with an empty value are dropped.`,
		Example: `  restclient url query tag=a tag=b page=2
  # ?page=2&tag=a&tag=b

  restclient url query --ordered tag=a page=2 tag=b
  # ?tag=a&page=2&tag=b`,
		Args: cobra.MinimumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			var query string
			if ordered {
				params := make([]api.QueryParam, 0, len(args))
				for _, arg := range args {
					key, value, err := parseKeyValue("query parameter", arg)
					if err != nil {
						return err
					}
					params = append(params, api.QueryParam{Key: key, Value: value})
				}
				query = api.BuildQueryParams(params...)
			} else {
				values := make(map[string]any, len(args))
				for _, arg := range args {
					key, value, err := parseKeyValue("query parameter", arg)
					if err != nil {
						return err
					}
					switch existing := values[key].(type) {
					case nil:
						values[key] = value
					case string:
						values[key] = []string{existing, value}
					case []string:
						values[key] = append(existing, value)
					}
				}
				query = api.BuildQueryString(values)
			}

			if isJSON(cmd) {
				return printJSON(cmd, map[string]string{"query": query})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), query)
			return nil
		}),
	}

	cmd.Flags().BoolVar(&ordered, "ordered", false, "Keep argument order instead of sorting by key")
	return cmd
}
