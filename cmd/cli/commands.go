package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

var (
	settleRerun bool
	settleAsync bool
)

func init() {
	settleCmd.Flags().BoolVar(&settleRerun, "rerun", false, "Roll back a previous settlement and settle again")
	settleCmd.Flags().BoolVar(&settleAsync, "async", false, "Queue the settlement instead of running it synchronously")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(settleCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(tournamentsCmd)
	rootCmd.AddCommand(metricsCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest("GET", "/health")
	},
}

var settleCmd = &cobra.Command{
	Use:   "settle <tournament-id>",
	Short: "Settle a tournament into season ratings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoint := fmt.Sprintf("/tournaments/%s/rate", url.PathEscape(args[0]))
		query := url.Values{}
		if settleRerun {
			query.Set("rerun", "true")
		}
		if settleAsync {
			query.Set("async", "true")
		}
		if len(query) > 0 {
			endpoint += "?" + query.Encode()
		}
		return performRequest("POST", endpoint)
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the active season leaderboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest("GET", "/leaderboard")
	},
}

var tournamentsCmd = &cobra.Command{
	Use:   "tournaments",
	Short: "List the active season's tournaments",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest("GET", "/tournaments")
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest("GET", "/metrics")
	},
}

func performRequest(method, endpoint string) error {
	target := host + endpoint
	fmt.Printf("Making request to %s\n", target)

	req, err := http.NewRequest(method, target, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if adminToken != "" {
		req.Header.Set("Authorization", "Bearer "+adminToken)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println("Response Body:")
	fmt.Println(string(body))

	return nil
}
