package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var statsAddr string

var statsCmd = &cobra.Command{
	Use:   "stats [name]",
	Short: "Dump diagnostics counters from a running process's diag endpoint.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := "http://" + statsAddr + "/stats"
		if len(args) == 1 {
			url += "/" + args[0]
		}

		resp, err := http.Get(url)
		if err != nil {
			return fmt.Errorf("roguectl: fetching %s: %w", url, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("roguectl: reading response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("roguectl: %s: %s", url, body)
		}

		var pretty map[string]any
		if err := json.Unmarshal(body, &pretty); err != nil {
			// A Provider may render a value that is not a JSON object
			// (a number, a list); print such a body raw.
			fmt.Println(string(body))
			return nil
		}
		out, err := json.MarshalIndent(pretty, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsAddr, "addr", "127.0.0.1:8080", "diag endpoint address")
	rootCmd.AddCommand(statsCmd)
}
