package main

import (
	"bufio"
	"fmt"
	"net"

	"github.com/spf13/cobra"
)

var watchAddr string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream unsolicited publish notifications from a running process's control endpoint.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := net.Dial("tcp", watchAddr)
		if err != nil {
			return fmt.Errorf("roguectl: dial %s: %w", watchAddr, err)
		}
		defer conn.Close()

		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			fmt.Println(scanner.Text())
		}
		return scanner.Err()
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchAddr, "addr", "127.0.0.1:8082", "control endpoint publish-socket address")
	rootCmd.AddCommand(watchCmd)
}
