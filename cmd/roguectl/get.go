package main

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"
)

var getAddr string

var getCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Read a named variable through a running process's control endpoint.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := net.DialTimeout("tcp", getAddr, 5*time.Second)
		if err != nil {
			return fmt.Errorf("roguectl: dial %s: %w", getAddr, err)
		}
		defer conn.Close()

		if _, err := fmt.Fprintf(conn, "GET %s\n", args[0]); err != nil {
			return fmt.Errorf("roguectl: write request: %w", err)
		}

		reply, err := bufio.NewReader(conn).ReadString('\n')
		if err != nil {
			return fmt.Errorf("roguectl: read response: %w", err)
		}
		fmt.Print(reply)
		return nil
	},
}

func init() {
	getCmd.Flags().StringVar(&getAddr, "addr", "127.0.0.1:8081", "control endpoint request-socket address")
	rootCmd.AddCommand(getCmd)
}
