package main

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var clientAddr string

var clientCmd = &cobra.Command{
	Use:   "client [command] [args...]",
	Short: "Send one line-protocol command to a running dids server",
	Long: `client is a thin convenience wrapper around the TCP protocol, for
manual testing — the spec treats the command-line client as an external
collaborator outside the core's scope.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClient,
}

func init() {
	clientCmd.Flags().StringVar(&clientAddr, "addr", "localhost:9090", "server address")
	rootCmd.AddCommand(clientCmd)
}

func runClient(cmd *cobra.Command, args []string) error {
	conn, err := net.DialTimeout("tcp", clientAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", clientAddr, err)
	}
	defer conn.Close()

	line := strings.Join(args, " ") + "\n"
	if _, err := conn.Write([]byte(line)); err != nil {
		return fmt.Errorf("failed to write command: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		fmt.Println(scanner.Text())
	}
	return scanner.Err()
}
