package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crestbank/teller/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tellerd",
		Short: "Teller daemon and CLI",
		Long:  "Teller daemon for serving the chat API and managing corpus acquisition and indexing",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.CrawlCmd())
	rootCmd.AddCommand(cli.PDFsCmd())
	rootCmd.AddCommand(cli.IndexCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
