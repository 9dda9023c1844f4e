package main

import (
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API, websocket feed and scheduled refresh cycles",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, _, cleanup, err := buildApp()
		if err != nil {
			return err
		}
		defer cleanup()
		return app.Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
