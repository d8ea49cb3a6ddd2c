package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/semsearch/internal/app"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the collections behind each entity type",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	svc, err := openContext(cmd.Context(), app.Options{SkipDimensionCheck: true})
	if err != nil {
		return err
	}
	defer closeContext(svc)

	statuses, err := svc.Collections.Describe(cmd.Context(), svc.Registry.Collections())
	if err != nil {
		return err
	}
	cmd.Printf("embedding dimension: %d\n", svc.Dim)
	for _, s := range statuses {
		if !s.Exists {
			cmd.Printf("%-8s %-20s missing\n", s.Entity, s.Collection)
			continue
		}
		cmd.Printf("%-8s %-20s dim=%d docs=%d created=%s\n",
			s.Entity, s.Collection, s.VectorDim, s.Docs,
			time.UnixMilli(s.CreatedAt).UTC().Format(time.RFC3339))
	}
	return nil
}
