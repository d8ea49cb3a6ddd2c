package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/semsearch/internal/app"
	"github.com/kailas-cloud/semsearch/internal/usecase/ingest"
)

var (
	recreateEntities []string
	recreateYes      bool
)

var recreateCmd = &cobra.Command{
	Use:   "recreate",
	Short: "Drop and rebuild collections, then ingest them",
	Long: `Drops the collections of the given entity types with all their
documents, creates them again for the current embedding dimension and
ingests them. Use it after switching embedding models.`,
	Args: cobra.NoArgs,
	RunE: runRecreate,
}

func init() {
	recreateCmd.Flags().StringSliceVarP(&recreateEntities, "entity", "e", nil, "entity types to rebuild (required)")
	recreateCmd.Flags().BoolVar(&recreateYes, "yes", false, "confirm that existing documents will be deleted")
	rootCmd.AddCommand(recreateCmd)
}

func runRecreate(cmd *cobra.Command, _ []string) error {
	types, err := parseEntities(recreateEntities)
	if err != nil {
		return err
	}
	if len(types) == 0 {
		return errors.New("recreate needs at least one --entity")
	}
	if !recreateYes {
		return errors.New("recreate deletes every document of the collection; pass --yes to confirm")
	}
	return ingestTypes(cmd, types, ingest.Options{Recreate: true}, app.Options{SkipDimensionCheck: true})
}
