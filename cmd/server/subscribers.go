package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"portfolio-api/internal/app"
	"portfolio-api/internal/config"
	"portfolio-api/internal/models"
	"portfolio-api/internal/repository"
)

func newSubscribersCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscribers",
		Short: "Administer stored subscribers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "export",
		Short: "Write all subscribers to stdout as JSON",
		Long: `Reads every subscriber from the configured store and prints the same
document GET /api/subscribers returns.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts)
		},
	})
	return cmd
}

func runExport(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := cmd.Context()
	store, err := app.OpenStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
	}
	defer store.Close()

	repo := repository.NewKVSubscriberRepository(store)
	subscribers, err := repo.GetAll(ctx)
	if err != nil {
		return err
	}

	out := models.ListSubscribersResponse{
		Subscribers: make(map[string]*models.Subscriber, len(subscribers)),
		StorageType: repo.StorageType(),
	}
	for _, s := range subscribers {
		out.Subscribers[s.ID] = s
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
