package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GyroZepelix/mithril-content/internal/audit"
	"github.com/GyroZepelix/mithril-content/internal/config"
	"github.com/GyroZepelix/mithril-content/internal/contents"
	"github.com/GyroZepelix/mithril-content/internal/model"
	"github.com/GyroZepelix/mithril-content/internal/schema"
	"github.com/GyroZepelix/mithril-content/internal/unique"
)

var importTenant model.Tenant

var importCmd = &cobra.Command{
	Use:   "import FILE...",
	Short: "Create Contents from YAML definitions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := importTenant.Validate(); err != nil {
			return err
		}

		defs, err := schema.LoadDefinitions(args...)
		if err != nil {
			return err
		}

		db, err := connect(config.Load())
		if err != nil {
			return err
		}
		defer db.Close()

		changes := audit.NewService(audit.NewRepository(db))
		changes.Start()
		defer changes.Shutdown(context.Background())

		svc, err := contents.NewService(&contents.Params{
			Store:     contents.NewRepository(db),
			Validator: schema.NewValidator(unique.NewChecker(unique.NewPostgresLookup(db))),
			Changes:   changes,
		})
		if err != nil {
			return err
		}

		failed := 0
		for _, def := range defs {
			input, err := def.Input()
			if err != nil {
				return err
			}

			c, errs, err := svc.Create(cmd.Context(), importTenant, input)
			if err != nil {
				return fmt.Errorf("importing %q: %w", def.Code, err)
			}
			if errs.Len() > 0 {
				failed++
				fmt.Printf("%s: rejected\n", def.Code)
				for _, fe := range errs.List() {
					fmt.Printf("  %s: %s\n", fe.Field, fe.Message)
				}
				continue
			}
			fmt.Printf("%s: created %s\n", c.Code, c.ID)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d definitions rejected", failed, len(defs))
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importTenant.UserID, "user", "", "owner user id")
	importCmd.Flags().StringVar(&importTenant.ProjectID, "project", "", "owner project id")
	_ = importCmd.MarkFlagRequired("user")
	_ = importCmd.MarkFlagRequired("project")
}
