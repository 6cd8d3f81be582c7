package main

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/dropin/internal/config"
	"github.com/alfredjeanlab/dropin/internal/store/dynamo"
	"github.com/alfredjeanlab/dropin/internal/store/postgres"
	"github.com/spf13/cobra"
)

var createTableCmd = &cobra.Command{
	Use:               "create-table",
	Short:             "Provision the runs table (DynamoDB) or schema (Postgres)",
	GroupID:           "system",
	PersistentPreRunE: localCommand,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()

		if cfg.Store == config.StorePostgres {
			// postgres.New applies pending migrations.
			st, err := postgres.New(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer st.Close()
			fmt.Println("Postgres schema is up to date.")
			return nil
		}

		st, err := dynamo.New(ctx, cfg.TableName, cfg.AWSRegion, cfg.DynamoEndpoint)
		if err != nil {
			return err
		}
		created, err := st.EnsureTable(ctx)
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("Created table %s.\n", st.Table())
		} else {
			fmt.Printf("Table %s already exists.\n", st.Table())
		}
		return nil
	},
}
