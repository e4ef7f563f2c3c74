package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/GyroZepelix/mithril-content/internal/auth"
	"github.com/GyroZepelix/mithril-content/internal/config"
)

var (
	tokenCaller string
	tokenTTL    time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a service token for a calling service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if cfg.ServiceTokenSecret == "" {
			return fmt.Errorf("MITHRIL_SERVICE_TOKEN_SECRET is required")
		}

		token, err := auth.CreateServiceToken(tokenCaller, cfg.ServiceTokenSecret, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenCaller, "caller", "", "name of the calling service")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", auth.DefaultTokenTTL, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("caller")
}
