package main

import (
	"fmt"
	"time"

	"github.com/dkeye/Meet/internal/auth"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Mint a development token signed with the server secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := auth.NewVerifier(viper.GetString("jwt-secret"), viper.GetString("issuer"))
		if err != nil {
			return err
		}
		tok, err := v.Issue(domain.UserID(args[0]), viper.GetDuration("ttl"))
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().String("jwt-secret", "dev-secret", "HMAC secret shared with the server")
	tokenCmd.Flags().String("issuer", "", "Token issuer")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	_ = viper.BindPFlags(tokenCmd.Flags())
}
