package main

import (
	"fmt"
	"strings"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/spf13/cobra"
)

var (
	flagType  string
	flagTitle string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a meeting and print its room id",
	RunE: func(cmd *cobra.Command, args []string) error {
		room, err := newAPI().CreateMeeting(cmd.Context(), domain.RoomType(flagType), flagTitle)
		if err != nil {
			return err
		}
		content := fmt.Sprintf("Meeting created\n\nRoom ID: %s\nType:    %s",
			UserStyle.Render(string(room)), orDefault(flagType, string(domain.RoomTypeP2P)))
		fmt.Println(BoxStyle.Render(content))
		return nil
	},
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().StringVar(&flagType, "type", "", "Room type: p2p or sfu")
	createCmd.Flags().StringVar(&flagTitle, "title", "", "Meeting title")
}
