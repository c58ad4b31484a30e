package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dkeye/Meet/internal/app/presence"
	"github.com/dkeye/Meet/internal/app/rooms"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/r3labs/sse/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List live rooms",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := newAPI().Rooms(cmd.Context())
		if err != nil {
			return err
		}
		renderRooms(list)
		return nil
	},
}

func renderRooms(list []rooms.Summary) {
	if len(list) == 0 {
		fmt.Println(MutedStyle.Render("No live rooms"))
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Room", "Type", "Host", "Peers"})
	for _, r := range list {
		t.AppendRow(table.Row{r.RoomID, r.Type, r.HostID, r.Peers})
	}
	t.AppendFooter(table.Row{"", "", "Total", len(list)})
	t.Render()
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow rooms opening, changing and closing",
	RunE: func(cmd *cobra.Command, args []string) error {
		api := newAPI()
		c := sse.NewClient(api.EventsURL())
		if tok := viper.GetString("token"); tok != "" {
			c.Headers["Authorization"] = "Bearer " + tok
		}
		err := c.SubscribeRawWithContext(cmd.Context(), func(msg *sse.Event) {
			printRoomEvent(string(msg.Event), msg.Data)
		})
		if cmd.Context().Err() != nil {
			return nil
		}
		return err
	},
}

func printRoomEvent(kind string, data []byte) {
	switch kind {
	case "snapshot":
		var list []rooms.Summary
		if err := json.Unmarshal(data, &list); err != nil {
			PrintWarningf("bad snapshot: %v", err)
			return
		}
		renderRooms(list)
	case string(presence.RoomOpened), string(presence.RoomUpdated), string(presence.RoomClosed):
		var ev presence.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			PrintWarningf("bad %s event: %v", kind, err)
			return
		}
		PrintEventf("%-12s %s  type=%s host=%s peers=%d", kind, ev.Room.RoomID, ev.Room.Type, ev.Room.HostID, ev.Room.Peers)
	}
}

func init() {
	rootCmd.AddCommand(roomsCmd)
	rootCmd.AddCommand(watchCmd)
}
