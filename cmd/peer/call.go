package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dkeye/Meet/internal/client"
	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/protocol"
	"github.com/pion/webrtc/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	flagSTUN     []string
	flagTURN     []string
	flagTURNUser string
	flagTURNPass string
)

var joinCmd = &cobra.Command{
	Use:   "join <room-id>",
	Short: "Join a meeting and stay in its room",
	Long: `Join a meeting and stay in its room until interrupted.

Lines typed on stdin are sent as chat messages. "/leave" leaves the room and
"/end" ends the meeting (host only).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return joinRoom(cmd.Context(), domain.RoomID(args[0]))
	},
}

func joinRoom(ctx context.Context, room domain.RoomID) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	api := newAPI()
	m, err := api.JoinMeeting(ctx, room)
	if err != nil {
		return fmt.Errorf("join meeting: %w", err)
	}
	PrintSuccessf("joined %s (%s), host %s", m.RoomID, m.Type, m.HostID)

	if m.Type == domain.RoomTypeSFU {
		tok, url, err := api.SFUToken(ctx, room)
		if err != nil {
			PrintWarningf("no sfu token: %v", err)
		} else {
			PrintEventf("media goes through %s, token %s...", url, truncate(tok, 16))
		}
	}

	sig, err := client.Dial(ctx, api.SignalURL(), api.Token, viper.GetString("codec"))
	if err != nil {
		return err
	}
	defer sig.Close()
	PrintEventf("signaling over %s", sig.Codec().Name())

	rtc := client.WebRTCConfig(config.ICEConfig{
		STUN:     flagSTUN,
		TURN:     flagTURN,
		TURNUser: flagTURNUser,
		TURNPass: flagTURNPass,
	})
	factory := client.NewPionFactory(rtc, client.PionOptions{
		OnTrack: func(remote domain.ConnID, track *webrtc.TrackRemote) {
			PrintEventf("track %s from %s (%s)", track.Kind(), remote, track.Codec().MimeType)
		},
		OnState: func(remote domain.ConnID, state webrtc.PeerConnectionState) {
			PrintEventf("peer %s %s", remote, state)
		},
	})

	ctl := client.NewController(sig, factory, client.Hooks{
		OnPeerJoined: func(p domain.Peer) {
			PrintEventf("%s joined", p.UserID)
		},
		OnPeerLeft: func(p domain.Peer) {
			PrintEventf("%s left", p.UserID)
		},
		OnHostChanged: func(host domain.UserID) {
			PrintEventf("%s is now the host", host)
		},
		OnChat: func(msg domain.ChatMessage) {
			line := msg.Body
			if msg.Attachment != nil {
				line = strings.TrimSpace(line + " [" + msg.Attachment.Name + "]")
			}
			fmt.Printf("%s %s\n", UserStyle.Render(string(msg.SenderID)+":"), line)
		},
		OnTyping: func(t *protocol.ChatTyping) {
			if t.IsTyping {
				PrintEventf("%s is typing...", t.UserID)
			}
		},
		OnError: func(reason string) {
			PrintError(reason)
			if client.IsAdmissionError(reason) {
				cancel()
			}
		},
		OnLeft: func() {
			PrintWarningf("left the room")
			cancel()
		},
	})

	if err := sig.Send(&protocol.JoinRoom{RoomID: room}); err != nil {
		return err
	}
	go readInput(ctx, api, sig, room, cancel)

	ctl.Run(ctx, sig.Incoming())
	return nil
}

func readInput(ctx context.Context, api *client.API, sig *client.SignalClient, room domain.RoomID, cancel context.CancelFunc) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		var err error
		switch line {
		case "":
			continue
		case "/leave":
			err = sig.Send(&protocol.LeaveRoom{})
		case "/end":
			err = api.EndMeeting(ctx, room)
		default:
			err = sig.Send(&protocol.ChatSend{RoomID: room, Message: line})
		}
		if err != nil {
			PrintError(err.Error())
		}
	}
	// Ctrl-D on a terminal hangs up; piped input just runs out.
	if isTerminal(os.Stdin) {
		cancel()
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().StringSliceVarP(&flagSTUN, "stun", "s", []string{"stun:stun.l.google.com:19302"}, "STUN servers")
	joinCmd.Flags().StringSliceVarP(&flagTURN, "turn", "t", nil, "TURN servers")
	joinCmd.Flags().StringVar(&flagTURNUser, "turn-user", "", "TURN username")
	joinCmd.Flags().StringVar(&flagTURNPass, "turn-pass", "", "TURN password")
}
