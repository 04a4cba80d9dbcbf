// Package commands implements parlorctl, a command line client for the chat API.
package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"parlor/internal/api"
	"parlor/internal/models"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the parlorctl command tree.
func NewRootCommand() *cobra.Command {
	var apiURL string
	client := func() *Client { return NewClient(apiURL) }

	root := &cobra.Command{
		Use:           "parlorctl",
		Short:         "parlorctl - command line client for the parlor chat server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&apiURL, "api", "http://localhost:8080", "API server URL")

	root.AddCommand(
		usersCommand(client),
		roomsCommand(client),
		sendCommand(client),
		messagesCommand(client),
	)
	return root
}

func usersCommand(client func() *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "User management commands",
	}

	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List users, most available first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client().ListUsers(status)
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Users (%d total, %d online, %d away, %d offline):\n\n",
				resp.TotalUsers, resp.Online, resp.Away, resp.Offline)
			for _, u := range resp.Users {
				fmt.Fprintf(out, "%s | %-20s | %s\n", u.ID, u.Name, u.Status)
			}
			return nil
		},
	}
	list.Flags().StringVar(&status, "status", "", "only show users with this status")

	var avatar, addStatus string
	add := &cobra.Command{
		Use:   "add [name]",
		Short: "Create a user",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := client().AddUser(api.CreateUserRequest{
				Name:   strings.Join(args, " "),
				Avatar: avatar,
				Status: models.UserStatus(addStatus),
			})
			if err != nil {
				return fmt.Errorf("failed to add user: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "User created successfully!")
			fmt.Fprintf(out, "ID:     %s\n", user.ID)
			fmt.Fprintf(out, "Name:   %s\n", user.Name)
			fmt.Fprintf(out, "Status: %s\n", user.Status)
			return nil
		},
	}
	add.Flags().StringVar(&avatar, "avatar", "", "avatar URL")
	add.Flags().StringVar(&addStatus, "status", "", "initial status (online, away or offline)")

	cmd.AddCommand(list, add)
	return cmd
}

func roomsCommand(client func() *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "Room management commands",
	}

	var userID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List rooms by latest activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client().ListRooms(userID)
			if err != nil {
				return fmt.Errorf("failed to list rooms: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(resp.Rooms) == 0 {
				fmt.Fprintln(out, "No rooms found.")
				return nil
			}
			for _, r := range resp.Rooms {
				line := fmt.Sprintf("%s | %-20s | %-7s | %d members", r.ID, r.Name, r.Type, len(r.Participants))
				if userID != "" && r.UnreadCount > 0 {
					line += fmt.Sprintf(" | %d unread", r.UnreadCount)
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	list.Flags().StringVar(&userID, "user", "", "only rooms of this user, with unread counters")

	var (
		creator, description, roomType string
		participants                   []string
	)
	create := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a room",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			room, err := client().CreateRoom(api.CreateRoomRequest{
				Name:         strings.Join(args, " "),
				Description:  description,
				Type:         models.RoomType(roomType),
				CreatorID:    creator,
				Participants: participants,
			})
			if err != nil {
				return fmt.Errorf("failed to create room: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Room created successfully!")
			fmt.Fprintf(out, "ID:           %s\n", room.ID)
			fmt.Fprintf(out, "Name:         %s\n", room.Name)
			fmt.Fprintf(out, "Participants: %d\n", len(room.Participants))
			return nil
		},
	}
	create.Flags().StringVar(&creator, "creator", "", "ID of the creating user")
	create.Flags().StringVar(&description, "description", "", "room description")
	create.Flags().StringVar(&roomType, "type", "", "public, private or direct")
	create.Flags().StringSliceVar(&participants, "participant", nil, "participant user ID (repeatable)")
	_ = create.MarkFlagRequired("creator")

	cmd.AddCommand(list, create)
	return cmd
}

func sendCommand(client func() *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "send [room-id] [sender-id] [text]",
		Short: "Send a message to a room",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client().Send(api.SendMessageRequest{
				RoomID:   args[0],
				SenderID: args[1],
				Content:  strings.Join(args[2:], " "),
			})
			if err != nil {
				return fmt.Errorf("failed to send message: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Message %s sent at %s\n", resp.Message.ID, resp.Message.Timestamp.Format(time.DateTime))
			if resp.AutoResponse != nil {
				fmt.Fprintln(out, "A reply is on its way.")
			}
			return nil
		},
	}
}

func messagesCommand(client func() *Client) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "messages [room-id]",
		Short: "Show the messages of a room, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := client().Messages(args[0], limit, offset)
			if err != nil {
				return fmt.Errorf("failed to get messages: %w", err)
			}
			printMessages(cmd.OutOrStdout(), page)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "messages to skip from the start")
	return cmd
}

func printMessages(out io.Writer, page models.MessagePage) {
	if len(page.Messages) == 0 {
		fmt.Fprintln(out, "No messages.")
		return
	}
	for _, m := range page.Messages {
		fmt.Fprintf(out, "[%s] %s: %s\n", m.Timestamp.Format(time.DateTime), m.SenderName, m.Content)
		for _, r := range m.Reactions {
			fmt.Fprintf(out, "    %s %s\n", r.Emoji, r.UserName)
		}
	}
	if page.HasMore {
		fmt.Fprintf(out, "(%d of %d shown, use --offset for more)\n", len(page.Messages), page.Total)
	}
}
