package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var version = "dev"

// client talks to the IOU tracker HTTP API.
type client struct {
	baseURL      string
	token        string
	conversation string
	timeout      time.Duration
	http         *http.Client
}

// apiError is a non-2xx response from the API.
type apiError struct {
	Status  int
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s (%d)", e.Code, e.Status)
}

func (c *client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := strings.TrimRight(c.baseURL, "/") + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("X-Token", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

type entry struct {
	ID            string `json:"id"`
	Sender        string `json:"sender"`
	Recipient     string `json:"recipient"`
	AmountStr     string `json:"amount_str"`
	Description   string `json:"description"`
	FormattedDate string `json:"formatted_date"`
}

type balance struct {
	OwingUser string `json:"owing_user"`
	OwedUser  string `json:"owed_user"`
	AmountStr string `json:"amount_str"`
	Even      bool   `json:"even"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &client{http: &http.Client{}}

	rootCmd := &cobra.Command{
		Use:           "iou",
		Short:         "IOU tracker CLI",
		Long:          `A command line interface for recording and settling IOUs through the IOU tracker API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.baseURL, "url", envOr("IOU_URL", "http://localhost:8080"), "Base URL of the IOU tracker API")
	flags.DurationVar(&c.timeout, "timeout", 10*time.Second, "Request timeout")
	flags.StringVar(&c.token, "token", os.Getenv("IOU_TOKEN"), "API token sent as X-Token")
	flags.StringVar(&c.conversation, "conversation", "", "Conversation ID to scope commands to")

	rootCmd.AddCommand(
		sendCmd(c),
		billCmd(c),
		splitCmd(c),
		statusCmd(c),
		settleCmd(c),
		entriesCmd(c),
		usersCmd(c),
		versionCmd(c),
	)
	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func sendCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "send <sender> <recipient> <amount> [description...]",
		Short: "Record that sender owes recipient an amount",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return createEntry(cmd, c, args[0], args[1], args[2], args[3:])
		},
	}
}

func billCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "bill <creditor> <debtor> <amount> [description...]",
		Short: "Record that debtor owes creditor the full amount",
		Long:  `Bill a single user. The creditor is the one doing the billing; the debtor owes them the whole amount.`,
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return createEntry(cmd, c, args[1], args[0], args[2], args[3:])
		},
	}
}

func createEntry(cmd *cobra.Command, c *client, sender, recipient, amount string, description []string) error {
	req := map[string]any{
		"sender":      sender,
		"recipient":   recipient,
		"amount":      amount,
		"description": strings.Join(description, " "),
	}
	if c.conversation != "" {
		req["conversation_id"] = c.conversation
	}

	var e entry
	if err := c.do(cmd.Context(), http.MethodPost, "/api/entries", nil, req, &e); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s: %s owes %s %s\n", e.ID, e.Sender, e.Recipient, e.AmountStr)
	return nil
}

func splitCmd(c *client) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "split <payer> <amount> <participant>...",
		Short: "Split a bill paid by payer evenly across participants",
		Args:    cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{
				"payer":        args[0],
				"amount":       args[1],
				"participants": args[2:],
				"description":  description,
			}
			if c.conversation != "" {
				req["conversation_id"] = c.conversation
			}

			var resp struct {
				Message         string  `json:"message"`
				AmountStr       string  `json:"amount_str"`
				SplitPerUserStr string  `json:"split_per_user_str"`
				Entries         []entry `json:"entries"`
			}
			if err := c.do(cmd.Context(), http.MethodPost, "/api/split", nil, req, &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s split, %s each\n", resp.Message, resp.AmountStr, resp.SplitPerUserStr)
			for _, e := range resp.Entries {
				fmt.Fprintf(out, "  %s owes %s %s\n", e.Sender, e.Recipient, e.AmountStr)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "Bill description")
	return cmd
}

func statusCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "status <user1> <user2>",
		Short: "Show the net balance between two users",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var b balance
			q := pairQuery(c, args[0], args[1])
			if err := c.do(cmd.Context(), http.MethodGet, "/api/iou_status", q, nil, &b); err != nil {
				return err
			}
			if b.Even {
				fmt.Fprintf(cmd.OutOrStdout(), "%s and %s are even\n", args[0], args[1])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s owes %s %s\n", b.OwingUser, b.OwedUser, b.AmountStr)
			return nil
		},
	}
}

func settleCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "settle <user1> <user2>",
		Short: "Settle all active entries between two users",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Message string  `json:"message"`
				Failed  int     `json:"failed"`
				Balance balance `json:"balance"`
			}
			q := pairQuery(c, args[0], args[1])
			if err := c.do(cmd.Context(), http.MethodPost, "/api/settle", q, nil, &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, resp.Message)
			if resp.Failed > 0 {
				fmt.Fprintf(out, "%d entries could not be deleted\n", resp.Failed)
			}
			return nil
		},
	}
}

func pairQuery(c *client, user1, user2 string) url.Values {
	q := url.Values{"user1": {user1}, "user2": {user2}}
	if c.conversation != "" {
		q.Set("conversation_id", c.conversation)
	}
	return q
}

func entriesCmd(c *client) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "entries [user1 user2]",
		Short: "List active entries, optionally between two users",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("expected no users or a pair of users, got %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if len(args) == 2 {
				q = pairQuery(c, args[0], args[1])
			} else if c.conversation != "" {
				q.Set("conversation_id", c.conversation)
			}

			var entries []entry
			if err := c.do(cmd.Context(), http.MethodGet, "/api/entries", q, nil, &entries); err != nil {
				return err
			}
			if asJSON {
				printJSON(entries)
				return nil
			}
			printEntries(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw JSON")

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Soft-delete an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var e entry
			if err := c.do(cmd.Context(), http.MethodDelete, "/api/entries/"+url.PathEscape(args[0]), nil, nil, &e); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", e.ID)
			return nil
		},
	})
	return cmd
}

func printEntries(w io.Writer, entries []entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No entries")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tSENDER\tRECIPIENT\tAMOUNT\tDESCRIPTION")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncate(e.ID, 12), e.FormattedDate, e.Sender, e.Recipient, e.AmountStr, truncate(e.Description, 30))
	}
	_ = tw.Flush()
}

func usersCmd(c *client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage registered users",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <username>",
			Short: "Register a user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				req := map[string]any{"username": args[0]}
				if c.conversation != "" {
					req["conversation_id"] = c.conversation
				}
				var u map[string]any
				if err := c.do(cmd.Context(), http.MethodPost, "/api/users", nil, req, &u); err != nil {
					return err
				}
				printJSON(u)
				return nil
			},
		},
		&cobra.Command{
			Use:   "get <username>",
			Short: "Show a registered user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var u map[string]any
				if err := c.do(cmd.Context(), http.MethodGet, "/api/users/"+url.PathEscape(args[0]), nil, nil, &u); err != nil {
					return err
				}
				printJSON(u)
				return nil
			},
		},
		&cobra.Command{
			Use:   "update <username>",
			Short: "Link a user to the --conversation ID",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var conv any
				if c.conversation != "" {
					conv = c.conversation
				}
				var u map[string]any
				req := map[string]any{"conversation_id": conv}
				if err := c.do(cmd.Context(), http.MethodPut, "/api/users/"+url.PathEscape(args[0]), nil, req, &u); err != nil {
					return err
				}
				printJSON(u)
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List registered users",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				var users []map[string]any
				if err := c.do(cmd.Context(), http.MethodGet, "/api/users", nil, nil, &users); err != nil {
					return err
				}
				printJSON(users)
				return nil
			},
		},
	)
	return cmd
}

func versionCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print client and server versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "client: %s\n", version)

			var v struct {
				Version string `json:"version"`
			}
			if err := c.do(cmd.Context(), http.MethodGet, "/api/version", nil, nil, &v); err != nil {
				return err
			}
			fmt.Fprintf(out, "server: %s\n", v.Version)
			return nil
		},
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode output: %v\n", err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
