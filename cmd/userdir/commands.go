package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/pders01/userdir/internal/config"
	"github.com/pders01/userdir/internal/tui"
	"github.com/pders01/userdir/internal/users"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func newConfigCmd(opts *options) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cfgCmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Write the default configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return generateConfig(cmd.OutOrStdout(), opts.configPath)
		},
	}, &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file location",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			path := opts.configPath
			if path == "" {
				path = config.DefaultPath()
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
		},
	})
	return cfgCmd
}

func newListCmd(opts *options) *cobra.Command {
	var (
		skip int
		all  bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print one page of users, or all of them with --all",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			svc, err := newService(cfg)
			if err != nil {
				return err
			}

			if all {
				resp, p := svc.List(cmd.Context()).Unpack()
				if p != nil {
					return p
				}
				writeUsers(cmd.OutOrStdout(), resp.Users, resp.Total)
				return nil
			}

			page, p := svc.FetchPage(cmd.Context(), cfg.API.PageSize, skip).Unpack()
			if p != nil {
				return p
			}
			writeUsers(cmd.OutOrStdout(), page.Items, page.Total)
			return nil
		},
	}
	cmd.Flags().IntVar(&skip, "skip", 0, "Number of users to skip")
	cmd.Flags().BoolVar(&all, "all", false, "Fetch the unpaginated list")
	return cmd
}

func newSearchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Print users matching a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			svc, err := newService(cfg)
			if err != nil {
				return err
			}

			query := strings.Join(args, " ")
			page, p := svc.Search(cmd.Context(), query).Unpack()
			if p != nil {
				return p
			}

			h, err := openHistory(cfg)
			if err != nil {
				return err
			}
			if h != nil {
				defer h.Close()
				if err := h.Record(query); err != nil {
					return fmt.Errorf("recording search: %w", err)
				}
			}

			writeUsers(cmd.OutOrStdout(), page.Items, page.Total)
			return nil
		},
	}
}

func newShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print the details of one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}

			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			svc, err := newService(cfg)
			if err != nil {
				return err
			}

			u, p := svc.ByID(cmd.Context(), id).Unpack()
			if p != nil {
				return p
			}

			r, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(cfg.UI.Detail.WordWrapMaxWidth),
			)
			if err != nil {
				return fmt.Errorf("creating renderer: %w", err)
			}
			out, err := r.Render(tui.UserMarkdown(u))
			if err != nil {
				return fmt.Errorf("rendering user: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newHistoryCmd(opts *options) *cobra.Command {
	var (
		limit int
		wipe  bool
	)
	cmd := &cobra.Command{
		Use:   "history [prefix]",
		Short: "List, filter or clear past searches",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			h, err := openHistory(cfg)
			if err != nil {
				return err
			}
			if h == nil {
				fmt.Fprintln(cmd.OutOrStdout(), tui.MsgHistoryDisabled)
				return nil
			}
			defer h.Close()

			if wipe {
				if err := h.Clear(); err != nil {
					return fmt.Errorf("clearing history: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), tui.MsgHistoryCleared)
				return nil
			}

			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			entries, err := h.Suggest(prefix, limit)
			if err != nil {
				return fmt.Errorf("reading history: %w", err)
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%-30s %3d  %s\n", e.Query, e.Count, e.LastUsed.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries")
	cmd.Flags().BoolVar(&wipe, "clear", false, "Delete every stored search")
	return cmd
}

func writeUsers(w io.Writer, list []users.User, total int) {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(tui.MutedColor)).
		Headers("ID", "NAME", "USERNAME", "EMAIL", "LOCATION").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	for _, u := range list {
		t.Row(strconv.Itoa(u.ID), u.FullName(), u.Handle(), u.Email, u.Location())
	}

	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, tui.MsgUsersAvailable(total))
}
