package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/edgard/goalbot/internal/access"
	"github.com/edgard/goalbot/internal/config"
	"github.com/edgard/goalbot/internal/database"
	"github.com/edgard/goalbot/internal/errs"
	"github.com/edgard/goalbot/internal/logger"
)

// adminEnv is what the administration commands run against. It needs the
// database only, so the configuration is loaded without validation.
type adminEnv struct {
	cfg   *config.Config
	store database.Store
	close func()
}

func openAdmin(cmd *cobra.Command, opts *rootOptions) (*adminEnv, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	log := logger.New(cmd.ErrOrStderr(), cfg.Logger.Level, cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	return &adminEnv{
		cfg:   cfg,
		store: database.NewStore(db, log),
		close: func() { database.CloseDB(db) },
	}, nil
}

// actor resolves the --as username.
func (e *adminEnv) actor(ctx context.Context, username string) (*database.User, error) {
	user, err := e.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("acting user %q: %w", username, err)
	}
	return user, nil
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.NewValidationError(fmt.Sprintf("invalid %s id %q", what, arg), err)
	}
	return id, nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// withAdmin opens the database for the duration of fn.
func withAdmin(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, env *adminEnv) error) error {
	env, err := openAdmin(cmd, opts)
	if err != nil {
		return err
	}
	defer env.close()
	return fn(cmd.Context(), env)
}

// --- user ---

func newUserCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Account management commands",
	}
	cmd.AddCommand(newUserAddCmd(opts))
	return cmd
}

func newUserAddCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, opts, func(ctx context.Context, env *adminEnv) error {
				user, err := env.store.CreateUser(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created user %d %s\n", user.ID, user.Username)
				return nil
			})
		},
	}
}

// --- board ---

func newBoardCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Board management commands",
	}
	cmd.AddCommand(newBoardAddCmd(opts))
	cmd.AddCommand(newBoardListCmd(opts))
	cmd.AddCommand(newBoardShareCmd(opts))
	cmd.AddCommand(newBoardDeleteCmd(opts))
	return cmd
}

func newBoardAddCmd(opts *rootOptions) *cobra.Command {
	var as string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a board owned by the acting user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, opts, func(ctx context.Context, env *adminEnv) error {
				user, err := env.actor(ctx, as)
				if err != nil {
					return err
				}
				board, err := env.store.CreateBoard(ctx, user.ID, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created board %d %q\n", board.ID, board.Title)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "acting username (required)")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}

func newBoardListCmd(opts *rootOptions) *cobra.Command {
	var as string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the boards of the acting user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, opts, func(ctx context.Context, env *adminEnv) error {
				user, err := env.actor(ctx, as)
				if err != nil {
					return err
				}
				boards, err := env.store.ListBoards(ctx, user.ID)
				if err != nil {
					return err
				}
				if len(boards) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No boards found.")
					return nil
				}

				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "ID\tTITLE\tROLE")
				for _, b := range boards {
					fmt.Fprintf(tw, "%d\t%s\t%s\n", b.ID, b.Title, b.Role)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "acting username (required)")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}

func newBoardShareCmd(opts *rootOptions) *cobra.Command {
	var (
		as   string
		with map[string]string
	)
	cmd := &cobra.Command{
		Use:   "share <board-id>",
		Short: "Replace the participants of a board",
		Long: "Replaces every non-owner participant of the board with the --with list.\n" +
			"Roles are writer or reader; an empty list leaves the owner alone on the board.",
		Example: "  goalbot board share 1 --as alice --with bob=writer,carol=reader",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			boardID, err := parseID(args[0], "board")
			if err != nil {
				return err
			}
			return withAdmin(cmd, opts, func(ctx context.Context, env *adminEnv) error {
				owner, err := env.actor(ctx, as)
				if err != nil {
					return err
				}

				usernames := make([]string, 0, len(with))
				for name := range with {
					usernames = append(usernames, name)
				}
				sort.Strings(usernames)

				participants := make([]database.Participant, 0, len(usernames))
				for _, name := range usernames {
					role, err := access.ParseRole(with[name])
					if err != nil {
						return errs.NewValidationError(fmt.Sprintf("participant %s", name), err)
					}
					user, err := env.store.GetUserByUsername(ctx, name)
					if err != nil {
						return fmt.Errorf("participant %q: %w", name, err)
					}
					participants = append(participants, database.Participant{UserID: user.ID, Role: role})
				}

				if err := env.store.ShareBoard(ctx, owner.ID, boardID, participants); err != nil {
					return err
				}

				list, err := env.store.ListParticipants(ctx, owner.ID, boardID)
				if err != nil {
					return err
				}
				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "USER\tROLE")
				for _, p := range list {
					fmt.Fprintf(tw, "%s\t%s\n", p.Username, p.Role)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "acting username, the board owner (required)")
	cmd.Flags().StringToStringVar(&with, "with", nil, "participants as username=role pairs")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}

func newBoardDeleteCmd(opts *rootOptions) *cobra.Command {
	var as string
	cmd := &cobra.Command{
		Use:   "delete <board-id>",
		Short: "Delete a board with its categories and archive their goals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			boardID, err := parseID(args[0], "board")
			if err != nil {
				return err
			}
			return withAdmin(cmd, opts, func(ctx context.Context, env *adminEnv) error {
				user, err := env.actor(ctx, as)
				if err != nil {
					return err
				}
				if err := env.store.DeleteBoard(ctx, user.ID, boardID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted board %d\n", boardID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "acting username, the board owner (required)")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}

// --- category ---

func newCategoryCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Category management commands",
	}
	cmd.AddCommand(newCategoryAddCmd(opts))
	cmd.AddCommand(newCategoryListCmd(opts))
	cmd.AddCommand(newCategoryDeleteCmd(opts))
	return cmd
}

func newCategoryAddCmd(opts *rootOptions) *cobra.Command {
	var as string
	cmd := &cobra.Command{
		Use:   "add <board-id> <title>",
		Short: "Create a category on a board",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			boardID, err := parseID(args[0], "board")
			if err != nil {
				return err
			}
			return withAdmin(cmd, opts, func(ctx context.Context, env *adminEnv) error {
				user, err := env.actor(ctx, as)
				if err != nil {
					return err
				}
				category, err := env.store.CreateCategory(ctx, user.ID, boardID, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created category %d %q on board %d\n", category.ID, category.Title, category.BoardID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "acting username, owner or writer of the board (required)")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}

func newCategoryListCmd(opts *rootOptions) *cobra.Command {
	var as string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the categories visible to the acting user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, opts, func(ctx context.Context, env *adminEnv) error {
				user, err := env.actor(ctx, as)
				if err != nil {
					return err
				}
				categories, err := env.store.ListVisibleCategories(ctx, user.ID)
				if err != nil {
					return err
				}
				if len(categories) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No categories found.")
					return nil
				}

				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "ID\tBOARD\tTITLE")
				for _, c := range categories {
					fmt.Fprintf(tw, "%d\t%d\t%s\n", c.ID, c.BoardID, c.Title)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "acting username (required)")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}

func newCategoryDeleteCmd(opts *rootOptions) *cobra.Command {
	var as string
	cmd := &cobra.Command{
		Use:   "delete <category-id>",
		Short: "Delete a category and archive its goals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			categoryID, err := parseID(args[0], "category")
			if err != nil {
				return err
			}
			return withAdmin(cmd, opts, func(ctx context.Context, env *adminEnv) error {
				user, err := env.actor(ctx, as)
				if err != nil {
					return err
				}
				if err := env.store.DeleteCategory(ctx, user.ID, categoryID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted category %d\n", categoryID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "acting username, owner or writer of the board (required)")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}

// --- goal ---

func newGoalCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Goal commands",
	}
	cmd.AddCommand(newGoalListCmd(opts))
	return cmd
}

func newGoalListCmd(opts *rootOptions) *cobra.Command {
	var as string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the active goals visible to the acting user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, opts, func(ctx context.Context, env *adminEnv) error {
				user, err := env.actor(ctx, as)
				if err != nil {
					return err
				}
				goals, err := env.store.ListVisibleGoals(ctx, user.ID)
				if err != nil {
					return err
				}
				if len(goals) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No goals found.")
					return nil
				}

				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "ID\tCATEGORY\tSTATUS\tPRIORITY\tTITLE")
				for _, g := range goals {
					fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", g.ID, g.CategoryID, g.Status, g.Priority, g.Title)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "acting username (required)")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}
