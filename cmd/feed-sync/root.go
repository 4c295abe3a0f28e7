package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"go-feed-sync/internal/config"
	"go-feed-sync/internal/ranking"
)

const shutdownTimeout = 30 * time.Second

type app struct {
	configFlag string
	stdout     io.Writer
}

func newRootCmd() *cobra.Command {
	return newRootCmdWithIO(os.Stdout, os.Stderr)
}

func newRootCmdWithIO(out, errOut io.Writer) *cobra.Command {
	a := &app{stdout: out}

	cmd := &cobra.Command{
		Use:           "feed-sync",
		Short:         "Client-side sync and relevance ranking for the insights feed",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.PersistentFlags().StringVar(&a.configFlag, "config", "", "path to the config file (default $"+configPathEnv+" or "+defaultConfigPath+")")

	cmd.AddCommand(
		newServeCmd(a),
		newStrategiesCmd(a),
		newRankCmd(a),
		newFetchCmd(a),
		newLoginCmd(a),
	)
	return cmd
}

func (a *app) root() (*CompositionRoot, error) {
	path, explicit := GetConfigPath(a.configFlag)
	return NewCompositionRoot(path, explicit)
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Mount every view and serve the admin API on a Unix socket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := a.root()
			if err != nil {
				return err
			}
			defer func() {
				if err := root.Cleanup(); err != nil {
					root.Logger.Error("Failed to cleanup resources", zap.Error(err))
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, root)
		},
	}
}

// serve runs until ctx is done, then stops the server and unmounts views
func serve(ctx context.Context, root *CompositionRoot) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := root.HTTPServer.StartUnixSocket(root.Config.Server.SocketPath)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		root.Views.MountAll(gctx)
		<-gctx.Done()

		root.Logger.Info("Shutting down")
		root.Views.UnmountAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := root.HTTPServer.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop admin server: %w", err)
		}
		return nil
	})

	if _, err := os.Stat(root.ConfigPath); err == nil {
		g.Go(func() error {
			return config.Watch(gctx, root.ConfigPath, root.Logger, root.ApplyConfig)
		})
	}

	return g.Wait()
}

func newStrategiesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List the ranking strategies and their weights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printStrategies(a.stdout, ranking.DefaultRegistry().List())
		},
	}
}

func printStrategies(out io.Writer, strategies []ranking.Strategy) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	header := []string{"ID", "NAME"}
	for _, name := range ranking.SignalNames {
		header = append(header, strings.ToUpper(string(name)))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, s := range strategies {
		row := []string{s.ID, s.Label}
		for _, name := range ranking.SignalNames {
			row = append(row, strconv.Itoa(s.Weights[name]))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func newRankCmd(a *app) *cobra.Command {
	var (
		page     int
		strategy string
	)
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Fetch one feed page and print client-side relevance scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := a.root()
			if err != nil {
				return err
			}
			defer root.Cleanup()

			if strategy != "" {
				if err := root.Engine.SetStrategy(strategy); err != nil {
					return err
				}
			}

			feed, err := root.Client.PersonalizedFeed(cmd.Context(), page, root.Config.Views.Feed.PageSize)
			if err != nil {
				return fmt.Errorf("failed to fetch feed page %d: %w", page, err)
			}

			ranked := root.Engine.Rank(feed.Posts, nil)
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "SCORE\tPOST\tTICKER\tTITLE\n")
			for _, r := range ranked {
				fmt.Fprintf(tw, "%.1f\t%d\t%s\t%s\n", r.Score, r.Post.ID, r.Post.Ticker, r.Post.Title)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "feed page to rank")
	cmd.Flags().StringVar(&strategy, "strategy", "", "ranking strategy id (default from config)")
	return cmd
}

func newFetchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "fetch <dashboard|trending|ticker|feed|users|conversations> [arg]",
		Short:     "Fetch one resource from the backend and print it as JSON",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"dashboard", "trending", "ticker", "feed", "users", "conversations"},
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := a.root()
			if err != nil {
				return err
			}
			defer root.Cleanup()

			arg := ""
			if len(args) > 1 {
				arg = args[1]
			}

			out, err := fetchResource(cmd.Context(), root, args[0], arg)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(a.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

func fetchResource(ctx context.Context, root *CompositionRoot, resource, arg string) (any, error) {
	c := root.Client
	switch resource {
	case "dashboard":
		return c.Dashboard(ctx)
	case "trending":
		limit := root.Config.Views.Trending.Limit
		if arg != "" {
			n, err := strconv.Atoi(arg)
			if err != nil {
				return nil, fmt.Errorf("invalid trending limit %q: %w", arg, err)
			}
			limit = n
		}
		return c.Trending(ctx, limit)
	case "ticker":
		if arg == "" {
			return nil, errors.New("ticker requires a symbol")
		}
		return c.Ticker(ctx, arg)
	case "feed":
		page := 1
		if arg != "" {
			n, err := strconv.Atoi(arg)
			if err != nil {
				return nil, fmt.Errorf("invalid feed page %q: %w", arg, err)
			}
			page = n
		}
		return c.PersonalizedFeed(ctx, page, root.Config.Views.Feed.PageSize)
	case "users":
		return c.Users(ctx)
	case "conversations":
		return c.Conversations(ctx)
	default:
		return nil, fmt.Errorf("unknown resource %q", resource)
	}
}

func newLoginCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange credentials for an access token and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := a.root()
			if err != nil {
				return err
			}
			defer root.Cleanup()

			session, err := root.Client.Login(cmd.Context(), username, password)
			if err != nil {
				return fmt.Errorf("failed to login: %w", err)
			}
			fmt.Fprintln(a.stdout, session.AccessToken)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "account username")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
