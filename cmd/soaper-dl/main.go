package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/excreal/soaper-dl-v8/internal/app"
	"github.com/excreal/soaper-dl-v8/internal/domain"
	"github.com/excreal/soaper-dl-v8/internal/infrastructure"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	applogger "github.com/excreal/soaper-dl-v8/pkg/logger"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "soaper-dl",
		Short: "soaper-dl - stream retriever for soaper-style sites",
		Long:  `Locates a movie or series on the site, resolves its stream and retrieves the full asset to disk.`,
	}
)

// env bundles everything a command needs, built once per invocation
type env struct {
	cfg     *domain.Config
	logger  *zap.Logger
	repo    *infrastructure.SQLiteRepository
	scraper *infrastructure.SiteScraper
	manager *app.RetrievalManager
}

func buildEnv() *env {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := applogger.New(applogger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.History.DatabasePath), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	repo, err := infrastructure.NewSQLiteRepository(cfg.History.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	client := infrastructure.NewSiteClient(&cfg.Site, &cfg.Download)
	locator := infrastructure.NewMediaLocator(&cfg.Site, &cfg.Subtitle, client, logger)
	resolver := infrastructure.NewManifestResolver(client, logger)
	fetcher := infrastructure.NewSegmentFetcher(client, cfg.Download.ConcurrentSegments, logger)
	assembler := infrastructure.NewStreamAssembler(&cfg.Download, logger)
	notifier := infrastructure.NewNotificationService(&cfg.Notification, logger)
	manager := app.NewRetrievalManager(locator, resolver, fetcher, assembler, repo, notifier, client, cfg, logger)

	return &env{
		cfg:     cfg,
		logger:  logger,
		repo:    repo,
		scraper: infrastructure.NewSiteScraper(&cfg.Site, client, logger),
		manager: manager,
	}
}

func signalContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(episodesCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(historyCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the site and remember the results",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := buildEnv()
		defer e.repo.Close()

		titles, err := e.scraper.Search(signalContext(), strings.Join(args, " "))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := e.repo.UpsertTitles(titles); err != nil {
			e.logger.Warn("Failed to persist search results", zap.Error(err))
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tKIND\tYEAR\tPAGE")
		for _, t := range titles {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Name, t.Kind, t.Year, t.PagePath)
		}
		w.Flush()
	},
}

var episodesCmd = &cobra.Command{
	Use:   "episodes [series-page]",
	Short: "List and remember a series' episodes",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := buildEnv()
		defer e.repo.Close()

		seriesPath := args[0]
		episodes, err := e.scraper.Episodes(signalContext(), seriesPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := e.repo.ReplaceEpisodes(seriesPath, episodes); err != nil {
			e.logger.Warn("Failed to persist episode list", zap.Error(err))
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SEASON\tEPISODE\tNAME\tPAGE")
		for _, ep := range episodes {
			fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", ep.Season, ep.Number, ep.Name, ep.PagePath)
		}
		w.Flush()
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download [page]",
	Short: "Retrieve a movie or episode to disk",
	Long: `Retrieves the media behind a page path, e.g. /movie_123.html or
/episode_456.html. For a series page, --season and --episode select the
episode via the stored episode list (refreshed automatically).`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := buildEnv()
		defer e.repo.Close()
		ctx := signalContext()

		pagePath := args[0]
		season, _ := cmd.Flags().GetInt("season")
		episode, _ := cmd.Flags().GetInt("episode")
		linkOnly, _ := cmd.Flags().GetBool("link-only")
		subOnly, _ := cmd.Flags().GetBool("sub-only")
		name, _ := cmd.Flags().GetString("name")

		if season > 0 || episode > 0 {
			var err error
			pagePath, name, err = resolveEpisode(ctx, e, pagePath, season, episode, name)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}

		mode := domain.ModeFull
		switch {
		case linkOnly && subOnly:
			fmt.Fprintln(os.Stderr, "Error: --link-only and --sub-only are mutually exclusive")
			os.Exit(1)
		case linkOnly:
			mode = domain.ModeLinkOnly
		case subOnly:
			mode = domain.ModeSubOnly
		}

		if mode == domain.ModeFull {
			attachProgress(e.manager)
		}

		result, err := e.manager.Retrieve(ctx, app.RetrievalRequest{
			Ref:        domain.NewMediaReference(pagePath, strings.HasPrefix(pagePath, "/movie_")),
			Mode:       mode,
			OutputName: name,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		switch mode {
		case domain.ModeLinkOnly:
			fmt.Printf("manifest: %s\n", result.Playback.ManifestURL)
			if result.Playback.SubtitleURL != "" {
				fmt.Printf("subtitle: %s\n", result.Playback.SubtitleURL)
			}
		case domain.ModeSubOnly:
			fmt.Printf("Saved subtitle: %s\n", result.SubtitlePath)
		default:
			fmt.Printf("Saved: %s\n", result.OutputPath)
			if result.SubtitlePath != "" {
				fmt.Printf("Subtitle: %s\n", result.SubtitlePath)
			}
		}
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past retrievals",
	Run: func(cmd *cobra.Command, args []string) {
		e := buildEnv()
		defer e.repo.Close()

		showStats, _ := cmd.Flags().GetBool("stats")
		limit, _ := cmd.Flags().GetInt("limit")

		if showStats {
			stats, err := e.repo.GetStats()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("Retrieval Statistics:")
			fmt.Printf("  Total:      %d\n", stats.Total)
			fmt.Printf("  Processing: %d\n", stats.Processing)
			fmt.Printf("  Completed:  %d\n", stats.Completed)
			fmt.Printf("  Failed:     %d\n", stats.Failed)
			return
		}

		records, err := e.repo.FindRecent(limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tMODE\tSTATUS\tCREATED")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				truncate(r.ID, 8),
				truncate(r.Title, 40),
				r.Mode,
				r.Status,
				r.CreatedAt.Format("2006-01-02 15:04"))
		}
		w.Flush()
	},
}

// resolveEpisode maps a series page plus --season/--episode to the episode
// page, refreshing the stored episode list when the pair is unknown.
func resolveEpisode(ctx context.Context, e *env, seriesPath string, season, episode int, name string) (string, string, error) {
	if season < 1 || episode < 1 {
		return "", "", fmt.Errorf("both --season and --episode are required for series downloads")
	}

	ep, err := e.repo.FindEpisode(seriesPath, season, episode)
	if err != nil {
		return "", "", err
	}
	if ep == nil {
		episodes, err := e.scraper.Episodes(ctx, seriesPath)
		if err != nil {
			return "", "", err
		}
		if err := e.repo.ReplaceEpisodes(seriesPath, episodes); err != nil {
			return "", "", err
		}
		ep, err = e.repo.FindEpisode(seriesPath, season, episode)
		if err != nil {
			return "", "", err
		}
	}
	if ep == nil {
		return "", "", fmt.Errorf("no episode S%02dE%02d on record for %s", season, episode, seriesPath)
	}

	if name == "" {
		base := path.Base(strings.TrimSuffix(seriesPath, ".html"))
		if title, err := e.repo.FindTitle(seriesPath); err == nil && title != nil {
			base = title.Name
		}
		name = fmt.Sprintf("%s.S%02dE%02d", sanitizeName(base), season, episode)
	}

	return ep.PagePath, name, nil
}

var unsafeNameRe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func sanitizeName(s string) string {
	return strings.Trim(unsafeNameRe.ReplaceAllString(s, "."), ".")
}

// attachProgress wires a terminal progress bar into the segment fetcher
func attachProgress(manager *app.RetrievalManager) {
	var bar *progressbar.ProgressBar
	manager.Fetcher().OnProgress = func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Fetching segments"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		bar.Set(done)
	}
}

func init() {
	downloadCmd.Flags().IntP("season", "s", 0, "Season number (series only)")
	downloadCmd.Flags().IntP("episode", "e", 0, "Episode number (series only)")
	downloadCmd.Flags().StringP("name", "n", "", "Output file name without extension")
	downloadCmd.Flags().Bool("link-only", false, "Resolve and print stream URLs without downloading")
	downloadCmd.Flags().Bool("sub-only", false, "Download only the subtitle file")
	historyCmd.Flags().Bool("stats", false, "Show counts by status")
	historyCmd.Flags().Int("limit", 20, "Maximum records to list")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
