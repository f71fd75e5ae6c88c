package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"dropscan-go/internal/app"
	"dropscan-go/internal/config"
	"dropscan-go/internal/credential"
	"dropscan-go/internal/ds"

	"github.com/spf13/cobra"
)

// checkListCount is the list size used by check when --count is not given.
const checkListCount = 1000

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults["config_path"], nil
}

// newApp reads the config and creates a DSApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Sync", "Forward").
func newApp(cmd *cobra.Command, operation string) (*app.DSApp, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	user, _ := flags.GetString("user")
	password, _ := flags.GetString("password")
	count, _ := flags.GetInt("count")
	proxy, _ := flags.GetString("proxy")
	verbosity, _ := flags.GetInt("verbose")

	a, err := app.NewDSApp(cfg, operation, app.Options{
		Credentials: credential.Credentials{User: user, Password: password},
		ListCount:   count,
		Proxy:       proxy,
		Verbosity:   verbosity,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// loggedIn creates the app and logs into the portal.
func loggedIn(cmd *cobra.Command, operation string) (*app.DSApp, error) {
	a, err := newApp(cmd, operation)
	if err != nil {
		return nil, err
	}
	if err := a.Login(cmd.Context()); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "dropscan",
	Short:        "One-way mirror of Dropscan mailings",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if target, _ := cmd.Flags().GetString("target"); target != "" {
			abs, err := filepath.Abs(target)
			if err != nil {
				return fmt.Errorf("resolving target: %w", err)
			}
			cfg.Sync.TargetDir = abs
		}
		if user, _ := cmd.Flags().GetString("user"); user != "" {
			cfg.Portal.User = user
		}

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Target Dir: %s\n", cfg.Sync.TargetDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("User:        %s\n", cfg.Portal.User)
		fmt.Printf("List Count:  %d\n", cfg.Portal.ListCount)
		fmt.Printf("Target Dir:  %s\n", cfg.Sync.TargetDir)
		fmt.Printf("Search Dirs: %v\n", cfg.Sync.SearchDirs)
		fmt.Printf("Combine:     %v\n", cfg.Sync.Combine)
		fmt.Printf("Journal:     %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		return nil
	},
}

// credentials command
var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage the stored portal password",
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the portal password in the OS keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		user, _ := cmd.Flags().GetString("user")
		if user == "" {
			user = cfg.Portal.User
		}
		if user == "" {
			return errors.New("no user given (-u) or configured (portal.user)")
		}

		password, err := credential.TerminalPrompt(os.Stderr)(user)
		if err != nil {
			return err
		}
		ring, err := credential.OpenKeyring(filepath.Join(cfg.BaseDir, "keyring"))
		if err != nil {
			return err
		}
		if err := ring.SetPassword(user, password); err != nil {
			return err
		}
		fmt.Printf("Password for %s stored in keyring\n", user)
		return nil
	},
}

// demo command
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Log in, list all mailings and download the oldest scanned one",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loggedIn(cmd, "Demo")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Demo(cmd.Context(), os.Stdout)
	},
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Download missing artifacts of all mailings",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		req := app.SyncRequest{}
		req.Thumbnails, _ = flags.GetBool("thumbs")
		req.Dirs, _ = flags.GetStringArray("dir")
		req.Recursive, _ = flags.GetBool("recursive")
		req.IgnoreLedger, _ = flags.GetBool("nodb")
		req.NoCombine, _ = flags.GetBool("no-combine")
		req.ForwardDirs, _ = flags.GetStringArray("forward-dir")
		req.ForwardOlder, _ = flags.GetInt("forward-older")

		a, err := loggedIn(cmd, "Sync")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Sync(cmd.Context(), req)
		if res != nil && res.Report != nil {
			r := res.Report
			fmt.Printf("Mailings: %d  downloaded: %d  combined: %d  tagged: %d  failed: %d\n",
				r.Mailings, r.Downloaded, r.Combined, r.Tagged, r.Failed)
			if res.Forwarded > 0 {
				fmt.Printf("Added %d mailing(s) to the forwarding batch\n", res.Forwarded)
			}
		}
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		return nil
	},
}

// batches command
var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "List unsent forwarding batches",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loggedIn(cmd, "Batches")
		if err != nil {
			return err
		}
		defer a.Close()

		batches, err := a.Batches(cmd.Context())
		if err != nil {
			return err
		}
		if len(batches) == 0 {
			fmt.Println("There is no unsent forwarding batch. Create one using the web interface.")
			return nil
		}
		for _, b := range batches {
			fmt.Printf("%-10s  requested for %s  %d mailing(s)\n",
				b.ID, b.RequestedFor.Format("2006-01-02"), len(b.MailingIDs))
		}
		return nil
	},
}

// forward command
var forwardCmd = &cobra.Command{
	Use:   "forward MAILING_ID",
	Short: "Add a mailing to the first unsent forwarding batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loggedIn(cmd, "Forward")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.ForwardMailing(cmd.Context(), args[0])
		if errors.Is(err, ds.ErrNoUnsentBatch) {
			return fmt.Errorf("%w: create one using the web interface", err)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Mailing %s: %s\n", args[0], res)
		return nil
	},
}

// check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report mailings with more than one local file of a type",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("count") {
			cmd.Flags().Set("count", fmt.Sprint(checkListCount))
		}
		dirs, _ := cmd.Flags().GetStringArray("dir")
		recursive, _ := cmd.Flags().GetBool("recursive")

		a, err := loggedIn(cmd, "Check")
		if err != nil {
			return err
		}
		defer a.Close()

		dups, err := a.CheckDuplicates(cmd.Context(), dirs, recursive)
		if err != nil {
			return err
		}
		if len(dups) == 0 {
			fmt.Println("No duplicates found.")
			return nil
		}
		for _, d := range dups {
			fmt.Printf("%s (%s):\n", d.Mailing.Barcode, d.Ext)
			for _, f := range d.Files {
				fmt.Printf("  %s\n", f)
			}
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		runID, _ := cmd.Flags().GetString("run")

		a, err := newApp(cmd, "History")
		if err != nil {
			return err
		}
		defer a.Close()

		if runID != "" {
			events, err := a.Events(runID)
			if err != nil {
				return err
			}
			for _, e := range events {
				fmt.Printf("%s  %-8s  %-8s  %-16s  %s %s\n",
					e.At.Local().Format("2006-01-02 15:04:05"), e.Barcode, e.Kind, e.Action, e.Path, e.Detail)
			}
			return nil
		}

		ops, err := a.History(limit)
		if err != nil {
			return err
		}
		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if !op.FinishedAt.IsZero() {
				duration = op.FinishedAt.Sub(op.StartedAt).Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-8s  %s  %-8s  %4d event(s)  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Local().Format("2006-01-02 15:04:05"),
				op.Status,
				op.EventCount,
				duration,
				op.RunID,
			)
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP("user", "u", "", "Dropscan username (may be set in the credentials file)")
	pf.StringP("password", "p", "", "Dropscan password (may be set in the credentials file or keyring)")
	pf.Int("count", 0, "Number of list items to request from Dropscan (default from config)")
	pf.String("proxy", "", "Proxy server used to connect to Dropscan")
	pf.IntP("verbose", "v", 0, "Verbosity [0..3]")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configInitCmd.Flags().String("target", "", "Folder the mailings are mirrored into")

	credentialsCmd.AddCommand(credentialsSetCmd)

	syncCmd.Flags().Bool("thumbs", false, "Also sync envelope thumbnails")
	syncCmd.Flags().StringArrayP("dir", "d", nil, "Additional folder to check for existing files (repeatable)")
	syncCmd.Flags().BoolP("recursive", "r", false, "Check all subfolders of the target for existing files")
	syncCmd.Flags().Bool("nodb", false, "Do not read the sync ledger (local files are always checked)")
	syncCmd.Flags().Bool("no-combine", false, "Keep envelope and PDF as separate files")
	syncCmd.Flags().StringArray("forward-dir", nil, "Add mailings with a file in this folder to the forwarding batch (repeatable)")
	syncCmd.Flags().Int("forward-older", -1, "Add mailings older than this many days to the forwarding batch")

	checkCmd.Flags().StringArrayP("dir", "d", nil, "Additional folder to check (repeatable)")
	checkCmd.Flags().BoolP("recursive", "r", false, "Check all subfolders of the target")

	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of runs to show")
	historyCmd.Flags().String("run", "", "Show the events of one run")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(credentialsCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(batchesCmd)
	rootCmd.AddCommand(forwardCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(historyCmd)
}
