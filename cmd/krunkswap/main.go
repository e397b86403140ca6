package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/krunkswap/krunkswap/configs"
	"github.com/krunkswap/krunkswap/internal/client"
	"github.com/krunkswap/krunkswap/internal/logging"
	"github.com/krunkswap/krunkswap/internal/store"
)

var rootCmd = &cobra.Command{
	Use:           "krunkswap",
	Short:         "Krunker client with local resource swapping",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runClient,
}

var swapCmd = &cobra.Command{
	Use:   "swap",
	Short: "Inspect the resource swap table",
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and write persisted client settings",
}

var config struct {
	profile  string
	swapDir  string
	join     string
	url      string
	headless bool
}

var (
	version = "dev"
	commit  = "none"
	date    = ""
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&config.profile, "profile", "p", "default", "Profile name under the config directory")
	rootCmd.PersistentFlags().StringVar(&config.swapDir, "swap-dir", "", "Override the swap folder")
	rootCmd.Flags().StringVarP(&config.join, "join", "j", "", "Lobby join code, e.g. FRA:abc12")
	rootCmd.Flags().StringVarP(&config.url, "url", "u", "", "Open this game URL instead of the landing page")
	rootCmd.Flags().BoolVar(&config.headless, "headless", false, "Run Chrome without a window")

	swapListCmd := &cobra.Command{
		Use:   "list",
		Short: "Scan the swap folder and print the resulting table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client, _ *store.Store, log *logrus.Entry) error {
				res, err := c.LoadTable(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				for _, e := range res.Table.Entries() {
					fmt.Fprintf(tw, "%s\t%s\n", e.Pattern, e.Destination)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(out, "%d entries, fingerprint %016x\n", res.Table.Len(), res.Table.Fingerprint())
				if res.Token != "" {
					fmt.Fprintf(out, "game build %s\n", res.Token)
				}
				return nil
			})
		},
	}

	swapResolveCmd := &cobra.Command{
		Use:   "resolve",
		Short: "Fetch the current game script build token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client, _ *store.Store, _ *logrus.Entry) error {
				r, err := c.Resolver()
				if err != nil {
					return err
				}
				if r == nil {
					return errors.New("resolver is disabled in this profile")
				}
				token, err := r.Resolve(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	}

	configGetCmd := &cobra.Command{
		Use:   "get KEY [DEFAULT]",
		Short: "Print a setting",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(_ *client.Client, st *store.Store, _ *logrus.Entry) error {
				def := ""
				if len(args) == 2 {
					def = args[1]
				}
				fmt.Fprintln(cmd.OutOrStdout(), st.Get(args[0], def))
				return nil
			})
		},
	}

	configSetCmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Persist a setting; takes effect on the next launch",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(_ *client.Client, st *store.Store, log *logrus.Entry) error {
				value := args[1]
				if b, err := strconv.ParseBool(value); err == nil {
					value = strconv.FormatBool(b)
				}
				if err := st.Set(args[0], value); err != nil {
					return err
				}
				log.WithFields(logrus.Fields{"key": args[0], "value": value}).Info("setting saved")
				return nil
			})
		},
	}

	configListCmd := &cobra.Command{
		Use:   "list",
		Short: "Print every persisted setting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(_ *client.Client, st *store.Store, _ *logrus.Entry) error {
				keys, err := st.Keys()
				if err != nil {
					return err
				}
				for _, k := range keys {
					fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, st.Get(k, ""))
				}
				return nil
			})
		},
	}

	configDeleteCmd := &cobra.Command{
		Use:   "delete KEY",
		Short: "Remove a setting so its default applies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(_ *client.Client, st *store.Store, _ *logrus.Entry) error {
				return st.Delete(args[0])
			})
		},
	}

	configResetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every persisted setting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(_ *client.Client, st *store.Store, log *logrus.Entry) error {
				if err := st.Reset(); err != nil {
					return err
				}
				log.Info("settings reset")
				return nil
			})
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "krunkswap %s (%s) %s\n", version, commit, date)
		},
	}

	swapCmd.AddCommand(swapListCmd, swapResolveCmd)
	configCmd.AddCommand(configGetCmd, configSetCmd, configListCmd, configDeleteCmd, configResetCmd)
	rootCmd.AddCommand(swapCmd, configCmd, versionCmd)
}

// withClient loads the profile, the logger and the settings store, and tears
// them down after fn returns.
func withClient(fn func(*client.Client, *store.Store, *logrus.Entry) error) error {
	p, err := configs.LoadProfile(config.profile)
	if err != nil {
		return fmt.Errorf("profile %s: %w", config.profile, err)
	}
	profile := *p
	if config.swapDir != "" {
		profile.SwapDir = config.swapDir
	}

	log, closeLog, err := logging.New(profile.LogLevel, profile.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	st, err := store.Open(profile.StorePath)
	if err != nil {
		return fmt.Errorf("settings store: %w", err)
	}
	defer st.Close()

	return fn(client.New(&profile, st, log), st, log)
}

func runClient(cmd *cobra.Command, args []string) error {
	return withClient(func(c *client.Client, _ *store.Store, log *logrus.Entry) error {
		log.WithField("version", version).Info("starting client")
		return c.Run(cmd.Context(), client.RunOptions{
			Headless: config.headless,
			Join:     config.join,
			URL:      config.url,
		})
	})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "krunkswap:", err)
		stop()
		os.Exit(1)
	}
}
