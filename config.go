/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	backendSQLite   = "sqlite"
	backendSupabase = "supabase"
	backendMemory   = "memory"
	backendNone     = "none"
)

type Config struct {
	backend     string
	bind        string
	database    string
	namesDB     string
	port        int
	prefix      string
	profile     bool
	supabaseKey string
	supabaseURL string
	tlsCert     string
	tlsKey      string
	verbose     bool
	version     bool

	// terminal client
	server string
	limit  int
	name   string
	score  float64
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}

	switch c.backend {
	case backendSQLite:
		if strings.TrimSpace(c.database) == "" {
			return errors.New("--database is required for the sqlite backend")
		}
	case backendSupabase, backendMemory, backendNone:
	default:
		return fmt.Errorf("unknown backend %q (must be one of sqlite, supabase, memory, none)", c.backend)
	}

	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// envAliases lists the environment variables read for a flag in place of the
// TREXBOARD_ default. The hosted deployment exports the Supabase pair unprefixed.
var envAliases = map[string][]string{
	"supabase-url":              {"TREXBOARD_SUPABASE_URL", "SUPABASE_URL"},
	"supabase-service-role-key": {"TREXBOARD_SUPABASE_SERVICE_ROLE_KEY", "SUPABASE_SERVICE_ROLE_KEY"},
}

// bindFlags applies environment values to any flag left unset on the command line.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(append([]string{f.Name}, envAliases[f.Name]...)...)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func normalizeFlags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("TREXBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "trexboard",
		Short:         "A shared leaderboard for the T-Rex runner game.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		PreRun: func(cmd *cobra.Command, args []string) {
			bindFlags(v, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()
	normalizeFlags(fs)

	fs.StringVar(&cfg.backend, "backend", backendSQLite, "score store: sqlite, supabase, memory or none (env: TREXBOARD_BACKEND)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: TREXBOARD_BIND)")
	fs.StringVar(&cfg.database, "database", "trexboard.db", "path to the sqlite score database (env: TREXBOARD_DATABASE)")
	fs.StringVar(&cfg.namesDB, "names-db", "", "path to the player name database, in memory if unset (env: TREXBOARD_NAMES_DB)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: TREXBOARD_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: TREXBOARD_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: TREXBOARD_PROFILE)")
	fs.StringVar(&cfg.supabaseKey, "supabase-service-role-key", "", "supabase service role key (env: SUPABASE_SERVICE_ROLE_KEY)")
	fs.StringVar(&cfg.supabaseURL, "supabase-url", "", "supabase project url (env: SUPABASE_URL)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: TREXBOARD_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: TREXBOARD_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: TREXBOARD_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: TREXBOARD_VERSION)")

	cmd.AddCommand(newTopCmd(cfg, v), newSubmitCmd(cfg, v))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("trexboard v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func newTopCmd(cfg *Config, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Print the current leaderboard.",
		Args:  cobra.ExactArgs(0),
		PreRun: func(cmd *cobra.Command, args []string) {
			bindFlags(v, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTop(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()
	normalizeFlags(fs)

	fs.StringVar(&cfg.server, "server", "http://localhost:8080", "base url of the trexboard server (env: TREXBOARD_SERVER)")
	fs.IntVarP(&cfg.limit, "limit", "n", 10, "number of rows to show (env: TREXBOARD_LIMIT)")

	return cmd
}

func newSubmitCmd(cfg *Config, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a score.",
		Args:  cobra.ExactArgs(0),
		PreRun: func(cmd *cobra.Command, args []string) {
			bindFlags(v, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()
	normalizeFlags(fs)

	fs.StringVar(&cfg.server, "server", "http://localhost:8080", "base url of the trexboard server (env: TREXBOARD_SERVER)")
	fs.StringVar(&cfg.name, "name", "", "player name (env: TREXBOARD_NAME)")
	fs.Float64Var(&cfg.score, "score", 0, "final score (env: TREXBOARD_SCORE)")

	return cmd
}
