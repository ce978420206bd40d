// Package commands реализует консольный клиент spese: вход, транзакции,
// подписки, статистика и анализ поверх шлюза хранения.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/magabrotheeeer/spesesmart/internal/gateway"
	"github.com/magabrotheeeer/spesesmart/internal/llm"
	"github.com/magabrotheeeer/spesesmart/internal/localcache"
	"github.com/magabrotheeeer/spesesmart/internal/models"
)

// env — зависимости, общие для всех подкоманд. Заполняется в PersistentPreRunE.
type env struct {
	cfg    Config
	log    *slog.Logger
	store  *localcache.Store
	gw     *gateway.Gateway
	ai     *llm.Client
	poller *gateway.Poller
}

// NewRootCommand создаёт корневую команду со всеми подкомандами.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

// newRootCommand возвращает также окружение: при ошибке подкоманды
// PersistentPostRunE не вызывается, и кеш закрывает вызывающий.
func newRootCommand() (*cobra.Command, *env) {
	v := newViper()
	e := &env{}
	var configFile string
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "spese",
		Short: "Personal finance tracker",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			e.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			cfg, err := loadConfig(v, configFile)
			if err != nil {
				return err
			}
			return e.open(cmd.Context(), cfg)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return e.close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default $HOME/.config/spese/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose logging to stderr")
	flags.String("server", "", "server base URL")
	flags.Duration("timeout", 0, "timeout of a single server call")
	flags.String("cache", "", "path to the local cache file")
	_ = v.BindPFlag("server.url", flags.Lookup("server"))
	_ = v.BindPFlag("server.timeout", flags.Lookup("timeout"))
	_ = v.BindPFlag("cache.path", flags.Lookup("cache"))

	rootCmd.AddCommand(
		newLoginCommand(e),
		newLogoutCommand(e),
		newUsersCommand(e),
		newTxCommand(e),
		newSubCommand(e),
		newStatsCommand(e),
		newRefreshCommand(e),
		newAnalyzeCommand(e),
		newProfileCommand(e),
		newWatchCommand(e),
	)

	return rootCmd, e
}

func (e *env) open(ctx context.Context, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Cache.Path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	store, err := localcache.Open(cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("opening local cache: %w", err)
	}

	ai, err := llm.New(ctx, cfg.GenAI.APIKey, cfg.GenAI.Model, cfg.GenAI.Timeout)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("creating ai client: %w", err)
	}

	e.cfg = cfg
	e.store = store
	e.ai = ai
	e.gw = gateway.New(gateway.NewClient(cfg.Server.URL, cfg.Server.Timeout), store, nil, e.log)
	e.poller = gateway.NewPoller(cfg.Poll.Interval, cfg.Poll.Debounce)
	return nil
}

func (e *env) close() error {
	if e.store == nil {
		return nil
	}
	err := e.store.Close()
	e.store = nil
	return err
}

var errNotLoggedIn = errors.New("not logged in, run `spese login <user-id>` first")

// currentUser возвращает профиль вошедшего пользователя.
func (e *env) currentUser(ctx context.Context) (models.User, error) {
	id, err := e.gw.Session(ctx)
	if errors.Is(err, models.ErrNotFound) {
		return models.User{}, errNotLoggedIn
	}
	if err != nil {
		return models.User{}, err
	}
	return e.gw.GetUser(ctx, id)
}
