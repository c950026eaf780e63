package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/flow-hydraulics/settings-client/cache"
	"github.com/flow-hydraulics/settings-client/configs"
	"github.com/flow-hydraulics/settings-client/datastore/gorm"
	"github.com/flow-hydraulics/settings-client/settings"
	"github.com/gomodule/redigo/redis"
	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
)

const version = "0.1.0"

var (
	sha1ver   string // sha1 revision used to build the program
	buildTime string // when the executable was built
)

const usage = `Usage: settings-client [flags] <command>

Commands:
  bootstrap          fetch all settings and store the snapshot
  get                print all settings
  set <name> <value> update a single setting
  cached             print the stored snapshot

Flags:
`

func main() {
	var (
		printVersion bool
		envFilePath  string
	)

	flag.BoolVar(&printVersion, "version", false, "if true, print version and exit")
	flag.StringVar(&envFilePath, "envfile", "", "optional env file loaded before parsing the environment")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if printVersion {
		fmt.Printf("v%s build on %s from sha1 %s\n", version, buildTime, sha1ver)
		os.Exit(0)
	}

	cfg, err := configs.ParseConfig(&configs.Options{EnvFilePath: envFilePath})
	if err != nil {
		panic(err)
	}

	configs.ConfigureLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, flag.Args(), os.Stdout); err != nil {
		stop()
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg *configs.Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("no command given, see -help")
	}

	policy, err := settings.ParseCachePolicy(cfg.CachePolicy)
	if err != nil {
		return err
	}

	store, closeStore, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	limiter := ratelimit.NewUnlimited()
	if cfg.ClientMaxRequestRate > 0 {
		limiter = ratelimit.New(cfg.ClientMaxRequestRate, ratelimit.WithoutSlack)
	}

	client := settings.NewClient(
		cfg.ApiBaseURL,
		settings.WithTimeout(cfg.ClientRequestTimeout),
		settings.WithRateLimiter(limiter),
	)

	svc := settings.NewService(
		client,
		store,
		settings.WithCachePolicy(policy),
		settings.WithBootstrapRetry(cfg.BootstrapMaxAttempts, cfg.BootstrapMinBackoff, cfg.BootstrapMaxBackoff),
	)

	switch cmd := args[0]; cmd {
	case "bootstrap":
		if err := svc.Setup(ctx, cfg.Token); err != nil {
			return err
		}
		log.Info("Settings snapshot stored")
		return nil

	case "get":
		res, err := svc.GetAllSettings(ctx, cfg.Token)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(res))
		return err

	case "set":
		if len(args) != 3 {
			return fmt.Errorf("usage: set <name> <value>")
		}
		res, err := svc.UpdateSettingValue(ctx, cfg.Token, args[1], args[2])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(res))
		return err

	case "cached":
		snapshot, err := svc.Cached()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(snapshot.Data))
		return err

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// newStore builds the configured snapshot store and a function releasing it.
func newStore(cfg *configs.Config) (cache.Store, func(), error) {
	switch cfg.CacheStoreType {
	// Shared SQL/Gorm store
	case cache.StoreTypeShared.String():
		db, err := gorm.New(cfg)
		if err != nil {
			return nil, nil, err
		}
		return cache.NewGormStore(db), func() { gorm.Close(db) }, nil

	// Redis, separate from the SQL database
	case cache.StoreTypeRedis.String():
		if cfg.CacheRedisURL == "" {
			return nil, nil, fmt.Errorf("cache store set to redis but Redis URL is empty")
		}
		pool := &redis.Pool{
			MaxIdle:     3,
			IdleTimeout: 240 * time.Second,
			Dial: func() (redis.Conn, error) {
				return redis.DialURL(cfg.CacheRedisURL)
			},
		}
		return cache.NewRedisStore(pool), func() {
			log.Debug("Closing Redis pool..")
			if err := pool.Close(); err != nil {
				log.Warn(err)
			}
		}, nil

	// In-memory, only lives as long as the process
	case cache.StoreTypeLocal.String():
		return cache.NewLocalStore(), func() {}, nil
	}

	return nil, nil, fmt.Errorf("cache store type '%s' not supported", cfg.CacheStoreType)
}
