package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/gofiber/fiber/v2"
	logging "github.com/ipfs/go-log/v2"
	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/support/api"
	"github.com/ondrix/vesting-actors/support/orm"
	"github.com/ondrix/vesting-actors/support/vm"
)

var log = logging.Logger("vestd")

type Config struct {
	StatePath    string
	ListenAddr   string
	PostgresDSN  string
	WallClock    bool
	SaveInterval time.Duration
	LogLevel     string
}

func parseConfig(args []string) (*Config, error) {
	var cfg Config
	fs := flag.NewFlagSet("vestd", flag.ContinueOnError)
	fs.StringVar(&cfg.StatePath, "state", "vesting-ledger.json", "ledger snapshot file")
	fs.StringVar(&cfg.ListenAddr, "listen", ":8080", "HTTP server listen address")
	fs.StringVar(&cfg.PostgresDSN, "pg", "", "PostgreSQL connection URL used to index commits")
	fs.BoolVar(&cfg.WallClock, "wallclock", false, "move the ledger clock with the system clock")
	fs.DurationVar(&cfg.SaveInterval, "save-interval", 10*time.Second, "how often the snapshot is written")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "log level")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.SaveInterval <= 0 {
		return nil, errors.New("save-interval must be positive")
	}
	return &cfg, nil
}

type daemon struct {
	cfg *Config
	v   *vm.VM
	app *fiber.App
	db  *pg.DB
}

func newDaemon(ctx context.Context, cfg *Config) (*daemon, error) {
	v := vm.NewVM(ctx, vm.VestingPrograms())
	if err := v.LoadSnapshot(cfg.StatePath); err != nil {
		return nil, err
	}
	d := &daemon{cfg: cfg, v: v, app: api.NewApp(v)}
	if cfg.PostgresDSN != "" {
		opt, err := pg.ParseURL(cfg.PostgresDSN)
		if err != nil {
			return nil, errors.Wrap(err, "pg")
		}
		d.db = pg.Connect(opt)
		if err := orm.CreateSchema(d.db); err != nil {
			_ = d.db.Close()
			return nil, errors.Wrap(err, "create schema")
		}
		v.AddObserver(orm.NewObserver(d.db))
	}
	return d, nil
}

func (d *daemon) save() error {
	return d.v.SaveSnapshot(d.cfg.StatePath)
}

// syncClock moves the ledger clock up to the system clock. It never moves it back.
func (d *daemon) syncClock(now time.Time) {
	ts := abi.Timestamp(now.Unix())
	if ts > d.v.Now() {
		d.v.SetNow(ts)
	}
}

func (d *daemon) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infow("listening", "addr", d.cfg.ListenAddr, "root", d.v.StateRoot())
		return d.app.Listen(d.cfg.ListenAddr)
	})
	g.Go(func() error {
		<-ctx.Done()
		return d.app.Shutdown()
	})
	g.Go(func() error {
		saveTicker := time.NewTicker(d.cfg.SaveInterval)
		defer saveTicker.Stop()
		clockTicker := time.NewTicker(time.Second)
		defer clockTicker.Stop()
		for {
			select {
			case <-ctx.Done():
				return d.save()
			case <-saveTicker.C:
				if err := d.save(); err != nil {
					log.Errorw("failed to save snapshot", "err", err)
				}
			case now := <-clockTicker.C:
				if d.cfg.WallClock {
					d.syncClock(now)
				}
			}
		}
	})
	err := g.Wait()
	if d.db != nil {
		_ = d.db.Close()
	}
	return err
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := logging.SetLogLevel("*", cfg.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := newDaemon(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to start", "err", err)
	}
	if err := d.run(ctx); err != nil {
		log.Fatalw("stopped", "err", err)
	}
}
