package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/aukilabs/navgrid/cellgrid"
	"github.com/aukilabs/navgrid/featureflag"
	navhttp "github.com/aukilabs/navgrid/http"
	"github.com/aukilabs/navgrid/payload"
	"github.com/aukilabs/navgrid/sector"
	"github.com/aukilabs/navgrid/store"
	"github.com/aukilabs/navgrid/streamer"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
)

var (
	// The navgrid version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "navgrid_info",
		Help:        "Navgrid information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr         string         `cli:""        env:"NAVGRID_ADDR"          help:"Listening address for grid queries."`
	AdminAddr    string         `cli:""        env:"NAVGRID_ADMIN_ADDR"    help:"Admin listening address."`
	StorePath    string         `cli:""        env:"NAVGRID_STORE_PATH"    help:"The SQLite database where sector archives are stored."`
	ImportDir    string         `cli:""        env:"NAVGRID_IMPORT_DIR"    help:"A directory whose sector archives are imported into the store at startup."`
	Kind         string         `cli:""        env:"NAVGRID_KIND"          help:"The kind of cells the grid holds (navmesh|graph)."`
	GridConfig   string         `cli:""        env:"NAVGRID_GRID_CONFIG"   help:"A YAML file with the grid tuning."`
	ActiveGUIDs  []string       `cli:""        env:"NAVGRID_ACTIVE_GUIDS"  help:"Comma separated GUIDs restricting which sectors are activated."`
	LogLevel     string         `cli:""        env:"NAVGRID_LOG_LEVEL"     help:"Log level (debug|info|warning|error)."`
	LogIndent    bool           `cli:""        env:"NAVGRID_LOG_INDENT"    help:"Indent logs."`
	Streamer     streamerConfig `cli:",hidden" env:"-"                     help:"Streamer configuration."`
	FeatureFlags []string       `cli:",hidden" env:"NAVGRID_FEATURE_FLAGS" help:"Comma separated feature flags"`
	Version      bool           `cli:""        env:"-"                     help:"Show version."`
	Help         bool           `cli:""        env:"-"                     help:"Show help."`
}

type streamerConfig struct {
	Policy      string        `cli:",hidden" env:"NAVGRID_STREAMER_POLICY"       help:"The activation policy of streamed sectors (deferred|activate|supersede)."`
	Workers     int           `cli:",hidden" env:"NAVGRID_STREAMER_WORKERS"      help:"The number of archives decoded at once."`
	InsertRate  float64       `cli:",hidden" env:"NAVGRID_STREAMER_INSERT_RATE"  help:"The maximum number of sectors inserted per second, 0 for unlimited."`
	InsertBurst int           `cli:",hidden" env:"NAVGRID_STREAMER_INSERT_BURST" help:"The number of sectors inserted in a single burst."`
	Timeout     time.Duration `cli:",hidden" env:"NAVGRID_STREAMER_TIMEOUT"      help:"The time given to the initial load."`
}

func main() {
	defaultStreamer := streamer.DefaultConfig()

	conf := config{
		Addr:      ":4100",
		AdminAddr: ":18290",
		StorePath: "navgrid.db",
		Kind:      payload.KindNavMesh.String(),
		LogLevel:  logs.InfoLevel.String(),
		Streamer: streamerConfig{
			Policy:      defaultStreamer.Policy.String(),
			Workers:     defaultStreamer.Workers,
			InsertRate:  defaultStreamer.InsertRate,
			InsertBurst: defaultStreamer.InsertBurst,
			Timeout:     time.Minute * 5,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts a navgrid server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	featureFlags := featureflag.New(conf.FeatureFlags)

	gridConf, err := loadGridConfig(conf, featureFlags)
	if err != nil {
		logs.Fatal(err)
	}

	var gridOptions []cellgrid.Option
	if len(conf.ActiveGUIDs) != 0 {
		activeSet, err := parseActiveSet(conf.ActiveGUIDs)
		if err != nil {
			logs.Fatal(err)
		}
		gridOptions = append(gridOptions, cellgrid.WithActiveSet(activeSet))
	}

	grid, err := cellgrid.New(gridConf, gridOptions...)
	if err != nil {
		logs.Fatal(errors.New("creating grid failed").Wrap(err))
	}
	lockedGrid := &lockedGrid{grid: grid}

	sectors, err := store.Open(conf.StorePath)
	if err != nil {
		logs.Fatal(err)
	}
	defer sectors.Close()

	if conf.ImportDir != "" {
		featureFlags.IfNotSet(featureflag.FlagDisableArchiveImport, func() {
			if err := importArchives(ctx, sectors, conf.ImportDir); err != nil {
				logs.Fatal(err)
			}
		})
	}

	policy, err := cellgrid.ParsePolicy(conf.Streamer.Policy)
	if err != nil {
		logs.Fatal(err)
	}

	stream := streamer.New(grid, sectors, streamer.Config{
		Policy:      policy,
		Workers:     conf.Streamer.Workers,
		InsertRate:  conf.Streamer.InsertRate,
		InsertBurst: conf.Streamer.InsertBurst,
	})

	var loaded sync.WaitGroup
	var ready bool
	var readyMutex sync.Mutex

	loaded.Add(1)
	go func() {
		defer loaded.Done()

		loadCtx, cancel := context.WithTimeout(ctx, conf.Streamer.Timeout)
		defer cancel()

		if err := stream.LoadAll(loadCtx); err != nil {
			logs.Warn(errors.New("loading sectors failed").Wrap(err))
			return
		}

		readyMutex.Lock()
		ready = true
		readyMutex.Unlock()
	}()

	go stream.Run(ctx, lockedGrid)

	readinessCheck := func() bool {
		readyMutex.Lock()
		defer readyMutex.Unlock()

		if !ready {
			return false
		}
		inserts, removals := stream.Pending()
		return inserts == 0 && removals == 0
	}

	var service http.ServeMux
	service.Handle("/health", navhttp.HandleWithCORS(http.HandlerFunc(navhttp.HandleHealthCheck)))
	service.Handle("/ready", navhttp.HandleWithCORS(navhttp.HandleReadyCheck(readinessCheck)))
	service.Handle("/version", navhttp.HandleWithCORS(navhttp.HandleVersion(version)))
	featureFlags.IfNotSet(featureflag.FlagDisableGridState, func() {
		service.Handle("/grid", navhttp.HandleWithCORS(navhttp.HandleGridState(lockedGrid)))
	})

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", navhttp.HandleHealthCheck)
	admin.HandleFunc("/ready", navhttp.HandleReadyCheck(readinessCheck))
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("kind", conf.Kind).
		WithTag("store", conf.StorePath).
		WithTag("policy", policy.String()).
		Info("starting navgrid server")

	navhttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			navhttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)

	loaded.Wait()
}

// lockedGrid serializes the grid queries with the streamer updates.
type lockedGrid struct {
	sync.Mutex
	grid *cellgrid.Grid
}

func (g *lockedGrid) DebugInfo() cellgrid.DebugInfo {
	g.Lock()
	defer g.Unlock()

	return g.grid.DebugInfo()
}

func (g *lockedGrid) CheckInvariants() error {
	g.Lock()
	defer g.Unlock()

	return g.grid.CheckInvariants()
}

func loadGridConfig(conf config, flags featureflag.FeatureFlag) (cellgrid.Config, error) {
	kind, err := payload.ParseKind(conf.Kind)
	if err != nil {
		return cellgrid.Config{}, err
	}

	c := cellgrid.DefaultConfig(kind)
	if conf.GridConfig != "" {
		if c, err = cellgrid.LoadConfig(conf.GridConfig, kind); err != nil {
			return c, err
		}
	}

	flags.IfSet(featureflag.FlagDisableEdgeStitching, func() {
		c.StitchEdges = false
	})
	flags.IfSet(featureflag.FlagDebugInvariants, func() {
		c.Debug = true
	})
	return c, c.Validate()
}

func parseActiveSet(guids []string) (*sector.ActiveSet, error) {
	ids := make([]uuid.UUID, 0, len(guids))
	for _, g := range guids {
		id, err := uuid.Parse(g)
		if err != nil {
			return nil, errors.New("invalid active guid").
				WithTag("guid", g).
				Wrap(err)
		}
		ids = append(ids, id)
	}
	return sector.NewActiveSet(ids...), nil
}

// importArchives copies the sector archives found in dir into the store.
// Archives that fail to decode are skipped.
func importArchives(ctx context.Context, s *store.Store, dir string) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.nvsa"))
	if err != nil {
		return errors.New("listing sector archives failed").
			WithTag("dir", dir).
			Wrap(err)
	}

	imported := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.New("reading sector archive failed").
				WithTag("path", path).
				Wrap(err)
		}

		id, err := s.Put(ctx, data)
		if errors.IsType(err, sector.ErrTypeInvalidArchive) || errors.IsType(err, sector.ErrTypeInvalidSector) {
			logs.Warn(errors.New("skipping invalid sector archive").
				WithTag("path", path).
				Wrap(err))
			continue
		}
		if err != nil {
			return err
		}

		logs.WithTag("path", path).
			WithTag("sector", id.String()).
			Debug("sector archive imported")
		imported++
	}

	logs.WithTag("dir", dir).
		WithTag("count", imported).
		Info("sector archives imported")
	return nil
}
