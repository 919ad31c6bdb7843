package cli

import (
	"fmt"

	"github.com/harun/ishikawa/internal/config"
	"github.com/harun/ishikawa/internal/logger"
	"github.com/harun/ishikawa/internal/metrics"
	"github.com/harun/ishikawa/pkg/build"
	"github.com/harun/ishikawa/pkg/tool"
	"github.com/harun/ishikawa/pkg/toolrpc"
)

// app bundles what a command needs to run
type app struct {
	config  *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
	manager *tool.Manager
}

// newApp loads config, applies the global flags and wires the manager
func newApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		if err := config.NewValidator().ValidateLogLevel(logLevel); err != nil {
			return nil, err
		}
		cfg.Logging.Level = logLevel
	}
	if rootDir != "" {
		cfg.Root = rootDir
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: true,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	zl := log.GetZerolog()

	mtr := metrics.NewMetrics()
	runner := build.NewExecRunner()
	buildConfig := build.Config{
		GoBinary:       cfg.Build.GoBinary,
		BuildTimeout:   cfg.BuildTimeout(),
		InstallTimeout: cfg.InstallTimeout(),
		Verbose:        cfg.Build.Verbose,
	}

	manager, err := tool.NewManager(zl, tool.ManagerConfig{
		Root:               cfg.Root,
		GoVersion:          cfg.Build.GoVersion,
		SDKPath:            cfg.Build.SDKPath,
		Compiler:           build.NewGoCompiler(zl, runner, buildConfig),
		Installer:          build.NewGoInstaller(zl, runner, buildConfig),
		Artifacts:          toolrpc.NewLoader(zl),
		Metrics:            mtr,
		DedupeLoads:        cfg.Loader.DedupeLoads,
		MaxConcurrentLoads: cfg.Loader.MaxConcurrentLoads,
	})
	if err != nil {
		log.Close()
		return nil, err
	}

	return &app{config: cfg, log: log, metrics: mtr, manager: manager}, nil
}

// Close stops tool processes and closes the log file
func (a *app) Close() error {
	err := a.manager.Close()
	if cerr := a.log.Close(); err == nil {
		err = cerr
	}
	return err
}
