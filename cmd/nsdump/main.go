package main

import (
	"flag"
	"fmt"
	"os"

	namefs "github.com/brettbedarf/namefs"
	"github.com/brettbedarf/namefs/config"
	"github.com/brettbedarf/namefs/internal/util"
	"github.com/brettbedarf/namefs/requests"
)

func main() {
	// Parse command line arguments
	var (
		configPath string
		nodesDef   string
		verbose    int
		summary    string
	)
	flag.StringVar(&configPath, "config", "", "Path to config override file (.yaml/.yml/.json)")
	flag.StringVar(&configPath, "c", "", "--config (shorthand)")
	flag.StringVar(&nodesDef, "nodes", "", "Path to namespace definition file")
	flag.StringVar(&nodesDef, "n", "", "--nodes (shorthand)")
	flag.StringVar(&summary, "summary", "/", "Path to print a content summary for")
	flag.StringVar(&summary, "s", "/", "--summary (shorthand)")
	flag.IntVar(&verbose, "verbose", 3, "Log verbosity level between 1 (error) and 5 (trace). Default is 3 (info).")
	flag.IntVar(&verbose, "v", 3, "--verbose (shorthand)")
	flag.Parse()

	// Initialize logger
	if verbose < 1 {
		verbose = 1
	}
	if verbose > 5 {
		verbose = 5
	}
	logLvls := [5]util.LogLevel{util.ErrorLevel, util.WarnLevel, util.InfoLevel, util.DebugLevel, util.TraceLevel}
	util.InitializeLogger(logLvls[verbose-1])
	logger := util.GetLogger("main")

	cfg := config.NewDefaultConfig()
	if configPath != "" {
		loaded, err := config.NewConfigFromFile(configPath)
		if err != nil {
			logger.Fatal().Err(err).Str("config", configPath).Msg("Failed to load config file")
		}
		cfg = loaded
	}

	fs := namefs.New(cfg)

	// Load node definitions
	if nodesDef != "" {
		defData, err := os.ReadFile(nodesDef)
		if err != nil {
			logger.Fatal().Err(err).Str("nodes", nodesDef).Msg("Failed to read definition file")
		}
		reqs, err := requests.LoadDefinitionFile(nodesDef, defData)
		if err != nil {
			logger.Fatal().Err(err).Str("nodes", nodesDef).Msg("Failed to parse definition file")
		}

		addCnt := 0
		for _, req := range reqs {
			if _, err := fs.AddNode(req); err != nil {
				logger.Error().Err(err).Str("path", req.GetPath()).Msg("Failed to add node")
				continue
			}
			addCnt++
		}
		logger.Info().Int("nodes", addCnt).Msg("Added new nodes to namespace")
	} else {
		logger.Warn().Msg("No definition file provided; dumping an empty namespace")
	}

	fs.DumpTree(os.Stdout)

	cs, err := fs.ContentSummary(summary)
	if err != nil {
		logger.Fatal().Err(err).Str("path", summary).Msg("Failed to compute content summary")
	}
	fmt.Printf("%s: %d dir(s), %d file(s), %d symlink(s), length=%d, diskspace=%d\n",
		summary, cs.DirectoryCount, cs.FileCount, cs.SymlinkCount, cs.Length, cs.Diskspace)
}
