package main

import (
	"flag"
	"strconv"
	"strings"

	"redisd/internal/config"
	"redisd/internal/logging"
)

// parseFlags builds the Config record from CLI flags plus an
// optional TOML file overlay, using a flat flag.FlagSet that feeds
// directly into a config struct.
func parseFlags() *config.Config {
	host := flag.String("host", "0.0.0.0", "address to bind")
	port := flag.Int("port", 6379, "port to listen on")
	dir := flag.String("dir", "", "directory containing the RDB snapshot")
	dbfilename := flag.String("dbfilename", "", "RDB snapshot filename")
	replicaof := flag.String("replicaof", "", `"host port" of a master to replicate from`)
	configFile := flag.String("config", "", "optional TOML file overlaying these flags")
	flag.Parse()

	conf := &config.Config{
		Host:       *host,
		Port:       *port,
		Dir:        *dir,
		DBFilename: *dbfilename,
	}

	if *replicaof != "" {
		parts := strings.Fields(*replicaof)
		var masterPort int
		var perr error
		if len(parts) == 2 {
			masterPort, perr = strconv.Atoi(parts[1])
		}
		if len(parts) != 2 || perr != nil {
			logging.L().Fatal().Str("replicaof", *replicaof).Msg(`--replicaof must be "host port"`)
		}
		conf.MasterHost = parts[0]
		conf.MasterPort = masterPort
		conf.IsReplica = true
	}

	if *configFile != "" {
		if err := config.ApplyFile(conf, *configFile); err != nil {
			logging.L().Fatal().Err(err).Str("config", *configFile).Msg("failed to load config file")
		}
	}

	return conf
}

