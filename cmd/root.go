package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/autobrr/hardlinkable/pkg/config"
	"github.com/autobrr/hardlinkable/pkg/logger"
	"github.com/autobrr/hardlinkable/pkg/runtime"
)

var (
	// Global flags
	FlagLogLevel     = 0
	FlagConfigFile   = "config.yaml"
	FlagConfigFolder = config.GetDefaultConfigDirectory("hardlinkable", FlagConfigFile)
	FlagLogFile      = "activity.log"
	FlagDryRun       bool

	// Global vars
	log         *logrus.Entry
	initialized bool
)

func initCore(showAppInfo bool) {
	// set core variables
	if !strings.Contains(FlagConfigFile, string(os.PathSeparator)) {
		FlagConfigFile = filepath.Join(FlagConfigFolder, FlagConfigFile)
	}
	if FlagLogFile != "" && !strings.Contains(FlagLogFile, string(os.PathSeparator)) {
		FlagLogFile = filepath.Join(FlagConfigFolder, FlagLogFile)
	}

	// init log
	if err := logger.Init(FlagLogLevel, FlagLogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed initializing logger: %v\n", err)
		os.Exit(1)
	}

	log = logger.GetLogger("app")

	// info
	if showAppInfo {
		log.Infof("Using %s = %q", stringLeftJust("VERSION", " ", 10),
			fmt.Sprintf("%s (%s@%s)", runtime.Version, runtime.GitCommit, runtime.Timestamp))
		log.Infof("Using %s = %q", stringLeftJust("CONFIG", " ", 10), FlagConfigFile)
		log.Infof("Using %s = %q", stringLeftJust("LOG", " ", 10), FlagLogFile)
	}

	// init config
	if err := config.Init(FlagConfigFile); err != nil {
		log.WithError(err).Fatal("Failed initializing config")
	}
}

func stringLeftJust(text string, filler string, size int) string {
	repeatSize := size - len(text)
	if repeatSize < 0 {
		repeatSize = 0
	}
	return fmt.Sprintf("%s%s", text, strings.Repeat(filler, repeatSize))
}
