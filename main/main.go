package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/phil-mansfield/pickerel"
	"github.com/phil-mansfield/pickerel/checkpoint"
	"github.com/phil-mansfield/pickerel/config"
)

// FileGroup contains utility files for logging and writing profiles to.
type FileGroup struct {
	log, prof *os.File
}

// Close closes the files inside FileGroup.
func (fg *FileGroup) Close() {
	if fg.log != nil {
		if err := fg.log.Close(); err != nil {
			log.Fatal(err.Error())
		}
	}
	if fg.prof != nil {
		pprof.StopCPUProfile()
		if err := fg.prof.Close(); err != nil {
			log.Fatal(err.Error())
		}
	}
}

func main() {
	// The main function manages input sanitization and calls the secondary
	// main functions for each mode. The code tries to fail gracefully if
	// the user provides incorrect input.

	var (
		runStr, restartStr string
		exampleConfig      bool
	)

	flag.StringVar(
		&runStr, "Run", "",
		"Configuration file to start a fresh run from.",
	)
	flag.StringVar(
		&restartStr, "Restart", "",
		"Checkpoint file to resume a run from. A glob pattern picks the "+
			"newest matching checkpoint.",
	)
	flag.BoolVar(
		&exampleConfig, "ExampleConfig", false,
		"Prints an example configuration file to stdout.",
	)

	flag.Parse()

	// Figure out the mode and fail with a descriptive error if the user
	// gave incorrect flags.
	set := []string{}
	if runStr != "" {
		set = append(set, "Run")
	}
	if restartStr != "" {
		set = append(set, "Restart")
	}
	if exampleConfig {
		set = append(set, "ExampleConfig")
	}

	if len(set) == 0 {
		log.Fatal("No flags have been set. Set one of -Run, -Restart, " +
			"or -ExampleConfig.")
	}
	if len(set) > 1 {
		log.Fatalf("The following flags were set: %s, but pickerel only "+
			"accepts one flag at a time.", strings.Join(set, ", "))
	}

	switch set[0] {
	case "Run":
		runMain(runStr)
	case "Restart":
		restartMain(restartStr)
	case "ExampleConfig":
		fmt.Println(config.ExampleConfig)
	default:
		panic("Impossible")
	}
}

// runMain starts a fresh run from the config file at fname.
func runMain(fname string) {
	text, err := os.ReadFile(fname)
	if err != nil {
		log.Fatal(err.Error())
	}
	conf, err := config.ReadString(string(text))
	if err != nil {
		log.Fatal(err.Error())
	}

	fg := setupFiles(&conf.Pic)
	defer fg.Close()

	man, err := pickerel.New(string(text), true)
	if err != nil {
		log.Fatal(err.Error())
	}
	if err := man.Run(); err != nil {
		log.Fatal(err.Error())
	}
	if err := man.Close(); err != nil {
		log.Fatal(err.Error())
	}
}

// restartMain resumes the run stored in the checkpoint at path, which may
// be a glob pattern selecting the newest checkpoint of a sequence.
func restartMain(path string) {
	if strings.ContainsAny(path, "*?[") {
		var err error
		path, err = checkpoint.Latest(path)
		if err != nil {
			log.Fatal(err.Error())
		}
	}

	hd, err := checkpoint.ReadHeader(path)
	if err != nil {
		log.Fatal(err.Error())
	}
	conf, err := config.ReadString(hd.Config)
	if err != nil {
		log.Fatal(err.Error())
	}

	fg := setupFiles(&conf.Pic)
	defer fg.Close()

	man, err := pickerel.Restore(path, true)
	if err != nil {
		log.Fatal(err.Error())
	}
	if err := man.Run(); err != nil {
		log.Fatal(err.Error())
	}
	if err := man.Close(); err != nil {
		log.Fatal(err.Error())
	}
}

// setupFiles opens the log and profile files the config asks for.
func setupFiles(con *config.PicConfig) *FileGroup {
	fg := new(FileGroup)
	var err error

	if con.LogFile != "" {
		fg.log, err = os.Create(con.LogFile)
		if err != nil {
			log.Fatal(err.Error())
		}
		log.SetOutput(fg.log)
	}

	if con.ProfileFile != "" {
		fg.prof, err = os.Create(con.ProfileFile)
		if err != nil {
			log.Fatal(err.Error())
		}
		if err := pprof.StartCPUProfile(fg.prof); err != nil {
			log.Fatal(err.Error())
		}
	}

	return fg
}
