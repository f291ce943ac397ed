package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/pspoerri/isiscam/internal/config"
	"github.com/pspoerri/isiscam/internal/encode"
	"github.com/pspoerri/isiscam/internal/isis"
	"github.com/pspoerri/isiscam/internal/server"
)

var (
	// Version is the version number. Typically injected via ldflags.
	Version = "dev"

	// ConfigFileName is the configuration file read from the working directory.
	ConfigFileName = config.FileName
)

func root() {
	str := `camsrv answers ISIS camera queries over HTTP.
Clients name a cube by path and get back the selected camera interface
and image/ground conversions as JSON.

Usage:
	camsrv <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `camsrv is configured via its .yml file and ISISCAM_ environment variables.
For a primer on YAML, see https://yaml.org/start.html

When no configuration is provided, the defaults are used.
The command mkconf writes the configuration file with the default values.

Routes (GET):
	/camera?path=             camera summary and selected interface
	/camera/pixel?path=&sample=&line=
	                          image position to latitude/longitude
	/camera/ground?path=&lat=&lon=
	                          latitude/longitude to image position
	/camera/browse?path=&band=
	                          browse image in the configured Browse.Format
	/route-list               the routes above

Cubes whose camera type has no interface (radar, push frame, point,
rolling shutter) are answered with 422 Unprocessable Entity.

Extra instruments can be listed under Instruments, e.g.
	Instruments:
	  - Spacecraft: LUNAR RECONNAISSANCE ORBITER
	    Instrument: NACL
	    Type: LineScan`
	fmt.Println(str)
}

func loadConfig() config.Config {
	cfg, err := config.Load(ConfigFileName)
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}
	return cfg
}

func mkconf() {
	c := loadConfig()
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	if err := config.Write(f, c); err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	if err := config.Write(os.Stdout, loadConfig()); err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("camsrv version %v\n", Version)
}

func run() {
	cfg := loadConfig()
	reg, err := cfg.Registry()
	if err != nil {
		log.Fatal(err)
	}
	enc, err := encode.NewEncoder(cfg.Browse.Format, cfg.Browse.Quality)
	if err != nil {
		log.Fatal(err)
	}
	root, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	s := &server.Server{
		Cameras: isis.NewOpener(reg),
		Root:    root,
		Browse:  enc,
		MaxDim:  cfg.Browse.MaxDim,
		Logger:  log.New(os.Stderr, "", log.LstdFlags),
	}
	log.Printf("serving cubes below %s", root)
	log.Println("now listening for requests at", cfg.Addr)
	log.Fatal(http.ListenAndServe(cfg.Addr, s.Handler()))
}

func main() {
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	switch strings.ToLower(args[1]) {
	case "help":
		help()
	case "mkconf":
		mkconf()
	case "conf":
		printconf()
	case "run":
		run()
	case "version":
		pversion()
	default:
		log.Fatal("unknown command")
	}
}
