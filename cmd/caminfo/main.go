package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/pspoerri/isiscam/internal/config"
	"github.com/pspoerri/isiscam/internal/cube"
	"github.com/pspoerri/isiscam/internal/encode"
	"github.com/pspoerri/isiscam/internal/isis"
	"github.com/pspoerri/isiscam/internal/server"
)

func main() {
	var (
		configPath string
		sample     float64
		line       float64
		lat        float64
		lon        float64
		browse     string
		band       int
		asJSON     bool
	)
	flag.StringVar(&configPath, "config", config.FileName, "Configuration file")
	flag.Float64Var(&sample, "sample", math.NaN(), "Sample to map to the ground (with -line)")
	flag.Float64Var(&line, "line", math.NaN(), "Line to map to the ground (with -sample)")
	flag.Float64Var(&lat, "lat", math.NaN(), "Latitude to map into the image (with -lon)")
	flag.Float64Var(&lon, "lon", math.NaN(), "Longitude to map into the image (with -lat)")
	flag.StringVar(&browse, "browse", "", "Write a browse image of the cube to this file")
	flag.IntVar(&band, "band", 1, "Band for -browse")
	flag.BoolVar(&asJSON, "json", false, "Print the camera summary as JSON")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: caminfo [flags] <file.cub>\n\n")
		fmt.Fprintf(os.Stderr, "Print the camera interface selected for an ISIS cube.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	path := flag.Arg(0)

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	reg, err := cfg.Registry()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ci, err := isis.NewOpener(reg).Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var ute *isis.UnsupportedCameraTypeError
		if errors.As(err, &ute) {
			os.Exit(3)
		}
		os.Exit(1)
	}

	info := server.Describe(ci)
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(info)
	} else {
		printInfo(info)
	}

	if !math.IsNaN(sample) && !math.IsNaN(line) {
		g, err := ci.PixelToGround(isis.Pixel{Sample: sample, Line: line})
		if err != nil {
			fmt.Printf("PixelToGround(%g, %g): ERROR: %v\n", sample, line, err)
		} else {
			fmt.Printf("PixelToGround(%g, %g): lat=%.6f lon=%.6f\n", sample, line, g.Lat, g.Lon)
		}
	}
	if !math.IsNaN(lat) && !math.IsNaN(lon) {
		p, err := ci.GroundToPixel(isis.Ground{Lat: lat, Lon: lon})
		if err != nil {
			fmt.Printf("GroundToPixel(%g, %g): ERROR: %v\n", lat, lon, err)
		} else {
			fmt.Printf("GroundToPixel(%g, %g): sample=%.3f line=%.3f\n", lat, lon, p.Sample, p.Line)
		}
	}

	if browse != "" {
		if err := writeBrowse(path, band, browse, cfg.Browse); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Browse: %s\n", browse)
	}
}

func printInfo(info server.Info) {
	fmt.Printf("File: %s\n", info.Path)
	fmt.Printf("Interface: %s\n", info.Variant)
	fmt.Printf("Camera type: %s (projected: %v)\n", info.Type, info.Projected)
	fmt.Printf("Spacecraft: %s\n", info.Spacecraft)
	fmt.Printf("Instrument: %s", info.Instrument)
	if info.NaifIKCode != 0 {
		fmt.Printf(" (NAIF %d)", info.NaifIKCode)
	}
	fmt.Println()
	if info.Target != "" {
		fmt.Printf("Target: %s\n", info.Target)
	}
	fmt.Printf("Size: %d x %d x %d\n", info.Samples, info.Lines, info.Bands)
	if info.StartTime != nil {
		fmt.Printf("Start time: %s\n", info.StartTime.Format("2006-01-02T15:04:05.000"))
	}
	if info.ExposureDuration > 0 {
		fmt.Printf("Exposure: %v\n", info.ExposureDuration)
	}
	if info.LineExposureDuration > 0 {
		fmt.Printf("Line exposure: %v (summing %d)\n", info.LineExposureDuration, info.Summing)
	}
}

// writeBrowse renders band of the cube at path to out. The encoder is chosen
// from the file extension, falling back to the configured format.
func writeBrowse(path string, band int, out string, b config.Browse) error {
	format := b.Format
	if i := strings.LastIndex(out, "."); i >= 0 {
		format = strings.ToLower(out[i+1:])
	}
	enc, err := encode.NewEncoder(format, b.Quality)
	if err != nil {
		return err
	}

	r, err := cube.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	img, err := encode.Browse(r, band, b.MaxDim)
	if err != nil {
		return err
	}
	data, err := enc.Encode(img)
	if err != nil {
		return err
	}
	return os.WriteFile(out, data, 0o644)
}
