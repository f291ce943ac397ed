package lronac

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pspoerri/isiscam/internal/isis"
	"github.com/pspoerri/isiscam/internal/jobs"
)

// Stage names, in run order.
const (
	StageIngest    = "lronac2isis"
	StageSpice     = "spiceinit"
	StageCalibrate = "lronaccal"
	StageEcho      = "lronacecho"
	StageCheck     = "camera check"
	StagePair      = "pairing"
	StageNoProj    = "noproj"
	StageJitter    = "lronacjitreg"
	StageMosaic    = "handmos"
	StageNormalize = "cubenorm"
)

// DefaultJitregArgs are the correlator settings passed to lronacjitreg.
var DefaultJitregArgs = []string{
	"--correlator-type", "2",
	"--xkernel", "15", "--ykernel", "15",
	"--pyramid",
	"--h-corr-min", "0", "--h-corr-max", "60",
	"--v-corr-min", "-50", "--v-corr-max", "-10",
	"--cropWidth", "200",
}

// Opener opens the camera interface of a cube.
type Opener interface {
	Open(path string) (isis.Interface, error)
}

// ErrNotLineScan is returned when a calibrated cube does not open as an
// unprojected line scan camera.
var ErrNotLineScan = errors.New("cube is not an unprojected line scan camera")

// Pipeline converts NAC EDR images into normalized left/right mosaics.
// Intermediate files are written next to their inputs.
type Pipeline struct {
	Pool *jobs.Pool

	// Keep retains intermediate cubes.
	Keep bool
	// StopAtNoProj stops after echo correction.
	StopAtNoProj bool

	// LogDir receives the lronacjitreg row logs. Defaults to the
	// directory of each left cube.
	LogDir string
	// Jitreg is the lronacjitreg executable. Defaults to "lronacjitreg".
	Jitreg     string
	JitregArgs []string

	// Cameras opens calibrated cubes for the line scan check. Defaults to
	// isis.NewOpener(nil).
	Cameras Opener

	// Stage, when set, is called as each stage starts.
	Stage  func(name string)
	Logger *log.Logger
}

// Result lists the products of a run.
type Result struct {
	Cubes      []string // echo-corrected, calibrated cubes
	Pairs      []Pair   // noproj cube pairs
	Offsets    map[int]Offsets
	Mosaics    []string
	Normalized []string
}

// Run processes the given .IMG files.
func (p *Pipeline) Run(ctx context.Context, imgs []string) (Result, error) {
	var res Result
	if len(imgs) == 0 {
		return res, errors.New("no input images")
	}

	p.stage(StageIngest)
	ingested := outputs(imgs, ".cub")
	if err := p.run(ctx, mapJobs("lronac2isis", imgs, ingested)); err != nil {
		return res, err
	}

	p.stage(StageSpice)
	var spice, fit []jobs.Job
	for _, c := range ingested {
		spice = append(spice, jobs.Job{Cmd: "spiceinit", Args: []string{"web=false", "from=" + c}})
		fit = append(fit, jobs.Job{Cmd: "spicefit", Args: []string{"from=" + c}})
	}
	if err := p.run(ctx, spice); err != nil {
		return res, err
	}
	if err := p.run(ctx, fit); err != nil {
		return res, err
	}

	p.stage(StageCalibrate)
	calibrated := outputs(ingested, ".lronaccal.cub")
	if err := p.run(ctx, mapJobs("lronaccal", ingested, calibrated)); err != nil {
		return res, err
	}
	if !p.Keep {
		p.remove(ingested...)
		for _, c := range ingested {
			logs, _ := filepath.Glob(strings.TrimSuffix(c, ".cub") + "*.lronaccal.log")
			p.remove(logs...)
		}
	}

	p.stage(StageEcho)
	echoed := outputs(calibrated, ".lronacecho.cub")
	if err := p.run(ctx, mapJobs("lronacecho", calibrated, echoed)); err != nil {
		return res, err
	}
	if !p.Keep {
		p.remove(calibrated...)
	}
	res.Cubes = echoed

	p.stage(StageCheck)
	if err := p.checkLineScan(echoed); err != nil {
		return res, err
	}
	if p.StopAtNoProj {
		return res, nil
	}

	p.stage(StagePair)
	pairs, orphans, err := Pairs(echoed)
	if err != nil {
		return res, err
	}
	for _, o := range orphans {
		p.logf("no partner for %s, skipping", o)
	}
	if len(pairs) == 0 {
		return res, errors.New("no left/right cube pairs to mosaic")
	}

	p.stage(StageNoProj)
	noproj := make([]Pair, len(pairs))
	var batch []jobs.Job
	for i, pr := range pairs {
		noproj[i] = Pair{
			Number: pr.Number,
			Left:   output(pr.Left, ".noproj.cub"),
			Right:  output(pr.Right, ".noproj.cub"),
		}
		for _, side := range [][2]string{{pr.Left, noproj[i].Left}, {pr.Right, noproj[i].Right}} {
			batch = append(batch, jobs.Job{
				Cmd:     "noproj",
				Args:    []string{"from=" + side[0], "to=" + side[1], "match=" + pr.Left},
				Outputs: []string{side[1]},
			})
		}
	}
	if err := p.run(ctx, batch); err != nil {
		return res, err
	}
	if !p.Keep {
		for _, pr := range pairs {
			p.remove(pr.Left, pr.Right)
		}
	}
	res.Pairs = noproj

	p.stage(StageJitter)
	offsets, err := p.jitter(ctx, noproj)
	if err != nil {
		return res, err
	}
	res.Offsets = offsets

	p.stage(StageMosaic)
	mosaics, err := p.mosaic(ctx, noproj, offsets)
	if err != nil {
		return res, err
	}
	if !p.Keep {
		for _, pr := range noproj {
			p.remove(pr.Left, pr.Right)
		}
	}
	res.Mosaics = mosaics

	p.stage(StageNormalize)
	normalized := outputs(mosaics, ".norm.cub")
	if err := p.run(ctx, mapJobs("cubenorm", mosaics, normalized)); err != nil {
		return res, err
	}
	if !p.Keep {
		p.remove(mosaics...)
	}
	res.Normalized = normalized
	return res, nil
}

func (p *Pipeline) checkLineScan(cubes []string) error {
	opener := p.Cameras
	if opener == nil {
		opener = isis.NewOpener(nil)
	}
	for _, c := range cubes {
		ci, err := opener.Open(c)
		if err != nil {
			return err
		}
		if ci.Variant() != isis.LineScan {
			return fmt.Errorf("%s: %w (got %s)", c, ErrNotLineScan, ci.Variant())
		}
	}
	return nil
}

func (p *Pipeline) jitter(ctx context.Context, pairs []Pair) (map[int]Offsets, error) {
	exe := p.Jitreg
	if exe == "" {
		exe = "lronacjitreg"
	}
	args := p.JitregArgs
	if args == nil {
		args = DefaultJitregArgs
	}

	logs := make(map[int]string, len(pairs))
	var batch []jobs.Job
	for _, pr := range pairs {
		dir := p.LogDir
		if dir == "" {
			dir = filepath.Dir(pr.Left)
		}
		rowLog := filepath.Join(dir, fmt.Sprintf("rowLog_%d.txt", pr.Number))
		logs[pr.Number] = rowLog
		a := append(append([]string{}, args...), "--rowLog", rowLog, pr.Left, pr.Right)
		batch = append(batch, jobs.Job{Cmd: exe, Args: a, Outputs: []string{rowLog}})
	}
	if err := p.run(ctx, batch); err != nil {
		return nil, err
	}

	offsets := make(map[int]Offsets, len(pairs))
	for n, path := range logs {
		o, err := ReadOffsetLog(path)
		if err != nil {
			return nil, err
		}
		p.logf("M%09d: sample offset %.3f, line offset %.3f", n, o.Sample, o.Line)
		offsets[n] = o
	}
	return offsets, nil
}

// Handmos placement of the right cube on the left one.
const mosaicInSample = 4900

// mosaic copies each left cube to a partial mosaic, places the right cube on
// it with handmos and renames the result into place. A mosaic therefore only
// exists once handmos has finished, and an interrupted run redoes it.
func (p *Pipeline) mosaic(ctx context.Context, pairs []Pair, offsets map[int]Offsets) ([]string, error) {
	var mosaics []string
	var batch []jobs.Job
	partial := make(map[string]string)
	for _, pr := range pairs {
		out := output(pr.Left, ".mosaic.cub")
		mosaics = append(mosaics, out)
		if _, err := os.Stat(out); err == nil {
			p.logf("%s exists, skipping handmos", out)
			continue
		}
		tmp := output(pr.Left, ".mosaic.partial.cub")
		if err := copyFile(pr.Left, tmp); err != nil {
			return nil, err
		}
		partial[tmp] = out
		batch = append(batch, jobs.Job{
			Cmd:  "handmos",
			Args: HandmosArgs(pr.Right, tmp, offsets[pr.Number]),
		})
	}
	if err := p.run(ctx, batch); err != nil {
		for tmp := range partial {
			p.remove(tmp)
		}
		return nil, err
	}
	for tmp, out := range partial {
		if err := os.Rename(tmp, out); err != nil {
			return nil, fmt.Errorf("finishing mosaic: %w", err)
		}
	}
	return mosaics, nil
}

// HandmosArgs returns the handmos arguments that place from onto mosaic
// shifted by the measured offsets.
func HandmosArgs(from, mosaic string, o Offsets) []string {
	return []string{
		"from=" + from,
		"mosaic=" + mosaic,
		"outsample=" + strconv.Itoa(mosaicInSample+int(math.Round(o.Sample))),
		"insample=" + strconv.Itoa(mosaicInSample),
		"outline=" + strconv.Itoa(int(math.Round(o.Line))),
		"matchbandbin=FALSE",
		"priority=ontop",
	}
}

func (p *Pipeline) run(ctx context.Context, batch []jobs.Job) error {
	pool := p.Pool
	if pool == nil {
		pool = &jobs.Pool{Workers: 1, Logger: p.Logger}
	}
	_, err := pool.Run(ctx, batch)
	return err
}

func (p *Pipeline) stage(name string) {
	p.logf("stage: %s", name)
	if p.Stage != nil {
		p.Stage(name)
	}
}

func (p *Pipeline) remove(paths ...string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			p.logf("removing %s: %v", path, err)
		}
	}
}

func (p *Pipeline) logf(format string, args ...any) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
	}
}

// mapJobs builds one "cmd from=in to=out" job per input.
func mapJobs(cmd string, in, out []string) []jobs.Job {
	batch := make([]jobs.Job, len(in))
	for i := range in {
		batch[i] = jobs.Job{
			Cmd:     cmd,
			Args:    []string{"from=" + in[i], "to=" + out[i]},
			Outputs: []string{out[i]},
		}
	}
	return batch
}

// output replaces the extension of path with ext.
func output(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func outputs(paths []string, ext string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = output(p, ext)
	}
	return out
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}
