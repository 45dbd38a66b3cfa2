// blasttool is a CLI utility for building destructible blast assets from
// fracture projects.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/shatter/internal/config"
	"github.com/Faultbox/shatter/internal/logger"
	"github.com/Faultbox/shatter/internal/project"
	"github.com/Faultbox/shatter/pkg/authoring"
	"github.com/Faultbox/shatter/pkg/fracture"
	"github.com/Faultbox/shatter/pkg/math"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "build", "b":
		os.Exit(cmdBuild(args))
	case "slice", "s":
		os.Exit(cmdSlice(args))
	case "config":
		os.Exit(cmdConfig(args))
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`blasttool - destructible asset authoring utility

Usage:
  blasttool <command> [options]

Commands:
  build <project.yaml>               Build an asset and print a YAML report
  slice [options]                    Write a project slicing a box into a grid
  config [-o file]                   Save the effective config (default user config dir)

Build options:
  -config <file>                     Config file (default ./blasttool.yaml)
  -adjacency tags|geometry           Bond adjacency source
  -workers <n>                       Hull workers (0 = one per CPU)
  -detail                            Include chunk and bond tables
  -debug                             Enable debug logging

Examples:
  blasttool slice -max 4,1,2 -cuts 3,0,1 -fixed -z > wall.yaml
  blasttool build wall.yaml
  blasttool build -adjacency geometry -detail wall.yaml`)
}

func cmdBuild(args []string) int {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	detail := fs.Bool("detail", false, "Include chunk and bond tables in the report")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: blasttool build [options] <project.yaml>")
		return 1
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	log, err := logger.NewCLI(cfg.Logging.Level, cfg.Logging.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer logger.Sync(log)

	opts, err := cfg.SessionOptions()
	if err != nil {
		log.Error("invalid session options", zap.Error(err))
		return 1
	}

	p, err := project.Load(fs.Arg(0))
	if err != nil {
		log.Error("failed to load project", zap.String("path", fs.Arg(0)), zap.Error(err))
		return 1
	}
	chunks, err := p.Fracture()
	if err != nil {
		log.Error("failed to fracture project", zap.String("project", p.Name), zap.Error(err))
		return 1
	}

	return build(os.Stdout, log, opts, p.Name, chunks, *detail)
}

// build runs one session over chunks and writes the report to w. The
// returned exit code is non-zero when the asset could not be built.
func build(w io.Writer, log *zap.Logger, opts authoring.Options, name string, chunks []fracture.Chunk, detail bool) int {
	s := authoring.NewSession(opts, log.With(zap.String("project", name)))
	defer s.Close()

	a, rep, buildErr := s.Build(chunks)
	if err := project.NewReport(name, a, rep, buildErr, detail).Write(w); err != nil {
		log.Error("failed to write report", zap.Error(err))
		return 1
	}
	if buildErr != nil {
		return 1
	}
	return 0
}

func cmdConfig(args []string) int {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	out := fs.String("o", "", "Write to this path instead of the user config directory")
	fs.Parse(args)

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	path := *out
	if path == "" {
		path = filepath.Join(config.ConfigDir(), config.FileName)
		err = cfg.Save()
	} else {
		err = cfg.SaveTo(path)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("Wrote %s\n", path)
	return 0
}

func cmdSlice(args []string) int {
	fs := flag.NewFlagSet("slice", flag.ExitOnError)
	name := fs.String("name", "box", "Project name")
	minStr := fs.String("min", "0,0,0", "Box minimum corner x,y,z")
	maxStr := fs.String("max", "1,1,1", "Box maximum corner x,y,z")
	cutsStr := fs.String("cuts", "1,1,1", "Cuts per axis x,y,z")
	fixedStr := fs.String("fixed", "", "Comma-separated box faces bonded to the world (-x,+x,-y,+y,-z,+z)")
	rootID := fs.Uint("root-id", 0, "Id of the root chunk; leaves follow")
	support := fs.Bool("support", false, "Mark every leaf as support")
	compact := fs.Bool("compact", false, "Write the slice block instead of explicit chunks")
	fs.Parse(args)

	spec, err := parseSlice(*minStr, *maxStr, *cutsStr, *fixedStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	spec.RootID = uint32(*rootID)
	spec.Support = *support

	p := &project.Project{Name: *name, Slice: spec}
	chunks, err := p.Fracture()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if !*compact {
		p = project.FromChunks(*name, chunks)
	}

	if err := p.Write(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(os.Stderr, "Wrote %d chunks\n", len(chunks))
	return 0
}

func parseSlice(minStr, maxStr, cutsStr, fixedStr string) (*project.SliceSpec, error) {
	lo, err := parseVec(minStr)
	if err != nil {
		return nil, fmt.Errorf("-min: %w", err)
	}
	hi, err := parseVec(maxStr)
	if err != nil {
		return nil, fmt.Errorf("-max: %w", err)
	}

	spec := &project.SliceSpec{
		Min: project.Vec3{lo.X, lo.Y, lo.Z},
		Max: project.Vec3{hi.X, hi.Y, hi.Z},
	}

	parts := strings.Split(cutsStr, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("-cuts: want three comma-separated counts, got %q", cutsStr)
	}
	for i, s := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("-cuts: %w", err)
		}
		spec.Cuts[i] = n
	}

	if fixedStr != "" {
		for _, f := range strings.Split(fixedStr, ",") {
			f = strings.TrimSpace(f)
			if _, err := fracture.ParseFace(f); err != nil {
				return nil, fmt.Errorf("-fixed: %w", err)
			}
			spec.Fixed = append(spec.Fixed, f)
		}
	}
	return spec, nil
}

func parseVec(s string) (math.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return math.Vec3{}, fmt.Errorf("want x,y,z, got %q", s)
	}
	var v [3]float32
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return math.Vec3{}, err
		}
		v[i] = float32(f)
	}
	return math.Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
}
