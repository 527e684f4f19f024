package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jobrunner/geodraw/internal/adapters/replay"
	"github.com/jobrunner/geodraw/internal/adapters/scene"
	"github.com/jobrunner/geodraw/internal/adapters/sqlite"
	"github.com/jobrunner/geodraw/internal/adapters/terrain"
	"github.com/jobrunner/geodraw/internal/app"
	"github.com/jobrunner/geodraw/internal/application"
	"github.com/jobrunner/geodraw/internal/config"
	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/geodesy"
	"github.com/jobrunner/geodraw/internal/ports/output"
)

var measureCmd = &cobra.Command{
	Use:   "measure distance|area LON,LAT[,H]...",
	Short: "Measure the geodesic length or the surface area of coordinates",
	Args:  cobra.MinimumNArgs(3),
	RunE:  runMeasure,
}

var volumeCmd = &cobra.Command{
	Use:   "volume LON,LAT[,H]...",
	Short: "Compute the cut volume of terrain above a base height",
	Args:  cobra.MinimumNArgs(3),
	RunE:  runVolume,
}

var replayCmd = &cobra.Command{
	Use:   "replay SCRIPT",
	Short: "Replay a recorded drawing session and print the shapes as GeoJSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import a GeoJSON file into the database",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var exportCmd = &cobra.Command{
	Use:   "export [FILE]",
	Short: "Export the database as a GeoJSON FeatureCollection",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

func init() {
	measureCmd.Flags().Bool("json", false, "print the measurement as JSON")

	volumeCmd.Flags().Float64("base", 0, "base height in metres")
	volumeCmd.Flags().Float64("height", 0, "use flat terrain at this height")
	volumeCmd.Flags().String("grid", "", "terrain grid file (YAML)")
	volumeCmd.Flags().Bool("json", false, "print the sample as JSON")

	replayCmd.Flags().StringP("output", "o", "", "write the FeatureCollection to this file")
}

// loadTool loads the configuration for a one-shot command. Logs go to
// stderr so stdout stays parseable.
func loadTool() (*config.Config, *slog.Logger, *geodesy.Ellipsoid, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger := setupLogger(cfg.Logging, os.Stderr)
	ellipsoid, err := geodesy.NewEllipsoid(cfg.Geodesy.Ellipsoid)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, ellipsoid, nil
}

func runMeasure(cmd *cobra.Command, args []string) error {
	_, logger, ellipsoid, err := loadTool()
	if err != nil {
		return err
	}
	points, err := parsePoints(args[1:])
	if err != nil {
		return err
	}

	svc := application.NewMeasureService(ellipsoid, logger)
	var m domain.Measurement
	switch domain.MeasureType(args[0]) {
	case domain.MeasureDistance:
		m, err = svc.Distance(cmd.Context(), points)
	case domain.MeasureArea:
		m, err = svc.Area(cmd.Context(), points)
	default:
		return fmt.Errorf("unknown measurement %q, want distance or area", args[0])
	}
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd.OutOrStdout(), m)
	}
	if m.Type == domain.MeasureArea {
		fmt.Fprintln(cmd.OutOrStdout(), geodesy.FormatArea(m.Area))
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), geodesy.FormatLength(m.Distance))
	}
	return nil
}

func runVolume(cmd *cobra.Command, args []string) error {
	cfg, logger, ellipsoid, err := loadTool()
	if err != nil {
		return err
	}
	points, err := parsePoints(args)
	if err != nil {
		return err
	}
	sampler, err := volumeTerrain(cmd, cfg.Terrain)
	if err != nil {
		return err
	}

	base, _ := cmd.Flags().GetFloat64("base")
	svc := application.NewVolumeService(ellipsoid, sampler, cfg.Geodesy.Volume, nil, logger)
	sample, err := svc.Compute(cmd.Context(), points, base)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd.OutOrStdout(), sample)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "volume:    %s\n", geodesy.FormatVolume(sample.Volume))
	fmt.Fprintf(out, "base area: %s\n", geodesy.FormatArea(sample.BaseArea))
	fmt.Fprintf(out, "heights:   %.2f m to %.2f m\n", sample.MinHeight, sample.MaxHeight)
	fmt.Fprintf(out, "triangles: %d\n", sample.TriangleCount)
	return nil
}

// volumeTerrain prefers the command flags over the configured terrain.
func volumeTerrain(cmd *cobra.Command, cfg config.TerrainConfig) (output.TerrainSampler, error) {
	if grid, _ := cmd.Flags().GetString("grid"); grid != "" {
		return terrain.LoadGrid(grid)
	}
	if cmd.Flags().Changed("height") {
		h, _ := cmd.Flags().GetFloat64("height")
		return terrain.Flat{Height: h}, nil
	}
	sampler, err := app.NewTerrain(cfg)
	if err != nil {
		return nil, err
	}
	if sampler == nil {
		return nil, fmt.Errorf("no terrain configured, use --height or --grid: %w", domain.ErrTerrainUnavailable)
	}
	return sampler, nil
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, logger, ellipsoid, err := loadTool()
	if err != nil {
		return err
	}
	script, err := replay.Load(args[0])
	if err != nil {
		return err
	}
	sampler, err := app.NewTerrain(cfg.Terrain)
	if err != nil {
		return err
	}

	res, err := replay.Run(cmd.Context(), script, replay.Options{
		Ellipsoid:    ellipsoid,
		Terrain:      sampler,
		Snap:         cfg.Snap.Options(),
		Style:        cfg.Draw.Style,
		MoveInterval: cfg.Draw.MoveInterval,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	for _, m := range res.Measurements {
		logger.Info("measurement", "type", m.Type, "distance", m.Distance, "area", m.Area)
	}

	data, err := res.Collection.MarshalJSON()
	if err != nil {
		return err
	}
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		return os.WriteFile(path, data, 0o600)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

// openStore opens the configured database behind a headless store.
func openStore(ctx context.Context) (*application.FeatureStore, *sqlite.Repository, *slog.Logger, error) {
	cfg, logger, ellipsoid, err := loadTool()
	if err != nil {
		return nil, nil, nil, err
	}
	repo, err := sqlite.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	store := application.NewFeatureStore(application.StoreOptions{
		Scene:      scene.New(scene.Camera{}, ellipsoid, nil, logger),
		Repository: repo,
		Logger:     logger,
		Ellipsoid:  ellipsoid,
	})
	if err := store.Load(ctx); err != nil {
		_ = repo.Close()
		return nil, nil, nil, err
	}
	return store, repo, logger, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	store, repo, logger, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = repo.Close() }()

	res, err := store.Import(cmd.Context(), data)
	if err != nil {
		return err
	}
	for _, e := range res.Errors {
		logger.Warn("feature skipped", "error", e)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d, failed %d, total %d\n", res.Success, res.Failed, store.Count())
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	store, repo, _, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = repo.Close() }()

	fc, err := store.Export(false)
	if err != nil {
		return err
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		return os.WriteFile(args[0], data, 0o600)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

// parsePoints parses "lon,lat" or "lon,lat,height" arguments.
func parsePoints(args []string) ([]domain.GeodeticPosition, error) {
	points := make([]domain.GeodeticPosition, 0, len(args))
	for _, arg := range args {
		parts := strings.Split(arg, ",")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("point %q: want LON,LAT[,H]: %w", arg, domain.ErrInvalidInput)
		}
		vals := make([]float64, len(parts))
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, fmt.Errorf("point %q: %w", arg, domain.ErrInvalidInput)
			}
			vals[i] = v
		}
		pos := domain.NewGeodeticPosition(vals[0], vals[1])
		if len(vals) == 3 {
			pos.Height = vals[2]
		}
		points = append(points, pos)
	}
	return points, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
