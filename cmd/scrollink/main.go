package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"scrollink/pkg/config"
	"scrollink/pkg/features"
	"scrollink/pkg/surface"
	"scrollink/pkg/visualization"
	"scrollink/pkg/volume"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "scrollink.yaml", "Path to YAML configuration file")
	slicesDir := flag.String("slices", "", "Directory containing 2D slice images (overrides config)")
	threshold := flag.Float64("threshold", 0, "Intensity threshold for surface detection (overrides config)")
	writeConfig := flag.Bool("write-config", false, "Write a default configuration file and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *slicesDir != "" {
		cfg.Volume.SlicesDir = *slicesDir
	}
	if *threshold != 0 {
		cfg.Volume.Threshold = *threshold
	}
	if cfg.Volume.SlicesDir == "" {
		flag.Usage()
		log.Fatalf("No slices directory given (use -slices or the config file)")
	}

	startTime := time.Now()

	// Step 1: Load the slice stack into a volume
	fmt.Println("Step 1: Loading volume slices...")
	vol, err := volume.Load(cfg.Volume.SlicesDir)
	if err != nil {
		log.Fatalf("Failed to load volume: %v", err)
	}
	shape := vol.Shape()
	fmt.Printf("Loaded volume with shape (z, y, x) = (%d, %d, %d)\n", shape[0], shape[1], shape[2])

	if cfg.Output.Verbose {
		stats := features.Describe(vol.Data())
		fmt.Printf("Intensity statistics: min=%.4f max=%.4f mean=%.4f std=%.4f median=%.4f\n",
			stats.Min, stats.Max, stats.Mean, stats.Std, stats.Median)
	}

	// Step 2: Detect the fragment surface
	fmt.Printf("Step 2: Finding fragment surface at threshold %.4f...\n", cfg.Volume.Threshold)
	mask, surf := surface.FindSurface(vol, cfg.Volume.Threshold, cfg.Surface.FragmentBuffer)
	fmt.Printf("Fragment mask covers %d of %d surface points\n", mask.Count(), mask.Rows*mask.Cols)

	// Step 3: Extract the feature image
	fmt.Println("Step 3: Extracting features...")
	store := features.NewDiskStore(cfg.Features.CacheDir)
	extractor := features.NewExtractor(store)
	params := features.Params{
		CutIn:          cfg.Features.CutIn,
		CutBack:        cfg.Features.CutBack,
		NeighborRadius: cfg.Features.NeighborRadius,
		Threshold:      cfg.Volume.Threshold,
	}
	featureImg, err := extractor.Extract(vol, surf, params)
	if err != nil {
		log.Fatalf("Feature extraction failed: %v", err)
	}
	fmt.Printf("Extracted %d feature channels over %dx%d points\n",
		featureImg.Channels, featureImg.Rows, featureImg.Cols)

	// Step 4: Export feature channels for inspection
	fmt.Println("Step 4: Exporting feature channels...")
	for ch := 0; ch < featureImg.Channels; ch++ {
		filename := filepath.Join(cfg.Output.FeaturesDir, fmt.Sprintf("channel_%02d.tif", ch))
		if err := visualization.SaveFeatureChannel(featureImg, ch, filename); err != nil {
			log.Printf("Warning: Failed to save feature channel %d: %v", ch, err)
		}
	}
	fmt.Printf("Feature channels saved to: %s\n", cfg.Output.FeaturesDir)

	// Optionally write the volume back out as a numbered slice stack
	if cfg.Output.ExportVolume {
		fmt.Printf("Exporting volume stack to: %s\n", cfg.Output.VolumeDir)
		viewer := visualization.NewViewer(vol)
		if err := viewer.SaveVolumeToStack(cfg.Output.VolumeDir); err != nil {
			log.Printf("Warning: Failed to export volume stack: %v", err)
		}
	}

	fmt.Printf("\nDone in %.2f seconds\n", time.Since(startTime).Seconds())
}
