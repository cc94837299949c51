package hdrplus

import (
	"fmt"

	"github.com/gogpu/hdrplus/align"
	"github.com/gogpu/hdrplus/exposure"
	"github.com/gogpu/hdrplus/herrors"
	"github.com/gogpu/hdrplus/pyramid"
)

// TileSize selects the finest-level alignment tile (spec.md §6).
type TileSize int

const (
	TileSmall  TileSize = 16
	TileMedium TileSize = 32
	TileLarge  TileSize = 64
)

// SearchDistance controls pyramid depth and per-level search radius
// (spec.md §4.8: "pyramid depth ≈ 2/4/6 levels past the CFA collapse").
type SearchDistance int

const (
	SearchSmall SearchDistance = iota
	SearchMedium
	SearchLarge
)

// extraLevels returns the number of 2x pyramid levels built past the CFA
// collapse. Open question (spec.md gives only the approximate "2/4/6"):
// fixed at exactly 2/4/6, recorded as a design decision in DESIGN.md.
func (d SearchDistance) extraLevels() int {
	switch d {
	case SearchMedium:
		return 4
	case SearchLarge:
		return 6
	default:
		return 2
	}
}

// radius returns the integer search radius in pixels used at every level
// except the finest (level 0), which uses half of it, floored at 1 (spec.md does not give explicit
// per-level radii; this is a recorded design decision, see DESIGN.md).
func (d SearchDistance) radius() int {
	switch d {
	case SearchMedium:
		return 4
	case SearchLarge:
		return 8
	default:
		return 2
	}
}

// MergingAlgorithm selects the spatial (C5) or frequency (C6) merge engine.
type MergingAlgorithm int

const (
	Fast MergingAlgorithm = iota
	HigherQuality
)

// ExposureMode mirrors exposure.Mode at the config surface (spec.md §6).
type ExposureMode int

const (
	ExposureOff ExposureMode = iota
	ExposureLinear2X
	ExposureLinearFullRange
	ExposureCurve0EV
	ExposureCurve1EV
)

func (m ExposureMode) toExposureMode() exposure.Mode {
	switch m {
	case ExposureLinear2X:
		return exposure.Linear2X
	case ExposureLinearFullRange:
		return exposure.LinearFullRange
	case ExposureCurve0EV:
		return exposure.Curve0EV
	case ExposureCurve1EV:
		return exposure.Curve1EV
	default:
		return exposure.Off
	}
}

// OutputBitDepth selects the quantization rule applied at emit.
type OutputBitDepth int

const (
	Native OutputBitDepth = iota
	Output16Bit
)

// Config is the caller-supplied, validated-once configuration for Process
// (spec.md §4.8, §6).
type Config struct {
	TileSize         TileSize
	SearchDistance   SearchDistance
	MergingAlgorithm MergingAlgorithm
	NoiseReduction   int // 1..23
	ExposureControl  ExposureMode
	OutputBitDepth   OutputBitDepth
}

// Validate checks every enumerated and ranged field, per spec.md §7's
// InvalidArgument taxonomy. Validate is called once, at the top of Process,
// before any GPU work.
func (c Config) Validate() error {
	switch c.TileSize {
	case TileSmall, TileMedium, TileLarge:
	default:
		return herrors.New(herrors.InvalidArgument, "Config.Validate", fmt.Errorf("invalid tile size %d", c.TileSize))
	}
	switch c.SearchDistance {
	case SearchSmall, SearchMedium, SearchLarge:
	default:
		return herrors.New(herrors.InvalidArgument, "Config.Validate", fmt.Errorf("invalid search distance %d", c.SearchDistance))
	}
	switch c.MergingAlgorithm {
	case Fast, HigherQuality:
	default:
		return herrors.New(herrors.InvalidArgument, "Config.Validate", fmt.Errorf("invalid merging algorithm %d", c.MergingAlgorithm))
	}
	if c.NoiseReduction < 1 || c.NoiseReduction > 23 {
		return herrors.New(herrors.InvalidArgument, "Config.Validate", fmt.Errorf("noise reduction %d out of range [1,23]", c.NoiseReduction))
	}
	switch c.ExposureControl {
	case ExposureOff, ExposureLinear2X, ExposureLinearFullRange, ExposureCurve0EV, ExposureCurve1EV:
	default:
		return herrors.New(herrors.InvalidArgument, "Config.Validate", fmt.Errorf("invalid exposure control %d", c.ExposureControl))
	}
	switch c.OutputBitDepth {
	case Native, Output16Bit:
	default:
		return herrors.New(herrors.InvalidArgument, "Config.Validate", fmt.Errorf("invalid output bit depth %d", c.OutputBitDepth))
	}
	return nil
}

// deriveAlignConfig builds the per-level align.Config for a burst of the
// given prepared (padded) dimensions and CFA width: pyramid factors from
// SearchDistance's extra-level count, tile sizes halving from TileSize at
// the finest level down to a floor of 8, and a fixed per-level search
// radius from SearchDistance, halved at the finest level for cost.
func (c Config) deriveAlignConfig(cfaWidth int) align.Config {
	extra := c.SearchDistance.extraLevels()
	factors := pyramid.Factors(cfaWidth, extra)
	levels := len(factors)

	tileSizes := make([]int, levels)
	searchDist := make([]int, levels)
	r := c.SearchDistance.radius()
	for i := 0; i < levels; i++ {
		t := int(c.TileSize) >> uint(i)
		if t < 8 {
			t = 8
		}
		tileSizes[i] = t
		if i == 0 {
			searchDist[i] = maxInt(1, r/2)
		} else {
			searchDist[i] = r
		}
	}

	return align.Config{
		Factors:         factors,
		TileSizes:       tileSizes,
		SearchDist:      searchDist,
		UniformExposure: true,
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// frequencyTileSize returns the frequency engine's per-channel transform
// size T: 16 normally, conservatively reduced to 8 for X-Trans bursts
// (spec.md §9 open question on X-Trans tile sizing — resolved here, see
// DESIGN.md).
func frequencyTileSize(cfaWidth int) int {
	if cfaWidth > 2 {
		return 8
	}
	return 16
}
