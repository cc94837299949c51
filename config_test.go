package hdrplus

import (
	"testing"

	"github.com/gogpu/hdrplus/herrors"
)

func validConfig() Config {
	return Config{
		TileSize:         TileMedium,
		SearchDistance:   SearchMedium,
		MergingAlgorithm: Fast,
		NoiseReduction:   10,
		ExposureControl:  ExposureLinearFullRange,
		OutputBitDepth:   Native,
	}
}

func TestConfigValidateAcceptsValidConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestConfigValidateRejectsOutOfRangeNoiseReduction(t *testing.T) {
	cfg := validConfig()
	cfg.NoiseReduction = 0
	err := cfg.Validate()
	if herrors.KindOf(err) != herrors.InvalidArgument {
		t.Fatalf("kind = %v, want InvalidArgument", herrors.KindOf(err))
	}

	cfg.NoiseReduction = 24
	err = cfg.Validate()
	if herrors.KindOf(err) != herrors.InvalidArgument {
		t.Fatalf("kind = %v, want InvalidArgument", herrors.KindOf(err))
	}
}

func TestConfigValidateRejectsUnknownEnums(t *testing.T) {
	cases := []Config{
		{TileSize: 999, SearchDistance: SearchSmall, MergingAlgorithm: Fast, NoiseReduction: 1, ExposureControl: ExposureOff, OutputBitDepth: Native},
		{TileSize: TileSmall, SearchDistance: 999, MergingAlgorithm: Fast, NoiseReduction: 1, ExposureControl: ExposureOff, OutputBitDepth: Native},
		{TileSize: TileSmall, SearchDistance: SearchSmall, MergingAlgorithm: 999, NoiseReduction: 1, ExposureControl: ExposureOff, OutputBitDepth: Native},
		{TileSize: TileSmall, SearchDistance: SearchSmall, MergingAlgorithm: Fast, NoiseReduction: 1, ExposureControl: 999, OutputBitDepth: Native},
		{TileSize: TileSmall, SearchDistance: SearchSmall, MergingAlgorithm: Fast, NoiseReduction: 1, ExposureControl: ExposureOff, OutputBitDepth: 999},
	}
	for i, cfg := range cases {
		if herrors.KindOf(cfg.Validate()) != herrors.InvalidArgument {
			t.Errorf("case %d: want InvalidArgument", i)
		}
	}
}

func TestDeriveAlignConfigLevelsMatchSearchDistance(t *testing.T) {
	cfg := validConfig()
	cfg.SearchDistance = SearchLarge
	ac := cfg.deriveAlignConfig(2)
	if len(ac.Factors) != 7 { // CFA collapse + 6 extra levels
		t.Fatalf("len(Factors) = %d, want 7", len(ac.Factors))
	}
	if len(ac.TileSizes) != len(ac.Factors) || len(ac.SearchDist) != len(ac.Factors) {
		t.Fatalf("mismatched per-level slice lengths: %+v", ac)
	}
	for _, t2 := range ac.TileSizes {
		if t2 < 8 {
			t.Errorf("tile size %d below floor of 8", t2)
		}
	}
}

func TestDeriveAlignConfigFinestLevelHalvesSearchRadius(t *testing.T) {
	cfg := validConfig()
	cfg.SearchDistance = SearchLarge
	ac := cfg.deriveAlignConfig(2)
	if ac.SearchDist[0] != 4 {
		t.Fatalf("finest level search dist = %d, want 4 (half of 8)", ac.SearchDist[0])
	}
	for i := 1; i < len(ac.SearchDist); i++ {
		if ac.SearchDist[i] != 8 {
			t.Errorf("level %d search dist = %d, want 8", i, ac.SearchDist[i])
		}
	}
}

func TestFrequencyTileSizeIsSmallerForXTrans(t *testing.T) {
	if frequencyTileSize(2) != 16 {
		t.Errorf("bayer tile size = %d, want 16", frequencyTileSize(2))
	}
	if frequencyTileSize(6) != 8 {
		t.Errorf("x-trans tile size = %d, want 8", frequencyTileSize(6))
	}
}
