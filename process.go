package hdrplus

import (
	"fmt"
	"math"

	"github.com/gogpu/hdrplus/align"
	"github.com/gogpu/hdrplus/exposure"
	"github.com/gogpu/hdrplus/gpu"
	"github.com/gogpu/hdrplus/herrors"
	"github.com/gogpu/hdrplus/merge/frequency"
	"github.com/gogpu/hdrplus/merge/spatial"
	"github.com/gogpu/hdrplus/pyramid"
	"github.com/gogpu/hdrplus/texture"
)

// Process runs the full align-and-merge core over burst (spec.md §4.8, §5):
// validate, prepare every frame, align and merge every comparison frame
// onto the reference with the configured engine, normalize exposure, and
// quantize per config.OutputBitDepth. cancel may be nil (never cancelled);
// progress may be nil (no progress reporting).
func Process(ctx *gpu.Context, burst Burst, cfg Config, cancel *CancelToken, progress func(float32)) (MergedRaw, error) {
	if err := cfg.Validate(); err != nil {
		return MergedRaw{}, err
	}
	if err := validateBurst(burst); err != nil {
		return MergedRaw{}, err
	}
	if progress == nil {
		progress = func(float32) {}
	}

	ref := burst.Frames[burst.RefIdx]
	refMeta := burst.Meta[burst.RefIdx]
	cfaWidth := ref.CFAWidth
	total := len(burst.Frames)

	alignCfg := cfg.deriveAlignConfig(cfaWidth)
	for _, m := range burst.Meta {
		if m.ExposureBias != refMeta.ExposureBias {
			alignCfg.UniformExposure = false
		}
	}
	tileFactor := cfaWidth * (1 << uint(len(alignCfg.Factors)-1)) * int(cfg.TileSize)

	refPrepared, err := prepareOne(ctx, ref, refMeta, refMeta, tileFactor, cfaWidth)
	if err != nil {
		return MergedRaw{}, err
	}

	refPyr, err := pyramid.Build(ctx, refPrepared, cfaWidth, refMeta.ColorFactors, blackLevelMean(refMeta.BlackLevel), alignCfg.Factors)
	if err != nil {
		return MergedRaw{}, err
	}

	progress(1.0 / float32(total))
	if cancel.Cancelled() {
		return MergedRaw{}, herrors.New(herrors.Cancelled, "hdrplus.Process", nil)
	}

	blackMin := refMeta.BlackLevel[0]
	for _, m := range burst.Meta {
		for _, b := range m.BlackLevel {
			if b < blackMin {
				blackMin = b
			}
		}
	}

	var mergedTex *gpu.Texture
	if cfg.MergingAlgorithm == Fast {
		mergedTex, err = runSpatial(ctx, burst, cfg.NoiseReduction, refMeta, refPrepared, refPyr, alignCfg, tileFactor, cfaWidth, cancel, progress, total)
	} else {
		mergedTex, err = runFrequency(ctx, burst, refMeta, refPrepared, refPyr, alignCfg, tileFactor, cfaWidth, cancel, progress, total)
	}
	if err != nil {
		return MergedRaw{}, err
	}

	if cancel.Cancelled() {
		return MergedRaw{}, herrors.New(herrors.Cancelled, "hdrplus.Process", nil)
	}

	exposed, gain, err := exposure.Normalize(ctx, mergedTex, cfaWidth, refMeta.BlackLevel, refMeta.WhiteLevel, refMeta.ColorFactors, cfg.ExposureControl.toExposureMode())
	if err != nil {
		return MergedRaw{}, err
	}

	cropped, err := texture.Crop(ctx, exposed, (exposed.Width-ref.Width)/2, (exposed.Height-ref.Height)/2, ref.Width, ref.Height)
	if err != nil {
		return MergedRaw{}, err
	}
	quantize(cropped, cfg.OutputBitDepth, refMeta.WhiteLevel)

	outMeta := refMeta
	outMeta.BlackLevel = append([]float32(nil), refMeta.BlackLevel...)
	for i := range outMeta.BlackLevel {
		outMeta.BlackLevel[i] = blackMin
	}

	progress(1)
	return MergedRaw{
		Width:    ref.Width,
		Height:   ref.Height,
		CFAWidth: cfaWidth,
		Pixels:   cropped.Data,
		Meta:     outMeta,
		Gain:     gain,
	}, nil
}

func validateBurst(burst Burst) error {
	if len(burst.Frames) == 0 {
		return herrors.New(herrors.InvalidArgument, "hdrplus.Process", fmt.Errorf("empty burst"))
	}
	if len(burst.Meta) != len(burst.Frames) {
		return herrors.New(herrors.InvalidArgument, "hdrplus.Process", fmt.Errorf("meta length %d != frame count %d", len(burst.Meta), len(burst.Frames)))
	}
	if burst.RefIdx < 0 || burst.RefIdx >= len(burst.Frames) {
		return herrors.New(herrors.InvalidArgument, "hdrplus.Process", fmt.Errorf("ref_idx %d out of range [0,%d)", burst.RefIdx, len(burst.Frames)))
	}
	ref := burst.Frames[burst.RefIdx]
	if ref.CFAWidth != 2 && ref.CFAWidth != 6 {
		return herrors.New(herrors.InvalidArgument, "hdrplus.Process", fmt.Errorf("unsupported CFA width %d", ref.CFAWidth))
	}
	for i, f := range burst.Frames {
		if f.Width != ref.Width || f.Height != ref.Height || f.CFAWidth != ref.CFAWidth {
			return herrors.New(herrors.InvalidArgument, "hdrplus.Process", fmt.Errorf("frame %d dimensions/CFA mismatch", i))
		}
		if len(f.Pixels) != f.Width*f.Height {
			return herrors.New(herrors.InvalidArgument, "hdrplus.Process", fmt.Errorf("frame %d pixel count mismatch", i))
		}
		m := burst.Meta[i]
		if len(m.BlackLevel) != f.CFAWidth*f.CFAWidth {
			return herrors.New(herrors.InvalidArgument, "hdrplus.Process", fmt.Errorf("frame %d black level length %d != %d", i, len(m.BlackLevel), f.CFAWidth*f.CFAWidth))
		}
	}
	return nil
}

func blackLevelMean(blackLevel []float32) float32 {
	if len(blackLevel) == 0 {
		return 0
	}
	var sum float32
	for _, v := range blackLevel {
		sum += v
	}
	return sum / float32(len(blackLevel))
}

func frameToTexture(ctx *gpu.Context, f Frame, label string) (*gpu.Texture, error) {
	tex, err := ctx.AllocTexture(f.Width, f.Height, gpu.StorageFloatR, label)
	if err != nil {
		return nil, err
	}
	copy(tex.Data, f.Pixels)
	return tex, nil
}

func hotPixelTexture(ctx *gpu.Context, f Frame, weights []float32) (*gpu.Texture, error) {
	if weights == nil {
		return nil, nil
	}
	tex, err := ctx.AllocTexture(f.Width, f.Height, gpu.StorageFloatR, "hotpixel")
	if err != nil {
		return nil, err
	}
	copy(tex.Data, weights)
	return tex, nil
}

// prepareOne runs texture.PrepareFrame for a single burst frame, equalizing
// its exposure against refMeta's bias.
func prepareOne(ctx *gpu.Context, f Frame, meta, refMeta FrameMeta, tileFactor, cfaWidth int) (*gpu.Texture, error) {
	raw, err := frameToTexture(ctx, f, "raw")
	if err != nil {
		return nil, err
	}
	hp, err := hotPixelTexture(ctx, f, meta.HotPixelWeight)
	if err != nil {
		return nil, err
	}
	deltaEV := float64(refMeta.ExposureBias-meta.ExposureBias) / 100.0
	return texture.PrepareFrame(ctx, raw, hp, tileFactor, deltaEV, meta.BlackLevel, cfaWidth)
}

// runSpatial drives the C5 spatial merge engine across every non-reference
// frame in the burst, in caller order, polling cancel between frames.
func runSpatial(ctx *gpu.Context, burst Burst, noiseReduction int, refMeta FrameMeta, refPrepared *gpu.Texture, refPyr *pyramid.Pyramid, alignCfg align.Config, tileFactor, cfaWidth int, cancel *CancelToken, progress func(float32), total int) (*gpu.Texture, error) {
	sigma, err := spatial.ReferenceNoiseSigma(ctx, refPrepared, cfaWidth)
	if err != nil {
		return nil, err
	}
	r := spatial.Robustness(noiseReduction)

	acc, err := spatial.NewAccumulator(ctx, refPrepared)
	if err != nil {
		return nil, err
	}
	acc.AddReference(refPrepared)

	done := 1
	for i, f := range burst.Frames {
		if i == burst.RefIdx {
			continue
		}
		if cancel.Cancelled() {
			return nil, herrors.New(herrors.Cancelled, "hdrplus.runSpatial", nil)
		}
		meta := burst.Meta[i]
		prepared, err := prepareOne(ctx, f, meta, refMeta, tileFactor, cfaWidth)
		if err != nil {
			return nil, err
		}
		if err := spatial.MergeFrame(ctx, acc, refPyr, refPrepared, prepared, cfaWidth, refMeta.ColorFactors, blackLevelMean(refMeta.BlackLevel), alignCfg, sigma, r); err != nil {
			return nil, err
		}
		done++
		progress(float32(done) / float32(total))
	}
	return acc.Texture(), nil
}

// runFrequency drives the C6 frequency merge engine: it prepares every
// non-reference frame up front (the engine itself owns per-frame alignment)
// and hands them to frequency.MergeBurst as a batch.
func runFrequency(ctx *gpu.Context, burst Burst, refMeta FrameMeta, refPrepared *gpu.Texture, refPyr *pyramid.Pyramid, alignCfg align.Config, tileFactor, cfaWidth int, cancel *CancelToken, progress func(float32), total int) (*gpu.Texture, error) {
	var cmp []*gpu.Texture
	var exposureFactors []float64
	done := 1
	for i, f := range burst.Frames {
		if i == burst.RefIdx {
			continue
		}
		if cancel.Cancelled() {
			return nil, herrors.New(herrors.Cancelled, "hdrplus.runFrequency", nil)
		}
		meta := burst.Meta[i]
		prepared, err := prepareOne(ctx, f, meta, refMeta, tileFactor, cfaWidth)
		if err != nil {
			return nil, err
		}
		cmp = append(cmp, prepared)
		exposureFactors = append(exposureFactors, exposureFactor(refMeta, meta))
		done++
		progress(0.5 * float32(done) / float32(total))
	}

	uniformExposure := true
	for _, m := range burst.Meta {
		if m.ExposureBias != refMeta.ExposureBias {
			uniformExposure = false
		}
	}

	merged, err := frequency.MergeBurst(ctx, refPyr, refPrepared, cmp, cfaWidth, refMeta.ColorFactors, blackLevelMean(refMeta.BlackLevel), alignCfg, frequencyTileSize(cfaWidth), exposureFactors, refMeta.WhiteLevel, uniformExposure)
	if err != nil {
		return nil, err
	}
	progress(0.5 + 0.5*float32(total-1)/float32(total))
	return merged, nil
}

// exposureFactor computes a comparison frame's exposure factor relative to
// the reference, per spec.md's Glossary: 2^((ref_bias-this_bias)/100), bias
// values being in 1/100 EV units.
func exposureFactor(refMeta, meta FrameMeta) float64 {
	return math.Pow(2, float64(refMeta.ExposureBias-meta.ExposureBias)/100)
}
