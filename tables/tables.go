// Package tables provides the probability tables the Opus layers feed into
// the range coder, as validated immutable rangecoding.ICDF values.
//
// SILK models its parameters with a total frequency of 256, which does not
// fit an 8-bit entry, so those tables use the 16-bit flavor. CELT's tables
// use sub-8-bit totals and the 8-bit flavor. All values match the reference
// libopus tables.
//
// Reference: RFC 6716 Sections 4.2.7 and 4.3.
package tables

import "github.com/opusgo/opuscore/rangecoding"

// SILK frame type (RFC 6716 Section 4.2.7.3).
var (
	// FrameTypeVADInactive codes the frame type when VAD marked the frame
	// inactive. From libopus silk_type_offset_no_VAD_iCDF.
	FrameTypeVADInactive = rangecoding.MustICDF16(8, 230, 0)

	// FrameTypeVADActive codes (signalType-1)*2 + quantOffset for active
	// frames. From libopus silk_type_offset_VAD_iCDF.
	FrameTypeVADActive = rangecoding.MustICDF16(8, 232, 158, 10, 0)
)

// SILK subframe gains (RFC 6716 Section 4.2.7.4).
var (
	GainMSBInactive = rangecoding.MustICDF16(8, 256, 224, 192, 160, 128, 96, 64, 32, 0)
	GainMSBUnvoiced = rangecoding.MustICDF16(8, 256, 204, 154, 102, 51, 0)
	GainMSBVoiced   = rangecoding.MustICDF16(8, 256, 255, 244, 220, 186, 145, 100, 56, 20, 0)
	GainLSB         = rangecoding.MustICDF16(8, 256, 224, 192, 160, 128, 96, 64, 32, 0)

	// DeltaGain codes the gain change between subframes, centered at 4.
	DeltaGain = rangecoding.MustICDF16(8,
		256, 250, 245, 239, 230, 219, 203, 180, 149, 111, 73, 41, 20, 8, 2, 0)
)

// SILK LSF stage 1 codebook indices (RFC 6716 Section 4.2.7.5.1).
var (
	LSFStage1NBMBVoiced = rangecoding.MustICDF16(8,
		256, 240, 226, 214, 202, 190, 178, 166, 154, 142, 130, 118,
		106, 94, 82, 70, 58, 48, 40, 32, 24, 17, 11, 6, 2, 0)
	LSFStage1NBMBUnvoiced = rangecoding.MustICDF16(8,
		256, 239, 223, 208, 193, 178, 163, 149, 135, 122, 109, 96,
		84, 72, 61, 51, 42, 33, 25, 18, 12, 7, 3, 0)
	LSFStage1WBVoiced = rangecoding.MustICDF16(8,
		256, 238, 221, 204, 188, 173, 158, 144, 131, 118, 106, 95,
		84, 74, 65, 56, 47, 39, 32, 25, 19, 13, 8, 4, 1, 0)
	LSFStage1WBUnvoiced = rangecoding.MustICDF16(8,
		256, 238, 221, 205, 190, 175, 161, 148, 135, 123, 111, 100,
		89, 79, 69, 60, 51, 43, 35, 28, 21, 15, 10, 6, 3, 1, 0)
)

// CELT tables (RFC 6716 Section 4.3).
var (
	// Spread codes the PVQ spreading decision. From libopus celt/celt.h
	// spread_icdf.
	Spread = rangecoding.MustICDF(5, 25, 23, 2, 0)

	// Tapset codes the post-filter tapset. From libopus celt/celt.c
	// tapset_icdf.
	Tapset = rangecoding.MustICDF(2, 2, 1, 0)

	// AllocationTrim codes the bit allocation trim. From libopus
	// celt/celt.h trim_icdf.
	AllocationTrim = rangecoding.MustICDF(7, 126, 124, 119, 109, 87, 41, 19, 9, 4, 2, 0)

	// SmallEnergy codes coarse energy in the low-bit fallback. From
	// libopus celt/quant_bands.c small_energy_icdf.
	SmallEnergy = rangecoding.MustICDF(2, 2, 1, 0)
)
