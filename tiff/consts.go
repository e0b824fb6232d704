// seehuhn.de/go/awib - archival master images with standardized colour profiles
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package tiff

const (
	leHeader = "II\x2A\x00"
	beHeader = "MM\x00\x2A"

	ifdLen = 12
)

// Data types.
const (
	dtByte      = 1
	dtASCII     = 2
	dtShort     = 3
	dtLong      = 4
	dtRational  = 5
	dtSByte     = 6
	dtUndefined = 7
	dtSShort    = 8
	dtSLong     = 9
	dtSRational = 10
	dtFloat     = 11
	dtDouble    = 12
)

// typeSize gives the size in bytes of one value of each data type.
var typeSize = [...]uint32{0, 1, 1, 2, 4, 8, 1, 1, 2, 4, 8, 4, 8}

// Tags.
const (
	tImageWidth                = 256
	tImageLength               = 257
	tBitsPerSample             = 258
	tCompression               = 259
	tPhotometricInterpretation = 262
	tStripOffsets              = 273
	tSamplesPerPixel           = 277
	tRowsPerStrip              = 278
	tStripByteCounts           = 279
	tXResolution               = 282
	tYResolution               = 283
	tPlanarConfiguration       = 284
	tResolutionUnit            = 296
	tSoftware                  = 305
	tDateTime                  = 306
	tPredictor                 = 317
	tXMP                       = 700
	tICCProfile                = 34675
)

// Compression schemes.
const (
	cNone       = 1
	cLZW        = 5
	cJPEG       = 7
	cDeflate    = 8
	cPackBits   = 32773
	cDeflateOld = 32946
)

// Photometric interpretations.
const (
	pRGB = 2
)

// Predictors.
const (
	prNone       = 1
	prHorizontal = 2
)

// Resolution units.
const (
	resPerInch = 2
)

const dateTimeLayout = "2006:01:02 15:04:05"
