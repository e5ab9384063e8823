// Package probetest builds small synthetic media files for tests.
package probetest

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	typeASCII    = 2
	typeShort    = 3
	typeLong     = 4
	typeRational = 5

	tagMake             = 0x010F
	tagModel            = 0x0110
	tagOrientation      = 0x0112
	tagExifPointer      = 0x8769
	tagGPSPointer       = 0x8825
	tagFNumber          = 0x829D
	tagISO              = 0x8827
	tagDateTimeOriginal = 0x9003
	tagPixelX           = 0xA002
	tagPixelY           = 0xA003

	tagGPSLatRef = 0x0001
	tagGPSLat    = 0x0002
	tagGPSLonRef = 0x0003
	tagGPSLon    = 0x0004
	tagGPSAltRef = 0x0005
	tagGPSAlt    = 0x0006
)

// EXIF describes the tags written by [TIFF]. Zero fields are omitted.
type EXIF struct {
	Captured    time.Time
	Altitude    *float64
	Make        string
	Model       string
	Lat, Lon    float64
	FNumber     float64
	ISO         int
	Orientation int
	Width       int
	Height      int
	GPS         bool
}

type entry struct {
	data  []byte
	count uint32
	tag   uint16
	typ   uint16
}

// TIFF encodes e as a minimal little-endian TIFF stream carrying EXIF and
// GPS sub-directories. It has no image data.
func TIFF(e EXIF) []byte {
	var ifd0, exifIFD, gpsIFD []entry

	if e.Make != "" {
		ifd0 = append(ifd0, ascii(tagMake, e.Make))
	}

	if e.Model != "" {
		ifd0 = append(ifd0, ascii(tagModel, e.Model))
	}

	if e.Orientation != 0 {
		ifd0 = append(ifd0, short(tagOrientation, e.Orientation))
	}

	if !e.Captured.IsZero() {
		exifIFD = append(exifIFD, ascii(tagDateTimeOriginal, e.Captured.UTC().Format("2006:01:02 15:04:05")))
	}

	if e.FNumber != 0 {
		exifIFD = append(exifIFD, rational(tagFNumber, e.FNumber))
	}

	if e.ISO != 0 {
		exifIFD = append(exifIFD, short(tagISO, e.ISO))
	}

	if e.Width != 0 {
		exifIFD = append(exifIFD, long(tagPixelX, e.Width))
	}

	if e.Height != 0 {
		exifIFD = append(exifIFD, long(tagPixelY, e.Height))
	}

	if e.GPS {
		latRef, lonRef := "N", "E"
		if e.Lat < 0 {
			latRef = "S"
		}

		if e.Lon < 0 {
			lonRef = "W"
		}

		gpsIFD = append(gpsIFD,
			ascii(tagGPSLatRef, latRef),
			degrees(tagGPSLat, math.Abs(e.Lat)),
			ascii(tagGPSLonRef, lonRef),
			degrees(tagGPSLon, math.Abs(e.Lon)),
		)

		if e.Altitude != nil {
			ref := 0
			if *e.Altitude < 0 {
				ref = 1
			}

			gpsIFD = append(gpsIFD,
				entry{tag: tagGPSAltRef, typ: 1, count: 1, data: []byte{byte(ref)}},
				rational(tagGPSAlt, math.Abs(*e.Altitude)),
			)
		}
	}

	// Pointers are filled in once offsets are known.
	if len(exifIFD) > 0 {
		ifd0 = append(ifd0, long(tagExifPointer, 0))
	}

	if len(gpsIFD) > 0 {
		ifd0 = append(ifd0, long(tagGPSPointer, 0))
	}

	off0 := uint32(8)
	offExif := off0 + size(ifd0)
	offGPS := offExif + size(exifIFD)

	for i := range ifd0 {
		switch ifd0[i].tag {
		case tagExifPointer:
			ifd0[i].data = le32(offExif)
		case tagGPSPointer:
			ifd0[i].data = le32(offGPS)
		}
	}

	var buf bytes.Buffer

	buf.WriteString("II")
	must(binary.Write(&buf, binary.LittleEndian, uint16(42)))
	must(binary.Write(&buf, binary.LittleEndian, off0))

	writeIFD(&buf, off0, ifd0)

	if len(exifIFD) > 0 {
		writeIFD(&buf, offExif, exifIFD)
	}

	if len(gpsIFD) > 0 {
		writeIFD(&buf, offGPS, gpsIFD)
	}

	return buf.Bytes()
}

// WriteTIFF writes [TIFF] output to name inside dir and returns its path.
func WriteTIFF(t *testing.T, dir, name string, e EXIF) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, TIFF(e), 0o644))

	return path
}

// size is the encoded length of an IFD plus its out-of-line data.
func size(entries []entry) uint32 {
	if len(entries) == 0 {
		return 0
	}

	n := uint32(2 + 12*len(entries) + 4)
	for _, e := range entries {
		if len(e.data) > 4 {
			n += uint32(padded(len(e.data)))
		}
	}

	return n
}

func writeIFD(buf *bytes.Buffer, offset uint32, entries []entry) {
	dataOff := offset + uint32(2+12*len(entries)+4)

	var data bytes.Buffer

	must(binary.Write(buf, binary.LittleEndian, uint16(len(entries))))

	for _, e := range entries {
		must(binary.Write(buf, binary.LittleEndian, e.tag))
		must(binary.Write(buf, binary.LittleEndian, e.typ))
		must(binary.Write(buf, binary.LittleEndian, e.count))

		if len(e.data) <= 4 {
			inline := make([]byte, 4)
			copy(inline, e.data)
			buf.Write(inline)

			continue
		}

		must(binary.Write(buf, binary.LittleEndian, dataOff+uint32(data.Len())))
		data.Write(e.data)

		if len(e.data)%2 == 1 {
			data.WriteByte(0)
		}
	}

	must(binary.Write(buf, binary.LittleEndian, uint32(0)))
	buf.Write(data.Bytes())
}

func ascii(tag uint16, s string) entry {
	b := append([]byte(s), 0)
	return entry{tag: tag, typ: typeASCII, count: uint32(len(b)), data: b}
}

func short(tag uint16, v int) entry {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(v))

	return entry{tag: tag, typ: typeShort, count: 1, data: b}
}

func long(tag uint16, v int) entry {
	return entry{tag: tag, typ: typeLong, count: 1, data: le32(uint32(v))}
}

func rational(tag uint16, v float64) entry {
	return entry{tag: tag, typ: typeRational, count: 1, data: rat(v)}
}

// degrees encodes v as a degrees/minutes/seconds rational triple.
func degrees(tag uint16, v float64) entry {
	deg := math.Floor(v)
	minutes := math.Floor((v - deg) * 60)
	sec := (v - deg - minutes/60) * 3600

	data := append(append(rat(deg), rat(minutes)...), rat(sec)...)

	return entry{tag: tag, typ: typeRational, count: 3, data: data}
}

func rat(v float64) []byte {
	const den = 1000000

	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b[0:4], uint32(math.Round(v*den)))
	binary.LittleEndian.PutUint32(b[4:8], den)

	return b
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)

	return b
}

func padded(n int) int {
	return n + n%2
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
