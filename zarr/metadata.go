package zarr

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/tuskan/zarr-core/chunkgrid"
	"github.com/tuskan/zarr-core/codec"
	"github.com/tuskan/zarr-core/codec/blosccodec"
	"github.com/tuskan/zarr-core/codec/crc32c"
	"github.com/tuskan/zarr-core/codec/rawbytes"
	"github.com/tuskan/zarr-core/codec/transpose"
	"github.com/tuskan/zarr-core/codec/zstdcodec"
	"github.com/tuskan/zarr-core/keyencoding"
	"github.com/tuskan/zarr-core/storage"
	"github.com/klauspost/compress/zstd"
)

// Metadata is the parsed content of a node's zarr.json document, restricted
// to the array fields this core understands (spec.md §6, SPEC_FULL.md §3).
type Metadata struct {
	Shape            []uint64
	DataType         codec.DataType
	ChunkGrid        chunkgrid.Regular
	ChunkKeyEncoding storage.ChunkKeyEncoding
	FillValue        codec.FillValue
	Pipeline         *codec.Pipeline
	Attributes       map[string]interface{}
}

type rawMetadata struct {
	ZarrFormat       int                     `json:"zarr_format"`
	NodeType         string                  `json:"node_type"`
	Shape            []uint64                `json:"shape"`
	DataType         string                  `json:"data_type"`
	ChunkGrid        rawChunkGrid            `json:"chunk_grid"`
	ChunkKeyEncoding rawChunkKeyEncoding     `json:"chunk_key_encoding"`
	FillValue        json.RawMessage         `json:"fill_value"`
	Codecs           []rawCodec              `json:"codecs"`
	Attributes       map[string]interface{}  `json:"attributes"`
}

type rawChunkGrid struct {
	Name          string `json:"name"`
	Configuration struct {
		ChunkShape []uint64 `json:"chunk_shape"`
	} `json:"configuration"`
}

type rawChunkKeyEncoding struct {
	Name          string `json:"name"`
	Configuration struct {
		Separator string `json:"separator"`
	} `json:"configuration"`
}

type rawCodec struct {
	Name          string          `json:"name"`
	Configuration json.RawMessage `json:"configuration"`
}

// ParseMetadata validates and decodes raw zarr.json bytes (spec.md §6's
// "must contain at minimum zarr_format=3, node_type in {array,group}, plus
// array-specific fields").
func ParseMetadata(raw []byte) (*Metadata, error) {
	var rm rawMetadata
	if err := json.Unmarshal(raw, &rm); err != nil {
		return nil, &ArrayCreateError{Kind: InvalidMetadata, Err: fmt.Errorf("parse zarr.json: %w", err)}
	}
	if rm.ZarrFormat != 3 {
		return nil, &ArrayCreateError{Kind: InvalidMetadata, Err: fmt.Errorf("unsupported zarr_format %d", rm.ZarrFormat)}
	}
	if rm.NodeType != "array" {
		return nil, &ArrayCreateError{Kind: InvalidMetadata, Err: fmt.Errorf("node_type %q is not \"array\"", rm.NodeType)}
	}
	if len(rm.Shape) == 0 {
		return nil, &ArrayCreateError{Kind: InvalidMetadata, Err: fmt.Errorf("missing or empty shape")}
	}

	dt, err := parseDataType(rm.DataType)
	if err != nil {
		return nil, &ArrayCreateError{Kind: InvalidMetadata, Err: err}
	}

	if rm.ChunkGrid.Name != "regular" {
		return nil, &ArrayCreateError{Kind: InvalidMetadata, Err: fmt.Errorf("unsupported chunk_grid %q", rm.ChunkGrid.Name)}
	}
	if len(rm.ChunkGrid.Configuration.ChunkShape) != len(rm.Shape) {
		return nil, &ArrayCreateError{Kind: InvalidMetadata, Err: fmt.Errorf("chunk_grid.chunk_shape dimensionality does not match shape")}
	}
	grid := chunkgrid.NewRegular(rm.ChunkGrid.Configuration.ChunkShape)

	enc, err := parseChunkKeyEncoding(rm.ChunkKeyEncoding)
	if err != nil {
		return nil, &ArrayCreateError{Kind: InvalidMetadata, Err: err}
	}

	fill, err := parseFillValue(rm.FillValue, dt)
	if err != nil {
		return nil, &ArrayCreateError{Kind: InvalidMetadata, Err: err}
	}

	pipeline, err := parseCodecs(rm.Codecs)
	if err != nil {
		return nil, &ArrayCreateError{Kind: InvalidMetadata, Err: err}
	}

	return &Metadata{
		Shape:            rm.Shape,
		DataType:         dt,
		ChunkGrid:        grid,
		ChunkKeyEncoding: enc,
		FillValue:        fill,
		Pipeline:         pipeline,
		Attributes:       rm.Attributes,
	}, nil
}

func parseChunkKeyEncoding(raw rawChunkKeyEncoding) (storage.ChunkKeyEncoding, error) {
	switch raw.Name {
	case "", "default":
		return keyencoding.NewDefault(), nil
	case "v2":
		return keyencoding.NewV2(), nil
	default:
		return nil, fmt.Errorf("unsupported chunk_key_encoding %q", raw.Name)
	}
}

func parseDataType(s string) (codec.DataType, error) {
	switch s {
	case "bool":
		return codec.Bool, nil
	case "int8":
		return codec.Int8, nil
	case "int16":
		return codec.Int16, nil
	case "int32":
		return codec.Int32, nil
	case "int64":
		return codec.Int64, nil
	case "uint8":
		return codec.Uint8, nil
	case "uint16":
		return codec.Uint16, nil
	case "uint32":
		return codec.Uint32, nil
	case "uint64":
		return codec.Uint64, nil
	case "float32":
		return codec.Float32, nil
	case "float64":
		return codec.Float64, nil
	default:
		return 0, fmt.Errorf("unsupported data_type %q", s)
	}
}

// parseFillValue decodes the zarr.json fill_value field into its
// native-endian byte pattern. Floats accept the special JSON strings
// "NaN", "Infinity", "-Infinity" per the Zarr V3 spec; their bit patterns
// are taken verbatim from Go's IEEE-754 encoding and never canonicalised
// (SPEC_FULL.md §3's resolution of spec.md §9's open question).
func parseFillValue(raw json.RawMessage, dt codec.DataType) (codec.FillValue, error) {
	if dt == codec.Float32 || dt == codec.Float64 {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			var f float64
			switch s {
			case "NaN":
				f = math.NaN()
			case "Infinity":
				f = math.Inf(1)
			case "-Infinity":
				f = math.Inf(-1)
			default:
				return nil, fmt.Errorf("unsupported fill_value string %q", s)
			}
			return floatFillValue(f, dt), nil
		}
	}

	switch dt {
	case codec.Bool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("fill_value: %w", err)
		}
		if b {
			return codec.FillValue{1}, nil
		}
		return codec.FillValue{0}, nil
	case codec.Float32, codec.Float64:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("fill_value: %w", err)
		}
		return floatFillValue(f, dt), nil
	default:
		var n int64
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("fill_value: %w", err)
		}
		return intFillValue(n, dt), nil
	}
}

func floatFillValue(f float64, dt codec.DataType) codec.FillValue {
	buf := make([]byte, dt.Size())
	if dt == codec.Float32 {
		putUint32LE(buf, math.Float32bits(float32(f)))
	} else {
		putUint64LE(buf, math.Float64bits(f))
	}
	return codec.FillValue(buf)
}

func intFillValue(n int64, dt codec.DataType) codec.FillValue {
	buf := make([]byte, dt.Size())
	switch dt.Size() {
	case 1:
		buf[0] = byte(n)
	case 2:
		putUint16LE(buf, uint16(n))
	case 4:
		putUint32LE(buf, uint32(n))
	case 8:
		putUint64LE(buf, uint64(n))
	}
	return codec.FillValue(buf)
}

func putUint16LE(b []byte, v uint16) { b[0] = byte(v); b[1] = byte(v >> 8) }
func putUint32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
func putUint64LE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * uint(i)))
	}
}

// parseCodecs builds a Pipeline from the zarr.json codecs array. Codec
// names follow the set this core ships (SPEC_FULL.md §4.2): "transpose"
// (array→array), "bytes" (array→bytes, mandatory), "zstd"/"blosc"/"crc32c"
// (bytes→bytes).
func parseCodecs(raw []rawCodec) (*codec.Pipeline, error) {
	var aa []codec.ArrayToArrayCodec
	var ab codec.ArrayToBytesCodec
	var bb []codec.BytesToBytesCodec

	for _, rc := range raw {
		switch rc.Name {
		case "transpose":
			var cfg struct {
				Order []int `json:"order"`
			}
			if len(rc.Configuration) > 0 {
				if err := json.Unmarshal(rc.Configuration, &cfg); err != nil {
					return nil, fmt.Errorf("transpose codec configuration: %w", err)
				}
			}
			c, err := transpose.New(cfg.Order)
			if err != nil {
				return nil, err
			}
			aa = append(aa, c)
		case "bytes":
			if ab != nil {
				return nil, fmt.Errorf("more than one array-to-bytes codec in pipeline")
			}
			ab = rawbytes.New()
		case "zstd":
			// The zarr.json "level" field (1-22, zstd CLI convention) is
			// accepted but not yet mapped to a specific EncoderLevel; this
			// core always compresses at zstd's default speed/ratio trade-off.
			bb = append(bb, zstdcodec.New(zstd.SpeedDefault))
		case "blosc":
			var cfg struct {
				Clevel  int  `json:"clevel"`
				Shuffle bool `json:"shuffle"`
			}
			if len(rc.Configuration) > 0 {
				if err := json.Unmarshal(rc.Configuration, &cfg); err != nil {
					return nil, fmt.Errorf("blosc codec configuration: %w", err)
				}
			}
			bb = append(bb, blosccodec.New(cfg.Clevel, cfg.Shuffle))
		case "crc32c":
			bb = append(bb, crc32c.New())
		default:
			return nil, fmt.Errorf("unsupported codec %q", rc.Name)
		}
	}

	if ab == nil {
		ab = rawbytes.New()
	}
	return codec.New(aa, ab, bb)
}
