package compression

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ZstdCompressor shares one encoder and one decoder; EncodeAll and DecodeAll are safe
// for concurrent use.
type ZstdCompressor struct {
	once sync.Once
	enc  *zstd.Encoder
	dec  *zstd.Decoder
	err  error
}

func NewZstdCompressor() *ZstdCompressor {
	return &ZstdCompressor{}
}

func (z *ZstdCompressor) init() {
	z.once.Do(func() {
		z.enc, z.err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithZeroFrames(true))
		if z.err != nil {
			return
		}
		z.dec, z.err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	})
}

func (z *ZstdCompressor) Compress(data []byte) ([]byte, error) {
	z.init()
	if z.err != nil {
		return nil, fmt.Errorf("zstd unavailable: %w", z.err)
	}
	return z.enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

func (z *ZstdCompressor) Decompress(data []byte) ([]byte, error) {
	z.init()
	if z.err != nil {
		return nil, fmt.Errorf("zstd unavailable: %w", z.err)
	}
	return z.dec.DecodeAll(data, nil)
}
