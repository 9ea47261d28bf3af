package shardfmt

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// Edge-value blocks hold the fixed-size E payload for every edge in a
// shard's adjacency, in the same order the adjacency codec emits them
// (I3), cut into fixed-count blocks so a random edge's value can be
// located by block index = edgeOrdinal / valuesPerBlock, byte offset
// within the block = (edgeOrdinal % valuesPerBlock) * ByteSize(E)
// (spec.md §3, §4.3). Each block is its own file under a shard's edata
// directory (`<base>.shard.<p>_of_<P>.edata.B<bs>/<block-index>`, §6) so a
// reader can open exactly the blocks it needs without scanning a flat
// file. Compression, when enabled, is applied to a whole block's bytes
// only -- never a sub-block range -- so the block-index arithmetic never
// has to know whether the file on disk is compressed.

// BlockSize is the uncompressed byte extent of one block. It must be an
// exact multiple of the edge value's ByteSize() so no edge value ever
// spans two blocks.
type BlockSize int

// EdataDir returns the conventional edge-value block directory for shard p
// of numShards, given the uncompressed block size.
func EdataDir(base string, p, numShards int, bs BlockSize) string {
	return fmt.Sprintf("%s.shard.%d_of_%d.edata.B%d", base, p, numShards, int(bs))
}

// BlockPath returns the path of block index i within dir.
func BlockPath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("%d", index))
}

// BlockCodec encodes/decodes whole blocks of fixed-size values, optionally
// zstd-compressing the bytes at rest. A zero-value BlockCodec is valid and
// performs no compression.
type BlockCodec struct {
	Compress bool

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewBlockCodec builds a codec. When compress is true, blocks are
// zstd-compressed independently (no cross-block dictionary), trading some
// ratio for the ability to decode any single block without its neighbors.
func NewBlockCodec(compress bool) (*BlockCodec, error) {
	bc := &BlockCodec{Compress: compress}
	if !compress {
		return bc, nil
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, err
	}
	bc.encoder = enc
	bc.decoder = dec
	return bc, nil
}

// Close releases the codec's background goroutines. Safe to call on a
// non-compressing codec.
func (bc *BlockCodec) Close() {
	if bc.encoder != nil {
		bc.encoder.Close()
	}
	if bc.decoder != nil {
		bc.decoder.Close()
	}
}

// EncodeBlock serializes values into raw bytes via Codec[E].
func EncodeBlock[E any, PE Codec[E]](values []E) []byte {
	if len(values) == 0 {
		return nil
	}
	sz := PE(&values[0]).ByteSize()
	raw := make([]byte, len(values)*sz)
	for i := range values {
		PE(&values[i]).Encode(raw[i*sz : (i+1)*sz])
	}
	return raw
}

// DecodeBlock deserializes a raw (already decompressed) byte block back
// into count values of type E.
func DecodeBlock[E any, PE Codec[E]](raw []byte, count int) []E {
	values := make([]E, count)
	if count == 0 {
		return values
	}
	sz := PE(&values[0]).ByteSize()
	for i := 0; i < count; i++ {
		PE(&values[i]).Decode(raw[i*sz : (i+1)*sz])
	}
	return values
}

func (bc *BlockCodec) compress(raw []byte) []byte {
	if !bc.Compress || bc.encoder == nil {
		return raw
	}
	return bc.encoder.EncodeAll(raw, make([]byte, 0, len(raw)))
}

func (bc *BlockCodec) decompress(stored []byte, wantLen int) ([]byte, error) {
	if !bc.Compress || bc.decoder == nil {
		return stored, nil
	}
	return bc.decoder.DecodeAll(stored, make([]byte, 0, wantLen))
}

// Decompress is the exported form of decompress, for callers outside this
// package that fetch a block's raw on-disk bytes themselves (e.g. an
// async prefetch) and need to turn them back into encoded value bytes.
func (bc *BlockCodec) Decompress(stored []byte, wantLen int) ([]byte, error) {
	return bc.decompress(stored, wantLen)
}

// WriteBlockFiles writes values to dir, valuesPerBlock at a time, one file
// per block named by block index (0, 1, 2, ...). dir is created if it
// does not already exist.
func WriteBlockFiles[E any, PE Codec[E]](dir string, bc *BlockCodec, values []E, valuesPerBlock int) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	index := 0
	for off := 0; off < len(values); off += valuesPerBlock {
		end := off + valuesPerBlock
		if end > len(values) {
			end = len(values)
		}
		raw := EncodeBlock[E, PE](values[off:end])
		stored := bc.compress(raw)
		if err := os.WriteFile(BlockPath(dir, index), stored, 0644); err != nil {
			return err
		}
		index++
	}
	return nil
}

// ReadBlockFile reads and decodes block index from dir. count is the
// number of values the block holds (valuesPerBlock for all but possibly
// the last block of a shard).
func ReadBlockFile[E any, PE Codec[E]](dir string, index int, bc *BlockCodec, count int) ([]E, error) {
	stored, err := os.ReadFile(BlockPath(dir, index))
	if err != nil {
		return nil, err
	}
	var zero E
	sz := PE(&zero).ByteSize()
	raw, err := bc.decompress(stored, count*sz)
	if err != nil {
		return nil, err
	}
	return DecodeBlock[E, PE](raw, count), nil
}
