package native

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Defaults used when an init request omits a field.
const (
	DefaultThreads            = 4
	DefaultContextSize        = 512
	DefaultLastNSize          = 64
	DefaultBatchSize          = 128
	DefaultTokensToKeep       = 200
	DefaultLoadParallelBlocks = 1
)

// EngineConfig is the immutable configuration a native context is created with.
type EngineConfig struct {
	Seed                int32  `json:"seed" yaml:"seed" toml:"seed"`
	Threads             int32  `json:"n_threads" yaml:"n_threads" toml:"n_threads"`
	ContextSize         int32  `json:"n_ctx" yaml:"n_ctx" toml:"n_ctx"`
	LastNSize           int32  `json:"last_n_size" yaml:"last_n_size" toml:"last_n_size"`
	BatchSize           int32  `json:"n_batch" yaml:"n_batch" toml:"n_batch"`
	TokensToKeep        int32  `json:"tokens_to_keep" yaml:"tokens_to_keep" toml:"tokens_to_keep"`
	LoadParallelBlocks  int32  `json:"n_load_parallel_blocks" yaml:"n_load_parallel_blocks" toml:"n_load_parallel_blocks"`
	AllocateExtraMemory uint64 `json:"allocate_extra_mem" yaml:"allocate_extra_mem" toml:"allocate_extra_mem"`
	UseMmap             bool   `json:"use_mmap" yaml:"use_mmap" toml:"use_mmap"`
	UseMlock            bool   `json:"use_mlock" yaml:"use_mlock" toml:"use_mlock"`
	LoadParallel        bool   `json:"load_parallel" yaml:"load_parallel" toml:"load_parallel"`
	Embeddings          bool   `json:"embeddings" yaml:"embeddings" toml:"embeddings"`
	LogitsAll           bool   `json:"logits_all" yaml:"logits_all" toml:"logits_all"`
}

// DefaultEngineConfig returns the configuration used for unset init fields.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Threads:            DefaultThreads,
		ContextSize:        DefaultContextSize,
		LastNSize:          DefaultLastNSize,
		BatchSize:          DefaultBatchSize,
		TokensToKeep:       DefaultTokensToKeep,
		LoadParallelBlocks: DefaultLoadParallelBlocks,
	}
}

// WithDefaults fills zero-valued sizes from d.
func (c EngineConfig) WithDefaults(d EngineConfig) EngineConfig {
	if c.Threads <= 0 {
		c.Threads = d.Threads
	}
	if c.ContextSize <= 0 {
		c.ContextSize = d.ContextSize
	}
	if c.LastNSize <= 0 {
		c.LastNSize = d.LastNSize
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.TokensToKeep <= 0 {
		c.TokensToKeep = d.TokensToKeep
	}
	if c.LoadParallelBlocks <= 0 {
		c.LoadParallelBlocks = d.LoadParallelBlocks
	}
	return c
}

// Validate rejects configurations the engine cannot be created with.
func (c EngineConfig) Validate() error {
	switch {
	case c.Threads <= 0:
		return fmt.Errorf("n_threads must be positive, got %d", c.Threads)
	case c.ContextSize <= 0:
		return fmt.Errorf("n_ctx must be positive, got %d", c.ContextSize)
	case c.BatchSize <= 0:
		return fmt.Errorf("n_batch must be positive, got %d", c.BatchSize)
	case c.LastNSize < 0:
		return fmt.Errorf("last_n_size must not be negative, got %d", c.LastNSize)
	case c.TokensToKeep < 0 || c.TokensToKeep >= c.ContextSize:
		return fmt.Errorf("tokens_to_keep must be in [0, n_ctx), got %d", c.TokensToKeep)
	case c.LoadParallelBlocks < 1:
		return fmt.Errorf("n_load_parallel_blocks must be at least 1, got %d", c.LoadParallelBlocks)
	}
	return nil
}

// Fixed-layout record written beside session snapshots.
const (
	recordMagic   = "FLEC"
	recordVersion = 1
)

const (
	flagMmap uint16 = 1 << iota
	flagMlock
	flagLoadParallel
	flagEmbeddings
	flagLogitsAll
)

type engineRecord struct {
	Magic               [4]byte
	Version             uint16
	Flags               uint16
	Seed                int32
	Threads             int32
	ContextSize         int32
	LastNSize           int32
	BatchSize           int32
	TokensToKeep        int32
	LoadParallelBlocks  int32
	AllocateExtraMemory uint64
}

// RecordSize is the encoded length of an EngineConfig record.
var RecordSize = binary.Size(engineRecord{})

// MarshalBinary encodes the config as a little-endian fixed-layout record.
func (c EngineConfig) MarshalBinary() ([]byte, error) {
	rec := engineRecord{
		Version:             recordVersion,
		Seed:                c.Seed,
		Threads:             c.Threads,
		ContextSize:         c.ContextSize,
		LastNSize:           c.LastNSize,
		BatchSize:           c.BatchSize,
		TokensToKeep:        c.TokensToKeep,
		LoadParallelBlocks:  c.LoadParallelBlocks,
		AllocateExtraMemory: c.AllocateExtraMemory,
	}
	copy(rec.Magic[:], recordMagic)
	for flag, on := range map[uint16]bool{
		flagMmap:         c.UseMmap,
		flagMlock:        c.UseMlock,
		flagLoadParallel: c.LoadParallel,
		flagEmbeddings:   c.Embeddings,
		flagLogitsAll:    c.LogitsAll,
	} {
		if on {
			rec.Flags |= flag
		}
	}
	var buf bytes.Buffer
	buf.Grow(RecordSize)
	if err := binary.Write(&buf, binary.LittleEndian, rec); err != nil {
		return nil, fmt.Errorf("encode engine record: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a record produced by MarshalBinary.
func (c *EngineConfig) UnmarshalBinary(b []byte) error {
	if len(b) != RecordSize {
		return fmt.Errorf("engine record: want %d bytes, got %d", RecordSize, len(b))
	}
	var rec engineRecord
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &rec); err != nil {
		return fmt.Errorf("decode engine record: %w", err)
	}
	if string(rec.Magic[:]) != recordMagic {
		return fmt.Errorf("engine record: bad magic %q", rec.Magic[:])
	}
	if rec.Version != recordVersion {
		return fmt.Errorf("engine record: unsupported version %d", rec.Version)
	}
	*c = EngineConfig{
		Seed:                rec.Seed,
		Threads:             rec.Threads,
		ContextSize:         rec.ContextSize,
		LastNSize:           rec.LastNSize,
		BatchSize:           rec.BatchSize,
		TokensToKeep:        rec.TokensToKeep,
		LoadParallelBlocks:  rec.LoadParallelBlocks,
		AllocateExtraMemory: rec.AllocateExtraMemory,
		UseMmap:             rec.Flags&flagMmap != 0,
		UseMlock:            rec.Flags&flagMlock != 0,
		LoadParallel:        rec.Flags&flagLoadParallel != 0,
		Embeddings:          rec.Flags&flagEmbeddings != 0,
		LogitsAll:           rec.Flags&flagLogitsAll != 0,
	}
	return nil
}
