package bptree

// Backend selects the byte-stream implementation OpenFile constructs over
// a file path; Open itself takes an already-opened stream.Stream.
type Backend int

const (
	BackendFile Backend = iota
	BackendMMap
	BackendMemory
)

// Options configures a tree at Open time. The zero value is not valid;
// start from DefaultOptions.
type Options struct {
	// SlotCount is the per-node key-slot capacity (S in the design).
	// Fixed for the lifetime of a file: the file format does not record
	// S, so Open uses this value on reopen too, and it must equal the
	// value the file was created with.
	SlotCount int `json:"slot_count"`
	// CacheSize bounds how many nodes may be resident at once.
	CacheSize int `json:"cache_size"`
	// Compact selects the on-disk layout for a freshly initialized
	// file: when true, records omit unused-slot padding. Ignored when
	// reopening an existing file, whose own header flag wins.
	Compact bool `json:"compact"`
	// Backend selects which stream.Stream implementation OpenFile
	// constructs.
	Backend Backend `json:"backend"`
}

// DefaultOptions is a reasonable starting configuration: slot count 63,
// a cache of 1024 resident nodes, non-compact layout, file backend.
var DefaultOptions = Options{
	SlotCount: 63,
	CacheSize: 1024,
	Compact:   false,
	Backend:   BackendFile,
}
