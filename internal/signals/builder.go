package signals

// Builder constructs a Registry fluently, mirroring the reference
// implementation's SignalRegistryBuilder: add signals and TCP-channel
// mappings incrementally, then Build.
type Builder struct {
	reg *Registry
}

func NewBuilder() *Builder {
	return &Builder{reg: NewRegistry()}
}

// AddSignal registers name at nanonisIndex with no TCP mapping yet.
func (b *Builder) AddSignal(name string, nanonisIndex int32) *Builder {
	b.reg.add(Signal{Name: name, NanonisIndex: nanonisIndex, TCPConfidence: Missing})
	return b
}

// FromSignalNames seeds the registry from an ordered name list, as
// returned by Signals.NamesGet, indexing them 0..len(names)-1.
func (b *Builder) FromSignalNames(names []string) *Builder {
	for i, n := range names {
		if n == "" {
			continue
		}
		b.AddSignal(n, int32(i))
	}
	return b
}

// AddTCPMapping attaches a TCP logger channel to an already-registered
// Nanonis index, with an explicit confidence tag.
func (b *Builder) AddTCPMapping(nanonisIndex, tcpChannel int32, confidence Confidence) *Builder {
	s, ok := b.reg.byIndex[nanonisIndex]
	if !ok {
		return b
	}
	ch := tcpChannel
	s.TCPChannel = &ch
	s.TCPConfidence = confidence
	b.reg.add(s)
	return b
}

// AddTCPMap applies a batch of Nanonis-index -> TCP-channel pairs at
// the given confidence.
func (b *Builder) AddTCPMap(mapping map[int32]int32, confidence Confidence) *Builder {
	for idx, ch := range mapping {
		b.AddTCPMapping(idx, ch, confidence)
	}
	return b
}

// WithStandardMap applies the controller's hardcoded logger-slot
// layout: Nanonis indices 0-7 map to TCP channels 0-7, 24-31 to 8-15,
// and 74-81 to 16-23 — the same three contiguous bands the reference
// client's with_standard_map seeds, each tagged Assumed since the
// controller itself never confirms the mapping.
func (b *Builder) WithStandardMap() *Builder {
	add := func(nanonisStart, tcpStart, count int32) {
		for i := int32(0); i < count; i++ {
			b.AddTCPMapping(nanonisStart+i, tcpStart+i, Assumed)
		}
	}
	add(0, 0, 8)
	add(24, 8, 8)
	add(74, 16, 8)
	return b
}

// CreateAliases is a no-op placeholder kept for symmetry with the
// reference builder's step of the same name: aliasing in this port is
// generated on demand by FindLike rather than materialized up front.
func (b *Builder) CreateAliases() *Builder { return b }

func (b *Builder) Build() *Registry { return b.reg }
