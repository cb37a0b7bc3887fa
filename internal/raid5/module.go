package raid5

import "fmt"

// Module descriptor constants, grounded on g_raid5_module: level identity
// and the base device count bounds this RAID level tolerates.
const (
	Level                = "raid5"
	BaseBdevsMin         = 3
	BaseBdevsMaxDegraded = 1
)

// Config describes the parameters needed to bring up a RAID5 array.
type Config struct {
	NumMembers int
	StripSize  int
	BlockLen   int

	// MinMemberBlockCount is the block count of the smallest member,
	// which determines TotalStripes / LogicalBlockCount.
	MinMemberBlockCount int

	// StripeCacheCapacity is spec's MAX_STRIPES.
	StripeCacheCapacity int

	// NumChannels is how many independent channels (goroutine-owned
	// request pools) this array serves I/O through.
	NumChannels int

	// BufAlign is the DMA alignment requested for scratch buffers.
	BufAlign int
}

// Array is the assembled, running module (spec §6): geometry, dispatcher,
// and the channel pool, plus the lifecycle hooks. Grounded on struct
// raid5_info together with raid5_start/raid5_stop.
type Array struct {
	cfg        Config
	geometry   *Geometry
	base       BaseDevice
	dispatcher *Dispatcher
	channels   []*Channel
}

// Start validates cfg, builds the geometry, stripe cache, and channel
// pool, and returns a running Array. Grounded on raid5_start: validates
// base bdev count/size, computes strip_size_shift/blocklen_shift,
// allocates the stripe cache and per-channel resources.
func Start(cfg Config, base BaseDevice) (*Array, error) {
	if cfg.NumMembers < BaseBdevsMin {
		return nil, fmt.Errorf("raid5: array requires at least %d members, got %d", BaseBdevsMin, cfg.NumMembers)
	}
	if cfg.NumChannels < 1 {
		cfg.NumChannels = 1
	}
	if cfg.StripeCacheCapacity < cfg.NumChannels {
		cfg.StripeCacheCapacity = cfg.NumChannels * 32
	}

	geometry, err := NewGeometry(cfg.NumMembers, cfg.StripSize, cfg.BlockLen)
	if err != nil {
		return nil, err
	}

	dispatcher := NewDispatcher(geometry, base, cfg.StripeCacheCapacity, cfg.BufAlign)

	perChannelPool := (cfg.StripeCacheCapacity * 4) / cfg.NumChannels
	if perChannelPool < 4 {
		perChannelPool = 4
	}
	channels := make([]*Channel, cfg.NumChannels)
	for i := range channels {
		channels[i] = NewChannel(perChannelPool, cfg.NumMembers)
	}

	return &Array{
		cfg:        cfg,
		geometry:   geometry,
		base:       base,
		dispatcher: dispatcher,
		channels:   channels,
	}, nil
}

// Stop tears down every channel's run loop. Grounded on raid5_stop /
// raid5_free.
func (a *Array) Stop() {
	for _, ch := range a.channels {
		ch.Close()
	}
}

// Geometry exposes the array's logical layout.
func (a *Array) Geometry() *Geometry {
	return a.geometry
}

// LogicalBlockCount returns the array's exposed block count.
func (a *Array) LogicalBlockCount() int {
	return a.geometry.LogicalBlockCount(a.cfg.MinMemberBlockCount)
}

// Channel returns the i'th channel (0-indexed, wrapping), the unit callers
// submit I/O against. Grounded on spdk_get_io_channel returning one
// channel per submitting thread.
func (a *Array) Channel(i int) *Channel {
	return a.channels[i%len(a.channels)]
}

// SubmitRW submits io against channel i. A thin, friendlier wrapper over
// Dispatcher.SubmitRW for callers that only track a channel index.
func (a *Array) SubmitRW(channelIndex int, io *RaidIO) {
	a.dispatcher.SubmitRW(a.Channel(channelIndex), io)
}
