// Package basedevsim provides an in-memory implementation of
// raid5.BaseDevice, used by the CLI's simulation/benchmark commands and by
// the raid5 package's tests in place of real block devices. Grounded on
// the teacher's internal/raid.Disk (a member holding its data as [][]byte)
// but reworked for the asynchronous, callback-completing contract raid5
// requires: every read/write is handed to a worker goroutine and
// completes later, and a member can be marked degraded or made to return
// NOMEM on demand.
package basedevsim

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Anthya1104/raid-simulator/internal/raid5"
)

// member is one simulated base device: a flat byte buffer and a degraded
// flag. Guarded by MemDisk's mutex, not its own.
type member struct {
	data     []byte
	degraded bool
}

// MemDisk is a set of in-memory member devices addressed by index,
// satisfying raid5.BaseDevice.
type MemDisk struct {
	blockLen int
	mu       sync.RWMutex
	members  []*member

	waitMu  sync.Mutex
	waiters map[int][]func()

	// Inject, if non-nil, is consulted before every read/write and may
	// return an error (typically raid5.ErrNoMem) to simulate
	// backpressure or a contract-breaching failure without touching the
	// data. Tests use it to simulate NOMEM and to count submissions.
	Inject func(memberIndex int, isWrite bool) error

	log *logrus.Entry
}

// New allocates numMembers members, each blocksPerMember*blockLen bytes.
func New(numMembers, blocksPerMember, blockLen int) *MemDisk {
	d := &MemDisk{
		blockLen: blockLen,
		members:  make([]*member, numMembers),
		waiters:  make(map[int][]func()),
		log:      logrus.WithField("component", "basedevsim"),
	}
	for i := range d.members {
		d.members[i] = &member{data: make([]byte, blocksPerMember*blockLen)}
	}
	return d
}

// SetDegraded marks member idx as unavailable (or restores it).
func (d *MemDisk) SetDegraded(idx int, degraded bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.members[idx].degraded = degraded
	d.log.WithFields(logrus.Fields{"member": idx, "degraded": degraded}).Info("member availability changed")
}

// IsDegraded implements raid5.BaseDevice.
func (d *MemDisk) IsDegraded(idx int) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.members[idx].degraded
}

// ReadvBlocks implements raid5.BaseDevice.
func (d *MemDisk) ReadvBlocks(ctx context.Context, memberIndex int, iovs []raid5.IOVec, offsetBlocks uint64, numBlocks int, cb func(err error)) error {
	if err := d.inject(memberIndex, false); err != nil {
		return err
	}
	d.log.WithFields(logrus.Fields{"member": memberIndex, "offset": offsetBlocks, "blocks": numBlocks}).Debug("read submitted")
	go func() {
		d.mu.RLock()
		src := d.members[memberIndex].data
		off := int(offsetBlocks) * d.blockLen
		ln := numBlocks * d.blockLen
		var err error
		if off < 0 || off+ln > len(src) {
			err = fmt.Errorf("raid5: read out of bounds on member %d: offset %d len %d size %d", memberIndex, off, ln, len(src))
		} else {
			copyIntoIOVs(iovs, src[off:off+ln])
		}
		d.mu.RUnlock()
		cb(err)
	}()
	return nil
}

// WritevBlocks implements raid5.BaseDevice.
func (d *MemDisk) WritevBlocks(ctx context.Context, memberIndex int, iovs []raid5.IOVec, offsetBlocks uint64, numBlocks int, cb func(err error)) error {
	if err := d.inject(memberIndex, true); err != nil {
		return err
	}
	d.log.WithFields(logrus.Fields{"member": memberIndex, "offset": offsetBlocks, "blocks": numBlocks}).Debug("write submitted")
	go func() {
		d.mu.Lock()
		dst := d.members[memberIndex].data
		off := int(offsetBlocks) * d.blockLen
		ln := numBlocks * d.blockLen
		var err error
		if off < 0 || off+ln > len(dst) {
			err = fmt.Errorf("raid5: write out of bounds on member %d: offset %d len %d size %d", memberIndex, off, ln, len(dst))
		} else {
			copyFromIOVs(dst[off:off+ln], iovs)
		}
		d.mu.Unlock()
		cb(err)
	}()
	return nil
}

// QueueIOWait implements raid5.BaseDevice: retry is run the next time
// Unblock(memberIndex) is called.
func (d *MemDisk) QueueIOWait(memberIndex int, retry func()) {
	d.waitMu.Lock()
	defer d.waitMu.Unlock()
	d.waiters[memberIndex] = append(d.waiters[memberIndex], retry)
}

// Unblock runs every submission parked on memberIndex's wait queue. Tests
// call this after simulating a transient NOMEM condition to exercise the
// retry path.
func (d *MemDisk) Unblock(memberIndex int) {
	d.waitMu.Lock()
	pending := d.waiters[memberIndex]
	d.waiters[memberIndex] = nil
	d.waitMu.Unlock()
	for _, retry := range pending {
		retry()
	}
}

func (d *MemDisk) inject(memberIndex int, isWrite bool) error {
	if d.Inject == nil {
		return nil
	}
	return d.Inject(memberIndex, isWrite)
}

func copyIntoIOVs(iovs []raid5.IOVec, src []byte) {
	off := 0
	for _, v := range iovs {
		n := copy(v, src[off:])
		off += n
	}
}

func copyFromIOVs(dst []byte, iovs []raid5.IOVec) {
	off := 0
	for _, v := range iovs {
		n := copy(dst[off:], v)
		off += n
	}
}
