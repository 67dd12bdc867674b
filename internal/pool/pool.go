// Package pool implements the fixed-block arena allocator used to back event
// pools. It is a Go rendering of QP/C++'s QMPool (source/qf_mem.cpp):
// QMPool::init lays out nBlocks free blocks of blockSize and threads them
// into a singly-linked free list by writing a "next" pointer into the first
// word of every free block; get()/put() push and pop that list under a
// single mutex (the original runs with interrupts disabled instead).
//
// Go has no safe way to overlay a pointer inside an arbitrary []byte the
// way the C++ does, and a pointer-linked free list is also awkward to
// inspect or audit. Instead the free list here is an index-linked array
// (next[i] holds the index of the next free block, or -1): this is the same
// "thread the free blocks together" idea but expressed with slice indices,
// which also makes the pool auditable (Total/Free/MinFree) without unsafe.
package pool

import "sync"

// NoBlock is returned by Get when the pool has no block to hand out.
const NoBlock = -1

// Pool is a fixed-block-size arena. All blocks are the same size; a
// framework normally keeps several Pools of increasing block size (see
// constants.MaxPoolsCap) and picks the smallest pool whose block size fits
// the event being allocated.
type Pool struct {
	mu        sync.Mutex
	blockSize uint32
	blocks    [][]byte
	next      []int32 // next[i]: index of next free block, or -1
	freeHead  int32
	nFree     uint32
	nMin      uint32 // low-water mark, mirrors QF::getPoolMin()
	nTotal    uint32
}

// New creates a pool of nBlocks blocks, each blockSize bytes.
func New(nBlocks int, blockSize uint32) *Pool {
	p := &Pool{
		blockSize: blockSize,
		blocks:    make([][]byte, nBlocks),
		next:      make([]int32, nBlocks),
		nFree:     uint32(nBlocks),
		nMin:      uint32(nBlocks),
		nTotal:    uint32(nBlocks),
	}
	for i := 0; i < nBlocks; i++ {
		p.blocks[i] = make([]byte, blockSize)
		if i == nBlocks-1 {
			p.next[i] = NoBlock
		} else {
			p.next[i] = int32(i + 1)
		}
	}
	if nBlocks > 0 {
		p.freeHead = 0
	} else {
		p.freeHead = NoBlock
	}
	return p
}

// BlockSize returns the fixed size of every block in the pool.
func (p *Pool) BlockSize() uint32 {
	return p.blockSize
}

// Get removes and returns a free block's index and storage, failing the
// allocation if fewer than margin blocks would remain free afterward. A
// margin of 0 means "take the last block if that's all there is"; QF
// reserves the platform's most urgent events with a non-zero margin so that
// a buggy producer flooding the pool cannot starve them (qf_mem.cpp,
// QMPool::get).
func (p *Pool) Get(margin uint32) (idx int32, block []byte, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.nFree <= margin {
		return NoBlock, nil, false
	}
	idx = p.freeHead
	p.freeHead = p.next[idx]
	p.nFree--
	if p.nFree < p.nMin {
		p.nMin = p.nFree
	}
	return idx, p.blocks[idx], true
}

// Put returns a block to the free list by index. ok is false, and the free
// list is left untouched, if idx lies outside [0, Total()) or if every
// block is already free — either one means the caller double-freed a block
// or is returning an index this pool never handed out, and QMPool::put
// treats both as a fatal programming error (qf_mem.cpp) rather than
// something to silently tolerate. Pool has no *Context to assert through
// itself, so it reports the failure and leaves the decision to the caller.
func (p *Pool) Put(idx int32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if idx < 0 || idx >= int32(len(p.blocks)) {
		return false
	}
	if p.nFree >= p.nTotal {
		return false
	}
	p.next[idx] = p.freeHead
	p.freeHead = idx
	p.nFree++
	return true
}

// Free returns the current number of free blocks.
func (p *Pool) Free() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nFree
}

// MinFree returns the lowest number of free blocks observed since the pool
// was created, a diagnostic for sizing pools correctly (QF_getPoolMin).
func (p *Pool) MinFree() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nMin
}

// Total returns the pool's fixed capacity in blocks.
func (p *Pool) Total() uint32 {
	return p.nTotal
}
