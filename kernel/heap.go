package kernel

import (
	"encoding/binary"
	"fmt"
)

const (
	// HeaderBytes is the size of the block header that precedes every
	// allocated or free region: total size, free flag, forward link.
	HeaderBytes = 12

	// minSplit is the smallest remainder worth carving into a block of its
	// own: a header plus a few payload bytes. Anything less is handed to
	// the caller along with the block.
	minSplit = 16

	// nilBlock terminates the block chain.
	nilBlock = 0xffffffff
)

// Heap manages a fixed contiguous region of the RAM arena as a singly
// linked chain of variable-size blocks, first header at the region start.
// The chain always tiles the region exactly: every block's size equals the
// distance to the next header, and the sizes sum to the region size.
//
// All offsets are absolute arena offsets. Alloc returns payload offsets
// (header start + HeaderBytes); Free expects the same. There is no locking
// here: on a single core every caller is already in privileged context, and
// mutations are covered by the same interrupt-disable discipline the kernel
// applies to TCB updates.
type Heap struct {
	ram   []byte
	start uint32
	end   uint32
}

// Block is an observational snapshot of one chain entry.
type Block struct {
	Off  uint32 // header offset
	Size uint32 // header + payload bytes
	Free bool
}

// HeapStats is a read-only snapshot of the allocator state.
type HeapStats struct {
	TotalBytes   uint32
	UsedBytes    uint32
	FreeBytes    uint32
	LargestFree  uint32 // largest contiguous free payload-capable block, header included
	UsedBlocks   uint32
	FreeBlocks   uint32
	FragPermille uint32 // 1000 * (1 - LargestFree/FreeBytes)
}

// NewHeap initializes the region [start, end) of ram as one free block.
func NewHeap(ram []byte, start, end uint32) (*Heap, error) {
	if end > uint32(len(ram)) {
		return nil, fmt.Errorf("heap: region end %d beyond %d-byte RAM", end, len(ram))
	}
	if start+HeaderBytes+minSplit > end {
		return nil, fmt.Errorf("heap: region [%d,%d) too small", start, end)
	}
	h := &Heap{ram: ram, start: start, end: end}
	h.setSize(start, end-start)
	h.setFree(start, true)
	h.setNext(start, nilBlock)
	return h, nil
}

func (h *Heap) word(off uint32) uint32 {
	return binary.LittleEndian.Uint32(h.ram[off:])
}

func (h *Heap) setWord(off, v uint32) {
	binary.LittleEndian.PutUint32(h.ram[off:], v)
}

func (h *Heap) size(b uint32) uint32 { return h.word(b) }
func (h *Heap) setSize(b, v uint32)  { h.setWord(b, v) }
func (h *Heap) free(b uint32) bool   { return h.word(b+4) != 0 }
func (h *Heap) next(b uint32) uint32 { return h.word(b + 8) }
func (h *Heap) setNext(b, v uint32)  { h.setWord(b+8, v) }

func (h *Heap) setFree(b uint32, f bool) {
	v := uint32(0)
	if f {
		v = 1
	}
	h.setWord(b+4, v)
}

// Alloc finds the first free block that fits n payload bytes and returns the
// payload offset. It reports false when no block is large enough; the heap
// never grows.
func (h *Heap) Alloc(n uint32) (uint32, bool) {
	if n > h.end-h.start {
		return 0, false
	}
	need := n + HeaderBytes
	for b := h.start; b != nilBlock; b = h.next(b) {
		if !h.free(b) || h.size(b) < need {
			continue
		}
		left := h.size(b) - need
		if left >= minSplit {
			// Carve the remainder into a free block right after the
			// accepted payload and link it in our place.
			rest := b + need
			h.setSize(rest, left)
			h.setFree(rest, true)
			h.setNext(rest, h.next(b))
			h.setSize(b, need)
			h.setNext(b, rest)
		}
		h.setFree(b, false)
		return b + HeaderBytes, true
	}
	return 0, false
}

// Free returns the block holding the given payload offset to the chain and
// merges it with its immediate successor if that one is free too. Blocks are
// never merged backward. A zero offset is a no-op. Offsets that were not
// returned by Alloc, and double frees, corrupt the chain; there is no guard.
func (h *Heap) Free(payload uint32) {
	if payload == 0 {
		return
	}
	b := payload - HeaderBytes
	h.setFree(b, true)
	succ := h.next(b)
	if succ != nilBlock && h.free(succ) {
		h.setSize(b, h.size(b)+h.size(succ))
		h.setNext(b, h.next(succ))
	}
}

// Stats walks the chain and snapshots the allocator statistics surface.
func (h *Heap) Stats() HeapStats {
	var st HeapStats
	st.TotalBytes = h.end - h.start
	for b := h.start; b != nilBlock; b = h.next(b) {
		sz := h.size(b)
		if h.free(b) {
			st.FreeBytes += sz
			st.FreeBlocks++
			if sz > st.LargestFree {
				st.LargestFree = sz
			}
		} else {
			st.UsedBytes += sz
			st.UsedBlocks++
		}
	}
	if st.FreeBytes > 0 {
		st.FragPermille = 1000 - st.LargestFree*1000/st.FreeBytes
	}
	return st
}

// Blocks snapshots the chain in address order, for diagnostics and tests.
func (h *Heap) Blocks() []Block {
	var out []Block
	for b := h.start; b != nilBlock; b = h.next(b) {
		out = append(out, Block{Off: b, Size: h.size(b), Free: h.free(b)})
	}
	return out
}
