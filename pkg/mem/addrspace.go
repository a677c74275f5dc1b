package mem

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// PageSize is the size of a single memory page in bytes.
const PageSize = 4096

// Memory allocation errors.
var (
	ErrOutOfMemory = errors.New("out of memory")
	ErrBadAddress  = errors.New("address is not page aligned")
)

// Allocator hands out address spaces against a fixed page quota. It stands in
// for the physical frame allocator: every mapped page is charged against the
// quota and returned when the owning space is released.
type Allocator struct {
	mu    sync.Mutex
	quota int
	used  int
}

// NewAllocator creates an allocator with the given page quota.
func NewAllocator(quotaPages int) *Allocator {
	return &Allocator{quota: quotaPages}
}

// UsedPages returns the number of pages currently charged.
func (a *Allocator) UsedPages() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used
}

// QuotaPages returns the total page quota.
func (a *Allocator) QuotaPages() int {
	return a.quota
}

func (a *Allocator) reserve(n int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.used+n > a.quota {
		return ErrOutOfMemory
	}
	a.used += n
	return nil
}

func (a *Allocator) release(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.used -= n
	if a.used < 0 {
		panic("mem: released more pages than reserved")
	}
}

// AddressSpace is a task's memory context: a set of pages keyed by virtual
// address plus the program entry point. A space is exclusively owned by one
// task except during fork, where the parent's space is read while the child's
// copy is built.
type AddressSpace struct {
	// ID uniquely identifies the space across its lifetime.
	ID string
	// Entry is the program entry point.
	Entry uint64

	alloc    *Allocator
	pages    map[uint64][]byte
	released bool
}

// NewSpace creates an empty address space with the given entry point.
func (a *Allocator) NewSpace(entry uint64) (*AddressSpace, error) {
	return &AddressSpace{
		ID:    uuid.New().String(),
		Entry: entry,
		alloc: a,
		pages: make(map[uint64][]byte),
	}, nil
}

// NewSpaceFromPages creates a space populated with the given page images,
// mapped contiguously from address zero. Used when loading a binary image.
func (a *Allocator) NewSpaceFromPages(entry uint64, pages [][]byte) (*AddressSpace, error) {
	s, err := a.NewSpace(entry)
	if err != nil {
		return nil, err
	}
	for i, page := range pages {
		if err := s.MapPage(uint64(i)*PageSize, page); err != nil {
			s.Release()
			return nil, err
		}
	}
	return s, nil
}

// MapPage charges one page against the quota and maps a copy of data at addr.
// The address must be page aligned; data longer than a page is truncated.
func (s *AddressSpace) MapPage(addr uint64, data []byte) error {
	if addr%PageSize != 0 {
		return ErrBadAddress
	}
	if _, mapped := s.pages[addr]; !mapped {
		if err := s.alloc.reserve(1); err != nil {
			return err
		}
	}
	page := make([]byte, PageSize)
	copy(page, data)
	s.pages[addr] = page
	return nil
}

// ReadPage returns the page mapped at addr, or false if none is mapped.
func (s *AddressSpace) ReadPage(addr uint64) ([]byte, bool) {
	page, ok := s.pages[addr]
	return page, ok
}

// PageCount returns the number of mapped pages.
func (s *AddressSpace) PageCount() int {
	return len(s.pages)
}

// Duplicate builds a full page-level copy of the space, charged against the
// same allocator. There is no copy-on-write; parent and child are independent
// from the moment the copy exists.
func (s *AddressSpace) Duplicate() (*AddressSpace, error) {
	if err := s.alloc.reserve(len(s.pages)); err != nil {
		return nil, err
	}
	dup := &AddressSpace{
		ID:    uuid.New().String(),
		Entry: s.Entry,
		alloc: s.alloc,
		pages: make(map[uint64][]byte, len(s.pages)),
	}
	for addr, page := range s.pages {
		p := make([]byte, PageSize)
		copy(p, page)
		dup.pages[addr] = p
	}
	return dup, nil
}

// Release returns all pages to the allocator. Releasing twice is a no-op so
// that exit and reap paths do not have to coordinate.
func (s *AddressSpace) Release() {
	if s.released {
		return
	}
	s.released = true
	s.alloc.release(len(s.pages))
	s.pages = nil
}

// Released reports whether the space has been released.
func (s *AddressSpace) Released() bool {
	return s.released
}
