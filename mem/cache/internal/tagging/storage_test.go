package tagging_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/compcache/mem/cache/internal/codec"
	"github.com/sarchlab/compcache/mem/cache/internal/tagging"
	"github.com/sarchlab/compcache/mem/mem"
)

var _ = Describe("Storage", func() {
	var (
		storage *tagging.Storage
		h       tagging.Handle
	)

	BeforeEach(func() {
		storage = tagging.NewStorage(16, 4, 2, codec.New(8))
		h = tagging.Handle{SetID: 3, WayID: 1}
	})

	It("should refuse odd line sizes", func() {
		Expect(func() { tagging.NewStorage(16, 4, 3, codec.New(8)) }).To(Panic())
		Expect(func() { tagging.NewStorage(0, 4, 2, codec.New(8)) }).To(Panic())
	})

	It("should report its size", func() {
		Expect(storage.TotalSlots()).To(Equal(128))
		Expect(storage.UsedSlots()).To(Equal(0))
	})

	It("should not find anything in an empty storage", func() {
		_, ok := storage.Lookup(3, 0x10)
		Expect(ok).To(BeFalse())

		empty, ok := storage.FindEmpty(3)
		Expect(ok).To(BeTrue())
		Expect(empty).To(Equal(tagging.Handle{SetID: 3, WayID: 0}))
	})

	It("should find allocated lines", func() {
		storage.Allocate(h, 0x10)

		found, ok := storage.Lookup(3, 0x10)
		Expect(ok).To(BeTrue())
		Expect(found).To(Equal(h))

		_, ok = storage.Lookup(4, 0x10)
		Expect(ok).To(BeFalse())

		info := storage.Line(h)
		Expect(info.IsValid).To(BeTrue())
		Expect(info.IsDirty).To(BeFalse())
		Expect(info.Tag).To(Equal(uint64(0x10)))
	})

	It("should report no empty line in a full set", func() {
		for way := 0; way < 4; way++ {
			storage.Allocate(tagging.Handle{SetID: 3, WayID: way}, uint64(way))
		}

		_, ok := storage.FindEmpty(3)
		Expect(ok).To(BeFalse())
	})

	It("should panic on tag collisions", func() {
		storage.Allocate(h, 0x10)

		Expect(func() {
			storage.Allocate(tagging.Handle{SetID: 3, WayID: 2}, 0x10)
		}).To(Panic())
		Expect(func() { storage.Allocate(h, 0x11) }).To(Panic())
	})

	It("should compact narrow fills", func() {
		storage.Allocate(h, 0x10)
		storage.Fill(h, []mem.Word{3, 16})

		info := storage.Line(h)
		Expect(info.Compacted).To(Equal([]bool{true, true}))
		Expect(info.Footprint).To(Equal(1))
		Expect(storage.ReadSub(h, 0)).To(Equal(mem.Word(3)))
		Expect(storage.ReadSub(h, 1)).To(Equal(mem.Word(16)))
	})

	It("should store wide fills at full width", func() {
		storage.Allocate(h, 0x10)
		storage.Fill(h, []mem.Word{3, -10000})

		info := storage.Line(h)
		Expect(info.Compacted).To(Equal([]bool{false, false}))
		Expect(info.Footprint).To(Equal(2))
		Expect(storage.Words(h)).To(Equal([]mem.Word{3, -10000}))
	})

	It("should clear only the written word's flag", func() {
		storage.Allocate(h, 0x10)
		storage.Fill(h, []mem.Word{3, 16})
		storage.WriteSub(h, 1, 5000)

		info := storage.Line(h)
		Expect(info.Compacted).To(Equal([]bool{true, false}))
		Expect(storage.ReadSub(h, 0)).To(Equal(mem.Word(3)))
		Expect(storage.ReadSub(h, 1)).To(Equal(mem.Word(5000)))
	})

	It("should not mark lines dirty on writes by itself", func() {
		storage.Allocate(h, 0x10)
		storage.WriteSub(h, 0, 1)
		Expect(storage.Line(h).IsDirty).To(BeFalse())

		storage.MarkDirty(h)
		Expect(storage.Line(h).IsDirty).To(BeTrue())

		storage.MarkClean(h)
		Expect(storage.Line(h).IsDirty).To(BeFalse())
		Expect(storage.Line(h).IsValid).To(BeTrue())
	})

	It("should reconstruct every word on eviction", func() {
		storage.Allocate(h, 0x10)
		storage.Fill(h, []mem.Word{3, 16})
		storage.WriteSub(h, 0, -7000)
		storage.MarkDirty(h)

		e := storage.Evict(h)

		Expect(e.Dirty).To(BeTrue())
		Expect(e.Tag).To(Equal(uint64(0x10)))
		Expect(e.Words).To(Equal([]mem.Word{-7000, 16}))
		Expect(storage.Line(h).IsValid).To(BeFalse())

		_, ok := storage.Lookup(3, 0x10)
		Expect(ok).To(BeFalse())
	})

	It("should reconstruct longer lines", func() {
		wide := tagging.NewStorage(4, 2, 8, codec.New(8))
		line := tagging.Handle{SetID: 1, WayID: 0}
		words := []mem.Word{1, 2, 300, 4, -5, 6000, 7, 8}

		wide.Allocate(line, 9)
		wide.Fill(line, words)

		Expect(wide.Line(line).Compacted).To(Equal(
			[]bool{true, true, false, false, false, false, true, true}))
		Expect(wide.Line(line).Footprint).To(Equal(6))
		Expect(wide.Evict(line).Words).To(Equal(words))
	})

	It("should panic when touching invalid lines", func() {
		Expect(func() { storage.ReadSub(h, 0) }).To(Panic())
		Expect(func() { storage.WriteSub(h, 0, 1) }).To(Panic())
		Expect(func() { storage.Evict(h) }).To(Panic())
	})

	It("should panic on bad offsets and fills", func() {
		storage.Allocate(h, 0x10)

		Expect(func() { storage.ReadSub(h, 2) }).To(Panic())
		Expect(func() { storage.Fill(h, []mem.Word{1}) }).To(Panic())
		Expect(func() { storage.Line(tagging.Handle{SetID: 16}) }).To(Panic())
	})

	It("should compute the compression ratio over valid lines", func() {
		Expect(storage.CompressionRatio()).To(Equal(0.0))

		for way := 0; way < 4; way++ {
			line := tagging.Handle{SetID: 0, WayID: way}
			storage.Allocate(line, uint64(way))
			storage.Fill(line, []mem.Word{1, 2})
		}

		storage.WriteSub(tagging.Handle{SetID: 0, WayID: 2}, 0, 5000)

		Expect(storage.CompressionRatio()).To(Equal(0.75))
		Expect(storage.UsedSlots()).To(Equal(5))
	})

	It("should visit valid lines in order", func() {
		storage.Allocate(tagging.Handle{SetID: 5, WayID: 2}, 1)
		storage.Allocate(tagging.Handle{SetID: 2, WayID: 3}, 2)

		visited := []tagging.Handle{}
		storage.Visit(func(h tagging.Handle, _ tagging.LineInfo) {
			visited = append(visited, h)
		})

		Expect(visited).To(Equal([]tagging.Handle{
			{SetID: 2, WayID: 3},
			{SetID: 5, WayID: 2},
		}))
	})
})
