package codec_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/compcache/mem/cache/internal/codec"
	"github.com/sarchlab/compcache/mem/mem"
)

var boundaryWords = []mem.Word{
	0, 1, -1, 16, 127, -128, 128, -129, 255, 5000, -5000,
	10000, -10000, 32767, -32768, 32768, -32769,
	math.MaxInt32, math.MinInt32,
}

var _ = Describe("Codec", func() {
	var c codec.Codec

	BeforeEach(func() {
		c = codec.New(codec.DefaultNarrowBits)
	})

	It("should reject bit budgets that cannot hold two words", func() {
		Expect(func() { codec.New(0) }).To(Panic())
		Expect(func() { codec.New(17) }).To(Panic())
		Expect(func() { codec.New(16) }).NotTo(Panic())
	})

	It("should tell narrow words", func() {
		Expect(c.Fits(0)).To(BeTrue())
		Expect(c.Fits(16)).To(BeTrue())
		Expect(c.Fits(127)).To(BeTrue())
		Expect(c.Fits(-128)).To(BeTrue())
		Expect(c.Fits(128)).To(BeFalse())
		Expect(c.Fits(-129)).To(BeFalse())
		Expect(c.Fits(5000)).To(BeFalse())
	})

	It("should pack the low word first", func() {
		payload, ok := c.TryCompact(1, 2)

		Expect(ok).To(BeTrue())
		Expect(payload).To(Equal(codec.Payload(0x0201)))
	})

	It("should keep the sign of packed words", func() {
		payload, ok := c.TryCompact(-1, -128)
		Expect(ok).To(BeTrue())

		a, b := c.DecodePair(payload)
		Expect(a).To(Equal(mem.Word(-1)))
		Expect(b).To(Equal(mem.Word(-128)))
		Expect(c.DecodeSingle(payload, codec.FlagLow)).To(Equal(mem.Word(-1)))
		Expect(c.DecodeSingle(payload, codec.FlagHigh)).To(Equal(mem.Word(-128)))
	})

	It("should not compact if any word is wide", func() {
		_, ok := c.TryCompact(1, 5000)
		Expect(ok).To(BeFalse())

		_, ok = c.TryCompact(-5000, 1)
		Expect(ok).To(BeFalse())
	})

	DescribeTable("round trip",
		func(bits uint) {
			c := codec.New(bits)

			for _, a := range boundaryWords {
				for _, b := range boundaryWords {
					payload, ok := c.TryCompact(a, b)
					Expect(ok).To(Equal(c.Fits(a) && c.Fits(b)))

					if ok {
						da, db := c.DecodePair(payload)
						Expect(da).To(Equal(a))
						Expect(db).To(Equal(b))

						continue
					}

					Expect(c.DecodeSingle(codec.Payload(uint32(a)), codec.FlagRaw)).
						To(Equal(a))
					Expect(c.DecodeSingle(codec.Payload(uint32(b)), codec.FlagRaw)).
						To(Equal(b))
				}
			}
		},
		Entry("4-bit budget", uint(4)),
		Entry("8-bit budget", uint(8)),
		Entry("12-bit budget", uint(12)),
		Entry("16-bit budget", uint(16)),
	)

	It("should panic on corrupted packed payloads", func() {
		corrupted := codec.Payload(0x00010000)

		Expect(func() { c.DecodePair(corrupted) }).To(Panic())
		Expect(func() { c.DecodeSingle(corrupted, codec.FlagLow) }).To(Panic())
		Expect(func() { c.DecodeSingle(corrupted, codec.FlagHigh) }).To(Panic())
		Expect(func() { c.DecodeSingle(corrupted, codec.Flag(9)) }).To(Panic())
	})
})
