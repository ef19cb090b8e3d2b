package replacement_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/compcache/mem/cache/internal/replacement"
)

var _ = Describe("LRU", func() {
	var lru *replacement.LRU

	BeforeEach(func() {
		lru = replacement.NewLRU(4, 4)
	})

	It("should start empty", func() {
		Expect(lru.Len(0)).To(Equal(0))
		Expect(lru.Order(0)).To(BeEmpty())
		Expect(lru.Contains(0, 0)).To(BeFalse())
	})

	It("should panic when asking for a victim of an empty set", func() {
		Expect(func() { lru.Victim(1) }).To(Panic())
	})

	It("should order ways by first touch", func() {
		lru.Touch(1, 2)
		lru.Touch(1, 0)
		lru.Touch(1, 3)

		Expect(lru.Order(1)).To(Equal([]int{2, 0, 3}))
		Expect(lru.Victim(1)).To(Equal(2))
		Expect(lru.Len(1)).To(Equal(3))
	})

	It("should move a touched way to the most recent position", func() {
		for way := 0; way < 4; way++ {
			lru.Touch(0, way)
		}

		lru.Touch(0, 1)

		Expect(lru.Order(0)).To(Equal([]int{0, 2, 3, 1}))
		Expect(lru.Victim(0)).To(Equal(0))
		Expect(lru.Len(0)).To(Equal(4))
	})

	It("should keep sets independent", func() {
		lru.Touch(0, 1)
		lru.Touch(2, 3)
		lru.Touch(0, 2)

		Expect(lru.Order(0)).To(Equal([]int{1, 2}))
		Expect(lru.Order(2)).To(Equal([]int{3}))
		Expect(lru.Len(1)).To(Equal(0))
	})

	It("should remove evicted ways", func() {
		lru.Touch(3, 0)
		lru.Touch(3, 1)
		lru.Remove(3, 0)

		Expect(lru.Contains(3, 0)).To(BeFalse())
		Expect(lru.Victim(3)).To(Equal(1))

		lru.Touch(3, 0)
		Expect(lru.Order(3)).To(Equal([]int{1, 0}))
	})

	It("should panic when removing an untracked way", func() {
		Expect(func() { lru.Remove(0, 0) }).To(Panic())
	})

	It("should panic on out of range ways", func() {
		Expect(func() { lru.Touch(4, 0) }).To(Panic())
		Expect(func() { lru.Touch(0, 4) }).To(Panic())
		Expect(func() { lru.Victim(-1) }).To(Panic())
	})

	It("should forget everything on reset", func() {
		lru.Touch(0, 0)
		lru.Reset()

		Expect(lru.Len(0)).To(Equal(0))
	})

	It("should always pick the least recently touched way", func() {
		rng := rand.New(rand.NewSource(7))
		lastTouch := map[int]int{}

		for step := 0; step < 2000; step++ {
			way := rng.Intn(4)
			lru.Touch(2, way)
			lastTouch[way] = step

			oldest, oldestStep := -1, step+1
			for w, s := range lastTouch {
				if s < oldestStep {
					oldest, oldestStep = w, s
				}
			}

			Expect(lru.Victim(2)).To(Equal(oldest))
		}
	})
})
