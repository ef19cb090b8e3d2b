package cmd

import (
	"bytes"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/compcache/mem/cache"
	"github.com/sarchlab/compcache/mem/mem"
)

var _ = Describe("Snapshot dumps", func() {
	var snapshot cache.Snapshot

	BeforeEach(func() {
		storage := mem.NewStorage(64)
		mem.Fill(storage, mem.SequenceFiller(3, -4, 700))

		c := cache.MakeBuilder().
			WithNumSets(2).
			WithNumWays(2).
			WithBackend(storage).
			Build("Cache")

		for addr := uint64(0); addr < 8; addr++ {
			c.Access(cache.Request{Op: cache.OpRead, Address: addr * 4})
		}

		c.Access(cache.Request{Op: cache.OpWrite, Address: 4, Data: 9})

		snapshot = c.Snapshot()
		Expect(snapshot.Lines).To(HaveLen(4))
	})

	It("should write JSON", func() {
		buf := &bytes.Buffer{}
		Expect(EncodeSnapshot(buf, DumpJSON, snapshot)).To(Succeed())
		Expect(json.Valid(buf.Bytes())).To(BeTrue())
	})

	DescribeTable("should read back binary dumps",
		func(format string) {
			buf := &bytes.Buffer{}
			Expect(EncodeSnapshot(buf, format, snapshot)).To(Succeed())

			decoded, err := DecodeSnapshot(buf, format)
			Expect(err).NotTo(HaveOccurred())
			Expect(decoded).To(Equal(snapshot))
		},
		Entry("cbor", DumpCBOR),
		Entry("msgpack", DumpMsgpack),
	)

	It("should encode CBOR deterministically", func() {
		a, b := &bytes.Buffer{}, &bytes.Buffer{}
		Expect(EncodeSnapshot(a, DumpCBOR, snapshot)).To(Succeed())
		Expect(EncodeSnapshot(b, DumpCBOR, snapshot)).To(Succeed())
		Expect(a.Bytes()).To(Equal(b.Bytes()))
	})

	It("should refuse unknown formats", func() {
		Expect(EncodeSnapshot(&bytes.Buffer{}, "xml", snapshot)).NotTo(Succeed())

		_, err := DecodeSnapshot(&bytes.Buffer{}, DumpJSON)
		Expect(err).To(HaveOccurred())
	})
})
