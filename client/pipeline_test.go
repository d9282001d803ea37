package client

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

var _ = Describe("pipeline", func() {
	var (
		mu      sync.Mutex
		handled []string
		p       *pipeline
	)

	record := func(raw string) {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, raw)
	}

	seen := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), handled...)
	}

	BeforeEach(func() {
		handled = nil
	})

	AfterEach(func() {
		p.stop()
	})

	It("handles messages in the order they were put", func() {
		p = newPipeline("test", record, zap.NewNop())
		p.start()

		for _, raw := range []string{"1", "2", "3", "4"} {
			Expect(p.put(raw)).To(BeTrue())
		}

		Eventually(seen).Should(Equal([]string{"1", "2", "3", "4"}))
		Expect(p.depth()).To(BeZero())
	})

	It("survives a panicking handler", func() {
		p = newPipeline("test", func(raw string) {
			if raw == "bad" {
				panic("bad message")
			}
			record(raw)
		}, zap.NewNop())
		p.start()

		p.put("bad")
		p.put("good")

		Eventually(seen).Should(Equal([]string{"good"}))
	})

	It("discards what is queued", func() {
		block := make(chan struct{})
		p = newPipeline("test", func(raw string) {
			<-block
			record(raw)
		}, zap.NewNop())
		p.start()

		p.put("in hand")
		Eventually(p.depth).Should(BeZero())

		p.put("queued 1")
		p.put("queued 2")
		Expect(p.discard()).To(Equal(2))

		close(block)
		Eventually(seen).Should(Equal([]string{"in hand"}))
		Consistently(seen, 50*time.Millisecond).Should(HaveLen(1))
	})

	It("drops messages put after stop", func() {
		p = newPipeline("test", record, zap.NewNop())
		p.start()
		p.stop()

		Expect(p.put("late")).To(BeFalse())
		Expect(p.isRunning()).To(BeFalse())
	})

	It("can be stopped without being started", func() {
		p = newPipeline("test", record, zap.NewNop())
		p.put("never handled")

		p.stop()
		Expect(p.depth()).To(BeZero())
	})
})
