package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/luma/amictl/client"
	"github.com/luma/amictl/storage"
)

type fixedState client.State

func (f fixedState) State() client.State {
	return client.State(f)
}

var _ = Describe("monitor routes", func() {
	var (
		store    *storage.InmemoryStore
		registry *prometheus.Registry
		handler  http.Handler
	)

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	BeforeEach(func() {
		store = storage.NewInmemoryStore()

		registry = prometheus.NewRegistry()
		metrics := client.NewMetrics()
		Expect(metrics.Register(registry)).To(Succeed())
		metrics.UnresolvedResponses.Inc()

		router := setupRouter(false, zap.NewNop())
		registerMonitorRoutes(router, store, fixedState(client.Authenticated), registry)
		handler = router
	})

	AfterEach(func() {
		store.Close()
	})

	It("answers pings", func() {
		w := get("/ping")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(Equal("pong"))
	})

	It("reports the connection state", func() {
		w := get("/state")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"connection":"Authenticated"}`))
	})

	It("serves an empty channel list before any events", func() {
		w := get("/channels")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{}`))
	})

	It("serves channels whose names contain slashes", func() {
		ctx := context.Background()
		Expect(store.Set(ctx, storage.ChannelKey("PJSIP/alice-00000001", "state"), "6")).To(Succeed())

		w := get("/channels")
		Expect(w.Body.String()).To(MatchJSON(`{"PJSIP/alice-00000001":{"state":"6"}}`))

		w = get("/channel/PJSIP/alice-00000001")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"state":"6"}`))

		Expect(get("/channel/PJSIP/bob-00000002").Code).To(Equal(http.StatusNotFound))
	})

	It("serves the whole store", func() {
		Expect(store.Set(context.Background(), storage.Path("manager", "version"), "Asterisk Call Manager/5.0.1")).To(Succeed())

		w := get("/store")
		Expect(w.Body.String()).To(MatchJSON(`{"manager":{"version":"Asterisk Call Manager/5.0.1"}}`))
	})

	It("exposes client metrics", func() {
		w := get("/metrics")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring("amictl_client_unresolved_responses_total 1"))
	})
})
