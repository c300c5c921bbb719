package streamer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	eventLabel = "event"
)

var (
	streamedSectors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navgrid_streamer_sectors_total",
		Help: "The total number of sectors decoded, inserted, removed or failed by the streamer.",
	}, []string{eventLabel})

	pendingSectors = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "navgrid_streamer_pending_sectors",
		Help: "The number of decoded sectors waiting to be inserted.",
	})
)

func instrumentSector(event string) {
	streamedSectors.
		With(prometheus.Labels{eventLabel: event}).
		Inc()
}

func instrumentPending(n int) {
	pendingSectors.Set(float64(n))
}
