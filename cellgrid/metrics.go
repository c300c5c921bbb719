package cellgrid

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	kindLabel      = "kind"
	operationLabel = "operation"
)

var (
	gridSlots = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "navgrid_slots",
		Help: "The number of slots allocated by cell grids.",
	}, []string{kindLabel})

	gridActiveCells = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "navgrid_active_cells",
		Help: "The number of active cells.",
	}, []string{kindLabel})

	gridLoadedSectors = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "navgrid_loaded_sectors",
		Help: "The number of sectors inserted in cell grids.",
	}, []string{kindLabel})

	gridSectorOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navgrid_sector_operations_total",
		Help: "The total number of sector insertions and removals.",
	}, []string{kindLabel, operationLabel})

	gridStitchedVertices = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navgrid_stitched_vertices_total",
		Help: "The total number of border vertex links created by stitching.",
	}, []string{kindLabel})

	gridSearchIndexHighWater = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "navgrid_search_index_high_water",
		Help: "The highest search index high-water mark of cell grids.",
	}, []string{kindLabel})
)

func instrumentSlots(kind string, delta int) {
	gridSlots.
		With(prometheus.Labels{kindLabel: kind}).
		Add(float64(delta))
}

func instrumentActiveCells(kind string, delta int) {
	gridActiveCells.
		With(prometheus.Labels{kindLabel: kind}).
		Add(float64(delta))
}

func instrumentSectorOperation(kind, operation string, loadedDelta int) {
	gridSectorOperations.
		With(prometheus.Labels{
			kindLabel:      kind,
			operationLabel: operation,
		}).
		Inc()

	gridLoadedSectors.
		With(prometheus.Labels{kindLabel: kind}).
		Add(float64(loadedDelta))
}

func instrumentStitch(kind string, links int) {
	gridStitchedVertices.
		With(prometheus.Labels{kindLabel: kind}).
		Add(float64(links))
}

func instrumentSearchIndexHighWater(kind string, highWater uint32) {
	gridSearchIndexHighWater.
		With(prometheus.Labels{kindLabel: kind}).
		Set(float64(highWater))
}
