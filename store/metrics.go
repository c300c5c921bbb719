package store

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	operationLabel = "operation"
	errTypeLabel   = "err_type"
)

var storeOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "navgrid_store_operations_total",
	Help: "The total number of sector store operations.",
}, []string{operationLabel, errTypeLabel})

func instrumentOperation(operation string, err error) {
	errType := ""
	if err != nil {
		errType = errors.Type(err)
		if errType == "" {
			errType = "internal"
		}
	}

	storeOperations.
		With(prometheus.Labels{
			operationLabel: operation,
			errTypeLabel:   errType,
		}).
		Inc()
}
