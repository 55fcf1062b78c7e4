package client

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"

	"github.com/Zereker/apix"
)

// Counters are registered in the default VictoriaMetrics set and shared by
// every Client in the process.
var (
	framesTotal    = metrics.GetOrCreateCounter(`apix_client_frames_total`)
	fragmentsTotal = metrics.GetOrCreateCounter(`apix_client_fragments_total`)
	textsTotal     = metrics.GetOrCreateCounter(`apix_client_texts_total`)
	bytesTotal     = metrics.GetOrCreateCounter(`apix_client_received_bytes_total`)
	syncsTotal     = metrics.GetOrCreateCounter(`apix_client_syncs_total`)
)

func eventCounter(ev apix.EventKind) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`apix_client_events_total{event=%q}`, ev.String()))
}
