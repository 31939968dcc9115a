// Package metrics holds the Prometheus collectors of the file service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultOK     = "ok"
	ResultDenied = "denied"
	ResultError  = "error"
)

var (
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filevault_uploads_total",
		Help: "Uploads and version uploads by result",
	}, []string{"result"})

	DownloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filevault_downloads_total",
		Help: "Downloads, including share-link opens, by result",
	}, []string{"result"})

	BytesUploadedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filevault_bytes_uploaded_total",
		Help: "Plaintext bytes accepted by uploads",
	})

	QuotaDenialsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filevault_quota_denials_total",
		Help: "Writes rejected by the quota ledger",
	})

	ShareLinksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filevault_share_links_total",
		Help: "Share-link creations and validations by result",
	}, []string{"result"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
