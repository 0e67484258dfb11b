package observability

import "github.com/prometheus/client_golang/prometheus"

// AuthMetrics mengumpulkan metrik untuk cache peran dan pemeriksaan izin.
type AuthMetrics struct {
	refreshTotal *prometheus.CounterVec
	cachedRoles  prometheus.Gauge
	checksTotal  *prometheus.CounterVec
}

// NewAuthMetrics mendaftarkan metrik otorisasi pada registerer yang diberikan.
func NewAuthMetrics(registerer prometheus.Registerer) *AuthMetrics {
	refresh := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authd_role_refresh_total",
		Help: "Jumlah pemuatan ulang cache peran berdasarkan status.",
	}, []string{"status"})
	cached := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "authd_cached_roles",
		Help: "Jumlah peran yang saat ini berada di cache.",
	})
	checks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authd_permission_checks_total",
		Help: "Jumlah pemeriksaan izin berdasarkan hasil.",
	}, []string{"outcome"})
	registerer.MustRegister(refresh, cached, checks)
	return &AuthMetrics{refreshTotal: refresh, cachedRoles: cached, checksTotal: checks}
}

// RefreshSucceeded mencatat pemuatan ulang yang berhasil beserta ukuran cache.
func (m *AuthMetrics) RefreshSucceeded(roles int) {
	if m == nil {
		return
	}
	m.refreshTotal.WithLabelValues("ok").Inc()
	m.cachedRoles.Set(float64(roles))
}

// RefreshFailed mencatat pemuatan ulang yang gagal.
func (m *AuthMetrics) RefreshFailed() {
	if m == nil {
		return
	}
	m.refreshTotal.WithLabelValues("error").Inc()
}

// CheckResolved mencatat hasil satu pemeriksaan izin.
func (m *AuthMetrics) CheckResolved(outcome string) {
	if m == nil {
		return
	}
	m.checksTotal.WithLabelValues(outcome).Inc()
}
