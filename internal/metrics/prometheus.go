package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	CallbacksInterceptedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consentproxy_callbacks_intercepted_total",
		Help: "Total number of identity-provider callbacks intercepted.",
	})
	TokenExchangeFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consentproxy_token_exchange_failures_total",
		Help: "Total number of failed upstream token exchanges.",
	})
	ConsentsRecordedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consentproxy_consents_recorded_total",
		Help: "Total number of consent submissions persisted.",
	})
	ProxyCodesIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consentproxy_codes_issued_total",
		Help: "Total number of proxy authorization codes minted.",
	})
	ProxyCodesRedeemedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consentproxy_codes_redeemed_total",
		Help: "Total number of proxy authorization codes redeemed.",
	})
	CapabilityDeniedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consentproxy_capability_denied_total",
		Help: "Total number of capability invocations denied by the preference check.",
	})
)

// Register registers the custom metrics with the given registerer. It should
// be called once at application startup.
func Register(reg prometheus.Registerer) {
	if reg == nil {
		return
	}
	collectors := []prometheus.Collector{
		CallbacksInterceptedTotal,
		TokenExchangeFailuresTotal,
		ConsentsRecordedTotal,
		ProxyCodesIssuedTotal,
		ProxyCodesRedeemedTotal,
		CapabilityDeniedTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Msg("Failed to register metric")
		}
	}
}
