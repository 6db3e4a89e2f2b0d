package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution sources reported on credentialResolutionsTotal.
const (
	resolutionSourceDevice = "device"
	resolutionSourceGlobal = "global"
	resolutionSourceNone   = "none"
	resolutionSourceError  = "error"
)

var (
	// credentialResolutionsTotal counts credential resolutions by where the result came from.
	credentialResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deviceauth_credential_resolutions_total",
			Help: "Total number of device credential resolutions by source",
		},
		[]string{"source"},
	)

	// credentialMutationsTotal counts successful credential writes and deletes.
	credentialMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deviceauth_credential_mutations_total",
			Help: "Total number of credential mutations by operation",
		},
		[]string{"operation"},
	)

	// undecryptableCredentialsTotal counts rows skipped from listings because
	// their secret could not be decrypted.
	undecryptableCredentialsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deviceauth_undecryptable_credentials_total",
			Help: "Total number of stored credentials omitted from listings because decryption failed",
		},
	)

	// authStateEvictionsTotal counts expired auth-state entries evicted on read or sweep.
	authStateEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deviceauth_auth_state_evictions_total",
			Help: "Total number of expired auth-state cache entries evicted",
		},
	)
)
