package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "resetd"

// Result labels recorded by ResetMetrics.
const (
	ResultIssued       = "issued"
	ResultUserNotFound = "user_not_found"
	ResultDuplicate    = "duplicate"
	ResultMailFailed   = "mail_failed"
	ResultValid        = "valid"
	ResultInvalid      = "invalid"
	ResultMismatch     = "mismatch"
	ResultExpired      = "expired"
	ResultChanged      = "changed"
	ResultRejected     = "rejected"
	ResultFailed       = "failed"
	ResultError        = "error"
)

// ResetMetrics exposes Prometheus counters for the reset code lifecycle.
type ResetMetrics struct {
	CodesIssued        *prometheus.CounterVec
	CodeValidations    *prometheus.CounterVec
	PasswordChanges    *prometheus.CounterVec
	CodesSweptTotal    prometheus.Counter
	RateLimitRejection prometheus.Counter
}

// NewResetMetrics registers the lifecycle counters with reg, reusing collectors that are already registered.
func NewResetMetrics(reg prometheus.Registerer) (*ResetMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	issued, err := registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "codes_issued_total",
		Help:      "Reset code issuance attempts partitioned by result.",
	})
	if err != nil {
		return nil, err
	}

	validations, err := registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "code_validations_total",
		Help:      "Reset code validation attempts partitioned by result.",
	})
	if err != nil {
		return nil, err
	}

	changes, err := registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_changes_total",
		Help:      "Password change command outcomes partitioned by result.",
	})
	if err != nil {
		return nil, err
	}

	swept, err := registerCounter(reg, prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "codes_swept_total",
		Help:      "Stale reset codes removed by the expiry sweeper.",
	})
	if err != nil {
		return nil, err
	}

	rejections, err := registerCounter(reg, prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_rejections_total",
		Help:      "Requests rejected by the rate limiter.",
	})
	if err != nil {
		return nil, err
	}

	return &ResetMetrics{
		CodesIssued:        issued,
		CodeValidations:    validations,
		PasswordChanges:    changes,
		CodesSweptTotal:    swept,
		RateLimitRejection: rejections,
	}, nil
}

// CodeIssued records an issuance outcome.
func (m *ResetMetrics) CodeIssued(result string) {
	if m == nil {
		return
	}
	m.CodesIssued.WithLabelValues(result).Inc()
}

// CodeValidated records a validation outcome.
func (m *ResetMetrics) CodeValidated(result string) {
	if m == nil {
		return
	}
	m.CodeValidations.WithLabelValues(result).Inc()
}

// PasswordChanged records a password command outcome.
func (m *ResetMetrics) PasswordChanged(result string) {
	if m == nil {
		return
	}
	m.PasswordChanges.WithLabelValues(result).Inc()
}

// CodesSwept adds the number of codes removed by one sweep.
func (m *ResetMetrics) CodesSwept(count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.CodesSweptTotal.Add(float64(count))
}

// RateLimitRejected records a 429 response.
func (m *ResetMetrics) RateLimitRejected() {
	if m == nil {
		return
	}
	m.RateLimitRejection.Inc()
}

func registerCounterVec(reg prometheus.Registerer, opts prometheus.CounterOpts) (*prometheus.CounterVec, error) {
	vec := prometheus.NewCounterVec(opts, []string{"result"})
	if err := reg.Register(vec); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, fmt.Errorf("register %s: %w", opts.Name, err)
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("existing %s collector has unexpected type %T", opts.Name, already.ExistingCollector)
		}
		return existing, nil
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, opts prometheus.CounterOpts) (prometheus.Counter, error) {
	counter := prometheus.NewCounter(opts)
	if err := reg.Register(counter); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, fmt.Errorf("register %s: %w", opts.Name, err)
		}
		existing, ok := already.ExistingCollector.(prometheus.Counter)
		if !ok {
			return nil, fmt.Errorf("existing %s collector has unexpected type %T", opts.Name, already.ExistingCollector)
		}
		return existing, nil
	}
	return counter, nil
}
