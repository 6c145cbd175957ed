package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

// Metrics представляет систему метрик
type Metrics struct {
	// Стандартные метрики Prometheus
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ErrorsCount     *prometheus.CounterVec

	// Метрики подсистемы идентификации
	RegistrationsTotal *prometheus.CounterVec
	LoginsTotal        *prometheus.CounterVec
	TokensIssuedTotal  *prometheus.CounterVec
	ActionTokensTotal  *prometheus.CounterVec

	// OpenTelemetry Tracer
	Tracer trace.Tracer `json:"-"`
}

// NewMetrics создает новую систему метрик
func NewMetrics(serviceName string) *Metrics {
	// Регистрируем стандартные метрики Prometheus
	requestCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	errorsCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Total number of HTTP errors",
		},
		[]string{"method", "endpoint", "error_type"},
	)

	// Метрики подсистемы идентификации
	registrationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "identity",
			Name:      "registrations_total",
			Help:      "Total number of registration attempts",
		},
		[]string{"result"},
	)

	loginsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "identity",
			Name:      "logins_total",
			Help:      "Total number of login attempts",
		},
		[]string{"result"},
	)

	tokensIssuedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "identity",
			Name:      "tokens_issued_total",
			Help:      "Total number of issued JWT tokens",
		},
		[]string{"kind"},
	)

	actionTokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "identity",
			Name:      "action_tokens_total",
			Help:      "Total number of ephemeral token operations",
		},
		[]string{"purpose", "operation", "result"},
	)

	// Регистрируем метрики в Prometheus
	collectors := []prometheus.Collector{
		requestCount, requestDuration, errorsCount,
		registrationsTotal, loginsTotal, tokensIssuedTotal, actionTokensTotal,
	}
	for _, collector := range collectors {
		if err := prometheus.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}

	// Создаем OpenTelemetry Tracer
	tracer := otel.Tracer(serviceName)

	return &Metrics{
		RequestCount:       requestCount,
		RequestDuration:    requestDuration,
		ErrorsCount:        errorsCount,
		RegistrationsTotal: registrationsTotal,
		LoginsTotal:        loginsTotal,
		TokensIssuedTotal:  tokensIssuedTotal,
		ActionTokensTotal:  actionTokensTotal,
		Tracer:             tracer,
	}
}

// GetHandler возвращает HTTP обработчик для эндпоинта /metrics
func (m *Metrics) GetHandler() http.Handler {
	return promhttp.Handler()
}

// Middleware создает middleware для сбора метрик
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Начинаем трассировку с OpenTelemetry
		ctx, span := m.Tracer.Start(r.Context(), r.URL.Path)
		defer span.End()

		// Создаем обертку для ResponseWriter для перехвата статуса
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		// Запоминаем время начала запроса
		start := time.Now()

		// Выполняем следующий обработчик
		next.ServeHTTP(wrapped, r.WithContext(ctx))

		// Собираем метрики
		duration := time.Since(start).Seconds()
		endpoint := r.URL.Path

		// Обновляем счетчики
		m.RequestCount.WithLabelValues(r.Method, endpoint, fmt.Sprintf("%d", wrapped.statusCode)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(duration)

		// Если статус ошибочный, увеличиваем счетчик ошибок
		if wrapped.statusCode >= 400 {
			errorType := "client_error"
			if wrapped.statusCode >= 500 {
				errorType = "server_error"
			}
			m.ErrorsCount.WithLabelValues(r.Method, endpoint, errorType).Inc()
		}

		// Добавляем атрибуты в спан OpenTelemetry
		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.url", r.URL.String()),
			attribute.Int("http.status_code", wrapped.statusCode),
			attribute.Float64("http.duration", duration),
		)
	})
}

// responseWriter обертка для перехвата статуса ответа
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader перехватывает установку статуса
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// InitializeOpenTelemetry инициализирует OpenTelemetry провайдер трассировки
func InitializeOpenTelemetry(serviceName string) error {
	tp := tracesdk.NewTracerProvider(
		tracesdk.WithSampler(tracesdk.AlwaysSample()),
		tracesdk.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String("1.0.0"),
		)),
	)

	otel.SetTracerProvider(tp)
	return nil
}
