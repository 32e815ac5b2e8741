package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	awsSession "github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/go-kit/kit/log"
	redigo "github.com/gomodule/redigo/redis"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayoomidimeji/lariyu/core"
	handler "github.com/ayoomidimeji/lariyu/handler/http"
	"github.com/ayoomidimeji/lariyu/platform/counter"
	"github.com/ayoomidimeji/lariyu/platform/limiter"
	"github.com/ayoomidimeji/lariyu/platform/metrics"
	"github.com/ayoomidimeji/lariyu/platform/redis"
	"github.com/ayoomidimeji/lariyu/service/account"
	"github.com/ayoomidimeji/lariyu/service/mail"
)

// Logging and telemetry identifiers.
const (
	component        = "signup-http"
	namespaceCounter = "counter"
	namespaceService = "service"
	storeHTTP        = "http"
	storeMem         = "mem"
	storeNop         = "nop"
	storeRedis       = "redis"
	storeSES         = "ses"
)

// Versions.
const (
	versionCurrent = "1.0"
)

// Supported mail transports.
const (
	transportNop = "nop"
	transportSES = "ses"
)

// Prefixes and scopes.
const (
	prefixCounter = "admission:"

	scopeDiag   = "diag"
	scopeSignup = "signup"
	scopeSlow   = "slowdown"
)

// Limits.
const (
	maxPayloadBytes = 10240
)

// Timeouts.
const (
	defaultReadTimeout     = 5 * time.Second
	defaultShutdownTimeout = 15 * time.Second
	defaultWriteTimeout    = 35 * time.Second
)

// Buildtime vars.
var (
	revision = "0000000-dev"
)

func main() {
	begin := time.Now()

	_ = godotenv.Load()

	var (
		accountKey      = flag.String("account.key", envOr("ACCOUNT_SERVICE_KEY", ""), "Service credential for the account backend")
		accountRedirect = flag.String("account.redirect", envOr("ACCOUNT_REDIRECT_URL", ""), "Redirect URL embedded in confirmation links")
		accountURL      = flag.String("account.url", envOr("ACCOUNT_BASE_URL", ""), "Base URL of the account backend")
		awsID           = flag.String("aws.id", envOr("AWS_ACCESS_KEY_ID", ""), "Identifier for AWS requests")
		awsRegion       = flag.String("aws.region", envOr("AWS_REGION", "eu-west-1"), "AWS Region to operate in")
		awsSecret       = flag.String("aws.secret", envOr("AWS_SECRET_ACCESS_KEY", ""), "Identification secret for AWS requests")
		corsOrigins     = flag.String("cors.origins", envOr("CORS_ORIGINS", "*"), "Comma separated list of allowed origins")
		deviceMax       = flag.Int("limit.device.max", 10, "Max signup attempts per device fingerprint per window")
		deviceWindow    = flag.Duration("limit.device.window", time.Hour, "Device limiter window")
		diagMax         = flag.Int("limit.diag.max", 60, "Max diagnostic requests per credential per window")
		emailMax        = flag.Int("limit.email.max", 3, "Max signup attempts per email per window")
		emailWindow     = flag.Duration("limit.email.window", time.Hour, "Email limiter window")
		globalMax       = flag.Int("limit.global.max", 1000, "Max signup attempts across all callers per window")
		globalWindow    = flag.Duration("limit.global.window", time.Minute, "Global limiter window")
		ipMax           = flag.Int("limit.ip.max", 5, "Max signup attempts per address per window")
		ipWindow        = flag.Duration("limit.ip.window", 15*time.Minute, "Address limiter window")
		listenAddr      = flag.String("listen.addr", ":"+envOr("PORT", "8084"), "HTTP bind address for main API")
		mailSender      = flag.String("mail.sender", envOr("MAIL_SENDER", "no-reply@lariyu.shop"), "Sender address for transactional mail")
		mailTransport   = flag.String("mail.transport", envOr("MAIL_TRANSPORT", transportNop), "Mail transport used for confirmation emails")
		redisAddr       = flag.String("redis.addr", envOr("REDIS_ADDR", ""), "Redis address for distributed counters, empty for in-process")
		redisPassword   = flag.String("redis.password", envOr("REDIS_PASSWORD", ""), "Redis password")
		slowBase        = flag.Duration("slow.base", time.Second, "Base slow-down delay")
		slowCap         = flag.Duration("slow.cap", 30*time.Second, "Slow-down delay ceiling")
		slowThreshold   = flag.Int("slow.threshold", 2, "Free hits before slow-down kicks in")
		slowWindow      = flag.Duration("slow.window", 15*time.Minute, "Slow-down counting window")
		telemetryAddr   = flag.String("telemetry.addr", ":9000", "HTTP bind address where prometheus telemetry is exposed")
		trustProxy      = flag.Bool("trust.proxy", envOr("TRUST_PROXY", "") != "", "Trust proxy forwarding headers for client addresses")
	)
	flag.Parse()

	// Setup logging.
	logger := log.With(
		log.NewJSONLogger(os.Stdout),
		"caller", log.Caller(3),
		"component", component,
		"revision", revision,
	)

	hostname, err := os.Hostname()
	if err != nil {
		logger.Log("err", err, "lifecycle", "abort")
		os.Exit(1)
	}

	logger = log.With(logger, "host", hostname)

	if *accountURL == "" || *accountKey == "" {
		logger.Log(
			"err", "account backend not configured",
			"lifecycle", "abort",
		)
		os.Exit(1)
	}

	// Setup instrumentation.
	go func(addr string) {
		logger.Log(
			"duration", time.Since(begin).Nanoseconds(),
			"lifecycle", "start",
			"listen", addr,
			"sub", "telemetry",
		)

		http.Handle("/metrics", promhttp.Handler())

		err := http.ListenAndServe(addr, nil)
		if err != nil {
			logger.Log("err", err, "lifecycle", "abort", "sub", "telemetry")
			os.Exit(1)
		}
	}(*telemetryAddr)

	counterErrCount, counterOpCount, counterOpLatency := metrics.KeyMetrics(
		namespaceCounter,
		metrics.FieldComponent,
		metrics.FieldMethod,
		metrics.FieldService,
		metrics.FieldStore,
	)

	serviceErrCount, serviceOpCount, serviceOpLatency := metrics.KeyMetrics(
		namespaceService,
		metrics.FieldComponent,
		metrics.FieldMethod,
		metrics.FieldService,
		metrics.FieldStore,
	)

	// Setup counter store. A configured distributed store degrades to the
	// in-process fallback instead of failing requests, an unconfigured one
	// means per-instance counting only. Each store carries its own telemetry
	// label so degraded-mode traffic shows up as mem, not redis. The health
	// probe points at the primary store, before the fallback hides its
	// failures.
	instrumentCounter := func(store string, s counter.Service) counter.Service {
		s = counter.InstrumentServiceMiddleware(
			component,
			store,
			counterErrCount,
			counterOpCount,
			counterOpLatency,
		)(s)

		return counter.LogServiceMiddleware(logger, store)(s)
	}

	var (
		counters     counter.Service
		counterProbe counter.Service
		redisPool    = redis.Pool(*redisAddr, *redisPassword)
	)

	if *redisAddr != "" {
		primary := instrumentCounter(storeRedis, counter.RedisService(redisPool, prefixCounter))
		fallback := instrumentCounter(storeMem, counter.MemService())

		counters = counter.FallbackServiceMiddleware(fallback, logger)(primary)
		counterProbe = primary

		con := redisPool.Get()
		if _, err := con.Do("PING"); err != nil {
			logger.Log(
				"err", err,
				"level", "warn",
				"lifecycle", "degraded",
				"msg", "distributed counter store unreachable, falling back to in-process counters",
			)
		}
		con.Close()
	} else {
		counters = instrumentCounter(storeMem, counter.MemService())
		counterProbe = counters

		logger.Log(
			"level", "warn",
			"msg", "no distributed counter store configured, limits are per-instance",
		)
	}

	// Setup services.
	var accounts account.Service
	accounts = account.HTTPService(*accountURL, *accountKey, nil)
	accounts = account.InstrumentServiceMiddleware(
		component,
		storeHTTP,
		serviceErrCount,
		serviceOpCount,
		serviceOpLatency,
	)(accounts)
	accounts = account.LogServiceMiddleware(logger, storeHTTP)(accounts)

	var (
		mails     mail.Service
		mailStore = storeNop
	)

	switch *mailTransport {
	case transportNop:
		mails = mail.NopService()
	case transportSES:
		mailStore = storeSES

		aSession := awsSession.New(&aws.Config{
			Credentials: credentials.NewStaticCredentials(*awsID, *awsSecret, ""),
			Region:      aws.String(*awsRegion),
		})

		mails = mail.SESService(ses.New(aSession), *mailSender)
	default:
		logger.Log(
			"err", "mail transport '"+*mailTransport+"' not supported",
			"lifecycle", "abort",
		)
		os.Exit(1)
	}

	mails = mail.InstrumentServiceMiddleware(
		component,
		mailStore,
		serviceErrCount,
		serviceOpCount,
		serviceOpLatency,
	)(mails)
	mails = mail.LogServiceMiddleware(logger, mailStore)(mails)

	// Setup admission pipeline. Order is load-bearing: the slow-down stage
	// first, then the guards from coarse to fine, each consuming quota only
	// when every earlier guard admitted.
	var (
		slow = limiter.NewSlowDown(counters, limiter.SlowConfig{
			BaseDelay: *slowBase,
			KeyFunc:   limiter.ByAddr(),
			MaxDelay:  *slowCap,
			Scope:     scopeSlow,
			Threshold: *slowThreshold,
			Window:    *slowWindow,
		}, logger)

		pipeline = limiter.NewPipeline(
			slow,
			[]string{"/health", "/metrics"},
			limiter.New(counters, limiter.Config{
				KeyFunc: limiter.Global(),
				Max:     *globalMax,
				Scope:   scopeSignup,
				Window:  *globalWindow,
			}, logger),
			limiter.New(counters, limiter.Config{
				KeyFunc: limiter.ByAddr(),
				Max:     *ipMax,
				Scope:   scopeSignup,
				Window:  *ipWindow,
			}, logger),
			limiter.New(counters, limiter.Config{
				KeyFunc: limiter.ByEmail(),
				Max:     *emailMax,
				Scope:   scopeSignup,
				Window:  *emailWindow,
			}, logger),
			limiter.New(counters, limiter.Config{
				KeyFunc: limiter.ByDevice(),
				Max:     *deviceMax,
				Scope:   scopeSignup,
				Window:  *deviceWindow,
			}, logger),
		)

		diagPipeline = limiter.NewPipeline(
			nil,
			nil,
			limiter.New(counters, limiter.Config{
				KeyFunc: limiter.ByCredential(),
				Max:     *diagMax,
				Scope:   scopeDiag,
				Window:  time.Minute,
			}, logger),
		)
	)

	// Setup middlewares.
	var (
		withBase = handler.Chain(
			handler.CtxPrepare(versionCurrent),
			handler.RequestID(),
			handler.Log(logger),
			handler.Instrument(component),
			handler.SecureHeaders(),
			handler.DebugHeaders(revision, hostname),
			handler.CORS(splitOrigins(*corsOrigins)...),
			handler.Gzip(),
			handler.HasUserAgent(),
			handler.ValidateContent(maxPayloadBytes),
		)
		withAdmission = handler.Chain(
			withBase,
			handler.Admit(pipeline, *trustProxy),
		)
		withDiag = handler.Chain(
			withBase,
			handler.Admit(diagPipeline, *trustProxy),
		)
	)

	// Setup router.
	router := mux.NewRouter().StrictSlash(true)

	router.Methods("GET").Path(`/health`).Name("healthcheck").HandlerFunc(
		handler.Wrap(
			handler.CtxPrepare(versionCurrent),
			handler.Health(counterProbe, begin),
		),
	)

	router.Methods("POST").Path(`/api/signup`).Name("signupCreate").HandlerFunc(
		handler.Wrap(
			withAdmission,
			handler.SignupCreate(
				core.SignupCreate(accounts, mails, *accountRedirect),
			),
		),
	)

	router.Methods("GET").Path(`/api/limits`).Name("limitStatus").HandlerFunc(
		handler.Wrap(
			withDiag,
			handler.LimitStatus(pipeline, *trustProxy),
		),
	)

	server := &http.Server{
		Addr:         *listenAddr,
		Handler:      router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	done := gracefulShutdown(server, redisPool, logger, sigc)

	logger.Log(
		"duration", time.Since(begin).Nanoseconds(),
		"lifecycle", "start",
		"listen", *listenAddr,
		"sub", "api",
	)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		logger.Log("err", err, "lifecycle", "abort")
		os.Exit(1)
	}

	// ListenAndServe returns the moment Shutdown begins. In-flight requests
	// are still draining at that point, exit only after they finished and
	// the store connections are closed.
	<-done

	logger.Log("lifecycle", "exit")
}

// gracefulShutdown drains in-flight requests before the counter-store
// connections go away, bounded by the grace deadline. The returned channel
// closes once the drain and teardown completed.
func gracefulShutdown(
	server *http.Server,
	pool *redigo.Pool,
	logger log.Logger,
	sigc <-chan os.Signal,
) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		<-sigc

		logger.Log("lifecycle", "stop")

		ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Log("err", err, "lifecycle", "stop")
		}

		if err := pool.Close(); err != nil {
			logger.Log("err", err, "lifecycle", "stop")
		}

		close(done)
	}()

	return done
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func splitOrigins(s string) []string {
	parts := []string{}

	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	return parts
}
