package errors

import (
	"os"
	"sync"

	"github.com/certifi/gocertifi"
	"github.com/getsentry/sentry-go"
	"moff.io/walletauth/pkg/log"
)

var (
	reportersMu sync.RWMutex
	reporters   []Reporter
)

func init() {
	if os.Getenv(debugMode) == "" {
		log.Debug("Env DEBUG not set, report errors enabled.")
	} else {
		log.Debug("Env DEBUG set, report errors disabled.")
	}
}

func report(err error) {
	if err == nil || os.Getenv(debugMode) != "" {
		return
	}
	reportersMu.RLock()
	defer reportersMu.RUnlock()
	for _, r := range reporters {
		r.Report(err)
	}
}

// Reporter 错误报告器
type Reporter interface {
	Report(error)
}

// AddReporter registers an additional reporter, such as a test double.
func AddReporter(r Reporter) {
	reportersMu.Lock()
	defer reportersMu.Unlock()
	reporters = append(reporters, r)
}

// ResetReporters drops every registered reporter.
func ResetReporters() {
	reportersMu.Lock()
	defer reportersMu.Unlock()
	reporters = nil
}

type sentryReporter struct{}

func (s *sentryReporter) Report(err error) {
	sentry.CaptureException(err)
}

// 设置该变量，则不会上报
const debugMode = "DEBUG"

// NewSentryReporter
// 初始化sentry错误报告器，DSN为空时跳过。
// 环境变量DEBUG不为空时，不会产生错误上报
func NewSentryReporter(sentryDSN, environment string) error {
	if sentryDSN == "" {
		log.Warn("empty DSN found, skipping sentry reporter initialization.")
		return nil
	}
	rootCAs, err := gocertifi.CACerts()
	if err != nil {
		return Wrap(err, "init sentry CA")
	}
	err = sentry.Init(sentry.ClientOptions{
		Dsn:         sentryDSN,
		Environment: environment,
		CaCerts:     rootCAs,
	})
	if err != nil {
		return Wrap(err, "init sentry")
	}
	log.Info("sentry error reporter initialized.")
	AddReporter(&sentryReporter{})
	return nil
}
