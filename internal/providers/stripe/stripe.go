// Package stripe implements payment.Gateway on top of the Stripe Go SDK.
package stripe

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	domainErrors "github.com/paygate/paygate/internal/domain/errors"
	"github.com/paygate/paygate/internal/domain/payment"
)

// Name is the provider name reported in errors and metrics.
const Name = "stripe"

const (
	opInitialize = "initialize"
	opCreate     = "create_payment"
	opVerify     = "verify_payment"
	opRefund     = "refund_payment"
)

// Adapter forwards gateway calls to the Stripe API. It owns its SDK client;
// the client is never shared or exposed, so adapters built with different
// keys do not interfere.
type Adapter struct {
	secretKey string
	api       *client.API
	logger    zerolog.Logger

	initMu      sync.Mutex
	initialized bool
}

type options struct {
	baseURL           string
	httpClient        *http.Client
	maxNetworkRetries *int64
	logger            zerolog.Logger
	sdkLogger         stripego.LeveledLoggerInterface
}

// Option configures an Adapter.
type Option func(*options)

// WithBaseURL points the SDK at another API endpoint, e.g. stripe-mock.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithHTTPTimeout is shorthand for an HTTP client with the given timeout.
func WithHTTPTimeout(d time.Duration) Option {
	return func(o *options) { o.httpClient = &http.Client{Timeout: d} }
}

// WithMaxNetworkRetries sets how often the SDK itself retries a request.
func WithMaxNetworkRetries(n int64) Option {
	return func(o *options) { o.maxNetworkRetries = &n }
}

// WithLogger sets the logger for the initialization notice.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSDKLogger forwards the SDK's request logging to l. The SDK is silent
// otherwise.
func WithSDKLogger(l zerolog.Logger) Option {
	return func(o *options) { o.sdkLogger = NewLeveledLogger(l) }
}

// New creates an adapter bound to secretKey. The SDK pins every request to
// stripego.APIVersion.
func New(secretKey string, opts ...Option) *Adapter {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := &stripego.BackendConfig{
		EnableTelemetry:   stripego.Bool(false),
		HTTPClient:        o.httpClient,
		LeveledLogger:     o.sdkLogger,
		MaxNetworkRetries: o.maxNetworkRetries,
	}
	if cfg.LeveledLogger == nil {
		cfg.LeveledLogger = NewLeveledLogger(zerolog.Nop())
	}
	if o.baseURL != "" {
		cfg.URL = stripego.String(o.baseURL)
	}

	backend := stripego.GetBackendWithConfig(stripego.APIBackend, cfg)
	backends := &stripego.Backends{
		API:     backend,
		Connect: stripego.GetBackendWithConfig(stripego.ConnectBackend, cfg),
		Uploads: stripego.GetBackendWithConfig(stripego.UploadsBackend, cfg),
	}

	return &Adapter{
		secretKey: secretKey,
		api:       client.New(secretKey, backends),
		logger:    o.logger,
	}
}

// APIVersion returns the Stripe API version requests are pinned to.
func (a *Adapter) APIVersion() string {
	return stripego.APIVersion
}

// Initialize performs the one-time setup. It makes no network call.
func (a *Adapter) Initialize(ctx context.Context) error {
	a.initMu.Lock()
	defer a.initMu.Unlock()

	if a.initialized {
		e := domainErrors.NewGatewayError(domainErrors.ErrInitialization, Name, opInitialize, nil)
		e.Message = "already initialized"
		return e
	}
	if a.secretKey == "" {
		e := domainErrors.NewGatewayError(domainErrors.ErrInitialization, Name, opInitialize, nil)
		e.Message = "secret key is empty"
		return e
	}

	a.initialized = true
	a.logger.Info().Str("api_version", a.APIVersion()).Msg("Stripe gateway initialized")
	return nil
}

// CreatePayment creates a payment intent.
func (a *Adapter) CreatePayment(ctx context.Context, req payment.CreatePaymentRequest) (*payment.PaymentRecord, error) {
	params := &stripego.PaymentIntentParams{
		Amount:   stripego.Int64(req.Amount),
		Currency: stripego.String(req.Currency),
	}
	params.Context = ctx
	setIdempotencyKey(ctx, &params.Params)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := a.api.PaymentIntents.New(params)
	if err != nil {
		return nil, classify(opCreate, err)
	}
	return toPaymentRecord(opCreate, pi)
}

// VerifyPayment retrieves a payment intent by id.
func (a *Adapter) VerifyPayment(ctx context.Context, paymentID string) (*payment.PaymentRecord, error) {
	if paymentID == "" {
		e := domainErrors.NewGatewayError(domainErrors.ErrNotFound, Name, opVerify, nil)
		e.Message = "payment id is empty"
		return nil, e
	}

	params := &stripego.PaymentIntentParams{}
	params.Context = ctx

	pi, err := a.api.PaymentIntents.Get(paymentID, params)
	if err != nil {
		return nil, classify(opVerify, err)
	}
	return toPaymentRecord(opVerify, pi)
}

// RefundPayment refunds a payment intent. A full refund leaves the amount
// off the request, which Stripe treats as the remaining captured amount.
func (a *Adapter) RefundPayment(ctx context.Context, paymentID string, amount payment.RefundAmount) (*payment.RefundRecord, error) {
	params := &stripego.RefundParams{
		PaymentIntent: stripego.String(paymentID),
	}
	if n, ok := amount.Partial(); ok {
		params.Amount = stripego.Int64(n)
	}
	params.Context = ctx
	setIdempotencyKey(ctx, &params.Params)

	r, err := a.api.Refunds.New(params)
	if err != nil {
		return nil, classify(opRefund, err)
	}
	return toRefundRecord(r)
}

// setIdempotencyKey forwards a caller's key. Without one the SDK generates
// its own for retried POSTs.
func setIdempotencyKey(ctx context.Context, p *stripego.Params) {
	if key, ok := payment.IdempotencyKey(ctx); ok {
		p.SetIdempotencyKey(key)
	}
}

var _ payment.Gateway = (*Adapter)(nil)
