package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// Service is the outbound client for the payment gateway status API.
type Service struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     zerolog.Logger
}

func (s *Service) LoggerComponent() string {
	return "Gateway.Service"
}

func NewService(apiURL string, opts ...ServiceOption) (*Service, error) {
	c := &Service{
		apiURL:     apiURL,
		httpClient: http.DefaultClient,
		logger:     log.Logger,
	}

	for _, o := range opts {
		o(c)
	}

	if c.breaker == nil {
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "gateway",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		})
	}

	c.logger = c.logger.With().Str("component", c.LoggerComponent()).Logger()

	return c, nil
}

type ServiceOption func(*Service)

func WithLogger(l zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

func WithAPIKey(key string) ServiceOption {
	return func(s *Service) {
		s.apiKey = key
	}
}

func WithHTTPClient(c *http.Client) ServiceOption {
	return func(s *Service) {
		s.httpClient = c
	}
}

func WithBreaker(cb *gobreaker.CircuitBreaker) ServiceOption {
	return func(s *Service) {
		s.breaker = cb
	}
}

// GetPayment fetches the current gateway status of a payment. Safe to call
// any number of times; the gateway endpoint is a read.
func (s *Service) GetPayment(ctx context.Context, in *GetPaymentRequest, out *GetPaymentResponse) error {
	l := s.logger.With().
		Str("method", "GetPayment").
		Str("payment_id", in.PaymentID).
		Logger()
	ctx = l.WithContext(ctx)

	err := s.genericCall(ctx, http.MethodGet, fmt.Sprintf("/v1/payment/%s", in.PaymentID), nil, out)
	if err != nil {
		return err
	}

	l.Debug().
		Str("payment_status", out.PaymentStatus).
		Str("order_id", out.OrderID).
		Msg("GetPayment success")

	return nil
}

type RemoteError struct {
	ResponseBody string
	StatusCode   int
}

func NewRemoteError(responseBody string, statusCode int) *RemoteError {
	return &RemoteError{ResponseBody: responseBody, StatusCode: statusCode}
}

func (e *RemoteError) Error() string {
	return e.ResponseBody
}

func (s *Service) genericCall(ctx context.Context, method, endpoint string, in interface{}, out interface{}) error {
	l := zerolog.Ctx(ctx).With().Str("http_method", method).Str("endpoint", endpoint).Logger()
	ctx = l.WithContext(ctx)

	_, err := s.breaker.Execute(func() (interface{}, error) {
		res, err := s.request(ctx, method, endpoint, in)
		if err != nil {
			l.Error().Err(err).
				Msg("Service request failed")
			return nil, fmt.Errorf("request: %w", err)
		}
		defer func() {
			_ = res.Body.Close()
		}()

		if res.StatusCode >= 400 {
			resBody := readString(res.Body)
			l.Error().
				Int("http_status", res.StatusCode).
				Str("http_body", resBody).
				Msg("Service responded with error")
			return nil, NewRemoteError(resBody, res.StatusCode)
		}

		if err := readJSON(res.Body, out); err != nil {
			return nil, fmt.Errorf("body read: %w", err)
		}

		return nil, nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Service) request(
	ctx context.Context,
	method string,
	endpoint string,
	bodyParams interface{},
) (*http.Response, error) {
	fullURL := s.apiURL + endpoint
	l := zerolog.Ctx(ctx).With().
		Str("http_method", method).
		Str("url", fullURL).
		Logger()
	l.Debug().Msg("HTTP request")

	var body *bytes.Reader
	if bodyParams != nil {
		rawJSON, err := json.Marshal(bodyParams)
		if err != nil {
			return nil, fmt.Errorf("json encode: %w", err)
		}
		body = bytes.NewReader(rawJSON)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req = req.WithContext(ctx)

	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Add("x-api-key", s.apiKey)
	}

	res, err := s.httpClient.Do(req)
	if err != nil {
		l.Error().Err(err).
			Msg("Call failed")
		return nil, fmt.Errorf("do request: %w", err)
	}

	return res, nil
}
