package service

import (
	"context"
	"sort"
	"strconv"

	"PlayLine/internal/biz"
	"PlayLine/internal/data"
	pkglog "PlayLine/pkg/log"
	"PlayLine/pkg/metrics"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// Operation names used by middleware selectors.
const (
	OperationCircuitHealth = "/playline.circuit.v1.CircuitService/GetCircuitHealth"
	OperationListCircuits  = "/playline.circuit.v1.CircuitService/ListCircuits"
	OperationGetCircuit    = "/playline.circuit.v1.CircuitService/GetCircuit"
	OperationResetCircuit  = "/playline.circuit.v1.CircuitService/ResetCircuit"
	OperationListEvents    = "/playline.circuit.v1.CircuitService/ListCircuitEvents"
)

// EventLister reads persisted circuit transitions.
type EventLister interface {
	ListCircuitEvents(ctx context.Context, breaker string, limit int) ([]data.CircuitEvent, error)
}

// CircuitRequest addresses one breaker, and optionally one endpoint of it.
type CircuitRequest struct {
	Registry string
	Endpoint string
	Limit    int
}

// HealthReply is the body of GET /v1/circuits/health.
type HealthReply struct {
	Healthy      bool                        `json:"healthy"`
	OpenCircuits []string                    `json:"openCircuits"`
	Circuits     map[string]biz.CircuitStats `json:"circuits"`
}

// CircuitsReply lists the tracked endpoints of one breaker.
type CircuitsReply struct {
	Registry  string                      `json:"registry"`
	Endpoints []string                    `json:"endpoints"`
	Circuits  map[string]biz.CircuitStats `json:"circuits"`
}

// CircuitReply is the state of one endpoint.
type CircuitReply struct {
	Registry string           `json:"registry"`
	Endpoint string           `json:"endpoint"`
	Stats    biz.CircuitStats `json:"stats"`
}

// ResetReply reports whether the endpoint was tracked before the reset.
type ResetReply struct {
	Registry string `json:"registry"`
	Endpoint string `json:"endpoint"`
	Existed  bool   `json:"existed"`
}

// EventsReply lists persisted transitions, newest first.
type EventsReply struct {
	Registry string              `json:"registry"`
	Events   []data.CircuitEvent `json:"events"`
}

// CircuitService exposes the circuit registry for operators.
type CircuitService struct {
	registry *biz.CircuitRegistry
	events   EventLister
	metrics  *metrics.CircuitMetrics
	log      *pkglog.LogHelper
}

// NewCircuitService creates the ops service.
func NewCircuitService(registry *biz.CircuitRegistry, events EventLister, m *metrics.CircuitMetrics, logger log.Logger) *CircuitService {
	return &CircuitService{
		registry: registry,
		events:   events,
		metrics:  m,
		log:      pkglog.NewLogHelper(log.With(logger, "module", "service/circuit")),
	}
}

func (s *CircuitService) breaker(name string) (*biz.CircuitBreaker, error) {
	cb, ok := s.registry.Get(name)
	if !ok {
		return nil, errors.NotFound("CIRCUIT_REGISTRY_NOT_FOUND", "unknown circuit registry: "+name)
	}
	return cb, nil
}

// GetCircuitHealth returns the registry health.
func (s *CircuitService) GetCircuitHealth(_ context.Context) (*HealthReply, error) {
	health := s.registry.GetCircuitHealth()
	open := health.OpenCircuits()
	if open == nil {
		open = []string{}
	}
	return &HealthReply{
		Healthy:      health.Healthy,
		OpenCircuits: open,
		Circuits:     health.Circuits,
	}, nil
}

// ListCircuits returns every tracked endpoint of one breaker.
func (s *CircuitService) ListCircuits(_ context.Context, req *CircuitRequest) (*CircuitsReply, error) {
	cb, err := s.breaker(req.Registry)
	if err != nil {
		return nil, err
	}

	states := cb.GetAllStates()
	endpoints := make([]string, 0, len(states))
	for endpoint := range states {
		endpoints = append(endpoints, endpoint)
	}
	sort.Strings(endpoints)

	return &CircuitsReply{Registry: req.Registry, Endpoints: endpoints, Circuits: states}, nil
}

// GetCircuit returns the state of one endpoint. Untracked endpoints are CLOSED.
func (s *CircuitService) GetCircuit(_ context.Context, req *CircuitRequest) (*CircuitReply, error) {
	if req.Endpoint == "" {
		return nil, errors.BadRequest("CIRCUIT_ENDPOINT_REQUIRED", "endpoint query parameter is required")
	}
	cb, err := s.breaker(req.Registry)
	if err != nil {
		return nil, err
	}
	return &CircuitReply{Registry: req.Registry, Endpoint: req.Endpoint, Stats: cb.GetState(req.Endpoint)}, nil
}

// ResetCircuit forgets the endpoint state. It is an administrative override.
func (s *CircuitService) ResetCircuit(ctx context.Context, req *CircuitRequest) (*ResetReply, error) {
	if req.Endpoint == "" {
		return nil, errors.BadRequest("CIRCUIT_ENDPOINT_REQUIRED", "endpoint query parameter is required")
	}
	cb, err := s.breaker(req.Registry)
	if err != nil {
		return nil, err
	}

	existed := cb.Reset(req.Endpoint)
	s.log.Security("administrative circuit reset",
		"breaker", req.Registry,
		"endpoint", req.Endpoint,
		"existed", existed,
		"request_id", pkglog.GetRequestID(ctx),
	)

	return &ResetReply{Registry: req.Registry, Endpoint: req.Endpoint, Existed: existed}, nil
}

// ListCircuitEvents returns persisted transitions of one breaker.
func (s *CircuitService) ListCircuitEvents(ctx context.Context, req *CircuitRequest) (*EventsReply, error) {
	if _, err := s.breaker(req.Registry); err != nil {
		return nil, err
	}
	events, err := s.events.ListCircuitEvents(ctx, req.Registry, req.Limit)
	if err != nil {
		s.log.Errorw("msg", "failed to list circuit events", "breaker", req.Registry, "error", err)
		return nil, errors.ServiceUnavailable("CIRCUIT_EVENTS_UNAVAILABLE", "circuit event store unavailable")
	}
	return &EventsReply{Registry: req.Registry, Events: events}, nil
}

// RegisterCircuitHTTPServer registers the ops routes and the metrics endpoint.
func RegisterCircuitHTTPServer(srv *http.Server, s *CircuitService) {
	r := srv.Route("/")
	r.GET("/v1/circuits/health", circuitHealthHandler(s))
	r.GET("/v1/circuits/{registry}", listCircuitsHandler(s))
	r.GET("/v1/circuits/{registry}/state", getCircuitHandler(s))
	r.GET("/v1/circuits/{registry}/events", listEventsHandler(s))
	r.POST("/v1/circuits/{registry}/reset", resetCircuitHandler(s))

	if s.metrics != nil {
		srv.Handle("/metrics", s.metrics.Handler())
	}
}

func bindCircuitRequest(ctx http.Context) *CircuitRequest {
	req := &CircuitRequest{
		Registry: ctx.Vars().Get("registry"),
		Endpoint: ctx.Query().Get("endpoint"),
	}
	if limit, err := strconv.Atoi(ctx.Query().Get("limit")); err == nil {
		req.Limit = limit
	}
	return req
}

func circuitHealthHandler(s *CircuitService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		http.SetOperation(ctx, OperationCircuitHealth)
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return s.GetCircuitHealth(ctx)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		reply := out.(*HealthReply)
		if !reply.Healthy {
			return ctx.Result(503, reply)
		}
		return ctx.Result(200, reply)
	}
}

func listCircuitsHandler(s *CircuitService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		in := bindCircuitRequest(ctx)
		http.SetOperation(ctx, OperationListCircuits)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return s.ListCircuits(ctx, req.(*CircuitRequest))
		})
		out, err := h(ctx, in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func getCircuitHandler(s *CircuitService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		in := bindCircuitRequest(ctx)
		http.SetOperation(ctx, OperationGetCircuit)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return s.GetCircuit(ctx, req.(*CircuitRequest))
		})
		out, err := h(ctx, in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func listEventsHandler(s *CircuitService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		in := bindCircuitRequest(ctx)
		http.SetOperation(ctx, OperationListEvents)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return s.ListCircuitEvents(ctx, req.(*CircuitRequest))
		})
		out, err := h(ctx, in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func resetCircuitHandler(s *CircuitService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		in := bindCircuitRequest(ctx)
		http.SetOperation(ctx, OperationResetCircuit)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return s.ResetCircuit(ctx, req.(*CircuitRequest))
		})
		out, err := h(ctx, in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}
