package adminapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/solsniper/sniperd/internal/safety"
)

type listParams struct {
	Status string `json:"status"`
	Limit  int    `json:"limit"`
}

func decodeListParams(params json.RawMessage) (listParams, error) {
	var p listParams
	if len(params) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return p, fmt.Errorf("decode params: %w", err)
	}
	return p, nil
}

func (s *Server) positionsList(ctx context.Context, params json.RawMessage) (interface{}, error) {
	p, err := decodeListParams(params)
	if err != nil {
		return nil, err
	}
	return s.store.ListPositions(ctx, p.Status, p.Limit)
}

func (s *Server) executionsList(ctx context.Context, params json.RawMessage) (interface{}, error) {
	p, err := decodeListParams(params)
	if err != nil {
		return nil, err
	}
	return s.store.ListExecutions(ctx, p.Status, p.Limit)
}

func (s *Server) opportunitiesList(ctx context.Context, params json.RawMessage) (interface{}, error) {
	p, err := decodeListParams(params)
	if err != nil {
		return nil, err
	}
	return s.store.ListOpportunities(ctx, p.Status, p.Limit)
}

type pauseParams struct {
	Scope string `json:"scope"`
}

func (s *Server) safetyPause(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return s.setPause(ctx, params, true)
}

func (s *Server) safetyResume(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return s.setPause(ctx, params, false)
}

func (s *Server) setPause(ctx context.Context, params json.RawMessage, paused bool) (interface{}, error) {
	var p pauseParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("decode params: %w", err)
		}
	}
	scope := p.Scope
	if scope == "" {
		scope = safety.ScopeGlobal
	}
	if err := s.safety.SetPause(ctx, scope, paused); err != nil {
		return nil, fmt.Errorf("set pause: %w", err)
	}
	return map[string]interface{}{"scope": scope, "paused": paused}, nil
}
