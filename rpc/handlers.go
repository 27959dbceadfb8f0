package rpc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"prizepool/core/runtime"
	"prizepool/core/types"
	"prizepool/native/prizepool"
	"prizepool/native/token"
	"prizepool/observability"
	"prizepool/observability/logging"
)

const maxEventsPerPage = 500

func decodeParam(req *RPCRequest, out interface{}) *RPCError {
	if len(req.Params) != 1 {
		return newError(http.StatusBadRequest, codeInvalidParams, "parameter object required", nil)
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return newError(http.StatusBadRequest, codeInvalidParams, "invalid parameter object", err.Error())
	}
	return nil
}

func (s *Server) handleSendTransaction(r *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	if authErr := s.requireAuth(r); authErr != nil {
		s.logger.Warn("unauthorized transaction",
			slog.String("requestId", requestID(r.Context())),
			slog.String("remote", s.clientSource(r)),
			logging.MaskField("authorization", r.Header.Get("Authorization")),
			slog.String("reason", authErr.Message))
		return nil, authErr
	}
	var tx types.Transaction
	if rpcErr := decodeParam(req, &tx); rpcErr != nil {
		return nil, rpcErr
	}

	source := s.clientSource(r)
	if !s.allowSource(source, time.Now()) {
		observability.ModuleMetrics().RecordThrottle("rate_limit")
		return nil, newError(http.StatusTooManyRequests, codeRateLimited, "transaction rate limit exceeded", source)
	}

	receipt, err := s.ledger.Submit(r.Context(), &tx)
	if err != nil {
		s.logger.Info("transaction rejected",
			slog.String("requestId", requestID(r.Context())),
			slog.String("remote", source),
			slog.Any("error", err))
		return nil, submitError(err)
	}
	return receipt, nil
}

func submitError(err error) *RPCError {
	switch {
	case errors.Is(err, runtime.ErrAlreadyProcessed):
		return newError(http.StatusConflict, codeDuplicateTx, "transaction has already been processed", err.Error())
	case errors.Is(err, types.ErrNoInstructions),
		errors.Is(err, types.ErrNoSigners),
		errors.Is(err, types.ErrDuplicateSigner),
		errors.Is(err, types.ErrMissingSignature),
		errors.Is(err, types.ErrSignatureMismatch):
		return newError(http.StatusBadRequest, codeInvalidParams, err.Error(), nil)
	}
	if name := prizepool.Code(err); name != "" {
		return newError(http.StatusUnprocessableEntity, codeProgramError, err.Error(), name)
	}
	return newError(http.StatusInternalServerError, codeServerError, "transaction failed", err.Error())
}

func (s *Server) handleGetGame(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params GameParams
	if rpcErr := decodeParam(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	view, err := prizepool.LoadView(s.ledger, params.GameID)
	if errors.Is(err, prizepool.ErrWinnersNotSet) {
		return nil, newError(http.StatusNotFound, codeNotFound, "game not found", prizepool.Code(err))
	}
	if err != nil {
		return nil, newError(http.StatusInternalServerError, codeServerError, "failed to load game", err.Error())
	}
	result := GameResult{
		GameID:        view.Game.GameID,
		Record:        view.Record,
		WinnersSet:    view.Game.WinnersSet,
		Winners:       make([]WinnerView, 0, len(view.Game.Winners)),
		PoolAuthority: view.PoolAuthority,
		PoolAccount:   view.PoolAccount,
		PoolBalance:   view.PoolBalance,
	}
	for i, winner := range view.Game.Winners {
		result.Winners = append(result.Winners, WinnerView{
			Address: winner,
			Amount:  view.Game.Amounts[i],
			Claimed: view.Game.Claimed[i],
		})
	}
	return result, nil
}

func (s *Server) handleGetBalance(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params BalanceParams
	if rpcErr := decodeParam(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	wallet, amount, exists, err := token.Balance(s.ledger, params.Owner)
	if err != nil {
		return nil, newError(http.StatusInternalServerError, codeServerError, "failed to load balance", err.Error())
	}
	return BalanceResult{Owner: params.Owner, Wallet: wallet, Exists: exists, Balance: amount}, nil
}

func (s *Server) handlePoolAuthority(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params GameParams
	if rpcErr := decodeParam(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	authority, bump, err := prizepool.PoolAuthority(params.GameID)
	if err != nil {
		return nil, newError(http.StatusInternalServerError, codeServerError, "failed to derive authority", err.Error())
	}
	pool, err := prizepool.PoolAccount(params.GameID)
	if err != nil {
		return nil, newError(http.StatusInternalServerError, codeServerError, "failed to derive pool account", err.Error())
	}
	record, err := prizepool.GameAddress(params.GameID)
	if err != nil {
		return nil, newError(http.StatusInternalServerError, codeServerError, "failed to derive record address", err.Error())
	}
	return PoolAuthorityResult{
		GameID:      params.GameID,
		Authority:   authority,
		Bump:        bump,
		PoolAccount: pool,
		Record:      record,
	}, nil
}

func (s *Server) handleStatus(_ *http.Request, _ *RPCRequest) (interface{}, *RPCError) {
	result := StatusResult{Height: s.ledger.Height(), Root: s.ledger.Root().Hex()}
	if !s.admin.IsZero() {
		result.Admin = s.admin.String()
	}
	return result, nil
}

func (s *Server) handleEvents(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	params := EventsParams{}
	if len(req.Params) > 0 {
		if rpcErr := decodeParam(req, &params); rpcErr != nil {
			return nil, rpcErr
		}
	}
	if s.events == nil {
		return EventsResult{Events: nil}, nil
	}
	if params.Limit <= 0 || params.Limit > maxEventsPerPage {
		params.Limit = maxEventsPerPage
	}
	return EventsResult{Events: s.events.Since(params.After, params.Type, params.Limit)}, nil
}
