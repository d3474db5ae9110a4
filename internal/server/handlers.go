package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ratewidget/internal/conversion"
	"ratewidget/internal/rates"
	"ratewidget/internal/widget"
)

type amountRequest struct {
	Amount *string `json:"amount" binding:"required"`
}

type currenciesRequest struct {
	Source rates.Currency `json:"source"`
	Target rates.Currency `json:"target"`
}

type convertResponse struct {
	Amount string         `json:"amount"`
	From   rates.Currency `json:"from"`
	To     rates.Currency `json:"to"`
	Result string         `json:"result"`
}

type ratesResponse struct {
	Base      rates.Currency                `json:"base"`
	UpdatedAt *time.Time                    `json:"updated_at,omitempty"`
	Rates     map[rates.Currency]rates.Rate `json:"rates"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) view(c *gin.Context) {
	c.JSON(http.StatusOK, s.widget.View())
}

func (s *Server) setAmount(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	v, err := s.widget.SetAmount(*req.Amount)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "widget": v})
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) setCurrencies(c *gin.Context) {
	var req currenciesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	v, err := s.widget.SetPair(req.Source, req.Target)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "widget": v})
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) swap(c *gin.Context) {
	c.JSON(http.StatusOK, s.widget.Swap())
}

// convert is stateless: it does not touch the widget inputs.
func (s *Server) convert(c *gin.Context) {
	state := s.store.State()
	if state.Status != rates.Ready {
		s.unavailable(c, state)
		return
	}

	amount := c.Query("amount")
	from := rates.Currency(c.Query("from"))
	to := rates.Currency(c.Query("to"))

	c.JSON(http.StatusOK, convertResponse{
		Amount: amount,
		From:   from,
		To:     to,
		Result: conversion.Convert(amount, from, to, state.Table),
	})
}

func (s *Server) rates(c *gin.Context) {
	state := s.store.State()
	if state.Status != rates.Ready {
		s.unavailable(c, state)
		return
	}
	c.JSON(http.StatusOK, newRatesResponse(state.Table))
}

func (s *Server) refresh(c *gin.Context) {
	state, err := s.store.Refresh(c.Request.Context())
	switch {
	case errors.Is(err, rates.ErrNotReady):
		s.unavailable(c, state)
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, newRatesResponse(state.Table))
	}
}

func (s *Server) unavailable(c *gin.Context, state rates.State) {
	body := gin.H{"status": widget.StatusLoading, "error": "exchange rates are not available yet"}
	if state.Status == rates.Failed {
		body = gin.H{"status": widget.StatusError, "error": state.Reason()}
	}
	c.JSON(http.StatusServiceUnavailable, body)
}

func newRatesResponse(table *rates.Table) ratesResponse {
	resp := ratesResponse{
		Base:  table.Base(),
		Rates: table.Rates(),
	}
	if updated := table.UpdatedAt(); !updated.IsZero() {
		resp.UpdatedAt = &updated
	}
	return resp
}
