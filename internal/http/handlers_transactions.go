package http

import (
	"net/http"

	"carteira/internal/core"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleListTransactions(c *gin.Context) {
	f, err := s.parseFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	txs, err := s.txs.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	c.JSON(http.StatusOK, txs)
}

func (s *Server) handleGetTransaction(c *gin.Context) {
	tx, err := s.txs.Get(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (s *Server) handleCreateTransaction(c *gin.Context) {
	var tx core.Transaction
	if err := bindJSON(c, &tx); err != nil {
		respondError(c, err)
		return
	}
	tx.Description = sanitizeInput(tx.Description)

	created, err := s.txs.Create(c.Request.Context(), userID(c), tx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleUpdateTransaction(c *gin.Context) {
	var patch core.TransactionPatch
	if err := bindJSON(c, &patch); err != nil {
		respondError(c, err)
		return
	}
	if patch.Description != nil {
		d := sanitizeInput(*patch.Description)
		patch.Description = &d
	}

	updated, err := s.txs.Update(c.Request.Context(), userID(c), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(c *gin.Context) {
	if err := s.txs.Delete(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
