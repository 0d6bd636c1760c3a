package http

import (
	"net/http"

	"carteira/internal/core"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleListCategories(c *gin.Context) {
	typ, err := optionalType(c, "type")
	if err != nil {
		respondError(c, err)
		return
	}
	cats, err := s.cats.List(c.Request.Context(), userID(c), typ)
	if err != nil {
		respondError(c, err)
		return
	}
	if cats == nil {
		cats = []core.Category{}
	}
	c.JSON(http.StatusOK, cats)
}

func (s *Server) handleCreateCategory(c *gin.Context) {
	var cat core.Category
	if err := bindJSON(c, &cat); err != nil {
		respondError(c, err)
		return
	}
	cat.Name = sanitizeInput(cat.Name)

	created, err := s.cats.Create(c.Request.Context(), userID(c), cat)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleUpdateCategory(c *gin.Context) {
	var patch core.CategoryPatch
	if err := bindJSON(c, &patch); err != nil {
		respondError(c, err)
		return
	}
	if patch.Name != nil {
		n := sanitizeInput(*patch.Name)
		patch.Name = &n
	}

	updated, err := s.cats.Update(c.Request.Context(), userID(c), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDeleteCategory(c *gin.Context) {
	if err := s.cats.Delete(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
