package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/roundtable-run/roundtable/pkg/database"
)

// createWallPostHandler handles POST /wall.
func (s *Server) createWallPostHandler(c *gin.Context) {
	var req wallPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var parentID *uuid.UUID
	if req.ParentID != "" {
		id, err := uuid.Parse(req.ParentID)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "parent_id must be a UUID"})
			return
		}
		parentID = &id
	}

	var authorCredID uuid.UUID
	if cred := callerCredential(c); cred != nil {
		authorCredID = cred.ID
	}

	post, err := s.wall.Post(c.Request.Context(), uuid.Nil, req.AuthorName, authorCredID, req.Content, parentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newWallPostResponse(post))
}

// reactWallPostHandler handles POST /wall/{id}/react.
func (s *Server) reactWallPostHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "id must be a UUID"})
		return
	}

	var req wallReactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	post, err := s.wallPosts.GetByID(c.Request.Context(), id)
	if err != nil {
		if err == database.ErrWallPostNotFound {
			c.JSON(http.StatusNotFound, errorResponse{Error: "resource not found"})
			return
		}
		respondError(c, err)
		return
	}

	if err := s.wall.React(c.Request.Context(), post, req.Emoji, req.Author); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newWallPostResponse(post))
}

// listWallPostsHandler handles GET /wall.
func (s *Server) listWallPostsHandler(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	posts, err := s.wall.Feed(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]wallPostResponse, len(posts))
	for i, p := range posts {
		out[i] = newWallPostResponse(p)
	}
	c.JSON(http.StatusOK, gin.H{"posts": out})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
